package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LEDGERD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LEDGERD_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Indexer ──
	setStr(&cfg.Indexer.SolanaBaseURL, "LEDGERD_INDEXER_SOLANA_BASE_URL")
	setStr(&cfg.Indexer.NearBaseURL, "LEDGERD_INDEXER_NEAR_BASE_URL")
	setStr(&cfg.Indexer.ApiKey, "LEDGERD_INDEXER_API_KEY")
	setInt(&cfg.Indexer.PageSize, "LEDGERD_INDEXER_PAGE_SIZE")
	setDuration(&cfg.Indexer.Timeout, "LEDGERD_INDEXER_TIMEOUT")
	setInt(&cfg.Indexer.RateLimit, "LEDGERD_INDEXER_RATE_LIMIT")
	setDuration(&cfg.Indexer.RateWindow, "LEDGERD_INDEXER_RATE_WINDOW")

	// ── Prices ──
	setStr(&cfg.Prices.BaseURL, "LEDGERD_PRICES_BASE_URL")
	setStr(&cfg.Prices.ApiKey, "LEDGERD_PRICES_API_KEY")
	setStr(&cfg.Prices.NativeID, "LEDGERD_PRICES_NATIVE_ID")
	setDuration(&cfg.Prices.Timeout, "LEDGERD_PRICES_TIMEOUT")
	setDuration(&cfg.Prices.CacheTTL, "LEDGERD_PRICES_CACHE_TTL")

	// ── Metadata ──
	setStr(&cfg.Metadata.BaseURL, "LEDGERD_METADATA_BASE_URL")
	setStr(&cfg.Metadata.ApiKey, "LEDGERD_METADATA_API_KEY")
	setInt(&cfg.Metadata.BatchSize, "LEDGERD_METADATA_BATCH_SIZE")
	setDuration(&cfg.Metadata.BatchDelay, "LEDGERD_METADATA_BATCH_DELAY")
	setDuration(&cfg.Metadata.Timeout, "LEDGERD_METADATA_TIMEOUT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "LEDGERD_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "LEDGERD_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "LEDGERD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "LEDGERD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "LEDGERD_DATABASE_NAME")
	setStr(&cfg.Database.User, "LEDGERD_DATABASE_USER")
	setStr(&cfg.Database.Password, "LEDGERD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "LEDGERD_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "LEDGERD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "LEDGERD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "LEDGERD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LEDGERD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LEDGERD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LEDGERD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LEDGERD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LEDGERD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LEDGERD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LEDGERD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "LEDGERD_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "LEDGERD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LEDGERD_S3_REGION")
	setStr(&cfg.S3.Bucket, "LEDGERD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LEDGERD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LEDGERD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LEDGERD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LEDGERD_S3_FORCE_PATH_STYLE")

	// ── Sync ──
	setDuration(&cfg.Sync.Interval, "LEDGERD_SYNC_INTERVAL")
	setDuration(&cfg.Sync.InitialDelay, "LEDGERD_SYNC_INITIAL_DELAY")
	setInt(&cfg.Sync.MaxPages, "LEDGERD_SYNC_MAX_PAGES")
	setInt(&cfg.Sync.Parallelism, "LEDGERD_SYNC_PARALLELISM")
	setDuration(&cfg.Sync.LockTTL, "LEDGERD_SYNC_LOCK_TTL")

	// ── Engine ──
	setStr(&cfg.Engine.NativeSymbol, "LEDGERD_ENGINE_NATIVE_SYMBOL")
	setStringSlice(&cfg.Engine.BaseCurrencies, "LEDGERD_ENGINE_BASE_CURRENCIES")
	setStringSlice(&cfg.Engine.Stablecoins, "LEDGERD_ENGINE_STABLECOINS")
	setStringSlice(&cfg.Engine.WrappedNative, "LEDGERD_ENGINE_WRAPPED_NATIVE")
	setStringSlice(&cfg.Engine.StablecoinContracts, "LEDGERD_ENGINE_STABLECOIN_CONTRACTS")
	setStringSlice(&cfg.Engine.RoutingTokens, "LEDGERD_ENGINE_ROUTING_TOKENS")
	setFloat64(&cfg.Engine.DustFloor, "LEDGERD_ENGINE_DUST_FLOOR")
	setFloat64(&cfg.Engine.FeeBandCenter, "LEDGERD_ENGINE_FEE_BAND_CENTER")
	setFloat64(&cfg.Engine.FeeBandWidth, "LEDGERD_ENGINE_FEE_BAND_WIDTH")
	setFloat64(&cfg.Engine.NativeAmountCeiling, "LEDGERD_ENGINE_NATIVE_AMOUNT_CEILING")
	setInt(&cfg.Engine.QuantityPrecision, "LEDGERD_ENGINE_QUANTITY_PRECISION")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LEDGERD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "LEDGERD_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "LEDGERD_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "LEDGERD_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LEDGERD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LEDGERD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "LEDGERD_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "LEDGERD_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "LEDGERD_MODE")
	setStr(&cfg.LogLevel, "LEDGERD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
