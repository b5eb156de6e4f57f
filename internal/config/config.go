// Package config defines the top-level configuration for the trade ledger
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/JayIsLate/tradejournal-sub000/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LEDGERD_* environment variables.
type Config struct {
	Watch    []WatchConfig  `toml:"watch"`
	Indexer  IndexerConfig  `toml:"indexer"`
	Prices   PricesConfig   `toml:"prices"`
	Metadata MetadataConfig `toml:"metadata"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Sync     SyncConfig     `toml:"sync"`
	Engine   EngineConfig   `toml:"engine"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WatchConfig is one watched wallet address. Addresses added at runtime
// through the API are stored in the settings store and merged with these.
type WatchConfig struct {
	Address string `toml:"address"`
	Chain   string `toml:"chain"`
	Label   string `toml:"label"`
}

// IndexerConfig holds the enriched-transaction feed endpoints, one base URL
// per chain family.
type IndexerConfig struct {
	SolanaBaseURL string `toml:"solana_base_url"`
	NearBaseURL   string `toml:"near_base_url"`
	ApiKey        string `toml:"api_key"`
	PageSize      int    `toml:"page_size"`
	Timeout       duration `toml:"timeout"`
	RateLimit     int      `toml:"rate_limit"`
	RateWindow    duration `toml:"rate_window"`
}

// PricesConfig holds the spot price source parameters.
type PricesConfig struct {
	BaseURL  string   `toml:"base_url"`
	ApiKey   string   `toml:"api_key"`
	NativeID string   `toml:"native_id"`
	Timeout  duration `toml:"timeout"`
	CacheTTL duration `toml:"cache_ttl"`
}

// MetadataConfig holds the token metadata source parameters.
type MetadataConfig struct {
	BaseURL    string   `toml:"base_url"`
	ApiKey     string   `toml:"api_key"`
	BatchSize  int      `toml:"batch_size"`
	BatchDelay duration `toml:"batch_delay"`
	Timeout    duration `toml:"timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters. An empty DSN with an
// empty host selects the in-memory stores.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// InMemory reports whether no database was configured at all.
func (d DatabaseConfig) InMemory() bool {
	return strings.TrimSpace(d.DSN) == "" && d.Host == ""
}

// RedisConfig holds Redis connection parameters. Redis is optional: without
// it the price cache is in-process and the distributed sync lock is skipped.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for ledger exports.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SyncConfig holds sync loop tuning.
type SyncConfig struct {
	Interval     duration `toml:"interval"`
	InitialDelay duration `toml:"initial_delay"`
	MaxPages     int      `toml:"max_pages"`
	Parallelism  int      `toml:"parallelism"`
	LockTTL      duration `toml:"lock_ttl"`
}

// EngineConfig holds the classification rule sets and thresholds.
type EngineConfig struct {
	NativeSymbol        string   `toml:"native_symbol"`
	BaseCurrencies      []string `toml:"base_currencies"`
	Stablecoins         []string `toml:"stablecoins"`
	WrappedNative       []string `toml:"wrapped_native"`
	StablecoinContracts []string `toml:"stablecoin_contracts"`
	RoutingTokens       []string `toml:"routing_tokens"`
	DustFloor           float64  `toml:"dust_floor"`
	FeeBandCenter       float64  `toml:"fee_band_center"`
	FeeBandWidth        float64  `toml:"fee_band_width"`
	NativeAmountCeiling float64  `toml:"native_amount_ceiling"`
	QuantityPrecision   int      `toml:"quantity_precision"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	ApiKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	engineDefaults := engineParamsDefaults()
	return Config{
		Indexer: IndexerConfig{
			SolanaBaseURL: "https://api.helius.xyz",
			NearBaseURL:   "",
			PageSize:      100,
			Timeout:       duration{30 * time.Second},
			RateLimit:     10,
			RateWindow:    duration{time.Second},
		},
		Prices: PricesConfig{
			BaseURL:  "https://api.coingecko.com/api/v3",
			NativeID: "solana",
			Timeout:  duration{15 * time.Second},
			CacheTTL: duration{time.Minute},
		},
		Metadata: MetadataConfig{
			BaseURL:    "https://api.helius.xyz",
			BatchSize:  100,
			BatchDelay: duration{500 * time.Millisecond},
			Timeout:    duration{30 * time.Second},
		},
		Database: DatabaseConfig{
			Port:          5432,
			Database:      "ledger",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "ledger-exports",
			ForcePathStyle: true,
		},
		Sync: SyncConfig{
			Interval:     duration{time.Minute},
			InitialDelay: duration{5 * time.Second},
			MaxPages:     20,
			Parallelism:  4,
			LockTTL:      duration{5 * time.Minute},
		},
		Engine:   engineDefaults,
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"sync_completed", "entry_repaired", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

func engineParamsDefaults() EngineConfig {
	return EngineConfig{
		NativeSymbol:        "SOL",
		BaseCurrencies:      []string{"SOL", "WSOL", "USDC", "USDT", "USD"},
		Stablecoins:         []string{"USDC", "USDT", "USD"},
		WrappedNative:       []string{"WSOL"},
		RoutingTokens:       []string{"RAY", "JLP"},
		DustFloor:           0.02,
		NativeAmountCeiling: 50,
		QuantityPrecision:   4,
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"sync":   true,
	"serve":  true,
	"export": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: sync, serve, export, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Watched addresses
	for i, w := range c.Watch {
		chain := domain.Chain(strings.ToLower(w.Chain))
		if !chain.Valid() {
			errs = append(errs, fmt.Sprintf("watch[%d]: unknown chain %q (valid: %s, %s)",
				i, w.Chain, domain.ChainSolana, domain.ChainNear))
			continue
		}
		if w.Address == "" {
			errs = append(errs, fmt.Sprintf("watch[%d]: address must not be empty", i))
			continue
		}
		if chain == domain.ChainSolana {
			if _, err := base58.Decode(w.Address); err != nil {
				errs = append(errs, fmt.Sprintf("watch[%d]: address %q is not valid base58", i, w.Address))
			}
		}
	}

	// Indexer — required for any syncing mode.
	needsSync := c.Mode == "sync" || c.Mode == "full"
	if needsSync {
		if c.Indexer.SolanaBaseURL == "" && c.Indexer.NearBaseURL == "" {
			errs = append(errs, "indexer: at least one of solana_base_url / near_base_url must be set")
		}
		if c.Indexer.PageSize < 1 || c.Indexer.PageSize > 1000 {
			errs = append(errs, fmt.Sprintf("indexer: page_size must be 1-1000, got %d", c.Indexer.PageSize))
		}
		if c.Prices.BaseURL == "" {
			errs = append(errs, "prices: base_url must not be empty")
		}
		if c.Metadata.BatchSize < 1 {
			errs = append(errs, "metadata: batch_size must be >= 1")
		}
	}

	// Database
	if !c.Database.InMemory() {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 {
			errs = append(errs, "database: pool_min_conns must be >= 0")
		}
		if c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3 — required for export mode.
	if c.S3.Enabled || c.Mode == "export" {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Sync tuning
	if c.Sync.Interval.Duration < time.Second {
		errs = append(errs, "sync: interval must be >= 1s")
	}
	if c.Sync.MaxPages < 1 {
		errs = append(errs, "sync: max_pages must be >= 1")
	}
	if c.Sync.Parallelism < 1 {
		errs = append(errs, "sync: parallelism must be >= 1")
	}

	// Engine thresholds
	if c.Engine.NativeSymbol == "" {
		errs = append(errs, "engine: native_symbol must not be empty")
	}
	if c.Engine.DustFloor < 0 {
		errs = append(errs, "engine: dust_floor must be >= 0")
	}
	if c.Engine.FeeBandWidth < 0 {
		errs = append(errs, "engine: fee_band_width must be >= 0")
	}
	if c.Engine.QuantityPrecision < 0 || c.Engine.QuantityPrecision > 12 {
		errs = append(errs, fmt.Sprintf("engine: quantity_precision must be 0-12, got %d", c.Engine.QuantityPrecision))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// WatchedAddresses converts the configured watch entries into domain values.
// Entries with unknown chains are skipped; Validate reports them.
func (c *Config) WatchedAddresses() []domain.WatchedAddress {
	out := make([]domain.WatchedAddress, 0, len(c.Watch))
	for _, w := range c.Watch {
		chain := domain.Chain(strings.ToLower(w.Chain))
		if !chain.Valid() || w.Address == "" {
			continue
		}
		out = append(out, domain.WatchedAddress{
			Address: w.Address,
			Chain:   chain,
			Label:   w.Label,
		})
	}
	return out
}
