package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Indexer.PageSize = 0
	cfg.Watch = []WatchConfig{{Address: "not-base58-0OIl", Chain: "solana"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
	assert.Contains(t, err.Error(), "base58")

	cfg = Defaults()
	cfg.Mode = "turbo"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "serve"
log_level = "debug"

[sync]
interval = "30s"

[engine]
dust_floor = 0.5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Sync.Interval.Duration)
	assert.Equal(t, 0.5, cfg.Engine.DustFloor)
	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Indexer.PageSize)
	assert.Equal(t, "solana", cfg.Prices.NativeID)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LEDGERD_MODE", "sync")
	t.Setenv("LEDGERD_INDEXER_API_KEY", "from-env")
	t.Setenv("LEDGERD_SYNC_INTERVAL", "2m")
	t.Setenv("LEDGERD_ENGINE_BASE_CURRENCIES", "NEAR, USDC ,USDT")
	t.Setenv("LEDGERD_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sync", cfg.Mode)
	assert.Equal(t, "from-env", cfg.Indexer.ApiKey)
	assert.Equal(t, 2*time.Minute, cfg.Sync.Interval.Duration)
	assert.Equal(t, []string{"NEAR", "USDC", "USDT"}, cfg.Engine.BaseCurrencies)
	assert.True(t, cfg.Redis.Enabled)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Indexer.ApiKey = "secret-key"
	cfg.Database.Password = "hunter2"
	cfg.Notify.TelegramToken = "bot-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Indexer.ApiKey)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Notify.TelegramToken)
	assert.Empty(t, red.Redis.Password)
	// Original untouched.
	assert.Equal(t, "secret-key", cfg.Indexer.ApiKey)
}

func TestWatchedAddresses(t *testing.T) {
	cfg := Defaults()
	cfg.Watch = []WatchConfig{
		{Address: "4Nd1mYQaGqZGJc7EYZTJ6kCRW7xZ3V1cW7RZzR1t9A2B", Chain: "Solana", Label: "main"},
		{Address: "alice.near", Chain: "near"},
		// The last two are skipped: empty address, unknown chain.
		{Address: "", Chain: "solana"},
		{Address: "x", Chain: "dogechain"},
	}

	addrs := cfg.WatchedAddresses()
	require.Len(t, addrs, 2)
	assert.Equal(t, "main", addrs[0].Label)
	assert.Equal(t, "alice.near", addrs[1].Address)
}
