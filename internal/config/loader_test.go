package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `
mode = "probe"
log_level = "debug"

[bridge]
ledger_address = "0x0cC096B1cC568A22C1F02DAB769881d1aFE6161a"
slippage_bps = 150
fee_tiers = [500, 3000]

[archive]
enabled = true
interval = "6h"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "probe", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 150, cfg.Bridge.SlippageBps)
	assert.Equal(t, []int64{500, 3000}, cfg.Bridge.FeeTiers)
	assert.Equal(t, 6*time.Hour, cfg.Archive.Interval.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "https://forno.celo.org", cfg.Chain.RPCURL)
	assert.Equal(t, int64(42220), cfg.Chain.ChainID)
	assert.Equal(t, "0x471EcE3750Da237f93B8E339c536989b8978a438", cfg.Bridge.SettlementToken)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `mode = "probe"`)

	t.Setenv("SEAS_WALLET_PRIVATE_KEY", "0xdeadbeef")
	t.Setenv("SEAS_CHAIN_CHAIN_ID", "44787")
	t.Setenv("SEAS_BRIDGE_FEE_TIERS", "100, 500")
	t.Setenv("SEAS_BRIDGE_SLIPPAGE_BPS", "50")
	t.Setenv("SEAS_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("SEAS_ARCHIVE_INTERVAL", "90m")
	t.Setenv("SEAS_SERVER_CORS_ORIGINS", "https://app.example.org, https://admin.example.org")
	t.Setenv("SEAS_MODE", "serve")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0xdeadbeef", cfg.Wallet.PrivateKey)
	assert.Equal(t, int64(44787), cfg.Chain.ChainID)
	assert.Equal(t, []int64{100, 500}, cfg.Bridge.FeeTiers)
	assert.Equal(t, 50, cfg.Bridge.SlippageBps)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 90*time.Minute, cfg.Archive.Interval.Duration)
	assert.Equal(t, []string{"https://app.example.org", "https://admin.example.org"}, cfg.Server.CORSOrigins)
	// Env wins over the TOML file.
	assert.Equal(t, "serve", cfg.Mode)
}

func TestEnvOverridesIgnoreMalformedValues(t *testing.T) {
	path := writeConfigFile(t, `mode = "probe"`)

	t.Setenv("SEAS_BRIDGE_SLIPPAGE_BPS", "two-percent")
	t.Setenv("SEAS_BRIDGE_FEE_TIERS", "500,abc")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Defaults survive unparseable overrides.
	assert.Equal(t, 200, cfg.Bridge.SlippageBps)
	assert.Equal(t, []int64{500, 3000, 10000}, cfg.Bridge.FeeTiers)
}
