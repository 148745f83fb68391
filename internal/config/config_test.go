package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig fills in the fields Defaults leaves for the operator.
func validConfig() *Config {
	cfg := Defaults()
	cfg.Mode = "probe"
	cfg.Bridge.LedgerAddress = "0x0cC096B1cC568A22C1F02DAB769881d1aFE6161a"
	return &cfg
}

func TestValidConfigPasses(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestServeModeRequiresKey(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "serve"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")

	cfg.Wallet.PrivateKey = "0x" + strings.Repeat("11", 32)
	assert.NoError(t, cfg.Validate())
}

func TestEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "serve"
	cfg.Wallet.EncryptedKeyPath = "/etc/seasbridge/key.json"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "fly"
	cfg.Chain.RPCURL = ""
	cfg.Bridge.SlippageBps = 10_000
	cfg.Bridge.MinLiquidity = "not-a-number"
	cfg.Redis.Addr = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "fly"`,
		"rpc_url",
		"slippage_bps",
		"min_liquidity",
		"redis: addr",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.Venue.Router = "0x123"
	cfg.Bridge.SettlementToken = "471EcE3750Da237f93B8E339c536989b8978a438" // missing 0x
	cfg.Bridge.LedgerAddress = "0x" + strings.Repeat("zz", 20)

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue.router")
	assert.Contains(t, err.Error(), "settlement_token")
	assert.Contains(t, err.Error(), "ledger_address")
}

func TestValidateFeeTiers(t *testing.T) {
	cfg := validConfig()
	cfg.Bridge.FeeTiers = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fee_tiers")

	cfg = validConfig()
	cfg.Bridge.FeeTiers = []int64{500, -1}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fee tier -1")
}

func TestValidateArchiveOnlyWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Enabled = false
	cfg.S3.Bucket = ""
	cfg.Archive.RetentionDays = 0
	assert.NoError(t, cfg.Validate())

	cfg.Archive.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
	assert.Contains(t, err.Error(), "retention_days")
}

func TestMinLiquidityInt(t *testing.T) {
	b := BridgeConfig{MinLiquidity: "  123456789012345678901234567890 "}
	n, ok := b.MinLiquidityInt()
	require.True(t, ok)
	assert.Equal(t, "123456789012345678901234567890", n.String())

	b.MinLiquidity = "0x10"
	_, ok = b.MinLiquidityInt()
	assert.False(t, ok)
}

func TestDurationTextRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("6h30m")))

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "6h30m0s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
