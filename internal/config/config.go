// Package config defines the top-level configuration for the conversion
// bridge and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SEAS_* environment variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	Venue    VenueConfig    `toml:"venue"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the bridge's executing key material.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds chain RPC parameters.
type ChainConfig struct {
	RPCURL  string `toml:"rpc_url"`
	ChainID int64  `toml:"chain_id"`
}

// VenueConfig holds the exchange venue's contract addresses.
type VenueConfig struct {
	Factory string `toml:"factory"`
	Quoter  string `toml:"quoter"`
	Router  string `toml:"router"`
}

// BridgeConfig holds the conversion parameters: route variants, slippage
// bounds, liquidity threshold, cache freshness, and the settlement target.
type BridgeConfig struct {
	SettlementToken string `toml:"settlement_token"`
	// ProbeToken is the input token probed by the operational check.
	ProbeToken    string  `toml:"probe_token"`
	LedgerAddress string  `toml:"ledger_address"`
	FeeTiers      []int64 `toml:"fee_tiers"`
	SlippageBps   int     `toml:"slippage_bps"`
	// MinLiquidity is a decimal integer string; pool liquidity below it
	// disqualifies a route.
	MinLiquidity    string `toml:"min_liquidity"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	// ApproveMultiplier scales allowance top-ups. Larger values amortize gas
	// across repeat conversions at the cost of a larger standing allowance.
	ApproveMultiplier int64 `toml:"approve_multiplier"`
}

// MinLiquidityInt parses MinLiquidity. Validate guarantees it parses; the
// second return guards direct use before validation.
func (b BridgeConfig) MinLiquidityInt() (*big.Int, bool) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(b.MinLiquidity), 10)
	return n, ok
}

// CacheTTL returns the cache TTL as a duration.
func (b BridgeConfig) CacheTTL() time.Duration {
	return time.Duration(b.CacheTTLSeconds) * time.Second
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls exporting settled conversion records to blob
// storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "6h", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
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
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// Addresses default to the Celo mainnet Uniswap V3 deployment.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			RPCURL:  "https://forno.celo.org",
			ChainID: 42220,
		},
		Venue: VenueConfig{
			Factory: "0xAfE208a311B21f13EF87E33A90049fC17A7acDEc",
			Quoter:  "0x82825d0554fA07f7FC52Ab63c961F330fdEFa8E8",
			Router:  "0x5615CDAb10dc425a742d643d949a7F474C01abc4",
		},
		Bridge: BridgeConfig{
			SettlementToken:   "0x471EcE3750Da237f93B8E339c536989b8978a438", // CELO
			ProbeToken:        "0x765DE816845861e75A25fCA122bb6898B8B1282a", // cUSD
			FeeTiers:          []int64{500, 3000, 10000},
			SlippageBps:       200,
			MinLiquidity:      "1000",
			CacheTTLSeconds:   60,
			ApproveMultiplier: 2,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "seasbridge",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "seasbridge-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"conversion_settled", "settlement_rejected", "bridge_degraded", "error"},
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":    true,
	"probe":    true,
	"estimate": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// isHexAddress is a light shape check: 0x-prefixed, 40 hex characters.
func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, probe, estimate)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet is required in serve mode, which executes conversions.
	if strings.ToLower(c.Mode) == "serve" {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for mode serve")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Chain
	if c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url must not be empty")
	}
	if c.Chain.ChainID <= 0 {
		errs = append(errs, "chain: chain_id must be positive")
	}

	// Venue addresses
	for name, addr := range map[string]string{
		"venue.factory": c.Venue.Factory,
		"venue.quoter":  c.Venue.Quoter,
		"venue.router":  c.Venue.Router,
	} {
		if !isHexAddress(addr) {
			errs = append(errs, fmt.Sprintf("%s: %q is not a valid address", name, addr))
		}
	}

	// Bridge
	if !isHexAddress(c.Bridge.SettlementToken) {
		errs = append(errs, fmt.Sprintf("bridge: settlement_token %q is not a valid address", c.Bridge.SettlementToken))
	}
	if !isHexAddress(c.Bridge.ProbeToken) {
		errs = append(errs, fmt.Sprintf("bridge: probe_token %q is not a valid address", c.Bridge.ProbeToken))
	}
	if !isHexAddress(c.Bridge.LedgerAddress) {
		errs = append(errs, fmt.Sprintf("bridge: ledger_address %q is not a valid address", c.Bridge.LedgerAddress))
	}
	if len(c.Bridge.FeeTiers) == 0 {
		errs = append(errs, "bridge: fee_tiers must not be empty")
	}
	for _, t := range c.Bridge.FeeTiers {
		if t <= 0 || t >= 1_000_000 {
			errs = append(errs, fmt.Sprintf("bridge: fee tier %d out of range", t))
		}
	}
	if c.Bridge.SlippageBps < 0 || c.Bridge.SlippageBps >= 10_000 {
		errs = append(errs, fmt.Sprintf("bridge: slippage_bps must be in [0, 10000), got %d", c.Bridge.SlippageBps))
	}
	if _, ok := c.Bridge.MinLiquidityInt(); !ok {
		errs = append(errs, fmt.Sprintf("bridge: min_liquidity %q is not a decimal integer", c.Bridge.MinLiquidity))
	}
	if c.Bridge.CacheTTLSeconds <= 0 {
		errs = append(errs, "bridge: cache_ttl_seconds must be > 0")
	}
	if c.Bridge.ApproveMultiplier < 1 {
		errs = append(errs, "bridge: approve_multiplier must be >= 1")
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Archive
	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
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
