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
// built-in defaults, applies SEAS_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SEAS_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SEAS_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SEAS_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SEAS_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "SEAS_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "SEAS_CHAIN_CHAIN_ID")

	// ── Venue ──
	setStr(&cfg.Venue.Factory, "SEAS_VENUE_FACTORY")
	setStr(&cfg.Venue.Quoter, "SEAS_VENUE_QUOTER")
	setStr(&cfg.Venue.Router, "SEAS_VENUE_ROUTER")

	// ── Bridge ──
	setStr(&cfg.Bridge.SettlementToken, "SEAS_BRIDGE_SETTLEMENT_TOKEN")
	setStr(&cfg.Bridge.ProbeToken, "SEAS_BRIDGE_PROBE_TOKEN")
	setStr(&cfg.Bridge.LedgerAddress, "SEAS_BRIDGE_LEDGER_ADDRESS")
	setInt64Slice(&cfg.Bridge.FeeTiers, "SEAS_BRIDGE_FEE_TIERS")
	setInt(&cfg.Bridge.SlippageBps, "SEAS_BRIDGE_SLIPPAGE_BPS")
	setStr(&cfg.Bridge.MinLiquidity, "SEAS_BRIDGE_MIN_LIQUIDITY")
	setInt(&cfg.Bridge.CacheTTLSeconds, "SEAS_BRIDGE_CACHE_TTL_SECONDS")
	setInt64(&cfg.Bridge.ApproveMultiplier, "SEAS_BRIDGE_APPROVE_MULTIPLIER")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SEAS_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SEAS_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SEAS_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SEAS_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SEAS_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SEAS_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SEAS_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SEAS_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SEAS_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SEAS_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SEAS_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SEAS_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SEAS_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SEAS_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SEAS_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SEAS_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SEAS_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SEAS_S3_REGION")
	setStr(&cfg.S3.Bucket, "SEAS_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SEAS_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SEAS_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SEAS_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SEAS_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SEAS_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SEAS_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "SEAS_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SEAS_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SEAS_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SEAS_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SEAS_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SEAS_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SEAS_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SEAS_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SEAS_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "SEAS_MODE")
	setStr(&cfg.LogLevel, "SEAS_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
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

func setInt64Slice(dst *[]int64, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		parsed := make([]int64, 0, len(parts))
		for _, p := range parts {
			n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
			if err != nil {
				return
			}
			parsed = append(parsed, n)
		}
		if len(parsed) > 0 {
			*dst = parsed
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
