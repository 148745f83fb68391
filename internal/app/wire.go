package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	s3blob "github.com/Olisehgenesis/sovereign-seas-sub012/internal/blob/s3"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/bridge"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/cache/redis"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/config"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/crypto"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/ledger"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/notify"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/store/postgres"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/venue/univ3"
)

// Dependencies bundles every domain-level dependency that the application
// modes need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Chain
	EthClient *ethclient.Client
	Signer    *crypto.TxSigner // nil in read-only deployments

	// Core
	Bridge *bridge.Bridge

	// Persistence and coordination (serve mode only)
	ConversionStore domain.ConversionStore
	SignalBus       domain.SignalBus
	RateLimiter     domain.RateLimiter

	// Blob storage (serve mode with archiving enabled)
	BlobWriter domain.BlobWriter
	Archiver   domain.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that persist conversion records.
func needsPostgres(mode string) bool {
	return mode == "serve"
}

// needsRedis returns true for modes that need the distributed gate, rate
// limiter, and signal bus.
func needsRedis(mode string) bool {
	return mode == "serve"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that must
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Chain client ---
	ethClient, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: dial chain rpc %s: %w", cfg.Chain.RPCURL, err)
	}
	closers = append(closers, ethClient.Close)
	deps.EthClient = ethClient

	// --- Executing key ---
	// Serve mode executes transactions and requires a key. Probe and estimate
	// are read-only; a configured key still resolves the wallet address so the
	// operational check reflects the real deployment.
	var signerOpts *bind.TransactOpts
	var wallet common.Address
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: load key: %w", err)
		}
		signer, err := crypto.NewTxSigner(keyHex, cfg.Chain.ChainID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: signer: %w", err)
		}
		signerOpts, err = signer.TransactOpts()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: transact opts: %w", err)
		}
		deps.Signer = signer
		wallet = signer.Address()
	} else if mode == "serve" {
		cleanup()
		return nil, nil, fmt.Errorf("wire: mode serve requires an executing key")
	}

	// --- Venue and ledger contracts ---
	erc20, err := univ3.NewErc20(ethClient, signerOpts, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: erc20: %w", err)
	}

	venue, err := univ3.New(univ3.Config{
		Client:  ethClient,
		Factory: common.HexToAddress(cfg.Venue.Factory),
		Quoter:  common.HexToAddress(cfg.Venue.Quoter),
		Router:  common.HexToAddress(cfg.Venue.Router),
		Signer:  signerOpts,
		Wallet:  wallet,
		Erc20:   erc20,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: venue: %w", err)
	}

	seas, err := ledger.New(ethClient, common.HexToAddress(cfg.Bridge.LedgerAddress), signerOpts, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: settlement ledger: %w", err)
	}

	// --- Redis (gate, signal bus, rate limiter) ---
	var gate domain.ConversionGate = bridge.NewMemoryGate()
	if needsRedis(mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		gate = redis.NewGate(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- PostgreSQL (conversion records) ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		store := postgres.NewConversionStore(pgClient.Pool())
		deps.ConversionStore = store

		// --- S3 blob storage (archiving) ---
		if cfg.Archive.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}

			writer := s3blob.NewWriter(s3Client)
			deps.BlobWriter = writer
			deps.Archiver = s3blob.NewArchiver(writer, store, logger)
		}
	}

	// --- Bridge ---
	minLiquidity, ok := cfg.Bridge.MinLiquidityInt()
	if !ok {
		cleanup()
		return nil, nil, fmt.Errorf("wire: bridge min_liquidity %q is not a decimal integer", cfg.Bridge.MinLiquidity)
	}
	feeTiers := make([]uint32, 0, len(cfg.Bridge.FeeTiers))
	for _, t := range cfg.Bridge.FeeTiers {
		feeTiers = append(feeTiers, uint32(t))
	}

	deps.Bridge = bridge.New(
		bridge.Config{
			Wallet:            wallet,
			Router:            common.HexToAddress(cfg.Venue.Router),
			SettlementToken:   common.HexToAddress(cfg.Bridge.SettlementToken),
			ProbeToken:        common.HexToAddress(cfg.Bridge.ProbeToken),
			FeeTiers:          feeTiers,
			SlippageBps:       uint32(cfg.Bridge.SlippageBps),
			MinLiquidity:      minLiquidity,
			CacheTTL:          cfg.Bridge.CacheTTL(),
			ApproveMultiplier: cfg.Bridge.ApproveMultiplier,
		},
		venue,
		erc20,
		seas,
		bridge.NewMemoryVenueCache(cfg.Bridge.CacheTTL()),
		gate,
		logger,
	)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
