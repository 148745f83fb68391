// Command seasbridge is the entry point for the conversion bridge. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and starts the application in the configured mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/app"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured mode (serve, probe, estimate)")
	estToken := flag.String("token", "", "estimate mode: input token address")
	estAmount := flag.String("amount", "", "estimate mode: input amount in base units")
	estTier := flag.Uint("fee-tier", 0, "estimate mode: preferred fee tier (optional)")
	flag.Parse()

	// Bootstrap logger; replaced once the configured level is known.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}

	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("conversion bridge starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	if strings.ToLower(cfg.Mode) == "estimate" {
		target, err := parseEstimateTarget(*estToken, *estAmount, *estTier)
		if err != nil {
			logger.Error("invalid estimate flags", slog.String("error", err.Error()))
			os.Exit(1)
		}
		application.SetEstimateTarget(target)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}

	logger.Info("conversion bridge stopped")
}

// parseEstimateTarget validates the estimate-mode flags.
func parseEstimateTarget(token, amount string, tier uint) (app.EstimateTarget, error) {
	if !common.IsHexAddress(token) {
		return app.EstimateTarget{}, fmt.Errorf("-token %q is not a valid address", token)
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok || n.Sign() <= 0 {
		return app.EstimateTarget{}, fmt.Errorf("-amount %q is not a positive decimal integer", amount)
	}
	return app.EstimateTarget{
		Token:   common.HexToAddress(token),
		Amount:  n,
		FeeTier: uint32(tier),
	}, nil
}
