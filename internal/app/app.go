// Package app provides the top-level application lifecycle for the
// conversion bridge. It wires together the chain clients, stores, caches,
// blob storage, and services, and starts the goroutines that the configured
// operating mode needs.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/config"
)

// EstimateTarget identifies the conversion that estimate mode prices.
type EstimateTarget struct {
	Token   common.Address
	Amount  *big.Int
	FeeTier uint32
}

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	estimate EstimateTarget
	closers  []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// SetEstimateTarget sets the token and amount that estimate mode prices.
// It has no effect in other modes.
func (a *App) SetEstimateTarget(t EstimateTarget) {
	a.estimate = t
}

// Run is the main entry point. It wires all dependencies, selects the
// operating mode, and blocks until the mode returns or the context is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch strings.ToLower(a.cfg.Mode) {
	case "serve":
		return a.ServeMode(ctx, deps)
	case "probe":
		return a.ProbeMode(ctx, deps)
	case "estimate":
		return a.EstimateMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
