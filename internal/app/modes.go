package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/pipeline"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/server"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/server/handler"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/server/ws"
	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/service"
)

// shutdownGrace bounds how long in-flight HTTP requests may run after the
// context is cancelled.
const shutdownGrace = 10 * time.Second

// ServeMode runs the long-lived deployment: the HTTP + WebSocket API, the
// conversion service, and the archive job when enabled. It blocks until the
// context is cancelled or a component fails.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	convSvc := service.NewConversionService(
		deps.Bridge, deps.ConversionStore, deps.SignalBus, deps.Notifier, a.logger,
	)

	// WebSocket hub, fed by the Redis signal bus.
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		srv := server.NewServer(
			server.Config{
				Port:        a.cfg.Server.Port,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				APIKey:      a.cfg.Server.APIKey,
			},
			server.Handlers{
				Health:      handler.NewHealthHandler(a.logger),
				Bridge:      handler.NewBridgeHandler(deps.Bridge, convSvc, a.logger),
				Conversions: handler.NewConversionsHandler(convSvc, a.logger),
			},
			hub,
			deps.RateLimiter,
			a.logger,
		)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		archiver := pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			return archiver.RunEvery(ctx, a.cfg.Archive.Interval.Duration)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ProbeMode runs the operational check once, prints the diagnostics as JSON,
// and exits non-zero when the bridge is degraded.
func (a *App) ProbeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "running operational probe")

	diag := deps.Bridge.Diagnostics(ctx)

	out, err := json.MarshalIndent(diag, "", "  ")
	if err != nil {
		return fmt.Errorf("app: encode diagnostics: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if !diag.Operational {
		return errors.New("app: bridge is not operational")
	}
	return nil
}

// EstimateMode prices a single conversion read-only and prints the estimate
// as JSON. The target comes from command-line flags, not the config file.
func (a *App) EstimateMode(ctx context.Context, deps *Dependencies) error {
	if a.estimate.Token == (common.Address{}) || a.estimate.Amount == nil || a.estimate.Amount.Sign() <= 0 {
		return errors.New("app: estimate mode requires a token address and a positive amount")
	}

	a.logger.InfoContext(ctx, "running estimate",
		slog.String("token", a.estimate.Token.Hex()),
		slog.String("amount", a.estimate.Amount.String()),
	)

	est := deps.Bridge.Estimate(ctx, a.estimate.Token, a.estimate.Amount, a.estimate.FeeTier)

	out, err := json.MarshalIndent(est, "", "  ")
	if err != nil {
		return fmt.Errorf("app: encode estimate: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if !est.IsValid {
		return fmt.Errorf("app: estimate failed: %s", est.ErrorMessage)
	}
	return nil
}
