// Package pipeline hosts the background jobs that run alongside the bridge.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Olisehgenesis/sovereign-seas-sub012/internal/domain"
)

// Archiver periodically moves aged conversion records from the database to
// blob cold storage.
type Archiver struct {
	blobArchiver  domain.Archiver
	retentionDays int
	logger        *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(blobArchiver domain.Archiver, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		blobArchiver:  blobArchiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archiver")),
	}
}

// Run executes a single archive pass over settled conversions older than the
// retention window.
func (a *Archiver) Run(ctx context.Context) error {
	a.logger.Info("starting archive run", slog.Int("retention_days", a.retentionDays))

	archived, err := a.blobArchiver.ArchiveConversions(ctx, a.retentionDays)
	if err != nil {
		return fmt.Errorf("archiving conversions: %w", err)
	}

	a.logger.Info("archive run complete", slog.Int("conversions_archived", archived))
	return nil
}

// RunEvery runs the archiver once immediately and then on the given interval
// until the context is cancelled. A failed pass is logged and retried on the
// next tick.
func (a *Archiver) RunEvery(ctx context.Context, interval time.Duration) error {
	a.logger.Info("archiver started", slog.Duration("interval", interval))

	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("archive run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
