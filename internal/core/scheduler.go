package core

// scheduler.go provides background maintenance for the workspace.
//
// Sessions live only in memory, so without a sweep every browser that ever
// visited would keep its dataset forever. The sweeper runs on a ticker and
// drops sessions idle for longer than the configured timeout. It is
// long-running and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig holds configuration for the session sweeper.
type SweepConfig struct {
	IdleTimeout time.Duration // Sessions unused this long are dropped (default: 12h)
	Interval    time.Duration // How often to sweep (default: 10m)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 12 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Minute
	}
	return c
}

// StartSweeper periodically expires idle sessions until ctx is cancelled.
func (w *Workspace) StartSweeper(ctx context.Context, cfg SweepConfig) {
	cfg = cfg.withDefaults()

	slog.Info("session sweeper started",
		"idle_timeout", cfg.IdleTimeout.String(),
		"interval", cfg.Interval.String(),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			w.runSweep(cfg)
		}
	}
}

// runSweep performs one expiry pass.
func (w *Workspace) runSweep(cfg SweepConfig) {
	start := time.Now()
	removed := w.Expire(cfg.IdleTimeout)
	if removed == 0 {
		slog.Debug("session sweep found nothing to expire", "sessions_live", w.Len())
		return
	}
	slog.Info("expired idle sessions",
		"sessions_removed", removed,
		"sessions_live", w.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
