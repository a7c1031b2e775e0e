package core

// janitor.go runs periodic housekeeping:
//  1. Drop grid sessions nobody touched within the idle TTL
//  2. Drop expired staff sessions
//  3. Purge audit entries older than the retention window
//
// A failing step is logged and the next step still runs. The janitor never
// stops the application.

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper removes expired login sessions.
type SessionSweeper interface {
	Sweep() int
}

type auditPurger interface {
	Purge(ctx context.Context, retentionDays int) (int64, error)
}

// JanitorConfig configures StartJanitor.
type JanitorConfig struct {
	Interval      time.Duration // How often to run (default: 10m)
	RetentionDays int           // Audit entries older than this are purged; 0 keeps everything
	Sessions      SessionSweeper
}

// StartJanitor runs one cleanup pass immediately and then every Interval
// until ctx is cancelled.
func (s *Service) StartJanitor(ctx context.Context, cfg JanitorConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	slog.Info("janitor started",
		"interval", cfg.Interval.String(),
		"audit_retention_days", cfg.RetentionDays,
		"grid_idle_ttl", s.settings.IdleTTL.String(),
	)

	s.runJanitor(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return
		case <-ticker.C:
			s.runJanitor(ctx, cfg)
		}
	}
}

func (s *Service) runJanitor(ctx context.Context, cfg JanitorConfig) {
	start := time.Now()

	grids := s.ExpireIdleGrids()
	janitorRemovedTotal.WithLabelValues("grids").Add(float64(grids))

	sessions := 0
	if cfg.Sessions != nil {
		sessions = cfg.Sessions.Sweep()
		janitorRemovedTotal.WithLabelValues("sessions").Add(float64(sessions))
	}

	var purged int64
	if p, ok := s.audit.(auditPurger); ok && cfg.RetentionDays > 0 {
		n, err := p.Purge(ctx, cfg.RetentionDays)
		if err != nil {
			slog.Error("audit purge failed", "error", err)
		} else {
			purged = n
			janitorRemovedTotal.WithLabelValues("audit_entries").Add(float64(n))
		}
	}

	slog.Info("janitor pass completed",
		"grids_expired", grids,
		"sessions_expired", sessions,
		"audit_entries_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
