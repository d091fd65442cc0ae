package core

// scheduler.go runs the background sweep that drops idle sessions.
//
// Sessions live only in memory, so an abandoned browser tab would otherwise
// pin its dataset until restart. The janitor is long-running and stops when
// its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when StartJanitor is given a non-positive interval.
const DefaultSweepInterval = 5 * time.Minute

// StartJanitor sweeps expired sessions every interval until ctx is done.
func (s *Service) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	slog.Info("session janitor started",
		"interval", interval,
		"ttl", s.opts.TTL,
		"max_sessions", s.opts.MaxSessions,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session janitor stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

func (s *Service) runSweep() {
	start := time.Now()
	removed := s.Sweep()
	if removed > 0 {
		slog.Info("expired sessions removed",
			"removed", removed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Debug("session sweep found nothing to remove")
}
