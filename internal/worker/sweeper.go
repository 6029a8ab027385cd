// Package worker runs the recurrence sweep on a schedule.
package worker

import (
	"context"
	"log/slog"
	"time"

	"tally/internal/recurrence"
)

// Sweeper periodically advances recurring templates to the current date.
type Sweeper struct {
	engine   *recurrence.Engine
	interval time.Duration
}

// NewSweeper builds a sweeper that runs every interval.
func NewSweeper(engine *recurrence.Engine, interval time.Duration) *Sweeper {
	return &Sweeper{engine: engine, interval: interval}
}

// RunOnce executes a single sweep and returns how many instances it created.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	return s.engine.Sweep(ctx, time.Now())
}

// Run sweeps immediately, then on every tick until ctx is cancelled. Sweep
// failures are logged; the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) error {
	if count, err := s.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Initial recurrence sweep failed", "error", err)
	} else {
		slog.InfoContext(ctx, "Initial recurrence sweep complete", "instances_created", count)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Recurrence sweeper stopping", "reason", ctx.Err())
			return ctx.Err()
		case now := <-ticker.C:
			count, err := s.engine.Sweep(ctx, now)
			if err != nil {
				slog.ErrorContext(ctx, "Periodic recurrence sweep failed", "error", err)
				continue
			}
			slog.InfoContext(ctx, "Periodic recurrence sweep complete",
				"instances_created", count,
				"next_check", now.Add(s.interval).Format("15:04:05"))
		}
	}
}
