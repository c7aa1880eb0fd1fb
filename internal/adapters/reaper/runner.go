// Package reaper runs the stale-job sweep on an interval.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

const defaultInterval = time.Minute

// Sweeper fails stale RUNNING jobs in one pass. *service.ReaperService implements it.
type Sweeper interface {
	FailStale(ctx context.Context) ([]string, error)
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Sweeper  Sweeper // Required
	Interval time.Duration
	Logger   *slog.Logger
	// Jitter delays the first sweep by up to Interval/10. Disabled in tests.
	NoJitter bool
}

// Runner calls the sweeper once at start and then on every tick.
type Runner struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
	jitter   bool
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Sweeper == nil {
		return nil, errors.New("sweeper is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Runner{
		sweeper:  opts.Sweeper,
		interval: interval,
		logger:   logger.With("component", "reaper"),
		jitter:   !opts.NoJitter,
	}, nil
}

// Run sweeps until the context is cancelled. Sweep errors are logged and retried next tick.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner", "interval", r.interval)

	// Spread sweeps when several instances start together.
	if r.jitter && !r.waitWithJitter(ctx) {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.sweep(ctx)
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reaper runner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) sweep(ctx context.Context) {
	ids, err := r.sweeper.FailStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "reaper sweep failed", "error", err)
		}
		return
	}
	if len(ids) > 0 {
		r.logger.InfoContext(ctx, "reaper sweep failed stale jobs", "count", len(ids))
	}
}

func (r *Runner) waitWithJitter(ctx context.Context) bool {
	maxJitter := int64(r.interval / 10)
	if maxJitter <= 0 {
		return true
	}
	t := time.NewTimer(time.Duration(rand.Int64N(maxJitter)))
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
