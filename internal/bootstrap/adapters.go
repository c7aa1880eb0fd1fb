package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/swift-ingestion/config"
	"github.com/target/swift-ingestion/internal/adapters/jobrunner"
	"github.com/target/swift-ingestion/internal/adapters/reaper"
	"github.com/target/swift-ingestion/internal/data"
	"github.com/target/swift-ingestion/internal/observability/statsd"
)

// IngestionWorkerConfig contains configuration for the ingestion worker pool.
type IngestionWorkerConfig struct {
	Queue    *data.RedisTaskQueue
	Executor jobrunner.Executor
	Config   config.IngestionConfig
	Metrics  statsd.Sink
	Logger   *slog.Logger
}

// RunIngestionWorker consumes the ingestion queue until ctx is cancelled.
func RunIngestionWorker(ctx context.Context, cfg IngestionWorkerConfig) error {
	if cfg.Queue == nil {
		return errors.New("task queue is required")
	}
	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		Queue:       cfg.Queue,
		Executor:    cfg.Executor,
		Logger:      cfg.Logger,
		Concurrency: cfg.Config.Workers,
		PollTimeout: cfg.Config.PollTimeout,
		JobTimeout:  cfg.Config.Timeout,
		Metrics:     cfg.Metrics,
		Depth:       cfg.Queue,
	})
	if err != nil {
		return fmt.Errorf("create ingestion runner: %w", err)
	}
	if runErr := runner.Run(ctx); runErr != nil {
		return fmt.Errorf("run ingestion runner: %w", runErr)
	}
	return nil
}

// ReaperConfig contains configuration for the reaper service.
type ReaperConfig struct {
	Sweeper reaper.Sweeper
	Config  config.ReaperConfig
	Logger  *slog.Logger
}

// RunReaper starts the stale-job sweep loop.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Sweeper:  cfg.Sweeper,
		Interval: cfg.Config.Interval,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return fmt.Errorf("create reaper: %w", err)
	}
	return runner.Run(ctx)
}
