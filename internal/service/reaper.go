package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/swift-ingestion/internal/core"
	obserrors "github.com/target/swift-ingestion/internal/observability/errors"
	"github.com/target/swift-ingestion/internal/observability/metrics"
	"github.com/target/swift-ingestion/internal/observability/notify"
	"github.com/target/swift-ingestion/internal/observability/statsd"
	"github.com/target/swift-ingestion/internal/service/failurenotifier"
)

// StageReaper marks failures written by the stale-job sweep.
const StageReaper = "reaper"

// TimeLimitMessage is the error_message of a job failed by the sweep.
const TimeLimitMessage = FailureMessagePrefix + "exceeded time limit"

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo core.JobRepository // Required: job repository
	// TimeLimit is the per-job execution limit enforced by workers.
	TimeLimit time.Duration
	// Grace is added to TimeLimit before a RUNNING job counts as stale.
	Grace           time.Duration
	BatchSize       int
	Logger          *slog.Logger             // Optional: structured logger
	Metrics         statsd.Sink              // Optional: metrics sink (StatsD-compatible)
	FailureNotifier *failurenotifier.Service // Optional: failure notification fan-out
	Now             func() time.Time
}

// ReaperService fails RUNNING jobs whose worker is gone or overran the time limit.
type ReaperService struct {
	repo            core.JobRepository
	timeLimit       time.Duration
	grace           time.Duration
	batchSize       int
	logger          *slog.Logger
	metrics         statsd.Sink
	failureNotifier *failurenotifier.Service
	now             func() time.Time
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.TimeLimit <= 0 {
		return nil, errors.New("time limit must be positive")
	}
	if opts.Grace < 0 {
		return nil, errors.New("grace must not be negative")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ReaperService{
		repo:            opts.Repo,
		timeLimit:       opts.TimeLimit,
		grace:           opts.Grace,
		batchSize:       opts.BatchSize,
		logger:          logger.With("component", "reaper_service"),
		metrics:         opts.Metrics,
		failureNotifier: opts.FailureNotifier,
		now:             now,
	}, nil
}

// Cutoff returns the started_at bound before which a RUNNING job is stale.
func (s *ReaperService) Cutoff() time.Time {
	return s.now().Add(-(s.timeLimit + s.grace))
}

// FailStale marks stale RUNNING jobs FAILED, batch by batch, and returns their ids.
func (s *ReaperService) FailStale(ctx context.Context) ([]string, error) {
	cutoff := s.Cutoff()
	var failed []string
	for {
		ids, err := s.repo.FailStale(ctx, core.FailStaleParams{
			StartedBefore: cutoff,
			ErrorMessage:  TimeLimitMessage,
			BatchSize:     s.batchSize,
		})
		if err != nil {
			s.emit(len(failed), err)
			return failed, fmt.Errorf("fail stale jobs: %w", err)
		}
		failed = append(failed, ids...)
		if len(ids) == 0 || (s.batchSize > 0 && len(ids) < s.batchSize) {
			break
		}
		if ctx.Err() != nil {
			s.emit(len(failed), ctx.Err())
			return failed, ctx.Err()
		}
	}

	s.emit(len(failed), nil)
	if len(failed) == 0 {
		return nil, nil
	}
	s.logger.WarnContext(ctx, "failed stale running jobs", "count", len(failed), "cutoff", cutoff)
	s.notify(ctx, failed)
	return failed, nil
}

func (s *ReaperService) notify(ctx context.Context, ids []string) {
	if !s.failureNotifier.Enabled() {
		return
	}
	at := s.now().UTC()
	for _, id := range ids {
		job, err := s.repo.GetByID(ctx, id)
		payload := notify.JobFailurePayload{
			JobID:      id,
			Stage:      StageReaper,
			Error:      TimeLimitMessage,
			ErrorClass: obserrors.ClassTimeout,
			OccurredAt: at,
		}
		if err != nil {
			s.logger.WarnContext(ctx, "reaped job could not be reloaded for notification", "job_id", id, "error", err)
		} else {
			payload.SourceType = string(job.SourceType)
			if job.CaseID != nil {
				payload.CaseID = *job.CaseID
			}
			payload.TotalItems = job.TotalItems
			payload.SuccessfulItems = job.SuccessfulItems
			payload.FailedItems = job.FailedItems
		}
		s.failureNotifier.NotifyJobFailure(ctx, payload)
	}
}

func (s *ReaperService) emit(n int, err error) {
	if s.metrics == nil {
		return
	}
	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case n == 0:
		result = metrics.ResultNoop
	}
	tags := map[string]string{"result": result}
	if err != nil {
		tags["error_class"] = obserrors.Classify(err)
	}
	s.metrics.Count("reaper.sweep", 1, tags)
	metrics.EmitReaped(s.metrics, n)
}
