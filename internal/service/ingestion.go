package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/data"
	domainjob "github.com/target/swift-ingestion/internal/domain/job"
	"github.com/target/swift-ingestion/internal/domain/model"
	obserrors "github.com/target/swift-ingestion/internal/observability/errors"
	"github.com/target/swift-ingestion/internal/observability/metrics"
	"github.com/target/swift-ingestion/internal/observability/notify"
	"github.com/target/swift-ingestion/internal/observability/statsd"
	"github.com/target/swift-ingestion/internal/service/failurenotifier"
)

// Stages recorded in error_details.stage.
const (
	StageConfigure = "configure"
	StageConnect   = "connect"
	StageFetch     = "fetch"
	StageFinalize  = "finalize"
)

// FailureMessagePrefix starts every error_message written for a failed run.
const FailureMessagePrefix = "Job execution failed: "

// DefaultFinalizeTimeout bounds the write that records a failed run.
const DefaultFinalizeTimeout = 10 * time.Second

// ConfigResolver produces the connector configuration for a source type.
type ConfigResolver interface {
	Resolve(ctx context.Context, st model.SourceType) (connector.Config, error)
}

// EvidencePersister stores one connector result as evidence.
type EvidencePersister interface {
	Persist(ctx context.Context, job *model.Job, res connector.Result) (*model.Evidence, error)
}

// PersistError is a single item's persistence failure. It is counted, never fatal.
type PersistError struct {
	Index int
	Err   error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist item %d: %v", e.Index, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// IngestionServiceOptions groups dependencies for IngestionService.
type IngestionServiceOptions struct {
	Jobs            core.JobRepository        // Required: job repository
	Registry        *connector.Registry       // Required: connector factories
	Configs         ConfigResolver            // Required: connector configuration
	Evidence        EvidencePersister         // Required: evidence persistence
	Logger          *slog.Logger              // Optional: structured logger
	Metrics         statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	FailureNotifier *failurenotifier.Service  // Optional: failure notification fan-out
	FinalizeTimeout time.Duration             // Optional: default 10s
	Now             func() time.Time          // Optional: clock
}

// IngestionService drives one job through fetch, persist and status update.
type IngestionService struct {
	jobs            core.JobRepository
	registry        *connector.Registry
	configs         ConfigResolver
	evidence        EvidencePersister
	logger          *slog.Logger
	metrics         statsd.Sink
	failureNotifier *failurenotifier.Service
	finalizeTimeout time.Duration
	now             func() time.Time
}

// NewIngestionService constructs a new IngestionService.
func NewIngestionService(opts IngestionServiceOptions) (*IngestionService, error) {
	switch {
	case opts.Jobs == nil:
		return nil, errors.New("JobRepository is required")
	case opts.Registry == nil:
		return nil, errors.New("connector Registry is required")
	case opts.Configs == nil:
		return nil, errors.New("ConfigResolver is required")
	case opts.Evidence == nil:
		return nil, errors.New("EvidencePersister is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.FinalizeTimeout
	if timeout <= 0 {
		timeout = DefaultFinalizeTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &IngestionService{
		jobs:            opts.Jobs,
		registry:        opts.Registry,
		configs:         opts.Configs,
		evidence:        opts.Evidence,
		logger:          logger.With("component", "ingestion_service"),
		metrics:         opts.Metrics,
		failureNotifier: opts.FailureNotifier,
		finalizeTimeout: timeout,
		now:             now,
	}, nil
}

// Outcome describes what Execute did with a job.
type Outcome struct {
	JobID  string
	Status model.JobStatus
	Counts model.JobCounts
	// Skipped is set when the job did not exist or was no longer PENDING.
	Skipped bool
	// Err is the failure recorded on the job, if the run failed.
	Err error
}

// Execute runs the job. Run failures are recorded on the job and reported in
// Outcome.Err; the returned error is reserved for failures to read or write the job itself.
func (s *IngestionService) Execute(ctx context.Context, jobID string) (Outcome, error) {
	out := Outcome{JobID: jobID}
	logger := s.logger.With("job_id", jobID)

	job, err := s.jobs.GetByID(ctx, jobID)
	if errors.Is(err, data.ErrJobNotFound) {
		logger.WarnContext(ctx, "job not found; nothing to execute")
		out.Skipped = true
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("load job %s: %w", jobID, err)
	}
	logger = logger.With("source_type", string(job.SourceType))
	out.Status = job.Status

	started, err := s.jobs.TransitionStatus(ctx, job.ID, model.StatusUpdate{
		From: model.JobStatusPending,
		To:   model.JobStatusRunning,
	})
	if err != nil {
		return out, fmt.Errorf("start job %s: %w", jobID, err)
	}
	if !started {
		logger.InfoContext(ctx, "job is not pending; skipping", "status", job.Status)
		s.emitTransition(job, "pending->running", metrics.ResultNoop, 0, nil)
		out.Skipped = true
		return out, nil
	}
	s.emitTransition(job, "pending->running", metrics.ResultSuccess, 0, nil)
	logger.InfoContext(ctx, "job started")
	startedAt := s.now()

	var tally domainjob.Tally
	stage, runErr := s.run(ctx, logger, job, &tally)
	if runErr == nil {
		finalized, err := s.complete(ctx, logger, job, &tally, startedAt)
		if err == nil {
			out.Status, out.Counts = tally.Final(), tally.Counts()
			// Someone else already closed the job; its status is not ours to report.
			out.Skipped = !finalized
			return out, nil
		}
		stage, runErr = StageFinalize, err
	}

	out.Status, out.Counts, out.Err = model.JobStatusFailed, tally.Counts(), runErr
	if err := s.fail(ctx, logger, job, &tally, stage, runErr, startedAt); err != nil {
		return out, err
	}
	return out, nil
}

// run covers configuration, connector construction and the fetch loop. Per-item
// persistence failures are counted; anything the connector yields as an error ends the run.
func (s *IngestionService) run(ctx context.Context, logger *slog.Logger, job *model.Job, tally *domainjob.Tally) (string, error) {
	cfg, err := s.configs.Resolve(ctx, job.SourceType)
	if err != nil {
		return StageConfigure, err
	}
	params, err := connector.ParamsFromJSON(job.Parameters)
	if err != nil {
		return StageConfigure, err
	}

	conn, err := s.registry.New(job.SourceType, cfg)
	if err != nil {
		if connector.IsConfigurationError(err) {
			return StageConfigure, err
		}
		return StageConnect, err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.WarnContext(ctx, "connector close failed", "error", err)
		}
	}()

	index := 0
	for res, fetchErr := range conn.Fetch(ctx, params) {
		if fetchErr != nil {
			return StageFetch, fetchErr
		}

		if _, err := s.evidence.Persist(ctx, job, res); err != nil {
			// The run itself was cut off: the interrupted item is not tallied and the
			// job ends FAILED with the counters of the items that completed.
			if ctx.Err() != nil {
				return StageFetch, ctx.Err()
			}
			tally.Failed()
			metrics.EmitItem(s.metrics, string(job.SourceType), metrics.OutcomeFailed)
			logger.WarnContext(ctx, "failed to persist item",
				"error", &PersistError{Index: index, Err: err},
				"source_identifier", res.SourceIdentifier,
			)
		} else {
			tally.Stored()
			metrics.EmitItem(s.metrics, string(job.SourceType), metrics.OutcomeStored)
		}
		index++

		if err := s.jobs.UpdateCounts(ctx, job.ID, tally.Counts()); err != nil {
			logger.WarnContext(ctx, "failed to flush job counters", "error", err)
		}
	}
	return "", nil
}

// complete records the final status of a run that finished normally.
// It reports false when the job had already left RUNNING.
func (s *IngestionService) complete(
	ctx context.Context,
	logger *slog.Logger,
	job *model.Job,
	tally *domainjob.Tally,
	startedAt time.Time,
) (bool, error) {
	counts := tally.Counts()
	final := tally.Final()

	ok, err := s.jobs.TransitionStatus(ctx, job.ID, model.StatusUpdate{
		From:   model.JobStatusRunning,
		To:     final,
		Counts: &counts,
	})
	if err != nil {
		return false, fmt.Errorf("finalize job: %w", err)
	}
	duration := s.now().Sub(startedAt)
	transition := "running->" + string(final)
	if !ok {
		logger.WarnContext(ctx, "job left running state before completion; final status not written", "computed_status", final)
		s.emitTransition(job, transition, metrics.ResultNoop, duration, nil)
		return false, nil
	}

	logger.InfoContext(ctx, "job completed",
		"status", final,
		"total", counts.Total,
		"successful", counts.Successful,
		"failed", counts.Failed,
		"duration", duration,
	)
	s.emitTransition(job, transition, metrics.ResultSuccess, duration, nil)

	if final == model.JobStatusFailed {
		s.notify(ctx, job, counts, notify.JobFailurePayload{
			Stage:      StageFetch,
			Error:      fmt.Sprintf("all %d items failed to persist", counts.Failed),
			ErrorClass: "persist_error",
		})
	}
	return true, nil
}

// fail records FAILED with structured detail. The write uses a context detached from
// the job deadline so an expired time limit still lands.
func (s *IngestionService) fail(
	ctx context.Context,
	logger *slog.Logger,
	job *model.Job,
	tally *domainjob.Tally,
	stage string,
	runErr error,
	startedAt time.Time,
) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.finalizeTimeout)
	defer cancel()

	counts := tally.Counts()
	class := obserrors.Classify(runErr)
	msg := FailureMessagePrefix + runErr.Error()
	details := map[string]any{
		"exception":   runErr.Error(),
		"error_class": class,
		"stage":       stage,
	}
	if code := connector.StatusCodeOf(runErr); code > 0 {
		details["status_code"] = code
	}

	ok, err := s.jobs.TransitionStatus(fctx, job.ID, model.StatusUpdate{
		From:         model.JobStatusRunning,
		To:           model.JobStatusFailed,
		Counts:       &counts,
		ErrorMessage: &msg,
		ErrorDetails: details,
	})
	duration := s.now().Sub(startedAt)
	if err != nil {
		logger.ErrorContext(fctx, "failed to record job failure", "error", err, "run_error", runErr)
		s.emitTransition(job, "running->failed", metrics.ResultError, duration, err)
		return fmt.Errorf("record failure for job %s: %w", job.ID, err)
	}
	if !ok {
		logger.WarnContext(fctx, "job left running state before failure was recorded", "run_error", runErr)
		s.emitTransition(job, "running->failed", metrics.ResultNoop, duration, runErr)
		return nil
	}

	logger.ErrorContext(fctx, "job failed",
		"stage", stage,
		"error_class", class,
		"error", runErr,
		"total", counts.Total,
		"successful", counts.Successful,
		"failed", counts.Failed,
	)
	s.emitTransition(job, "running->failed", metrics.ResultError, duration, runErr)
	s.notify(fctx, job, counts, notify.JobFailurePayload{
		Stage:      stage,
		Error:      msg,
		ErrorClass: class,
	})
	return nil
}

func (s *IngestionService) notify(ctx context.Context, job *model.Job, counts model.JobCounts, p notify.JobFailurePayload) {
	if !s.failureNotifier.Enabled() {
		return
	}
	p.JobID = job.ID
	p.SourceType = string(job.SourceType)
	if job.CaseID != nil {
		p.CaseID = *job.CaseID
	}
	p.TotalItems, p.SuccessfulItems, p.FailedItems = counts.Total, counts.Successful, counts.Failed
	p.OccurredAt = s.now().UTC()
	s.failureNotifier.NotifyJobFailure(ctx, p)
}

func (s *IngestionService) emitTransition(job *model.Job, transition, result string, d time.Duration, err error) {
	metrics.EmitJobTransition(s.metrics, metrics.JobMetric{
		SourceType: string(job.SourceType),
		Transition: transition,
		Result:     result,
		Duration:   d,
		Err:        err,
	})
}
