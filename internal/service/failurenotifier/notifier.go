// Package failurenotifier fans ingestion job failures out to the configured notification sinks.
package failurenotifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/observability/notify"
)

const (
	dedupeKeyPrefix = "swift:notify:job-failure:"
	// DefaultDedupeTTL bounds how long a job id is remembered as already notified.
	DefaultDedupeTTL = 24 * time.Hour
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the failure notifier service.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// Dedupe, when set, suppresses a second notification for the same job id,
	// e.g. a worker failure followed by a reaper sweep.
	Dedupe    core.CacheRepository
	DedupeTTL time.Duration
}

// Service dispatches failure events to all registered sinks.
type Service struct {
	logger    *slog.Logger
	sinks     []SinkRegistration
	dedupe    core.CacheRepository
	dedupeTTL time.Duration
}

// NewService constructs a failure notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	ttl := opts.DedupeTTL
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}

	return &Service{
		logger:    logger.With("component", "failure_notifier"),
		sinks:     sinks,
		dedupe:    opts.Dedupe,
		dedupeTTL: ttl,
	}
}

// NotifyJobFailure fans the payload out to all sinks and waits for them.
// Sink errors are logged, never returned.
func (s *Service) NotifyJobFailure(ctx context.Context, payload notify.JobFailurePayload) {
	if s == nil || len(s.sinks) == 0 {
		return
	}
	if !s.firstNotification(ctx, payload.JobID) {
		s.logger.DebugContext(ctx, "skipping duplicate failure notification", "job_id", payload.JobID)
		return
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendJobFailure(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "failure notifier delivery error",
					"sink", entry.Name,
					"job_id", payload.JobID,
					"source_type", payload.SourceType,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// firstNotification claims the job id in the dedupe cache. Cache errors fail open.
func (s *Service) firstNotification(ctx context.Context, jobID string) bool {
	if s.dedupe == nil || jobID == "" {
		return true
	}
	claimed, err := s.dedupe.SetIfNotExists(ctx, dedupeKeyPrefix+jobID, []byte("1"), s.dedupeTTL)
	if err != nil {
		s.logger.WarnContext(ctx, "failure notification dedupe unavailable", "job_id", jobID, "error", err)
		return true
	}
	return claimed
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
