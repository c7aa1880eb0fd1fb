package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo   core.JobRepository // Required: job repository
	Queue  core.TaskQueue     // Optional: required by Submit
	Logger *slog.Logger       // Optional: structured logger
}

// JobService creates ingestion jobs and hands them to the task queue.
type JobService struct {
	repo   core.JobRepository
	queue  core.TaskQueue
	logger *slog.Logger
}

// ErrQueueUnavailable is returned by Submit when no task queue is configured.
var ErrQueueUnavailable = errors.New("task queue is not configured")

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		repo:   opts.Repo,
		queue:  opts.Queue,
		logger: logger.With("component", "job_service"),
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Create validates the request and persists a PENDING job.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	job, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.logger.DebugContext(ctx, "job created", "job_id", job.ID, "source_type", job.SourceType)
	return job, nil
}

// Submit creates the job and enqueues it for a worker. When the enqueue fails the
// job stays PENDING and the error is returned.
func (s *JobService) Submit(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	job, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	task, err := s.queue.Enqueue(ctx, job.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue job", "job_id", job.ID, "error", err)
		return job, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	if err := s.repo.SetExternalTaskID(ctx, job.ID, task.ID); err != nil {
		// The task is already queued; the missing task id only affects traceability.
		s.logger.WarnContext(ctx, "failed to record task id", "job_id", job.ID, "task_id", task.ID, "error", err)
	} else {
		job.ExternalTaskID = &task.ID
	}

	s.logger.InfoContext(ctx, "job submitted",
		"job_id", job.ID,
		"source_type", job.SourceType,
		"task_id", task.ID,
	)
	return job, nil
}

// Get returns a job by id.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs newest first.
func (s *JobService) List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	if opts.CaseID != nil && *opts.CaseID != "" {
		if err := model.ValidateJobID(*opts.CaseID); err != nil {
			return nil, apperrors.ValidationField("case_id", "case_id must be a valid UUID")
		}
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, apperrors.Validation("limit and offset must not be negative")
	}
	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Stats returns the statistics view for one job.
func (s *JobService) Stats(ctx context.Context, id string) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job stats %s: %w", id, err)
	}
	return stats, nil
}
