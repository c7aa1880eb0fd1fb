package core

import (
	"context"
	"time"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// Repository and queue ports. Services depend on these; internal/data provides the implementations.

// JobRepository defines the interface for ingestion job data operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// TransitionStatus applies upd only when the stored status equals upd.From.
	// It reports whether a row was changed.
	TransitionStatus(ctx context.Context, id string, upd model.StatusUpdate) (bool, error)
	UpdateCounts(ctx context.Context, id string, counts model.JobCounts) error
	SetExternalTaskID(ctx context.Context, id, taskID string) error
	List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error)
	Stats(ctx context.Context, id string) (*model.JobStats, error)
	// FailStale marks RUNNING jobs started before cutoff as FAILED and returns their ids.
	FailStale(ctx context.Context, params FailStaleParams) ([]string, error)
}

// FailStaleParams groups parameters for JobRepository.FailStale.
type FailStaleParams struct {
	StartedBefore time.Time
	ErrorMessage  string
	BatchSize     int
}

// EvidenceRepository defines the interface for evidence metadata operations.
type EvidenceRepository interface {
	Create(ctx context.Context, ev *model.Evidence) error
	GetByID(ctx context.Context, id string) (*model.Evidence, error)
	ListByJob(ctx context.Context, opts model.EvidenceListOptions) ([]*model.Evidence, error)
	// FindByChecksum returns the oldest evidence with the checksum, or ErrEvidenceNotFound.
	FindByChecksum(ctx context.Context, checksum string) (*model.Evidence, error)
}

// ConnectorConfigRepository defines the interface for persisted connector policy.
type ConnectorConfigRepository interface {
	GetBySourceType(ctx context.Context, sourceType model.SourceType) (*model.ConnectorConfig, error)
	Upsert(ctx context.Context, req *model.UpsertConnectorConfigRequest) (*model.ConnectorConfig, error)
	List(ctx context.Context) ([]*model.ConnectorConfig, error)
}

// Task is one queued request to execute a job.
type Task struct {
	ID         string    `json:"task_id"`
	JobID      string    `json:"job_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	// Payload is the encoded form as delivered, used to acknowledge the exact entry.
	Payload string `json:"-"`
}

// TaskQueue hands job ids to ingestion workers.
type TaskQueue interface {
	Enqueue(ctx context.Context, jobID string) (*Task, error)
	// Dequeue blocks up to timeout. A nil task with nil error means nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
	// Ack removes a delivered task from the in-flight list.
	Ack(ctx context.Context, task *Task) error
	// RequeueInFlight moves unacknowledged tasks back onto the queue and returns how many moved.
	RequeueInFlight(ctx context.Context) (int, error)
}
