package data

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// RepoConfig holds configuration options shared by the Postgres repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

func (c RepoConfig) withDefaults() RepoConfig {
	if c.TimeProvider == nil {
		c.TimeProvider = RealTimeProvider{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// JobRepo provides database operations for ingestion jobs.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	cfg = cfg.withDefaults()
	return &JobRepo{
		DB:           db,
		timeProvider: cfg.TimeProvider,
		logger:       cfg.Logger.With("component", "job_repo"),
	}
}

const jobColumns = `
  id,
  source_type,
  status,
  parameters,
  case_id,
  created_at,
  started_at,
  completed_at,
  total_items,
  successful_items,
  failed_items,
  error_message,
  error_details,
  metadata,
  external_task_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job                    model.Job
		caseID, errMsg, taskID sql.NullString
		startedAt, completedAt sql.NullTime
		params, details, meta  []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.SourceType,
		&job.Status,
		&params,
		&caseID,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.TotalItems,
		&job.SuccessfulItems,
		&job.FailedItems,
		&errMsg,
		&details,
		&meta,
		&taskID,
	); err != nil {
		return nil, err
	}

	job.Parameters = rawOrEmptyObject(params)
	job.Metadata = rawOrEmptyObject(meta)
	if len(details) > 0 {
		job.ErrorDetails = json.RawMessage(details)
	}
	job.CaseID = nullStringPtr(caseID)
	job.ErrorMessage = nullStringPtr(errMsg)
	job.ExternalTaskID = nullStringPtr(taskID)
	job.StartedAt = nullTimePtr(startedAt)
	job.CompletedAt = nullTimePtr(completedAt)
	job.CreatedAt = job.CreatedAt.UTC()
	return &job, nil
}

func rawOrEmptyObject(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(b)
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func stringOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
