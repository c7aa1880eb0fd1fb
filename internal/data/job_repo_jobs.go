package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	domainjob "github.com/target/swift-ingestion/internal/domain/job"
	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
)

// Create inserts a new PENDING job.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	meta := req.Metadata
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO ingestion_jobs (id, source_type, status, parameters, case_id, created_at, metadata)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7::jsonb)
		RETURNING ` + jobColumns

	row := r.DB.QueryRowContext(ctx, query,
		uuid.NewString(),
		string(req.SourceType),
		string(model.JobStatusPending),
		string(req.Parameters),
		stringOrNil(req.CaseID),
		r.timeProvider.Now().UTC(),
		string(meta),
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// GetByID returns the job or ErrJobNotFound.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if model.ValidateJobID(id) != nil {
		return nil, ErrJobNotFound
	}

	query := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id = $1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

type setClause struct {
	parts []string
	args  []any
}

func (s *setClause) add(expr string, value any) {
	s.args = append(s.args, value)
	s.parts = append(s.parts, fmt.Sprintf(expr, len(s.args)))
}

// TransitionStatus moves a job from upd.From to upd.To when the stored status still equals upd.From.
// Entering RUNNING stamps started_at if unset; entering a terminal status stamps completed_at.
func (r *JobRepo) TransitionStatus(ctx context.Context, id string, upd model.StatusUpdate) (bool, error) {
	if err := domainjob.ValidateTransition(upd.From, upd.To); err != nil {
		return false, err
	}
	now := r.timeProvider.Now().UTC()

	set := &setClause{args: []any{id, string(upd.From)}}
	set.add("status = $%d", string(upd.To))
	if upd.To == model.JobStatusRunning {
		set.add("started_at = COALESCE(started_at, $%d)", now)
	}
	if upd.To.Terminal() {
		set.add("completed_at = $%d", now)
	}
	if c := upd.Counts; c != nil {
		set.add("total_items = $%d", c.Total)
		set.add("successful_items = $%d", c.Successful)
		set.add("failed_items = $%d", c.Failed)
	}
	if upd.ErrorMessage != nil {
		set.add("error_message = $%d", *upd.ErrorMessage)
	}
	if upd.ErrorDetails != nil {
		details, err := json.Marshal(upd.ErrorDetails)
		if err != nil {
			return false, fmt.Errorf("encode error details: %w", err)
		}
		set.add("error_details = $%d::jsonb", string(details))
	}

	query := `UPDATE ingestion_jobs SET ` + strings.Join(set.parts, ", ") + ` WHERE id = $1 AND status = $2`
	res, err := r.DB.ExecContext(ctx, query, set.args...)
	if err != nil {
		return false, fmt.Errorf("transition job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		r.logger.DebugContext(ctx, "job status transition skipped",
			"job_id", id,
			"from", upd.From,
			"to", upd.To,
		)
	}
	return n > 0, nil
}

// UpdateCounts writes the running counters of a job.
func (r *JobRepo) UpdateCounts(ctx context.Context, id string, counts model.JobCounts) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE ingestion_jobs
		SET total_items = $2,
		    successful_items = $3,
		    failed_items = $4
		WHERE id = $1
	`, id, counts.Total, counts.Successful, counts.Failed)
	if err != nil {
		return fmt.Errorf("update job counts: %w", err)
	}
	return requireOneRow(res, ErrJobNotFound)
}

// SetExternalTaskID records the task-queue reference for a job.
func (r *JobRepo) SetExternalTaskID(ctx context.Context, id, taskID string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE ingestion_jobs SET external_task_id = $2 WHERE id = $1`, id, taskID)
	if err != nil {
		return fmt.Errorf("set external task id: %w", err)
	}
	return requireOneRow(res, ErrJobNotFound)
}

func requireOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
