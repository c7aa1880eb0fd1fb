package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/swift-ingestion/internal/domain/model"
)

const (
	defaultJobListLimit = 100
	maxJobListLimit     = 1000
)

type jobFilterQueryBuilder struct {
	query  string
	args   []any
	argIdx int
}

func (b *jobFilterQueryBuilder) addFilter(condition string, value any) {
	if value != nil {
		b.query += fmt.Sprintf(" AND %s = $%d", condition, b.argIdx)
		b.args = append(b.args, value)
		b.argIdx++
	}
}

func buildJobListQuery(opts model.JobListOptions) (string, []any) {
	builder := &jobFilterQueryBuilder{
		query:  `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE 1=1`,
		args:   []any{},
		argIdx: 1,
	}

	if opts.Status != nil && *opts.Status != "" {
		builder.addFilter("status", string(*opts.Status))
	}
	if opts.SourceType != nil && *opts.SourceType != "" {
		builder.addFilter("source_type", string(*opts.SourceType))
	}
	if opts.CaseID != nil && *opts.CaseID != "" {
		builder.addFilter("case_id", *opts.CaseID)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	if limit > maxJobListLimit {
		limit = maxJobListLimit
	}
	builder.query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		builder.argIdx, builder.argIdx+1)
	builder.args = append(builder.args, limit, max(opts.Offset, 0))
	return builder.query, builder.args
}

// List returns jobs matching the filters, newest first.
func (r *JobRepo) List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	query, args := buildJobListQuery(opts)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := make([]*model.Job, 0)
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// Stats returns the status, duration, counters and evidence size aggregates of one job.
func (r *JobRepo) Stats(ctx context.Context, id string) (*model.JobStats, error) {
	if model.ValidateJobID(id) != nil {
		return nil, ErrJobNotFound
	}

	const query = `
		SELECT
			j.id,
			j.status,
			j.started_at,
			j.completed_at,
			j.total_items,
			j.successful_items,
			j.failed_items,
			AVG(e.file_size_bytes)::float8,
			COALESCE(SUM(e.file_size_bytes), 0)::bigint
		FROM ingestion_jobs j
		LEFT JOIN evidence_documents e ON e.job_id = j.id
		WHERE j.id = $1
		GROUP BY j.id`

	var (
		stats                  model.JobStats
		startedAt, completedAt sql.NullTime
		avgSize                sql.NullFloat64
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&stats.JobID,
		&stats.Status,
		&startedAt,
		&completedAt,
		&stats.TotalItems,
		&stats.SuccessfulItems,
		&stats.FailedItems,
		&avgSize,
		&stats.TotalSizeBytes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("query job stats: %w", err)
	}

	stats.DurationSeconds = model.Duration(nullTimePtr(startedAt), nullTimePtr(completedAt))
	if avgSize.Valid {
		v := avgSize.Float64
		stats.AvgItemSizeBytes = &v
	}
	return &stats, nil
}
