package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/data/pgxutil"
)

// Advisory lock keys for reaper operations, two-arg pg_try_advisory_xact_lock(major, minor).
const (
	advisoryLockReaperMajor     = 2000
	advisoryLockReaperFailStale = 1
)

const defaultReaperBatchSize = 100

// FailStale marks RUNNING jobs started before params.StartedBefore as FAILED.
// Only one reaper instance runs at a time; the others return no ids.
func (r *JobRepo) FailStale(ctx context.Context, params core.FailStaleParams) ([]string, error) {
	if params.StartedBefore.IsZero() {
		return nil, errors.New("started-before cutoff is required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReaperBatchSize
	}

	var ids []string
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockReaperMajor, advisoryLockReaperFailStale).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			rows, err := tx.QueryContext(ctx, `
				UPDATE ingestion_jobs
				SET status = 'failed',
				    completed_at = $1,
				    error_message = $2,
				    error_details = jsonb_build_object('exception', $2::text, 'error_class', 'timeout', 'stage', 'reaper')
				WHERE id IN (
					SELECT id FROM ingestion_jobs
					WHERE status = 'running'
					  AND started_at < $3
					ORDER BY started_at
					LIMIT $4
					FOR UPDATE SKIP LOCKED
				)
				RETURNING id
			`, r.timeProvider.Now().UTC(), params.ErrorMessage, params.StartedBefore.UTC(), batch)
			if err != nil {
				return fmt.Errorf("fail stale jobs: %w", err)
			}
			defer func() { _ = rows.Close() }()

			for rows.Next() {
				var id string
				if scanErr := rows.Scan(&id); scanErr != nil {
					return fmt.Errorf("scan stale job id: %w", scanErr)
				}
				ids = append(ids, id)
			}
			return rows.Err()
		},
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
