package data

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/core"
	domainjob "github.com/target/swift-ingestion/internal/domain/job"
	"github.com/target/swift-ingestion/internal/domain/model"
)

const testJobID = "5f0c6b8e-3c1a-4f6e-9a51-0d2a9d1f7b11"

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newTestJobRepo(t *testing.T) (*JobRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewJobRepo(db, RepoConfig{TimeProvider: NewFixedTimeProvider(fixedNow)}), mock
}

var jobRowColumns = []string{
	"id", "source_type", "status", "parameters", "case_id", "created_at", "started_at", "completed_at",
	"total_items", "successful_items", "failed_items", "error_message", "error_details", "metadata",
	"external_task_id",
}

func pendingJobRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows(jobRowColumns).AddRow(
		id, "news_api", "pending", []byte(`{"query":"acme"}`), nil, fixedNow, nil, nil,
		0, 0, 0, nil, nil, []byte(`{}`), nil,
	)
}

func TestJobRepo_Create(t *testing.T) {
	repo, mock := newTestJobRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ingestion_jobs")).
		WithArgs(sqlmock.AnyArg(), "news_api", "pending", `{"query":"acme"}`, nil, fixedNow, `{}`).
		WillReturnRows(pendingJobRow(testJobID))

	job, err := repo.Create(context.Background(), &model.CreateJobRequest{
		SourceType: model.SourceTypeNewsAPI,
		Parameters: []byte(`{"query":"acme"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, testJobID, job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.JSONEq(t, `{"query":"acme"}`, string(job.Parameters))
	assert.Nil(t, job.CaseID)
	assert.Nil(t, job.StartedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_Create_RejectsInvalidRequest(t *testing.T) {
	repo, mock := newTestJobRepo(t)
	_, err := repo.Create(context.Background(), &model.CreateJobRequest{
		SourceType: "carrier_pigeon",
		Parameters: []byte(`{}`),
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		started := fixedNow.Add(time.Minute)
		mock.ExpectQuery(regexp.QuoteMeta("FROM ingestion_jobs WHERE id = $1")).
			WithArgs(testJobID).
			WillReturnRows(sqlmock.NewRows(jobRowColumns).AddRow(
				testJobID, "opencorporates", "running", `{"company_name":"Acme"}`, "c0a8012e-0000-4000-8000-000000000001",
				fixedNow, started, nil, 2, 1, 1, nil, nil, `{"requested_by":"ops"}`, "task-1",
			))

		job, err := repo.GetByID(context.Background(), testJobID)
		require.NoError(t, err)
		assert.Equal(t, model.SourceTypeOpenCorporates, job.SourceType)
		require.NotNil(t, job.StartedAt)
		assert.Equal(t, started, *job.StartedAt)
		require.NotNil(t, job.CaseID)
		require.NotNil(t, job.ExternalTaskID)
		assert.Equal(t, "task-1", *job.ExternalTaskID)
		assert.Equal(t, model.JobCounts{Total: 2, Successful: 1, Failed: 1}, job.Counts())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM ingestion_jobs WHERE id = $1")).
			WithArgs(testJobID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), testJobID)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("malformed id never reaches the database", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		_, err := repo.GetByID(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, ErrJobNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJobRepo_TransitionStatus(t *testing.T) {
	t.Run("pending to running stamps started_at", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(
			"UPDATE ingestion_jobs SET status = $3, started_at = COALESCE(started_at, $4) WHERE id = $1 AND status = $2",
		)).
			WithArgs(testJobID, "pending", "running", fixedNow).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.TransitionStatus(context.Background(), testJobID, model.StatusUpdate{
			From: model.JobStatusPending,
			To:   model.JobStatusRunning,
		})
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal with counts and error detail", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		msg := "Job execution failed: boom"
		mock.ExpectExec(regexp.QuoteMeta(
			"UPDATE ingestion_jobs SET status = $3, completed_at = $4, total_items = $5, successful_items = $6, " +
				"failed_items = $7, error_message = $8, error_details = $9::jsonb WHERE id = $1 AND status = $2",
		)).
			WithArgs(testJobID, "running", "failed", fixedNow, 1, 0, 1, msg, `{"exception":"boom"}`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.TransitionStatus(context.Background(), testJobID, model.StatusUpdate{
			From:         model.JobStatusRunning,
			To:           model.JobStatusFailed,
			Counts:       &model.JobCounts{Total: 1, Failed: 1},
			ErrorMessage: &msg,
			ErrorDetails: map[string]any{"exception": "boom"},
		})
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status changed underneath reports false", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectExec("UPDATE ingestion_jobs").WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.TransitionStatus(context.Background(), testJobID, model.StatusUpdate{
			From: model.JobStatusPending,
			To:   model.JobStatusRunning,
		})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("undefined edge is rejected before sql", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		_, err := repo.TransitionStatus(context.Background(), testJobID, model.StatusUpdate{
			From: model.JobStatusSuccess,
			To:   model.JobStatusRunning,
		})
		var te *domainjob.TransitionError
		require.ErrorAs(t, err, &te)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestJobRepo_UpdateCounts(t *testing.T) {
	repo, mock := newTestJobRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ingestion_jobs")).
		WithArgs(testJobID, 3, 2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateCounts(context.Background(), testJobID, model.JobCounts{Total: 3, Successful: 2, Failed: 1}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE ingestion_jobs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateCounts(context.Background(), testJobID, model.JobCounts{})
	assert.ErrorIs(t, err, ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildJobListQuery(t *testing.T) {
	status := model.JobStatusFailed
	source := model.SourceTypeOSINTSearch

	query, args := buildJobListQuery(model.JobListOptions{Status: &status, SourceType: &source, Limit: 5000, Offset: -3})
	assert.Contains(t, query, "AND status = $1 AND source_type = $2")
	assert.Contains(t, query, "ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{"failed", "osint_search", maxJobListLimit, 0}, args)

	query, args = buildJobListQuery(model.JobListOptions{})
	assert.NotContains(t, query, "AND ")
	assert.Equal(t, []any{defaultJobListLimit, 0}, args)
}

func TestJobRepo_List(t *testing.T) {
	repo, mock := newTestJobRepo(t)
	caseID := "c0a8012e-0000-4000-8000-000000000001"
	mock.ExpectQuery(regexp.QuoteMeta("AND case_id = $1")).
		WithArgs(caseID, 10, 20).
		WillReturnRows(pendingJobRow(testJobID))

	jobs, err := repo.List(context.Background(), model.JobListOptions{CaseID: &caseID, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, testJobID, jobs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepo_Stats(t *testing.T) {
	cols := []string{"id", "status", "started_at", "completed_at", "total_items", "successful_items", "failed_items", "avg", "sum"}

	t.Run("with evidence", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN evidence_documents")).
			WithArgs(testJobID).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(
				testJobID, "partial", fixedNow, fixedNow.Add(90*time.Second), 3, 2, 1, 150.5, int64(301),
			))

		stats, err := repo.Stats(context.Background(), testJobID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPartial, stats.Status)
		require.NotNil(t, stats.DurationSeconds)
		assert.InDelta(t, 90.0, *stats.DurationSeconds, 0.001)
		require.NotNil(t, stats.AvgItemSizeBytes)
		assert.InDelta(t, 150.5, *stats.AvgItemSizeBytes, 0.001)
		assert.EqualValues(t, 301, stats.TotalSizeBytes)
	})

	t.Run("no evidence and never started", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN evidence_documents")).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(testJobID, "pending", nil, nil, 0, 0, 0, nil, int64(0)))

		stats, err := repo.Stats(context.Background(), testJobID)
		require.NoError(t, err)
		assert.Nil(t, stats.DurationSeconds)
		assert.Nil(t, stats.AvgItemSizeBytes)
		assert.Zero(t, stats.TotalSizeBytes)
	})

	t.Run("missing job", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN evidence_documents")).WillReturnError(sql.ErrNoRows)
		_, err := repo.Stats(context.Background(), testJobID)
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_FailStale(t *testing.T) {
	cutoff := fixedNow.Add(-10 * time.Minute)

	t.Run("lock held elsewhere", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("pg_try_advisory_xact_lock")).
			WithArgs(advisoryLockReaperMajor, advisoryLockReaperFailStale).
			WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(false))
		mock.ExpectCommit()

		ids, err := repo.FailStale(context.Background(), core.FailStaleParams{StartedBefore: cutoff})
		require.NoError(t, err)
		assert.Empty(t, ids)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("marks stale jobs", func(t *testing.T) {
		repo, mock := newTestJobRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("pg_try_advisory_xact_lock")).
			WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(true))
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE ingestion_jobs")).
			WithArgs(fixedNow, "Job execution failed: exceeded time limit", cutoff, defaultReaperBatchSize).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))
		mock.ExpectCommit()

		ids, err := repo.FailStale(context.Background(), core.FailStaleParams{
			StartedBefore: cutoff,
			ErrorMessage:  "Job execution failed: exceeded time limit",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("requires cutoff", func(t *testing.T) {
		repo, _ := newTestJobRepo(t)
		_, err := repo.FailStale(context.Background(), core.FailStaleParams{})
		assert.Error(t, err)
	})
}
