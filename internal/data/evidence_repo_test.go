package data

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
)

const (
	testEvidenceID = "9d3b1c52-7a43-4bd5-8f5e-2c4a1e0f9a01"
	testChecksum   = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
)

var evidenceRowColumns = []string{
	"id", "job_id", "source_type", "source_url", "source_identifier", "object_key", "checksum",
	"file_size_bytes", "content_type", "evidence_type", "ingested_at", "source_timestamp", "metadata",
	"processing_status", "extraction_version",
}

func evidenceRow(id string) []driver.Value {
	return []driver.Value{
		id, testJobID, "news_api", "https://example.com/a", "https://example.com/a",
		"evidence/news_api/2024/03/10/" + testJobID + "/" + id + ".json", testChecksum,
		int64(3), "application/json", "news_article", fixedNow, nil, []byte(`{"title":"A"}`), "raw", nil,
	}
}

func TestEvidenceRepo_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEvidenceRepo(db, RepoConfig{TimeProvider: NewFixedTimeProvider(fixedNow)})

	url := "https://example.com/a"
	ev := &model.Evidence{
		ID:            testEvidenceID,
		JobID:         testJobID,
		SourceType:    model.SourceTypeNewsAPI,
		SourceURL:     &url,
		ObjectKey:     "evidence/news_api/2024/03/10/" + testJobID + "/" + testEvidenceID + ".json",
		Checksum:      testChecksum,
		FileSizeBytes: 3,
		ContentType:   "application/json",
		EvidenceType:  model.EvidenceTypeNewsArticle,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evidence_documents")).
		WithArgs(
			testEvidenceID, testJobID, "news_api", url, nil, ev.ObjectKey, testChecksum, int64(3),
			"application/json", "news_article", fixedNow, nil, `{}`, "raw", nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), ev))
	assert.Equal(t, fixedNow, ev.IngestedAt)
	assert.Equal(t, model.ProcessingStatusRaw, ev.ProcessingStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepo_Create_MapsConstraintErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *pgconn.PgError
		code apperrors.ErrorCode
	}{
		{
			name: "duplicate object key",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (object_key)=(x) already exists."},
			code: apperrors.ErrCodeConflict,
		},
		{
			name: "unknown job",
			err: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (job_id)=(x) is not present in table "ingestion_jobs".`,
			},
			code: apperrors.ErrCodeForeignKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewEvidenceRepo(db, RepoConfig{})
			mock.ExpectExec("INSERT INTO evidence_documents").WillReturnError(tt.err)

			err := repo.Create(context.Background(), &model.Evidence{ID: testEvidenceID, JobID: testJobID})
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestEvidenceRepo_Create_RequiresJob(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewEvidenceRepo(db, RepoConfig{})
	assert.ErrorIs(t, repo.Create(context.Background(), &model.Evidence{ID: testEvidenceID}), ErrJobIDRequired)
}

func TestEvidenceRepo_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEvidenceRepo(db, RepoConfig{})

	mock.ExpectQuery(regexp.QuoteMeta("FROM evidence_documents WHERE id = $1")).
		WithArgs(testEvidenceID).
		WillReturnRows(sqlmock.NewRows(evidenceRowColumns).AddRow(evidenceRow(testEvidenceID)...))

	ev, err := repo.GetByID(context.Background(), testEvidenceID)
	require.NoError(t, err)
	assert.Equal(t, model.EvidenceTypeNewsArticle, ev.EvidenceType)
	assert.Equal(t, testChecksum, ev.Checksum)
	require.NotNil(t, ev.SourceURL)
	assert.Nil(t, ev.SourceTimestamp)
	assert.Nil(t, ev.ExtractionVersion)
	assert.JSONEq(t, `{"title":"A"}`, string(ev.Metadata))

	mock.ExpectQuery("FROM evidence_documents").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), testEvidenceID)
	assert.ErrorIs(t, err, ErrEvidenceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEvidenceRepo_ListByJob(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEvidenceRepo(db, RepoConfig{})
	second := "0e6b8f7a-1111-4c22-9333-444455556666"

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY ingested_at ASC, id ASC")).
		WithArgs(testJobID, defaultEvidenceListLimit, 0).
		WillReturnRows(sqlmock.NewRows(evidenceRowColumns).
			AddRow(evidenceRow(testEvidenceID)...).
			AddRow(evidenceRow(second)...))

	out, err := repo.ListByJob(context.Background(), model.EvidenceListOptions{JobID: testJobID})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, testEvidenceID, out[0].ID)
	assert.Equal(t, second, out[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = repo.ListByJob(context.Background(), model.EvidenceListOptions{})
	assert.ErrorIs(t, err, ErrJobIDRequired)
}

func TestEvidenceRepo_FindByChecksum(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewEvidenceRepo(db, RepoConfig{})

	mock.ExpectQuery(regexp.QuoteMeta("WHERE checksum = $1")).
		WithArgs(testChecksum).
		WillReturnRows(sqlmock.NewRows(evidenceRowColumns).AddRow(evidenceRow(testEvidenceID)...))

	ev, err := repo.FindByChecksum(context.Background(), "  "+testChecksum[:10]+testChecksum[10:]+" ")
	require.NoError(t, err)
	assert.Equal(t, testEvidenceID, ev.ID)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE checksum = $1")).WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByChecksum(context.Background(), testChecksum)
	assert.ErrorIs(t, err, ErrEvidenceNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
