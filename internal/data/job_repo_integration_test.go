package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/domain/evidence"
	"github.com/target/swift-ingestion/internal/domain/model"
	"github.com/target/swift-ingestion/internal/testutil"
)

func TestJobAndEvidenceRepos_Integration(t *testing.T) {
	testutil.SkipIfNoTestDB(t)
	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		jobs := NewJobRepo(db, RepoConfig{})
		evidenceRepo := NewEvidenceRepo(db, RepoConfig{})

		job, err := jobs.Create(ctx, &model.CreateJobRequest{
			SourceType: model.SourceTypeOpenCorporates,
			Parameters: json.RawMessage(`{"company_name":"Acme"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusPending, job.Status)

		ok, err := jobs.TransitionStatus(ctx, job.ID, model.StatusUpdate{From: model.JobStatusPending, To: model.JobStatusRunning})
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = jobs.TransitionStatus(ctx, job.ID, model.StatusUpdate{From: model.JobStatusPending, To: model.JobStatusRunning})
		require.NoError(t, err)
		assert.False(t, ok, "second claim must lose the compare-and-swap")

		content := []byte("abc")
		for range 2 {
			id := uuid.NewString()
			require.NoError(t, evidenceRepo.Create(ctx, &model.Evidence{
				ID:            id,
				JobID:         job.ID,
				SourceType:    job.SourceType,
				ObjectKey:     evidence.GenerateObjectKey(job.ID, string(job.SourceType), id, "json"),
				Checksum:      evidence.Checksum(content),
				FileSizeBytes: int64(len(content)),
				ContentType:   "application/json",
				EvidenceType:  model.EvidenceTypeCompanyRecord,
			}))
		}

		counts := model.JobCounts{Total: 2, Successful: 2}
		ok, err = jobs.TransitionStatus(ctx, job.ID, model.StatusUpdate{
			From:   model.JobStatusRunning,
			To:     model.JobStatusSuccess,
			Counts: &counts,
		})
		require.NoError(t, err)
		require.True(t, ok)

		stored, err := jobs.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.StartedAt)
		require.NotNil(t, stored.CompletedAt)
		assert.True(t, stored.Counts().Balanced())

		stats, err := jobs.Stats(ctx, job.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 6, stats.TotalSizeBytes)
		require.NotNil(t, stats.AvgItemSizeBytes)
		assert.InDelta(t, 3.0, *stats.AvgItemSizeBytes, 0.001)

		found, err := evidenceRepo.FindByChecksum(ctx, evidence.Checksum(content))
		require.NoError(t, err)
		assert.Equal(t, job.ID, found.JobID)

		listed, err := evidenceRepo.ListByJob(ctx, model.EvidenceListOptions{JobID: job.ID})
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})
}
