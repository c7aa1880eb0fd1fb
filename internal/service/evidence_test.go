package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/data"
	"github.com/target/swift-ingestion/internal/domain/evidence"
	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
	"github.com/target/swift-ingestion/internal/mocks"
	"github.com/target/swift-ingestion/internal/storage/objectstore"
)

var evidenceNow = time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)

type evidenceFixture struct {
	repo  *mocks.MockEvidenceRepository
	store *objectstore.Store
	root  string
	svc   *EvidenceService
	ids   int
}

func newEvidenceFixture(t *testing.T) *evidenceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &evidenceFixture{
		repo: mocks.NewMockEvidenceRepository(ctrl),
		root: t.TempDir(),
	}
	backend, err := objectstore.NewFilesystemBackend(f.root)
	require.NoError(t, err)
	f.store, err = objectstore.New(objectstore.Options{
		Backend: backend,
		Logger:  slog.New(slog.DiscardHandler),
		Now:     func() time.Time { return evidenceNow },
	})
	require.NoError(t, err)

	f.svc, err = NewEvidenceService(EvidenceServiceOptions{
		Repo:          f.repo,
		Store:         f.store,
		RetentionDays: 365,
		Logger:        slog.New(slog.DiscardHandler),
		Now:           func() time.Time { return evidenceNow },
		NewID: func() string {
			f.ids++
			return fmt.Sprintf("ev-%d", f.ids)
		},
	})
	require.NoError(t, err)
	return f
}

func (f *evidenceFixture) blobExists(key string) bool {
	_, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(key)))
	return err == nil
}

func newsJob() *model.Job {
	return &model.Job{ID: testJobID, SourceType: model.SourceTypeNewsAPI, Status: model.JobStatusRunning}
}

func TestEvidenceService_Persist(t *testing.T) {
	f := newEvidenceFixture(t)
	published := time.Date(2024, 1, 30, 9, 0, 0, 0, time.UTC)

	var created *model.Evidence
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev *model.Evidence) error {
		created = ev
		return nil
	})

	ev, err := f.svc.Persist(context.Background(), newsJob(), connector.Result{
		Data:             map[string]any{"title": "Acme fined"},
		SourceURL:        "https://www.bbc.co.uk/news/business-1",
		SourceIdentifier: "https://www.bbc.co.uk/news/business-1",
		SourceTimestamp:  &published,
		EvidenceType:     model.EvidenceTypeNewsArticle,
		Metadata:         map[string]any{"author": "R. Reporter"},
	})
	require.NoError(t, err)
	assert.Same(t, created, ev)

	assert.Equal(t, "ev-1", ev.ID)
	assert.Equal(t, "evidence/news_api/2024/02/01/"+testJobID+"/ev-1.json", ev.ObjectKey)
	assert.Equal(t, objectstore.ContentTypeJSON, ev.ContentType)
	assert.Equal(t, model.EvidenceTypeNewsArticle, ev.EvidenceType)
	assert.Equal(t, model.ProcessingStatusRaw, ev.ProcessingStatus)
	assert.Equal(t, &published, ev.SourceTimestamp)

	content, _, err := f.store.RetrieveEvidence(context.Background(), ev.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, evidence.Checksum(content), ev.Checksum)
	assert.EqualValues(t, len(content), ev.FileSizeBytes)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(ev.Metadata, &meta))
	assert.Equal(t, "bbc.co.uk", meta[MetaSourceDomain])
	assert.Equal(t, "R. Reporter", meta["author"])
	assert.InDelta(t, 365, meta[MetaRetentionDays], 0)
}

func TestEvidenceService_Persist_UnknownEvidenceTypeIsRawData(t *testing.T) {
	f := newEvidenceFixture(t)
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	ev, err := f.svc.Persist(context.Background(), newsJob(), connector.Result{Data: "x", EvidenceType: "tweet"})
	require.NoError(t, err)
	assert.Equal(t, model.EvidenceTypeRawData, ev.EvidenceType)
	assert.Nil(t, ev.SourceURL)
	assert.Nil(t, ev.SourceIdentifier)
}

func TestEvidenceService_Persist_RowFailureRemovesBlob(t *testing.T) {
	f := newEvidenceFixture(t)
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("insert failed"))

	_, err := f.svc.Persist(context.Background(), newsJob(), connector.Result{Data: map[string]any{"a": 1}})
	require.Error(t, err)
	assert.False(t, f.blobExists("evidence/news_api/2024/02/01/"+testJobID+"/ev-1.json"))
}

func TestEvidenceService_SameContentTwiceThenFindByChecksum(t *testing.T) {
	f := newEvidenceFixture(t)
	var rows []*model.Evidence
	f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev *model.Evidence) error {
		rows = append(rows, ev)
		return nil
	}).Times(2)

	res := connector.Result{Data: "abc", EvidenceType: model.EvidenceTypeRawData}
	first, err := f.svc.Persist(context.Background(), newsJob(), res)
	require.NoError(t, err)
	second, err := f.svc.Persist(context.Background(), newsJob(), res)
	require.NoError(t, err)

	assert.NotEqual(t, first.ObjectKey, second.ObjectKey)
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.True(t, f.blobExists(first.ObjectKey))
	assert.True(t, f.blobExists(second.ObjectKey))

	f.repo.EXPECT().FindByChecksum(gomock.Any(), first.Checksum).Return(rows[0], nil)
	found, err := f.svc.FindByChecksum(context.Background(), "  "+first.Checksum+" ")
	require.NoError(t, err)
	assert.Contains(t, []string{first.ID, second.ID}, found.ID)
}

func TestEvidenceService_FindByChecksum_Validation(t *testing.T) {
	f := newEvidenceFixture(t)
	_, err := f.svc.FindByChecksum(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, "checksum", apperrors.GetField(err))
}

func TestEvidenceService_Verify(t *testing.T) {
	ctx := context.Background()
	f := newEvidenceFixture(t)

	obj, err := f.store.StoreEvidence(ctx, "evidence/x/ev-9.json", []byte(`{"a":1}`), objectstore.ContentTypeJSON, nil)
	require.NoError(t, err)

	t.Run("intact blob", func(t *testing.T) {
		f.repo.EXPECT().GetByID(gomock.Any(), "ev-9").Return(&model.Evidence{ID: "ev-9", ObjectKey: obj.Key, Checksum: obj.Checksum}, nil)
		v, err := f.svc.Verify(ctx, "ev-9")
		require.NoError(t, err)
		assert.True(t, v.Valid)
		assert.Empty(t, v.Reason)
	})

	t.Run("recorded checksum differs", func(t *testing.T) {
		f.repo.EXPECT().GetByID(gomock.Any(), "ev-9").Return(&model.Evidence{ID: "ev-9", ObjectKey: obj.Key, Checksum: evidence.Checksum([]byte("other"))}, nil)
		v, err := f.svc.Verify(ctx, "ev-9")
		require.NoError(t, err)
		assert.False(t, v.Valid)
		assert.Equal(t, reasonIntegrity, v.Reason)
	})

	t.Run("missing blob", func(t *testing.T) {
		f.repo.EXPECT().GetByID(gomock.Any(), "ev-10").Return(&model.Evidence{ID: "ev-10", ObjectKey: "evidence/x/missing.json", Checksum: obj.Checksum}, nil)
		v, err := f.svc.Verify(ctx, "ev-10")
		require.NoError(t, err)
		assert.False(t, v.Valid)
		assert.NotEmpty(t, v.Reason)
	})

	t.Run("canceled context is an error", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		f.repo.EXPECT().GetByID(gomock.Any(), "ev-10").Return(&model.Evidence{ID: "ev-10", ObjectKey: "evidence/x/missing.json", Checksum: obj.Checksum}, nil)
		_, err := f.svc.Verify(canceled, "ev-10")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown evidence", func(t *testing.T) {
		f.repo.EXPECT().GetByID(gomock.Any(), "nope").Return(nil, data.ErrEvidenceNotFound)
		_, err := f.svc.Verify(ctx, "nope")
		assert.ErrorIs(t, err, data.ErrEvidenceNotFound)
	})
}

func TestEvidenceService_Retrieve(t *testing.T) {
	ctx := context.Background()
	f := newEvidenceFixture(t)
	obj, err := f.store.StoreEvidence(ctx, "evidence/x/ev-1.json", []byte(`[1,2]`), objectstore.ContentTypeJSON, nil)
	require.NoError(t, err)
	f.repo.EXPECT().GetByID(gomock.Any(), "ev-1").Return(&model.Evidence{ID: "ev-1", ObjectKey: obj.Key}, nil)

	content, ev, err := f.svc.Retrieve(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(content))
	assert.Equal(t, "ev-1", ev.ID)
}

func TestEvidenceService_ListByJob(t *testing.T) {
	f := newEvidenceFixture(t)

	_, err := f.svc.ListByJob(context.Background(), model.EvidenceListOptions{JobID: "not-a-uuid"})
	assert.True(t, apperrors.IsValidation(err))

	opts := model.EvidenceListOptions{JobID: testJobID, Limit: 50}
	f.repo.EXPECT().ListByJob(gomock.Any(), opts).Return([]*model.Evidence{{ID: "a"}, {ID: "b"}}, nil)
	list, err := f.svc.ListByJob(context.Background(), opts)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSourceDomain(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://www.bbc.co.uk/news/1", "bbc.co.uk"},
		{"https://News.Example.COM/a", "example.com"},
		{"http://localhost:8080/x", "localhost"},
		{"https://opencorporates.com/companies/gb/1", "opencorporates.com"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SourceDomain(tt.in), tt.in)
	}
}
