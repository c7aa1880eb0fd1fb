package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/domain/evidence"
)

func newFSStore(t *testing.T, maxSize int64) (*Store, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "evidence-root")
	backend, err := NewFilesystemBackend(root)
	require.NoError(t, err)
	store, err := New(Options{
		Backend:      backend,
		MaxSizeBytes: maxSize,
		Now:          func() time.Time { return time.Date(2024, 2, 1, 8, 30, 15, 999, time.UTC) },
	})
	require.NoError(t, err)
	require.NoError(t, store.Ready(context.Background()))
	return store, root
}

func TestStoreJSONEvidence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, root := newFSStore(t, 0)
	key := "evidence/news_api/2024/02/01/job-1/ev-1.json"

	obj, err := store.StoreJSONEvidence(ctx, key, map[string]any{"title": "a<b", "n": 1}, map[string]string{"job_id": "job-1"})
	require.NoError(t, err)

	want := "{\n  \"n\": 1,\n  \"title\": \"a<b\"\n}"
	assert.Equal(t, evidence.Checksum([]byte(want)), obj.Checksum)
	assert.EqualValues(t, len(want), obj.Size)
	assert.Equal(t, ContentTypeJSON, obj.ContentType)

	raw, info, err := store.RetrieveEvidence(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, want, string(raw))
	assert.Equal(t, ContentTypeJSON, info.ContentType)
	assert.Equal(t, obj.Checksum, info.Metadata[MetaChecksum])
	assert.Equal(t, "2024-02-01T08:30:15Z", info.Metadata[MetaIngestedAt])
	assert.Equal(t, "job-1", info.Metadata["job_id"])

	var decoded map[string]any
	require.NoError(t, store.RetrieveJSONEvidence(ctx, key, &decoded))
	assert.Equal(t, "a<b", decoded["title"])

	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)+sidecarSuffix))
	assert.NoError(t, err)
}

func TestVerifyChecksum(t *testing.T) {
	ctx := context.Background()
	store, root := newFSStore(t, 0)
	key := "evidence/opencorporates/2024/02/01/job/ev.json"

	obj, err := store.StoreEvidence(ctx, key, []byte("original"), "text/plain", nil)
	require.NoError(t, err)

	ok, err := store.VerifyChecksum(ctx, key, obj.Checksum)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(key)), []byte("tampered"), 0o600))
	ok, err = store.VerifyChecksum(ctx, key, obj.Checksum)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.VerifyChecksum(ctx, "evidence/x/2024/02/01/job/missing.json", obj.Checksum)
	require.NoError(t, err, "a missing blob is a failed verification, not an error")
	assert.False(t, ok)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	ok, err = store.VerifyChecksum(canceled, "evidence/x/2024/02/01/job/missing.json", obj.Checksum)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestStoreEvidence_TooLarge(t *testing.T) {
	store, _ := newFSStore(t, 4)
	_, err := store.StoreEvidence(context.Background(), "evidence/a/2024/01/01/j/e.json", []byte("12345"), "", nil)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDeleteEvidence(t *testing.T) {
	ctx := context.Background()
	store, _ := newFSStore(t, 0)
	key := "evidence/a/2024/01/01/j/e.json"

	_, err := store.StoreEvidence(ctx, key, []byte("x"), "", nil)
	require.NoError(t, err)
	require.NoError(t, store.DeleteEvidence(ctx, key))

	_, _, err = store.RetrieveEvidence(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NoError(t, store.DeleteEvidence(ctx, key))
}

func TestFilesystemBackend_RejectsEscapingKeys(t *testing.T) {
	backend, err := NewFilesystemBackend(t.TempDir())
	require.NoError(t, err)
	for _, key := range []string{"", "../outside", "/abs/path", ".."} {
		err := backend.Put(context.Background(), key, []byte("x"), "", nil)
		assert.Error(t, err, key)
	}
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestStoreEvidence_SameContentDifferentKeys(t *testing.T) {
	ctx := context.Background()
	store, _ := newFSStore(t, 0)

	first, err := store.StoreEvidence(ctx, "evidence/a.bin", []byte("abc"), "", nil)
	require.NoError(t, err)
	second, err := store.StoreEvidence(ctx, "evidence/b.bin", []byte("abc"), "", nil)
	require.NoError(t, err)

	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", first.Checksum)
	assert.Equal(t, first.Checksum, second.Checksum)
	assert.NotEqual(t, first.Key, second.Key)

	for _, key := range []string{first.Key, second.Key} {
		ok, err := store.VerifyChecksum(ctx, key, first.Checksum)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}
