// Package objectstore keeps evidence blobs in content-addressed, write-once form.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/target/swift-ingestion/internal/domain/evidence"
)

// Side metadata written with every object.
const (
	MetaChecksum   = "checksum-sha256"
	MetaIngestedAt = "ingested-at"

	ContentTypeJSON = "application/json"
)

// ErrTooLarge is returned when content exceeds the configured size limit.
var ErrTooLarge = errors.New("evidence exceeds maximum size")

// StoredObject is the outcome of a successful write.
type StoredObject struct {
	Key         string
	Checksum    string
	Size        int64
	ContentType string
	IngestedAt  time.Time
}

// Options configures a Store.
type Options struct {
	Backend Backend
	Logger  *slog.Logger
	// MaxSizeBytes rejects larger writes when positive.
	MaxSizeBytes int64
	Now          func() time.Time
}

// Store writes evidence blobs with their checksum side metadata.
type Store struct {
	backend Backend
	logger  *slog.Logger
	maxSize int64
	now     func() time.Time
}

// New builds a Store over opts.Backend.
func New(opts Options) (*Store, error) {
	if opts.Backend == nil {
		return nil, errors.New("objectstore: backend is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		backend: opts.Backend,
		logger:  logger.With("component", "objectstore"),
		maxSize: opts.MaxSizeBytes,
		now:     now,
	}, nil
}

// Ready makes sure the bucket exists.
func (s *Store) Ready(ctx context.Context) error {
	if err := s.backend.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	return nil
}

// StoreEvidence writes content under key and returns its checksum and size.
func (s *Store) StoreEvidence(
	ctx context.Context,
	key string,
	content []byte,
	contentType string,
	metadata map[string]string,
) (StoredObject, error) {
	size := int64(len(content))
	if s.maxSize > 0 && size > s.maxSize {
		return StoredObject{}, fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, size, s.maxSize)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	checksum := evidence.Checksum(content)
	ingestedAt := s.now().UTC().Truncate(time.Second)

	meta := make(map[string]string, len(metadata)+2)
	maps.Copy(meta, metadata)
	meta[MetaChecksum] = checksum
	meta[MetaIngestedAt] = ingestedAt.Format(time.RFC3339)

	if err := s.backend.Put(ctx, key, content, contentType, meta); err != nil {
		s.logger.ErrorContext(ctx, "failed to store evidence", "object_key", key, "error", err)
		return StoredObject{}, fmt.Errorf("store evidence %s: %w", key, err)
	}
	s.logger.DebugContext(ctx, "stored evidence", "object_key", key, "size", size, "checksum", checksum)

	return StoredObject{
		Key:         key,
		Checksum:    checksum,
		Size:        size,
		ContentType: contentType,
		IngestedAt:  ingestedAt,
	}, nil
}

// EncodeJSON renders data the way JSON evidence is stored: 2-space indent, no HTML escaping.
func EncodeJSON(data any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// StoreJSONEvidence encodes data as indented JSON and stores it.
func (s *Store) StoreJSONEvidence(ctx context.Context, key string, data any, metadata map[string]string) (StoredObject, error) {
	content, err := EncodeJSON(data)
	if err != nil {
		return StoredObject{}, err
	}
	return s.StoreEvidence(ctx, key, content, ContentTypeJSON, metadata)
}

// RetrieveEvidence returns the stored bytes and object info.
func (s *Store) RetrieveEvidence(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	content, info, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("retrieve evidence %s: %w", key, err)
	}
	return content, info, nil
}

// RetrieveJSONEvidence decodes a stored JSON object into out.
func (s *Store) RetrieveJSONEvidence(ctx context.Context, key string, out any) error {
	content, _, err := s.RetrieveEvidence(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(content, out); err != nil {
		return fmt.Errorf("decode evidence %s: %w", key, err)
	}
	return nil
}

// VerifyChecksum recomputes the SHA-256 of the stored bytes and compares it with expected.
// A blob that is missing or cannot be read verifies as false with a nil error; the read
// failure is logged. Only cancellation of ctx is returned as an error.
func (s *Store) VerifyChecksum(ctx context.Context, key, expected string) (bool, error) {
	content, _, err := s.RetrieveEvidence(ctx, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		s.logger.WarnContext(ctx, "evidence unreadable during checksum verification", "object_key", key, "error", err)
		return false, nil
	}
	actual := evidence.Checksum(content)
	if actual != expected {
		s.logger.WarnContext(ctx, "checksum mismatch", "object_key", key, "expected", expected, "actual", actual)
		return false, nil
	}
	return true, nil
}

// Stat returns object info without reading the content.
func (s *Store) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.backend.Stat(ctx, key)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat evidence %s: %w", key, err)
	}
	return info, nil
}

// DeleteEvidence removes the object. Deleting a missing key is not an error.
func (s *Store) DeleteEvidence(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrObjectNotFound) {
		return fmt.Errorf("delete evidence %s: %w", key, err)
	}
	return nil
}
