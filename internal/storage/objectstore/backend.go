package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time
}

// Backend is the blob storage a Store writes through.
type Backend interface {
	// EnsureBucket creates the target bucket or directory when it does not exist.
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}
