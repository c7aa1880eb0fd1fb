// Package core defines the ports between the ingestion services and their infrastructure.
package core

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// The data layer provides a Redis implementation.
type CacheRepository interface {
	// Set stores a value with the given TTL. A zero TTL never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns nil when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete reports whether the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// SetIfNotExists atomically sets a key only if it is absent.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Health(ctx context.Context) error
}
