package core

import (
	"context"

	"github.com/target/swift-ingestion/internal/storage/objectstore"
)

// EvidenceStore is the blob side of evidence persistence. *objectstore.Store implements it.
type EvidenceStore interface {
	StoreJSONEvidence(ctx context.Context, key string, data any, metadata map[string]string) (objectstore.StoredObject, error)
	RetrieveEvidence(ctx context.Context, key string) ([]byte, objectstore.ObjectInfo, error)
	// VerifyChecksum reports false, not an error, on mismatch.
	VerifyChecksum(ctx context.Context, key, expected string) (bool, error)
	// DeleteEvidence treats a missing object as deleted.
	DeleteEvidence(ctx context.Context, key string) error
}

var _ EvidenceStore = (*objectstore.Store)(nil)
