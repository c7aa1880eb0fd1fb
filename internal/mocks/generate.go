// Package mocks provides gomock implementations of the ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	jobs := mocks.NewMockJobRepository(ctrl)
//	jobs.EXPECT().GetByID(gomock.Any(), id).Return(job, nil)
package mocks

// JobRepository: Create, GetByID, TransitionStatus, UpdateCounts, SetExternalTaskID, List, Stats, FailStale
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/target/swift-ingestion/internal/core JobRepository

// EvidenceRepository: Create, GetByID, ListByJob, FindByChecksum
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=evidence_repository_mock.go github.com/target/swift-ingestion/internal/core EvidenceRepository

// ConnectorConfigRepository: GetBySourceType, Upsert, List
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=connector_config_repository_mock.go github.com/target/swift-ingestion/internal/core ConnectorConfigRepository

// TaskQueue: Enqueue, Dequeue, Ack, RequeueInFlight
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=task_queue_mock.go github.com/target/swift-ingestion/internal/core TaskQueue

// CacheRepository: Set, Get, Delete, SetIfNotExists, Health
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/target/swift-ingestion/internal/core CacheRepository

// EvidenceStore: StoreJSONEvidence, RetrieveEvidence, VerifyChecksum, DeleteEvidence
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=evidence_store_mock.go github.com/target/swift-ingestion/internal/core EvidenceStore
