package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/domain/evidence"
	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
)

// Keys added to the evidence row metadata next to what the connector reported.
const (
	MetaSourceDomain  = "source_domain"
	MetaRetentionDays = "retention_days"
)

// EvidenceServiceOptions groups dependencies for EvidenceService.
type EvidenceServiceOptions struct {
	Repo  core.EvidenceRepository // Required: evidence metadata
	Store core.EvidenceStore      // Required: blob storage
	// RetentionDays is recorded on each evidence row. Nothing deletes on it.
	RetentionDays int
	Logger        *slog.Logger
	Now           func() time.Time
	NewID         func() string
}

// EvidenceService persists connector results as checksummed blobs plus metadata rows.
type EvidenceService struct {
	repo          core.EvidenceRepository
	store         core.EvidenceStore
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
}

// NewEvidenceService constructs a new EvidenceService.
func NewEvidenceService(opts EvidenceServiceOptions) (*EvidenceService, error) {
	if opts.Repo == nil {
		return nil, errors.New("EvidenceRepository is required")
	}
	if opts.Store == nil {
		return nil, errors.New("EvidenceStore is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &EvidenceService{
		repo:          opts.Repo,
		store:         opts.Store,
		retentionDays: opts.RetentionDays,
		logger:        logger.With("component", "evidence_service"),
		now:           now,
		newID:         newID,
	}, nil
}

// Persist stores one result under a fresh evidence id and records its metadata row.
// When the row insert fails the blob is removed again, best effort.
func (s *EvidenceService) Persist(ctx context.Context, job *model.Job, res connector.Result) (*model.Evidence, error) {
	if job == nil {
		return nil, errors.New("job is required")
	}

	id := s.newID()
	evType := res.EvidenceType
	if !evType.Valid() {
		evType = model.EvidenceTypeRawData
	}
	key := evidence.NewKey(job.ID, string(job.SourceType), id, "json", s.now()).String()

	obj, err := s.store.StoreJSONEvidence(ctx, key, res.Data, map[string]string{
		"job_id":        job.ID,
		"source_type":   string(job.SourceType),
		"evidence_type": string(evType),
	})
	if err != nil {
		return nil, fmt.Errorf("store evidence blob: %w", err)
	}

	meta, err := s.rowMetadata(res)
	if err != nil {
		s.discard(ctx, key)
		return nil, err
	}

	ev := &model.Evidence{
		ID:               id,
		JobID:            job.ID,
		SourceType:       job.SourceType,
		SourceURL:        optional(res.SourceURL),
		SourceIdentifier: optional(res.SourceIdentifier),
		ObjectKey:        key,
		Checksum:         obj.Checksum,
		FileSizeBytes:    obj.Size,
		ContentType:      obj.ContentType,
		EvidenceType:     evType,
		IngestedAt:       obj.IngestedAt,
		SourceTimestamp:  res.SourceTimestamp,
		Metadata:         meta,
		ProcessingStatus: model.ProcessingStatusRaw,
	}
	if err := s.repo.Create(ctx, ev); err != nil {
		s.discard(ctx, key)
		return nil, fmt.Errorf("record evidence: %w", err)
	}

	s.logger.DebugContext(ctx, "evidence stored",
		"job_id", job.ID,
		"evidence_id", id,
		"object_key", key,
		"size", obj.Size,
	)
	return ev, nil
}

func (s *EvidenceService) rowMetadata(res connector.Result) (json.RawMessage, error) {
	meta := make(map[string]any, len(res.Metadata)+2)
	maps.Copy(meta, res.Metadata)
	if domain := SourceDomain(res.SourceURL); domain != "" {
		meta[MetaSourceDomain] = domain
	}
	if s.retentionDays > 0 {
		meta[MetaRetentionDays] = s.retentionDays
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode evidence metadata: %w", err)
	}
	return raw, nil
}

func (s *EvidenceService) discard(ctx context.Context, key string) {
	if err := s.store.DeleteEvidence(context.WithoutCancel(ctx), key); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned evidence blob", "object_key", key, "error", err)
	}
}

// SourceDomain returns the registrable domain (eTLD+1) of rawURL, or "".
func SourceDomain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// Get returns one evidence record.
func (s *EvidenceService) Get(ctx context.Context, id string) (*model.Evidence, error) {
	ev, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get evidence %s: %w", id, err)
	}
	return ev, nil
}

// ListByJob returns a job's evidence in the order it was ingested.
func (s *EvidenceService) ListByJob(ctx context.Context, opts model.EvidenceListOptions) ([]*model.Evidence, error) {
	if err := model.ValidateJobID(opts.JobID); err != nil {
		return nil, apperrors.ValidationField("job_id", err.Error())
	}
	list, err := s.repo.ListByJob(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list evidence for job %s: %w", opts.JobID, err)
	}
	return list, nil
}

// FindByChecksum returns the earliest evidence whose content hashes to checksum.
func (s *EvidenceService) FindByChecksum(ctx context.Context, checksum string) (*model.Evidence, error) {
	checksum = strings.ToLower(strings.TrimSpace(checksum))
	if !evidence.ValidChecksum(checksum) {
		return nil, apperrors.ValidationField("checksum", "checksum must be 64 lowercase hex characters")
	}
	ev, err := s.repo.FindByChecksum(ctx, checksum)
	if err != nil {
		return nil, fmt.Errorf("find evidence by checksum: %w", err)
	}
	return ev, nil
}

// Verification is the result of re-hashing a stored blob.
type Verification struct {
	EvidenceID string `json:"evidence_id"`
	ObjectKey  string `json:"object_key"`
	Checksum   string `json:"checksum"`
	Valid      bool   `json:"valid"`
	// Reason is set when Valid is false.
	Reason string `json:"reason,omitempty"`
}

const reasonIntegrity = "stored content is missing or does not hash to the recorded checksum"

// Verify re-hashes the stored blob and compares it with the recorded checksum.
// A blob that cannot be read verifies as false.
func (s *EvidenceService) Verify(ctx context.Context, id string) (Verification, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return Verification{}, err
	}
	out := Verification{EvidenceID: ev.ID, ObjectKey: ev.ObjectKey, Checksum: ev.Checksum}

	ok, err := s.store.VerifyChecksum(ctx, ev.ObjectKey, ev.Checksum)
	if err != nil {
		return Verification{}, fmt.Errorf("verify evidence %s: %w", ev.ID, err)
	}
	out.Valid = ok
	if !ok {
		s.logger.WarnContext(ctx, "evidence failed verification", "evidence_id", ev.ID, "object_key", ev.ObjectKey)
		out.Reason = reasonIntegrity
	}
	return out, nil
}

// Retrieve returns the stored bytes with their evidence record.
func (s *EvidenceService) Retrieve(ctx context.Context, id string) ([]byte, *model.Evidence, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	content, _, err := s.store.RetrieveEvidence(ctx, ev.ObjectKey)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve evidence %s: %w", id, err)
	}
	return content, ev, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
