package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
)

const (
	defaultEvidenceListLimit = 100
	maxEvidenceListLimit     = 1000
)

// EvidenceRepo provides database operations for evidence metadata.
type EvidenceRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewEvidenceRepo creates a new EvidenceRepo.
func NewEvidenceRepo(db *sql.DB, cfg RepoConfig) *EvidenceRepo {
	cfg = cfg.withDefaults()
	return &EvidenceRepo{
		DB:           db,
		timeProvider: cfg.TimeProvider,
		logger:       cfg.Logger.With("component", "evidence_repo"),
	}
}

const evidenceColumns = `
  id,
  job_id,
  source_type,
  source_url,
  source_identifier,
  object_key,
  checksum,
  file_size_bytes,
  content_type,
  evidence_type,
  ingested_at,
  source_timestamp,
  metadata,
  processing_status,
  extraction_version
`

func scanEvidence(row rowScanner) (*model.Evidence, error) {
	var (
		ev                           model.Evidence
		sourceURL, sourceID, version sql.NullString
		sourceTS                     sql.NullTime
		meta                         []byte
		evidenceType                 string
	)
	if err := row.Scan(
		&ev.ID,
		&ev.JobID,
		&ev.SourceType,
		&sourceURL,
		&sourceID,
		&ev.ObjectKey,
		&ev.Checksum,
		&ev.FileSizeBytes,
		&ev.ContentType,
		&evidenceType,
		&ev.IngestedAt,
		&sourceTS,
		&meta,
		&ev.ProcessingStatus,
		&version,
	); err != nil {
		return nil, err
	}
	_ = ev.EvidenceType.UnmarshalText([]byte(evidenceType))
	ev.SourceURL = nullStringPtr(sourceURL)
	ev.SourceIdentifier = nullStringPtr(sourceID)
	ev.ExtractionVersion = nullStringPtr(version)
	ev.SourceTimestamp = nullTimePtr(sourceTS)
	ev.Metadata = rawOrEmptyObject(meta)
	ev.IngestedAt = ev.IngestedAt.UTC()
	ev.Checksum = strings.TrimSpace(ev.Checksum)
	return &ev, nil
}

// Create inserts an evidence row. Unset ingested_at and processing_status are filled in.
func (r *EvidenceRepo) Create(ctx context.Context, ev *model.Evidence) error {
	if ev == nil {
		return errors.New("evidence is required")
	}
	if strings.TrimSpace(ev.JobID) == "" {
		return ErrJobIDRequired
	}
	if ev.IngestedAt.IsZero() {
		ev.IngestedAt = r.timeProvider.Now().UTC()
	}
	if ev.ProcessingStatus == "" {
		ev.ProcessingStatus = model.ProcessingStatusRaw
	}
	meta := rawOrEmptyObject(ev.Metadata)

	var sourceTS any
	if ev.SourceTimestamp != nil {
		sourceTS = ev.SourceTimestamp.UTC()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO evidence_documents (`+evidenceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::jsonb, $14, $15)
	`,
		ev.ID,
		ev.JobID,
		string(ev.SourceType),
		stringOrNil(ev.SourceURL),
		stringOrNil(ev.SourceIdentifier),
		ev.ObjectKey,
		ev.Checksum,
		ev.FileSizeBytes,
		ev.ContentType,
		string(ev.EvidenceType),
		ev.IngestedAt,
		sourceTS,
		string(meta),
		ev.ProcessingStatus,
		stringOrNil(ev.ExtractionVersion),
	)
	if err != nil {
		return fmt.Errorf("insert evidence: %w", apperrors.MapDBError(err))
	}
	return nil
}

// GetByID returns the evidence or ErrEvidenceNotFound.
func (r *EvidenceRepo) GetByID(ctx context.Context, id string) (*model.Evidence, error) {
	if model.ValidateJobID(id) != nil {
		return nil, ErrEvidenceNotFound
	}
	query := `SELECT ` + evidenceColumns + ` FROM evidence_documents WHERE id = $1`
	ev, err := scanEvidence(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEvidenceNotFound
		}
		return nil, fmt.Errorf("get evidence: %w", err)
	}
	return ev, nil
}

// ListByJob returns a job's evidence in ingestion order.
func (r *EvidenceRepo) ListByJob(ctx context.Context, opts model.EvidenceListOptions) ([]*model.Evidence, error) {
	if strings.TrimSpace(opts.JobID) == "" {
		return nil, ErrJobIDRequired
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultEvidenceListLimit
	}
	if limit > maxEvidenceListLimit {
		limit = maxEvidenceListLimit
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+evidenceColumns+`
		FROM evidence_documents
		WHERE job_id = $1
		ORDER BY ingested_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`, opts.JobID, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("query evidence by job: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*model.Evidence, 0)
	for rows.Next() {
		ev, scanErr := scanEvidence(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan evidence: %w", scanErr)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence: %w", err)
	}
	return out, nil
}

// FindByChecksum returns the earliest ingested evidence whose content has the checksum.
func (r *EvidenceRepo) FindByChecksum(ctx context.Context, checksum string) (*model.Evidence, error) {
	checksum = strings.ToLower(strings.TrimSpace(checksum))
	if checksum == "" {
		return nil, ErrEvidenceNotFound
	}
	ev, err := scanEvidence(r.DB.QueryRowContext(ctx, `
		SELECT `+evidenceColumns+`
		FROM evidence_documents
		WHERE checksum = $1
		ORDER BY ingested_at ASC, id ASC
		LIMIT 1
	`, checksum))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEvidenceNotFound
		}
		return nil, fmt.Errorf("find evidence by checksum: %w", err)
	}
	return ev, nil
}
