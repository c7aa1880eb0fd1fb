package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
)

// ConnectorConfigRepo provides database operations for per-source connector policy.
type ConnectorConfigRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewConnectorConfigRepo creates a new ConnectorConfigRepo.
func NewConnectorConfigRepo(db *sql.DB, cfg RepoConfig) *ConnectorConfigRepo {
	cfg = cfg.withDefaults()
	return &ConnectorConfigRepo{
		DB:           db,
		timeProvider: cfg.TimeProvider,
		logger:       cfg.Logger.With("component", "connector_config_repo"),
	}
}

const connectorConfigColumns = `
  id,
  name,
  source_type,
  enabled,
  rate_limit_per_minute,
  timeout_seconds,
  retry_attempts,
  config,
  created_at,
  updated_at
`

func scanConnectorConfig(row rowScanner) (*model.ConnectorConfig, error) {
	var (
		cc        model.ConnectorConfig
		rateLimit sql.NullInt64
		settings  []byte
	)
	if err := row.Scan(
		&cc.ID,
		&cc.Name,
		&cc.SourceType,
		&cc.Enabled,
		&rateLimit,
		&cc.TimeoutSeconds,
		&cc.RetryAttempts,
		&settings,
		&cc.CreatedAt,
		&cc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if rateLimit.Valid {
		v := int(rateLimit.Int64)
		cc.RateLimitPerMinute = &v
	}
	cc.Settings = rawOrEmptyObject(settings)
	cc.CreatedAt = cc.CreatedAt.UTC()
	cc.UpdatedAt = cc.UpdatedAt.UTC()
	return &cc, nil
}

// GetBySourceType returns the config row for a source or ErrConnectorConfigNotFound.
func (r *ConnectorConfigRepo) GetBySourceType(
	ctx context.Context,
	sourceType model.SourceType,
) (*model.ConnectorConfig, error) {
	query := `SELECT ` + connectorConfigColumns + ` FROM connector_configs WHERE source_type = $1`
	cc, err := scanConnectorConfig(r.DB.QueryRowContext(ctx, query, string(sourceType)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConnectorConfigNotFound
		}
		return nil, fmt.Errorf("get connector config: %w", err)
	}
	return cc, nil
}

// Upsert creates or replaces the config for req.SourceType.
func (r *ConnectorConfigRepo) Upsert(
	ctx context.Context,
	req *model.UpsertConnectorConfigRequest,
) (*model.ConnectorConfig, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	settings := []byte(`{}`)
	if len(req.Settings) > 0 {
		b, err := json.Marshal(req.Settings)
		if err != nil {
			return nil, fmt.Errorf("encode connector settings: %w", err)
		}
		settings = b
	}
	var rateLimit any
	if req.RateLimitPerMinute != nil {
		rateLimit = *req.RateLimitPerMinute
	}
	now := r.timeProvider.Now().UTC()

	query := `
		INSERT INTO connector_configs (
			id, name, source_type, enabled, rate_limit_per_minute,
			timeout_seconds, retry_attempts, config, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $9)
		ON CONFLICT (source_type) DO UPDATE
		SET name = EXCLUDED.name,
		    enabled = EXCLUDED.enabled,
		    rate_limit_per_minute = EXCLUDED.rate_limit_per_minute,
		    timeout_seconds = EXCLUDED.timeout_seconds,
		    retry_attempts = EXCLUDED.retry_attempts,
		    config = EXCLUDED.config,
		    updated_at = EXCLUDED.updated_at
		RETURNING ` + connectorConfigColumns

	cc, err := scanConnectorConfig(r.DB.QueryRowContext(ctx, query,
		uuid.NewString(),
		req.Name,
		string(req.SourceType),
		req.IsEnabled(),
		rateLimit,
		req.TimeoutSeconds,
		req.RetryAttempts,
		string(settings),
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert connector config: %w", apperrors.MapDBError(err))
	}
	return cc, nil
}

// List returns every connector config ordered by source type.
func (r *ConnectorConfigRepo) List(ctx context.Context) ([]*model.ConnectorConfig, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+connectorConfigColumns+` FROM connector_configs ORDER BY source_type`)
	if err != nil {
		return nil, fmt.Errorf("query connector configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*model.ConnectorConfig, 0)
	for rows.Next() {
		cc, scanErr := scanConnectorConfig(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan connector config: %w", scanErr)
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connector configs: %w", err)
	}
	return out, nil
}
