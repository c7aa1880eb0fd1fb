package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/data"
	"github.com/target/swift-ingestion/internal/domain/model"
	apperrors "github.com/target/swift-ingestion/internal/errors"
)

// ConnectorSecrets are the per-source credentials and endpoints taken from the environment.
type ConnectorSecrets struct {
	OpenCorporatesAPIKey string
	NewsAPIKey           string
	ApifyAPIToken        string
	OSINTActorID         string
	// BaseURLs overrides the upstream API root per source (tests, proxies).
	BaseURLs map[model.SourceType]string
}

// ConnectorConfigResolverOptions groups dependencies for ConnectorConfigResolver.
type ConnectorConfigResolverOptions struct {
	Repo             core.ConnectorConfigRepository // Optional: without it only defaults and secrets apply
	Registry         *connector.Registry            // Optional: source-specific rate limit defaults
	Secrets          ConnectorSecrets
	DefaultRateLimit int           // Optional: requests per minute, default 60
	DefaultTimeout   time.Duration // Optional: per-request timeout, default 30s
	Logger           *slog.Logger
}

// ConnectorConfigResolver builds the connector.Config for a source: defaults, then the
// persisted connector_configs row, then credentials from the environment.
type ConnectorConfigResolver struct {
	repo           core.ConnectorConfigRepository
	registry       *connector.Registry
	secrets        ConnectorSecrets
	defaultRate    int
	defaultTimeout time.Duration
	logger         *slog.Logger
}

// NewConnectorConfigResolver constructs a resolver.
func NewConnectorConfigResolver(opts ConnectorConfigResolverOptions) *ConnectorConfigResolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rate := opts.DefaultRateLimit
	if rate <= 0 {
		rate = connector.DefaultRateLimitPerMinute
	}
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = connector.DefaultTimeout
	}
	return &ConnectorConfigResolver{
		repo:           opts.Repo,
		registry:       opts.Registry,
		secrets:        opts.Secrets,
		defaultRate:    rate,
		defaultTimeout: timeout,
		logger:         logger.With("component", "connector_config_resolver"),
	}
}

// Resolve returns the effective configuration for st.
// A persisted row with enabled=false yields a ConfigurationError.
func (r *ConnectorConfigResolver) Resolve(ctx context.Context, st model.SourceType) (connector.Config, error) {
	cfg := connector.Config{
		RateLimitPerMinute: r.defaultRate,
		Timeout:            r.defaultTimeout,
		Retry:              connector.DefaultRetryPolicy(),
		Logger:             r.logger,
	}
	if r.registry != nil {
		if desc, ok := r.registry.Describe(st); ok && desc.DefaultRateLimit > 0 {
			cfg.RateLimitPerMinute = desc.DefaultRateLimit
		}
	}

	if err := r.applyRow(ctx, st, &cfg); err != nil {
		return connector.Config{}, err
	}
	r.applySecrets(st, &cfg)
	return cfg, nil
}

func (r *ConnectorConfigResolver) applyRow(ctx context.Context, st model.SourceType, cfg *connector.Config) error {
	if r.repo == nil {
		return nil
	}
	row, err := r.repo.GetBySourceType(ctx, st)
	if errors.Is(err, data.ErrConnectorConfigNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load connector config for %s: %w", st, err)
	}
	if !row.Enabled {
		return &connector.ConfigurationError{
			Source: string(st),
			Field:  "enabled",
			Hint:   fmt.Sprintf("connector %s is disabled", st),
		}
	}

	if row.RateLimitPerMinute != nil && *row.RateLimitPerMinute > 0 {
		cfg.RateLimitPerMinute = *row.RateLimitPerMinute
	}
	if row.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(row.TimeoutSeconds) * time.Second
	}
	if row.RetryAttempts > 0 {
		cfg.Retry.MaxAttempts = row.RetryAttempts
	}
	if len(row.Settings) > 0 {
		settings := map[string]any{}
		if err := json.Unmarshal(row.Settings, &settings); err != nil {
			return fmt.Errorf("decode connector settings for %s: %w", st, err)
		}
		cfg.Settings = settings
	}
	return nil
}

// applySecrets fills credentials from the environment. Non-secret identifiers
// (actor_id, base_url) in the row settings win over the environment values.
func (r *ConnectorConfigResolver) applySecrets(st model.SourceType, cfg *connector.Config) {
	switch st {
	case model.SourceTypeOpenCorporates:
		cfg.APIKey = r.secrets.OpenCorporatesAPIKey
	case model.SourceTypeNewsAPI:
		cfg.APIKey = r.secrets.NewsAPIKey
	case model.SourceTypeOSINTSearch:
		cfg.APIToken = r.secrets.ApifyAPIToken
		cfg.ActorID = cfg.Setting("actor_id", r.secrets.OSINTActorID)
	case model.SourceTypeRSSFeed, model.SourceTypeWebScraper, model.SourceTypeManualUpload:
	}
	cfg.BaseURL = cfg.Setting("base_url", strings.TrimSpace(r.secrets.BaseURLs[st]))
}

// ConnectorConfigService manages the persisted connector_configs rows.
type ConnectorConfigService struct {
	repo   core.ConnectorConfigRepository
	logger *slog.Logger
}

// NewConnectorConfigService constructs a ConnectorConfigService.
func NewConnectorConfigService(repo core.ConnectorConfigRepository, logger *slog.Logger) (*ConnectorConfigService, error) {
	if repo == nil {
		return nil, errors.New("ConnectorConfigRepository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectorConfigService{repo: repo, logger: logger.With("component", "connector_config_service")}, nil
}

// Upsert validates and stores one connector config.
func (s *ConnectorConfigService) Upsert(ctx context.Context, req *model.UpsertConnectorConfigRequest) (*model.ConnectorConfig, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	cfg, err := s.repo.Upsert(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upsert connector config %s: %w", req.SourceType, err)
	}
	s.logger.InfoContext(ctx, "connector config saved", "source_type", cfg.SourceType, "enabled", cfg.Enabled)
	return cfg, nil
}

// Import upserts every entry and stops at the first failure.
func (s *ConnectorConfigService) Import(ctx context.Context, reqs []*model.UpsertConnectorConfigRequest) ([]*model.ConnectorConfig, error) {
	out := make([]*model.ConnectorConfig, 0, len(reqs))
	for i, req := range reqs {
		cfg, err := s.Upsert(ctx, req)
		if err != nil {
			return out, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// List returns every connector config ordered by source type.
func (s *ConnectorConfigService) List(ctx context.Context) ([]*model.ConnectorConfig, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connector configs: %w", err)
	}
	return list, nil
}
