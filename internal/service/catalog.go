package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/core"
	"github.com/target/swift-ingestion/internal/domain/model"
)

const (
	healthCacheKeyPrefix = "swift:source-health:"
	// DefaultHealthTTL is how long a source health probe result is reused.
	DefaultHealthTTL = 5 * time.Minute
	// DefaultHealthTimeout bounds one source health probe.
	DefaultHealthTimeout = 10 * time.Second
)

// SourceHealth is the outcome of probing a source.
type SourceHealth struct {
	Healthy   bool      `json:"healthy"`
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Cached    bool      `json:"cached"`
}

// SourceInfo is one catalog entry.
type SourceInfo struct {
	SourceType model.SourceType     `json:"source_type"`
	Descriptor connector.Descriptor `json:"descriptor"`
	Health     *SourceHealth        `json:"health,omitempty"`
}

// SourceCatalogOptions groups dependencies for SourceCatalog.
type SourceCatalogOptions struct {
	Registry      *connector.Registry  // Required: registered connectors
	Configs       ConfigResolver       // Required for health probes
	Cache         core.CacheRepository // Optional: probe result cache
	HealthTTL     time.Duration
	HealthTimeout time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// SourceCatalog lists the available sources and probes their upstream health.
type SourceCatalog struct {
	registry      *connector.Registry
	configs       ConfigResolver
	cache         core.CacheRepository
	healthTTL     time.Duration
	healthTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewSourceCatalog constructs a SourceCatalog.
func NewSourceCatalog(opts SourceCatalogOptions) (*SourceCatalog, error) {
	if opts.Registry == nil {
		return nil, errors.New("connector Registry is required")
	}
	if opts.Configs == nil {
		return nil, errors.New("ConfigResolver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := opts.HealthTTL
	if ttl <= 0 {
		ttl = DefaultHealthTTL
	}
	timeout := opts.HealthTimeout
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SourceCatalog{
		registry:      opts.Registry,
		configs:       opts.Configs,
		cache:         opts.Cache,
		healthTTL:     ttl,
		healthTimeout: timeout,
		logger:        logger.With("component", "source_catalog"),
		now:           now,
	}, nil
}

// List returns every registered source. With withHealth set each source is probed
// concurrently; cached results within the TTL are reused.
func (c *SourceCatalog) List(ctx context.Context, withHealth bool) ([]SourceInfo, error) {
	types := c.registry.Available()
	out := make([]SourceInfo, len(types))
	for i, st := range types {
		desc, _ := c.registry.Describe(st)
		out[i] = SourceInfo{SourceType: st, Descriptor: desc}
	}
	if !withHealth {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		g.Go(func() error {
			h, err := c.Health(gctx, out[i].SourceType)
			if err != nil {
				return err
			}
			out[i].Health = &h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Health probes one source. Configuration problems report unhealthy with a reason;
// only an unknown source type or a canceled context return an error.
func (c *SourceCatalog) Health(ctx context.Context, st model.SourceType) (SourceHealth, error) {
	if !c.registry.Has(st) {
		return SourceHealth{}, &connector.UnknownSourceError{SourceType: st}
	}
	if h, ok := c.cached(ctx, st); ok {
		return h, nil
	}

	h := c.probe(ctx, st)
	if err := ctx.Err(); err != nil {
		return SourceHealth{}, err
	}
	c.store(ctx, st, h)
	return h, nil
}

func (c *SourceCatalog) probe(ctx context.Context, st model.SourceType) SourceHealth {
	h := SourceHealth{CheckedAt: c.now().UTC()}

	cfg, err := c.configs.Resolve(ctx, st)
	if err != nil {
		h.Reason = err.Error()
		return h
	}
	conn, err := c.registry.New(st, cfg)
	if err != nil {
		h.Reason = err.Error()
		return h
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.logger.WarnContext(ctx, "connector close failed", "source_type", st, "error", err)
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	h.Healthy = conn.HealthCheck(pctx)
	if !h.Healthy {
		h.Reason = "health check failed"
	}
	c.logger.DebugContext(ctx, "source probed", "source_type", st, "healthy", h.Healthy)
	return h
}

func (c *SourceCatalog) cached(ctx context.Context, st model.SourceType) (SourceHealth, bool) {
	if c.cache == nil {
		return SourceHealth{}, false
	}
	raw, err := c.cache.Get(ctx, healthCacheKeyPrefix+string(st))
	if err != nil {
		c.logger.WarnContext(ctx, "source health cache read failed", "source_type", st, "error", err)
		return SourceHealth{}, false
	}
	if raw == nil {
		return SourceHealth{}, false
	}
	var h SourceHealth
	if err := json.Unmarshal(raw, &h); err != nil {
		return SourceHealth{}, false
	}
	h.Cached = true
	return h, true
}

func (c *SourceCatalog) store(ctx context.Context, st model.SourceType, h SourceHealth) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, healthCacheKeyPrefix+string(st), raw, c.healthTTL); err != nil {
		c.logger.WarnContext(ctx, "source health cache write failed", "source_type", st, "error", err)
	}
}
