// Package connector defines the source connector contract, its error taxonomy,
// the per-request retry policy and the registry that materialises connectors by source type.
package connector

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/target/swift-ingestion/internal/domain/model"
)

const (
	// DefaultRateLimitPerMinute applies when a connector config does not set one.
	DefaultRateLimitPerMinute = 60
	// DefaultTimeout applies when a connector config does not set one.
	DefaultTimeout = 30 * time.Second
)

// ErrSequenceConsumed is yielded when a fetch sequence is iterated a second time.
var ErrSequenceConsumed = errors.New("fetch sequence already consumed; call Fetch again")

// Result is the normalized unit a connector yields. One Result becomes one Evidence record.
type Result struct {
	Data             any
	SourceURL        string
	SourceIdentifier string
	SourceTimestamp  *time.Time
	EvidenceType     model.EvidenceType
	Metadata         map[string]any
}

// Connector produces a lazy, ordered, finite sequence of Results from one external source.
type Connector interface {
	// ValidateConfig fails fast, without network I/O, when required settings are absent.
	ValidateConfig() error
	// Fetch returns a single-use sequence. An error element ends the sequence.
	Fetch(ctx context.Context, params Params) iter.Seq2[Result, error]
	// HealthCheck is a best-effort reachability probe. It never panics or returns an error.
	HealthCheck(ctx context.Context) bool
	RateLimit() int
	Timeout() time.Duration
	// Close releases held resources. Safe to call repeatedly and without a prior Fetch.
	Close() error
}

// Config is the resolved configuration handed to a connector factory.
type Config struct {
	APIKey             string
	APIToken           string
	ActorID            string
	BaseURL            string
	RateLimitPerMinute int
	Timeout            time.Duration
	Retry              RetryPolicy
	Settings           map[string]any

	// Optional collaborators, mostly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
	Sleep      SleepFunc
}

// WithDefaults fills unset policy values.
func (c Config) WithDefaults() Config {
	if c.RateLimitPerMinute <= 0 {
		c.RateLimitPerMinute = DefaultRateLimitPerMinute
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.Retry = c.Retry.normalized()
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Sleep == nil {
		c.Sleep = Sleep
	}
	return c
}

// Setting returns a string setting or the fallback.
func (c Config) Setting(key, fallback string) string {
	if v, ok := c.Settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Base carries the policy values and HTTP client shared by the bundled connectors.
type Base struct {
	Source model.SourceType
	Cfg    Config
	HTTP   *Client

	closeOnce sync.Once
}

// NewBase builds a Base for source with defaults applied.
func NewBase(source model.SourceType, cfg Config) *Base {
	cfg = cfg.WithDefaults()
	return &Base{
		Source: source,
		Cfg:    cfg,
		HTTP: NewClient(ClientOptions{
			Source:             string(source),
			HTTPClient:         cfg.HTTPClient,
			Timeout:            cfg.Timeout,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
			Retry:              cfg.Retry,
			Sleep:              cfg.Sleep,
			Logger:             cfg.Logger.With("component", "connector", "source_type", string(source)),
		}),
	}
}

// RateLimit returns the configured requests per minute.
func (b *Base) RateLimit() int { return b.Cfg.RateLimitPerMinute }

// Timeout returns the configured per-request timeout.
func (b *Base) Timeout() time.Duration { return b.Cfg.Timeout }

// Logger returns the connector-scoped logger.
func (b *Base) Logger() *slog.Logger { return b.HTTP.logger }

// Close drops idle connections once.
func (b *Base) Close() error {
	b.closeOnce.Do(func() {
		b.HTTP.CloseIdleConnections()
	})
	return nil
}

// SingleUse wraps seq so that only the first iteration produces items.
func SingleUse(seq iter.Seq2[Result, error]) iter.Seq2[Result, error] {
	var used bool
	var mu sync.Mutex
	return func(yield func(Result, error) bool) {
		mu.Lock()
		if used {
			mu.Unlock()
			yield(Result{}, ErrSequenceConsumed)
			return
		}
		used = true
		mu.Unlock()
		seq(yield)
	}
}

// Fail returns a sequence that yields err once.
func Fail(err error) iter.Seq2[Result, error] {
	return func(yield func(Result, error) bool) {
		yield(Result{}, err)
	}
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
