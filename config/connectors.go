package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// ConnectorsConfig carries source credentials and connector defaults.
type ConnectorsConfig struct {
	OpenCorporatesAPIKey string `env:"OPENCORPORATES_API_KEY"`
	NewsAPIKey           string `env:"NEWS_API_KEY"`
	ApifyAPIToken        string `env:"APIFY_API_TOKEN"`
	OSINTActorID         string `env:"OSINT_ACTOR_ID"         envDefault:"mqNu8WBvuKXgZRt4M"`

	DefaultRateLimit int           `env:"CONNECTOR_DEFAULT_RATE_LIMIT" envDefault:"60"`
	DefaultTimeout   time.Duration `env:"CONNECTOR_DEFAULT_TIMEOUT"    envDefault:"30s"`

	// Base URL overrides, mostly for tests and egress proxies.
	OpenCorporatesBaseURL string `env:"OPENCORPORATES_BASE_URL"`
	NewsAPIBaseURL        string `env:"NEWS_API_BASE_URL"`
	ApifyBaseURL          string `env:"APIFY_BASE_URL"`

	// File is an optional YAML file of connector_configs rows applied at startup.
	File string `env:"CONNECTORS_FILE"`
}

// Sanitize trims credentials and enforces positive defaults.
func (c *ConnectorsConfig) Sanitize() {
	c.OpenCorporatesAPIKey = strings.TrimSpace(c.OpenCorporatesAPIKey)
	c.NewsAPIKey = strings.TrimSpace(c.NewsAPIKey)
	c.ApifyAPIToken = strings.TrimSpace(c.ApifyAPIToken)
	if c.OSINTActorID = strings.TrimSpace(c.OSINTActorID); c.OSINTActorID == "" {
		c.OSINTActorID = "mqNu8WBvuKXgZRt4M"
	}
	if c.DefaultRateLimit < 1 {
		c.DefaultRateLimit = 60
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	c.File = strings.TrimSpace(c.File)
}

// BaseURLs returns the non-empty base URL overrides keyed by source type.
func (c *ConnectorsConfig) BaseURLs() map[model.SourceType]string {
	out := make(map[model.SourceType]string)
	add := func(st model.SourceType, v string) {
		if v = strings.TrimSpace(v); v != "" {
			out[st] = v
		}
	}
	add(model.SourceTypeOpenCorporates, c.OpenCorporatesBaseURL)
	add(model.SourceTypeNewsAPI, c.NewsAPIBaseURL)
	add(model.SourceTypeOSINTSearch, c.ApifyBaseURL)
	return out
}

// ConnectorsFile is the YAML document accepted by CONNECTORS_FILE and `connectors import`.
//
//	connectors:
//	  - source_type: news_api
//	    rate_limit_per_minute: 30
//	    config:
//	      language: en
type ConnectorsFile struct {
	Connectors []ConnectorEntry `yaml:"connectors"`
}

// ConnectorEntry is one connectors file entry. SourceType stays a plain string so an
// unknown value is reported against its entry index instead of failing the whole decode.
type ConnectorEntry struct {
	Name               string         `yaml:"name"`
	SourceType         string         `yaml:"source_type"`
	Enabled            *bool          `yaml:"enabled"`
	RateLimitPerMinute *int           `yaml:"rate_limit_per_minute"`
	TimeoutSeconds     int            `yaml:"timeout_seconds"`
	RetryAttempts      int            `yaml:"retry_attempts"`
	Settings           map[string]any `yaml:"config"`
}

func (e ConnectorEntry) request() *model.UpsertConnectorConfigRequest {
	return &model.UpsertConnectorConfigRequest{
		Name:               strings.TrimSpace(e.Name),
		SourceType:         model.SourceType(strings.ToLower(strings.TrimSpace(e.SourceType))),
		Enabled:            e.Enabled,
		RateLimitPerMinute: e.RateLimitPerMinute,
		TimeoutSeconds:     e.TimeoutSeconds,
		RetryAttempts:      e.RetryAttempts,
		Settings:           e.Settings,
	}
}

// LoadConnectorsFile reads and validates a connectors YAML file.
func LoadConnectorsFile(path string) ([]*model.UpsertConnectorConfigRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connectors file: %w", err)
	}
	return ParseConnectorsFile(raw)
}

// ParseConnectorsFile decodes a connectors YAML document. Unknown keys are rejected.
func ParseConnectorsFile(raw []byte) ([]*model.UpsertConnectorConfigRequest, error) {
	var doc ConnectorsFile
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse connectors file: %w", err)
	}
	if len(doc.Connectors) == 0 {
		return nil, errors.New("connectors file has no connectors")
	}

	reqs := make([]*model.UpsertConnectorConfigRequest, 0, len(doc.Connectors))
	seen := make(map[model.SourceType]int, len(doc.Connectors))
	for i, entry := range doc.Connectors {
		req := entry.request()
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("connector %d: %w", i, err)
		}
		if prev, dup := seen[req.SourceType]; dup {
			return nil, fmt.Errorf("connector %d: source_type %s already defined by connector %d", i, req.SourceType, prev)
		}
		seen[req.SourceType] = i
		reqs = append(reqs, req)
	}
	return reqs, nil
}
