package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ConnectorConfig is the persisted per-source connector policy.
type ConnectorConfig struct {
	ID                 string          `json:"id"                    db:"id"                    yaml:"-"`
	Name               string          `json:"name"                  db:"name"                  yaml:"name"`
	SourceType         SourceType      `json:"source_type"           db:"source_type"           yaml:"source_type"`
	Enabled            bool            `json:"enabled"               db:"enabled"               yaml:"enabled"`
	RateLimitPerMinute *int            `json:"rate_limit_per_minute" db:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	TimeoutSeconds     int             `json:"timeout_seconds"       db:"timeout_seconds"       yaml:"timeout_seconds"`
	RetryAttempts      int             `json:"retry_attempts"        db:"retry_attempts"        yaml:"retry_attempts"`
	Settings           json.RawMessage `json:"config"                db:"config"                yaml:"-"`
	CreatedAt          time.Time       `json:"created_at"            db:"created_at"            yaml:"-"`
	UpdatedAt          time.Time       `json:"updated_at"            db:"updated_at"            yaml:"-"`
}

// UpsertConnectorConfigRequest creates or replaces the config for a source type.
type UpsertConnectorConfigRequest struct {
	Name               string
	SourceType         SourceType
	Enabled            *bool
	RateLimitPerMinute *int
	TimeoutSeconds     int
	RetryAttempts      int
	Settings           map[string]any
}

// Validate validates the UpsertConnectorConfigRequest fields.
func (r *UpsertConnectorConfigRequest) Validate() error {
	if r == nil {
		return errors.New("connector config request is required")
	}
	if !r.SourceType.Valid() {
		return errors.New("invalid source type")
	}
	if strings.TrimSpace(r.Name) == "" {
		r.Name = string(r.SourceType)
	}
	if r.RateLimitPerMinute != nil && *r.RateLimitPerMinute <= 0 {
		return errors.New("rate_limit_per_minute must be positive")
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must be >= 0")
	}
	if r.RetryAttempts < 0 {
		return errors.New("retry_attempts must be >= 0")
	}
	return nil
}

// IsEnabled resolves the optional enabled flag, defaulting to true.
func (r *UpsertConnectorConfigRequest) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}
