package config

import (
	"log/slog"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Postgres and Redis
//   - objectstore.go: evidence blob storage
//   - connectors.go: source credentials and connector defaults
//   - services.go: service mode, ingestion worker and reaper
//   - http.go: HTTP server
type AppConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Services is a comma-delimited list of enabled services.
	Services string `env:"SERVICES" envDefault:"http"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	ObjectStore ObjectStoreConfig
	Connectors  ConnectorsConfig
	Ingestion   IngestionConfig

	HTTP   HTTPConfig
	Reaper ReaperConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Postgres.Sanitize()
	c.ObjectStore.Sanitize()
	c.Connectors.Sanitize()
	c.Ingestion.Sanitize()
	c.HTTP.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
}

// SlogLevel maps LogLevel to a slog level; unknown values log at info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.serviceEnabled(ServiceModeHTTP) }

// IsIngestionWorkerEnabled returns true if this process consumes the ingestion queue.
func (c *AppConfig) IsIngestionWorkerEnabled() bool {
	return c.serviceEnabled(ServiceModeIngestionWorker)
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool { return c.serviceEnabled(ServiceModeReaper) }
