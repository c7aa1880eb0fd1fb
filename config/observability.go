package config

import (
	"net/url"
	"strings"
	"time"
)

const (
	notifierSourceName   = "swift-ingestion"
	defaultMetricsPrefix = "swift_ingestion"
)

// ObservabilityConfig covers StatsD job metrics and job-failure notifications.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Notifications ObservabilityNotificationsConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
}

// ObservabilityMetricsConfig controls ingestion.* metric emission over StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"OBSERVABILITY_METRICS_PREFIX"         envDefault:"swift_ingestion"`
}

// Sanitize trims values. Metrics switch off without an address.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), "."); c.Prefix == "" {
		c.Prefix = defaultMetricsPrefix
	}
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled reports whether job metrics should be emitted.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotificationsConfig controls notifications for jobs that end FAILED,
// whether by the worker or the stale-job reaper.
type ObservabilityNotificationsConfig struct {
	Enabled    bool          `env:"OBSERVABILITY_NOTIFICATIONS_ENABLED"     envDefault:"false"`
	Timeout    time.Duration `env:"OBSERVABILITY_NOTIFICATIONS_TIMEOUT"     envDefault:"5s"`
	RetryLimit int           `env:"OBSERVABILITY_NOTIFICATIONS_RETRY_LIMIT" envDefault:"3"`

	// DedupeTTL is how long a job id stays suppressed after its first notification,
	// so a worker failure followed by a reaper sweep pages once.
	DedupeTTL time.Duration `env:"OBSERVABILITY_NOTIFICATIONS_DEDUPE_TTL" envDefault:"24h"`

	Slack     SlackNotificationConfig     `envPrefix:"OBSERVABILITY_NOTIFICATIONS_SLACK_"`
	PagerDuty PagerDutyNotificationConfig `envPrefix:"OBSERVABILITY_NOTIFICATIONS_PAGERDUTY_"`
}

// Sanitize clamps delivery settings and turns off sinks that cannot deliver.
func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	c.RetryLimit = max(c.RetryLimit, 0)
	if c.DedupeTTL <= 0 {
		c.DedupeTTL = 24 * time.Hour
	}

	c.Slack.sanitize()
	c.PagerDuty.sanitize()
	if !c.Enabled {
		c.Slack.Enabled = false
		c.PagerDuty.Enabled = false
	}
}

// ActiveSinks names the sinks that will receive failure notifications.
func (c *ObservabilityNotificationsConfig) ActiveSinks() []string {
	var out []string
	if c.Enabled && c.Slack.Enabled {
		out = append(out, "slack")
	}
	if c.Enabled && c.PagerDuty.Enabled {
		out = append(out, "pagerduty")
	}
	return out
}

// SlackNotificationConfig posts failed-job summaries to an incoming webhook.
type SlackNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"    envDefault:"swift-ingestion"`

	// JobURLPrefix, when set, links each message to {prefix}/{job_id}.
	JobURLPrefix string `env:"JOB_URL_PREFIX"`
}

func (c *SlackNotificationConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	c.JobURLPrefix = strings.TrimRight(strings.TrimSpace(c.JobURLPrefix), "/")
	if c.Username = strings.TrimSpace(c.Username); c.Username == "" {
		c.Username = notifierSourceName
	}
	if !isHTTPURL(c.WebhookURL) {
		c.Enabled = false
	}
}

// PagerDutyNotificationConfig triggers Events API v2 incidents for failed jobs.
type PagerDutyNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	RoutingKey string `env:"ROUTING_KEY"`
	Source     string `env:"SOURCE"      envDefault:"swift-ingestion"`
	Component  string `env:"COMPONENT"   envDefault:"swift-ingestion"`
}

func (c *PagerDutyNotificationConfig) sanitize() {
	if c.RoutingKey = strings.TrimSpace(c.RoutingKey); c.RoutingKey == "" {
		c.Enabled = false
	}
	if c.Source = strings.TrimSpace(c.Source); c.Source == "" {
		c.Source = notifierSourceName
	}
	if c.Component = strings.TrimSpace(c.Component); c.Component == "" {
		c.Component = notifierSourceName
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "https" || u.Scheme == "http") && u.Host != ""
}
