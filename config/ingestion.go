package config

import (
	"strings"
	"time"
)

// IngestionConfig controls the ingestion worker pool and evidence limits.
type IngestionConfig struct {
	// Workers is the number of jobs executed concurrently by one process.
	Workers int `env:"INGESTION_WORKERS" envDefault:"4"`

	// Timeout is the per-job time limit. The reaper fails running jobs older than this.
	Timeout time.Duration `env:"INGESTION_TIMEOUT" envDefault:"300s"`

	QueueName   string        `env:"INGESTION_QUEUE_NAME"   envDefault:"swift:ingestion"`
	PollTimeout time.Duration `env:"INGESTION_POLL_TIMEOUT" envDefault:"5s"`

	MaxFileSizeMB int `env:"MAX_FILE_SIZE_MB" envDefault:"100"`

	// RetentionDays is recorded on evidence metadata. Nothing deletes evidence on expiry.
	RetentionDays int `env:"EVIDENCE_RETENTION_DAYS" envDefault:"365"`
}

// Sanitize applies guardrails to ingestion configuration values.
func (c *IngestionConfig) Sanitize() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = 300 * time.Second
	}
	if c.QueueName = strings.TrimSpace(c.QueueName); c.QueueName == "" {
		c.QueueName = "swift:ingestion"
	}
	if c.PollTimeout < time.Second {
		c.PollTimeout = time.Second
	}
	if c.MaxFileSizeMB < 1 {
		c.MaxFileSizeMB = 1
	}
	if c.RetentionDays < 0 {
		c.RetentionDays = 0
	}
}

// MaxFileSizeBytes returns MaxFileSizeMB in bytes.
func (c *IngestionConfig) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}
