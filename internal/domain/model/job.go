// Package model defines the core data types shared by the ingestion service.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies the external source a job ingests from.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type SourceType string

// JobStatus represents the current status of an ingestion job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// SourceTypeOpenCorporates is the company registry lookup source.
	SourceTypeOpenCorporates SourceType = "opencorporates"
	// SourceTypeNewsAPI is the paginated news search source.
	SourceTypeNewsAPI SourceType = "news_api"
	// SourceTypeOSINTSearch is the long-running OSINT actor source.
	SourceTypeOSINTSearch SourceType = "osint_search"
	// SourceTypeRSSFeed is reserved; no connector is shipped for it.
	SourceTypeRSSFeed SourceType = "rss_feed"
	// SourceTypeWebScraper is reserved; no connector is shipped for it.
	SourceTypeWebScraper SourceType = "web_scraper"
	// SourceTypeManualUpload is reserved; no connector is shipped for it.
	SourceTypeManualUpload SourceType = "manual_upload"

	// JobStatusPending indicates a job is waiting to be executed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates a job is being executed.
	JobStatusRunning JobStatus = "running"
	// JobStatusSuccess indicates every fetched item was stored.
	JobStatusSuccess JobStatus = "success"
	// JobStatusFailed indicates the run aborted or no item could be stored.
	JobStatusFailed JobStatus = "failed"
	// JobStatusPartial indicates some but not all items were stored.
	JobStatusPartial JobStatus = "partial"
	// JobStatusCancelled is reserved for external actors; the service never sets it.
	JobStatusCancelled JobStatus = "cancelled"
)

// ErrInvalidJobID is returned when a job identifier is not a UUID.
var ErrInvalidJobID = errors.New("job id must be a valid UUID")

// SourceTypes returns every known source type in declaration order.
func SourceTypes() []SourceType {
	return []SourceType{
		SourceTypeOpenCorporates,
		SourceTypeNewsAPI,
		SourceTypeOSINTSearch,
		SourceTypeRSSFeed,
		SourceTypeWebScraper,
		SourceTypeManualUpload,
	}
}

// Valid returns true if the SourceType is a known value.
func (s SourceType) Valid() bool {
	switch s {
	case SourceTypeOpenCorporates, SourceTypeNewsAPI, SourceTypeOSINTSearch,
		SourceTypeRSSFeed, SourceTypeWebScraper, SourceTypeManualUpload:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for SourceType to allow env and query parsing.
func (s *SourceType) UnmarshalText(text []byte) error {
	v := SourceType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid SourceType: %q", v)
	}
	*s = v
	return nil
}

// Valid returns true if the JobStatus is a known value.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusSuccess,
		JobStatusFailed, JobStatusPartial, JobStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition is defined out of the status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSuccess, JobStatusFailed, JobStatusPartial, JobStatusCancelled:
		return true
	case JobStatusPending, JobStatusRunning:
		return false
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// JobCounts holds the per-run item counters.
type JobCounts struct {
	Total      int `json:"total_items"`
	Successful int `json:"successful_items"`
	Failed     int `json:"failed_items"`
}

// Balanced reports whether every counted item was either stored or failed.
func (c JobCounts) Balanced() bool {
	return c.Total == c.Successful+c.Failed
}

// Job represents one ingestion run against a single source with fixed parameters.
type Job struct {
	ID              string          `json:"id"                         db:"id"`
	SourceType      SourceType      `json:"source_type"                db:"source_type"`
	Status          JobStatus       `json:"status"                     db:"status"`
	Parameters      json.RawMessage `json:"parameters"                 db:"parameters"`
	CaseID          *string         `json:"case_id"                    db:"case_id"`
	CreatedAt       time.Time       `json:"created_at"                 db:"created_at"`
	StartedAt       *time.Time      `json:"started_at"                 db:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at"               db:"completed_at"`
	TotalItems      int             `json:"total_items"                db:"total_items"`
	SuccessfulItems int             `json:"successful_items"           db:"successful_items"`
	FailedItems     int             `json:"failed_items"               db:"failed_items"`
	ErrorMessage    *string         `json:"error_message"              db:"error_message"`
	ErrorDetails    json.RawMessage `json:"error_details,omitempty"    db:"error_details"`
	Metadata        json.RawMessage `json:"metadata"                   db:"metadata"`
	ExternalTaskID  *string         `json:"external_task_id"           db:"external_task_id"`
}

// Counts returns the job counters as a JobCounts value.
func (j *Job) Counts() JobCounts {
	if j == nil {
		return JobCounts{}
	}
	return JobCounts{Total: j.TotalItems, Successful: j.SuccessfulItems, Failed: j.FailedItems}
}

// ParameterMap decodes the job parameters into a generic map.
func (j *Job) ParameterMap() (map[string]any, error) {
	out := map[string]any{}
	if j == nil || len(j.Parameters) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(j.Parameters, &out); err != nil {
		return nil, fmt.Errorf("decode job parameters: %w", err)
	}
	return out, nil
}

// CreateJobRequest represents a request to create a new ingestion job.
type CreateJobRequest struct {
	SourceType SourceType      `json:"source_type"`
	Parameters json.RawMessage `json:"parameters"`
	CaseID     *string         `json:"case_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r == nil {
		return errors.New("create job request is required")
	}
	if !r.SourceType.Valid() {
		return fmt.Errorf("invalid source type %q", r.SourceType)
	}
	if len(r.Parameters) == 0 {
		return errors.New("parameters are required")
	}
	if !isJSONObject(r.Parameters) {
		return errors.New("parameters must be a JSON object")
	}
	if len(r.Metadata) > 0 && !isJSONObject(r.Metadata) {
		return errors.New("metadata must be a JSON object")
	}
	if r.CaseID != nil && *r.CaseID != "" {
		if _, err := uuid.Parse(*r.CaseID); err != nil {
			return errors.New("case id must be a valid UUID")
		}
	}
	return nil
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]any
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

// ValidateJobID checks that id is a UUID.
func ValidateJobID(id string) error {
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return ErrInvalidJobID
	}
	return nil
}

// JobListOptions represents filtering and pagination for listing jobs.
type JobListOptions struct {
	Status     *JobStatus
	SourceType *SourceType
	CaseID     *string
	Limit      int
	Offset     int
}

// StatusUpdate describes a guarded status transition.
// The update only applies when the stored status equals From.
type StatusUpdate struct {
	From         JobStatus
	To           JobStatus
	Counts       *JobCounts
	ErrorMessage *string
	ErrorDetails map[string]any
}

// JobStats is the statistics view for a single job.
type JobStats struct {
	JobID            string    `json:"job_id"`
	Status           JobStatus `json:"status"`
	DurationSeconds  *float64  `json:"duration_seconds"`
	TotalItems       int       `json:"total_items"`
	SuccessfulItems  int       `json:"successful_items"`
	FailedItems      int       `json:"failed_items"`
	AvgItemSizeBytes *float64  `json:"avg_item_size_bytes"`
	TotalSizeBytes   int64     `json:"total_size_bytes"`
}

// Duration returns completed−started in seconds, or nil when either timestamp is unset.
func Duration(startedAt, completedAt *time.Time) *float64 {
	if startedAt == nil || completedAt == nil {
		return nil
	}
	d := completedAt.Sub(*startedAt).Seconds()
	return &d
}
