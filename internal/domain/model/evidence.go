package model

import (
	"encoding/json"
	"time"
)

// EvidenceType classifies a stored evidence item.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type EvidenceType string

const (
	EvidenceTypeCompanyRecord EvidenceType = "company_record"
	EvidenceTypeNewsArticle   EvidenceType = "news_article"
	EvidenceTypeLegalDocument EvidenceType = "legal_document"
	EvidenceTypeWebPage       EvidenceType = "web_page"
	EvidenceTypePDFDocument   EvidenceType = "pdf_document"
	EvidenceTypeImage         EvidenceType = "image"
	EvidenceTypeRawData       EvidenceType = "raw_data"
)

// ProcessingStatusRaw is the processing status assigned to newly ingested evidence.
const ProcessingStatusRaw = "raw"

// Valid returns true if the EvidenceType is a known value.
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceTypeCompanyRecord, EvidenceTypeNewsArticle, EvidenceTypeLegalDocument,
		EvidenceTypeWebPage, EvidenceTypePDFDocument, EvidenceTypeImage, EvidenceTypeRawData:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for EvidenceType.
func (t *EvidenceType) UnmarshalText(text []byte) error {
	v := EvidenceType(string(text))
	if !v.Valid() {
		v = EvidenceTypeRawData
	}
	*t = v
	return nil
}

// Evidence is one persisted, checksummed unit of fetched data tied to a job.
type Evidence struct {
	ID                string          `json:"id"                           db:"id"`
	JobID             string          `json:"job_id"                       db:"job_id"`
	SourceType        SourceType      `json:"source_type"                  db:"source_type"`
	SourceURL         *string         `json:"source_url"                   db:"source_url"`
	SourceIdentifier  *string         `json:"source_identifier"            db:"source_identifier"`
	ObjectKey         string          `json:"object_key"                   db:"object_key"`
	Checksum          string          `json:"checksum"                     db:"checksum"`
	FileSizeBytes     int64           `json:"file_size_bytes"              db:"file_size_bytes"`
	ContentType       string          `json:"content_type"                 db:"content_type"`
	EvidenceType      EvidenceType    `json:"evidence_type"                db:"evidence_type"`
	IngestedAt        time.Time       `json:"ingested_at"                  db:"ingested_at"`
	SourceTimestamp   *time.Time      `json:"source_timestamp"             db:"source_timestamp"`
	Metadata          json.RawMessage `json:"metadata"                     db:"metadata"`
	ProcessingStatus  string          `json:"processing_status"            db:"processing_status"`
	ExtractionVersion *string         `json:"extraction_version,omitempty" db:"extraction_version"`
}

// EvidenceListOptions paginates evidence listed for a job.
type EvidenceListOptions struct {
	JobID  string
	Limit  int
	Offset int
}
