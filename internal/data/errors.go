package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrJobNotFound             = errors.New("ingestion job not found")
	ErrEvidenceNotFound        = errors.New("evidence not found")
	ErrConnectorConfigNotFound = errors.New("connector config not found")
	ErrJobIDRequired           = errors.New("job_id is required")
)
