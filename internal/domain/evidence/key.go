// Package evidence holds the content-addressing rules for stored evidence blobs.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const keyPrefix = "evidence"

// ErrMalformedKey is returned when an object key does not follow the evidence layout.
var ErrMalformedKey = errors.New("malformed evidence object key")

// Key is the parsed form of evidence/{source_type}/{yyyy}/{mm}/{dd}/{job_id}/{evidence_id}.{ext}.
type Key struct {
	SourceType string
	Date       time.Time
	JobID      string
	EvidenceID string
	Extension  string
}

// String renders the key. The date is always formatted in UTC.
func (k Key) String() string {
	ext := strings.TrimPrefix(k.Extension, ".")
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s",
		keyPrefix,
		k.SourceType,
		k.Date.UTC().Format("2006/01/02"),
		k.JobID,
		k.EvidenceID,
		ext,
	)
}

// NewKey builds the object key for an evidence item ingested at the given time.
func NewKey(jobID, sourceType, evidenceID, extension string, at time.Time) Key {
	return Key{
		SourceType: sourceType,
		Date:       at.UTC(),
		JobID:      jobID,
		EvidenceID: evidenceID,
		Extension:  strings.TrimPrefix(extension, "."),
	}
}

// GenerateObjectKey returns the object key string for the current UTC date.
func GenerateObjectKey(jobID, sourceType, evidenceID, extension string) string {
	return NewKey(jobID, sourceType, evidenceID, extension, time.Now()).String()
}

// ParseKey splits an object key back into its components.
func ParseKey(objectKey string) (Key, error) {
	parts := strings.Split(objectKey, "/")
	if len(parts) != 7 || parts[0] != keyPrefix {
		return Key{}, fmt.Errorf("%w: %q", ErrMalformedKey, objectKey)
	}
	for _, p := range parts[1:] {
		if p == "" {
			return Key{}, fmt.Errorf("%w: empty segment in %q", ErrMalformedKey, objectKey)
		}
	}

	date, err := time.ParseInLocation("2006/01/02", strings.Join(parts[2:5], "/"), time.UTC)
	if err != nil {
		return Key{}, fmt.Errorf("%w: bad date in %q", ErrMalformedKey, objectKey)
	}

	file := parts[6]
	dot := strings.LastIndex(file, ".")
	if dot <= 0 || dot == len(file)-1 {
		return Key{}, fmt.Errorf("%w: missing extension in %q", ErrMalformedKey, objectKey)
	}

	return Key{
		SourceType: parts[1],
		Date:       date,
		JobID:      parts[5],
		EvidenceID: file[:dot],
		Extension:  file[dot+1:],
	}, nil
}

// Checksum returns the lowercase hex SHA-256 digest of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ValidChecksum reports whether s looks like a lowercase hex SHA-256 digest.
func ValidChecksum(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
