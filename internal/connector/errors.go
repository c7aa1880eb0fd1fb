package connector

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// ConfigurationError reports a required connector setting that is absent.
type ConfigurationError struct {
	Source string
	Field  string
	Hint   string
}

func (e *ConfigurationError) Error() string {
	if e.Hint != "" {
		return e.Hint
	}
	return fmt.Sprintf("%s connector requires %s", e.Source, e.Field)
}

// UnknownSourceError reports a source type with no registered connector.
type UnknownSourceError struct {
	SourceType model.SourceType
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("no connector registered for source type: %s", e.SourceType)
}

// ParameterError reports required job parameters that are absent.
type ParameterError struct {
	Source string
	Names  []string
}

func (e *ParameterError) Error() string {
	if len(e.Names) == 1 {
		return e.Names[0] + " parameter is required"
	}
	return strings.Join(e.Names, " and ") + " are required"
}

// FetchError reports an upstream request that could not be completed after retries.
type FetchError struct {
	Source     string
	Op         string
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsRateLimited reports whether the upstream answered 429.
func (e *FetchError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsUnauthorized reports whether the upstream rejected the credentials.
func (e *FetchError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// StatusCodeOf returns the upstream HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsUnknownSource reports whether err is an UnknownSourceError.
func IsUnknownSource(err error) bool {
	var ue *UnknownSourceError
	return errors.As(err, &ue)
}
