// Package errors classifies ingestion failures into short, stable names for metric tags,
// notification payloads and job error_details.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/storage/objectstore"
)

// Well-known classes.
const (
	ClassConfiguration = "configuration_error"
	ClassUnknownSource = "unknown_source"
	ClassParameter     = "parameter_error"
	ClassRateLimited   = "rate_limited"
	ClassUnauthorized  = "unauthorized"
	ClassFetch         = "fetch_error"
	ClassTimeout       = "timeout"
	ClassCanceled      = "canceled"
	ClassTooLarge      = "evidence_too_large"
	ClassUnknown       = "unknown"
)

// Classify returns a normalized error type name suitable for tagging metrics/logs.
// Connector and storage errors map to fixed classes; anything else is named after the
// innermost concrete type in snake_case-ish form.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var (
		cfgErr     *connector.ConfigurationError
		unknownErr *connector.UnknownSourceError
		paramErr   *connector.ParameterError
		fetchErr   *connector.FetchError
	)
	switch {
	case goerrors.As(err, &cfgErr):
		return ClassConfiguration
	case goerrors.As(err, &unknownErr):
		return ClassUnknownSource
	case goerrors.As(err, &paramErr):
		return ClassParameter
	case goerrors.As(err, &fetchErr):
		switch {
		case fetchErr.IsRateLimited():
			return ClassRateLimited
		case fetchErr.IsUnauthorized():
			return ClassUnauthorized
		}
		return ClassFetch
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	case goerrors.Is(err, objectstore.ErrTooLarge):
		return ClassTooLarge
	}

	return typeName(err)
}

func typeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ClassUnknown
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return ClassUnknown
	}
	return name
}
