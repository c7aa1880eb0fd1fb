package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/storage/objectstore"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "configuration", err: fmt.Errorf("resolve: %w", &connector.ConfigurationError{Source: "news_api", Field: "api_key"}), want: ClassConfiguration},
		{name: "unknown source", err: &connector.UnknownSourceError{SourceType: "rss_feed"}, want: ClassUnknownSource},
		{name: "parameter", err: &connector.ParameterError{Names: []string{"query"}}, want: ClassParameter},
		{name: "rate limited", err: &connector.FetchError{Source: "news_api", StatusCode: 429}, want: ClassRateLimited},
		{name: "unauthorized", err: &connector.FetchError{Source: "news_api", StatusCode: 401}, want: ClassUnauthorized},
		{name: "fetch", err: &connector.FetchError{Source: "osint_search", StatusCode: 502}, want: ClassFetch},
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), want: ClassTimeout},
		{name: "canceled", err: context.Canceled, want: ClassCanceled},
		{name: "too large", err: fmt.Errorf("persist: %w", objectstore.ErrTooLarge), want: ClassTooLarge},
		{name: "plain", err: fmt.Errorf("outer: %w", goerrors.New("inner")), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
