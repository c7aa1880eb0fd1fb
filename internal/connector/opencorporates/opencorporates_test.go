package opencorporates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/domain/model"
)

const searchBody = `{"results":{"companies":[
	{"company":{"name":"Acme Ltd","company_number":"123","jurisdiction_code":"gb","current_status":"Active"}},
	{"company":{"name":"No Number","jurisdiction_code":"gb"}},
	{"company":{"name":"Acme Inc","company_number":"456","jurisdiction_code":"us_de","current_status":"Dissolved"}}
]}}`

func testConfig(baseURL string, sleeps *[]time.Duration) connector.Config {
	return connector.Config{
		APIKey:             "oc-key",
		BaseURL:            baseURL,
		RateLimitPerMinute: 600000,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return ctx.Err()
		},
	}
}

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/companies/search", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "oc-key", r.URL.Query().Get("api_token"))
		assert.Equal(t, "Acme", r.URL.Query().Get("q"))
		assert.Equal(t, "30", r.URL.Query().Get("per_page"))
		assert.Equal(t, "false", r.URL.Query().Get("inactive"))
		_, _ = w.Write([]byte(searchBody))
	})
	mux.HandleFunc("/companies/gb/123", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"results":{"company":{"name":"Acme Ltd","company_number":"123","created_at":"2020-05-01T10:00:00Z"}}}`))
	})
	mux.HandleFunc("/companies/us_de/456", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"results":{"company":{"name":"Acme Inc","company_number":"456"}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_YieldsCompleteCompanies(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, &hits)
	var sleeps []time.Duration

	conn, err := New(testConfig(srv.URL, &sleeps))
	require.NoError(t, err)
	require.NoError(t, conn.ValidateConfig())
	defer conn.Close()

	var results []connector.Result
	for r, err := range conn.Fetch(context.Background(), connector.Params{"company_name": "Acme"}) {
		require.NoError(t, err)
		results = append(results, r)
	}

	require.Len(t, results, 2)
	first := results[0]
	assert.Equal(t, "https://opencorporates.com/companies/gb/123", first.SourceURL)
	assert.Equal(t, "gb/123", first.SourceIdentifier)
	assert.Equal(t, model.EvidenceTypeCompanyRecord, first.EvidenceType)
	require.NotNil(t, first.SourceTimestamp)
	assert.True(t, first.SourceTimestamp.Equal(time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Acme Ltd", first.Metadata["company_name"])
	assert.Equal(t, "Active", first.Metadata["status"])
	assert.Equal(t, "us_de/456", results[1].SourceIdentifier)
	assert.Nil(t, results[1].SourceTimestamp)

	assert.EqualValues(t, 3, hits.Load())
	assert.Equal(t, []time.Duration{time.Second}, sleeps)
}

func TestFetch_RequiresCompanyName(t *testing.T) {
	conn, err := New(testConfig("http://127.0.0.1:1", nil))
	require.NoError(t, err)

	var errs []error
	for _, err := range conn.Fetch(context.Background(), connector.Params{}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	var pe *connector.ParameterError
	require.ErrorAs(t, errs[0], &pe)
	assert.EqualError(t, errs[0], "company_name parameter is required")
}

func TestFetch_UpstreamFailureEndsSequence(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	conn, err := New(testConfig(srv.URL, nil))
	require.NoError(t, err)

	var errs []error
	for _, err := range conn.Fetch(context.Background(), connector.Params{"company_name": "Acme"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.Equal(t, http.StatusInternalServerError, connector.StatusCodeOf(errs[0]))
	assert.EqualValues(t, 3, hits.Load())
}

func TestValidateConfig_MissingKey(t *testing.T) {
	conn, err := New(connector.Config{})
	require.NoError(t, err)
	err = conn.ValidateConfig()
	assert.True(t, connector.IsConfigurationError(err))
	assert.EqualError(t, err, "OpenCorporates API key is required")
	assert.Equal(t, connector.DefaultRateLimitPerMinute, conn.RateLimit())
	assert.Equal(t, connector.DefaultTimeout, conn.Timeout())
	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
}

func TestHealthCheck(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("per_page") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"results":{"companies":[]}}`))
	}))
	defer srv.Close()

	conn, err := New(testConfig(srv.URL, nil))
	require.NoError(t, err)
	assert.True(t, conn.HealthCheck(context.Background()))

	srv.Close()
	assert.False(t, conn.HealthCheck(context.Background()))
}
