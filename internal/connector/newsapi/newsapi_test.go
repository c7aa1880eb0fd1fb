package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/domain/model"
)

func articles(page, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := range n {
		out = append(out, map[string]any{
			"source":      map[string]any{"id": nil, "name": "Example Wire"},
			"author":      "Reporter",
			"title":       fmt.Sprintf("Story %d-%d", page, i),
			"url":         fmt.Sprintf("https://news.example.com/%d/%d", page, i),
			"publishedAt": "2024-03-01T12:00:00Z",
		})
	}
	return out
}

type pageServer struct {
	pages []int
	hits  atomic.Int32
	last  atomic.Value
}

func (p *pageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.hits.Add(1)
	p.last.Store(r.URL.Query())
	if r.Header.Get("X-Api-Key") != "news-key" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	n := 0
	if page >= 1 && page <= len(p.pages) {
		n = p.pages[page-1]
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"totalResults": 999,
		"articles":     articles(page, n),
	})
}

func newConnector(t *testing.T, baseURL, key string, sleeps *[]time.Duration) *Connector {
	t.Helper()
	conn, err := New(connector.Config{
		APIKey:             key,
		BaseURL:            baseURL,
		RateLimitPerMinute: 600000,
		Sleep: func(ctx context.Context, d time.Duration) error {
			if sleeps != nil {
				*sleeps = append(*sleeps, d)
			}
			return ctx.Err()
		},
	})
	require.NoError(t, err)
	c := conn.(*Connector)
	c.now = func() time.Time { return time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC) }
	return c
}

func collect(t *testing.T, c *Connector, params connector.Params) ([]connector.Result, error) {
	t.Helper()
	var out []connector.Result
	for r, err := range c.Fetch(context.Background(), params) {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

func TestFetch_PaginatesUntilShortPage(t *testing.T) {
	srv := &pageServer{pages: []int{2, 2, 1}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	var sleeps []time.Duration
	c := newConnector(t, ts.URL, "news-key", &sleeps)
	results, err := collect(t, c, connector.Params{"query": "acme", "page_size": 2})
	require.NoError(t, err)

	assert.Len(t, results, 5)
	assert.EqualValues(t, 3, srv.hits.Load())
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second}, sleeps)

	first := results[0]
	assert.Equal(t, "https://news.example.com/1/0", first.SourceURL)
	assert.Equal(t, first.SourceURL, first.SourceIdentifier)
	assert.Equal(t, model.EvidenceTypeNewsArticle, first.EvidenceType)
	assert.Equal(t, "Example Wire", first.Metadata["source_name"])
	assert.Equal(t, "acme", first.Metadata["query"])
	require.NotNil(t, first.SourceTimestamp)

	q := srv.last.Load().(url.Values)
	assert.Equal(t, "2024-03-01", q["from"][0])
	assert.Equal(t, "2024-03-31", q["to"][0])
	assert.Equal(t, "relevancy", q["sortBy"][0])
}

func TestFetch_StopsAtMaxArticles(t *testing.T) {
	srv := &pageServer{pages: []int{3, 3, 3}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := newConnector(t, ts.URL, "news-key", nil)
	results, err := collect(t, c, connector.Params{"query": "acme", "page_size": 3, "max_articles": 4})
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.EqualValues(t, 2, srv.hits.Load())
}

func TestFetch_EmptyFirstPage(t *testing.T) {
	srv := &pageServer{}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := newConnector(t, ts.URL, "news-key", nil)
	results, err := collect(t, c, connector.Params{"query": "nothing"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.EqualValues(t, 1, srv.hits.Load())
}

func TestFetch_ConsumerStopsEarly(t *testing.T) {
	srv := &pageServer{pages: []int{5}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := newConnector(t, ts.URL, "news-key", nil)
	n := 0
	for _, err := range c.Fetch(context.Background(), connector.Params{"query": "acme", "page_size": 5}) {
		require.NoError(t, err)
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestFetch_Unauthorized(t *testing.T) {
	srv := &pageServer{pages: []int{1}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := newConnector(t, ts.URL, "wrong", nil)
	_, err := collect(t, c, connector.Params{"query": "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid News API key")
	assert.Equal(t, http.StatusUnauthorized, connector.StatusCodeOf(err))
}

func TestFetch_StatusNotOK(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"status":"error","message":"parameterInvalid"}`))
	}))
	defer ts.Close()

	c := newConnector(t, ts.URL, "news-key", nil)
	_, err := collect(t, c, connector.Params{"query": "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "News API error: parameterInvalid")
	assert.EqualValues(t, 3, hits.Load())
}

func TestFetch_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := newConnector(t, ts.URL, "news-key", nil)
	_, err := collect(t, c, connector.Params{"query": "acme"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "News API rate limit exceeded")
}

func TestValidateConfig(t *testing.T) {
	conn, err := New(connector.Config{})
	require.NoError(t, err)
	err = conn.ValidateConfig()
	assert.True(t, connector.IsConfigurationError(err))
	assert.EqualError(t, err, "News API key is required. Get one free at https://newsapi.org/register")
	assert.Equal(t, DefaultRateLimit, conn.RateLimit())
}

func TestNormalizeDomains(t *testing.T) {
	got := NormalizeDomains([]string{"www.Reuters.com", "https://bbc.co.uk/news", "reuters.com", " ", "localhost"})
	assert.Equal(t, []string{"reuters.com", "bbc.co.uk", "localhost"}, got)
}
