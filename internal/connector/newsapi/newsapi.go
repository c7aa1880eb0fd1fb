// Package newsapi pages news articles out of the newsapi.org "everything" endpoint.
package newsapi

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/domain/model"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://newsapi.org/v2"
	// DefaultRateLimit matches the free tier.
	DefaultRateLimit = 6

	defaultPageSize    = 20
	defaultMaxArticles = 100
	defaultSortBy      = "relevancy"
	defaultLookback    = 30 * 24 * time.Hour
	pageDelay          = 10 * time.Second
	dateLayout         = "2006-01-02"
	userAgent          = "SWIFT-Ingestion/1.0"

	keyHint         = "News API key is required. Get one free at https://newsapi.org/register"
	unauthorizedMsg = "Invalid News API key. Get one at https://newsapi.org/register"
	rateLimitedMsg  = "News API rate limit exceeded. Free tier: 1000 requests/day"
)

// Descriptor is the catalog entry for this source.
var Descriptor = connector.Descriptor{
	Name:             "News API",
	Description:      "News articles about companies, people, events and topics from newsapi.org.",
	FreeTier:         "1000 requests/day, 100 requests/15 minutes",
	DefaultRateLimit: DefaultRateLimit,
	Parameters: []connector.ParameterDoc{
		{Name: "query", Required: true, Description: "Search query: company name, person or topic"},
		{Name: "from_date", Description: "Start date YYYY-MM-DD (default 30 days ago)"},
		{Name: "to_date", Description: "End date YYYY-MM-DD (default today)"},
		{Name: "language", Description: "Language code, e.g. en"},
		{Name: "sort_by", Description: "relevancy, popularity or publishedAt"},
		{Name: "domains", Description: "Comma-separated domains to restrict the search to"},
		{Name: "page_size", Description: "Results per page, max 100 (default 20)"},
		{Name: "max_articles", Description: "Upper bound on yielded articles (default 100)"},
	},
	Example: map[string]any{"query": "Acme Holdings sanctions", "language": "en"},
}

type response struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []map[string]any `json:"articles"`
}

func (r *response) check() error {
	if r.Status == "ok" {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = "Unknown error"
	}
	return fmt.Errorf("News API error: %s", msg)
}

// Connector searches articles page by page.
type Connector struct {
	*connector.Base
	apiKey  string
	baseURL string
	now     func() time.Time
}

// New is the registry factory.
func New(cfg connector.Config) (connector.Connector, error) {
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = DefaultRateLimit
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Connector{
		Base:    connector.NewBase(model.SourceTypeNewsAPI, cfg),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: base,
		now:     time.Now,
	}, nil
}

// ValidateConfig requires an API key.
func (c *Connector) ValidateConfig() error {
	if c.apiKey == "" {
		return &connector.ConfigurationError{Source: string(model.SourceTypeNewsAPI), Field: "api_key", Hint: keyHint}
	}
	return nil
}

type search struct {
	query       string
	values      url.Values
	pageSize    int
	maxArticles int
}

func (c *Connector) buildSearch(params connector.Params) search {
	today := c.now().UTC()
	pageSize := params.Int("page_size", defaultPageSize)
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, 100)

	q := url.Values{}
	q.Set("q", params.String("query"))
	q.Set("from", params.StringOr("from_date", today.Add(-defaultLookback).Format(dateLayout)))
	q.Set("to", params.StringOr("to_date", today.Format(dateLayout)))
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("sortBy", params.StringOr("sort_by", defaultSortBy))
	if lang := params.String("language"); lang != "" {
		q.Set("language", lang)
	}
	if domains := NormalizeDomains(params.Strings("domains")); len(domains) > 0 {
		q.Set("domains", strings.Join(domains, ","))
	}

	return search{
		query:       params.String("query"),
		values:      q,
		pageSize:    pageSize,
		maxArticles: params.Int("max_articles", defaultMaxArticles),
	}
}

// Fetch yields news_article results until an empty or short page, or max_articles.
func (c *Connector) Fetch(ctx context.Context, params connector.Params) iter.Seq2[connector.Result, error] {
	return connector.SingleUse(func(yield func(connector.Result, error) bool) {
		if err := params.Require(string(model.SourceTypeNewsAPI), "query"); err != nil {
			yield(connector.Result{}, err)
			return
		}
		s := c.buildSearch(params)
		log := c.Logger().With("query", s.query)

		fetched := 0
		for page := 1; ; page++ {
			if page > 1 {
				if err := c.Cfg.Sleep(ctx, pageDelay); err != nil {
					yield(connector.Result{}, err)
					return
				}
			}

			s.values.Set("page", strconv.Itoa(page))
			var resp response
			if err := c.get(ctx, "everything", s.values, &resp); err != nil {
				yield(connector.Result{}, err)
				return
			}
			if page == 1 {
				log.InfoContext(ctx, "news search started", "total_results", resp.TotalResults)
			}
			if len(resp.Articles) == 0 {
				return
			}

			for _, article := range resp.Articles {
				if fetched >= s.maxArticles {
					log.InfoContext(ctx, "reached max articles", "max_articles", s.maxArticles)
					return
				}
				if !yield(toResult(article, s.query), nil) {
					return
				}
				fetched++
			}

			if len(resp.Articles) < s.pageSize || fetched >= s.maxArticles {
				return
			}
		}
	})
}

func toResult(article map[string]any, query string) connector.Result {
	articleURL := connector.StringField(article, "url")
	publishedAt := connector.StringField(article, "publishedAt")
	var sourceName any
	if src, ok := article["source"].(map[string]any); ok {
		sourceName = src["name"]
	}
	return connector.Result{
		Data:             article,
		SourceURL:        articleURL,
		SourceIdentifier: articleURL,
		SourceTimestamp:  connector.ParseTimestamp(publishedAt),
		EvidenceType:     model.EvidenceTypeNewsArticle,
		Metadata: map[string]any{
			"source_name":  sourceName,
			"author":       article["author"],
			"title":        article["title"],
			"description":  article["description"],
			"published_at": article["publishedAt"],
			"query":        query,
		},
	}
}

// HealthCheck runs a one-article search.
func (c *Connector) HealthCheck(ctx context.Context) bool {
	q := url.Values{}
	q.Set("q", "test")
	q.Set("pageSize", "1")
	var resp response
	if err := c.get(ctx, "health", q, &resp); err != nil {
		c.Logger().WarnContext(ctx, "health check failed", "error", err)
		return false
	}
	return true
}

func (c *Connector) get(ctx context.Context, op string, q url.Values, resp *response) error {
	err := c.HTTP.Do(ctx, connector.Request{
		Op:     op,
		Method: http.MethodGet,
		URL:    c.baseURL + "/everything?" + q.Encode(),
		Header: http.Header{"X-Api-Key": {c.apiKey}, "User-Agent": {userAgent}},
		Check:  resp.check,
	}, resp)
	return explain(err)
}

// explain swaps credential and quota failures for operator-facing messages.
func explain(err error) error {
	var fe *connector.FetchError
	if !errors.As(err, &fe) {
		return err
	}
	switch {
	case fe.StatusCode == http.StatusUnauthorized:
		return &connector.FetchError{Source: fe.Source, Op: fe.Op, URL: fe.URL, StatusCode: fe.StatusCode, Message: unauthorizedMsg}
	case fe.IsRateLimited():
		return &connector.FetchError{Source: fe.Source, Op: fe.Op, URL: fe.URL, StatusCode: fe.StatusCode, Message: rateLimitedMsg}
	}
	return err
}

// NormalizeDomains lowercases each domain and reduces it to its registrable form (eTLD+1).
func NormalizeDomains(domains []string) []string {
	seen := make(map[string]struct{}, len(domains))
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(strings.TrimPrefix(d, "https://"), "http://")
		if i := strings.IndexAny(d, "/:"); i >= 0 {
			d = d[:i]
		}
		if d == "" {
			continue
		}
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(d); err == nil {
			d = etld1
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
