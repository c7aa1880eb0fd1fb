// Package opencorporates fetches company registration records from the OpenCorporates API.
package opencorporates

import (
	"context"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/domain/model"
)

const (
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.opencorporates.com/v0.4"
	siteURL        = "https://opencorporates.com/companies"
	perPage        = 30
	itemDelay      = time.Second
	userAgent      = "SWIFT-Ingestion/1.0"
)

var (
	companiesExpr = connector.MustCompile("results.companies[].company")
	detailExpr    = connector.MustCompile("results.company")
)

// Descriptor is the catalog entry for this source.
var Descriptor = connector.Descriptor{
	Name:        "OpenCorporates",
	Description: "Company registration data, officers and filings from official registries.",
	Parameters: []connector.ParameterDoc{
		{Name: "company_name", Required: true, Description: "Company name to search"},
		{Name: "jurisdiction_code", Description: "Jurisdiction filter, e.g. us_de or gb"},
		{Name: "include_inactive", Description: "Include inactive companies (default false)"},
	},
	Example: map[string]any{"company_name": "Acme Holdings", "jurisdiction_code": "gb"},
}

// Connector searches companies and yields one detailed record per match.
type Connector struct {
	*connector.Base
	apiKey  string
	baseURL string
}

// New is the registry factory.
func New(cfg connector.Config) (connector.Connector, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Connector{
		Base:    connector.NewBase(model.SourceTypeOpenCorporates, cfg),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: base,
	}, nil
}

// ValidateConfig requires an API key.
func (c *Connector) ValidateConfig() error {
	if c.apiKey == "" {
		return &connector.ConfigurationError{
			Source: string(model.SourceTypeOpenCorporates),
			Field:  "api_key",
			Hint:   "OpenCorporates API key is required",
		}
	}
	return nil
}

// Fetch searches by company_name and yields a company_record per complete match.
func (c *Connector) Fetch(ctx context.Context, params connector.Params) iter.Seq2[connector.Result, error] {
	return connector.SingleUse(func(yield func(connector.Result, error) bool) {
		if err := params.Require(string(model.SourceTypeOpenCorporates), "company_name"); err != nil {
			yield(connector.Result{}, err)
			return
		}
		name := params.String("company_name")

		q := url.Values{}
		q.Set("q", name)
		q.Set("per_page", strconv.Itoa(perPage))
		if j := params.String("jurisdiction_code"); j != "" {
			q.Set("jurisdiction_code", j)
		}
		if !params.Bool("include_inactive", false) {
			q.Set("inactive", "false")
		}

		var search any
		if err := c.get(ctx, "search", "companies/search", q, &search); err != nil {
			yield(connector.Result{}, err)
			return
		}
		companies, err := connector.ExtractObjects(companiesExpr, search)
		if err != nil {
			yield(connector.Result{}, err)
			return
		}
		c.Logger().InfoContext(ctx, "company search complete", "query", name, "count", len(companies))

		emitted := 0
		for _, company := range companies {
			number := connector.StringField(company, "company_number")
			jurisdiction := connector.StringField(company, "jurisdiction_code")
			if number == "" || jurisdiction == "" {
				continue
			}

			if emitted > 0 {
				if err := c.Cfg.Sleep(ctx, itemDelay); err != nil {
					yield(connector.Result{}, err)
					return
				}
			}

			path := "companies/" + url.PathEscape(jurisdiction) + "/" + url.PathEscape(number)
			var detail any
			if err := c.get(ctx, "company", path, url.Values{}, &detail); err != nil {
				yield(connector.Result{}, err)
				return
			}
			full, _ := companyDetail(detail)

			emitted++
			if !yield(connector.Result{
				Data:             full,
				SourceURL:        siteURL + "/" + jurisdiction + "/" + number,
				SourceIdentifier: jurisdiction + "/" + number,
				SourceTimestamp:  connector.ParseTimestamp(connector.StringField(full, "created_at")),
				EvidenceType:     model.EvidenceTypeCompanyRecord,
				Metadata: map[string]any{
					"jurisdiction":   jurisdiction,
					"company_number": number,
					"company_name":   company["name"],
					"status":         company["current_status"],
				},
			}, nil) {
				return
			}
		}
	})
}

func companyDetail(detail any) (map[string]any, bool) {
	v, err := connector.Extract(detailExpr, detail)
	if err != nil {
		return map[string]any{}, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, false
	}
	return m, true
}

// HealthCheck runs a one-result search.
func (c *Connector) HealthCheck(ctx context.Context) bool {
	q := url.Values{}
	q.Set("q", "test")
	q.Set("per_page", "1")
	if err := c.get(ctx, "health", "companies/search", q, nil); err != nil {
		c.Logger().WarnContext(ctx, "health check failed", "error", err)
		return false
	}
	return true
}

func (c *Connector) get(ctx context.Context, op, endpoint string, q url.Values, out any) error {
	q.Set("api_token", c.apiKey)
	header := http.Header{"User-Agent": {userAgent}}
	return c.HTTP.GetJSON(ctx, op, c.baseURL+"/"+endpoint+"?"+q.Encode(), header, out)
}
