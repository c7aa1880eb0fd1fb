// Package osint runs a hosted OSINT search actor on the Apify platform and yields its dataset items.
package osint

import (
	"context"
	"fmt"
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
	// DefaultBaseURL is the Apify REST API root.
	DefaultBaseURL = "https://api.apify.com/v2"
	// DefaultActorID is the public OSINT search actor.
	DefaultActorID = "mqNu8WBvuKXgZRt4M"

	pollInterval = 5 * time.Second
	datasetLimit = 1000
)

// Run states reported by the platform.
const (
	RunSucceeded = "SUCCEEDED"
	RunFailed    = "FAILED"
	RunAborted   = "ABORTED"
	RunTimedOut  = "TIMED-OUT"
)

var sourceURLExpr = connector.MustCompile("url || profileUrl || sourceUrl")

// Descriptor is the catalog entry for this source.
var Descriptor = connector.Descriptor{
	Name:        "OSINT Search",
	Description: "Digital footprint discovery across public sources via a hosted search actor.",
	Parameters: []connector.ParameterDoc{
		{Name: "searchQuery", Required: true, Description: "Search string"},
		{Name: "searchType", Required: true, Description: "Kind of search, e.g. email or username"},
		{Name: "scanDepth", Description: "standard or deep (default standard)"},
		{Name: "categories", Description: "Categories to scan (default all)"},
		{Name: "timeout", Description: "Actor timeout in minutes (default 15)"},
	},
	Example: map[string]any{"searchQuery": "jane.doe@example.com", "searchType": "email"},
}

type run struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type runEnvelope struct {
	Data run `json:"data"`
}

func (r run) terminal() bool {
	switch r.Status {
	case RunSucceeded, RunFailed, RunAborted, RunTimedOut:
		return true
	}
	return false
}

// Connector starts an actor run, waits for it and pages the resulting dataset.
type Connector struct {
	*connector.Base
	token   string
	actorID string
	baseURL string
	now     func() time.Time
}

// New is the registry factory.
func New(cfg connector.Config) (connector.Connector, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Connector{
		Base:    connector.NewBase(model.SourceTypeOSINTSearch, cfg),
		token:   strings.TrimSpace(cfg.APIToken),
		actorID: strings.TrimSpace(cfg.ActorID),
		baseURL: base,
		now:     time.Now,
	}, nil
}

// ValidateConfig requires an API token and an actor id.
func (c *Connector) ValidateConfig() error {
	src := string(model.SourceTypeOSINTSearch)
	if c.token == "" {
		return &connector.ConfigurationError{Source: src, Field: "api_token", Hint: "OSINT search API token is required"}
	}
	if c.actorID == "" {
		return &connector.ConfigurationError{Source: src, Field: "actor_id", Hint: "OSINT search actor_id is required"}
	}
	return nil
}

// RunInput builds the actor input with platform defaults for absent parameters.
func RunInput(params connector.Params) map[string]any {
	return map[string]any{
		"searchQuery":        params.String("searchQuery"),
		"searchType":         params.String("searchType"),
		"scanDepth":          params.StringOr("scanDepth", "standard"),
		"categories":         params.Value("categories", []any{}),
		"extractData":        params.Bool("extractData", true),
		"recursiveSearch":    params.Bool("recursiveSearch", false),
		"exportFormats":      params.Value("exportFormats", []any{"json"}),
		"reportSorting":      params.StringOr("reportSorting", "default"),
		"timeout":            params.Int("timeout", 15),
		"maxConcurrency":     params.Int("maxConcurrency", 50),
		"retries":            params.Int("retries", 1),
		"printErrors":        params.Bool("printErrors", false),
		"proxyConfiguration": params.Value("proxyConfiguration", nil),
	}
}

// Fetch yields one raw_data result per dataset item of a successful run.
func (c *Connector) Fetch(ctx context.Context, params connector.Params) iter.Seq2[connector.Result, error] {
	return connector.SingleUse(func(yield func(connector.Result, error) bool) {
		if err := params.Require(string(model.SourceTypeOSINTSearch), "searchQuery", "searchType"); err != nil {
			yield(connector.Result{}, err)
			return
		}
		input := RunInput(params)

		r, err := c.runActor(ctx, input)
		if err != nil {
			yield(connector.Result{}, err)
			return
		}

		fetchedAt := c.now().UTC()
		meta := map[string]any{
			"search_query": input["searchQuery"],
			"search_type":  input["searchType"],
			"scan_depth":   input["scanDepth"],
			"categories":   input["categories"],
		}

		for offset := 0; ; offset += datasetLimit {
			items, err := c.datasetPage(ctx, r.DefaultDatasetID, offset)
			if err != nil {
				yield(connector.Result{}, err)
				return
			}
			for _, item := range items {
				if !yield(toResult(item, fetchedAt, meta), nil) {
					return
				}
			}
			if len(items) < datasetLimit {
				return
			}
		}
	})
}

func toResult(item any, fetchedAt time.Time, meta map[string]any) connector.Result {
	var sourceURL string
	if _, ok := item.(map[string]any); ok {
		sourceURL = connector.ExtractString(sourceURLExpr, item)
	}
	ts := fetchedAt
	md := make(map[string]any, len(meta))
	for k, v := range meta {
		md[k] = v
	}
	return connector.Result{
		Data:             item,
		SourceURL:        sourceURL,
		SourceIdentifier: sourceURL,
		SourceTimestamp:  &ts,
		EvidenceType:     model.EvidenceTypeRawData,
		Metadata:         md,
	}
}

// runActor starts a run and blocks until it reaches a terminal state.
func (c *Connector) runActor(ctx context.Context, input map[string]any) (run, error) {
	var started runEnvelope
	startURL := c.baseURL + "/acts/" + url.PathEscape(c.actorID) + "/runs"
	if err := c.HTTP.PostJSON(ctx, "start run", startURL, c.authHeader(), input, &started); err != nil {
		return run{}, err
	}
	r := started.Data
	if r.ID == "" {
		return run{}, c.runError("run", "start response did not include a run id")
	}
	log := c.Logger().With("run_id", r.ID, "actor_id", c.actorID)
	log.InfoContext(ctx, "actor run started", "status", r.Status)

	wait := max(int(c.Timeout().Seconds()/2), 1)
	for !r.terminal() {
		pollURL := c.baseURL + "/actor-runs/" + url.PathEscape(r.ID) + "?waitForFinish=" + strconv.Itoa(wait)
		var polled runEnvelope
		if err := c.HTTP.GetJSON(ctx, "poll run", pollURL, c.authHeader(), &polled); err != nil {
			return run{}, err
		}
		r = polled.Data
		if r.terminal() {
			break
		}
		if err := c.Cfg.Sleep(ctx, pollInterval); err != nil {
			return run{}, err
		}
	}
	log.InfoContext(ctx, "actor run finished", "status", r.Status, "dataset_id", r.DefaultDatasetID)

	if r.Status != RunSucceeded {
		return run{}, c.runError("run", fmt.Sprintf("OSINT search run ended with status %s", r.Status))
	}
	if r.DefaultDatasetID == "" {
		return run{}, c.runError("run", "OSINT search run did not return a dataset id")
	}
	return r, nil
}

func (c *Connector) datasetPage(ctx context.Context, datasetID string, offset int) ([]any, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("clean", "true")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(datasetLimit))
	itemsURL := c.baseURL + "/datasets/" + url.PathEscape(datasetID) + "/items?" + q.Encode()

	var items []any
	if err := c.HTTP.GetJSON(ctx, "dataset items", itemsURL, c.authHeader(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// HealthCheck confirms the actor is visible to the configured token.
func (c *Connector) HealthCheck(ctx context.Context) bool {
	if c.ValidateConfig() != nil {
		return false
	}
	actorURL := c.baseURL + "/acts/" + url.PathEscape(c.actorID)
	if err := c.HTTP.GetJSON(ctx, "health", actorURL, c.authHeader(), nil); err != nil {
		c.Logger().WarnContext(ctx, "health check failed", "error", err)
		return false
	}
	return true
}

func (c *Connector) authHeader() http.Header {
	return http.Header{"Authorization": {"Bearer " + c.token}}
}

func (c *Connector) runError(op, msg string) error {
	return &connector.FetchError{Source: string(model.SourceTypeOSINTSearch), Op: op, Message: msg}
}
