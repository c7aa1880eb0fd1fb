package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/target/swift-ingestion/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// Endpoint overrides APIEndpoint.
	Endpoint string
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	endpoint   string
	retryLimit int
	client     *http.Client
}

// NewClient constructs a PagerDuty events client from config. Callers must provide a routing key.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		routingKey: key,
		source:     notify.Fallback(strings.TrimSpace(cfg.Source), "swift-ingestion"),
		component:  notify.Fallback(strings.TrimSpace(cfg.Component), "ingestion-worker"),
		endpoint:   notify.Fallback(strings.TrimSpace(cfg.Endpoint), APIEndpoint),
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

// SendJobFailure submits a trigger event to PagerDuty.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	body, err := json.Marshal(c.buildEvent(payload))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	return notify.Retry(ctx, c.retryLimit, func(ctx context.Context) error {
		return notify.PostJSON(ctx, c.client, "pagerduty api", c.endpoint, body)
	})
}

func (c *Client) buildEvent(payload notify.JobFailurePayload) map[string]any {
	severity := strings.ToLower(notify.Fallback(payload.Severity, notify.SeverityCritical))

	occurredAt := payload.OccurredAt.UTC()
	if payload.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	custom := map[string]any{
		"job_id":           payload.JobID,
		"source_type":      payload.SourceType,
		"case_id":          payload.CaseID,
		"stage":            payload.Stage,
		"error":            payload.Error,
		"error_class":      payload.ErrorClass,
		"total_items":      strconv.Itoa(payload.TotalItems),
		"successful_items": strconv.Itoa(payload.SuccessfulItems),
		"failed_items":     strconv.Itoa(payload.FailedItems),
	}
	for k, v := range payload.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    "ingestion-job:" + notify.Fallback(payload.JobID, "unknown"),
		"payload": map[string]any{
			"summary": fmt.Sprintf(
				"Ingestion job %s (%s) failed",
				notify.Fallback(payload.JobID, "unknown"),
				notify.Fallback(payload.SourceType, "unknown source"),
			),
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"group":          payload.SourceType,
			"class":          payload.ErrorClass,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}
