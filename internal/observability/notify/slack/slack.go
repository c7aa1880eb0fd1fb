package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/target/swift-ingestion/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client

	// JobURLPrefix turns the job id into a link, e.g. https://swift.example/api/ingestion/jobs.
	JobURLPrefix string
}

// Client delivers job failure notifications to a Slack webhook.
type Client struct {
	webhookURL   string
	channel      string
	username     string
	retryLimit   int
	jobURLPrefix string
	client       *http.Client
}

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
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
		webhookURL:   webhookURL,
		channel:      strings.TrimSpace(cfg.Channel),
		username:     notify.Fallback(strings.TrimSpace(cfg.Username), "swift-ingestion"),
		retryLimit:   max(cfg.RetryLimit, 0),
		jobURLPrefix: strings.TrimSpace(cfg.JobURLPrefix),
		client:       hc,
	}, nil
}

// SendJobFailure posts a formatted message to Slack.
func (c *Client) SendJobFailure(ctx context.Context, payload notify.JobFailurePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	return notify.Retry(ctx, c.retryLimit, func(ctx context.Context) error {
		return notify.PostJSON(ctx, c.client, "slack webhook", c.webhookURL, body)
	})
}

func (c *Client) formatMessage(payload notify.JobFailurePayload) map[string]any {
	at := payload.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Ingestion job failed*")
	if job := c.jobValue(payload.JobID); job != "" {
		text.WriteString(" " + job)
	}
	if payload.SourceType != "" {
		text.WriteString(" (" + escape(payload.SourceType) + ")")
	}
	text.WriteByte('\n')

	field(&text, "Severity", notify.Fallback(payload.Severity, notify.SeverityCritical))
	field(&text, "Case", escape(payload.CaseID))
	field(&text, "Stage", payload.Stage)
	field(&text, "Items", items(payload))
	field(&text, "Error class", payload.ErrorClass)
	field(&text, "Error", escape(payload.Error))

	if len(payload.Metadata) > 0 {
		text.WriteString("• Metadata:\n")
		for _, k := range slices.Sorted(maps.Keys(payload.Metadata)) {
			text.WriteString("    • " + k + ": " + escape(payload.Metadata[k]) + "\n")
		}
	}
	text.WriteString("• Timestamp: " + at.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func items(p notify.JobFailurePayload) string {
	if p.TotalItems == 0 && p.SuccessfulItems == 0 && p.FailedItems == 0 {
		return ""
	}
	return strconv.Itoa(p.SuccessfulItems) + " stored, " +
		strconv.Itoa(p.FailedItems) + " failed of " +
		strconv.Itoa(p.TotalItems)
}

func (c *Client) jobValue(jobID string) string {
	id := strings.TrimSpace(jobID)
	if id == "" {
		return ""
	}
	if link := c.jobLink(id); link != "" {
		return fmt.Sprintf("<%s|%s>", link, escape(id))
	}
	return "`" + escape(id) + "`"
}

func (c *Client) jobLink(jobID string) string {
	if c.jobURLPrefix == "" {
		return ""
	}
	u, err := url.Parse(c.jobURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), jobID)
	if err != nil {
		return ""
	}
	return link
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(value string) string {
	return slackEscaper.Replace(value)
}

func field(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• " + label + ": " + value + "\n")
}
