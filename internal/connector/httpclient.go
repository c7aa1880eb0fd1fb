package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// ClientOptions configures the shared upstream HTTP client.
type ClientOptions struct {
	Source             string
	HTTPClient         *http.Client
	Timeout            time.Duration
	RateLimitPerMinute int
	Retry              RetryPolicy
	Sleep              SleepFunc
	Logger             *slog.Logger
}

// Client performs paced, retried JSON requests against one upstream.
type Client struct {
	source  string
	http    *http.Client
	limiter *rate.Limiter
	retry   RetryPolicy
	sleep   SleepFunc
	logger  *slog.Logger
}

// NewClient builds a Client. Requests are spaced to honour RateLimitPerMinute.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	perMinute := opts.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = DefaultRateLimitPerMinute
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		source:  opts.Source,
		http:    hc,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		retry:   opts.Retry.normalized(),
		sleep:   sleep,
		logger:  logger,
	}
}

// Request describes one upstream call.
type Request struct {
	Op      string
	Method  string
	URL     string
	Header  http.Header
	Body    any
	Timeout time.Duration
	// Check inspects the decoded response. A non-nil error fails the attempt.
	Check func() error
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, op, rawURL string, header http.Header, out any) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodGet, URL: rawURL, Header: header}, out)
}

// PostJSON issues a POST with a JSON body and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, op, rawURL string, header http.Header, body, out any) error {
	return c.Do(ctx, Request{Op: op, Method: http.MethodPost, URL: rawURL, Header: header, Body: body}, out)
}

// Do runs req under the retry policy. Non-2xx responses and decode failures are retried
// like transport errors; the final failure is returned as a *FetchError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var payload []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return &FetchError{Source: c.source, Op: req.Op, URL: redact(req.URL), Err: fmt.Errorf("encode request: %w", err)}
		}
		payload = b
	}

	return c.retry.Do(ctx, c.sleep, func(ctx context.Context, attempt int) error {
		err := c.once(ctx, req, payload, out)
		if err != nil && attempt < c.retry.MaxAttempts && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "upstream request failed, retrying",
				"op", req.Op,
				"attempt", attempt,
				"status", StatusCodeOf(err),
				"error", err)
		}
		return err
	})
}

func (c *Client) once(ctx context.Context, req Request, payload []byte, out any) error {
	fail := func(status int, msg string, err error) error {
		return &FetchError{Source: c.source, Op: req.Op, URL: redact(req.URL), StatusCode: status, Message: msg, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(0, "", err)
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return fail(0, "", fmt.Errorf("create request: %w", err))
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fail(0, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(resp.StatusCode, strings.TrimSpace(string(snippet)), nil)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fail(resp.StatusCode, "empty response body", nil)
		}
		return fail(resp.StatusCode, "", fmt.Errorf("decode response: %w", err))
	}
	if req.Check != nil {
		if err := req.Check(); err != nil {
			return fail(resp.StatusCode, err.Error(), nil)
		}
	}
	return nil
}

// CloseIdleConnections drops pooled connections held by the underlying transport.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// redact strips query strings, which carry API tokens for some upstreams.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
