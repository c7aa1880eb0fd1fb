package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RetryStep is the linear backoff unit between delivery attempts.
const RetryStep = 200 * time.Millisecond

// Retry calls send up to retryLimit+1 times, waiting RetryStep*n between attempts.
func Retry(ctx context.Context, retryLimit int, send func(context.Context) error) error {
	attempts := max(retryLimit, 0) + 1
	var lastErr error
	for attempt := range attempts {
		if lastErr = send(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * RetryStep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// PostJSON posts body to endpoint and drains the response. Non-2xx answers become errors
// prefixed with name.
func PostJSON(ctx context.Context, client *http.Client, name, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", name, err)
	}

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	closeErr := resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", name, resp.Status, strings.TrimSpace(string(respBody)))
	}
	if readErr != nil || closeErr != nil {
		return errors.Join(readErr, closeErr)
	}
	return nil
}

// Fallback returns value unless it is blank.
func Fallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
