package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"chanwatch/internal/domain/entity"
)

const (
	truncationSuffix = "..."

	// defaultRetryAfter is used when a 429 carries no usable hint.
	defaultRetryAfter = 5 * time.Second
)

// RateLimitError represents a 429 rate limit error from a webhook service.
type RateLimitError struct {
	Wait    time.Duration
	Message string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.Wait)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.Wait)
}

// RetryAfter returns the wait requested by the service.
func (e *RateLimitError) RetryAfter() time.Duration { return e.Wait }

// Retryable reports true: a rate limited request may be resent.
func (e *RateLimitError) Retryable() bool { return true }

// ClientError represents a 4xx client error from a webhook service.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string { return e.Message }

// Retryable reports false: the request itself is wrong.
func (e *ClientError) Retryable() bool { return false }

// ServerError represents a 5xx server error from a webhook service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// Retryable reports true.
func (e *ServerError) Retryable() bool { return true }

// webhookErrorResponse covers the 429 bodies of Discord and Slack.
type webhookErrorResponse struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"` // seconds
}

// postJSON sends payload to url and maps the answer to the typed errors
// above. service names the target in error messages.
func postJSON(ctx context.Context, client *http.Client, url, service string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message: service + " rate limit exceeded",
			Wait:    extractRetryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API client error: %s", service, string(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s API server error: %s", service, string(body)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// extractRetryAfter reads retry_after from a JSON body, then the
// Retry-After header, defaulting to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var errResp webhookErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.RetryAfter > 0 {
		return time.Duration(errResp.RetryAfter * float64(time.Second))
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if seconds, err := strconv.Atoi(h); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

// truncate shortens text to maxLength runes, ending with suffix when cut.
func truncate(text string, maxLength int, suffix string) string {
	r := []rune(text)
	if len(r) <= maxLength {
		return text
	}
	cut := maxLength - len([]rune(suffix))
	if cut < 0 {
		cut = 0
	}
	return string(r[:cut]) + suffix
}

// alertDetail is the body line shared by all services: the latest
// publication for recoveries, the probe reason for outages.
func alertDetail(c *entity.StatusChange) string {
	if c.Current == entity.StatusInactive {
		if c.Reason != "" {
			return "Error: " + c.Reason
		}
		return "Error: Unknown error"
	}
	if c.Latest != nil {
		return fmt.Sprintf("Latest: %s (%d views)", c.Latest.Title, c.Latest.ViewCount)
	}
	return "Channel is reachable again."
}
