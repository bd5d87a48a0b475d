// Package telegram is a minimal Bot API client: sendMessage for reports and
// alerts, getUpdates for the long-poll command loop.
package telegram

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

	"chanwatch/internal/resilience/retry"
	"chanwatch/pkg/config"

	"golang.org/x/time/rate"
)

// ErrNoToken is returned by New when no bot token is configured.
var ErrNoToken = errors.New("telegram: bot token not configured")

const (
	defaultBaseURL = "https://api.telegram.org"

	// ParseModeMarkdown is the legacy Markdown mode the reports are written for.
	ParseModeMarkdown = "Markdown"
)

// Config configures the Bot API client.
type Config struct {
	Token string
	// BaseURL overrides the API host (tests, local Bot API servers).
	BaseURL string
	// Timeout bounds a single non-polling request.
	Timeout time.Duration
	// PollTimeout is the server-side long-poll wait for getUpdates.
	PollTimeout time.Duration
	// MessagesPerSecond bounds outgoing sendMessage calls.
	MessagesPerSecond float64
}

// DefaultConfig returns the client defaults without a token.
func DefaultConfig() Config {
	return Config{
		BaseURL:           defaultBaseURL,
		Timeout:           10 * time.Second,
		PollTimeout:       30 * time.Second,
		MessagesPerSecond: 1,
	}
}

// ConfigFromEnv reads TELEGRAM_BOT_TOKEN, TELEGRAM_API_URL and
// TELEGRAM_POLL_TIMEOUT.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.Token = strings.TrimSpace(config.GetEnvString("TELEGRAM_BOT_TOKEN", ""))
	cfg.BaseURL = config.GetEnvString("TELEGRAM_API_URL", cfg.BaseURL)
	cfg.PollTimeout = config.GetEnvDuration("TELEGRAM_POLL_TIMEOUT", cfg.PollTimeout)
	return cfg
}

// Client talks to the Bot API over HTTPS.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
}

// New creates a client. It fails only when the token is missing.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = def.MessagesPerSecond
	}
	return &Client{
		cfg: cfg,
		// per-request deadlines come from the context
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), 3),
		retryCfg:   retry.TelegramConfig(),
	}, nil
}

// User is the sender of a message.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// Message is the subset of a Bot API message the bot reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// Update is one item of a getUpdates response.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// APIError is a non-ok Bot API answer.
type APIError struct {
	Code        int
	Description string
	RetryAfterS int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %d %s", e.Code, e.Description)
}

// RetryAfter returns the flood-control wait requested by the server.
func (e *APIError) RetryAfter() time.Duration {
	return time.Duration(e.RetryAfterS) * time.Second
}

// Retryable reports whether resending may succeed.
func (e *APIError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// SendMessage posts text to chatID, retrying flood-control and server
// errors. parseMode may be empty for plain text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("SendMessage: rate limit: %w", err)
	}
	req := sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             parseMode,
		DisableWebPagePreview: true,
	}
	err := retry.WithBackoff(ctx, c.retryCfg, func() error {
		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.call(reqCtx, "sendMessage", req, nil)
	})
	if err != nil {
		return fmt.Errorf("SendMessage: %w", err)
	}
	return nil
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// GetUpdates long-polls for updates with id >= offset. It is not retried;
// the poll loop calls it again.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout+c.cfg.Timeout)
	defer cancel()

	var updates []Update
	req := getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(c.cfg.PollTimeout / time.Second),
		AllowedUpdates: []string{"message"},
	}
	if err := c.call(reqCtx, "getUpdates", req, &updates); err != nil {
		return nil, fmt.Errorf("GetUpdates: %w", err)
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/bot" + c.cfg.Token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the URL carries the token; never surface it
		return fmt.Errorf("%s: %w", method, redact(err, c.cfg.Token))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var ar apiResponse
	if err := json.Unmarshal(raw, &ar); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{Code: resp.StatusCode, Description: resp.Status}
		}
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !ar.OK {
		apiErr := &APIError{Code: ar.ErrorCode, Description: ar.Description}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode
		}
		if ar.Parameters != nil {
			apiErr.RetryAfterS = ar.Parameters.RetryAfter
		}
		slog.Debug("telegram API error",
			slog.String("method", method),
			slog.Int("code", apiErr.Code),
			slog.String("description", apiErr.Description))
		return apiErr
	}
	if out != nil {
		if err := json.Unmarshal(ar.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// redactedError hides the bot token inside transport errors while keeping
// the original chain for errors.Is.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}
