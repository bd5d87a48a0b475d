package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/resilience/retry"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// webhook posts alerts to one incoming-webhook URL. All alerts through it
// share a token bucket sized to the service's published limit.
type webhook struct {
	service string
	url     string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Config
}

func newWebhook(service, url string, timeout time.Duration, perSecond rate.Limit, burst int) webhook {
	return webhook{
		service: service,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(perSecond, burst),
		retry:   retry.WebhookConfig(),
	}
}

// deliver waits for a token then posts payload, retrying 429 (honouring
// retry_after), 5xx and network failures. 4xx answers fail immediately.
func (h *webhook) deliver(ctx context.Context, c *entity.StatusChange, payload any) error {
	logger := slog.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("service", h.service),
		slog.Int64("channel_id", c.ChannelID),
		slog.String("status", string(c.Current)))

	if err := h.limiter.Wait(ctx); err != nil {
		logger.Warn("alert not sent: rate limiter wait aborted", slog.Any("error", err))
		return fmt.Errorf("%s rate limiter: %w", h.service, err)
	}

	attempts := 0
	err := retry.WithBackoff(ctx, h.retry, func() error {
		attempts++
		return postJSON(ctx, h.client, h.url, h.service, payload)
	})
	if err != nil {
		logger.Error("alert delivery failed", slog.Int("attempts", attempts), slog.Any("error", err))
		return fmt.Errorf("%s alert: %w", h.service, err)
	}
	logger.Info("alert delivered", slog.Int("attempts", attempts))
	return nil
}
