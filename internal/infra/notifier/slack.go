package notifier

import (
	"context"
	"fmt"
	"time"

	"chanwatch/internal/domain/entity"
)

// SlackConfig configures the Slack alert channel. WebhookURL is a secret.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// SlackNotifier posts status-change alerts as Block Kit messages.
type SlackNotifier struct {
	hook webhook
}

// NewSlackNotifier sends at most one alert per second, Slack's incoming
// webhook limit.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		hook: newWebhook("Slack", config.WebhookURL, config.Timeout, 1, 1),
	}
}

// SlackWebhookPayload represents the JSON payload sent to Slack webhook using Block Kit.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`   // Fallback text (required)
	Blocks []SlackBlock `json:"blocks"` // Rich formatting blocks
}

// SlackBlock represents a Slack Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject represents a text object in Slack Block Kit.
type SlackTextObject struct {
	Type string `json:"type"` // "mrkdwn" or "plain_text"
	Text string `json:"text"`
}

const (
	// Slack Block Kit limits
	maxSectionTextLength = 3000
	maxContextTextLength = 2000
	maxFallbackLength    = 150
)

func (s *SlackNotifier) buildBlockKitPayload(c *entity.StatusChange) SlackWebhookPayload {
	icon := ":white_check_mark:"
	if c.Current == entity.StatusInactive {
		icon = ":x:"
	}

	section := fmt.Sprintf("%s *<%s|%s>*\n\n%s", icon, c.Reference, c.Name, alertDetail(c))
	if c.Current == entity.StatusActive && c.Latest != nil && c.Latest.URL != "" {
		section += "\n" + c.Latest.URL
	}
	footer := fmt.Sprintf("%s → %s • %s", c.Previous, c.Current, c.At.UTC().Format(time.RFC3339))

	return SlackWebhookPayload{
		Text: truncate(c.Summary(), maxFallbackLength, truncationSuffix),
		Blocks: []SlackBlock{
			{
				Type: "section",
				Text: &SlackTextObject{Type: "mrkdwn", Text: truncate(section, maxSectionTextLength, truncationSuffix)},
			},
			{
				Type:     "context",
				Elements: []SlackTextObject{{Type: "mrkdwn", Text: truncate(footer, maxContextTextLength, truncationSuffix)}},
			},
		},
	}
}

// NotifyStatusChange posts one message for c.
func (s *SlackNotifier) NotifyStatusChange(ctx context.Context, c *entity.StatusChange) error {
	return s.hook.deliver(ctx, c, s.buildBlockKitPayload(c))
}
