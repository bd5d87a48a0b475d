package notifier

import (
	"context"
	"time"

	"chanwatch/internal/domain/entity"
)

// DiscordConfig configures the Discord alert channel. WebhookURL embeds
// the webhook token and must never be logged.
type DiscordConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
}

// DiscordNotifier posts status-change alerts as Discord embeds.
type DiscordNotifier struct {
	hook webhook
}

// NewDiscordNotifier allows bursts of 3 refilling at one alert per two
// seconds, inside Discord's 30 calls per minute per webhook.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		hook: newWebhook("Discord", config.WebhookURL, config.Timeout, 0.5, 3),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to Discord webhook.
type DiscordWebhookPayload struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	URL         string             `json:"url"`
	Color       int                `json:"color"`
	Footer      DiscordEmbedFooter `json:"footer"`
	Timestamp   string             `json:"timestamp"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

const (
	// Discord limits
	maxTitleLength       = 256
	maxDescriptionLength = 4096

	discordGreenColor = 5763719  // #57F287
	discordRedColor   = 15548997 // #ED4245
)

func (d *DiscordNotifier) buildEmbedPayload(c *entity.StatusChange) DiscordWebhookPayload {
	color := discordGreenColor
	if c.Current == entity.StatusInactive {
		color = discordRedColor
	}
	url := c.Reference
	if c.Current == entity.StatusActive && c.Latest != nil && c.Latest.URL != "" {
		url = c.Latest.URL
	}

	embed := DiscordEmbed{
		Title:       truncate(c.Summary(), maxTitleLength, truncationSuffix),
		Description: truncate(alertDetail(c), maxDescriptionLength, truncationSuffix),
		URL:         url,
		Color:       color,
		Footer:      DiscordEmbedFooter{Text: c.Reference},
		Timestamp:   c.At.UTC().Format(time.RFC3339),
	}
	return DiscordWebhookPayload{Embeds: []DiscordEmbed{embed}}
}

// NotifyStatusChange posts one embed for c.
func (d *DiscordNotifier) NotifyStatusChange(ctx context.Context, c *entity.StatusChange) error {
	return d.hook.deliver(ctx, c, d.buildEmbedPayload(c))
}
