package notifier

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chanwatch/pkg/config"
)

const defaultWebhookTimeout = 30 * time.Second

var errEmptyWebhook = errors.New("webhook URL is empty")

// validateWebhookURL accepts only https URLs on host whose path starts with
// pathPrefix. The returned error never contains the URL itself, which
// carries the webhook token.
func validateWebhookURL(raw, host, pathPrefix string) error {
	if raw == "" {
		return errEmptyWebhook
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("webhook URL is malformed")
	}
	if u.Scheme != "https" {
		return errors.New("webhook URL must use HTTPS")
	}
	if u.Host != host {
		return fmt.Errorf("webhook host %q is not %s", u.Host, host)
	}
	if !strings.HasPrefix(u.Path, pathPrefix) {
		return fmt.Errorf("webhook path must start with %s", pathPrefix)
	}
	return nil
}

// DiscordConfigFromEnv reads DISCORD_ENABLED and DISCORD_WEBHOOK_URL. An
// enabled but invalid webhook disables the channel with a warning.
func DiscordConfigFromEnv(logger *slog.Logger) DiscordConfig {
	if !config.GetEnvBool("DISCORD_ENABLED", false) {
		return DiscordConfig{}
	}
	webhook := strings.TrimSpace(config.GetEnvString("DISCORD_WEBHOOK_URL", ""))
	if err := validateWebhookURL(webhook, "discord.com", "/api/webhooks/"); err != nil {
		logger.Warn("Discord notifications disabled", slog.String("reason", err.Error()))
		return DiscordConfig{}
	}
	return DiscordConfig{
		Enabled:    true,
		WebhookURL: webhook,
		Timeout:    config.GetEnvDuration("NOTIFY_WEBHOOK_TIMEOUT", defaultWebhookTimeout),
	}
}

// SlackConfigFromEnv reads SLACK_ENABLED and SLACK_WEBHOOK_URL.
func SlackConfigFromEnv(logger *slog.Logger) SlackConfig {
	if !config.GetEnvBool("SLACK_ENABLED", false) {
		return SlackConfig{}
	}
	webhook := strings.TrimSpace(config.GetEnvString("SLACK_WEBHOOK_URL", ""))
	if err := validateWebhookURL(webhook, "hooks.slack.com", "/services/"); err != nil {
		logger.Warn("Slack notifications disabled", slog.String("reason", err.Error()))
		return SlackConfig{}
	}
	return SlackConfig{
		Enabled:    true,
		WebhookURL: webhook,
		Timeout:    config.GetEnvDuration("NOTIFY_WEBHOOK_TIMEOUT", defaultWebhookTimeout),
	}
}

// TelegramConfigFromEnv enables alerts when TELEGRAM_CHAT_ID holds a
// numeric chat id. Group chats have negative ids.
func TelegramConfigFromEnv(logger *slog.Logger) TelegramConfig {
	raw := strings.TrimSpace(config.GetEnvString("TELEGRAM_CHAT_ID", ""))
	if raw == "" {
		return TelegramConfig{}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		logger.Warn("Telegram alerts disabled, TELEGRAM_CHAT_ID is not a chat id")
		return TelegramConfig{}
	}
	return TelegramConfig{Enabled: true, ChatID: id}
}
