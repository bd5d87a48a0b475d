// Package notify dispatches channel status-change alerts to every enabled
// delivery channel (Telegram, Discord, Slack) without blocking the caller.
package notify

import (
	"context"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/infra/notifier"
)

// Channel is one alert delivery target. Implementations handle their own
// rate limiting and retries and must be safe for concurrent use.
type Channel interface {
	// Name is the lowercase identifier used in logs, metrics and health.
	Name() string
	IsEnabled() bool
	Send(ctx context.Context, change *entity.StatusChange) error
}

// notifierChannel adapts an infra notifier to Channel.
type notifierChannel struct {
	name     string
	enabled  bool
	notifier notifier.Notifier
}

func (c *notifierChannel) Name() string    { return c.name }
func (c *notifierChannel) IsEnabled() bool { return c.enabled }

func (c *notifierChannel) Send(ctx context.Context, change *entity.StatusChange) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if change == nil || change.ChannelID == 0 {
		return ErrInvalidChange
	}
	return c.notifier.NotifyStatusChange(ctx, change)
}

// NewDiscordChannel wraps a Discord webhook notifier. A disabled channel
// holds no notifier; Send rejects before reaching it.
func NewDiscordChannel(config notifier.DiscordConfig) Channel {
	c := &notifierChannel{name: "discord", enabled: config.Enabled}
	if config.Enabled {
		c.notifier = notifier.NewDiscordNotifier(config)
	}
	return c
}

// NewSlackChannel wraps a Slack webhook notifier.
func NewSlackChannel(config notifier.SlackConfig) Channel {
	c := &notifierChannel{name: "slack", enabled: config.Enabled}
	if config.Enabled {
		c.notifier = notifier.NewSlackNotifier(config)
	}
	return c
}

// NewTelegramChannel sends alerts to config.ChatID through sender. A nil
// sender disables the channel.
func NewTelegramChannel(config notifier.TelegramConfig, sender notifier.MessageSender) Channel {
	enabled := config.Enabled && sender != nil && config.ChatID != 0
	c := &notifierChannel{name: "telegram", enabled: enabled}
	if enabled {
		c.notifier = notifier.NewTelegramNotifier(config, sender)
	}
	return c
}
