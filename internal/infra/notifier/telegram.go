package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/infra/telegram"
	"chanwatch/internal/usecase/report"
)

// MessageSender is the part of the Telegram client the notifier needs.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// TelegramConfig configures alert delivery to one chat.
type TelegramConfig struct {
	Enabled bool
	ChatID  int64
}

// TelegramNotifier sends status-change alerts to a Telegram chat. Rate
// limiting and retries live in the client.
type TelegramNotifier struct {
	config TelegramConfig
	sender MessageSender
}

// NewTelegramNotifier creates a TelegramNotifier.
func NewTelegramNotifier(config TelegramConfig, sender MessageSender) *TelegramNotifier {
	return &TelegramNotifier{config: config, sender: sender}
}

func (t *TelegramNotifier) buildMessage(c *entity.StatusChange) string {
	var b strings.Builder
	if c.Current == entity.StatusInactive {
		fmt.Fprintf(&b, "🚨 *%s* went inactive\n", c.Name)
		reason := c.Reason
		if reason == "" {
			reason = "Unknown error"
		}
		fmt.Fprintf(&b, "└─ Error: %s\n", reason)
	} else {
		fmt.Fprintf(&b, "✅ *%s* is active again\n", c.Name)
		if c.Latest != nil {
			fmt.Fprintf(&b, "├─ Latest: %s\n", c.Latest.Title)
			fmt.Fprintf(&b, "├─ Views: %s\n", report.FormatViews(c.Latest.ViewCount))
			fmt.Fprintf(&b, "└─ Link: %s\n", c.Latest.URL)
		}
	}
	fmt.Fprintf(&b, "\n%s", c.Reference)
	return b.String()
}

// NotifyStatusChange sends one Markdown message.
func (t *TelegramNotifier) NotifyStatusChange(ctx context.Context, c *entity.StatusChange) error {
	err := t.sender.SendMessage(ctx, t.config.ChatID, t.buildMessage(c), telegram.ParseModeMarkdown)
	if err != nil {
		slog.Error("Telegram notification failed",
			slog.Int64("channel_id", c.ChannelID),
			slog.Any("error", err))
		return fmt.Errorf("telegram notification: %w", err)
	}
	slog.Info("Telegram notification successful", slog.Int64("channel_id", c.ChannelID))
	return nil
}
