package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/infra/telegram"
	"chanwatch/internal/usecase/channel"
	"chanwatch/internal/usecase/report"
)

const addUsage = "Usage: /add <channel url>"

// parseCommand splits "/cmd@botname arg..." into ("cmd", "arg...").
func parseCommand(text string) (cmd, arg string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func known(cmd string) bool {
	switch cmd {
	case "start", "help", "status", "list", "add":
		return true
	}
	return false
}

func (b *Bot) cmdStart(ctx context.Context, chatID int64) error {
	return b.api.SendMessage(ctx, chatID, report.HelpMessage, telegram.ParseModeMarkdown)
}

func (b *Bot) cmdStatus(ctx context.Context, chatID int64) error {
	b.reply(ctx, chatID, report.CheckingMessage, telegram.ParseModeMarkdown)

	outcomes, _, err := b.sweeper.CheckAll(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if len(outcomes) == 0 {
		return b.api.SendMessage(ctx, chatID, report.EmptyMessage, "")
	}
	return b.sendChunked(ctx, chatID, report.Status(outcomes))
}

func (b *Bot) cmdList(ctx context.Context, chatID int64) error {
	channels, err := b.channels.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	if len(channels) == 0 {
		return b.api.SendMessage(ctx, chatID, report.EmptyMessage, "")
	}
	return b.sendChunked(ctx, chatID, report.List(channels))
}

func (b *Bot) cmdAdd(ctx context.Context, chatID int64, arg string) error {
	if arg == "" {
		return b.api.SendMessage(ctx, chatID, addUsage, "")
	}

	ch, err := b.channels.Add(ctx, arg)
	var valErr *entity.ValidationError
	switch {
	case errors.As(err, &valErr):
		return b.api.SendMessage(ctx, chatID, "⚠️ "+valErr.Message, "")
	case errors.Is(err, channel.ErrDuplicateChannel):
		return b.api.SendMessage(ctx, chatID, "⚠️ Channel already monitored", "")
	case err != nil:
		return fmt.Errorf("add: %w", err)
	}
	return b.api.SendMessage(ctx, chatID, report.Added(ch), "")
}

func (b *Bot) sendChunked(ctx context.Context, chatID int64, text string) error {
	for _, part := range report.Chunk(text, report.MaxMessageLength) {
		if err := b.api.SendMessage(ctx, chatID, part, telegram.ParseModeMarkdown); err != nil {
			return err
		}
	}
	return nil
}

// userError keeps internal detail out of chat replies.
func userError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return "internal error, see logs"
	}
}
