// Package report renders channel snapshots and reconcile outcomes as chat
// messages.
package report

import (
	"fmt"
	"strings"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/usecase/status"

	"github.com/dustin/go-humanize"
)

const (
	// MaxMessageLength is the chat transport's per-message character limit.
	MaxMessageLength = 4096

	// EmptyMessage is sent instead of a report when nothing is tracked.
	EmptyMessage = "No channels monitored yet."

	// CheckingMessage acknowledges a status request before the sweep runs.
	CheckingMessage = "🔄 Checking channel status..."

	// HelpMessage answers /start.
	HelpMessage = "🎬 *YouTube Channel Monitor Bot*\n\n" +
		"Commands:\n" +
		"/status - Check status of all monitored channels\n" +
		"/add <url> - Add a channel to monitor\n" +
		"/list - List all monitored channels\n"

	listTitleLimit = 50
)

// FormatViews renders a view count with thousands separators.
func FormatViews(n int64) string {
	if n <= 0 {
		return "0"
	}
	return humanize.Comma(n)
}

// Status renders the result of a full sweep. Nil outcomes (channels whose
// pass failed to persist) are skipped.
func Status(outcomes []*status.Outcome) string {
	var b strings.Builder
	b.WriteString("📊 *Channel Status Report*\n\n")

	for _, out := range outcomes {
		if out == nil || out.Channel == nil {
			continue
		}
		ch := out.Channel
		if out.Skipped {
			fmt.Fprintf(&b, "⏸ Not checked %s\n", EscapeMarkdown(inactiveName(ch)))
			fmt.Fprintf(&b, "└─ %s\n\n", EscapeMarkdown(out.Error))
			continue
		}
		if !out.Accessible {
			fmt.Fprintf(&b, "❌ Inactive %s\n", EscapeMarkdown(inactiveName(ch)))
			reason := out.Error
			if reason == "" {
				reason = "Unknown error"
			}
			fmt.Fprintf(&b, "└─ Error: %s\n\n", EscapeMarkdown(reason))
			continue
		}

		fmt.Fprintf(&b, "✅ Active %s\n", EscapeMarkdown(ch.Name()))
		switch {
		case !out.Resolved:
			b.WriteString("└─ (Could not fetch video info)\n\n")
		case out.Latest == nil:
			b.WriteString("└─ No videos found\n\n")
		default:
			fmt.Fprintf(&b, "├─ Latest: %s\n", EscapeMarkdown(out.Latest.Title))
			fmt.Fprintf(&b, "├─ Views: %s\n", FormatViews(out.Latest.ViewCount))
			fmt.Fprintf(&b, "└─ Link: %s\n\n", EscapeMarkdown(out.Latest.URL))
		}
	}
	return b.String()
}

// List renders the stored snapshot of every channel without any network
// access.
func List(channels []*entity.Channel) string {
	if len(channels) == 0 {
		return EmptyMessage
	}

	var b strings.Builder
	b.WriteString("*📺 Monitored Channels*\n\n")
	for i, ch := range channels {
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, statusIcon(ch.Status), EscapeMarkdown(ch.Name()))
		fmt.Fprintf(&b, "   URL: %s\n", EscapeMarkdown(ch.Reference))
		if ch.LatestTitle != nil && *ch.LatestTitle != "" {
			fmt.Fprintf(&b, "   Last: %s...\n", EscapeMarkdown(truncateRunes(*ch.LatestTitle, listTitleLimit)))
			fmt.Fprintf(&b, "   Views: %s\n", FormatViews(ch.LatestViewCount))
		}
		b.WriteString("\n")
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	"_", `\_`,
	"*", `\*`,
	"`", "\\`",
	"[", `\[`,
)

// EscapeMarkdown escapes the characters Telegram's legacy Markdown parse
// mode treats as entity delimiters, so s renders literally.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Chunk splits msg into pieces of at most limit characters, cutting after
// the last newline inside each window when there is one. A hard cut never
// separates an escape backslash from the character it escapes.
func Chunk(msg string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	runes := []rune(msg)
	if len(runes) <= limit {
		return []string{msg}
	}

	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		if cut == limit && runes[cut-1] == '\\' && cut > 1 {
			cut--
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

func statusIcon(s entity.ChannelStatus) string {
	switch s {
	case entity.StatusActive:
		return "✅"
	case entity.StatusInactive:
		return "❌"
	default:
		return "⏳"
	}
}

// inactiveName prefers the stored name, then the handle in the reference.
func inactiveName(ch *entity.Channel) string {
	if ch.DisplayName != nil && *ch.DisplayName != "" {
		return *ch.DisplayName
	}
	if i := strings.LastIndex(ch.Reference, "@"); i >= 0 {
		return ch.Reference[i+1:]
	}
	return ch.Reference
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Added confirms a newly tracked channel.
func Added(ch *entity.Channel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Added: %s\n", ch.Reference)
	fmt.Fprintf(&b, "%s %s (%s)", statusIcon(ch.Status), ch.Name(), ch.Status)
	return b.String()
}
