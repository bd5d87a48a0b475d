package report

import (
	"strings"
	"testing"
	"unicode/utf8"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/usecase/status"

	"github.com/google/go-cmp/cmp"
)

func strPtr(s string) *string { return &s }

func TestFormatViews(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		-5:         "0",
		999:        "999",
		1000:       "1,000",
		1234567:    "1,234,567",
		9876543210: "9,876,543,210",
	}
	for in, want := range cases {
		if got := FormatViews(in); got != want {
			t.Errorf("FormatViews(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestStatus(t *testing.T) {
	outcomes := []*status.Outcome{
		{
			Channel:    &entity.Channel{Reference: "https://www.youtube.com/@alpha", DisplayName: strPtr("Alpha")},
			Accessible: true,
			Resolved:   true,
			Latest: &entity.Publication{
				Title:     "Deep dive",
				ViewCount: 12345,
				URL:       entity.WatchURL("v1"),
			},
		},
		{
			Channel:    &entity.Channel{Reference: "https://www.youtube.com/@beta", DisplayName: strPtr("Beta")},
			Accessible: true,
			Resolved:   true,
		},
		{
			Channel:    &entity.Channel{Reference: "https://www.youtube.com/@gamma"},
			Accessible: true,
		},
		{
			Channel: &entity.Channel{Reference: "https://www.youtube.com/@delta"},
			Error:   "Channel not found (404)",
		},
		nil,
	}

	want := "📊 *Channel Status Report*\n\n" +
		"✅ Active Alpha\n" +
		"├─ Latest: Deep dive\n" +
		"├─ Views: 12,345\n" +
		"└─ Link: https://www.youtube.com/watch?v=v1\n\n" +
		"✅ Active Beta\n" +
		"└─ No videos found\n\n" +
		"✅ Active Unknown\n" +
		"└─ (Could not fetch video info)\n\n" +
		"❌ Inactive delta\n" +
		"└─ Error: Channel not found (404)\n\n"

	if diff := cmp.Diff(want, Status(outcomes)); diff != "" {
		t.Errorf("Status() mismatch (-want +got):\n%s", diff)
	}
}

func TestList(t *testing.T) {
	long := strings.Repeat("x", 60)
	channels := []*entity.Channel{
		{Reference: "https://www.youtube.com/@alpha", DisplayName: strPtr("Alpha"), Status: entity.StatusActive,
			LatestTitle: strPtr(long), LatestViewCount: 2500},
		{Reference: "https://www.youtube.com/@beta", Status: entity.StatusInactive},
		{Reference: "https://www.youtube.com/@gamma", Status: entity.StatusPending},
	}

	want := "*📺 Monitored Channels*\n\n" +
		"1. ✅ Alpha\n" +
		"   URL: https://www.youtube.com/@alpha\n" +
		"   Last: " + strings.Repeat("x", 50) + "...\n" +
		"   Views: 2,500\n" +
		"\n" +
		"2. ❌ Unknown\n" +
		"   URL: https://www.youtube.com/@beta\n" +
		"\n" +
		"3. ⏳ Unknown\n" +
		"   URL: https://www.youtube.com/@gamma\n" +
		"\n"

	if diff := cmp.Diff(want, List(channels)); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestStatus_EscapesMarkdownAndShowsSkipped(t *testing.T) {
	outcomes := []*status.Outcome{
		{
			Channel:    &entity.Channel{Reference: "https://www.youtube.com/@some_channel", DisplayName: strPtr("some_channel")},
			Accessible: true,
			Resolved:   true,
			Latest: &entity.Publication{
				Title:     "*NEW* [live] `code`",
				ViewCount: 3,
				URL:       entity.WatchURL("a_b"),
			},
		},
		{
			Channel: &entity.Channel{Reference: "https://www.youtube.com/@under_score"},
			Error:   "HTTP 503",
		},
		{
			Channel: &entity.Channel{Reference: "https://www.youtube.com/@paused", DisplayName: strPtr("Paused")},
			Skipped: true,
			Error:   "not probed: circuit breaker is open",
		},
	}

	want := "📊 *Channel Status Report*\n\n" +
		"✅ Active some\\_channel\n" +
		"├─ Latest: \\*NEW\\* \\[live] \\`code\\`\n" +
		"├─ Views: 3\n" +
		"└─ Link: https://www.youtube.com/watch?v=a\\_b\n\n" +
		"❌ Inactive under\\_score\n" +
		"└─ Error: HTTP 503\n\n" +
		"⏸ Not checked Paused\n" +
		"└─ not probed: circuit breaker is open\n\n"

	if diff := cmp.Diff(want, Status(outcomes)); diff != "" {
		t.Errorf("Status() mismatch (-want +got):\n%s", diff)
	}
}

func TestList_EscapesMarkdown(t *testing.T) {
	channels := []*entity.Channel{
		{Reference: "https://www.youtube.com/@some_channel", DisplayName: strPtr("Star*Power"), Status: entity.StatusActive,
			LatestTitle: strPtr("my_first `vlog`"), LatestViewCount: 10},
	}

	want := "*📺 Monitored Channels*\n\n" +
		"1. ✅ Star\\*Power\n" +
		"   URL: https://www.youtube.com/@some\\_channel\n" +
		"   Last: my\\_first \\`vlog\\`...\n" +
		"   Views: 10\n" +
		"\n"

	if diff := cmp.Diff(want, List(channels)); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestEscapeMarkdown(t *testing.T) {
	cases := map[string]string{
		"plain":            "plain",
		"a_b":              `a\_b`,
		"*bold*":           `\*bold\*`,
		"[link](x)":        `\[link](x)`,
		"`tick`":           "\\`tick\\`",
		`back\slash stays`: `back\slash stays`,
	}
	for in, want := range cases {
		if got := EscapeMarkdown(in); got != want {
			t.Errorf("EscapeMarkdown(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestList_Empty(t *testing.T) {
	if got := List(nil); got != EmptyMessage {
		t.Errorf("List(nil) = %q", got)
	}
}

func TestChunk(t *testing.T) {
	t.Run("short message is one chunk", func(t *testing.T) {
		if got := Chunk("hello", 10); !cmp.Equal(got, []string{"hello"}) {
			t.Errorf("got %q", got)
		}
	})

	t.Run("prefers line boundaries", func(t *testing.T) {
		msg := "aaaa\nbbbb\ncccc\n"
		got := Chunk(msg, 11)
		want := []string{"aaaa\nbbbb\n", "cccc\n"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hard cut without newline", func(t *testing.T) {
		got := Chunk(strings.Repeat("z", 25), 10)
		want := []string{strings.Repeat("z", 10), strings.Repeat("z", 10), strings.Repeat("z", 5)}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("hard cut keeps escape with its character", func(t *testing.T) {
		got := Chunk("abcd\\_efgh", 5)
		want := []string{"abcd", "\\_efg", "h"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("large report stays within limit and loses nothing", func(t *testing.T) {
		var channels []*entity.Channel
		for i := 0; i < 200; i++ {
			channels = append(channels, &entity.Channel{
				Reference:   "https://www.youtube.com/@channel" + strings.Repeat("é", i%7),
				DisplayName: strPtr("Channel ✅"),
				Status:      entity.StatusActive,
			})
		}
		msg := List(channels)
		chunks := Chunk(msg, MaxMessageLength)
		if len(chunks) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(chunks))
		}
		for i, c := range chunks {
			if n := utf8.RuneCountInString(c); n > MaxMessageLength {
				t.Errorf("chunk %d has %d runes", i, n)
			}
		}
		if strings.Join(chunks, "") != msg {
			t.Errorf("chunks do not reassemble the message")
		}
	})
}

func TestAdded(t *testing.T) {
	active := &entity.Channel{
		Reference:   "https://www.youtube.com/@sample",
		DisplayName: strPtr("Sample"),
		Status:      entity.StatusActive,
	}
	want := "✅ Added: https://www.youtube.com/@sample\n✅ Sample (active)"
	if diff := cmp.Diff(want, Added(active)); diff != "" {
		t.Errorf("Added mismatch (-want +got):\n%s", diff)
	}

	pending := &entity.Channel{Reference: "https://www.youtube.com/@later", Status: entity.StatusPending}
	want = "✅ Added: https://www.youtube.com/@later\n⏳ Unknown (pending)"
	if diff := cmp.Diff(want, Added(pending)); diff != "" {
		t.Errorf("Added mismatch (-want +got):\n%s", diff)
	}
}
