package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/infra/telegram"
	"chanwatch/internal/usecase/channel"
	"chanwatch/internal/usecase/report"
	"chanwatch/internal/usecase/status"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ───────── スタブ ───────── */

type sent struct {
	chatID    int64
	text      string
	parseMode string
}

type fakeMessenger struct {
	mu      sync.Mutex
	batches [][]telegram.Update
	pollErr []error
	offsets []int64
	sent    []sent
	cancel  context.CancelFunc
}

func (f *fakeMessenger) GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	if len(f.pollErr) > 0 {
		err := f.pollErr[0]
		f.pollErr = f.pollErr[1:]
		return nil, err
	}
	if len(f.batches) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text, parseMode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID, text, parseMode})
	return nil
}

func (f *fakeMessenger) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.text
	}
	return out
}

type stubChannels struct {
	list    []*entity.Channel
	listErr error
	added   []string
	addErr  error
}

func (s *stubChannels) List(context.Context) ([]*entity.Channel, error) {
	return s.list, s.listErr
}

func (s *stubChannels) Add(_ context.Context, ref string) (*entity.Channel, error) {
	s.added = append(s.added, ref)
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &entity.Channel{ID: 1, Reference: ref, Status: entity.StatusPending}, nil
}

type stubSweeper struct {
	outcomes []*status.Outcome
	err      error
	calls    int
}

func (s *stubSweeper) CheckAll(context.Context) ([]*status.Outcome, *status.SweepStats, error) {
	s.calls++
	return s.outcomes, &status.SweepStats{Channels: len(s.outcomes)}, s.err
}

func message(chatID int64, text string) *telegram.Message {
	return &telegram.Message{MessageID: 1, Chat: telegram.Chat{ID: chatID, Type: "private"}, Text: text}
}

func newBot(api *fakeMessenger, ch *stubChannels, sw *stubSweeper, allowed ...int64) *Bot {
	return New(api, ch, sw, Config{
		AllowedChats:    allowed,
		ErrorBackoff:    time.Millisecond,
		MaxErrorBackoff: 4 * time.Millisecond,
	})
}

func name(s string) *string { return &s }

/* ───────── コマンド解析 ───────── */

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in       string
		cmd, arg string
		ok       bool
	}{
		{"/start", "start", "", true},
		{"/status@chanwatch_bot", "status", "", true},
		{"  /add https://www.youtube.com/@x  ", "add", "https://www.youtube.com/@x", true},
		{"/ADD  url", "add", "url", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		cmd, arg, ok := parseCommand(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.cmd, cmd, tt.in)
		assert.Equal(t, tt.arg, arg, tt.in)
	}
}

/* ───────── コマンド ───────── */

func TestHandle_Start(t *testing.T) {
	api := &fakeMessenger{}
	newBot(api, &stubChannels{}, &stubSweeper{}).Handle(context.Background(), message(7, "/start"))

	require.Len(t, api.sent, 1)
	assert.Equal(t, report.HelpMessage, api.sent[0].text)
	assert.Equal(t, telegram.ParseModeMarkdown, api.sent[0].parseMode)
	assert.Equal(t, int64(7), api.sent[0].chatID)
}

func TestHandle_IgnoresUnknownAndPlainText(t *testing.T) {
	api := &fakeMessenger{}
	b := newBot(api, &stubChannels{}, &stubSweeper{})
	b.Handle(context.Background(), message(7, "/nope"))
	b.Handle(context.Background(), message(7, "just chatting"))
	assert.Empty(t, api.sent)
}

func TestHandle_List(t *testing.T) {
	api := &fakeMessenger{}
	ch := &stubChannels{list: []*entity.Channel{
		{ID: 1, Reference: "https://www.youtube.com/@a", DisplayName: name("A"), Status: entity.StatusActive},
	}}
	newBot(api, ch, &stubSweeper{}).Handle(context.Background(), message(7, "/list"))

	require.Len(t, api.sent, 1)
	assert.Equal(t, report.List(ch.list), api.sent[0].text)
}

func TestHandle_ListEmpty(t *testing.T) {
	api := &fakeMessenger{}
	newBot(api, &stubChannels{}, &stubSweeper{}).Handle(context.Background(), message(7, "/list"))
	assert.Equal(t, []string{report.EmptyMessage}, api.texts())
}

func TestHandle_Status(t *testing.T) {
	api := &fakeMessenger{}
	sw := &stubSweeper{outcomes: []*status.Outcome{{
		Channel:    &entity.Channel{ID: 1, Reference: "https://www.youtube.com/@gone", Status: entity.StatusInactive},
		Accessible: false,
		Error:      "Channel not found (404)",
	}}}
	newBot(api, &stubChannels{}, sw).Handle(context.Background(), message(7, "/status"))

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, report.CheckingMessage, texts[0])
	assert.Contains(t, texts[1], "❌ Inactive gone")
	assert.Contains(t, texts[1], "└─ Error: Channel not found (404)")
	assert.Equal(t, 1, sw.calls)
}

func TestHandle_StatusEmpty(t *testing.T) {
	api := &fakeMessenger{}
	newBot(api, &stubChannels{}, &stubSweeper{}).Handle(context.Background(), message(7, "/status"))
	assert.Equal(t, []string{report.CheckingMessage, report.EmptyMessage}, api.texts())
}

func TestHandle_StatusChunksLongReports(t *testing.T) {
	var outcomes []*status.Outcome
	for i := 0; i < 120; i++ {
		outcomes = append(outcomes, &status.Outcome{
			Channel: &entity.Channel{Reference: "https://www.youtube.com/@c", DisplayName: name(strings.Repeat("n", 40)),
				Status: entity.StatusInactive},
			Error: "HTTP 503",
		})
	}
	api := &fakeMessenger{}
	newBot(api, &stubChannels{}, &stubSweeper{outcomes: outcomes}).Handle(context.Background(), message(7, "/status"))

	texts := api.texts()
	require.Greater(t, len(texts), 2)
	for _, part := range texts[1:] {
		assert.LessOrEqual(t, len([]rune(part)), report.MaxMessageLength)
	}
	assert.Equal(t, report.Status(outcomes), strings.Join(texts[1:], ""))
}

func TestHandle_StatusFailureRepliesGenerically(t *testing.T) {
	api := &fakeMessenger{}
	sw := &stubSweeper{err: errors.New("pq: connection refused to 10.0.0.5")}
	newBot(api, &stubChannels{}, sw).Handle(context.Background(), message(7, "/status"))

	texts := api.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "❌ Error: internal error, see logs", texts[1])
}

func TestHandle_Add(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		addErr  error
		want    string
		wantAdd bool
	}{
		{"usage", "/add", nil, addUsage, false},
		{"success", "/add https://www.youtube.com/@new", nil, "✅ Added: https://www.youtube.com/@new", true},
		{"validation", "/add ftp://example.com", &entity.ValidationError{Field: "url", Message: "URL must use http or https scheme"},
			"⚠️ URL must use http or https scheme", true},
		{"wrapped validation", "/add https://example.com/x",
			errors.Join(errors.New("validate reference"), &entity.ValidationError{Field: "url", Message: "URL must be a YouTube channel URL"}),
			"⚠️ URL must be a YouTube channel URL", true},
		{"duplicate", "/add https://www.youtube.com/@dup", channel.ErrDuplicateChannel, "⚠️ Channel already monitored", true},
		{"store failure", "/add https://www.youtube.com/@x", errors.New("disk full"), "❌ Error: internal error, see logs", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeMessenger{}
			ch := &stubChannels{addErr: tt.addErr}
			newBot(api, ch, &stubSweeper{}).Handle(context.Background(), message(7, tt.text))

			texts := api.texts()
			require.Len(t, texts, 1)
			assert.True(t, strings.HasPrefix(texts[0], tt.want), "got %q", texts[0])
			assert.Equal(t, tt.wantAdd, len(ch.added) == 1)
		})
	}
}

func TestHandle_AllowList(t *testing.T) {
	api := &fakeMessenger{}
	b := newBot(api, &stubChannels{}, &stubSweeper{}, 42)

	b.Handle(context.Background(), message(7, "/start"))
	assert.Empty(t, api.sent)

	b.Handle(context.Background(), message(42, "/start"))
	assert.Len(t, api.sent, 1)
}

/* ───────── ポーリング ───────── */

func TestRun_AdvancesOffsetAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeMessenger{
		cancel: cancel,
		batches: [][]telegram.Update{
			{{UpdateID: 10, Message: message(7, "/start")}, {UpdateID: 11}},
			{{UpdateID: 12, Message: message(7, "hello")}},
		},
	}
	err := newBot(api, &stubChannels{}, &stubSweeper{}).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{0, 12, 13}, api.offsets)
	assert.Equal(t, []string{report.HelpMessage}, api.texts())
}

func TestRun_RetriesAfterPollError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeMessenger{
		cancel:  cancel,
		pollErr: []error{errors.New("bad gateway"), errors.New("bad gateway")},
		batches: [][]telegram.Update{{{UpdateID: 3, Message: message(7, "/start")}}},
	}
	err := newBot(api, &stubChannels{}, &stubSweeper{}).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{0, 0, 0, 4}, api.offsets)
	assert.Len(t, api.sent, 1)
}
