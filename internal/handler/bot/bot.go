// Package bot serves the chat front-end: a long-poll loop over the
// Telegram Bot API that answers /start, /status, /list and /add.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/handler/http/requestid"
	"chanwatch/internal/infra/telegram"
	"chanwatch/internal/usecase/status"
)

// Messenger is the chat transport.
type Messenger interface {
	GetUpdates(ctx context.Context, offset int64) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// Channels is the subset of the channel use cases the bot calls.
type Channels interface {
	List(ctx context.Context) ([]*entity.Channel, error)
	Add(ctx context.Context, reference string) (*entity.Channel, error)
}

// Sweeper reconciles every stored channel.
type Sweeper interface {
	CheckAll(ctx context.Context) ([]*status.Outcome, *status.SweepStats, error)
}

// Config tunes the poll loop.
type Config struct {
	// AllowedChats restricts who may issue commands. Empty allows every chat.
	AllowedChats []int64
	// ErrorBackoff is the first wait after a failed poll; it doubles up to
	// MaxErrorBackoff.
	ErrorBackoff    time.Duration
	MaxErrorBackoff time.Duration
	// CommandTimeout bounds a single command, /status included.
	CommandTimeout time.Duration
}

// DefaultConfig returns the loop defaults.
func DefaultConfig() Config {
	return Config{
		ErrorBackoff:    time.Second,
		MaxErrorBackoff: time.Minute,
		CommandTimeout:  5 * time.Minute,
	}
}

// Bot dispatches chat commands to the channel use cases.
type Bot struct {
	api      Messenger
	channels Channels
	sweeper  Sweeper
	cfg      Config
	allowed  map[int64]struct{}
	offset   int64
}

// New creates a Bot. Zero durations in cfg take DefaultConfig values.
func New(api Messenger, channels Channels, sweeper Sweeper, cfg Config) *Bot {
	def := DefaultConfig()
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.MaxErrorBackoff < cfg.ErrorBackoff {
		cfg.MaxErrorBackoff = max(def.MaxErrorBackoff, cfg.ErrorBackoff)
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	allowed := make(map[int64]struct{}, len(cfg.AllowedChats))
	for _, id := range cfg.AllowedChats {
		allowed[id] = struct{}{}
	}
	return &Bot{api: api, channels: channels, sweeper: sweeper, cfg: cfg, allowed: allowed}
}

// Run polls for updates until ctx is canceled. Poll failures are logged
// and retried with exponential backoff; Run only returns ctx's error.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("bot polling started", slog.Int("allowed_chats", len(b.allowed)))
	backoff := b.cfg.ErrorBackoff

	for {
		if err := ctx.Err(); err != nil {
			slog.Info("bot polling stopped")
			return err
		}

		updates, err := b.api.GetUpdates(ctx, b.offset)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Warn("getUpdates failed", slog.Any("error", err), slog.Duration("retry_in", backoff))
			pollErrorsTotal.Inc()
			if !sleep(ctx, backoff) {
				continue
			}
			backoff = min(backoff*2, b.cfg.MaxErrorBackoff)
			continue
		}
		backoff = b.cfg.ErrorBackoff

		for _, u := range updates {
			// 確認済みの更新は次のポーリングで返さない
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
			if u.Message == nil {
				continue
			}
			b.Handle(ctx, u.Message)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Handle answers one message. Unknown commands and plain text are ignored.
func (b *Bot) Handle(ctx context.Context, msg *telegram.Message) {
	cmd, arg, ok := parseCommand(msg.Text)
	if !ok || !known(cmd) {
		return
	}
	logger := slog.With(
		slog.String("request_id", requestid.New()),
		slog.String("command", cmd),
		slog.Int64("chat_id", msg.Chat.ID))

	if !b.isAllowed(msg.Chat.ID) {
		logger.Warn("command from chat outside allow list ignored")
		recordCommand(cmd, "denied")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.CommandTimeout)
	defer cancel()

	start := time.Now()
	var err error
	switch cmd {
	case "start", "help":
		err = b.cmdStart(ctx, msg.Chat.ID)
	case "status":
		err = b.cmdStatus(ctx, msg.Chat.ID)
	case "list":
		err = b.cmdList(ctx, msg.Chat.ID)
	case "add":
		err = b.cmdAdd(ctx, msg.Chat.ID, arg)
	}

	if err != nil {
		logger.Error("command failed", slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		recordCommand(cmd, "error")
		if !errors.Is(err, context.Canceled) {
			b.reply(context.WithoutCancel(ctx), msg.Chat.ID, "❌ Error: "+userError(err), "")
		}
		return
	}
	logger.Info("command handled", slog.Duration("duration", time.Since(start)))
	recordCommand(cmd, "ok")
}

func (b *Bot) isAllowed(chatID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[chatID]
	return ok
}

// reply sends text, logging instead of failing; used for best-effort
// acknowledgements.
func (b *Bot) reply(ctx context.Context, chatID int64, text, parseMode string) {
	if err := b.api.SendMessage(ctx, chatID, text, parseMode); err != nil {
		slog.Warn("sendMessage failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}
