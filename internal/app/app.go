// Package app assembles the components shared by the chanwatch binaries:
// store, YouTube client, prober, reconciler, sweeper, alert dispatch and
// the channel service.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"chanwatch/internal/infra/adapter/persistence/postgres"
	"chanwatch/internal/infra/adapter/persistence/sqlite"
	"chanwatch/internal/infra/db"
	"chanwatch/internal/infra/notifier"
	"chanwatch/internal/infra/prober"
	"chanwatch/internal/infra/telegram"
	"chanwatch/internal/infra/youtube"
	"chanwatch/internal/repository"
	"chanwatch/internal/usecase/channel"
	"chanwatch/internal/usecase/notify"
	"chanwatch/internal/usecase/status"
	"chanwatch/pkg/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Options selects the optional parts of the assembly.
type Options struct {
	// CheckMaxConcurrent bounds concurrent checks during a sweep.
	CheckMaxConcurrent int
	// Alerts enables status-change dispatch to Telegram, Discord and Slack.
	Alerts bool
	// NotifyMaxConcurrent bounds in-flight alert sends.
	NotifyMaxConcurrent int
}

// App holds the assembled components. Telegram and Notify are nil when not
// configured or not requested.
type App struct {
	Logger  *slog.Logger
	DB      *sql.DB
	Dialect db.Dialect

	Repo       repository.ChannelRepository
	YouTube    *youtube.Client
	Telegram   *telegram.Client
	Notify     notify.Service
	Reconciler *status.Reconciler
	Sweeper    *status.Sweeper
	Channels   *channel.Service
}

// New opens and migrates the store selected by the environment and wires
// every component on top of it.
func New(ctx context.Context, logger *slog.Logger, opts Options) (*App, error) {
	target := db.TargetFromEnv()
	database, err := db.Open(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.MigrateUp(database, target.Dialect); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &App{Logger: logger, DB: database, Dialect: target.Dialect}
	if err := a.wire(ctx, opts); err != nil {
		_ = database.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, opts Options) error {
	if a.Dialect == db.DialectPostgres {
		a.Repo = postgres.NewChannelRepo(a.DB)
	} else {
		a.Repo = sqlite.NewChannelRepo(a.DB)
	}

	yt, err := youtube.New(ctx, youtube.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("youtube client: %w", err)
	}
	a.YouTube = yt

	tg, err := telegram.New(telegram.ConfigFromEnv())
	switch {
	case errors.Is(err, telegram.ErrNoToken):
		a.Logger.Info("TELEGRAM_BOT_TOKEN not set, Telegram disabled")
	case err != nil:
		return fmt.Errorf("telegram client: %w", err)
	default:
		a.Telegram = tg
	}

	probeCfg, err := prober.LoadConfigFromEnv()
	if err != nil {
		a.Logger.Warn("using default probe configuration", slog.Any("error", err))
	}
	resolver := status.NewResolver(yt)
	pageProber := prober.New(probeCfg, resolver)

	var changes status.ChangeNotifier
	if opts.Alerts {
		a.Notify = notify.NewService(a.alertChannels(), opts.NotifyMaxConcurrent)
		changes = a.Notify
	}

	a.Reconciler = status.NewReconciler(a.Repo, pageProber, status.NewFetcher(yt), changes)
	a.Sweeper = status.NewSweeper(a.Repo, a.Reconciler, opts.CheckMaxConcurrent)
	a.Channels = &channel.Service{
		Repo:         a.Repo,
		Prober:       pageProber,
		Reconciler:   a.Reconciler,
		AllowedHosts: config.GetEnvStringList("ALLOWED_REFERENCE_HOSTS", nil),
	}
	return nil
}

// alertChannels builds every alert channel from the environment. Disabled
// channels are kept so health reports list them.
func (a *App) alertChannels() []notify.Channel {
	channels := []notify.Channel{
		notify.NewDiscordChannel(notifier.DiscordConfigFromEnv(a.Logger)),
		notify.NewSlackChannel(notifier.SlackConfigFromEnv(a.Logger)),
	}
	tgCfg := notifier.TelegramConfigFromEnv(a.Logger)
	// a nil *telegram.Client must not reach the interface
	var sender notifier.MessageSender
	if a.Telegram != nil {
		sender = a.Telegram
	} else if tgCfg.Enabled {
		a.Logger.Warn("TELEGRAM_CHAT_ID set without TELEGRAM_BOT_TOKEN, Telegram alerts disabled")
	}
	return append(channels, notify.NewTelegramChannel(tgCfg, sender))
}

// Close lets in-flight alerts finish, bounded by ctx, and closes the
// database.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Notify != nil {
		if err := a.Notify.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notify shutdown: %w", err))
		}
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
