package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chanwatch/internal/app"
	"chanwatch/internal/handler/bot"
	"chanwatch/internal/observability/logging"
	"chanwatch/pkg/config"
)

func main() {
	config.LoadDotEnv()
	logger := logging.NewLogger("bot")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, logger, app.Options{
		CheckMaxConcurrent:  config.GetEnvInt("CHECK_MAX_CONCURRENT", 4),
		Alerts:              config.GetEnvBool("BOT_ALERTS_ENABLED", false),
		NotifyMaxConcurrent: config.GetEnvInt("NOTIFY_MAX_CONCURRENT", 10),
	})
	if err != nil {
		logger.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("shutdown cleanup failed", slog.Any("error", err))
		}
	}()

	if a.Telegram == nil {
		logger.Error("TELEGRAM_BOT_TOKEN is required for the bot")
		os.Exit(1)
	}

	b := bot.New(a.Telegram, a.Channels, a.Sweeper, bot.ConfigFromEnv(logger))
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped", slog.Any("error", err))
		return
	}
	logger.Info("bot stopped")
}
