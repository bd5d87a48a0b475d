package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"chanwatch/internal/app"
	workerPkg "chanwatch/internal/infra/worker"
	"chanwatch/internal/observability/logging"
	"chanwatch/pkg/config"
)

func main() {
	config.LoadDotEnv()
	logger := logging.NewLogger("worker")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 設定はフェイルオープン: 不正値はデフォルトに戻して起動を続ける
	workerMetrics := workerPkg.NewWorkerMetrics()
	cfg := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Int("check_max_concurrent", cfg.CheckMaxConcurrent),
		slog.Duration("sweep_timeout", cfg.SweepTimeout),
		slog.Int("notify_max_concurrent", cfg.NotifyMaxConcurrent),
		slog.Bool("sweep_on_start", cfg.RunOnStart),
		slog.Int("health_port", cfg.HealthPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	a, err := app.New(ctx, logger, app.Options{
		CheckMaxConcurrent:  cfg.CheckMaxConcurrent,
		Alerts:              true,
		NotifyMaxConcurrent: cfg.NotifyMaxConcurrent,
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

	startMetricsServer(ctx, logger, cfg.MetricsPort, a.Notify)

	healthServer := workerPkg.NewHealthServer(":"+strconv.Itoa(cfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	job := workerPkg.NewSweepJob(a.Sweeper, cfg.SweepTimeout, workerMetrics, healthServer, logger)
	if err := runScheduler(ctx, logger, job, cfg, healthServer); err != nil {
		logger.Error("scheduler failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// runScheduler runs job on cfg's schedule until ctx is cancelled, then
// waits for an in-flight sweep to return.
func runScheduler(ctx context.Context, logger *slog.Logger, job *workerPkg.SweepJob, cfg *workerPkg.WorkerConfig, health *workerPkg.HealthServer) error {
	c := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := job.Schedule(ctx, c, cfg.CronSchedule); err != nil {
		return err
	}

	c.Start()
	health.SetReady(true)
	logger.Info("sweep scheduled",
		slog.String("schedule", cfg.CronSchedule),
		slog.Time("next_run", c.Entries()[0].Next))

	if cfg.RunOnStart {
		go job.Run(ctx)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, waiting for running sweep")
	health.SetReady(false)

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(cfg.SweepTimeout):
		logger.Warn("running sweep did not stop before the sweep timeout")
	}
	logger.Info("worker stopped")
	return nil
}
