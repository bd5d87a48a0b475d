// Package worker holds the scheduled-sweep plumbing for cmd/worker:
// fail-open configuration, job metrics, the health server and the job
// itself.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chanwatch/internal/pkg/config"
)

// WorkerConfig holds the sweep settings.
type WorkerConfig struct {
	// CronSchedule is a five-field expression or a descriptor ("@every 30m").
	CronSchedule string
	// Timezone is the IANA zone the schedule is evaluated in.
	Timezone string
	// CheckMaxConcurrent bounds concurrent channel checks within a sweep.
	CheckMaxConcurrent int
	// SweepTimeout bounds one whole sweep.
	SweepTimeout time.Duration
	// NotifyMaxConcurrent bounds concurrent alert deliveries.
	NotifyMaxConcurrent int
	// RunOnStart triggers one sweep right after startup.
	RunOnStart  bool
	HealthPort  int
	MetricsPort int
}

// DefaultConfig returns the defaults: hourly in UTC, four checks at a time.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:        "0 * * * *",
		Timezone:            "UTC",
		CheckMaxConcurrent:  4,
		SweepTimeout:        15 * time.Minute,
		NotifyMaxConcurrent: 10,
		RunOnStart:          false,
		HealthPort:          9091,
		MetricsPort:         9090,
	}
}

// Validate checks every field and reports all problems at once.
func (c *WorkerConfig) Validate() error {
	var errs []error
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.CheckMaxConcurrent, 1, 64); err != nil {
		errs = append(errs, fmt.Errorf("check max concurrent: %w", err))
	}
	if err := config.ValidateDuration(c.SweepTimeout, time.Minute, 4*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("sweep timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 100); err != nil {
		errs = append(errs, fmt.Errorf("notify max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, errors.New("health and metrics ports must differ"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the schedule's time zone, UTC when it cannot be loaded.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfigFromEnv reads CRON_SCHEDULE, WORKER_TIMEZONE,
// CHECK_MAX_CONCURRENT, SWEEP_TIMEOUT, NOTIFY_MAX_CONCURRENT,
// SWEEP_ON_START, WORKER_HEALTH_PORT and METRICS_PORT. Invalid values fall
// back to defaults with a warning; it never fails.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) *WorkerConfig {
	cfg := DefaultConfig()
	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	tr := config.NewTracker(logger, cm)

	cfg.CronSchedule = config.Track(tr, "cron_schedule",
		config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule))
	cfg.Timezone = config.Track(tr, "timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone))
	cfg.CheckMaxConcurrent = config.Track(tr, "check_max_concurrent",
		config.LoadEnvInt("CHECK_MAX_CONCURRENT", cfg.CheckMaxConcurrent, config.IntBetween(1, 64)))
	cfg.SweepTimeout = config.Track(tr, "sweep_timeout",
		config.LoadEnvDuration("SWEEP_TIMEOUT", cfg.SweepTimeout, config.DurationBetween(time.Minute, 4*time.Hour)))
	cfg.NotifyMaxConcurrent = config.Track(tr, "notify_max_concurrent",
		config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, config.IntBetween(1, 100)))
	cfg.RunOnStart = config.Track(tr, "sweep_on_start",
		config.LoadEnvBool("SWEEP_ON_START", cfg.RunOnStart))
	cfg.HealthPort = config.Track(tr, "health_port",
		config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, config.IntBetween(1024, 65535)))
	cfg.MetricsPort = config.Track(tr, "metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, config.IntBetween(1024, 65535)))

	tr.Done()
	return &cfg
}
