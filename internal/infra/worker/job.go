package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"chanwatch/internal/handler/http/requestid"
	"chanwatch/internal/handler/http/respond"
	"chanwatch/internal/usecase/status"

	"github.com/robfig/cron/v3"
)

// Sweeper reconciles every stored channel.
type Sweeper interface {
	CheckAll(ctx context.Context) ([]*status.Outcome, *status.SweepStats, error)
}

// SweepMarker is told when a sweep finishes; *HealthServer implements it.
type SweepMarker interface {
	MarkSweep(at time.Time)
}

// SweepJob runs one bounded sweep per schedule tick. Ticks that arrive
// while a sweep is still running are skipped rather than queued.
type SweepJob struct {
	sweeper Sweeper
	timeout time.Duration
	metrics *WorkerMetrics
	marker  SweepMarker
	logger  *slog.Logger
	running atomic.Bool
}

// NewSweepJob creates a job. metrics and marker may be nil.
func NewSweepJob(sweeper Sweeper, timeout time.Duration, metrics *WorkerMetrics, marker SweepMarker, logger *slog.Logger) *SweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultConfig().SweepTimeout
	}
	return &SweepJob{sweeper: sweeper, timeout: timeout, metrics: metrics, marker: marker, logger: logger}
}

// Schedule registers the job on c under spec. Every run derives from ctx,
// so canceling ctx aborts an in-flight sweep.
func (j *SweepJob) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() { j.Run(ctx) })
}

// Run performs one sweep and reports whether it completed.
func (j *SweepJob) Run(ctx context.Context) bool {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("previous sweep still running, tick skipped")
		j.record("skipped")
		return false
	}
	defer j.running.Store(false)

	logger := j.logger.With(slog.String("request_id", requestid.New()))
	start := time.Now()
	j.record("started")
	logger.Info("sweep started")

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	_, stats, err := j.sweeper.CheckAll(ctx)
	elapsed := time.Since(start)
	if j.metrics != nil {
		j.metrics.RecordJobDuration(elapsed.Seconds())
	}
	if err != nil {
		logger.Error("sweep failed",
			slog.String("error", respond.SanitizeError(err)),
			slog.Duration("duration", elapsed))
		j.record("failure")
		return false
	}

	j.record("success")
	if j.metrics != nil {
		j.metrics.RecordChannelsChecked(stats.Channels-stats.Failed, stats.Transitions)
		j.metrics.RecordLastSuccess()
	}
	if j.marker != nil {
		j.marker.MarkSweep(time.Now())
	}
	logger.Info("sweep completed",
		slog.Int("channels", stats.Channels),
		slog.Int("active", stats.Active),
		slog.Int("inactive", stats.Inactive),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Int("transitions", stats.Transitions),
		slog.Duration("duration", elapsed))
	return true
}

func (j *SweepJob) record(s string) {
	if j.metrics != nil {
		j.metrics.RecordJobRun(s)
	}
}
