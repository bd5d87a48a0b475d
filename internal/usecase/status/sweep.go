package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/observability/metrics"
	"chanwatch/internal/repository"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxConcurrent bounds concurrent checks when no limit is configured.
const DefaultMaxConcurrent = 4

// SweepStats contains statistics about a sweep.
type SweepStats struct {
	Channels    int
	Active      int
	Inactive    int
	Skipped     int
	Failed      int
	Transitions int
	Duration    time.Duration
}

// Sweeper reconciles every stored channel with bounded concurrency.
type Sweeper struct {
	repo          repository.ChannelRepository
	reconciler    *Reconciler
	maxConcurrent int
}

// NewSweeper creates a Sweeper. maxConcurrent <= 0 uses DefaultMaxConcurrent.
func NewSweeper(repo repository.ChannelRepository, reconciler *Reconciler, maxConcurrent int) *Sweeper {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Sweeper{repo: repo, reconciler: reconciler, maxConcurrent: maxConcurrent}
}

// CheckAll reconciles every stored channel. Outcomes are returned in the
// store's list order (newest first) regardless of completion order; a
// channel whose pass failed to persist has a nil entry. Only listing
// failures and context cancellation abort the sweep.
func (s *Sweeper) CheckAll(ctx context.Context) ([]*Outcome, *SweepStats, error) {
	start := time.Now()
	channels, err := s.repo.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list channels: %w", err)
	}

	stats := &SweepStats{Channels: len(channels)}
	outcomes := make([]*Outcome, len(channels))
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.maxConcurrent)
	for i, ch := range channels {
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			out, err := s.reconciler.Reconcile(egCtx, ch)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				// 削除済みなど: 他のチャンネルは続行
				stats.Failed++
				slog.Warn("channel check failed",
					slog.Int64("channel_id", ch.ID),
					slog.Any("error", err))
				return nil
			}
			outcomes[i] = out
			switch {
			case out.Skipped:
				stats.Skipped++
			case out.Channel.Status == entity.StatusActive:
				stats.Active++
			case out.Channel.Status == entity.StatusInactive:
				stats.Inactive++
			}
			if out.Change != nil {
				stats.Transitions++
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		stats.Duration = time.Since(start)
		return outcomes, stats, fmt.Errorf("sweep aborted: %w", err)
	}

	stats.Duration = time.Since(start)
	metrics.RecordSweep(stats.Duration)
	if counts, err := s.repo.CountByStatus(ctx); err == nil {
		byName := make(map[string]int, len(counts))
		for k, v := range counts {
			byName[string(k)] = v
		}
		metrics.UpdateChannelsTotal(byName)
	}

	slog.Info("channel sweep completed",
		slog.Int("channels", stats.Channels),
		slog.Int("active", stats.Active),
		slog.Int("inactive", stats.Inactive),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Int("transitions", stats.Transitions),
		slog.Duration("duration", stats.Duration))

	return outcomes, stats, nil
}
