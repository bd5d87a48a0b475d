package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/observability/metrics"
	"chanwatch/internal/observability/tracing"
	"chanwatch/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Outcome is the result of one reconciliation pass. Channel is the record
// exactly as persisted by the pass.
type Outcome struct {
	Channel    *entity.Channel
	Accessible bool
	// Error is the probe's reason when Accessible is false.
	Error string
	// Skipped reports that the channel was not probed (its host's circuit
	// is open). Channel is the stored record, unchanged.
	Skipped bool
	// Resolved reports whether an external id was available for the
	// latest-publication lookup.
	Resolved bool
	Latest   *entity.Publication
	// Change is non-nil when the pass moved the channel between active
	// and inactive.
	Change *entity.StatusChange
}

// Reconciler merges probe and fetch results into the stored channel record.
type Reconciler struct {
	repo     repository.ChannelRepository
	prober   Prober
	fetcher  PublicationFetcher
	notifier ChangeNotifier
	now      func() time.Time

	// 同一チャンネルへの同時チェックは1回にまとめる
	inflight singleflight.Group
}

// NewReconciler creates a Reconciler. notifier may be nil.
func NewReconciler(repo repository.ChannelRepository, prober Prober, fetcher PublicationFetcher, notifier ChangeNotifier) *Reconciler {
	return &Reconciler{
		repo:     repo,
		prober:   prober,
		fetcher:  fetcher,
		notifier: notifier,
		now:      time.Now,
	}
}

// Reconcile runs one pass for ch and persists the result in a single write.
// Concurrent calls for the same channel id share one pass. Probe and lookup
// failures are part of the Outcome; the returned error is a persistence
// failure or ctx ending before the pass had a result, in which case nothing
// is written and no change is announced.
func (r *Reconciler) Reconcile(ctx context.Context, ch *entity.Channel) (*Outcome, error) {
	if ch == nil {
		return nil, fmt.Errorf("Reconcile: %w", entity.ErrInvalidInput)
	}
	key := strconv.FormatInt(ch.ID, 10)
	for {
		res := r.inflight.DoChan(key, func() (interface{}, error) {
			return r.reconcile(ctx, ch.Clone())
		})

		var v singleflight.Result
		select {
		case v = <-res:
		case <-ctx.Done():
			return nil, fmt.Errorf("Reconcile: %w", ctx.Err())
		}

		if v.Err != nil {
			// 共有パスを起動した呼び出し元だけがキャンセルされた
			if v.Shared && isContextError(v.Err) && ctx.Err() == nil {
				continue
			}
			return nil, v.Err
		}
		out := v.Val.(*Outcome)
		if v.Shared {
			cp := *out
			cp.Channel = out.Channel.Clone()
			out = &cp
		}
		return out, nil
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (r *Reconciler) reconcile(ctx context.Context, ch *entity.Channel) (*Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "status.Reconcile",
		attribute.Int64("channel.id", ch.ID),
		attribute.String("channel.reference", ch.Reference),
	)
	defer span.End()

	start := time.Now()
	logger := slog.With(slog.Int64("channel_id", ch.ID), slog.String("reference", ch.Reference))
	previous := ch.Status

	probe := r.prober.Probe(ctx, ch.Reference)
	if err := r.abandoned(ctx, span, start); err != nil {
		return nil, err
	}
	out := &Outcome{Accessible: probe.Accessible, Error: probe.Error}

	if probe.Skipped {
		// 前回の状態を維持: 書き込みも通知もしない
		out.Skipped = true
		out.Channel = ch
		metrics.RecordReconcile("skipped", time.Since(start))
		logger.Warn("channel not probed, keeping stored status",
			slog.String("status", string(ch.Status)),
			slog.String("reason", probe.Error))
		return out, nil
	}

	if probe.DisplayName != nil && *probe.DisplayName != "" {
		ch.DisplayName = entity.StringPtr(*probe.DisplayName)
	}

	if !probe.Accessible {
		ch.Status = entity.StatusInactive
		ch.ClearSnapshot()
	} else {
		ch.Status = entity.StatusActive
		if probe.ExternalID != nil && *probe.ExternalID != "" {
			ch.ExternalID = entity.StringPtr(*probe.ExternalID)
		}
		if ch.ExternalID != nil && *ch.ExternalID != "" {
			out.Resolved = true
			out.Latest = r.fetcher.Latest(ctx, *ch.ExternalID)
			if err := r.abandoned(ctx, span, start); err != nil {
				return nil, err
			}
		}
		if out.Latest != nil {
			ch.LatestTitle = entity.StringPtr(out.Latest.Title)
			ch.LatestViewCount = out.Latest.ViewCount
		} else {
			ch.ClearSnapshot()
		}
	}

	now := r.now().UTC()
	ch.LastCheckedAt = &now
	ch.UpdatedAt = now

	// 書き込みは呼び出し元のキャンセルに影響されない
	if err := r.repo.Update(context.WithoutCancel(ctx), ch); err != nil {
		tracing.Fail(span, err, "persist failed")
		metrics.RecordReconcile("error", time.Since(start))
		logger.Error("failed to persist reconciliation", slog.Any("error", err))
		if errors.Is(err, entity.ErrNotFound) {
			return nil, fmt.Errorf("Reconcile: channel %d: %w", ch.ID, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("Reconcile: %w", err)
	}
	out.Channel = ch

	metrics.RecordReconcile(string(ch.Status), time.Since(start))
	span.SetAttributes(
		attribute.String("channel.status", string(ch.Status)),
		attribute.Bool("channel.resolved", out.Resolved),
	)
	logger.Info("channel reconciled",
		slog.String("status", string(ch.Status)),
		slog.String("previous", string(previous)),
		slog.Bool("resolved", out.Resolved),
		slog.Bool("has_latest", out.Latest != nil),
		slog.String("error", out.Error),
		slog.Duration("duration", time.Since(start)))

	if isTransition(previous, ch.Status) {
		out.Change = &entity.StatusChange{
			ChannelID: ch.ID,
			Reference: ch.Reference,
			Name:      ch.Name(),
			Previous:  previous,
			Current:   ch.Status,
			Reason:    out.Error,
			Latest:    out.Latest,
			At:        now,
		}
		metrics.RecordStatusTransition(string(previous), string(ch.Status))
		if r.notifier != nil {
			if err := r.notifier.NotifyStatusChange(context.WithoutCancel(ctx), out.Change); err != nil {
				logger.Warn("failed to dispatch status change", slog.Any("error", err))
			}
		}
	}

	return out, nil
}

// abandoned reports ctx ending mid-pass. A probe or lookup cut short by the
// caller says nothing about the channel, so the pass must not be persisted.
func (r *Reconciler) abandoned(ctx context.Context, span trace.Span, start time.Time) error {
	if ctx.Err() == nil {
		return nil
	}
	tracing.Fail(span, ctx.Err(), "reconcile abandoned")
	metrics.RecordReconcile("abandoned", time.Since(start))
	return fmt.Errorf("Reconcile: %w", ctx.Err())
}

// isTransition reports a move between active and inactive. First checks of
// pending or unknown channels are not transitions.
func isTransition(from, to entity.ChannelStatus) bool {
	if from == to {
		return false
	}
	return (from == entity.StatusActive || from == entity.StatusInactive) &&
		(to == entity.StatusActive || to == entity.StatusInactive)
}
