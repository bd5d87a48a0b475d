package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/repository"
	"chanwatch/internal/usecase/status"
)

// Reconciler runs one status pass for a stored channel.
type Reconciler interface {
	Reconcile(ctx context.Context, ch *entity.Channel) (*status.Outcome, error)
}

// Service provides channel management use cases.
type Service struct {
	Repo repository.ChannelRepository
	// Prober is used for the best-effort check right after Add. Nil skips it.
	Prober status.Prober
	// Reconciler serves Check. Nil makes Check unavailable.
	Reconciler Reconciler
	// AllowedHosts restricts references; empty means entity.DefaultReferenceHosts.
	AllowedHosts []string
}

// List retrieves all channels, most recently added first.
func (s *Service) List(ctx context.Context) ([]*entity.Channel, error) {
	channels, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// Get returns one channel or ErrChannelNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Channel, error) {
	if id <= 0 {
		return nil, &entity.ValidationError{Field: "id", Message: "must be positive"}
	}
	ch, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}

// Add validates reference and stores it as pending. When a Prober is
// configured the new channel is probed once; a reachable channel is
// promoted to active with its display name, an unreachable one stays
// pending. Probe failures never fail Add.
func (s *Service) Add(ctx context.Context, reference string) (*entity.Channel, error) {
	reference = strings.TrimSpace(reference)
	if err := entity.ValidateReference(reference, s.AllowedHosts); err != nil {
		return nil, fmt.Errorf("validate reference: %w", err)
	}

	ch := &entity.Channel{Reference: reference, Status: entity.StatusPending}
	if err := s.Repo.Create(ctx, ch); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			return nil, ErrDuplicateChannel
		}
		return nil, fmt.Errorf("create channel: %w", err)
	}

	if s.Prober == nil {
		return ch, nil
	}

	res := s.Prober.Probe(ctx, reference)
	if !res.Accessible {
		slog.Info("new channel not reachable yet, left pending",
			slog.Int64("channel_id", ch.ID),
			slog.String("reference", reference),
			slog.String("error", res.Error))
		return ch, nil
	}

	promoted := ch.Clone()
	promoted.Status = entity.StatusActive
	if res.DisplayName != nil {
		promoted.DisplayName = entity.StringPtr(*res.DisplayName)
	}
	if res.ExternalID != nil {
		promoted.ExternalID = entity.StringPtr(*res.ExternalID)
	}
	now := time.Now().UTC()
	promoted.LastCheckedAt = &now
	promoted.UpdatedAt = now
	if err := s.Repo.Update(context.WithoutCancel(ctx), promoted); err != nil {
		slog.Warn("failed to promote new channel",
			slog.Int64("channel_id", ch.ID),
			slog.Any("error", err))
		return ch, nil
	}
	return promoted, nil
}

// Remove deletes a channel. Removing an absent id is not an error.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if id <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

// Check reconciles one stored channel on demand.
func (s *Service) Check(ctx context.Context, id int64) (*status.Outcome, error) {
	if s.Reconciler == nil {
		return nil, errors.New("check: no reconciler configured")
	}
	ch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.Reconciler.Reconcile(ctx, ch)
	if err != nil {
		// チェック中に削除された
		if errors.Is(err, entity.ErrNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("check channel: %w", err)
	}
	return out, nil
}
