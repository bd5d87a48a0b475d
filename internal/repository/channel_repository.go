package repository

import (
	"context"

	"chanwatch/internal/domain/entity"
)

// ChannelRepository is the durable store of tracked channels.
//
// Get and GetByReference return (nil, nil) for absent rows. Create reports a
// reference collision with entity.ErrDuplicate. Update writes every mutable
// field in a single statement so concurrent passes never interleave. Delete
// is idempotent toward absent ids.
type ChannelRepository interface {
	Get(ctx context.Context, id int64) (*entity.Channel, error)
	GetByReference(ctx context.Context, reference string) (*entity.Channel, error)
	List(ctx context.Context) ([]*entity.Channel, error)
	Create(ctx context.Context, channel *entity.Channel) error
	Update(ctx context.Context, channel *entity.Channel) error
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context) (map[entity.ChannelStatus]int, error)
}
