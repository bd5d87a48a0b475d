package status

import (
	"context"
	"log/slog"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/observability/metrics"
)

const (
	// FetchTimeout bounds each metadata call made by the fetcher.
	FetchTimeout = 10 * time.Second

	// MaxScanItems is the number of most recent uploads examined.
	MaxScanItems = 50
)

// Fetcher finds the most recent non-short publication of a channel.
type Fetcher struct {
	lookup  Lookup
	timeout time.Duration
}

// NewFetcher creates a Fetcher. A nil lookup behaves like a provider
// without credentials.
func NewFetcher(lookup Lookup) *Fetcher {
	return &Fetcher{lookup: lookup, timeout: FetchTimeout}
}

// Latest walks the first page of the channel's uploads, most recent first,
// and returns the first item longer than ShortFormThreshold. It returns nil
// without any network call when externalID is empty or no credentials are
// configured, and nil when no examined item qualifies.
//
// Items are examined sequentially; a failed detail call skips that item.
func (f *Fetcher) Latest(ctx context.Context, externalID string) *entity.Publication {
	if externalID == "" || f.lookup == nil || !f.lookup.Configured() {
		metrics.RecordLatestLookup("skipped")
		return nil
	}
	logger := slog.With(slog.String("external_id", externalID))

	var playlistID string
	err := f.bounded(ctx, func(ctx context.Context) (err error) {
		playlistID, err = f.lookup.UploadsPlaylistID(ctx, externalID)
		return err
	})
	if err != nil {
		logger.Debug("uploads list unavailable", slog.Any("error", err))
		metrics.RecordLatestLookup("none")
		return nil
	}

	var itemIDs []string
	err = f.bounded(ctx, func(ctx context.Context) (err error) {
		itemIDs, err = f.lookup.PlaylistItemIDs(ctx, playlistID, MaxScanItems)
		return err
	})
	if err != nil || len(itemIDs) == 0 {
		logger.Debug("uploads list empty", slog.Any("error", err))
		metrics.RecordLatestLookup("none")
		return nil
	}
	if len(itemIDs) > MaxScanItems {
		itemIDs = itemIDs[:MaxScanItems]
	}

	for _, id := range itemIDs {
		if ctx.Err() != nil {
			break
		}
		var v *entity.VideoDetails
		err := f.bounded(ctx, func(ctx context.Context) (err error) {
			v, err = f.lookup.Video(ctx, id)
			return err
		})
		if err != nil || v == nil {
			logger.Debug("skipping item, detail lookup failed",
				slog.String("item_id", id),
				slog.Any("error", err))
			continue
		}
		if IsShortForm(v.Duration) {
			continue
		}

		d, _ := ParseDuration(v.Duration)
		metrics.RecordLatestLookup("found")
		return &entity.Publication{
			ItemID:    id,
			Title:     v.Title,
			ViewCount: v.ViewCount,
			Duration:  d,
			URL:       entity.WatchURL(id),
		}
	}

	metrics.RecordLatestLookup("none")
	return nil
}

func (f *Fetcher) bounded(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return fn(ctx)
}
