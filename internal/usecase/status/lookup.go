// Package status implements the channel status pipeline: reference
// resolution, latest-publication lookup and reconciliation of a probe into
// the stored channel record.
package status

import (
	"context"

	"chanwatch/internal/domain/entity"
)

// Lookup is the metadata provider used for id resolution and uploads.
// Implementations return an error for every failure, including "no
// credentials" and "no results"; callers map all of them to absence.
type Lookup interface {
	Configured() bool
	ChannelIDByHandle(ctx context.Context, handle string) (string, error)
	ChannelIDByUsername(ctx context.Context, username string) (string, error)
	UploadsPlaylistID(ctx context.Context, channelID string) (string, error)
	PlaylistItemIDs(ctx context.Context, playlistID string, max int64) ([]string, error)
	Video(ctx context.Context, videoID string) (*entity.VideoDetails, error)
}

// Prober checks whether a channel page is reachable. It never fails; all
// failures are described by the returned result.
type Prober interface {
	Probe(ctx context.Context, reference string) entity.ProbeResult
}

// PublicationFetcher returns the most recent qualifying publication of a
// resolved channel, or nil when there is none.
type PublicationFetcher interface {
	Latest(ctx context.Context, externalID string) *entity.Publication
}

// ChangeNotifier receives status transitions observed by a pass.
type ChangeNotifier interface {
	NotifyStatusChange(ctx context.Context, change *entity.StatusChange) error
}
