package channel

import (
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/usecase/report"
	"chanwatch/internal/usecase/status"
)

type DTO struct {
	ID             int64      `json:"id"`
	ChannelURL     string     `json:"channel_url"`
	ChannelID      *string    `json:"channel_id,omitempty"`
	ChannelName    string     `json:"channel_name"`
	Status         string     `json:"status"`
	LastVideoTitle *string    `json:"last_video_title,omitempty"`
	LastVideoViews int64      `json:"last_video_views"`
	ViewsFormatted string     `json:"views_formatted"`
	LastChecked    *time.Time `json:"last_checked,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toDTO(ch *entity.Channel) DTO {
	return DTO{
		ID:             ch.ID,
		ChannelURL:     ch.Reference,
		ChannelID:      ch.ExternalID,
		ChannelName:    ch.Name(),
		Status:         string(ch.Status),
		LastVideoTitle: ch.LatestTitle,
		LastVideoViews: ch.LatestViewCount,
		ViewsFormatted: report.FormatViews(ch.LatestViewCount),
		LastChecked:    ch.LastCheckedAt,
		CreatedAt:      ch.CreatedAt,
		UpdatedAt:      ch.UpdatedAt,
	}
}

type PublicationDTO struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Views    int64  `json:"views"`
	Duration string `json:"duration"`
	URL      string `json:"url"`
}

type ChangeDTO struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// CheckDTO is the body returned by POST /channels/{id}/check.
type CheckDTO struct {
	Channel    DTO             `json:"channel"`
	Accessible bool            `json:"accessible"`
	Error      string          `json:"error,omitempty"`
	Skipped    bool            `json:"skipped,omitempty"`
	Resolved   bool            `json:"resolved"`
	Latest     *PublicationDTO `json:"latest,omitempty"`
	Change     *ChangeDTO      `json:"change,omitempty"`
}

func toCheckDTO(out *status.Outcome) CheckDTO {
	dto := CheckDTO{
		Channel:    toDTO(out.Channel),
		Accessible: out.Accessible,
		Error:      out.Error,
		Skipped:    out.Skipped,
		Resolved:   out.Resolved,
	}
	if p := out.Latest; p != nil {
		dto.Latest = &PublicationDTO{
			VideoID:  p.ItemID,
			Title:    p.Title,
			Views:    p.ViewCount,
			Duration: p.Duration.String(),
			URL:      p.URL,
		}
	}
	if c := out.Change; c != nil {
		dto.Change = &ChangeDTO{Previous: string(c.Previous), Current: string(c.Current)}
	}
	return dto
}
