package entity

import (
	"fmt"
	"strings"
	"time"
)

// ChannelStatus is the last known reachability state of a tracked channel.
type ChannelStatus string

const (
	StatusUnknown  ChannelStatus = "unknown"
	StatusPending  ChannelStatus = "pending"
	StatusActive   ChannelStatus = "active"
	StatusInactive ChannelStatus = "inactive"
)

// Valid reports whether s is one of the known statuses.
func (s ChannelStatus) Valid() bool {
	switch s {
	case StatusUnknown, StatusPending, StatusActive, StatusInactive:
		return true
	}
	return false
}

// Channel is a tracked video-publisher channel together with the snapshot
// written by the most recent reconciliation pass.
//
// ExternalID and DisplayName stay nil until a pass resolves them; a nil
// ExternalID is a valid steady state when no lookup credentials exist.
type Channel struct {
	ID              int64
	Reference       string
	ExternalID      *string
	DisplayName     *string
	Status          ChannelStatus
	LatestTitle     *string
	LatestViewCount int64
	LastCheckedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Name returns the display name, or "Unknown" when none has been resolved.
func (c *Channel) Name() string {
	if c.DisplayName != nil && *c.DisplayName != "" {
		return *c.DisplayName
	}
	return UnknownName
}

// ClearSnapshot resets the latest-publication snapshot to (nil, 0).
func (c *Channel) ClearSnapshot() {
	c.LatestTitle = nil
	c.LatestViewCount = 0
}

// Clone returns a deep copy so callers can mutate a snapshot without
// touching the original.
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}
	cp := *c
	cp.ExternalID = cloneString(c.ExternalID)
	cp.DisplayName = cloneString(c.DisplayName)
	cp.LatestTitle = cloneString(c.LatestTitle)
	if c.LastCheckedAt != nil {
		t := *c.LastCheckedAt
		cp.LastCheckedAt = &t
	}
	return &cp
}

// UnknownName is used wherever a channel has no resolvable display name.
const UnknownName = "Unknown"

// Publication is the snapshot of a single published item.
type Publication struct {
	ItemID    string
	Title     string
	ViewCount int64
	Duration  time.Duration
	URL       string
}

// VideoDetails is the raw per-item metadata returned by the lookup provider.
// Duration is the provider's compact token (e.g. "PT1M5S"), undecoded.
type VideoDetails struct {
	ItemID    string
	Title     string
	ViewCount int64
	Duration  string
}

// WatchURL builds the public watch URL for a publication id.
func WatchURL(itemID string) string {
	return "https://www.youtube.com/watch?v=" + itemID
}

// ProbeResult is the structured outcome of a reachability probe. Probing
// never fails outward; every failure is described by Accessible=false and
// a human readable Error.
type ProbeResult struct {
	Accessible  bool
	DisplayName *string
	ExternalID  *string
	Error       string
	// Skipped is set when no request was made because the page host's
	// circuit is open. It says nothing about the channel itself.
	Skipped bool
}

// StatusChange describes a transition observed by a reconciliation pass.
type StatusChange struct {
	ChannelID int64
	Reference string
	Name      string
	Previous  ChannelStatus
	Current   ChannelStatus
	Reason    string
	Latest    *Publication
	At        time.Time
}

// Summary returns a one-line description suitable for alert titles.
func (s *StatusChange) Summary() string {
	return fmt.Sprintf("%s is now %s (was %s)", s.Name, strings.ToUpper(string(s.Current)), s.Previous)
}

// StringPtr returns a pointer to v, or nil when v is empty.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
