package status

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// ResolveTimeout bounds a single lookup call made by the resolver.
const ResolveTimeout = 5 * time.Second

// ReferenceKind tells how a reference identifies its channel.
type ReferenceKind int

const (
	RefUnknown ReferenceKind = iota
	RefHandle
	RefChannelID
	RefUsername
)

func (k ReferenceKind) String() string {
	switch k {
	case RefHandle:
		return "handle"
	case RefChannelID:
		return "channel_id"
	case RefUsername:
		return "username"
	default:
		return "unknown"
	}
}

// ParseReference classifies a reference. First match wins: an "@handle"
// anywhere, then a /channel/ segment, then a /user/ path segment.
// The returned value is empty for RefUnknown.
func ParseReference(ref string) (ReferenceKind, string) {
	if i := strings.LastIndex(ref, "@"); i >= 0 {
		if handle := cutQuery(ref[i+1:]); handle != "" {
			return RefHandle, handle
		}
		return RefUnknown, ""
	}

	const channelSeg = "/channel/"
	if i := strings.LastIndex(ref, channelSeg); i >= 0 {
		if id := cutQuery(ref[i+len(channelSeg):]); id != "" {
			return RefChannelID, id
		}
		return RefUnknown, ""
	}

	u, err := url.Parse(ref)
	if err != nil {
		return RefUnknown, ""
	}
	const userSeg = "/user/"
	if i := strings.LastIndex(u.Path, userSeg); i >= 0 {
		if name := u.Path[i+len(userSeg):]; name != "" {
			return RefUsername, name
		}
	}
	return RefUnknown, ""
}

func cutQuery(s string) string {
	s, _, _ = strings.Cut(s, "?")
	return s
}

// Resolver turns a channel reference into a canonical channel id.
type Resolver struct {
	lookup  Lookup
	timeout time.Duration
}

// NewResolver creates a Resolver. A nil lookup behaves like a provider
// without credentials.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, timeout: ResolveTimeout}
}

// Resolve returns the channel id for ref, or ok=false when it cannot be
// determined. Explicit /channel/ ids never touch the network. Lookup
// failures are logged and reported as unresolved; nothing is retried.
func (r *Resolver) Resolve(ctx context.Context, ref string) (id string, ok bool) {
	kind, value := ParseReference(ref)
	switch kind {
	case RefChannelID:
		return value, true
	case RefUnknown:
		return "", false
	}

	if r.lookup == nil || !r.lookup.Configured() {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var err error
	if kind == RefHandle {
		id, err = r.lookup.ChannelIDByHandle(ctx, value)
	} else {
		id, err = r.lookup.ChannelIDByUsername(ctx, value)
	}
	if err != nil || id == "" {
		slog.Debug("channel reference unresolved",
			slog.String("reference", ref),
			slog.String("kind", kind.String()),
			slog.Any("error", err))
		return "", false
	}
	return id, true
}
