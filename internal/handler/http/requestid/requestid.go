// Package requestid tags every request with an id that follows it through
// logs, traces and the X-Request-ID response header.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	key contextKey = "request_id"

	// Header carries the id in both directions.
	Header = "X-Request-ID"

	// maxInboundLength bounds ids accepted from upstream proxies.
	maxInboundLength = 128
)

// FromContext returns the request id, or "" outside a request.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(key).(string); ok {
		return id
	}
	return ""
}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, key, id)
}

// New returns a fresh id. Background jobs (sweeps, bot commands) use it to
// correlate their log lines the same way HTTP requests do.
func New() string {
	return uuid.NewString()
}

// Middleware reuses an inbound X-Request-ID when it is short printable
// ASCII and generates a UUID v4 otherwise.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if !acceptable(id) {
			id = New()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

// acceptable keeps caller-supplied ids out of the logs when they could
// forge log lines.
func acceptable(id string) bool {
	if id == "" || len(id) > maxInboundLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
