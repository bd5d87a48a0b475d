// Package http provides the dashboard API: channel handlers are registered
// by subpackages, while this package holds health endpoints, metrics and
// the middleware chain.
package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/observability/metrics"
	"chanwatch/internal/usecase/notify"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy", "degraded" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ChannelCounter reports how many channels are stored per status.
type ChannelCounter interface {
	CountByStatus(ctx context.Context) (map[entity.ChannelStatus]int, error)
}

// AlertHealth reports per alert channel delivery health.
type AlertHealth interface {
	GetChannelHealth() []notify.ChannelHealthStatus
}

// LookupConfig reports whether YouTube Data API lookups can run.
type LookupConfig interface {
	Configured() bool
}

// HealthHandler reports database, lookup and alert health. Only a failed
// database check makes the service unhealthy; the others degrade it.
type HealthHandler struct {
	DB       *sql.DB
	Version  string
	Channels ChannelCounter
	Alerts   AlertHealth
	YouTube  LookupConfig
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus, 4)
	if h.DB != nil {
		checks["database"] = h.checkDatabase(ctx)
	} else {
		checks["database"] = CheckStatus{Status: "unhealthy", Message: "not configured"}
	}
	if h.Channels != nil {
		checks["channels"] = h.checkChannels(ctx)
	}
	if h.YouTube != nil {
		checks["youtube_api"] = h.checkYouTube()
	}
	if h.Alerts != nil {
		checks["alerts"] = h.checkAlerts()
	}

	status, code := "healthy", http.StatusOK
	for _, c := range checks {
		switch c.Status {
		case "unhealthy":
			status, code = "unhealthy", http.StatusServiceUnavailable
		case "degraded":
			if status == "healthy" {
				status = "degraded"
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}); err != nil {
		slog.Warn("health: failed to encode response", slog.Any("error", err))
	}
}

// checkDatabase pings the database and reports pool statistics.
func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{Status: "unhealthy", Message: err.Error()}
	}

	stats := h.DB.Stats()
	metrics.DBConnectionsActive.Set(float64(stats.InUse))
	metrics.DBConnectionsIdle.Set(float64(stats.Idle))

	details := map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
	if stats.MaxOpenConnections > 0 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
		details["utilization_percent"] = utilization
		if utilization >= 80.0 {
			return CheckStatus{Status: "degraded", Message: "connection pool utilization above 80%", Details: details}
		}
	}
	return CheckStatus{Status: "healthy", Details: details}
}

// checkChannels refreshes the per-status gauge and reports the counts.
func (h *HealthHandler) checkChannels(ctx context.Context) CheckStatus {
	counts, err := h.Channels.CountByStatus(ctx)
	if err != nil {
		return CheckStatus{Status: "degraded", Message: "count failed"}
	}
	byStatus := make(map[string]int, len(counts))
	details := make(map[string]any, len(counts))
	for st, n := range counts {
		byStatus[string(st)] = n
		details[string(st)] = n
	}
	metrics.UpdateChannelsTotal(byStatus)
	return CheckStatus{Status: "healthy", Details: details}
}

func (h *HealthHandler) checkYouTube() CheckStatus {
	if !h.YouTube.Configured() {
		return CheckStatus{Status: "degraded", Message: "no API key, latest uploads are not tracked"}
	}
	return CheckStatus{Status: "healthy"}
}

// checkAlerts lists every alert channel; an open breaker degrades health.
func (h *HealthHandler) checkAlerts() CheckStatus {
	channels := h.Alerts.GetChannelHealth()
	details := make(map[string]any, len(channels))
	status := "healthy"
	for _, ch := range channels {
		details[ch.Name] = ch
		if ch.Enabled && ch.CircuitBreakerOpen {
			status = "degraded"
		}
	}
	return CheckStatus{Status: status, Details: details}
}

// ReadyHandler answers 200 once the database accepts queries.
type ReadyHandler struct {
	DB *sql.DB
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.DB.PingContext(ctx); err != nil {
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LiveHandler always answers 200 while the process can serve requests.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
