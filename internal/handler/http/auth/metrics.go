package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// authRequestsTotal counts login attempts by result.
	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total dashboard login attempts by result",
		},
		[]string{"result"}, // success | failure | error
	)

	authDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_duration_seconds",
			Help:    "Dashboard login handling duration",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	// authzDeniedTotal counts rejected requests to protected routes.
	authzDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Requests to protected routes rejected by reason",
		},
		[]string{"reason"}, // missing_token | invalid_token | forbidden
	)
)

// RecordAuthRequest records one login attempt and how long it took.
func RecordAuthRequest(result string, durationSeconds float64) {
	authRequestsTotal.WithLabelValues(result).Inc()
	authDuration.Observe(durationSeconds)
}

// RecordDenied records a rejected request to a protected route.
func RecordDenied(reason string) {
	authzDeniedTotal.WithLabelValues(reason).Inc()
}
