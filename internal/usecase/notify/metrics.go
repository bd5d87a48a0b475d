package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes, one per alert and channel.
const (
	outcomeSent           = "sent"
	outcomeFailed         = "failed"
	outcomeDroppedPool    = "dropped_pool_full"
	outcomeDroppedCircuit = "dropped_circuit_open"
)

var (
	alertDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_deliveries_total",
			Help: "Status-change alerts by delivery channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	alertSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alert_send_duration_seconds",
			Help:    "Time spent delivering one alert, retries included",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"channel"},
	)

	alertBreakerOpens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_breaker_opens_total",
			Help: "Times a delivery channel's circuit breaker opened",
		},
		[]string{"channel"},
	)

	alertSendsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alert_sends_in_flight",
		Help: "Alert deliveries currently running",
	})

	alertChannelsEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alert_channels_enabled",
		Help: "Delivery channels enabled at startup",
	})
)

// recordDelivery counts one delivery. Attempts that reached the channel
// (sent, failed) also observe their duration.
func recordDelivery(channel, outcome string, took time.Duration) {
	alertDeliveries.WithLabelValues(channel, outcome).Inc()
	if outcome == outcomeSent || outcome == outcomeFailed {
		alertSendDuration.WithLabelValues(channel).Observe(took.Seconds())
	}
}
