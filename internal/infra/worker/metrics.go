package worker

import (
	"chanwatch/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics are the scheduled-sweep series plus the worker's
// configuration metrics.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// JobRunsTotal counts sweeps by status (started/success/failure/skipped).
	JobRunsTotal *prometheus.CounterVec
	JobDuration  prometheus.Histogram
	// ChannelsCheckedTotal counts channel passes across all sweeps.
	ChannelsCheckedTotal prometheus.Counter
	TransitionsTotal     prometheus.Counter
	LastSuccess          prometheus.Gauge
}

// NewWorkerMetrics registers the worker series with the default registry.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWith(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWith registers the worker series on reg.
func NewWorkerMetricsWith(reg prometheus.Registerer) *WorkerMetrics {
	f := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWith(reg, "worker"),

		JobRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_sweep_runs_total",
			Help: "Scheduled sweeps by status",
		}, []string{"status"}),

		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_sweep_duration_seconds",
			Help:    "Duration of scheduled sweeps in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800},
		}),

		ChannelsCheckedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_channels_checked_total",
			Help: "Channel passes run by scheduled sweeps",
		}),

		TransitionsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "worker_status_transitions_total",
			Help: "Active/inactive transitions observed by scheduled sweeps",
		}),

		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "worker_sweep_last_success_timestamp",
			Help: "Unix timestamp of the last successful sweep",
		}),
	}
}

func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.JobDuration.Observe(seconds)
}

func (m *WorkerMetrics) RecordChannelsChecked(n, transitions int) {
	m.ChannelsCheckedTotal.Add(float64(n))
	m.TransitionsTotal.Add(float64(transitions))
}

func (m *WorkerMetrics) RecordLastSuccess() {
	m.LastSuccess.SetToCurrentTime()
}
