package metrics

import (
	"time"
)

// RecordReconcile records the outcome of one reconciliation pass.
// Result is the resulting status ("active", "inactive"), "skipped" when the
// channel was not probed, "abandoned" when the caller went away mid-pass, or
// "error" when the pass could not be persisted.
func RecordReconcile(result string, duration time.Duration) {
	ReconcileTotal.WithLabelValues(result).Inc()
	ReconcileDuration.Observe(duration.Seconds())
}

// RecordProbe records a reachability probe result.
func RecordProbe(result string) {
	ProbeTotal.WithLabelValues(result).Inc()
}

// RecordLatestLookup records whether a latest-publication lookup found an
// item ("found"), found nothing qualifying ("none"), or was not attempted
// because the channel is unresolved or no credentials exist ("skipped").
func RecordLatestLookup(result string) {
	LatestLookupTotal.WithLabelValues(result).Inc()
}

// RecordStatusTransition records a status change between two passes.
func RecordStatusTransition(from, to string) {
	StatusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordSweep records the duration of a full sweep.
func RecordSweep(duration time.Duration) {
	SweepDuration.Observe(duration.Seconds())
}

// UpdateChannelsTotal replaces the per-status channel gauge. Statuses
// absent from counts are reset to zero.
func UpdateChannelsTotal(counts map[string]int) {
	for _, status := range []string{"unknown", "pending", "active", "inactive"} {
		ChannelsTotal.WithLabelValues(status).Set(float64(counts[status]))
	}
}

// ObserveDBQuery records the time since start under operation. It is meant
// to be deferred:
//
//	defer metrics.ObserveDBQuery("list_channels", time.Now())
func ObserveDBQuery(operation string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
