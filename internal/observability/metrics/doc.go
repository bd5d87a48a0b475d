// Package metrics registers the process-wide Prometheus series shared by
// the API, the worker and the bot: dashboard traffic, reconciliation and
// probe outcomes, sweep timings and channel store latency. Every series is
// prefixed with "chanwatch_" and served from the default registry.
//
//	start := time.Now()
//	out, err := reconciler.Reconcile(ctx, ch)
//	metrics.RecordReconcile(string(out.Channel.Status), time.Since(start))
package metrics
