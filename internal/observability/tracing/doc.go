// Package tracing wires OpenTelemetry spans into the dashboard API and the
// reconcile path.
//
// Spans go to whatever TracerProvider is installed globally; without one
// they are no-ops. The HTTP middleware continues W3C trace context and
// echoes the trace id in the X-Trace-Id response header.
//
//	handler := tracing.Middleware(mux)
//
//	ctx, span := tracing.StartSpan(ctx, "status.Reconcile", attribute.Int64("channel.id", id))
//	defer span.End()
package tracing
