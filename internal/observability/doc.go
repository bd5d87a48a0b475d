// Package observability groups the logging, metrics and tracing helpers
// used by every chanwatch binary.
//
//   - logging: slog construction and request-scoped loggers
//   - metrics: Prometheus HTTP and domain counters
//   - tracing: OpenTelemetry HTTP middleware and the shared tracer
package observability
