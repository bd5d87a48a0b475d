// Package logging wraps log/slog for the api, worker, bot and import
// binaries.
//
// Output is JSON on stdout with a "service" attribute; LOG_FORMAT=text
// gives the human readable handler. Request-scoped loggers carry the
// request_id set by the requestid middleware.
//
//	logger := logging.NewLogger("worker")
//	slog.SetDefault(logger)
//
//	logging.WithRequestID(r.Context(), logger).Info("channel added")
package logging
