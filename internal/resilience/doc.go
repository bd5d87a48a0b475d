// Package resilience provides fault tolerance patterns for calls leaving the process.
//
// The subpackages cover:
//   - circuitbreaker: gobreaker-backed breakers for the YouTube Data API, channel
//     page probes and outbound alert webhooks
//   - retry: exponential backoff with jitter for chat and webhook deliveries
//
// Status reconciliation itself never retries within a pass; a failed lookup
// degrades to "unresolved" and the next sweep tries again.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.YouTubeAPIConfig())
//	id, err := circuitbreaker.Run(cb, func() (string, error) {
//	    return lookup(ctx, handle)
//	})
//
//	err := retry.WithBackoff(ctx, retry.TelegramConfig(), func() error {
//	    return send(ctx, msg)
//	})
package resilience
