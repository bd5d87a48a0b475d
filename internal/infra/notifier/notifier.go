// Package notifier delivers channel status-change alerts to chat services.
//
// Each implementation owns its own rate limiting, retry and logging, so the
// dispatcher in usecase/notify can treat them interchangeably. The no-op
// notifier stands in when a service is disabled.
package notifier

import (
	"context"

	"chanwatch/internal/domain/entity"
)

// Notifier sends one status-change alert.
type Notifier interface {
	// NotifyStatusChange delivers change. A non-nil error means the alert
	// was not delivered after all retry attempts.
	NotifyStatusChange(ctx context.Context, change *entity.StatusChange) error
}
