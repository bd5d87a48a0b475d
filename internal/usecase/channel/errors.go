// Package channel provides use cases for managing tracked channels: adding,
// removing, listing and on-demand checks.
package channel

import "errors"

// Sentinel errors for channel use case operations.
var (
	// ErrChannelNotFound indicates that the requested channel was not found.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrDuplicateChannel indicates that the reference is already tracked.
	// Callers must surface it distinctly from other failures.
	ErrDuplicateChannel = errors.New("channel already exists")
)
