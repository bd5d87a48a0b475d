package notify

import "errors"

var (
	// ErrChannelDisabled is returned by Send on a channel that is turned off.
	ErrChannelDisabled = errors.New("alert channel is disabled")

	// ErrInvalidChange rejects a nil change or one without a channel id.
	ErrInvalidChange = errors.New("invalid status change")
)
