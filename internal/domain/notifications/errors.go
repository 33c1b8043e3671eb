package notifications

import "errors"

var (
	ErrNoRecipient = errors.New("notification recipient has no account or email")
	ErrQueueFull   = errors.New("notification queue full")
	ErrNotFound    = errors.New("notification not found")
)
