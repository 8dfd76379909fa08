package booking

import "errors"

var (
	// ErrInvalidState rejects a lifecycle transition the booking's current
	// state does not allow.
	ErrInvalidState = errors.New("invalid booking state transition")
	// ErrNotFound indicates the booking record does not exist.
	ErrNotFound = errors.New("booking not found")
)
