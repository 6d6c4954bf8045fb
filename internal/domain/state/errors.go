package state

import "errors"

var (
	// ErrInvalidSnapshot is returned when a persisted aggregate cannot be decoded
	ErrInvalidSnapshot = errors.New("invalid state snapshot")

	// ErrStoreClosed is returned by Registry.Get after Close
	ErrStoreClosed = errors.New("state registry closed")
)
