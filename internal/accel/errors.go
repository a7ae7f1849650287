package accel

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceBusy is returned by Lock when another session holds the device.
	// The caller decides whether to retry.
	ErrDeviceBusy = errors.New("accel: device locked by another session")

	// ErrTimeout is returned by Wait when the polling budget runs out before
	// the device reports completion.
	ErrTimeout = errors.New("accel: polling budget exhausted before completion")

	ErrInvalidState   = errors.New("accel: operation not allowed in current state")
	ErrSessionRunning = errors.New("accel: simulation still running")
	ErrBodyIndex      = errors.New("accel: body index out of range")
)

// StateError reports an operation attempted in the wrong session state.
type StateError struct {
	Op      string
	State   State
	Wrapped error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%v (%s in state %s)", e.Wrapped, e.Op, e.State)
}

func (e *StateError) Unwrap() error {
	return e.Wrapped
}
