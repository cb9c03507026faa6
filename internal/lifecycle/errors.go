package lifecycle

import (
	"errors"
	"fmt"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

// ErrNotFound is returned when a status change names an unknown room.
var ErrNotFound = errors.New("room not found")

// ErrScheduleInPast is returned when a transient status request is missing
// its deadline or carries one that is not strictly in the future. The
// request is rejected rather than clamped: silently shortening an
// operator-chosen window is a worse failure than an explicit error.
var ErrScheduleInPast = errors.New("transient deadline must be in the future")

// InvalidTransitionError reports a status edge the lifecycle rules forbid.
type InvalidTransitionError struct {
	From room.Status
	To   room.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// PersistenceError wraps a failed Room Service write or fetch. When it is
// returned, the registry and the timer table are untouched.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "room service call failed: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
