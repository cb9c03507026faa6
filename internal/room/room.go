// Package room defines the room record and the status lifecycle rules.
package room

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a room.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusBooked      Status = "Booked"
	StatusCleaning    Status = "Cleaning"
	StatusMaintenance Status = "Maintenance"
)

// ParseStatus converts a wire string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusAvailable, StatusBooked, StatusCleaning, StatusMaintenance:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown room status %q", s)
}

// Transient reports whether the status self-expires after an
// operator-chosen window.
func (s Status) Transient() bool {
	return s == StatusCleaning || s == StatusMaintenance
}

// Room is a single room record as tracked by the lifecycle engine.
// TransientUntil is set iff Status is transient and a reversion is
// scheduled; the persisted value is the authority for when reversion
// happens, the in-memory timer is rebuilt from it.
type Room struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	TransientUntil *time.Time `json:"transientUntil,omitempty"`
	BranchID       string     `json:"branchId,omitempty"`
	FloorID        string     `json:"floorId,omitempty"`
}

// Consistent reports whether the record satisfies the deadline invariant:
// a deadline is present iff the status is transient.
func (r Room) Consistent() bool {
	return r.Status.Transient() == (r.TransientUntil != nil)
}
