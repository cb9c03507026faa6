// Package clock abstracts time for components that arm timers, so tests
// can drive deadlines deterministically.
package clock

import "time"

// Timer is a handle to a pending callback armed with AfterFunc.
type Timer interface {
	// Stop disarms the timer. It reports false if the timer already fired
	// or was stopped before.
	Stop() bool
}

// Clock provides the current time and one-shot callback timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// System returns the wall clock.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
