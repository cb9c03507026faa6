// Package scheduler owns the per-room reversion timers.
//
// The timer table is a cache of the deadlines the Room Service has
// persisted: it can always be rebuilt from room records via Rehydrate, so
// losing the process never loses a reversion.
package scheduler

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/clock"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

// FireFunc is invoked when a room's transient window elapses. firesAt is
// the deadline the timer was armed with, so the callback can detect that a
// newer schedule has superseded it. The scheduler logs a returned error
// and moves on; retry policy belongs to the caller that armed the schedule.
type FireFunc func(roomID string, firesAt time.Time) error

type entry struct {
	firesAt time.Time
	timer   clock.Timer
	fn      FireFunc
}

// Scheduler keeps at most one pending reversion timer per room.
type Scheduler struct {
	mu     sync.Mutex
	clk    clock.Clock
	timers map[string]*entry
}

// New creates a scheduler with an empty timer table.
func New(clk clock.Clock) *Scheduler {
	return &Scheduler{clk: clk, timers: make(map[string]*entry)}
}

// Schedule arms a reversion timer for the room, replacing any existing
// one. A deadline already in the past fires right away instead of being
// silently dropped, so stale rehydrated schedules still revert. Past-due
// fires go through a zero-delay timer rather than the calling goroutine:
// the callback re-enters the per-room critical section, and the caller may
// be holding it.
func (s *Scheduler) Schedule(roomID string, firesAt time.Time, fn FireFunc) {
	s.mu.Lock()
	s.cancelLocked(roomID)

	d := firesAt.Sub(s.clk.Now())
	if d < 0 {
		d = 0
		log.Info().
			Str("room_id", roomID).
			Time("fires_at", firesAt).
			Msg("Schedule is past due, firing now")
	}

	e := &entry{firesAt: firesAt, fn: fn}
	e.timer = s.clk.AfterFunc(d, func() { s.fire(roomID, e) })
	s.timers[roomID] = e
	s.mu.Unlock()

	log.Debug().
		Str("room_id", roomID).
		Time("fires_at", firesAt).
		Msg("Reversion timer armed")
}

// Cancel disarms the room's timer if one exists. Cancelling a room with no
// timer is a no-op, not an error.
func (s *Scheduler) Cancel(roomID string) {
	s.mu.Lock()
	cancelled := s.cancelLocked(roomID)
	s.mu.Unlock()

	if cancelled {
		log.Debug().Str("room_id", roomID).Msg("Reversion timer cancelled")
	}
}

func (s *Scheduler) cancelLocked(roomID string) bool {
	e, ok := s.timers[roomID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.timers, roomID)
	return true
}

// fire runs when an armed timer elapses. The entry is removed before the
// callback is invoked, so a callback that re-enters Schedule cannot
// collide with the entry it was fired from. The identity check guards
// against a timer that elapses while Schedule is replacing it: only the
// entry that still owns the table slot may fire.
func (s *Scheduler) fire(roomID string, e *entry) {
	s.mu.Lock()
	cur, ok := s.timers[roomID]
	if !ok || cur != e {
		s.mu.Unlock()
		return
	}
	delete(s.timers, roomID)
	s.mu.Unlock()

	if err := e.fn(roomID, e.firesAt); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomID).
			Time("fires_at", e.firesAt).
			Msg("Reversion callback failed")
	}
}

// Rehydrate rebuilds the timer table from persisted room records after a
// restart. Every transient room with a deadline gets a schedule; past-due
// deadlines fire immediately through the usual path.
func (s *Scheduler) Rehydrate(rooms []room.Room, fn FireFunc) {
	armed := 0
	for _, rm := range rooms {
		if !rm.Status.Transient() || rm.TransientUntil == nil {
			continue
		}
		s.Schedule(rm.ID, *rm.TransientUntil, fn)
		armed++
	}
	log.Info().Int("schedules", armed).Msg("Timer table rehydrated")
}

// Deadline returns the armed deadline for a room, if any.
func (s *Scheduler) Deadline(roomID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[roomID]
	if !ok {
		return time.Time{}, false
	}
	return e.firesAt, true
}

// Len returns the number of armed timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
