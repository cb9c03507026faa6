// Package lifecycle orchestrates room status changes: validation, remote
// persistence, registry commit, and reversion timer management. It is the
// only path through which a room's status mutates.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/clock"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/eventbus"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/ledger"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/registry"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/scheduler"
)

// revertTimeout bounds the persistence call of a timer-fired reversion,
// which has no caller-supplied context.
const revertTimeout = 30 * time.Second

// Source identifies what triggered a status change.
type Source string

const (
	SourceOperator Source = "operator"
	SourceTimer    Source = "timer"
	SourceResync   Source = "resync"
)

// RoomService is the slice of the Room Service API the controller uses.
type RoomService interface {
	UpdateStatus(ctx context.Context, roomID string, status room.Status, until *time.Time) (room.Room, error)
	ListRooms(ctx context.Context) ([]room.Room, error)
}

// Publisher receives committed room-change events.
type Publisher interface {
	Publish(eventbus.Event)
}

// Controller composes the transition rules, the Room Service, the room
// registry and the reversion scheduler into one serialized operation per
// room.
type Controller struct {
	svc   RoomService
	reg   *registry.Registry
	sched *scheduler.Scheduler
	bus   Publisher
	ldg   *ledger.Ledger
	clk   clock.Clock

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a controller. bus and ldg may be nil; events and history are
// then skipped.
func New(svc RoomService, reg *registry.Registry, sched *scheduler.Scheduler, bus Publisher, ldg *ledger.Ledger, clk clock.Clock) *Controller {
	return &Controller{
		svc:   svc,
		reg:   reg,
		sched: sched,
		bus:   bus,
		ldg:   ldg,
		clk:   clk,
		locks: make(map[string]*sync.Mutex),
	}
}

// roomLock returns the mutex serializing all transitions for one room.
// Locks are never removed; the room set is small and stable.
func (c *Controller) roomLock(roomID string) *sync.Mutex {
	c.locksMu.Lock()
	defer c.locksMu.Unlock()
	l, ok := c.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[roomID] = l
	}
	return l
}

// RequestStatusChange validates and commits a status change for a room.
// For transient statuses, until must be strictly in the future; it is
// ignored for Available and Booked. The remote write is the single commit
// point: on failure nothing is mutated and no timer is touched.
func (c *Controller) RequestStatusChange(ctx context.Context, roomID string, status room.Status, until *time.Time) (room.Room, error) {
	lock := c.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	return c.applyLocked(ctx, roomID, status, until, SourceOperator)
}

// applyLocked runs the full transition pipeline. The caller must hold the
// room's lock.
func (c *Controller) applyLocked(ctx context.Context, roomID string, status room.Status, until *time.Time, source Source) (room.Room, error) {
	cur, ok := c.reg.Get(roomID)
	if !ok {
		return room.Room{}, fmt.Errorf("%w: %s", ErrNotFound, roomID)
	}

	if !room.Allowed(cur.Status, status) {
		return room.Room{}, &InvalidTransitionError{From: cur.Status, To: status}
	}

	if status.Transient() {
		if until == nil || !until.After(c.clk.Now()) {
			return room.Room{}, fmt.Errorf("%w (room %s, status %s)", ErrScheduleInPast, roomID, status)
		}
	} else {
		until = nil
	}

	// Identical request: nothing to persist and no timer to duplicate.
	if cur.Status == status && sameInstant(cur.TransientUntil, until) {
		return cur, nil
	}

	remote, err := c.svc.UpdateStatus(ctx, roomID, status, until)
	if err != nil {
		return room.Room{}, &PersistenceError{Err: err}
	}

	next := cur
	if remote.ID != "" {
		next = remote
	}
	next.ID = roomID
	next.Status = status
	next.TransientUntil = nil
	if until != nil {
		u := *until
		next.TransientUntil = &u
	}

	c.reg.Put(next)

	if status.Transient() {
		c.sched.Schedule(roomID, *until, c.revert)
	} else {
		c.sched.Cancel(roomID)
	}

	c.appendLedger(ledger.Entry{
		EventType: ledger.EventTransition,
		Timestamp: c.clk.Now(),
		RoomID:    roomID,
		From:      cur.Status,
		To:        status,
		FiresAt:   until,
		Source:    string(source),
	})
	c.publish(next, cur.Status, source)

	log.Info().
		Str("room_id", roomID).
		Str("from", string(cur.Status)).
		Str("to", string(status)).
		Str("source", string(source)).
		Msg("Room status changed")

	return next, nil
}

// revert is the scheduler callback: the timed edge back to Available runs
// through the same validated pipeline as a manual change.
func (c *Controller) revert(roomID string, firesAt time.Time) error {
	lock := c.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	cur, ok := c.reg.Get(roomID)
	if !ok {
		// Timer bookkeeping got ahead of the registry. Skip instead of
		// failing; one room's inconsistency must not stall other timers.
		log.Error().Str("room_id", roomID).Msg("Reversion fired for unknown room, skipping")
		return nil
	}

	if !cur.Status.Transient() {
		log.Debug().
			Str("room_id", roomID).
			Str("status", string(cur.Status)).
			Msg("Reversion fired but room already left its transient state")
		return nil
	}

	if cur.TransientUntil == nil || !cur.TransientUntil.Equal(firesAt) {
		// An operator rescheduled the window after this timer was already
		// dequeued; the newer timer owns the reversion.
		log.Debug().
			Str("room_id", roomID).
			Time("fired_for", firesAt).
			Msg("Reversion superseded by a newer deadline, skipping")
		return nil
	}

	key := fmt.Sprintf("revert:%s:%d", roomID, firesAt.UTC().Unix())
	if c.ldg != nil && c.ldg.HasFired(key) {
		log.Debug().Str("idempotency_key", key).Msg("Reversion already recorded, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), revertTimeout)
	defer cancel()

	from := cur.Status
	if _, err := c.applyLocked(ctx, roomID, room.StatusAvailable, nil, SourceTimer); err != nil {
		c.appendLedger(ledger.Entry{
			EventType: ledger.EventReversionFailed,
			Timestamp: c.clk.Now(),
			RoomID:    roomID,
			From:      from,
			To:        room.StatusAvailable,
			Source:    string(SourceTimer),
		})
		return err
	}

	c.appendLedger(ledger.Entry{
		EventType:      ledger.EventReversionFired,
		Timestamp:      c.clk.Now(),
		RoomID:         roomID,
		From:           from,
		To:             room.StatusAvailable,
		Source:         string(SourceTimer),
		IdempotencyKey: key,
	})
	return nil
}

// Rehydrate loads the room set from the Room Service and rebuilds the
// timer table from persisted deadlines. Past-due deadlines revert
// immediately rather than never. Called once at process start.
func (c *Controller) Rehydrate(ctx context.Context) error {
	rooms, err := c.svc.ListRooms(ctx)
	if err != nil {
		return &PersistenceError{Err: err}
	}

	c.load(rooms)
	log.Info().Int("rooms", len(rooms)).Msg("Registry rehydrated from room service")
	return nil
}

// Resync re-fetches the room set at runtime (manual refresh endpoint or
// the periodic resync loop) and publishes a resync event.
func (c *Controller) Resync(ctx context.Context) error {
	rooms, err := c.svc.ListRooms(ctx)
	if err != nil {
		return &PersistenceError{Err: err}
	}

	c.load(rooms)

	if c.bus != nil {
		c.bus.Publish(eventbus.Event{
			ID:     uuid.NewString(),
			Type:   eventbus.EventTypeResync,
			Source: string(SourceResync),
			At:     c.clk.Now(),
		})
	}

	log.Info().Int("rooms", len(rooms)).Msg("Registry resynced from room service")
	return nil
}

// load applies a snapshot to the registry and reconciles the timer table
// with it. Each record is applied under its room's lock, so a transition
// committing concurrently is either fully before or fully after the
// snapshot entry, never interleaved with it.
func (c *Controller) load(rooms []room.Room) {
	seen := make(map[string]struct{}, len(rooms))
	for _, rm := range rooms {
		seen[rm.ID] = struct{}{}
		lock := c.roomLock(rm.ID)
		lock.Lock()
		c.applySnapshotLocked(rm)
		lock.Unlock()
	}

	// Rooms the service no longer returns leave the registry, timers
	// included.
	for _, cur := range c.reg.List() {
		if _, ok := seen[cur.ID]; ok {
			continue
		}
		lock := c.roomLock(cur.ID)
		lock.Lock()
		c.reg.Delete(cur.ID)
		c.sched.Cancel(cur.ID)
		lock.Unlock()
	}
}

// applySnapshotLocked installs one snapshot record. The caller must hold
// the room's lock. A snapshot is fetched before it is applied, so a
// transition that commits in between carries newer truth than the snapshot
// does: when the local record holds a later transient deadline than the
// snapshot's, the local record and its armed timer win, otherwise a stale
// snapshot would roll an operator's extension back to the superseded
// deadline.
func (c *Controller) applySnapshotLocked(rm room.Room) {
	if !rm.Status.Transient() && rm.TransientUntil != nil {
		log.Warn().
			Str("room_id", rm.ID).
			Str("status", string(rm.Status)).
			Msg("Dropping stray transientUntil on non-transient room")
		rm.TransientUntil = nil
	}

	if cur, ok := c.reg.Get(rm.ID); ok &&
		cur.Status.Transient() && cur.TransientUntil != nil &&
		rm.Status.Transient() && rm.TransientUntil != nil &&
		cur.TransientUntil.After(*rm.TransientUntil) {
		log.Debug().
			Str("room_id", rm.ID).
			Time("snapshot_until", *rm.TransientUntil).
			Time("local_until", *cur.TransientUntil).
			Msg("Snapshot deadline is older than the committed one, keeping local record")
		return
	}

	c.reg.Put(rm)

	switch {
	case rm.Status.Transient() && rm.TransientUntil != nil:
		c.sched.Schedule(rm.ID, *rm.TransientUntil, c.revert)
	case rm.Status.Transient():
		// Persisted record violates the deadline invariant; with no
		// deadline there is nothing to arm. Left for an operator.
		log.Warn().
			Str("room_id", rm.ID).
			Str("status", string(rm.Status)).
			Msg("Transient room has no deadline, not scheduling")
	default:
		c.sched.Cancel(rm.ID)
	}
}

func (c *Controller) appendLedger(e ledger.Entry) {
	if c.ldg == nil {
		return
	}
	if err := c.ldg.Append(e); err != nil {
		log.Error().Err(err).Str("room_id", e.RoomID).Msg("Failed to append ledger entry")
	}
}

func (c *Controller) publish(next room.Room, from room.Status, source Source) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(eventbus.Event{
		ID:     uuid.NewString(),
		Type:   eventbus.EventTypeRoomUpdate,
		Room:   next,
		From:   from,
		To:     next.Status,
		Source: string(source),
		At:     c.clk.Now(),
	})
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
