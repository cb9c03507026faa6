// Package eventbus fans committed room changes out to subscribers, so the
// UI layer can reflect timer-fired reversions without polling.
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

// EventType distinguishes the notification kinds the bus carries.
type EventType string

const (
	// EventTypeRoomUpdate is published after every committed status change,
	// manual or timer-fired.
	EventTypeRoomUpdate EventType = "room_update"
	// EventTypeResync is published after a bulk refresh replaced the
	// registry snapshot.
	EventTypeResync EventType = "resync"
)

// Default configuration
const (
	DefaultWorkerCount = 4
	DefaultQueueSize   = 100
)

// Event describes a committed room change.
type Event struct {
	ID     string      `json:"id"`
	Type   EventType   `json:"type"`
	Room   room.Room   `json:"room"`
	From   room.Status `json:"from,omitempty"`
	To     room.Status `json:"to,omitempty"`
	Source string      `json:"source"`
	At     time.Time   `json:"at"`
}

// Handler is a function that handles events.
type Handler func(Event)

type work struct {
	event   Event
	handler Handler
}

// Bus routes events to subscribers through a bounded worker pool. A slow
// subscriber delays other deliveries at worst; it can never block the
// lifecycle path that publishes.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	workQueue chan work
	wg        sync.WaitGroup

	// pubMu fences Publish against Close: the queue is closed only while
	// no publisher holds the read side, so a reversion timer firing during
	// shutdown can never send on a closed channel.
	pubMu     sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// New creates an event bus with default worker pool settings.
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates an event bus with a custom worker count and queue
// size.
func NewWithConfig(workerCount, queueSize int) *Bus {
	b := &Bus{
		handlers:  make(map[EventType][]Handler),
		workQueue: make(chan work, queueSize),
	}

	for i := 0; i < workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}

	log.Debug().Int("workers", workerCount).Int("queue_size", queueSize).Msg("Event bus worker pool started")
	return b
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()

	for w := range b.workQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(w.event.Type)).
						Int("worker", id).
						Msg("Event handler panicked")
				}
			}()
			w.handler(w.event)
		}()
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish sends an event to all subscribed handlers. Non-blocking: if the
// queue is full or the bus is closing, the event is dropped with a
// warning. Room state itself is never carried only by the bus, so a
// dropped notification costs a UI refresh, not correctness.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	b.pubMu.RLock()
	defer b.pubMu.RUnlock()
	if b.closed {
		log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closing, dropping event")
		return
	}

	for _, handler := range handlers {
		select {
		case b.workQueue <- work{event: event, handler: handler}:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Str("room_id", event.Room.ID).
				Msg("Event bus queue full, dropping event")
		}
	}
}

// Close shuts down the worker pool gracefully: in-flight publishers are
// waited out and further ones turned away, then the queue is drained until
// the context expires.
func (b *Bus) Close(ctx context.Context) {
	b.closeOnce.Do(func() {
		b.pubMu.Lock()
		b.closed = true
		close(b.workQueue)
		b.pubMu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus workers stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
