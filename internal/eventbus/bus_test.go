package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewWithConfig(2, 10)
	defer closeBus(b)

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	var got []Event

	handler := func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
		wg.Done()
	}
	b.Subscribe(EventTypeRoomUpdate, handler)
	b.Subscribe(EventTypeRoomUpdate, handler)

	b.Publish(Event{
		ID:   "evt-1",
		Type: EventTypeRoomUpdate,
		Room: room.Room{ID: "r1", Status: room.StatusAvailable},
		From: room.StatusCleaning,
		To:   room.StatusAvailable,
	})

	waitTimeout(t, &wg)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("delivered %d events, want 2 (one per subscriber)", len(got))
	}
	for _, e := range got {
		if e.Room.ID != "r1" || e.To != room.StatusAvailable {
			t.Errorf("unexpected event payload: %+v", e)
		}
	}
}

func TestPublishIgnoresOtherTypes(t *testing.T) {
	b := NewWithConfig(1, 10)
	defer closeBus(b)

	fired := make(chan Event, 1)
	b.Subscribe(EventTypeResync, func(e Event) { fired <- e })

	b.Publish(Event{Type: EventTypeRoomUpdate, Room: room.Room{ID: "r1"}})

	select {
	case <-fired:
		t.Error("resync subscriber received a room_update event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishAfterCloseDrops(t *testing.T) {
	b := NewWithConfig(1, 10)
	closeBus(b)

	// Must not panic or block
	b.Publish(Event{Type: EventTypeRoomUpdate, Room: room.Room{ID: "r1"}})
}

func TestPublishRacingCloseDoesNotPanic(t *testing.T) {
	b := NewWithConfig(2, 4)
	b.Subscribe(EventTypeRoomUpdate, func(Event) {})

	// Reversion timers can still publish while shutdown is in progress; a
	// send must never hit the closed queue.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			b.Publish(Event{Type: EventTypeRoomUpdate, Room: room.Room{ID: "r1"}})
		}
	}()

	closeBus(b)
	<-done
}

func closeBus(b *Bus) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b.Close(ctx)
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for deliveries")
	}
}
