// Package registry holds the in-memory view of room records.
package registry

import (
	"sort"
	"sync"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/room"
)

// Registry is the in-memory room table. It is a view over records the Room
// Service owns: every single-room mutation happens only after the
// corresponding remote write has committed, and bulk loads replace the view
// with a fresh remote snapshot.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]room.Room
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{rooms: make(map[string]room.Room)}
}

// Get returns the room record for the given id.
func (r *Registry) Get(id string) (room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[id]
	return rm, ok
}

// Put stores a room record, overwriting any previous record for the id.
func (r *Registry) Put(rm room.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[rm.ID] = rm
}

// Delete removes the record for the id. Deleting an unknown id is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, id)
}

// Replace swaps the whole table for the given snapshot.
func (r *Registry) Replace(rooms []room.Room) {
	next := make(map[string]room.Room, len(rooms))
	for _, rm := range rooms {
		next[rm.ID] = rm
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = next
}

// List returns all room records sorted by id.
func (r *Registry) List() []room.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]room.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, rm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of rooms in the registry.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
