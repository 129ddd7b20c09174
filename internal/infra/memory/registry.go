// Package memory provides the bare in-process implementation of
// app.SessionRegistry, generalized from the teacher's memory.SessionStore.
package memory

import (
	"sync"

	"quizroom/internal/app"
)

// Registry is an in-memory app.SessionRegistry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*app.SessionEntry
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*app.SessionEntry)}
}

// TryCreate stores entry under id iff id is not already taken.
func (r *Registry) TryCreate(id string, entry *app.SessionEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return false
	}
	r.entries[id] = entry
	return true
}

// Get looks up the entry stored under id.
func (r *Registry) Get(id string) (*app.SessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// Delete removes the entry stored under id, if any.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}
