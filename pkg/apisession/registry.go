// Package apisession provides a typed, thread-safe registry for per-client
// session state. Clients identify themselves with an opaque session ID.
package apisession

import (
	"sync"
	"time"
)

// cleanupInterval is how often Lookup triggers lazy eviction of idle entries.
const cleanupInterval = 100

type entry[T any] struct {
	value      *T
	lastAccess time.Time
}

// Registry maps session IDs to one instance of T each. Entries idle longer
// than the TTL are evicted and handed to the closer so their resources
// (goroutines, audio, spool files) are released.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	ttl     time.Duration
	closer  func(*T)
	lookups int
}

// New creates a Registry that evicts sessions inactive longer than ttl.
// closer runs for every evicted or deleted entry; it may be nil.
func New[T any](ttl time.Duration, closer func(*T)) *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		closer:  closer,
	}
}

// Put registers value under id, replacing (and closing) any previous value.
func (r *Registry[T]) Put(id string, value *T) {
	r.mu.Lock()
	prev, ok := r.entries[id]
	r.entries[id] = &entry[T]{value: value, lastAccess: time.Now()}
	r.mu.Unlock()

	if ok && r.closer != nil && prev.value != value {
		r.closer(prev.value)
	}
}

// Lookup returns the state for the given session id, refreshing its
// last-access timestamp. The second return is false for unknown ids.
func (r *Registry[T]) Lookup(id string) (*T, bool) {
	r.mu.Lock()

	r.lookups++
	if r.lookups%cleanupInterval == 0 {
		expired := r.expireLocked()
		defer r.closeAll(expired)
	}

	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	e.lastAccess = time.Now()
	v := e.value
	r.mu.Unlock()
	return v, true
}

// Delete removes and closes the session with the given id.
func (r *Registry[T]) Delete(id string) bool {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok && r.closer != nil {
		r.closer(e.value)
	}
	return ok
}

// Cleanup evicts all sessions that have been inactive longer than the TTL.
func (r *Registry[T]) Cleanup() {
	r.mu.Lock()
	expired := r.expireLocked()
	r.mu.Unlock()
	r.closeAll(expired)
}

// Close evicts every session regardless of age.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	all := make([]*T, 0, len(r.entries))
	for id, e := range r.entries {
		all = append(all, e.value)
		delete(r.entries, id)
	}
	r.mu.Unlock()
	r.closeAll(all)
}

// expireLocked removes idle entries and returns their values for closing
// outside the lock. Callers hold the mutex.
func (r *Registry[T]) expireLocked() []*T {
	cutoff := time.Now().Add(-r.ttl)
	var expired []*T
	for id, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			expired = append(expired, e.value)
			delete(r.entries, id)
		}
	}
	return expired
}

func (r *Registry[T]) closeAll(values []*T) {
	if r.closer == nil {
		return
	}
	for _, v := range values {
		r.closer(v)
	}
}

// Len returns the number of active sessions.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
