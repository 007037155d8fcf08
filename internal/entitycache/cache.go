// Package entitycache gives each entity kind a process-wide map from row id
// to a weak reference to its live Go object. Two fetches of the same row
// while a caller holds a strong reference return the identical object;
// once every strong reference drops, a later fetch may construct a fresh
// one. Using the stdlib weak package avoids any hand-rolled finalizer
// machinery for a problem domain (Media <-> AlbumTrack <-> Album <-> Artist
// cycles held only by row id, never by pointer) that's purpose-built for it.
package entitycache

import (
	"sync"
	"weak"
)

// Cache is a weak-ref cache for entities of one kind, keyed by row id.
type Cache[T any] struct {
	mu sync.Mutex
	m  map[int64]weak.Pointer[T]
}

// New creates an empty Cache.
func New[T any]() *Cache[T] {
	return &Cache[T]{m: make(map[int64]weak.Pointer[T])}
}

// Get returns the live object for id if one is still referenced elsewhere,
// and whether it was found.
func (c *Cache[T]) Get(id int64) (*T, bool) {
	c.mu.Lock()
	wp, ok := c.m[id]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	v := wp.Value()
	if v == nil {
		return nil, false
	}
	return v, true
}

// GetOrLoad returns the cached object for id if alive; otherwise it calls
// load, stores a weak reference to the result, and returns the strong
// reference load produced. A nil, nil result (row does not exist) is never
// cached, since there is nothing live to hold a weak reference to and the
// next lookup should simply query again. Concurrent GetOrLoad calls for the
// same id may both invoke load; the cache does not deduplicate in-flight
// loads, only live instances — the store layer's single-writer-transaction
// discipline keeps rows themselves consistent regardless.
func (c *Cache[T]) GetOrLoad(id int64, load func() (*T, error)) (*T, error) {
	if v, ok := c.Get(id); ok {
		return v, nil
	}

	v, err := load()
	if err != nil || v == nil {
		return v, err
	}

	c.mu.Lock()
	c.m[id] = weak.Make(v)
	c.mu.Unlock()

	return v, nil
}

// Put installs v into the cache under id, replacing any existing entry.
func (c *Cache[T]) Put(id int64, v *T) {
	c.mu.Lock()
	c.m[id] = weak.Make(v)
	c.mu.Unlock()
}

// Evict removes id from the cache — called from the delete row-change hook
// for the corresponding table.
func (c *Cache[T]) Evict(id int64) {
	c.mu.Lock()
	delete(c.m, id)
	c.mu.Unlock()
}

// Len returns the number of entries currently tracked, live or not; it is
// intended for tests and diagnostics, not hot-path logic, since dead
// entries stay in the map until Evict removes them or GetOrLoad/Put
// replace them.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
