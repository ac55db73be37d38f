// Package modcache tracks which loaded modules a pass introduced and evicts
// exactly those.
//
// Loading suite files for validation populates the loader's module cache.
// Left in place, the real run would reuse those cached modules instead of
// evaluating the files again, so the orchestrator snapshots the cache before
// the load pass and flushes the delta afterwards.
package modcache

import (
	"sort"
	"sync"
)

// Ledger is the view of a module cache the Tracker needs.
type Ledger interface {
	// Keys returns the identities of every cached entry.
	Keys() []string
	// Evict removes one entry and reports whether it was present.
	Evict(key string) bool
}

// Cache is a concurrency-safe module cache keyed by module identity.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// NewCache returns an empty cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{entries: make(map[string]V)}
}

// Get returns the entry for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores an entry, replacing any previous one.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Evict removes key.
func (c *Cache[V]) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Keys returns the cached identities in sorted order.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
