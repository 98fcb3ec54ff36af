// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

import "sync"

// Cache is a generic thread-safe LRU cache with a capacity limit.
// When the cache exceeds its capacity, least recently used entries are
// evicted. A capacity of 0 means unlimited.
//
// Cache is safe for concurrent use.
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*cacheEntry[K, V]
	lru       lruList[K]
	capacity  int
}

type cacheEntry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// New creates a new cache with the given capacity.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 0 {
		capacity = 0
	}
	return &Cache[K, V]{
		entries:  make(map[K]*cacheEntry[K, V]),
		capacity: capacity,
	}
}

// Get retrieves a value from the cache and marks it as recently used.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.lru.MoveToFront(entry.node)
	return entry.value, true
}

// Set stores a value in the cache.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(key, value)
	c.evict()
}

// SetMany removes the keys in remove and stores every entry of batch under
// a single lock acquisition, so concurrent readers observe either none or
// all of the change. Eviction runs once after the whole batch is stored.
func (c *Cache[K, V]) SetMany(batch map[K]V, remove ...K) {
	if len(batch) == 0 && len(remove) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range remove {
		if entry, ok := c.entries[key]; ok {
			c.lru.Remove(entry.node)
			delete(c.entries, key)
		}
	}
	for key, value := range batch {
		c.set(key, value)
	}
	c.evict()
}

// Snapshot returns a copy of every entry. Recency is not updated.
func (c *Cache[K, V]) Snapshot() map[K]V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[K]V, len(c.entries))
	for key, entry := range c.entries {
		out[key] = entry.value
	}
	return out
}

// Clear removes all entries from the cache.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*cacheEntry[K, V])
	c.lru.Clear()
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// set inserts or replaces key. Caller must hold c.mu.
func (c *Cache[K, V]) set(key K, value V) {
	if entry, ok := c.entries[key]; ok {
		entry.value = value
		c.lru.MoveToFront(entry.node)
		return
	}
	c.entries[key] = &cacheEntry[K, V]{value: value, node: c.lru.PushFront(key)}
}

// evict removes least recently used entries until within capacity.
// Caller must hold c.mu.
func (c *Cache[K, V]) evict() {
	if c.capacity == 0 {
		return
	}
	for len(c.entries) > c.capacity {
		key, ok := c.lru.RemoveOldest()
		if !ok {
			return
		}
		delete(c.entries, key)
	}
}
