// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache provides a bounded memoization cache with per-entry ttl and
// LRU eviction. It backs two independent keyspaces for the dispatcher:
// classification results (short ttl) and reusable execution contexts
// (longer ttl).
package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is a stored value with its insertion time and ttl.
type entry struct {
	key        string
	value      any
	insertedAt time.Time
	ttl        time.Duration

	// element is the LRU list element (for eviction)
	element *list.Element
}

// expired reports whether the entry is past its ttl at now.
func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) >= e.ttl
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
	Size        int   `json:"size"`
}

// Cache is a size-bounded TTL cache. A served value's age never exceeds its
// ttl at the moment of serving: expired entries are dropped lazily on read.
// Concurrent misses on the same key are coalesced so the compute function
// runs once.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*entry
	// lruList maintains recency order for eviction, most recent at front.
	lruList *list.List
	group   singleflight.Group
	stats   Stats
}

// New creates a cache holding at most capacity entries.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 128
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*entry),
		lruList:  list.New(),
	}
}

// GetOrCompute returns the cached value for key if present and fresh,
// otherwise invokes compute, stores its result with the given ttl, and
// returns it. Compute errors are not cached.
func (c *Cache) GetOrCompute(key string, ttl time.Duration, compute func() (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	// Coalesce concurrent misses on the same key. Duplicate computation
	// after a race is acceptable (compute is idempotent); serving a stale
	// value would not be.
	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.recheck(key); ok {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.store(key, v, ttl)
		return v, nil
	})
	return v, err
}

// Get returns the cached value for key if present and fresh.
func (c *Cache) Get(key string) (any, bool) {
	return c.lookup(key)
}

func (c *Cache) lookup(key string) (any, bool) {
	return c.find(key, true)
}

// recheck is the double check after winning the singleflight slot. The miss
// was already counted by the lookup that led here, so it is not counted
// again; a hit (another caller stored the value meanwhile) still is.
func (c *Cache) recheck(key string) (any, bool) {
	return c.find(key, false)
}

func (c *Cache) find(key string, countMiss bool) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		if countMiss {
			c.stats.Misses++
		}
		return nil, false
	}
	if e.expired(time.Now()) {
		c.removeLocked(e)
		c.stats.Expirations++
		if countMiss {
			c.stats.Misses++
		}
		return nil, false
	}
	c.lruList.MoveToFront(e.element)
	c.stats.Hits++
	return e.value, true
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}
	for len(c.entries) >= c.capacity {
		c.evictLocked()
	}

	e := &entry{key: key, value: value, insertedAt: time.Now(), ttl: ttl}
	e.element = c.lruList.PushFront(e)
	c.entries[key] = e
	c.stats.Size = len(c.entries)
}

// Invalidate drops the entry for key if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.lruList = list.New()
	c.stats.Size = 0
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the performance counters.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.Size = len(c.entries)
	return stats
}

// evictLocked removes the least recently used entry. Must be called with
// the lock held.
func (c *Cache) evictLocked() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.removeLocked(oldest.Value.(*entry))
	c.stats.Evictions++
}

// removeLocked unlinks an entry from the map and the LRU list. Must be
// called with the lock held.
func (c *Cache) removeLocked(e *entry) {
	delete(c.entries, e.key)
	c.lruList.Remove(e.element)
	c.stats.Size = len(c.entries)
}
