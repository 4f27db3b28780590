// Package cache provides a bounded least-recently-used result cache.
//
// Each checking engine owns one instance keyed by a checksum of the
// filtered document text, so markup-only edits that do not change the
// checkable content still count as cache hits.
package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
)

// Key identifies a cache entry. Keys are checksums of filtered text.
type Key uint64

// Checksum returns the cache key for a piece of filtered text (FNV-64a).
func Checksum(text string) Key {
	h := fnv.New64a()
	h.Write([]byte(text))
	return Key(h.Sum64())
}

// LRU is a fixed-capacity cache with strict least-recently-used
// eviction. A Get hit promotes the entry to most recently used; a Put at
// capacity evicts the least recently used entry first.
// It is safe for concurrent use.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[Key]*list.Element
	order    *list.List
}

type entry[V any] struct {
	key   Key
	value V
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[V any](capacity int) *LRU[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU[V]{
		capacity: capacity,
		items:    make(map[Key]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get retrieves the value for key, promoting it to most recently used.
func (c *LRU[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[V]).value, true //nolint:errcheck // list only holds *entry[V]
}

// Put stores value under key, evicting the least recently used entry if
// the cache is full.
func (c *LRU[V]) Put(key Key, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[V]).value = value //nolint:errcheck // list only holds *entry[V]
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key) //nolint:errcheck // list only holds *entry[V]
		}
	}

	c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value})
}

// Clear removes all entries.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the maximum number of entries.
func (c *LRU[V]) Capacity() int {
	return c.capacity
}
