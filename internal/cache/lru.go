package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a size-bounded cache with TTL. Expired entries stay readable
// through GetStale until keepStale has passed or they are evicted, so callers
// can serve the last known value when the source is down.
type LRUCache[T any] struct {
	mu        sync.Mutex
	maxSize   int
	ttl       time.Duration
	keepStale time.Duration
	gen       uint64
	items     map[string]*list.Element
	lru       *list.List
	now       func() time.Time
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// NewLRUCache creates a cache holding at most maxSize entries, each fresh for
// ttl and retained as stale for keepStale afterwards.
func NewLRUCache[T any](maxSize int, ttl, keepStale time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize:   maxSize,
		ttl:       ttl,
		keepStale: keepStale,
		items:     make(map[string]*list.Element),
		lru:       list.New(),
		now:       time.Now,
	}
}

// Get returns a fresh value.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}
	item := elem.Value.(*cacheItem[T])
	if !c.now().Before(item.expiresAt) {
		return zero, false
	}
	c.lru.MoveToFront(elem)
	return item.data, true
}

// GetStale returns the value regardless of freshness. fresh reports whether
// it has not yet expired.
func (c *LRUCache[T]) GetStale(key string) (data T, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if !exists {
		return data, false, false
	}
	item := elem.Value.(*cacheItem[T])
	c.lru.MoveToFront(elem)
	return item.data, c.now().Before(item.expiresAt), true
}

// Set stores a fresh value.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, data, c.now().Add(c.ttl))
}

// SetIfCurrent stores data as fresh only if no ExpireAll happened since gen
// was read. Otherwise the value is kept as already expired.
func (c *LRUCache[T]) SetIfCurrent(key string, data T, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if gen != c.gen {
		exp = c.now()
	}
	c.set(key, data, exp)
}

func (c *LRUCache[T]) set(key string, data T, expiresAt time.Time) {
	item := &cacheItem[T]{key: key, data: data, expiresAt: expiresAt}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Generation changes every time ExpireAll runs.
func (c *LRUCache[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// ExpireAll marks every entry stale without dropping it and returns how many
// entries were affected.
func (c *LRUCache[T]) ExpireAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	now := c.now()
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if item.expiresAt.After(now) {
			item.expiresAt = now
		}
	}
	return c.lru.Len()
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired drops entries that have been stale for longer than keepStale
// and returns how many were removed.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.keepStale)
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		item := elem.Value.(*cacheItem[T])
		if item.expiresAt.Before(cutoff) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
