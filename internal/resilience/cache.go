package resilience

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes outbound call results keyed by request parameters. Entries
// expire after a per-cache TTL; expired entries are removed on read. The entry
// count is capped with least-recently-used eviction so free-text keys cannot
// grow the cache without bound.
type Cache[V any] struct {
	// Clock is an injection point for tests.
	Clock func() time.Time

	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	lru     *list.List
	entries map[string]*list.Element
	group   singleflight.Group
}

type cacheEntry[V any] struct {
	key       string
	value     V
	createdAt time.Time
}

const defaultMaxEntries = 1024

// NewCache returns a cache whose entries are valid for ttl. maxEntries <= 0
// selects the default cap.
func NewCache[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Cache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		lru:        list.New(),
		entries:    make(map[string]*list.Element),
	}
}

// Get returns the stored value if the entry is younger than the TTL.
// Expired entries behave as absent and are deleted.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	if c == nil || c.ttl <= 0 {
		return zero, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	entry := element.Value.(*cacheEntry[V])
	if c.now().Sub(entry.createdAt) >= c.ttl {
		c.lru.Remove(element)
		delete(c.entries, key)
		return zero, false
	}

	c.lru.MoveToFront(element)
	return entry.value, true
}

// Set stores value under key with a fresh timestamp, overwriting any existing
// entry and evicting the least recently used entries beyond the cap.
func (c *Cache[V]) Set(key string, value V) {
	if c == nil || c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if element, ok := c.entries[key]; ok {
		entry := element.Value.(*cacheEntry[V])
		entry.value = value
		entry.createdAt = now
		c.lru.MoveToFront(element)
		return
	}

	element := c.lru.PushFront(&cacheEntry[V]{key: key, value: value, createdAt: now})
	c.entries[key] = element

	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		evicted := c.lru.Remove(oldest).(*cacheEntry[V])
		delete(c.entries, evicted.key)
	}
}

// Len reports the current entry count, including not-yet-collected expired entries.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// GetOrFill returns the cached value for key or invokes fill to produce and
// store it. Concurrent fills for the same key are collapsed into one call.
func (c *Cache[V]) GetOrFill(ctx context.Context, key string, fill func(ctx context.Context) (V, error)) (V, error) {
	var zero V

	if c == nil || c.ttl <= 0 {
		return fill(ctx)
	}

	if value, ok := c.Get(key); ok {
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := fill(ctx)
		if err != nil {
			return zero, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(V), nil
}

func (c *Cache[V]) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}
