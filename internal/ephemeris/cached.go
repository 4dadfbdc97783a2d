package ephemeris

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
)

// lru is a fixed-capacity least-recently-used map.
type lru struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type lruEntry struct {
	key   string
	value any
}

func newLRU(capacity int) *lru {
	return &lru{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// get returns the value for key and marks it most recently used.
func (c *lru) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*lruEntry).value, true
	}
	return nil, false
}

// set stores value for key, evicting the least recently used entry when full.
func (c *lru) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry).value = value
		return
	}

	elem := c.order.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = elem

	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cached memoizes successful adapter results by (target, instant, location).
// Failures are never cached.
type Cached struct {
	next   Adapter
	cache  *lru
	hits   atomic.Uint64
	misses atomic.Uint64
}

// CacheStats is a snapshot of cache effectiveness.
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// NewCached wraps next with an LRU of the given capacity. A capacity below one disables caching.
func NewCached(next Adapter, capacity int) *Cached {
	return &Cached{next: next, cache: newLRU(max(capacity, 0))}
}

// Stats returns the current entry count and hit/miss totals.
func (c *Cached) Stats() CacheStats {
	return CacheStats{Entries: c.cache.len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func cacheKey(target string, t time.Time, lat, lon float64) string {
	return fmt.Sprintf("%s|%d|%.9f|%.9f", target, t.UnixNano(), lat, lon)
}

func lookup[T any](c *Cached, key string, fetch func() (T, error)) (T, error) {
	if v, ok := c.cache.get(key); ok {
		c.hits.Add(1)
		return v.(T), nil
	}
	c.misses.Add(1)
	v, err := fetch()
	if err != nil {
		return v, err
	}
	if c.cache.capacity > 0 {
		c.cache.set(key, v)
	}
	return v, nil
}

// Position implements Adapter.
func (c *Cached) Position(ctx context.Context, body models.Body, t time.Time, lat, lon float64) (models.BodyPosition, error) {
	return lookup(c, cacheKey(body.String(), t, lat, lon), func() (models.BodyPosition, error) {
		return c.next.Position(ctx, body, t, lat, lon)
	})
}

// Ascendant implements Adapter.
func (c *Cached) Ascendant(ctx context.Context, t time.Time, lat, lon float64) (float64, error) {
	return lookup(c, cacheKey("ascendant", t, lat, lon), func() (float64, error) {
		return c.next.Ascendant(ctx, t, lat, lon)
	})
}

// Cusps implements Adapter.
func (c *Cached) Cusps(ctx context.Context, t time.Time, lat, lon float64, system house.System) (house.Cusps, error) {
	return lookup(c, cacheKey("cusps:"+system.CuspSource().String(), t, lat, lon), func() (house.Cusps, error) {
		return c.next.Cusps(ctx, t, lat, lon, system)
	})
}
