// Package ttlcache provides a thread-safe, generic LRU cache with
// per-entry TTL expiry and hit/miss statistics. Capacity and TTL are
// fixed at construction.
package ttlcache

import (
	"sync"
	"time"
)

// Stats is a point-in-time snapshot of cache counters.
// Hits and Misses are monotonically non-decreasing until Reset.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hitRate"`
}

type entry[T any] struct {
	value          T
	expiresAt      time.Time
	lastAccessedAt time.Time
}

// Cache is a string-keyed LRU+TTL cache.
type Cache[T any] struct {
	mu       sync.Mutex
	entries  map[string]*entry[T]
	capacity int
	ttl      time.Duration
	hits     uint64
	misses   uint64
	// now is injectable for deterministic expiry tests
	now func() time.Time
}

// New creates a cache holding at most capacity entries, each valid for ttl.
func New[T any](capacity int, ttl time.Duration) *Cache[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[T]{
		entries:  make(map[string]*entry[T]),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewWithClock creates a cache with a custom time source (for testing).
func NewWithClock[T any](capacity int, ttl time.Duration, now func() time.Time) *Cache[T] {
	c := New[T](capacity, ttl)
	c.now = now
	return c
}

// Get returns the cached value for key. A missing or expired entry is a
// miss. On a hit the entry's last-access time is refreshed.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		c.misses++
		var zero T
		return zero, false
	}
	e.lastAccessedAt = c.now()
	c.hits++
	return e.value, true
}

// GetStale returns the value for key even if it has expired. It does not
// touch the hit/miss counters or the access time. Used to serve a stale
// answer when the upstream is unavailable.
func (c *Cache[T]) GetStale(key string) (value T, ok, stale bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, present := c.entries[key]
	if !present {
		var zero T
		return zero, false, false
	}
	return e.value, true, c.now().After(e.expiresAt)
}

// Set inserts or replaces the value for key. When the cache is over
// capacity one entry is evicted: an already-expired entry if any exists,
// otherwise the least recently accessed one.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = now.Add(c.ttl)
		e.lastAccessedAt = now
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictLocked(now)
	}
	c.entries[key] = &entry[T]{
		value:          value,
		expiresAt:      now.Add(c.ttl),
		lastAccessedAt: now,
	}
}

// Has reports whether key is present and not expired, without counting
// a hit or miss.
func (c *Cache[T]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return ok && !c.now().After(e.expiresAt)
}

// Delete removes key from the cache.
func (c *Cache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all entries. Counters are unaffected; use ResetStats.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T])
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// ResetStats zeroes the hit/miss counters.
func (c *Cache[T]) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits = 0
	c.misses = 0
}

// evictLocked removes one entry: expired entries first, then the entry
// with the oldest last access. Caller holds c.mu.
func (c *Cache[T]) evictLocked(now time.Time) {
	var victim string
	var victimAccess time.Time
	first := true

	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			return
		}
		if first || e.lastAccessedAt.Before(victimAccess) {
			victim = k
			victimAccess = e.lastAccessedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}
