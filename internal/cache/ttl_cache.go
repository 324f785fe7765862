package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultTTL is used by SetDefault when no other TTL was configured.
const DefaultTTL = 60 * time.Second

// TTLCache is an in-process key/value store where every key carries its own
// expiration timer. Expired keys are removed by the timer firing, and keys can
// be dropped early by Invalidate or InvalidatePattern.
//
// A TTL <= 0 passed to Set rejects the value: nothing is stored and any
// previous entry under the key is removed.
type TTLCache struct {
	mu         sync.Mutex
	data       map[string]*ttlEntry
	clock      clockwork.Clock
	defaultTTL time.Duration
	generation uint64
	stats      Stats
}

type ttlEntry struct {
	value      any
	expiresAt  time.Time
	timer      clockwork.Timer
	generation uint64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Expirations   uint64
	Invalidations uint64
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock replaces the wall clock, mainly so tests can advance time.
func WithClock(clock clockwork.Clock) Option {
	return func(c *TTLCache) {
		c.clock = clock
	}
}

// WithDefaultTTL sets the TTL used by SetDefault.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *TTLCache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// NewTTLCache creates an empty cache.
func NewTTLCache(opts ...Option) *TTLCache {
	c := &TTLCache{
		data:       make(map[string]*ttlEntry),
		clock:      clockwork.NewRealClock(),
		defaultTTL: DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key for ttl, replacing any pending expiration.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.removeLocked(key)
		return
	}

	c.removeLocked(key)
	c.generation++
	gen := c.generation
	c.data[key] = &ttlEntry{
		value:      value,
		expiresAt:  c.clock.Now().Add(ttl),
		timer:      c.clock.AfterFunc(ttl, func() { c.expire(key, gen) }),
		generation: gen,
	}
}

// SetDefault stores value under key with the default TTL.
func (c *TTLCache) SetDefault(key string, value any) {
	c.Set(key, value, c.defaultTTL)
}

// Get returns the value stored under key. Reads never extend the TTL. An
// entry whose deadline passed is a miss even if its timer has not run yet.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return entry.value, true
}

// Invalidate removes key. Removing a missing key is a no-op.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removeLocked(key) {
		c.stats.Invalidations++
	}
}

// InvalidatePattern removes every key selected by p and returns how many
// were removed.
func (c *TTLCache) InvalidatePattern(p Pattern) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.data {
		if p.Match(key) && c.removeLocked(key) {
			removed++
		}
	}
	c.stats.Invalidations += uint64(removed)
	return removed
}

// Len returns the number of stored entries, including ones whose timers are
// about to fire.
func (c *TTLCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Stats returns a snapshot of the counters.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops every pending timer and empties the cache.
func (c *TTLCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.data {
		c.removeLocked(key)
	}
}

func (c *TTLCache) expire(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer Set may have replaced the entry after this timer was armed.
	entry, ok := c.data[key]
	if !ok || entry.generation != gen {
		return
	}
	delete(c.data, key)
	c.stats.Expirations++
}

func (c *TTLCache) removeLocked(key string) bool {
	entry, ok := c.data[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(c.data, key)
	return true
}
