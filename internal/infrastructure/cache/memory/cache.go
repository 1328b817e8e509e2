// Package memory provides a bounded, process-local TTL cache for analysis
// results.  The engine is deterministic and its inputs travel on the request,
// so a cache entry never needs to outlive the process or be shared across
// replicas.
package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/infrastructure/monitoring/logging"
	"github.com/RandyVollrath/ticketlesschicago-sub000/pkg/errors"
)

// ErrCacheMiss is returned for absent or expired keys.
var ErrCacheMiss = errors.New(errors.ErrCodeNotFound, "cache miss")

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a mutex-guarded map with per-entry expiry, a capacity bound, and a
// background janitor.  Values are copied on the way in and out.
type Cache struct {
	logger logging.Logger

	prefix          string
	defaultTTL      time.Duration
	maxEntries      int
	cleanupInterval time.Duration

	mu      sync.Mutex
	entries map[string]entry

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithDefaultTTL sets the TTL applied when a caller passes none.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.defaultTTL = ttl }
}

// WithMaxEntries bounds the cache; 0 disables the bound.
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithCleanupInterval sets the janitor sweep period; 0 disables the janitor
// and expired entries are then removed lazily on access.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Cache) { c.cleanupInterval = d }
}

// NewCache builds the cache and starts its janitor.
func NewCache(log logging.Logger, opts ...Option) *Cache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	c := &Cache{
		logger:          log,
		prefix:          "appeal:",
		defaultTTL:      15 * time.Minute,
		maxEntries:      4096,
		cleanupInterval: 5 * time.Minute,
		entries:         make(map[string]entry),
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cleanupInterval > 0 {
		go c.janitor()
	}
	return c
}

func (c *Cache) fullKey(key string) string {
	return c.prefix + key
}

// jitterTTL spreads expirations +/- 10% so entries written together do not
// all expire on the same sweep.
func (c *Cache) jitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

// Get returns a copy of the stored value, or ErrCacheMiss for absent and
// expired keys.  Expired entries found here are removed immediately.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	k := c.fullKey(key)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		c.misses++
		return nil, ErrCacheMiss
	}
	if now.After(e.expiresAt) {
		delete(c.entries, k)
		c.expired++
		c.misses++
		return nil, ErrCacheMiss
	}
	c.hits++
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a copy of value.  A non-positive ttl falls back to the default;
// inserting past the capacity bound evicts the soonest-expiring entry.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ttl = c.jitterTTL(ttl)

	stored := make([]byte, len(value))
	copy(stored, value)
	k := c.fullKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[k] = entry{value: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes a key; deleting an absent key is not an error.
func (c *Cache) Delete(_ context.Context, key string) error {
	k := c.fullKey(key)
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
	return nil
}

// evictLocked drops the soonest-expiring entry.  A linear scan is fine at the
// capacities this cache runs at.
func (c *Cache) evictLocked() {
	var (
		victim   string
		earliest time.Time
		found    bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(earliest) {
			victim, earliest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.entries, victim)
		c.evictions++
	}
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if removed := c.removeExpired(); removed > 0 {
				c.logger.Debug("cache janitor sweep", logging.Int("removed", removed))
			}
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) removeExpired() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			removed++
		}
	}
	c.expired += uint64(removed)
	return removed
}

// Stop halts the janitor; the cache itself stays usable.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Stats is a point-in-time snapshot of the effectiveness counters.
type Stats struct {
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Expired   uint64 `json:"expired"`
}

// Stats reports the current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
	}
}
