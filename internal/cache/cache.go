// Package cache provides a small in-process TTL cache for expensive query results.
//
// A Cache is built once at startup and passed to the services that share it.
// Entries expire after the configured TTL; when full, the entry closest to
// expiry is evicted.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

// Defaults used when the configuration leaves a value unset.
const (
	DefaultTTL      = 600 * time.Second
	DefaultCapacity = 1000
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a mutex-guarded TTL map with bounded size.
type Cache[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	now      func() time.Time
	entries  map[string]entry[V]
}

// New creates a cache. Non-positive ttl or capacity fall back to the defaults;
// a nil clock uses time.Now.
func New[V any](ttl time.Duration, capacity int, now func() time.Time) *Cache[V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{
		ttl:      ttl,
		capacity: capacity,
		now:      now,
		entries:  make(map[string]entry[V]),
	}
}

// Get returns the cached value. An expired entry is removed and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. Expired entries are purged first; if the cache
// is still full, the entry with the earliest expiry is evicted.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.entries {
			if oldest == "" || e.expiresAt.Before(oldestAt) {
				oldest, oldestAt = k, e.expiresAt
			}
		}
		delete(c.entries, oldest)
	}

	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
}

// Len returns the number of stored entries, expired ones included until purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Key derives a cache key from a query and its parameters. Parameter order
// does not matter.
func Key(query string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(query)
	sb.WriteString("|")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString("&")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(params[k])
	}

	sum := sha1.Sum([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
