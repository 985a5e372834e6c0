// Package prompt builds context-aware system prompts for LLM conversations.
//
// A Builder compiles a repository context, document metadata, and (possibly
// truncated) document content into a rendered system prompt, caching results
// by a deterministic key so repeated requests for the same view are free.
package prompt

import (
	"time"
)

// CacheStats reports cache occupancy without mutating state.
type CacheStats struct {
	Total   int
	Valid   int
	Expired int
}

// Cache is a TTL-based in-memory prompt cache. Expired entries are evicted
// lazily on Get — there is no background sweeper and no capacity bound, so
// growth is bounded only by the variety of keys the caller produces.
type Cache struct {
	ttl     time.Duration
	entries map[string]string
	stamps  map[string]time.Time
	now     func() time.Time
}

// NewCache creates a cache whose entries live for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]string),
		stamps:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// Get returns the cached value for key, or "" and false if the entry is
// absent or expired. An expired entry is removed on the spot.
func (c *Cache) Get(key string) (string, bool) {
	stamp, ok := c.stamps[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(stamp) > c.ttl {
		delete(c.entries, key)
		delete(c.stamps, key)
		return "", false
	}
	return c.entries[key], true
}

// Set stores value under key unconditionally, resetting its timestamp.
func (c *Cache) Set(key, value string) {
	c.entries[key] = value
	c.stamps[key] = c.now()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.entries = make(map[string]string)
	c.stamps = make(map[string]time.Time)
}

// Stats scans timestamps against the current clock and reports counts.
// It never evicts — introspection is non-destructive.
func (c *Cache) Stats() CacheStats {
	stats := CacheStats{Total: len(c.stamps)}
	now := c.now()
	for _, stamp := range c.stamps {
		if now.Sub(stamp) > c.ttl {
			stats.Expired++
		} else {
			stats.Valid++
		}
	}
	return stats
}
