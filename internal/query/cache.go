package query

import (
	"sync"
	"time"
)

// Cache is a bounded TTL cache for per-question analysis. It is an explicit
// instance owned by whoever constructs it and passed by reference, so tests
// can inject a fresh cache per run.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

type cacheEntry struct {
	value   Classification
	expires time.Time
}

// NewCache creates a cache holding at most maxEntries values for ttl each.
func NewCache(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		entries:    make(map[string]cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the cached classification for a question, if present and fresh.
func (c *Cache) Get(question string) (Classification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[question]
	if !ok {
		return Classification{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, question)
		return Classification{}, false
	}
	return entry.value, true
}

// Put stores a classification for a question.
func (c *Cache) Put(question string, value Classification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}

	c.entries[question] = cacheEntry{
		value:   value,
		expires: c.now().Add(c.ttl),
	}
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries first, then the entry closest to expiry.
func (c *Cache) evictLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.expires.Before(oldest) {
			oldestKey = key
			oldest = entry.expires
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
