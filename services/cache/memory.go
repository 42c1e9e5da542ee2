package cache

import (
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is a process-local CacheService used when no memcache server is configured.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.liveLocked(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (c *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = c.newEntry(value, expiration)
	return nil
}

func (c *MemoryCache) Add(key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.liveLocked(key); ok {
		return ErrNotStored
	}
	c.entries[key] = c.newEntry(value, expiration)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

func (c *MemoryCache) liveLocked(key string) (entry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return entry{}, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return entry{}, false
	}
	return e, true
}

// newEntry follows memcache: a zero expiration never expires.
func (c *MemoryCache) newEntry(value []byte, expiration time.Duration) entry {
	e := entry{value: append([]byte(nil), value...)}
	if expiration > 0 {
		e.expires = c.now().Add(expiration)
	}
	return e
}
