package cache

import (
	"sync"
	"time"
)

type entry struct {
	b   []byte
	exp time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && now.After(e.exp)
}

// TTLCache keeps rendered payloads in process memory. It backs the
// plain-mux handler when no Redis connection is configured.
type TTLCache struct {
	mu  sync.RWMutex
	m   map[string]entry
	max int // 0 = unbounded
}

func NewTTLCache() *TTLCache {
	return NewTTLCacheWithSize(0)
}

// NewTTLCacheWithSize bounds the cache to max entries; when full an
// expired entry is evicted first, otherwise an arbitrary one.
func NewTTLCacheWithSize(max int) *TTLCache {
	return &TTLCache{m: make(map[string]entry), max: max}
}

func (c *TTLCache) GetBytes(key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		c.mu.Lock()
		// re-check under the write lock; a Set may have refreshed it
		if cur, live := c.m[key]; live && cur.expired(time.Now()) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.b, true, nil
}

func (c *TTLCache) SetBytes(key string, b []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}

	c.mu.Lock()
	if c.max > 0 && len(c.m) >= c.max {
		if _, exists := c.m[key]; !exists {
			c.evictLocked()
		}
	}
	c.m[key] = entry{b: b, exp: exp}
	c.mu.Unlock()
	return nil
}

func (c *TTLCache) evictLocked() {
	now := time.Now()
	for k, e := range c.m {
		if e.expired(now) {
			delete(c.m, k)
			return
		}
	}
	for k := range c.m {
		delete(c.m, k)
		return
	}
}

var _ BytesCache = (*TTLCache)(nil)
