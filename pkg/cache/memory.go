package cache

import (
	"container/list"
	"context"
	"fmt"
	"path"
	"strconv"
	"sync"
	"time"
)

// keys without an explicit TTL still age out eventually
const defaultMemoryTTL = 7 * 24 * time.Hour

// entry is one cached value. Values are stored in encoded byte form so
// Get can decode into any destination type, mirroring the Redis
// backend.
type entry struct {
	key      string
	data     []byte
	expireAt time.Time
	elem     *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is an in-process Service with LRU eviction and a periodic
// expiry sweep. It stores values the same way the Redis backend does,
// so the two are interchangeable behind a layered cache.
type MemoryCache struct {
	mu      sync.Mutex
	items   map[string]*entry
	lru     *list.List // front is most recently used
	maxSize int

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache builds an LRU-evicting in-process cache and starts its
// expiry sweeper.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		items:   make(map[string]*entry),
		lru:     list.New(),
		maxSize: cfg.MaxSize,
		done:    make(chan struct{}),
	}
	go mc.sweep(cfg.CleanupInterval)
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.put(key, data, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest any) error {
	mc.mu.Lock()
	e, ok := mc.items[key]
	if !ok || e.expired(time.Now()) {
		if ok {
			mc.removeEntry(e)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	mc.lru.MoveToFront(e.elem)
	data := e.data
	mc.mu.Unlock()

	return decodeValue(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		if e, ok := mc.items[key]; ok {
			mc.removeEntry(e)
		}
	}
	return nil
}

// DeleteByPattern removes keys matching a glob pattern such as
// "report:cpu.load*".
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for key, e := range mc.items {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("cache: bad pattern %q: %w", pattern, err)
		}
		if ok {
			mc.removeEntry(e)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for _, key := range keys {
		if e, ok := mc.items[key]; ok && !e.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Increment bumps an integer counter, creating it at 1 when absent.
func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if e, ok := mc.items[key]; ok && !e.expired(time.Now()) {
		n, err := strconv.ParseInt(string(e.data), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cache: value at %q is not an integer", key)
		}
		n++
		e.data = []byte(strconv.FormatInt(n, 10))
		mc.lru.MoveToFront(e.elem)
		return n, nil
	}

	mc.put(key, []byte("1"), 0)
	return 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.items[key]
	if !ok || e.expired(time.Now()) {
		return false, nil
	}
	e.expireAt = time.Now().Add(expiration)
	return true, nil
}

func (mc *MemoryCache) MSet(_ context.Context, values map[string]any, expiration time.Duration) error {
	encoded := make(map[string][]byte, len(values))
	for key, value := range values {
		data, err := encodeValue(value)
		if err != nil {
			return err
		}
		encoded[key] = data
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key, data := range encoded {
		mc.put(key, data, expiration)
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if e, ok := mc.items[key]; ok && !e.expired(now) {
			out[key] = string(e.data)
		}
	}
	return out, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if e, ok := mc.items[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	mc.put(key, []byte("locked"), ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Close stops the expiry sweep. Safe to call more than once.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		close(mc.done)
	})
	return nil
}

// put inserts or refreshes a key. Callers hold mc.mu.
func (mc *MemoryCache) put(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	now := time.Now()

	if e, ok := mc.items[key]; ok {
		e.data = data
		e.expireAt = now.Add(ttl)
		mc.lru.MoveToFront(e.elem)
		return
	}

	if len(mc.items) >= mc.maxSize {
		mc.evictOldest()
	}
	e := &entry{key: key, data: data, expireAt: now.Add(ttl)}
	e.elem = mc.lru.PushFront(e)
	mc.items[key] = e
}

func (mc *MemoryCache) removeEntry(e *entry) {
	mc.lru.Remove(e.elem)
	delete(mc.items, e.key)
}

func (mc *MemoryCache) evictOldest() {
	back := mc.lru.Back()
	if back == nil {
		return
	}
	mc.removeEntry(back.Value.(*entry))
}

func (mc *MemoryCache) sweep(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			mc.mu.Lock()
			for _, e := range mc.items {
				if e.expired(now) {
					mc.removeEntry(e)
				}
			}
			mc.mu.Unlock()
		case <-mc.done:
			return
		}
	}
}
