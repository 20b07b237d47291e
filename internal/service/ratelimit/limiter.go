package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyed pairs a token bucket with the last time it was consulted so
// idle entries can be pruned.
type keyed struct {
	lim  *rate.Limiter
	seen time.Time
}

// Limiter hands out per-key token buckets. Keys are open-ended
// (client addresses, metric IDs), so callers should Prune on a timer.
type Limiter struct {
	mu sync.Mutex
	m  map[string]*keyed
}

func New() *Limiter { return &Limiter{m: make(map[string]*keyed)} }

// Allow reports whether one token could be consumed for key. The
// bucket is created on first use with capacity as its burst size and
// refillPerSec as its sustained rate; later calls reuse that shape.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	l.mu.Lock()
	k, ok := l.m[key]
	if !ok {
		k = &keyed{lim: rate.NewLimiter(rate.Limit(refillPerSec), int(capacity))}
		l.m[key] = k
	}
	k.seen = time.Now()
	l.mu.Unlock()

	// rate.Limiter carries its own lock, so the map lock is not held
	// across the token take.
	return k.lim.Allow()
}

// Prune drops buckets idle for longer than maxIdle so per-caller keys
// do not accumulate forever.
func (l *Limiter) Prune(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, k := range l.m {
		if k.seen.Before(cutoff) {
			delete(l.m, key)
		}
	}
}
