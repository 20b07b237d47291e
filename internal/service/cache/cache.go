package cache

import "time"

// BytesCache stores rendered payloads by key with a per-entry TTL. The
// in-process TTL cache and the Redis-backed adapter both satisfy it.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
