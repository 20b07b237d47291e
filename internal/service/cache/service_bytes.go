package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "OpsPulse/pkg/cache"
)

// ServiceBytes adapts the shared cache service to the byte-slice
// interface of the embeddable HTTP handler, so the plain-mux surface and
// the Echo API share one Redis-backed store instead of opening a second
// connection.
type ServiceBytes struct {
	c pkgcache.Service
}

func NewServiceBytes(c pkgcache.Service) *ServiceBytes {
	return &ServiceBytes{c: c}
}

func (s *ServiceBytes) GetBytes(key string) ([]byte, bool, error) {
	var out string
	if err := s.c.Get(context.Background(), key, &out); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(out), true, nil
}

func (s *ServiceBytes) SetBytes(key string, value []byte, ttl time.Duration) error {
	return s.c.Set(context.Background(), key, string(value), ttl)
}

var _ BytesCache = (*ServiceBytes)(nil)
