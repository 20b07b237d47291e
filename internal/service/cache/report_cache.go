package cache

import (
	"context"
	"errors"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
	pkgcache "OpsPulse/pkg/cache"
	"OpsPulse/pkg/logger"
)

// ReportCache implements the domain report cache on top of the layered
// cache. Keys carry every request parameter so report variants never
// collide.
type ReportCache struct {
	c   pkgcache.Service
	ttl time.Duration
	l   *logger.Logger
}

func NewReportCache(c pkgcache.Service, ttl time.Duration, l *logger.Logger) *ReportCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ReportCache{c: c, ttl: ttl, l: l}
}

// ReportKey builds the cache key for one report variant.
func ReportKey(metricID, window string, limit, short, long int) string {
	return pkgcache.GenerateKeyWithParams("report", metricID, window, limit, short, long)
}

func (r *ReportCache) GetReport(ctx context.Context, key string) (*models.TrendReport, bool) {
	var rep models.TrendReport
	if err := r.c.Get(ctx, key, &rep); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) && r.l != nil {
			r.l.Warn("report cache get", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	return &rep, true
}

func (r *ReportCache) SetReport(ctx context.Context, key string, rep *models.TrendReport) error {
	return r.c.Set(ctx, key, rep, r.ttl)
}

// Invalidate drops every cached report variant of one metric.
func (r *ReportCache) Invalidate(ctx context.Context, metricID string) error {
	pattern := pkgcache.BuildPattern(pkgcache.GenerateKey("report", metricID))
	return r.c.DeleteByPattern(ctx, pattern)
}

var _ domrepo.ReportCache = (*ReportCache)(nil)
