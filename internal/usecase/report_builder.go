package usecase

import (
	"context"
	"fmt"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
	svcc "OpsPulse/internal/service/cache"
	"OpsPulse/internal/services/trend"
	"OpsPulse/pkg/logger"
)

// ReportBuilder pulls stored history and runs the trend engine over it.
// The engine comes from a provider so a config reload swaps heuristics
// without restarting in-flight requests.
type ReportBuilder struct {
	store    domrepo.HistoryStore
	provider *trend.Provider
	cache    domrepo.ReportCache
	l        *logger.Logger
}

func NewReportBuilder(store domrepo.HistoryStore, provider *trend.Provider, cache domrepo.ReportCache, l *logger.Logger) *ReportBuilder {
	if l == nil {
		l = logger.NewNop()
	}
	return &ReportBuilder{store: store, provider: provider, cache: cache, l: l}
}

type TrendParams struct {
	MetricID    string
	Window      domrepo.Window
	Limit       int
	ShortPeriod int
	LongPeriod  int
}

// TrendReport computes the full analysis for one metric, serving from
// cache when the same variant was computed recently.
func (b *ReportBuilder) TrendReport(ctx context.Context, p TrendParams) (*models.TrendReport, error) {
	if p.MetricID == "" {
		return nil, fmt.Errorf("metric required")
	}
	if p.Limit <= 0 {
		p.Limit = 168
	}

	key := svcc.ReportKey(p.MetricID, string(p.Window), p.Limit, p.ShortPeriod, p.LongPeriod)
	if b.cache != nil {
		if rep, ok := b.cache.GetReport(ctx, key); ok {
			b.l.Debug("report cache_hit", logger.String("key", key))
			return rep, nil
		}
	}

	hist, err := b.store.GetLatestN(ctx, p.MetricID, p.Limit, p.Window)
	if err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}

	rep := b.provider.Engine().TrendAnalysis(hist.Values(), p.ShortPeriod, p.LongPeriod)

	if b.cache != nil {
		if err := b.cache.SetReport(ctx, key, &rep); err != nil {
			b.l.Warn("report cache_set", logger.String("key", key), logger.Error(err))
		}
	}
	return &rep, nil
}

type ThresholdParams struct {
	MetricID   string
	Window     domrepo.Window
	Limit      int
	Period     int
	Multiplier float64
}

// Threshold computes the adaptive bounds for one metric from its stored
// history.
func (b *ReportBuilder) Threshold(ctx context.Context, p ThresholdParams) (*models.AdaptiveThreshold, error) {
	if p.MetricID == "" {
		return nil, fmt.Errorf("metric required")
	}
	if p.Limit <= 0 {
		p.Limit = 168
	}

	hist, err := b.store.GetLatestN(ctx, p.MetricID, p.Limit, p.Window)
	if err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}

	thr := b.provider.Engine().AdaptiveThreshold(hist.Values(), p.Period, p.Multiplier)
	return &thr, nil
}

// Snapshot builds the dashboard card for one metric. Store failures land
// in the snapshot's Error field; the card is always returned.
func (b *ReportBuilder) Snapshot(ctx context.Context, metricID string, w domrepo.Window, limit int) models.MetricSnapshot {
	if limit <= 0 {
		limit = 168
	}
	snap := models.MetricSnapshot{
		MetricID:  metricID,
		Window:    string(w),
		UpdatedAt: time.Now(),
	}

	hist, err := b.store.GetLatestN(ctx, metricID, limit, w)
	if err != nil {
		snap.Error = err.Error()
		return snap
	}

	vals := hist.Values()
	eng := b.provider.Engine()
	rep := eng.TrendAnalysis(vals, 0, 0)
	thr := eng.AdaptiveThreshold(vals, 0, 0)

	snap.TrendDirection = rep.TrendDirection
	snap.VolatilityScore = rep.VolatilityScore
	snap.CrossoverSignal = rep.CrossoverSignal
	snap.Confidence = rep.Confidence
	snap.Threshold = thr
	if n := len(hist.Points); n > 0 {
		snap.LastValue = hist.Points[n-1].Value
	}
	return snap
}

// Refresh drops every cached variant of the metric, recomputes the
// default one and re-caches it. Used by the background refresh job.
func (b *ReportBuilder) Refresh(ctx context.Context, metricID string, w domrepo.Window, limit int) (models.MetricSnapshot, error) {
	if limit <= 0 {
		limit = 168
	}
	if b.cache != nil {
		if err := b.cache.Invalidate(ctx, metricID); err != nil {
			b.l.Warn("report cache_invalidate", logger.String("metric", metricID), logger.Error(err))
		}
	}

	snap := b.Snapshot(ctx, metricID, w, limit)
	if snap.Error != "" {
		return snap, fmt.Errorf("refresh %s: %s", metricID, snap.Error)
	}

	if b.cache != nil {
		// warm the default variant; TrendReport caches on the way out
		cfg := b.provider.Engine().Config()
		if _, err := b.TrendReport(ctx, TrendParams{
			MetricID:    metricID,
			Window:      w,
			Limit:       limit,
			ShortPeriod: cfg.ShortPeriod,
			LongPeriod:  cfg.LongPeriod,
		}); err != nil {
			b.l.Warn("report cache_warm", logger.String("metric", metricID), logger.Error(err))
		}
	}
	return snap, nil
}
