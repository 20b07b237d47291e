package usecase

import (
	"context"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
	"OpsPulse/internal/service/ratelimit"
	"OpsPulse/pkg/logger"
)

// AlertDispatcher publishes threshold-breach alerts, rate-capped per
// metric so a flapping series cannot flood the alert topic.
type AlertDispatcher struct {
	sink    domrepo.AlertSink
	rl      *ratelimit.Limiter
	rate    float64 // alerts per minute per metric
	burst   float64
	enabled bool
	l       *logger.Logger
}

func NewAlertDispatcher(sink domrepo.AlertSink, l *logger.Logger, enabled bool, maxPerMin float64, burst int) *AlertDispatcher {
	if l == nil {
		l = logger.NewNop()
	}
	if maxPerMin <= 0 {
		maxPerMin = 2
	}
	if burst <= 0 {
		burst = 3
	}
	return &AlertDispatcher{
		sink:    sink,
		rl:      ratelimit.New(),
		rate:    maxPerMin,
		burst:   float64(burst),
		enabled: enabled,
		l:       l,
	}
}

// Evaluate checks the latest value against the adaptive bounds and sends
// an alert when it lands outside. A zero threshold (uncomputable) never
// alerts.
func (d *AlertDispatcher) Evaluate(ctx context.Context, metricID string, last float64, thr models.AdaptiveThreshold) {
	if d == nil || !d.enabled || d.sink == nil {
		return
	}
	if thr.IsZero() {
		return
	}

	var direction string
	switch {
	case last > thr.UpperThreshold:
		direction = "above"
	case last < thr.LowerThreshold:
		direction = "below"
	default:
		return
	}

	if !d.rl.Allow("alert:"+metricID, d.burst, d.rate/60.0) {
		d.l.Debug("alert suppressed",
			logger.String("metric", metricID),
			logger.String("direction", direction))
		return
	}

	a := &models.ThresholdAlert{
		MetricID:   metricID,
		Value:      last,
		Baseline:   thr.Baseline,
		Upper:      thr.UpperThreshold,
		Lower:      thr.LowerThreshold,
		Confidence: thr.Confidence,
		Direction:  direction,
		At:         time.Now(),
	}
	if err := d.sink.Send(ctx, a); err != nil {
		d.l.Error("alert send failed",
			logger.String("metric", metricID),
			logger.Error(err))
		return
	}
	d.l.Info("alert sent",
		logger.String("metric", metricID),
		logger.String("direction", direction),
		logger.Float64("value", last),
		logger.Float64("upper", thr.UpperThreshold),
		logger.Float64("lower", thr.LowerThreshold))
}

// Prune drops idle limiter buckets. Called from the scheduler sweep.
func (d *AlertDispatcher) Prune() {
	if d != nil && d.rl != nil {
		d.rl.Prune(time.Hour)
	}
}

func (d *AlertDispatcher) Close() error {
	if d != nil && d.sink != nil {
		return d.sink.Close()
	}
	return nil
}
