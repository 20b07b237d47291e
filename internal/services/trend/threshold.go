package trend

import (
	"math"

	"OpsPulse/internal/domain/models"
	"OpsPulse/pkg/logger"
)

// AdaptiveThreshold derives an EMA baseline and multiplier-scaled anomaly
// bounds: upper = baseline*multiplier, lower = baseline/multiplier.
// Confidence is 100 minus the volatility of the last period points,
// floored at ConfidenceFloor. Zero period or multiplier falls back to the
// configured defaults; an uncomputable baseline yields the zero threshold
// with confidence 0. All outputs are rounded to two decimals.
func (e *Engine) AdaptiveThreshold(series []float64, period int, multiplier float64) models.AdaptiveThreshold {
	if period <= 0 {
		period = e.cfg.ThresholdPeriod
	}
	if multiplier <= 0 {
		multiplier = e.cfg.ThresholdMultiplier
	}

	ema := e.ExponentialMovingAverage(series, period)
	if len(ema) == 0 {
		e.logger.Warn("threshold baseline not computable",
			logger.Int("period", period))
		return models.AdaptiveThreshold{}
	}

	baseline := ema[len(ema)-1]

	vals := Sanitize(series)
	tail := vals
	if len(vals) > period {
		tail = vals[len(vals)-period:]
	}
	conf := 100 - e.VolatilityScore(tail)
	if conf < e.cfg.ConfidenceFloor {
		conf = e.cfg.ConfidenceFloor
	}

	return models.AdaptiveThreshold{
		Baseline:       round2(baseline),
		UpperThreshold: round2(baseline * multiplier),
		LowerThreshold: round2(baseline / multiplier),
		Confidence:     round2(conf),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
