package trend

import (
	"math"

	"OpsPulse/internal/domain/models"
	"OpsPulse/pkg/logger"
)

// TrendDirection classifies the tail of a smoothed series as up, down or
// neutral. A change within NoiseRatio of the previous value reads as
// neutral. lookback is the minimum number of valid points required; zero
// or negative falls back to the configured default.
func (e *Engine) TrendDirection(series []float64, lookback int) models.TrendDirection {
	if lookback <= 0 {
		lookback = e.cfg.TrendLookback
	}

	vals := Sanitize(series)
	if len(vals) < lookback || len(vals) < 2 {
		e.logger.Warn("trend not classifiable",
			logger.Int("points", len(vals)),
			logger.Int("lookback", lookback))
		return models.TrendNeutral
	}

	cur := vals[len(vals)-1]
	prev := vals[len(vals)-2]
	diff := cur - prev
	noise := math.Abs(prev) * e.cfg.NoiseRatio

	if math.Abs(diff) <= noise {
		return models.TrendNeutral
	}
	if diff > 0 {
		return models.TrendUp
	}
	return models.TrendDown
}
