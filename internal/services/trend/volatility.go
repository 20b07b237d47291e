package trend

import (
	"math"

	"OpsPulse/pkg/logger"
)

// VolatilityScore measures the relative dispersion of a series as
// round((stddev/|mean|)*100), capped by VolatilityCap. Standard deviation
// uses population variance. Fewer than two valid points, or a mean of
// exactly zero, score 0.
func (e *Engine) VolatilityScore(series []float64) float64 {
	vals := Sanitize(series)
	if len(vals) < 2 {
		e.logger.Warn("volatility not computable", logger.Int("points", len(vals)))
		return 0
	}

	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))

	score := math.Round(math.Sqrt(variance) / math.Abs(mean) * 100)
	if score > e.cfg.VolatilityCap {
		score = e.cfg.VolatilityCap
	}
	return score
}
