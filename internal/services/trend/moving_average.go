package trend

import (
	"math"

	"OpsPulse/pkg/logger"
)

// MovingAverage computes the simple moving average over a rolling window.
// The result has length n-period+1 for a sanitized input of length n, or
// length 0 when the period guard fails.
func (e *Engine) MovingAverage(series []float64, period int) []float64 {
	vals := Sanitize(series)
	if !e.validWindow("sma", len(vals), period) {
		return []float64{}
	}

	out := make([]float64, 0, len(vals)-period+1)
	sum := 0.0
	for i, v := range vals {
		sum += v
		if i >= period {
			sum -= vals[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// ExponentialMovingAverage computes an EMA with smoothing factor
// k = 2/(period+1), seeded with the first sanitized value. The result has
// the same length as the sanitized input.
func (e *Engine) ExponentialMovingAverage(series []float64, period int) []float64 {
	vals := Sanitize(series)
	if !e.validWindow("ema", len(vals), period) {
		return []float64{}
	}

	k := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(vals))
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = vals[i]*k + out[i-1]*(1-k)
	}
	return out
}

// SmoothedMovingAverage applies the simple moving average repeatedly for
// progressive smoothing. Each pass shortens the series by period-1 points;
// a pass that can no longer satisfy the window yields an empty result.
func (e *Engine) SmoothedMovingAverage(series []float64, period, times int) []float64 {
	if times < 1 {
		e.logger.Warn("smoothing passes must be at least 1",
			logger.Int("times", times))
		return []float64{}
	}

	out := series
	for pass := 0; pass < times; pass++ {
		out = e.MovingAverage(out, period)
		if len(out) == 0 {
			return []float64{}
		}
	}
	return out
}

// WeightedMovingAverage computes a linearly weighted rolling average with
// weights 1..period, the most recent point weighted highest. The result
// has length n-period+1.
func (e *Engine) WeightedMovingAverage(series []float64, period int) []float64 {
	vals := Sanitize(series)
	if !e.validWindow("wma", len(vals), period) {
		return []float64{}
	}

	denom := float64(period) * float64(period+1) / 2.0
	out := make([]float64, 0, len(vals)-period+1)
	for i := period - 1; i < len(vals); i++ {
		var weighted float64
		for j := 0; j < period; j++ {
			weighted += vals[i-period+1+j] * float64(j+1)
		}
		out = append(out, weighted/denom)
	}
	return out
}

// DynamicMovingAverage computes y[i] = a_i*x[i] + (1-a_i)*y[i-1] with
// caller-supplied weights. alphas holds either a single value, broadcast
// over the series, or exactly one value per sanitized point; every alpha
// must lie in [0,1]. noHead drops the unweighted leading value from the
// result. Invalid weights yield an empty result.
func (e *Engine) DynamicMovingAverage(series, alphas []float64, noHead bool) []float64 {
	vals := Sanitize(series)
	if len(vals) == 0 {
		e.logger.Warn("dma: no valid points")
		return []float64{}
	}
	if len(alphas) != 1 && len(alphas) != len(vals) {
		e.logger.Warn("dma: alpha count must be 1 or match the series",
			logger.Int("alphas", len(alphas)),
			logger.Int("points", len(vals)))
		return []float64{}
	}
	for _, a := range alphas {
		if math.IsNaN(a) || a < 0 || a > 1 {
			e.logger.Warn("dma: alpha out of [0,1]", logger.Float64("alpha", a))
			return []float64{}
		}
	}

	out := make([]float64, len(vals))
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		a := alphas[0]
		if len(alphas) > 1 {
			a = alphas[i]
		}
		out[i] = vals[i]*a + out[i-1]*(1-a)
	}

	if noHead {
		return out[1:]
	}
	return out
}
