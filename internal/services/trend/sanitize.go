package trend

import "math"

// Sanitize returns the subsequence of finite values of series, preserving
// order. The input is never mutated; the result is always a fresh slice.
// Positions are not preserved: callers that need to map results back to
// original indices must track alignment themselves.
func Sanitize(series []float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}
