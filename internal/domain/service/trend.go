package service

import (
	"OpsPulse/internal/domain/models"
)

// TrendAnalyzer derives smoothed series and discrete signals from raw
// metric series. Implementations are total: malformed input yields empty
// or neutral results, never an error or panic.
type TrendAnalyzer interface {
	MovingAverage(series []float64, period int) []float64
	ExponentialMovingAverage(series []float64, period int) []float64
	SmoothedMovingAverage(series []float64, period, times int) []float64
	WeightedMovingAverage(series []float64, period int) []float64
	DynamicMovingAverage(series, alphas []float64, noHead bool) []float64
	TrendDirection(series []float64, lookback int) models.TrendDirection
	VolatilityScore(series []float64) float64
	Crossover(short, long []float64) models.Crossover
	AdaptiveThreshold(series []float64, period int, multiplier float64) models.AdaptiveThreshold
	TrendAnalysis(series []float64, shortPeriod, longPeriod int) models.TrendReport
}
