package trend

import (
	"sync/atomic"

	"OpsPulse/internal/domain/models"
)

// Provider hands out the current engine and lets a config reload swap it
// atomically. Callers that grabbed an engine keep computing on the one
// they started with.
type Provider struct {
	ptr atomic.Pointer[Engine]
}

// NewProvider wraps an engine for atomic replacement.
func NewProvider(e *Engine) *Provider {
	p := &Provider{}
	p.ptr.Store(e)
	return p
}

// Engine returns the current engine.
func (p *Provider) Engine() *Engine {
	return p.ptr.Load()
}

// Swap replaces the current engine. Nil engines are ignored.
func (p *Provider) Swap(e *Engine) {
	if e != nil {
		p.ptr.Store(e)
	}
}

// The delegating methods below make Provider usable wherever an analyzer
// is expected while still picking up hot-swapped engines per call.

func (p *Provider) MovingAverage(series []float64, period int) []float64 {
	return p.Engine().MovingAverage(series, period)
}

func (p *Provider) ExponentialMovingAverage(series []float64, period int) []float64 {
	return p.Engine().ExponentialMovingAverage(series, period)
}

func (p *Provider) SmoothedMovingAverage(series []float64, period, times int) []float64 {
	return p.Engine().SmoothedMovingAverage(series, period, times)
}

func (p *Provider) WeightedMovingAverage(series []float64, period int) []float64 {
	return p.Engine().WeightedMovingAverage(series, period)
}

func (p *Provider) DynamicMovingAverage(series, alphas []float64, noHead bool) []float64 {
	return p.Engine().DynamicMovingAverage(series, alphas, noHead)
}

func (p *Provider) TrendDirection(series []float64, lookback int) models.TrendDirection {
	return p.Engine().TrendDirection(series, lookback)
}

func (p *Provider) VolatilityScore(series []float64) float64 {
	return p.Engine().VolatilityScore(series)
}

func (p *Provider) Crossover(short, long []float64) models.Crossover {
	return p.Engine().Crossover(short, long)
}

func (p *Provider) AdaptiveThreshold(series []float64, period int, multiplier float64) models.AdaptiveThreshold {
	return p.Engine().AdaptiveThreshold(series, period, multiplier)
}

func (p *Provider) TrendAnalysis(series []float64, shortPeriod, longPeriod int) models.TrendReport {
	return p.Engine().TrendAnalysis(series, shortPeriod, longPeriod)
}
