package models

import "time"

// TrendDirection is the discrete trend label derived from the tail of a
// smoothed series.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// CrossoverSignal labels a short/long moving-average crossover.
type CrossoverSignal string

const (
	CrossBullish CrossoverSignal = "bullish"
	CrossBearish CrossoverSignal = "bearish"
	CrossNeutral CrossoverSignal = "neutral"
)

// Crossover couples a crossover signal with its heuristic confidence.
type Crossover struct {
	Signal     CrossoverSignal `json:"signal"`
	Confidence float64         `json:"confidence"`
}

// TrendReport is the unified per-series analysis consumed by the
// dashboard: smoothed series plus the derived discrete signals.
type TrendReport struct {
	ShortMA         []float64       `json:"short_ma"`
	LongMA          []float64       `json:"long_ma"`
	EMAShort        []float64       `json:"ema_short"`
	EMALong         []float64       `json:"ema_long"`
	TrendDirection  TrendDirection  `json:"trend_direction"`
	VolatilityScore float64         `json:"volatility_score"`
	CrossoverSignal CrossoverSignal `json:"crossover_signal"`
	Confidence      float64         `json:"confidence"`
}

// AdaptiveThreshold is an EMA-derived baseline with multiplier-scaled
// anomaly bounds. Confidence drops as the underlying series gets noisier.
type AdaptiveThreshold struct {
	Baseline       float64 `json:"baseline"`
	UpperThreshold float64 `json:"upper_threshold"`
	LowerThreshold float64 `json:"lower_threshold"`
	Confidence     float64 `json:"confidence"`
}

// IsZero reports whether the threshold is the could-not-compute default.
func (t AdaptiveThreshold) IsZero() bool {
	return t.Baseline == 0 && t.UpperThreshold == 0 && t.LowerThreshold == 0 && t.Confidence == 0
}

// MetricSnapshot is one dashboard card: the latest value of a tracked
// metric together with its derived signals.
type MetricSnapshot struct {
	MetricID        string            `json:"metric"`
	Window          string            `json:"window"`
	LastValue       float64           `json:"last_value"`
	TrendDirection  TrendDirection    `json:"trend_direction"`
	VolatilityScore float64           `json:"volatility_score"`
	CrossoverSignal CrossoverSignal   `json:"crossover_signal"`
	Confidence      float64           `json:"confidence"`
	Threshold       AdaptiveThreshold `json:"threshold"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Error           string            `json:"error,omitempty"`
}

// ThresholdAlert is published when an observation lands outside the
// adaptive bounds of its metric.
type ThresholdAlert struct {
	MetricID   string    `json:"metric"`
	Value      float64   `json:"value"`
	Baseline   float64   `json:"baseline"`
	Upper      float64   `json:"upper"`
	Lower      float64   `json:"lower"`
	Confidence float64   `json:"confidence"`
	Direction  string    `json:"direction"` // "above" or "below"
	At         time.Time `json:"at"`
}
