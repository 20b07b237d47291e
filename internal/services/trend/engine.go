package trend

import (
	"github.com/creasty/defaults"

	"OpsPulse/internal/domain/models"
	"OpsPulse/pkg/logger"
)

// Config carries the heuristic constants of the engine. All values have
// sane defaults; a zero Config is usable after New fills it in.
type Config struct {
	// NoiseRatio is the relative change below which the trend classifier
	// reads neutral (0.01 = 1% of the previous value).
	NoiseRatio float64 `yaml:"noise_ratio" default:"0.01"`
	// VolatilityCap bounds the volatility score from above.
	VolatilityCap float64 `yaml:"volatility_cap" default:"100"`
	// ConfidenceBase and ConfidenceCap shape the crossover confidence:
	// min(cap, base + gap*100).
	ConfidenceBase float64 `yaml:"confidence_base" default:"60"`
	ConfidenceCap  float64 `yaml:"confidence_cap" default:"95"`
	// ConfidenceFloor bounds the adaptive-threshold confidence from below.
	ConfidenceFloor float64 `yaml:"confidence_floor" default:"50"`
	// ThresholdPeriod and ThresholdMultiplier are the adaptive-threshold
	// defaults when a caller passes zero values.
	ThresholdPeriod     int     `yaml:"threshold_period" default:"14"`
	ThresholdMultiplier float64 `yaml:"threshold_multiplier" default:"1.25"`
	// ShortPeriod and LongPeriod are the trend-analysis window defaults.
	ShortPeriod int `yaml:"short_period" default:"7"`
	LongPeriod  int `yaml:"long_period" default:"21"`
	// TrendLookback is the minimum tail length the classifier requires.
	TrendLookback int `yaml:"trend_lookback" default:"2"`
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() Config {
	var c Config
	_ = defaults.Set(&c)
	return c
}

// Engine derives trend, volatility, crossover and threshold signals from
// raw numeric series. It holds no mutable state: every method recomputes
// from its inputs without mutating them, so concurrent use needs no
// locking. Malformed input never produces an error or panic, only the
// documented empty/neutral/zero results plus a warning through the
// injected logger.
type Engine struct {
	cfg    Config
	logger *logger.Logger
}

// Option configures Engine.
type Option func(*Engine)

// WithLogger sets the diagnostics logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine. Zero fields of cfg fall back to defaults and
// out-of-range values are replaced by defaults with a warning, so New
// always returns a working engine.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	_ = defaults.Set(&e.cfg)
	e.normalize()
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) normalize() {
	def := DefaultConfig()
	if e.cfg.NoiseRatio < 0 || e.cfg.NoiseRatio >= 1 {
		e.logger.Warn("invalid noise_ratio, using default",
			logger.Float64("value", e.cfg.NoiseRatio),
			logger.Float64("default", def.NoiseRatio))
		e.cfg.NoiseRatio = def.NoiseRatio
	}
	if e.cfg.VolatilityCap <= 0 || e.cfg.VolatilityCap > 100 {
		e.logger.Warn("invalid volatility_cap, using default",
			logger.Float64("value", e.cfg.VolatilityCap))
		e.cfg.VolatilityCap = def.VolatilityCap
	}
	if e.cfg.ConfidenceCap <= 0 || e.cfg.ConfidenceCap > 100 {
		e.logger.Warn("invalid confidence_cap, using default",
			logger.Float64("value", e.cfg.ConfidenceCap))
		e.cfg.ConfidenceCap = def.ConfidenceCap
	}
	if e.cfg.ConfidenceBase < 0 || e.cfg.ConfidenceBase > e.cfg.ConfidenceCap {
		e.logger.Warn("invalid confidence_base, using default",
			logger.Float64("value", e.cfg.ConfidenceBase))
		e.cfg.ConfidenceBase = def.ConfidenceBase
	}
	if e.cfg.ConfidenceFloor < 0 || e.cfg.ConfidenceFloor > 100 {
		e.logger.Warn("invalid confidence_floor, using default",
			logger.Float64("value", e.cfg.ConfidenceFloor))
		e.cfg.ConfidenceFloor = def.ConfidenceFloor
	}
	if e.cfg.ThresholdPeriod < 1 {
		e.cfg.ThresholdPeriod = def.ThresholdPeriod
	}
	if e.cfg.ThresholdMultiplier <= 0 {
		e.cfg.ThresholdMultiplier = def.ThresholdMultiplier
	}
	if e.cfg.ShortPeriod < 1 {
		e.cfg.ShortPeriod = def.ShortPeriod
	}
	if e.cfg.LongPeriod < 2 {
		e.cfg.LongPeriod = def.LongPeriod
	}
	if e.cfg.TrendLookback < 2 {
		e.cfg.TrendLookback = def.TrendLookback
	}
}

// TrendAnalysis composes short/long SMA, short/long EMA, trend direction
// (from the short EMA), volatility (from the raw series) and the crossover
// signal (from the SMAs) into one report. Zero periods fall back to the
// configured defaults. Degraded inputs yield the neutral report with empty
// series; this method never panics.
func (e *Engine) TrendAnalysis(series []float64, shortPeriod, longPeriod int) models.TrendReport {
	if shortPeriod <= 0 {
		shortPeriod = e.cfg.ShortPeriod
	}
	if longPeriod <= 0 {
		longPeriod = e.cfg.LongPeriod
	}

	shortMA := e.MovingAverage(series, shortPeriod)
	longMA := e.MovingAverage(series, longPeriod)
	emaShort := e.ExponentialMovingAverage(series, shortPeriod)
	emaLong := e.ExponentialMovingAverage(series, longPeriod)
	cross := e.Crossover(shortMA, longMA)

	return models.TrendReport{
		ShortMA:         shortMA,
		LongMA:          longMA,
		EMAShort:        emaShort,
		EMALong:         emaLong,
		TrendDirection:  e.TrendDirection(emaShort, e.cfg.TrendLookback),
		VolatilityScore: e.VolatilityScore(series),
		CrossoverSignal: cross.Signal,
		Confidence:      cross.Confidence,
	}
}

// validWindow checks the shared period guard of the window calculators and
// logs the reason a result will be empty.
func (e *Engine) validWindow(op string, n, period int) bool {
	if period <= 0 || period > n {
		e.logger.Warn("window not computable",
			logger.String("op", op),
			logger.Int("period", period),
			logger.Int("points", n))
		return false
	}
	return true
}
