package trend

import (
	"math"

	"OpsPulse/internal/domain/models"
	"OpsPulse/pkg/logger"
)

// Crossover compares the last two points of a short- and a long-window
// average: short rising through long reads bullish, falling through reads
// bearish. Confidence is min(ConfidenceCap, ConfidenceBase + gap*100)
// where gap is the relative distance between the current values. Either
// series shorter than two points yields neutral with confidence 0.
func (e *Engine) Crossover(short, long []float64) models.Crossover {
	s := Sanitize(short)
	l := Sanitize(long)
	if len(s) < 2 || len(l) < 2 {
		e.logger.Warn("crossover needs two points per series",
			logger.Int("short", len(s)),
			logger.Int("long", len(l)))
		return models.Crossover{Signal: models.CrossNeutral, Confidence: 0}
	}

	curS, prevS := s[len(s)-1], s[len(s)-2]
	curL, prevL := l[len(l)-1], l[len(l)-2]

	signal := models.CrossNeutral
	switch {
	case prevS <= prevL && curS > curL:
		signal = models.CrossBullish
	case prevS >= prevL && curS < curL:
		signal = models.CrossBearish
	}

	gap := 0.0
	if curL != 0 {
		gap = math.Abs(curS-curL) / curL
	} else {
		e.logger.Warn("crossover gap undefined at zero long value")
	}

	conf := e.cfg.ConfidenceBase + gap*100
	if conf > e.cfg.ConfidenceCap {
		conf = e.cfg.ConfidenceCap
	}
	if conf < 0 {
		conf = 0
	}

	return models.Crossover{Signal: signal, Confidence: conf}
}
