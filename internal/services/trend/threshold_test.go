package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OpsPulse/internal/domain/models"
)

func constantSeries(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestAdaptiveThreshold(t *testing.T) {
	e := newTestEngine()

	t.Run("stable series", func(t *testing.T) {
		got := e.AdaptiveThreshold(constantSeries(10, 14), 14, 1.25)
		assert.Equal(t, models.AdaptiveThreshold{
			Baseline:       10,
			UpperThreshold: 12.5,
			LowerThreshold: 8,
			Confidence:     100,
		}, got)
	})

	t.Run("zero params use defaults", func(t *testing.T) {
		got := e.AdaptiveThreshold(constantSeries(10, 14), 0, 0)
		assert.Equal(t, 10.0, got.Baseline)
		assert.Equal(t, 12.5, got.UpperThreshold)
		assert.Equal(t, 8.0, got.LowerThreshold)
	})

	t.Run("negative params use defaults", func(t *testing.T) {
		got := e.AdaptiveThreshold(constantSeries(10, 14), -3, -1)
		assert.Equal(t, 12.5, got.UpperThreshold)
	})

	t.Run("bounds rounded to two decimals", func(t *testing.T) {
		got := e.AdaptiveThreshold(constantSeries(10, 14), 14, 1.23)
		assert.Equal(t, 12.3, got.UpperThreshold)
		// 10/1.23 = 8.1300...
		assert.Equal(t, 8.13, got.LowerThreshold)
	})

	t.Run("noisy series floors confidence", func(t *testing.T) {
		series := make([]float64, 0, 14)
		for i := 0; i < 7; i++ {
			series = append(series, 10, 200)
		}
		got := e.AdaptiveThreshold(series, 14, 1.25)
		require.False(t, got.IsZero())
		assert.Equal(t, 50.0, got.Confidence)
	})

	t.Run("empty series", func(t *testing.T) {
		got := e.AdaptiveThreshold(nil, 14, 1.25)
		assert.True(t, got.IsZero())
	})

	t.Run("period exceeds series", func(t *testing.T) {
		got := e.AdaptiveThreshold([]float64{1, 2, 3}, 14, 1.25)
		assert.True(t, got.IsZero())
	})

	t.Run("confidence uses the tail only", func(t *testing.T) {
		// wild head, calm last 5 points
		series := []float64{1, 900, 2, 800, 3, 20, 20, 20, 20, 20}
		got := e.AdaptiveThreshold(series, 5, 1.25)
		require.False(t, got.IsZero())
		assert.Equal(t, 100.0, got.Confidence)
	})
}

func TestAdaptiveThresholdOrdering(t *testing.T) {
	e := newTestEngine()

	series := []float64{40, 42, 41, 44, 43, 45, 47, 46, 48, 50, 49, 51, 52, 54}
	got := e.AdaptiveThreshold(series, 14, 1.25)
	require.False(t, got.IsZero())
	assert.Greater(t, got.UpperThreshold, got.Baseline)
	assert.Less(t, got.LowerThreshold, got.Baseline)
	assert.GreaterOrEqual(t, got.Confidence, 50.0)
	assert.LessOrEqual(t, got.Confidence, 100.0)
}
