package usecase

import (
	"context"
	"fmt"

	domrepo "OpsPulse/internal/domain/repository"
	domsvc "OpsPulse/internal/domain/service"
)

// AveragesUseCase serves the raw smoothing calculators over stored
// history.
type AveragesUseCase struct {
	store    domrepo.HistoryStore
	analyzer domsvc.TrendAnalyzer
}

func NewAveragesUseCase(store domrepo.HistoryStore, analyzer domsvc.TrendAnalyzer) *AveragesUseCase {
	return &AveragesUseCase{store: store, analyzer: analyzer}
}

type AveragesParams struct {
	MetricID string
	Window   domrepo.Window
	Limit    int
	Kind     string
	Period   int
	Times    int
	Alphas   []float64
	NoHead   bool
}

type AveragesResult struct {
	MetricID string    `json:"metric"`
	Window   string    `json:"window"`
	Kind     string    `json:"kind"`
	Period   int       `json:"period"`
	Count    int       `json:"count"`
	Values   []float64 `json:"values"`
}

func (uc *AveragesUseCase) GetAverages(ctx context.Context, p AveragesParams) (*AveragesResult, error) {
	if p.MetricID == "" {
		return nil, fmt.Errorf("metric required")
	}
	if p.Limit <= 0 {
		p.Limit = 168
	}
	if p.Kind == "" {
		p.Kind = "sma"
	}

	hist, err := uc.store.GetLatestN(ctx, p.MetricID, p.Limit, p.Window)
	if err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}
	series := hist.Values()

	var vals []float64
	switch p.Kind {
	case "sma":
		vals = uc.analyzer.MovingAverage(series, p.Period)
	case "ema":
		vals = uc.analyzer.ExponentialMovingAverage(series, p.Period)
	case "smma":
		vals = uc.analyzer.SmoothedMovingAverage(series, p.Period, p.Times)
	case "wma":
		vals = uc.analyzer.WeightedMovingAverage(series, p.Period)
	case "dma":
		vals = uc.analyzer.DynamicMovingAverage(series, p.Alphas, p.NoHead)
	default:
		return nil, fmt.Errorf("unknown kind: %s", p.Kind)
	}

	return &AveragesResult{
		MetricID: p.MetricID,
		Window:   string(p.Window),
		Kind:     p.Kind,
		Period:   p.Period,
		Count:    len(vals),
		Values:   vals,
	}, nil
}
