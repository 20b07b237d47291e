package usecase

import (
	"context"
	"fmt"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
	"OpsPulse/internal/services/stats"
)

// HistoryUseCase provides business logic for retrieving stored metric
// points.
type HistoryUseCase struct {
	store domrepo.HistoryStore
}

func NewHistoryUseCase(store domrepo.HistoryStore) *HistoryUseCase {
	return &HistoryUseCase{store: store}
}

type GetHistoryParams struct {
	MetricID string
	From     time.Time
	To       time.Time
	Window   domrepo.Window
	Limit    int
}

type GetHistoryResult struct {
	MetricID string               `json:"metric"`
	Window   string               `json:"window"`
	From     time.Time            `json:"from"`
	To       time.Time            `json:"to"`
	Count    int                  `json:"count"`
	Stats    stats.SeriesSummary  `json:"stats"`
	Points   []models.MetricPoint `json:"points"`
}

func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	if p.MetricID == "" {
		return nil, fmt.Errorf("metric required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}
	from, to := stats.AlignRange(p.From, p.To, p.Window)

	hist, err := uc.store.GetRange(ctx, p.MetricID, from, to, p.Window)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	points := hist.Points
	if len(points) > p.Limit {
		points = points[:p.Limit]
	}

	return &GetHistoryResult{
		MetricID: p.MetricID,
		Window:   string(p.Window),
		From:     from,
		To:       to,
		Count:    len(points),
		Stats:    stats.Summarize(points),
		Points:   points,
	}, nil
}

// GetLatest returns the newest limit points of one metric, oldest first.
func (uc *HistoryUseCase) GetLatest(ctx context.Context, metricID string, limit int, w domrepo.Window) (*models.MetricHistory, error) {
	if metricID == "" {
		return nil, fmt.Errorf("metric required")
	}
	if limit <= 0 {
		limit = 168
	}
	return uc.store.GetLatestN(ctx, metricID, limit, w)
}
