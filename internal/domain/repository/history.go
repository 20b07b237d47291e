package repository

import (
	"context"
	"time"

	"OpsPulse/internal/domain/models"
)

// Window represents the rollup granularity of stored observations.
type Window string

const (
	WindowRaw Window = "raw"
	Window1m  Window = "1m"
	Window1h  Window = "1h"
	Window1d  Window = "1d"
)

// HistoryStore provides read-only access to stored metric observations
// for analysis.
type HistoryStore interface {
	GetRange(ctx context.Context, metricID string, from, to time.Time, w Window) (*models.MetricHistory, error)
	GetLatestN(ctx context.Context, metricID string, n int, w Window) (*models.MetricHistory, error)
}
