package repository

import (
	"context"
	"time"

	"OpsPulse/internal/domain/models"
)

// ObservationStream is a live source of metric observations (the feed).
type ObservationStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Observation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher forwards observations into the message bus.
type Publisher interface {
	Publish(ctx context.Context, o *models.Observation) error
	PublishBatch(ctx context.Context, obs []*models.Observation) error
	Close() error
}

// Storage persists observations and answers point queries.
type Storage interface {
	Init(ctx context.Context) error // creates tables if missing
	Store(ctx context.Context, o *models.Observation) error
	StoreBatch(ctx context.Context, obs []*models.Observation) error
	Query(ctx context.Context, metricID string, from, to time.Time, limit int) ([]*models.Observation, error)
	Health(ctx context.Context) error
	Close() error
}

// ReportCache holds computed trend reports keyed by metric, window and
// request parameters.
type ReportCache interface {
	GetReport(ctx context.Context, key string) (*models.TrendReport, bool)
	SetReport(ctx context.Context, key string, r *models.TrendReport) error
	Invalidate(ctx context.Context, metricID string) error
}

// AlertSink receives threshold-breach alerts.
type AlertSink interface {
	Send(ctx context.Context, a *models.ThresholdAlert) error
	Close() error
}

// Metrics records operational counters for the service itself.
type Metrics interface {
	RecordObservationSent(sink, metric string)
	RecordError(kind string)
	RecordLastValue(metric string, value float64)
	RecordLatency(op string, seconds float64)
}
