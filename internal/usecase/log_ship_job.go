package usecase

import (
	"context"
	"fmt"

	"OpsPulse/pkg/logger"
	"OpsPulse/pkg/queue"
)

// LogsMessageType identifies aggregated log batches on the work queue.
const LogsMessageType = "logs.aggregated"

// TopicPublisher is the slice of the Kafka producer the log shipper
// needs.
type TopicPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
}

// LogShipJob moves aggregated log batches from the work queue to the
// Kafka logs topic, where downstream indexing picks them up. The queue
// sits in between so a Kafka outage cannot stall the logging path.
type LogShipJob struct {
	producer TopicPublisher
	topic    string
	l        *logger.Logger
}

func NewLogShipJob(producer TopicPublisher, topic string, l *logger.Logger) *LogShipJob {
	if l == nil {
		l = logger.NewNop()
	}
	return &LogShipJob{producer: producer, topic: topic, l: l}
}

func (j *LogShipJob) Name() string { return "log_ship" }

func (j *LogShipJob) Type() string { return LogsMessageType }

func (j *LogShipJob) Handle(ctx context.Context, payload any) error {
	batch, err := queue.ParsePayload[[]logger.AggregatedLogEntry](payload)
	if err != nil {
		return fmt.Errorf("log batch payload: %w", err)
	}
	if len(*batch) == 0 {
		return nil
	}

	if err := j.producer.Publish(ctx, j.topic, nil, *batch); err != nil {
		return fmt.Errorf("ship log batch: %w", err)
	}

	j.l.Debug("log batch shipped",
		logger.String("topic", j.topic),
		logger.Int("entries", len(*batch)))
	return nil
}

var _ queue.Job = (*LogShipJob)(nil)
