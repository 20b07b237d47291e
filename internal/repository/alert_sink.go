package repository

import (
	"context"

	"OpsPulse/internal/domain/models"
	"OpsPulse/internal/domain/repository"
	pkgkafka "OpsPulse/pkg/kafka"
)

// KafkaAlertSink publishes threshold alerts to the alerts topic.
type KafkaAlertSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaAlertSink creates a Kafka alert sink.
func NewKafkaAlertSink(producer *pkgkafka.Producer, topic string) repository.AlertSink {
	return &KafkaAlertSink{producer: producer, topic: topic}
}

func (s *KafkaAlertSink) Send(ctx context.Context, a *models.ThresholdAlert) error {
	return s.producer.Publish(ctx, s.topic, []byte(a.MetricID), a)
}

func (s *KafkaAlertSink) Close() error {
	// producer lifecycle owned by the publisher side
	return nil
}

// FanoutSink delivers one alert to every configured sink. A failure in
// one sink does not stop the others; the first error is returned.
type FanoutSink struct {
	sinks []repository.AlertSink
}

// NewFanoutSink composes sinks, dropping nil entries. Returns nil when
// nothing remains so the dispatcher stays disabled.
func NewFanoutSink(sinks ...repository.AlertSink) repository.AlertSink {
	out := make([]repository.AlertSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	if len(out) == 1 {
		return out[0]
	}
	return &FanoutSink{sinks: out}
}

func (f *FanoutSink) Send(ctx context.Context, a *models.ThresholdAlert) error {
	var first error
	for _, s := range f.sinks {
		if err := s.Send(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *FanoutSink) Close() error {
	var first error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
