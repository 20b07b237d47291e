package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
	pkgkafka "OpsPulse/pkg/kafka"
)

// KafkaObservationsHandler consumes Kafka messages and writes to storage.
type KafkaObservationsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaObservationsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaObservationsHandler {
	return &KafkaObservationsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaObservationsHandler) Topic() string { return h.topic }

// incoming message schema: {metric, value, ts, source}
func (h *KafkaObservationsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Metric string  `json:"metric"`
		Value  float64 `json:"value"`
		TS     int64   `json:"ts"`
		Source string  `json:"source"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		// poison message; retrying will never fix it
		h.metrics.RecordError("consumer_unmarshal")
		return nil
	}
	if m.TS > 1e11 { // ms
		m.TS = m.TS / 1000
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.TS, 0)).Seconds())

	start := time.Now()
	err := h.storage.Store(ctx, &models.Observation{
		MetricID:  m.Metric,
		Timestamp: m.TS,
		Value:     m.Value,
		Source:    m.Source,
	})
	h.metrics.RecordLatency("ch_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		if tid := pkgkafka.TraceIDFrom(ctx); tid != "" {
			return fmt.Errorf("store observation (trace %s): %w", tid, err)
		}
		return err
	}
	h.metrics.RecordObservationSent("clickhouse", m.Metric)

	// Approx rollup lag to the minute bucket boundary (MV completion not checked)
	bucket := time.Unix(m.TS, 0).Truncate(time.Minute)
	h.metrics.RecordLatency("rollup_lag_seconds", time.Since(bucket).Seconds())
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaObservationsHandler)(nil)
