package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Message is one producer payload with an optional partitioning key.
type Message struct {
	Key   []byte
	Value any
}

// Producer wraps a kafka-go writer with value encoding and publish
// metrics.
type Producer struct {
	writer *kafka.Writer
	comp   string
}

// NewProducer builds a writer-backed producer. The writer connects
// lazily on the first publish.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		Compression:  "gzip",
		RequiredAcks: -1, // wait for all ISRs
		MaxAttempts:  3,
		BatchSize:    100,
		BatchBytes:   1 << 20,
		BatchTimeout: time.Second,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka producer: at least one broker is required")
	}

	bal := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}

	initPublishMetrics()
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     bal,
			RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:  parseCompression(cfg.Compression),
			MaxAttempts:  cfg.MaxAttempts,
			WriteTimeout: cfg.WriteTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   int64(cfg.BatchBytes),
			BatchTimeout: cfg.BatchTimeout,
			Async:        cfg.Async,
		},
		comp: cfg.Compression,
	}, nil
}

// encodeValue turns a payload into bytes. Byte slices and strings pass
// through untouched, everything else is JSON encoded.
func encodeValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return b, nil
	}
}

// Publish sends one message to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value any) error {
	start := time.Now()
	v, err := encodeValue(value)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: v,
		Time:  time.Now(),
	})
	recordPublish(topic, p.comp, int64(len(v)), 1, time.Since(start), err)
	return err
}

// PublishBatch sends messages to topic through one writer call.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	msgs := make([]kafka.Message, 0, len(messages))
	var total int64
	for _, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: topic,
			Key:   m.Key,
			Value: v,
			Time:  time.Now(),
		})
		total += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	recordPublish(topic, p.comp, total, len(messages), time.Since(start), err)
	return err
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

var compressionCodecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// parseCompression maps a config string to a codec, falling back to
// gzip for anything unrecognized.
func parseCompression(s string) kafka.Compression {
	if c, ok := compressionCodecs[s]; ok {
		return c
	}
	return kafka.Gzip
}

var (
	pubMessages    *prometheus.CounterVec
	pubErrors      *prometheus.CounterVec
	pubBytes       *prometheus.CounterVec
	pubLatency     *prometheus.HistogramVec
	pubMetricsOnce sync.Once
)

func initPublishMetrics() {
	pubMetricsOnce.Do(func() {
		pubMessages = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opspulse_kafka_producer_messages_total",
				Help: "Messages handed to the Kafka writer",
			},
			[]string{"topic", "compression", "result"},
		)
		pubErrors = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opspulse_kafka_producer_errors_total",
				Help: "Failed writer calls",
			},
			[]string{"topic"},
		)
		pubBytes = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opspulse_kafka_producer_bytes_total",
				Help: "Payload bytes handed to the Kafka writer",
			},
			[]string{"topic", "compression"},
		)
		pubLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opspulse_kafka_producer_publish_seconds",
				Help:    "WriteMessages round trip time",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		)
	})
}

func recordPublish(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	if pubMessages == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		pubErrors.WithLabelValues(topic).Inc()
	}
	pubMessages.WithLabelValues(topic, comp, result).Add(float64(count))
	pubBytes.WithLabelValues(topic, comp).Add(float64(bytes))
	pubLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
