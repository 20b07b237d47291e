package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler consumes every message of one topic. Topic() names the
// topic the handler claims.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ConsumerConfig collects the reader, worker pool, and retry settings.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	AutoOffsetReset string
	WorkerCount     int
	BufferSize      int
	RetryMax        int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	DLQTopic        string
	MinBytes        int
	MaxBytes        int
}

// ConsumerOption adjusts ConsumerConfig before the consumer is built.
type ConsumerOption func(*ConsumerConfig)

// WithConsumerBrokers names the bootstrap brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID names the consumer group. An empty value keeps
// the default.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		if groupID != "" {
			c.GroupID = groupID
		}
	}
}

// WithConsumerAutoOffsetReset picks where a fresh group starts reading,
// "earliest" or "latest".
func WithConsumerAutoOffsetReset(reset string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.AutoOffsetReset = reset
	}
}

// WithConsumerWorkers sizes the handling pool.
func WithConsumerWorkers(count int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if count > 0 {
			c.WorkerCount = count
		}
	}
}

// WithConsumerRetry bounds per-message retries and their backoff window.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// WithConsumerDLQ sets a Kafka topic name for the dead letter queue.
func WithConsumerDLQ(topic string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.DLQTopic = topic
	}
}

// WithConsumerFetch bounds how much each broker fetch may return.
func WithConsumerFetch(minBytes, maxBytes int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if minBytes > 0 {
			c.MinBytes = minBytes
		}
		if maxBytes > 0 {
			c.MaxBytes = maxBytes
		}
	}
}

// WithConsumerBufferSize sizes the channel between readers and workers.
func WithConsumerBufferSize(n int) ConsumerOption {
	return func(c *ConsumerConfig) {
		if n > 0 {
			c.BufferSize = n
		}
	}
}

// Consumer reads registered topics and fans messages out to a worker
// pool. Ordering is preserved per partition: workers take a partition
// lock before handling, so at most one message per (topic, partition) is
// in flight at a time.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	dlq      *kafka.Writer
	hook     ConsumerHook

	tasks    chan *inbound
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	plMu      sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
}

type inbound struct {
	topic string
	value []byte
	raw   kafka.Message
}

// NewConsumer builds a consumer from the given options. Readers are not
// opened until Start.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:         "opspulse",
		AutoOffsetReset: "earliest",
		WorkerCount:     1,
		BufferSize:      64,
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        10_000,
		MaxBytes:        10_000_000,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: at least one broker is required")
	}

	c := &Consumer{
		cfg:       cfg,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		stop:      make(chan struct{}),
		tasks:     make(chan *inbound, cfg.BufferSize),
		partLocks: make(map[string]map[int]*sync.Mutex),
		hook:      NoopHook{},
	}

	initConsumerMetrics()

	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}

	return c, nil
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler claims the handler's topic. The first registration
// for a topic wins.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, taken := c.handlers[topic]; taken {
		log.Printf("kafka consumer: topic %s already has a handler, ignoring", topic)
		return
	}
	c.handlers[topic] = handler
}

// Start opens one reader per registered topic and launches the workers.
func (c *Consumer) Start() error {
	startOffset := kafka.FirstOffset
	if c.cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}

	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: startOffset,
		})
		log.Printf("kafka consumer: subscribed topic=%s group=%s", topic, c.cfg.GroupID)
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}

	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.readLoop(topic, reader)
	}

	log.Printf("kafka consumer: started workers=%d topics=%d", c.cfg.WorkerCount, len(c.readers))
	return nil
}

// Stop drains the worker pool, then closes readers and the DLQ writer.
// Safe to call more than once.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		close(c.stop)
		close(c.tasks)
		stopErr = c.waitForWorkers(ctx)

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				log.Printf("kafka consumer: closing %s reader: %v", topic, err)
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("kafka consumer: closing dlq writer: %v", err)
			}
		}
		if stopErr == nil {
			log.Println("kafka consumer: drained and stopped")
		}
	})

	return stopErr
}

func (c *Consumer) waitForWorkers(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for consumer to stop: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (c *Consumer) readLoop(topic string, reader *kafka.Reader) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		msg, err := reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				log.Printf("kafka consumer: read %s: %v", topic, err)
			}
			continue
		}

		if !c.enqueue(&inbound{topic: topic, value: msg.Value, raw: msg}) {
			return
		}
	}
}

// enqueue hands a message to the worker pool, easing off when the buffer
// runs hot rather than dropping. Returns false when the consumer is
// stopping.
func (c *Consumer) enqueue(in *inbound) bool {
	for {
		select {
		case c.tasks <- in:
			consumerQueueDepth.WithLabelValues(in.topic).Set(float64(len(c.tasks)))
			consumerQueueFullness.WithLabelValues(in.topic).Set(float64(len(c.tasks)) / float64(cap(c.tasks)))
			return true
		case <-c.stop:
			return false
		default:
			full := float64(len(c.tasks)) / float64(cap(c.tasks))
			consumerQueueFullness.WithLabelValues(in.topic).Set(full)
			if full > 0.8 {
				time.Sleep(10 * time.Millisecond)
			} else {
				runtime.Gosched()
			}
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()

	for in := range c.tasks {
		handler, ok := c.handlers[in.topic]
		if !ok {
			continue
		}
		c.process(handler, in)
	}
}

// process runs one message through its handler with retries and commits
// the offset when the message is done, either handled or shipped to the
// DLQ.
func (c *Consumer) process(handler MessageHandler, in *inbound) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("kafka consumer: panic in %s handler: %v", in.topic, r)
		}
	}()

	start := time.Now()
	lock := c.partitionLock(in.topic, in.raw.Partition)
	lock.Lock()
	defer lock.Unlock()

	d := Delivery{Topic: in.topic, Msg: in.raw, Data: in.value}

	var err error
	attempts := 0
	for {
		attempts++
		hctx, hd, berr := c.hook.BeforeHandle(context.Background(), d)
		if berr != nil {
			err = berr
			break
		}
		err = handler.Handle(hctx, hd.Data)
		c.hook.AfterHandle(hctx, hd, err)
		if err == nil || attempts > c.cfg.RetryMax {
			break
		}
		c.hook.OnError(hctx, hd, err)
		select {
		case <-time.After(jitterBackoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.stop:
			return
		}
	}

	if err != nil {
		c.hook.OnError(context.Background(), d, err)
		log.Printf("kafka consumer: %s handler failed after %d attempts: %v", in.topic, attempts, err)
		c.toDLQ(in)
	}

	// commit on success, or once the DLQ has the message, so a poison
	// message cannot wedge the partition
	if err == nil || c.dlq != nil {
		if reader := c.readers[in.topic]; reader != nil {
			_ = c.commitOffset(reader, in.raw)
		}
	}
	consumerHandleLatency.WithLabelValues(in.topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) toDLQ(in *inbound) {
	if c.dlq == nil {
		return
	}
	err := c.dlq.WriteMessages(context.Background(), kafka.Message{
		Topic:   c.cfg.DLQTopic,
		Value:   in.value,
		Time:    time.Now(),
		Headers: []kafka.Header{{Key: "source_topic", Value: []byte(in.topic)}},
	})
	if err != nil {
		log.Printf("kafka consumer: dlq write %s: %v", c.cfg.DLQTopic, err)
	}
}

// commitOffset commits one message's offset with a few retries. A
// dropped commit replays the message to the whole group.
func (c *Consumer) commitOffset(reader *kafka.Reader, km kafka.Message) error {
	const attempts = 3

	var err error
	for i := 1; i <= attempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(jitterBackoff(50*time.Millisecond, 500*time.Millisecond, i))
	}
	log.Printf("kafka consumer: offset commit gave up after %d attempts: %v", attempts, err)
	return err
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.plMu.Lock()
	defer c.plMu.Unlock()

	byPart, ok := c.partLocks[topic]
	if !ok {
		byPart = make(map[int]*sync.Mutex)
		c.partLocks[topic] = byPart
	}
	l, ok := byPart[partition]
	if !ok {
		l = &sync.Mutex{}
		byPart[partition] = l
	}
	return l
}

// jitterBackoff grows exponentially from min, capped at max, with up to
// half the delay shaved off at random so retries spread out.
func jitterBackoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min << uint(attempt-1)
	if d > max || d <= 0 {
		d = max
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int63n(half))
	}
	return d
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerQueueFullness *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerMetricsOnce   sync.Once
)

func initConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "opspulse_kafka_consumer_queue_depth", Help: "Messages waiting in the consumer buffer"},
			[]string{"topic"},
		)
		consumerQueueFullness = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "opspulse_kafka_consumer_queue_fullness", Help: "Consumer buffer utilization, len over cap"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "opspulse_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
