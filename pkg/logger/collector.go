package logger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Publisher ships flushed batches somewhere durable. The job queue
// satisfies this.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload any) error
}

// CollectionConfig controls log aggregation.
type CollectionConfig struct {
	TimeInterval   time.Duration // flush cadence
	CountThreshold int           // distinct lines that force an early flush
	Topic          string        // message type the batches are published under
	Publisher      Publisher
}

// AggregatedLogEntry is one deduplicated log line with its repeat count.
type AggregatedLogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields"`
	Caller    string         `json:"caller"`
	Count     int            `json:"count"`
	FirstSeen time.Time      `json:"first_seen"`
	LastSeen  time.Time      `json:"last_seen"`
}

// LogCollector deduplicates log lines and flushes them in batches, on a
// timer or when enough distinct lines pile up. A line's identity is its
// level, message, fields, and call site; repeats only bump the count.
type LogCollector struct {
	cfg    *CollectionConfig
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	byKey map[string]*AggregatedLogEntry
}

func NewLogCollector(cfg *CollectionConfig) *LogCollector {
	cc := *cfg
	if cc.TimeInterval <= 0 {
		cc.TimeInterval = 30 * time.Second
	}
	if cc.CountThreshold <= 0 {
		cc.CountThreshold = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &LogCollector{
		cfg:    &cc,
		cancel: cancel,
		byKey:  make(map[string]*AggregatedLogEntry),
	}
	c.wg.Add(1)
	go c.flushLoop(ctx)
	return c
}

// Record folds one log line into the pending batch.
func (c *LogCollector) Record(level, message string, fields map[string]any, caller string) {
	now := time.Now()
	key := dedupeKey(level, message, fields, caller)

	c.mu.Lock()
	if e, ok := c.byKey[key]; ok {
		e.Count++
		e.LastSeen = now
	} else {
		c.byKey[key] = &AggregatedLogEntry{
			Level:     level,
			Message:   message,
			Fields:    fields,
			Caller:    caller,
			Count:     1,
			FirstSeen: now,
			LastSeen:  now,
		}
	}
	var batch []AggregatedLogEntry
	if len(c.byKey) >= c.cfg.CountThreshold {
		batch = c.drainLocked()
	}
	c.mu.Unlock()

	c.ship(batch)
}

// Flush publishes whatever is pending right away.
func (c *LogCollector) Flush() {
	c.mu.Lock()
	batch := c.drainLocked()
	c.mu.Unlock()
	c.ship(batch)
}

// Close flushes once more and waits for in-flight publishes.
func (c *LogCollector) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *LogCollector) flushLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Flush()
		case <-ctx.Done():
			c.Flush()
			return
		}
	}
}

func (c *LogCollector) drainLocked() []AggregatedLogEntry {
	if len(c.byKey) == 0 {
		return nil
	}
	batch := make([]AggregatedLogEntry, 0, len(c.byKey))
	for _, e := range c.byKey {
		batch = append(batch, *e)
	}
	c.byKey = make(map[string]*AggregatedLogEntry)
	return batch
}

// ship publishes a batch without blocking the logging path.
func (c *LogCollector) ship(batch []AggregatedLogEntry) {
	if len(batch) == 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := c.cfg.Publisher.PublishMessage(ctx, c.cfg.Topic, batch); err != nil {
			fmt.Fprintf(os.Stderr, "log collector: ship batch: %v\n", err)
		}
	}()
}

func dedupeKey(level, message string, fields map[string]any, caller string) string {
	// map keys marshal in sorted order, so equal fields hash equal
	fb, _ := json.Marshal(fields)
	sum := sha256.Sum256([]byte(level + "|" + message + "|" + caller + "|" + string(fb)))
	return hex.EncodeToString(sum[:])
}
