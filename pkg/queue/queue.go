package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the producer side of the work queue.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload any) error
}

// QueueConfig tunes the consumer side of the queue.
type QueueConfig struct {
	Workers    int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the wire form of one queued job.
type Message struct {
	ID        string
	Type      string
	Payload   any
	Attempts  int
	Timestamp time.Time
}

// ParsePayload coerces a queued payload into *T. Payloads arrive either as
// the original Go value when enqueued in-process, or as decoded JSON after
// a trip through Redis, in which case maps and slices are re-marshalled
// into the target type.
func ParsePayload[T any](payload any) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(p, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	case map[string]any, []any:
		var out T
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}
