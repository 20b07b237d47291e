package queue

import "context"

// Job consumes messages of one type from the work queue.
type Job interface {
	// Name is a human readable identifier used in logs.
	Name() string

	// Type selects which messages this job receives.
	Type() string

	// Handle processes one message payload.
	Handle(ctx context.Context, payload any) error
}
