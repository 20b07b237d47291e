package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	topic string
	calls int
	fn    func(attempt int) error
}

func (h *countingHandler) Topic() string { return h.topic }

func (h *countingHandler) Handle(_ context.Context, _ []byte) error {
	h.calls++
	if h.fn == nil {
		return nil
	}
	return h.fn(h.calls)
}

func newTestConsumer(t *testing.T, opts ...ConsumerOption) *Consumer {
	t.Helper()
	opts = append([]ConsumerOption{WithConsumerBrokers([]string{"localhost:9092"})}, opts...)
	c, err := NewConsumer(opts...)
	require.NoError(t, err)
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestRegisterHandlerKeepsFirst(t *testing.T) {
	c := newTestConsumer(t)
	first := &countingHandler{topic: "observations"}
	second := &countingHandler{topic: "observations"}

	c.RegisterHandler(first)
	c.RegisterHandler(second)

	require.Len(t, c.handlers, 1)
	assert.Same(t, first, c.handlers["observations"])
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(3, time.Millisecond, 2*time.Millisecond))
	h := &countingHandler{topic: "observations", fn: func(attempt int) error {
		if attempt == 1 {
			return errors.New("transient")
		}
		return nil
	}}

	c.process(h, &inbound{topic: "observations", value: []byte(`{}`)})

	assert.Equal(t, 2, h.calls)
}

func TestProcessGivesUpAfterRetryLimit(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(1, time.Millisecond, 2*time.Millisecond))
	h := &countingHandler{topic: "observations", fn: func(int) error {
		return errors.New("permanent")
	}}

	c.process(h, &inbound{topic: "observations", value: []byte(`{}`)})

	// first attempt plus one retry
	assert.Equal(t, 2, h.calls)
}

func TestProcessRecoversHandlerPanic(t *testing.T) {
	c := newTestConsumer(t, WithConsumerRetry(0, time.Millisecond, time.Millisecond))
	h := &countingHandler{topic: "observations", fn: func(int) error {
		panic("handler bug")
	}}

	assert.NotPanics(t, func() {
		c.process(h, &inbound{topic: "observations", value: []byte(`{}`)})
	})
}

func TestPartitionLockIsStable(t *testing.T) {
	c := newTestConsumer(t)

	a := c.partitionLock("observations", 0)
	b := c.partitionLock("observations", 0)
	other := c.partitionLock("observations", 1)

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
}

func TestEnqueueReturnsFalseWhenStopping(t *testing.T) {
	c := newTestConsumer(t, WithConsumerBufferSize(1))
	require.True(t, c.enqueue(&inbound{topic: "observations"}))

	close(c.stop)
	assert.False(t, c.enqueue(&inbound{topic: "observations"}))
}

func TestJitterBackoffBounds(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := jitterBackoff(50*time.Millisecond, 2*time.Second, attempt)
		assert.Greater(t, d, time.Duration(0), "attempt %d", attempt)
		assert.LessOrEqual(t, d, 2*time.Second, "attempt %d", attempt)
	}
}

func TestJitterBackoffDefaults(t *testing.T) {
	d := jitterBackoff(0, 0, 1)
	assert.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, 50*time.Millisecond)
}
