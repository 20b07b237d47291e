package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "OpsPulse/pkg/kafka"
)

func TestKafkaHandlerStoresObservation(t *testing.T) {
	store := &fakeStorage{}
	m := newCountingMetrics()
	h := NewKafkaObservationsHandler("observations", store, m)

	err := h.Handle(context.Background(), []byte(`{"metric":"cpu.load","value":0.73,"ts":1748736000,"source":"agent"}`))
	require.NoError(t, err)

	require.Equal(t, 1, store.storedCount())
	o := store.stored[0]
	assert.Equal(t, "cpu.load", o.MetricID)
	assert.InDelta(t, 0.73, o.Value, 1e-9)
	assert.Equal(t, int64(1748736000), o.Timestamp)
	assert.Equal(t, "agent", o.Source)
	assert.Equal(t, 1, m.sentCount("clickhouse:cpu.load"))
}

func TestKafkaHandlerNormalizesMilliseconds(t *testing.T) {
	store := &fakeStorage{}
	h := NewKafkaObservationsHandler("observations", store, nopMetrics{})

	err := h.Handle(context.Background(), []byte(`{"metric":"cpu.load","value":1,"ts":1748736000000}`))
	require.NoError(t, err)

	require.Equal(t, 1, store.storedCount())
	assert.Equal(t, int64(1748736000), store.stored[0].Timestamp)
}

func TestKafkaHandlerSkipsMalformed(t *testing.T) {
	store := &fakeStorage{}
	m := newCountingMetrics()
	h := NewKafkaObservationsHandler("observations", store, m)

	err := h.Handle(context.Background(), []byte(`{not json`))
	require.NoError(t, err)

	assert.Equal(t, 0, store.storedCount())
	assert.Equal(t, 1, m.errCount("consumer_unmarshal"))
}

func TestKafkaHandlerStoreErrorPropagates(t *testing.T) {
	store := &fakeStorage{err: assert.AnError}
	m := newCountingMetrics()
	h := NewKafkaObservationsHandler("observations", store, m)

	err := h.Handle(context.Background(), []byte(`{"metric":"cpu.load","value":1,"ts":1748736000}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, m.errCount("consumer_store"))
}

func TestKafkaHandlerStoreErrorCarriesTraceID(t *testing.T) {
	store := &fakeStorage{err: assert.AnError}
	h := NewKafkaObservationsHandler("observations", store, nopMetrics{})

	ctx := pkgkafka.WithTraceID(context.Background(), "req-42")
	err := h.Handle(ctx, []byte(`{"metric":"cpu.load","value":1,"ts":1748736000}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "req-42")
}

func TestKafkaHandlerTopic(t *testing.T) {
	h := NewKafkaObservationsHandler("opspulse.observations", &fakeStorage{}, nopMetrics{})
	assert.Equal(t, "opspulse.observations", h.Topic())
}
