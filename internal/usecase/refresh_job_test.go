package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefreshJob(store *fakeHistoryStore, sink *fakeAlertSink) *RefreshJob {
	b := newTestBuilder(store, newFakeReportCache())
	d := NewAlertDispatcher(sink, nil, true, 60, 3)
	return NewRefreshJob(b, d, nil)
}

// fakeLocker grants or denies every lock and records the keys it saw.
type fakeLocker struct {
	deny     bool
	err      error
	locked   []string
	unlocked []string
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.locked = append(f.locked, key)
	if f.err != nil {
		return false, f.err
	}
	return !f.deny, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key string) error {
	f.unlocked = append(f.unlocked, key)
	return nil
}

func TestRefreshJobIdentity(t *testing.T) {
	j := newTestRefreshJob(newFakeHistoryStore(), &fakeAlertSink{})
	assert.Equal(t, "report_refresh", j.Name())
	assert.Equal(t, RefreshMessageType, j.Type())
}

func TestRefreshJobHandle(t *testing.T) {
	store := newFakeHistoryStore()
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = 100
	}
	store.set("cpu.load", vals...)
	j := newTestRefreshJob(store, &fakeAlertSink{})

	err := j.Handle(context.Background(), RefreshPayload{
		MetricID: "cpu.load",
		Window:   "1h",
		Limit:    30,
	})
	require.NoError(t, err)
}

func TestRefreshJobHandleMapPayload(t *testing.T) {
	store := newFakeHistoryStore()
	store.set("cpu.load", 1, 2, 3)
	j := newTestRefreshJob(store, &fakeAlertSink{})

	// the queue delivers payloads as generic maps after the JSON roundtrip
	err := j.Handle(context.Background(), map[string]any{
		"metric": "cpu.load",
		"window": "1h",
		"limit":  float64(10),
	})
	require.NoError(t, err)
}

func TestRefreshJobHandleBadPayload(t *testing.T) {
	j := newTestRefreshJob(newFakeHistoryStore(), &fakeAlertSink{})

	err := j.Handle(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh payload")
}

func TestRefreshJobHandleStoreErrorPropagates(t *testing.T) {
	store := newFakeHistoryStore()
	store.err = assert.AnError
	j := newTestRefreshJob(store, &fakeAlertSink{})

	err := j.Handle(context.Background(), RefreshPayload{MetricID: "cpu.load", Window: "1h"})
	require.Error(t, err)
}

func TestRefreshJobSkipsWhenLockedElsewhere(t *testing.T) {
	store := newFakeHistoryStore()
	store.set("cpu.load", 1, 2, 3)
	j := newTestRefreshJob(store, &fakeAlertSink{})
	locks := &fakeLocker{deny: true}
	j.SetLocks(locks)

	err := j.Handle(context.Background(), RefreshPayload{MetricID: "cpu.load", Window: "1h"})
	require.NoError(t, err)
	assert.Equal(t, []string{"refresh:cpu.load"}, locks.locked)
	assert.Empty(t, locks.unlocked)
	assert.Zero(t, store.callCount())
}

func TestRefreshJobUnlocksAfterRun(t *testing.T) {
	store := newFakeHistoryStore()
	store.set("cpu.load", 1, 2, 3)
	j := newTestRefreshJob(store, &fakeAlertSink{})
	locks := &fakeLocker{}
	j.SetLocks(locks)

	err := j.Handle(context.Background(), RefreshPayload{MetricID: "cpu.load", Window: "1h"})
	require.NoError(t, err)
	assert.Equal(t, []string{"refresh:cpu.load"}, locks.unlocked)
	assert.Positive(t, store.callCount())
}

func TestRefreshJobRunsWhenLockStoreFails(t *testing.T) {
	store := newFakeHistoryStore()
	store.set("cpu.load", 1, 2, 3)
	j := newTestRefreshJob(store, &fakeAlertSink{})
	j.SetLocks(&fakeLocker{err: assert.AnError})

	err := j.Handle(context.Background(), RefreshPayload{MetricID: "cpu.load", Window: "1h"})
	require.NoError(t, err)
	assert.Positive(t, store.callCount())
}

func TestRefreshJobAlertsOnBreach(t *testing.T) {
	store := newFakeHistoryStore()
	// a flat series then a spike: the last value sits above the EMA band
	vals := make([]float64, 0, 31)
	for i := 0; i < 30; i++ {
		vals = append(vals, 100)
	}
	vals = append(vals, 200)
	store.set("cpu.load", vals...)
	sink := &fakeAlertSink{}
	j := newTestRefreshJob(store, sink)

	err := j.Handle(context.Background(), RefreshPayload{
		MetricID: "cpu.load",
		Window:   "1h",
		Limit:    31,
	})
	require.NoError(t, err)
	require.Equal(t, 1, sink.sentCount())
	assert.Equal(t, "above", sink.sent[0].Direction)
}
