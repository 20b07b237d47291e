package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Metric string  `json:"metric"`
	Score  float64 `json:"score"`
}

func newTestMemory(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryRoundtripStruct(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	in := snapshot{Metric: "cpu.load", Score: 0.42}
	require.NoError(t, mc.Set(ctx, "report:cpu.load", in, time.Minute))

	var out snapshot
	require.NoError(t, mc.Get(ctx, "report:cpu.load", &out))
	assert.Equal(t, in, out)
}

func TestMemoryRoundtripString(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "plain value", time.Minute))

	var s string
	require.NoError(t, mc.Get(ctx, "k", &s))
	assert.Equal(t, "plain value", s)

	var b []byte
	require.NoError(t, mc.Get(ctx, "k", &b))
	assert.Equal(t, []byte("plain value"), b)
}

func TestMemoryMiss(t *testing.T) {
	mc := newTestMemory(t)

	var s string
	err := mc.Get(context.Background(), "absent", &s)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryExpiry(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)

	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLRUEviction(t *testing.T) {
	mc := newTestMemory(t, WithMemoryMaxSize(2))
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))

	// touch "a" so "b" becomes the eviction candidate
	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))

	require.NoError(t, mc.Set(ctx, "c", "3", time.Minute))

	assert.NoError(t, mc.Get(ctx, "a", &s))
	assert.ErrorIs(t, mc.Get(ctx, "b", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "c", &s))
}

func TestMemoryDeleteByPattern(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "report:cpu.load:1h", "a", time.Minute))
	require.NoError(t, mc.Set(ctx, "report:cpu.load:24h", "b", time.Minute))
	require.NoError(t, mc.Set(ctx, "report:mem.used:1h", "c", time.Minute))

	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern(GenerateKey("report", "cpu.load"))))

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "report:cpu.load:1h", &s), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "report:cpu.load:24h", &s), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "report:mem.used:1h", &s))
}

func TestMemoryIncrement(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	n, err := mc.Increment(ctx, "hits")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = mc.Increment(ctx, "hits")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, mc.Set(ctx, "text", "abc", time.Minute))
	_, err = mc.Increment(ctx, "text")
	assert.Error(t, err)
}

func TestMemoryExpire(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))

	ok, err := mc.Expire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.Expire(ctx, "absent", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	time.Sleep(25 * time.Millisecond)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestMemoryMSetMGet(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	err := mc.MSet(ctx, map[string]any{
		"a": "1",
		"b": snapshot{Metric: "cpu.load", Score: 1},
	}, time.Minute)
	require.NoError(t, err)

	got, err := mc.MGet(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "1", got["a"])
	assert.JSONEq(t, `{"metric":"cpu.load","score":1}`, got["b"])
}

func TestMemoryTryLock(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock:refresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock:refresh", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock:refresh"))

	ok, err = mc.TryLock(ctx, "lock:refresh", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryCloseIdempotent(t *testing.T) {
	mc := NewMemoryCache()
	assert.NoError(t, mc.Close())
	assert.NotPanics(t, func() { _ = mc.Close() })
}

func TestMGetTyped(t *testing.T) {
	mc := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "s1", snapshot{Metric: "cpu.load", Score: 1}, time.Minute))
	require.NoError(t, mc.Set(ctx, "s2", snapshot{Metric: "mem.used", Score: 2}, time.Minute))
	require.NoError(t, mc.Set(ctx, "junk", "not json", time.Minute))

	got, err := MGetTyped[snapshot](ctx, mc, "s1", "s2", "junk", "absent")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "cpu.load", got["s1"].Metric)
	assert.InDelta(t, 2, got["s2"].Score, 1e-9)

	empty, err := MGetTyped[snapshot](ctx, mc)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
