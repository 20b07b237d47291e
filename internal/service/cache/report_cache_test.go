package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OpsPulse/internal/domain/models"
	pkgcache "OpsPulse/pkg/cache"
)

// fakeCache is an in-memory pkgcache.Service that records TTLs and
// delete patterns so tests can assert on them.
type fakeCache struct {
	data     map[string][]byte
	lastTTL  time.Duration
	patterns []string
	getErr   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = b
	f.lastTTL = expiration
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string, dest any) error {
	if f.getErr != nil {
		return f.getErr
	}
	b, ok := f.data[key]
	if !ok {
		return pkgcache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	return nil
}

func (f *fakeCache) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, k := range keys {
		if _, ok := f.data[k]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeCache) Increment(_ context.Context, _ string) (int64, error) { return 0, nil }

func (f *fakeCache) Expire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return false, nil
}

func (f *fakeCache) MSet(_ context.Context, _ map[string]any, _ time.Duration) error {
	return nil
}

func (f *fakeCache) MGet(_ context.Context, _ ...string) (map[string]string, error) {
	return nil, nil
}

func (f *fakeCache) TryLock(_ context.Context, _ string, _ time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeCache) Unlock(_ context.Context, _ string) error { return nil }

func TestReportKey(t *testing.T) {
	key := ReportKey("cpu.load", "1h", 168, 7, 21)
	assert.Equal(t, "report:cpu.load:1h:168:7:21", key)
}

func TestReportKeyVariantsDoNotCollide(t *testing.T) {
	a := ReportKey("cpu.load", "1h", 168, 7, 21)
	b := ReportKey("cpu.load", "1h", 168, 7, 14)
	c := ReportKey("cpu.load", "1m", 168, 7, 21)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGetReportMiss(t *testing.T) {
	rc := NewReportCache(newFakeCache(), time.Minute, nil)

	rep, ok := rc.GetReport(context.Background(), "report:missing:1h:0:0:0")
	assert.False(t, ok)
	assert.Nil(t, rep)
}

func TestSetGetReportRoundtrip(t *testing.T) {
	rc := NewReportCache(newFakeCache(), time.Minute, nil)
	key := ReportKey("mem.used", "1h", 100, 7, 21)

	in := &models.TrendReport{
		ShortMA:         []float64{10, 11, 12},
		LongMA:          []float64{9, 10, 11},
		TrendDirection:  models.TrendUp,
		VolatilityScore: 3.5,
		CrossoverSignal: models.CrossBullish,
		Confidence:      82,
	}
	require.NoError(t, rc.SetReport(context.Background(), key, in))

	out, ok := rc.GetReport(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestSetReportUsesConfiguredTTL(t *testing.T) {
	fc := newFakeCache()
	rc := NewReportCache(fc, 5*time.Second, nil)

	err := rc.SetReport(context.Background(), "k", &models.TrendReport{})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, fc.lastTTL)
}

func TestDefaultTTLWhenUnset(t *testing.T) {
	fc := newFakeCache()
	rc := NewReportCache(fc, 0, nil)

	require.NoError(t, rc.SetReport(context.Background(), "k", &models.TrendReport{}))
	assert.Equal(t, 30*time.Second, fc.lastTTL)
}

func TestGetReportSwallowsBackendError(t *testing.T) {
	fc := newFakeCache()
	fc.getErr = assert.AnError
	rc := NewReportCache(fc, time.Minute, nil)

	rep, ok := rc.GetReport(context.Background(), "k")
	assert.False(t, ok)
	assert.Nil(t, rep)
}

func TestInvalidateUsesMetricPattern(t *testing.T) {
	fc := newFakeCache()
	rc := NewReportCache(fc, time.Minute, nil)

	require.NoError(t, rc.Invalidate(context.Background(), "cpu.load"))
	require.Len(t, fc.patterns, 1)
	assert.Equal(t, "report:cpu.load*", fc.patterns[0])
}
