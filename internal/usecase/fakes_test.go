package usecase

import (
	"context"
	"sync"
	"time"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
)

// fakeHistoryStore serves canned points per metric and records how it
// was called.
type fakeHistoryStore struct {
	mu         sync.Mutex
	points     map[string][]models.MetricPoint
	err        error
	latestN    int
	lastWindow domrepo.Window
	lastFrom   time.Time
	lastTo     time.Time
	calls      int
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{points: map[string][]models.MetricPoint{}}
}

func (f *fakeHistoryStore) set(metric string, vals ...float64) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]models.MetricPoint, 0, len(vals))
	for i, v := range vals {
		pts = append(pts, models.MetricPoint{Bucket: base.Add(time.Duration(i) * time.Minute), Value: v})
	}
	f.mu.Lock()
	f.points[metric] = pts
	f.mu.Unlock()
}

func (f *fakeHistoryStore) GetRange(_ context.Context, metricID string, from, to time.Time, w domrepo.Window) (*models.MetricHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastFrom, f.lastTo, f.lastWindow = from, to, w
	if f.err != nil {
		return nil, f.err
	}
	return &models.MetricHistory{MetricID: metricID, Window: string(w), Points: f.points[metricID]}, nil
}

func (f *fakeHistoryStore) GetLatestN(_ context.Context, metricID string, n int, w domrepo.Window) (*models.MetricHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.latestN, f.lastWindow = n, w
	if f.err != nil {
		return nil, f.err
	}
	pts := f.points[metricID]
	if len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	return &models.MetricHistory{MetricID: metricID, Window: string(w), Points: pts}, nil
}

func (f *fakeHistoryStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeAlertSink records delivered alerts.
type fakeAlertSink struct {
	mu     sync.Mutex
	sent   []*models.ThresholdAlert
	err    error
	closed bool
}

func (f *fakeAlertSink) Send(_ context.Context, a *models.ThresholdAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, a)
	return nil
}

func (f *fakeAlertSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAlertSink) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeReportCache is an in-memory domain report cache.
type fakeReportCache struct {
	mu          sync.Mutex
	reports     map[string]*models.TrendReport
	gets        int
	hits        int
	sets        int
	invalidated []string
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{reports: map[string]*models.TrendReport{}}
}

func (f *fakeReportCache) GetReport(_ context.Context, key string) (*models.TrendReport, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	r, ok := f.reports[key]
	if ok {
		f.hits++
	}
	return r, ok
}

func (f *fakeReportCache) SetReport(_ context.Context, key string, r *models.TrendReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.reports[key] = r
	return nil
}

func (f *fakeReportCache) Invalidate(_ context.Context, metricID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, metricID)
	for k := range f.reports {
		delete(f.reports, k)
	}
	return nil
}

// fakePublisher and fakeStorage capture what the processor routed where.
type fakePublisher struct {
	mu      sync.Mutex
	single  []*models.Observation
	batches [][]*models.Observation
	err     error
	closed  bool
}

func (f *fakePublisher) Publish(_ context.Context, o *models.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.single = append(f.single, o)
	return nil
}

func (f *fakePublisher) PublishBatch(_ context.Context, obs []*models.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, obs)
	return nil
}

func (f *fakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	stored  []*models.Observation
	batches [][]*models.Observation
	err     error
	closed  bool
}

func (f *fakeStorage) Init(context.Context) error { return nil }

func (f *fakeStorage) Store(_ context.Context, o *models.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, o)
	return nil
}

func (f *fakeStorage) StoreBatch(_ context.Context, obs []*models.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, obs)
	return nil
}

func (f *fakeStorage) Query(context.Context, string, time.Time, time.Time, int) ([]*models.Observation, error) {
	return nil, nil
}

func (f *fakeStorage) Health(context.Context) error { return nil }

func (f *fakeStorage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStorage) storedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

// nopMetrics satisfies the metrics interface without recording anything.
type nopMetrics struct{}

func (nopMetrics) RecordObservationSent(string, string) {}
func (nopMetrics) RecordError(string)                   {}
func (nopMetrics) RecordLastValue(string, float64)      {}
func (nopMetrics) RecordLatency(string, float64)        {}

// countingMetrics counts errors by kind.
type countingMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	sent   map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: map[string]int{}, sent: map[string]int{}}
}

func (c *countingMetrics) RecordObservationSent(sink, metric string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent[sink+":"+metric]++
}

func (c *countingMetrics) RecordError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[kind]++
}

func (c *countingMetrics) RecordLastValue(string, float64) {}
func (c *countingMetrics) RecordLatency(string, float64)   {}

func (c *countingMetrics) errCount(kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors[kind]
}

func (c *countingMetrics) sentCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent[key]
}
