package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OpsPulse/internal/domain/models"
	domrepo "OpsPulse/internal/domain/repository"
	icache "OpsPulse/internal/service/cache"
	"OpsPulse/internal/services/trend"
	"OpsPulse/internal/usecase"
)

type stubStore struct {
	mu     sync.Mutex
	points map[string][]models.MetricPoint
	err    error
	calls  int
}

func newStubStore() *stubStore {
	return &stubStore{points: map[string][]models.MetricPoint{}}
}

func (s *stubStore) set(metric string, vals ...float64) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]models.MetricPoint, 0, len(vals))
	for i, v := range vals {
		pts = append(pts, models.MetricPoint{Bucket: base.Add(time.Duration(i) * time.Hour), Value: v})
	}
	s.mu.Lock()
	s.points[metric] = pts
	s.mu.Unlock()
}

func (s *stubStore) GetRange(_ context.Context, metricID string, _, _ time.Time, w domrepo.Window) (*models.MetricHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.MetricHistory{MetricID: metricID, Window: string(w), Points: s.points[metricID]}, nil
}

func (s *stubStore) GetLatestN(_ context.Context, metricID string, n int, w domrepo.Window) (*models.MetricHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	pts := s.points[metricID]
	if len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	return &models.MetricHistory{MetricID: metricID, Window: string(w), Points: pts}, nil
}

func (s *stubStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newHandlerFixture(store *stubStore) *ReportsHandler {
	provider := trend.NewProvider(trend.New(trend.Config{}))
	builder := usecase.NewReportBuilder(store, provider, nil, nil)
	overview := usecase.NewOverviewUseCase(builder, []usecase.RefreshTarget{
		{MetricID: "cpu.load", Window: "1h", Limit: 24},
		{MetricID: "mem.used", Window: "1h", Limit: 24},
	})
	return NewReportsHandler(builder, overview)
}

func TestTrendEndpoint(t *testing.T) {
	store := newStubStore()
	store.set("cpu.load", 10, 20, 30, 40)
	h := newHandlerFixture(store)

	req := httptest.NewRequest(http.MethodGet, "/trend?metric=cpu.load&short_period=2&long_period=3", nil)
	rec := httptest.NewRecorder()
	h.Trend().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rep models.TrendReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Len(t, rep.ShortMA, 3)
	assert.Equal(t, models.TrendUp, rep.TrendDirection)
}

func TestTrendEndpointRequiresMetric(t *testing.T) {
	h := newHandlerFixture(newStubStore())

	req := httptest.NewRequest(http.MethodGet, "/trend", nil)
	rec := httptest.NewRecorder()
	h.Trend().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrendEndpointStoreError(t *testing.T) {
	store := newStubStore()
	store.err = assert.AnError
	h := newHandlerFixture(store)

	req := httptest.NewRequest(http.MethodGet, "/trend?metric=cpu.load", nil)
	rec := httptest.NewRecorder()
	h.Trend().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTrendEndpointRateLimited(t *testing.T) {
	store := newStubStore()
	store.set("cpu.load", 1, 2, 3)
	h := newHandlerFixture(store)

	var last int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/trend?metric=cpu.load", nil)
		req.RemoteAddr = "198.51.100.7:9000"
		rec := httptest.NewRecorder()
		h.Trend().ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestTrendEndpointServesFromCache(t *testing.T) {
	store := newStubStore()
	store.err = assert.AnError // any builder call would 500
	h := newHandlerFixture(store)

	c := icache.NewTTLCache()
	h.SetCache(c)
	seeded := []byte(`{"trend_direction":"up"}`)
	require.NoError(t, c.SetBytes("trend:cpu.load:1h:0:0", seeded, time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/trend?metric=cpu.load&window=1h", nil)
	rec := httptest.NewRecorder()
	h.Trend().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, seeded, rec.Body.Bytes())
	assert.Equal(t, 0, store.callCount())
}

func TestTrendEndpointPopulatesCache(t *testing.T) {
	store := newStubStore()
	store.set("cpu.load", 10, 20, 30, 40)
	h := newHandlerFixture(store)

	c := icache.NewTTLCache()
	h.SetCache(c)

	req := httptest.NewRequest(http.MethodGet, "/trend?metric=cpu.load&short_period=2&long_period=3", nil)
	rec := httptest.NewRecorder()
	h.Trend().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	b, ok, err := c.GetBytes("trend:cpu.load:1h:2:3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, rec.Body.String(), string(b))
}

func TestThresholdEndpoint(t *testing.T) {
	store := newStubStore()
	store.set("cpu.load", 100, 100, 100, 100)
	h := newHandlerFixture(store)

	req := httptest.NewRequest(http.MethodGet, "/threshold?metric=cpu.load&period=2&multiplier=1.25", nil)
	rec := httptest.NewRecorder()
	h.Threshold().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var thr models.AdaptiveThreshold
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thr))
	assert.InDelta(t, 100, thr.Baseline, 1e-9)
	assert.InDelta(t, 125, thr.UpperThreshold, 1e-9)
}

func TestThresholdEndpointRequiresMetric(t *testing.T) {
	h := newHandlerFixture(newStubStore())

	req := httptest.NewRequest(http.MethodGet, "/threshold", nil)
	rec := httptest.NewRecorder()
	h.Threshold().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestThresholdEndpointDegradedStillResponds(t *testing.T) {
	store := newStubStore()
	store.set("cpu.load", 5)
	h := newHandlerFixture(store)

	req := httptest.NewRequest(http.MethodGet, "/threshold?metric=cpu.load", nil)
	rec := httptest.NewRecorder()
	h.Threshold().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var thr models.AdaptiveThreshold
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thr))
	assert.True(t, thr.IsZero())
}

func TestOverviewEndpoint(t *testing.T) {
	store := newStubStore()
	store.set("cpu.load", 10, 20, 30)
	store.set("mem.used", 70, 75, 80)
	h := newHandlerFixture(store)

	req := httptest.NewRequest(http.MethodGet, "/overview", nil)
	rec := httptest.NewRecorder()
	h.Overview().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snaps []models.MetricSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 2)
	assert.Equal(t, "cpu.load", snaps[0].MetricID)
	assert.Equal(t, "mem.used", snaps[1].MetricID)
}

func TestMountRoutes(t *testing.T) {
	store := newStubStore()
	store.set("cpu.load", 10, 20, 30, 40)
	store.set("mem.used", 70, 75, 80)
	h := newHandlerFixture(store)

	mux := http.NewServeMux()
	h.Mount(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/trend?metric=cpu.load&short_period=2&long_period=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rep models.TrendReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	assert.Equal(t, models.TrendUp, rep.TrendDirection)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/overview", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports/trend", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 7, parseInt("7", 0))
	assert.Equal(t, 42, parseInt("", 42))
	assert.Equal(t, 42, parseInt("x", 42))
	assert.InDelta(t, 1.5, parseFloat("1.5", 0), 1e-9)
	assert.InDelta(t, 2.5, parseFloat("", 2.5), 1e-9)
	assert.InDelta(t, 2.5, parseFloat("NaNx", 2.5), 1e-9)
}
