package notify

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "OpsPulse/internal/domain/models"
    "OpsPulse/pkg/config"
)

func sinkConfig(url string) *config.Config {
    cfg := &config.Config{}
    cfg.Alerts.WebhookURL = url
    cfg.Alerts.Timeout = 2 * time.Second
    return cfg
}

func sampleAlert() *models.ThresholdAlert {
    return &models.ThresholdAlert{
        MetricID:   "cpu.load",
        Value:      130,
        Baseline:   100,
        Upper:      125,
        Lower:      80,
        Confidence: 90,
        Direction:  "above",
        At:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
    }
}

func TestNewWebhookSinkUnconfigured(t *testing.T) {
    assert.Nil(t, NewWebhookSink(&config.Config{}))
}

func TestWebhookSendPostsPayload(t *testing.T) {
    var got struct {
        Text  string                 `json:"text"`
        Alert *models.ThresholdAlert `json:"alert"`
    }
    var calls int32

    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        assert.Equal(t, http.MethodPost, r.Method)
        assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
        body, _ := io.ReadAll(r.Body)
        require.NoError(t, json.Unmarshal(body, &got))
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok")) // plain-text reply like a chat hook
    }))
    defer srv.Close()

    sink := NewWebhookSink(sinkConfig(srv.URL))
    require.NotNil(t, sink)

    err := sink.Send(context.Background(), sampleAlert())
    require.NoError(t, err)

    assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
    assert.Contains(t, got.Text, "cpu.load above threshold")
    require.NotNil(t, got.Alert)
    assert.Equal(t, "cpu.load", got.Alert.MetricID)
    assert.InDelta(t, 130, got.Alert.Value, 1e-9)
}

func TestWebhookSendRetriesTransientFailure(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if atomic.AddInt32(&calls, 1) < 3 {
            w.WriteHeader(http.StatusBadGateway)
            return
        }
        w.WriteHeader(http.StatusOK)
    }))
    defer srv.Close()

    sink := NewWebhookSink(sinkConfig(srv.URL))

    err := sink.Send(context.Background(), sampleAlert())
    require.NoError(t, err)
    assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookSendDoesNotRetryClientErrors(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
        atomic.AddInt32(&calls, 1)
        http.Error(w, "no such hook", http.StatusNotFound)
    }))
    defer srv.Close()

    sink := NewWebhookSink(sinkConfig(srv.URL))

    err := sink.Send(context.Background(), sampleAlert())
    require.Error(t, err)
    assert.Contains(t, err.Error(), "404")
    assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWebhookSendGivesUpAfterRetries(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
        atomic.AddInt32(&calls, 1)
        w.WriteHeader(http.StatusInternalServerError)
    }))
    defer srv.Close()

    sink := NewWebhookSink(sinkConfig(srv.URL))

    err := sink.Send(context.Background(), sampleAlert())
    require.Error(t, err)
    assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookSendHonorsContext(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
        w.WriteHeader(http.StatusServiceUnavailable)
    }))
    defer srv.Close()

    sink := NewWebhookSink(sinkConfig(srv.URL))

    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    err := sink.Send(ctx, sampleAlert())
    require.Error(t, err)
}

func TestWebhookSendUninitialized(t *testing.T) {
    var sink *WebhookSink
    err := sink.Send(context.Background(), sampleAlert())
    require.Error(t, err)
}

func TestWebhookClose(t *testing.T) {
    sink := NewWebhookSink(sinkConfig("http://example.invalid/hook"))
    assert.NoError(t, sink.Close())
}
