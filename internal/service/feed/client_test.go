package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// startFeed runs a WebSocket endpoint that upgrades each connection and
// hands it to serve. Returns a ws:// URL.
func startFeed(t *testing.T, serve func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return ""
	}
}

func TestConnectPassesToken(t *testing.T) {
	tokens := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens <- r.URL.Query().Get("token")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New("sekret", url, nil, time.Second, time.Second, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.Equal(t, "sekret", recv(t, tokens))
	assert.True(t, c.IsConnected())
}

func TestSubscribeSendsOneFramePerMetric(t *testing.T) {
	frames := make(chan string, 4)
	url := startFeed(t, func(conn *websocket.Conn) {
		for i := 0; i < 2; i++ {
			var f subscribeFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			frames <- f.Type + ":" + f.Metric
		}
	})

	c := New("tok", url, []string{"cpu.load", "mem.free"}, time.Second, time.Second, nil)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()
	require.NoError(t, c.Subscribe(context.Background()))

	assert.Equal(t, "subscribe:cpu.load", recv(t, frames))
	assert.Equal(t, "subscribe:mem.free", recv(t, frames))
}

func TestReadDeliversObservations(t *testing.T) {
	url := startFeed(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{
			"type": "data",
			"data": []map[string]any{
				{"metric": "cpu.load", "value": 0.82, "ts": 1700000000500, "source": "host-1"},
			},
		})
		time.Sleep(300 * time.Millisecond)
	})

	c := New("tok", url, []string{"cpu.load"}, time.Second, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	obs, _ := c.Read(ctx)
	select {
	case o := <-obs:
		require.NotNil(t, o)
		assert.Equal(t, "cpu.load", o.MetricID)
		assert.Equal(t, int64(1700000000), o.Timestamp)
		assert.InDelta(t, 0.82, o.Value, 1e-9)
		assert.Equal(t, "host-1", o.Source)
	case <-time.After(2 * time.Second):
		t.Fatal("no observation before timeout")
	}
}

func TestReadIgnoresAckFrames(t *testing.T) {
	url := startFeed(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{"type": "subscribed", "metric": "cpu.load"})
		_ = conn.WriteJSON(map[string]any{
			"type": "data",
			"data": []map[string]any{
				{"metric": "cpu.load", "value": 1.0, "ts": 2000, "source": "s"},
			},
		})
		time.Sleep(300 * time.Millisecond)
	})

	c := New("tok", url, nil, time.Second, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	obs, _ := c.Read(ctx)
	select {
	case o := <-obs:
		require.NotNil(t, o)
		assert.Equal(t, "cpu.load", o.MetricID)
		assert.Equal(t, int64(2), o.Timestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("ack frame was not skipped")
	}
}

func TestReadReportsConnectionLoss(t *testing.T) {
	url := startFeed(t, func(conn *websocket.Conn) {})

	c := New("tok", url, nil, time.Second, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	_, errs := c.Read(ctx)
	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("no error after server hangup")
	}
}

func TestSubscribeBeforeConnect(t *testing.T) {
	c := New("tok", "ws://127.0.0.1:0", nil, time.Second, time.Second, nil)
	require.Error(t, c.Subscribe(context.Background()))
	assert.False(t, c.IsConnected())
}

func TestCloseWithoutConnect(t *testing.T) {
	c := New("tok", "ws://127.0.0.1:0", nil, time.Second, time.Second, nil)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestReconnectStopsOnCanceledContext(t *testing.T) {
	c := New("tok", "ws://127.0.0.1:0", nil, time.Hour, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Reconnect(ctx), context.Canceled)
}
