package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"OpsPulse/internal/domain/models"
	drepo "OpsPulse/internal/domain/repository"
	"OpsPulse/pkg/logger"

	"github.com/gorilla/websocket"
)

// writeWait bounds every frame write, pings included.
const writeWait = 10 * time.Second

// Client streams observations from the ops feed over a WebSocket. It
// satisfies repository.ObservationStream; reconnect policy lives in the
// collector, which calls back in when the stream drops.
type Client struct {
	token          string
	websocketURL   string
	metrics        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *logger.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	dropped atomic.Int64
}

// New builds a stream for the given metric ids. A nil logger disables
// logging.
func New(token, websocketURL string, metrics []string, reconnectDelay, pingInterval time.Duration, l *logger.Logger) drepo.ObservationStream {
	if l == nil {
		l = logger.NewNop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		token:          token,
		websocketURL:   websocketURL,
		metrics:        metrics,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect dials the feed and arms the pong handler. The read deadline
// allows two missed pongs before the read loop gives up.
func (c *Client) Connect(ctx context.Context) error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 15 * time.Second

	conn, _, err := dialer.DialContext(ctx, c.websocketURL+"?token="+c.token, nil)
	if err != nil {
		return fmt.Errorf("feed dial: %w", err)
	}

	wait := 2 * c.pingInterval
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.l.Info("feed connected", logger.String("url", c.websocketURL))
	return nil
}

// subscribeFrame is the feed's wire format for one subscription. The
// feed takes one frame per metric id.
type subscribeFrame struct {
	Type   string `json:"type"`
	Metric string `json:"metric"`
}

// Subscribe registers every tracked metric on the open connection.
func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("feed: subscribe before connect")
	}
	for _, id := range c.metrics {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(subscribeFrame{Type: "subscribe", Metric: id}); err != nil {
			return fmt.Errorf("feed subscribe %s: %w", id, err)
		}
	}
	c.l.Info("feed subscribed", logger.Strings("metrics", c.metrics))
	return nil
}

// dataFrame is the feed's push payload. Timestamps arrive in
// milliseconds.
type dataFrame struct {
	Type string `json:"type"`
	Data []struct {
		Metric string  `json:"metric"`
		Value  float64 `json:"value"`
		TS     int64   `json:"ts"`
		Source string  `json:"source"`
	} `json:"data"`
}

// Read starts the keepalive and read loops and hands back the
// observation and error channels. Both close when the connection dies;
// the caller reconnects and calls Read again for fresh channels.
func (c *Client) Read(ctx context.Context) (<-chan *models.Observation, <-chan error) {
	obs := make(chan *models.Observation, 1024)
	errs := make(chan error, 1)

	conn := c.current()
	if conn == nil {
		errs <- fmt.Errorf("feed: read before connect")
		close(obs)
		close(errs)
		return obs, errs
	}

	go c.keepAlive(ctx, conn)
	go c.pump(ctx, conn, obs, errs)
	return obs, errs
}

// keepAlive pings until the connection stops accepting writes, so stale
// loops from before a reconnect wind down on their own.
func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) pump(ctx context.Context, conn *websocket.Conn, obs chan<- *models.Observation, errs chan<- error) {
	defer close(obs)
	defer close(errs)

	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				errs <- fmt.Errorf("feed closed: %w", err)
			} else {
				errs <- fmt.Errorf("feed read: %w", err)
			}
			return
		}

		var frame dataFrame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type != "data" {
			// acks and heartbeats share the socket
			continue
		}
		for _, p := range frame.Data {
			o := &models.Observation{
				MetricID:  p.Metric,
				Timestamp: p.TS / 1000,
				Value:     p.Value,
				Source:    p.Source,
			}
			select {
			case obs <- o:
			default:
				if n := c.dropped.Add(1); n%1000 == 1 {
					c.l.Warn("feed buffer full, dropping", logger.Int64("dropped", n))
				}
			}
		}
	}
}

// Reconnect tears down the old connection, waits out the configured
// delay, and dials and subscribes again. The wait aborts when ctx is
// canceled.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close is safe to call twice and with no connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// IsConnected reports whether a connection is currently held.
func (c *Client) IsConnected() bool {
	return c.current() != nil
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
