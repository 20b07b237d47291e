package clickhouse

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildConfig(opts ...ClientOption) *ClientConfig {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func TestDSNDefaults(t *testing.T) {
	cfg := buildConfig(WithHost("ch.internal"))

	u, err := url.Parse(cfg.dsn())
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.internal:9000", u.Host)
	assert.Equal(t, "/default", u.Path)
	assert.Equal(t, "default", u.User.Username())

	q := u.Query()
	assert.Equal(t, "5s", q.Get("dial_timeout"))
	assert.Equal(t, "10s", q.Get("read_timeout"))
	assert.Empty(t, q.Get("async_insert"))
	assert.Empty(t, q.Get("max_execution_time"))
}

func TestDSNEscapesPassword(t *testing.T) {
	cfg := buildConfig(
		WithHost("ch.internal"),
		WithCredentials("ops", "p@ss:w/rd"),
	)

	u, err := url.Parse(cfg.dsn())
	require.NoError(t, err)
	pass, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss:w/rd", pass)
}

func TestDSNServerSettings(t *testing.T) {
	cfg := buildConfig(
		WithHost("ch.internal"),
		WithHTTP(true),
		WithAsyncInsert(true, true),
		WithMaxExecutionTime(90*time.Second),
	)

	u, err := url.Parse(cfg.dsn())
	require.NoError(t, err)
	assert.Equal(t, "clickhouse+http", u.Scheme)

	q := u.Query()
	assert.Equal(t, "1", q.Get("async_insert"))
	assert.Equal(t, "1", q.Get("wait_for_async_insert"))
	assert.Equal(t, "90", q.Get("max_execution_time"))
}

func TestOptionsIgnoreZeroValues(t *testing.T) {
	cfg := buildConfig(
		WithHost(""),
		WithPort(0),
		WithDatabase(""),
		WithMaxConnections(0, 0),
		WithTimeouts(0, 0, 0),
		WithMaxExecutionTime(0),
	)

	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "default", cfg.Database)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
}

func TestOptionsOverride(t *testing.T) {
	cfg := buildConfig(
		WithHost("ch-1"),
		WithPort(9440),
		WithDatabase("opspulse"),
		WithMaxConnections(32, 8),
		WithTimeouts(time.Second, 20*time.Second, 15*time.Second),
	)

	assert.Equal(t, "ch-1", cfg.Host)
	assert.Equal(t, 9440, cfg.Port)
	assert.Equal(t, "opspulse", cfg.Database)
	assert.Equal(t, 32, cfg.MaxOpenConns)
	assert.Equal(t, 8, cfg.MaxIdleConns)
	assert.Equal(t, time.Second, cfg.DialTimeout)
	assert.Equal(t, 20*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.WriteTimeout)
}
