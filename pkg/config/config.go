package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Ingest struct {
		Sink         string        `yaml:"sink"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"ingest"`
	Kafka struct {
		Brokers           []string `yaml:"brokers"`
		ObservationsTopic string   `yaml:"observations_topic"`
		AlertsTopic       string   `yaml:"alerts_topic"`
		LogsTopic         string   `yaml:"logs_topic"`
		RequiredAcks      int      `yaml:"required_acks"`
		Compression       string   `yaml:"compression"`
		Producer          struct {
			BatchSize    int           `yaml:"batch_size"`
			BatchBytes   int           `yaml:"batch_bytes"`
			Linger       time.Duration `yaml:"linger"`
			MaxAttempts  int           `yaml:"max_attempts"`
			Async        bool          `yaml:"async"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID         string        `yaml:"group_id"`
			Workers         int           `yaml:"workers"`
			BufferSize      int           `yaml:"buffer_size"`
			RetryMax        int           `yaml:"retry_max"`
			BackoffMin      time.Duration `yaml:"backoff_min"`
			BackoffMax      time.Duration `yaml:"backoff_max"`
			DLQTopic        string        `yaml:"dlq_topic"`
			MinBytes        int           `yaml:"min_bytes"`
			MaxBytes        int           `yaml:"max_bytes"`
			AutoOffsetReset string        `yaml:"auto_offset_reset"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		UseHTTP  bool   `yaml:"use_http"`

		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`

		AsyncInsert  bool `yaml:"async_insert"`
		WaitForAsync bool `yaml:"wait_for_async_insert"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		ReportTTL  time.Duration `yaml:"report_ttl"`
		SeriesTTL  time.Duration `yaml:"series_ttl"`
		MemorySize int           `yaml:"memory_size"`
	} `yaml:"cache"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		BaseURL        string        `yaml:"base_url"`
		Token          string        `yaml:"token"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Tracked   []TrackedMetric `yaml:"tracked"`
	Scheduler struct {
		Enabled     bool   `yaml:"enabled"`
		RefreshSpec string `yaml:"refresh_spec"`
	} `yaml:"scheduler"`
	Alerts struct {
		Enabled    bool          `yaml:"enabled"`
		MaxPerMin  float64       `yaml:"max_per_min"`
		Burst      int           `yaml:"burst"`
		WebhookURL string        `yaml:"webhook_url"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"alerts"`
	Engine struct {
		NoiseRatio          float64 `yaml:"noise_ratio"`
		VolatilityCap       float64 `yaml:"volatility_cap"`
		ConfidenceBase      float64 `yaml:"confidence_base"`
		ConfidenceCap       float64 `yaml:"confidence_cap"`
		ConfidenceFloor     float64 `yaml:"confidence_floor"`
		ThresholdPeriod     int     `yaml:"threshold_period"`
		ThresholdMultiplier float64 `yaml:"threshold_multiplier"`
		ShortPeriod         int     `yaml:"short_period"`
		LongPeriod          int     `yaml:"long_period"`
		TrendLookback       int     `yaml:"trend_lookback"`
	} `yaml:"engine"`
}

// TrackedMetric is one dashboard metric the service watches end to end:
// ingested from the feed, stored, refreshed on schedule, and shown in the
// overview.
type TrackedMetric struct {
	ID     string `yaml:"id"`
	Window string `yaml:"window"`
	Limit  int    `yaml:"limit"`
}

// Load parses the YAML file at path and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv is Load plus environment overrides for the secrets and
// endpoints that differ per deployment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		env string
		set func(string)
	}{
		{"FEED_TOKEN", func(v string) { c.Feed.Token = v }},
		{"FEED_WS_URL", func(v string) { c.Feed.WebSocketURL = v }},
		{"INGEST_SINK", func(v string) { c.Ingest.Sink = v }},
		{"KAFKA_BROKERS", func(v string) { c.Kafka.Brokers = strings.Split(v, ",") }},
		{"KAFKA_OBSERVATIONS_TOPIC", func(v string) { c.Kafka.ObservationsTopic = v }},
		{"REDIS_ADDR", func(v string) { c.Redis.Addr = v }},
		{"ALERT_WEBHOOK_URL", func(v string) { c.Alerts.WebhookURL = v }},
		{"TRACKED_METRICS", func(v string) {
			c.Tracked = c.Tracked[:0]
			for _, id := range strings.Split(v, ",") {
				c.Tracked = append(c.Tracked, TrackedMetric{ID: strings.TrimSpace(id)})
			}
		}},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			o.set(v)
		}
	}

	return c, nil
}

// Validate enforces the fields the service cannot boot without.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Ingest.Sink == "" {
		return fmt.Errorf("ingest.sink is required")
	}
	if c.Ingest.Sink != "kafka" && c.Ingest.Sink != "clickhouse" {
		return fmt.Errorf("ingest.sink must be 'kafka' or 'clickhouse', got '%s'", c.Ingest.Sink)
	}
	if len(c.Tracked) == 0 {
		return fmt.Errorf("tracked metrics cannot be empty")
	}
	for i, m := range c.Tracked {
		if m.ID == "" {
			return fmt.Errorf("tracked[%d].id is required", i)
		}
	}
	if c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required")
	}
	return nil
}

// MetricIDs returns the IDs of all tracked metrics in config order.
func (c *Config) MetricIDs() []string {
	ids := make([]string, 0, len(c.Tracked))
	for _, m := range c.Tracked {
		ids = append(ids, m.ID)
	}
	return ids
}
