package di

import (
    "context"
    "fmt"
    "net"
    "strconv"
    "time"

    "OpsPulse/internal/domain/repository"
    domsvc "OpsPulse/internal/domain/service"
    mid "OpsPulse/internal/middleware"
    internalrepo "OpsPulse/internal/repository"
    svcc "OpsPulse/internal/service/cache"
    "OpsPulse/internal/service/feed"
    "OpsPulse/internal/services/notify"
    "OpsPulse/internal/services/trend"
    "OpsPulse/internal/usecase"
    pkgcache "OpsPulse/pkg/cache"
    pkgch "OpsPulse/pkg/clickhouse"
    "OpsPulse/pkg/config"
    xhttp "OpsPulse/pkg/http"
    pkgkafka "OpsPulse/pkg/kafka"
    "OpsPulse/pkg/logger"
    "OpsPulse/pkg/metrics"
    "OpsPulse/pkg/queue"
    "OpsPulse/pkg/server"
)

// schemaStatements is everything the service needs in ClickHouse: the raw
// observations table plus one rollup table and feeding view per window.
var schemaStatements = []string{
	"CREATE DATABASE IF NOT EXISTS opspulse",
	"CREATE TABLE IF NOT EXISTS opspulse.observations (metric String, ts DateTime, value Float64, source String) ENGINE=MergeTree ORDER BY (metric, ts) TTL ts + INTERVAL 30 DAY",
	"CREATE TABLE IF NOT EXISTS opspulse.observations_1m (metric String, bucket DateTime, value Float64) ENGINE=ReplacingMergeTree ORDER BY (metric, bucket)",
	"CREATE MATERIALIZED VIEW IF NOT EXISTS opspulse.observations_1m_mv TO opspulse.observations_1m AS SELECT metric, toStartOfMinute(ts) AS bucket, avg(value) AS value FROM opspulse.observations GROUP BY metric, bucket",
	"CREATE TABLE IF NOT EXISTS opspulse.observations_1h (metric String, bucket DateTime, value Float64) ENGINE=ReplacingMergeTree ORDER BY (metric, bucket)",
	"CREATE MATERIALIZED VIEW IF NOT EXISTS opspulse.observations_1h_mv TO opspulse.observations_1h AS SELECT metric, toStartOfHour(ts) AS bucket, avg(value) AS value FROM opspulse.observations GROUP BY metric, bucket",
	"CREATE TABLE IF NOT EXISTS opspulse.observations_1d (metric String, bucket DateTime, value Float64) ENGINE=ReplacingMergeTree ORDER BY (metric, bucket)",
	"CREATE MATERIALIZED VIEW IF NOT EXISTS opspulse.observations_1d_mv TO opspulse.observations_1d AS SELECT metric, toStartOfDay(ts) AS bucket, avg(value) AS value FROM opspulse.observations GROUP BY metric, bucket",
}

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient opens the ClickHouse pool and ensures the
// schema exists before anything depends on it.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, schemaStatements); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer builds the shared producer used by the
// observation publisher and the alert sink.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer builds the consumer that drains the observations
// topic back into storage.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerAutoOffsetReset(cfg.Kafka.Consumer.AutoOffsetReset),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideObservationStorage creates ClickHouse storage repository.
func ProvideObservationStorage(chClient *pkgch.Client, cfg *config.Config) repository.Storage {
	return internalrepo.NewClickHouseStorage(chClient.DB(), cfg.ClickHouse.Database+".observations")
}

// ProvideObservationPublisher creates Kafka publisher repository.
func ProvideObservationPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.ObservationsTopic)
}

// ProvideKafkaObservationsHandler registers handler for the observations topic.
func ProvideKafkaObservationsHandler(store repository.Storage, m repository.Metrics, cfg *config.Config) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.ObservationsTopic, store, m)
}

// ProvideFeedStream creates the observation feed WebSocket stream.
func ProvideFeedStream(cfg *config.Config, lgr *logger.Logger) repository.ObservationStream {
	return feed.New(
		cfg.Feed.Token,
		cfg.Feed.WebSocketURL,
		cfg.MetricIDs(),
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		lgr,
	)
}

// ProvideRestClient creates the feed REST client used for catch-up after
// reconnects. Nil when no base URL is configured.
func ProvideRestClient(cfg *config.Config) *feed.RestClient {
	if cfg.Feed.BaseURL == "" {
		return nil
	}
	return feed.NewRestClient(xhttp.NewClient(xhttp.WithTimeout(10*time.Second)), cfg.Feed.BaseURL, cfg.Feed.Token)
}

// ProvideObservationProcessor creates observation processor use case.
func ProvideObservationProcessor(
	pub repository.Publisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ObservationProcessor {
	return usecase.NewObservationProcessor(
		pub,
		store,
		m,
		cfg.Ingest.Sink,
		cfg.Ingest.BatchSize,
		cfg.Ingest.BatchTimeout,
	)
}

// ProvideObservationCollector creates observation collector use case.
func ProvideObservationCollector(
    stream repository.ObservationStream,
    processor *usecase.ObservationProcessor,
    m repository.Metrics,
    rest *feed.RestClient,
    cfg *config.Config,
) *usecase.ObservationCollector {
    // Build middleware pipeline between WebSocket and the ingest sink
    pipe := mid.NewIngestPipeline(processor, m,
        mid.WithMaxRPS(50),
        mid.WithBufferSize(2000),
    )
    collector := usecase.NewObservationCollector(stream, processor, m, pipe)
    if rest != nil {
        collector.SetCatchup(rest, cfg.MetricIDs())
    }
    return collector
}

// ProvideEngineProvider builds the analysis engine from config and wraps
// it for atomic hot reload.
func ProvideEngineProvider(cfg *config.Config, lgr *logger.Logger) *trend.Provider {
	return trend.NewProvider(trend.New(engineConfig(cfg), trend.WithLogger(lgr)))
}

// ProvideAnalyzer exposes the provider as the domain analyzer interface.
func ProvideAnalyzer(p *trend.Provider) domsvc.TrendAnalyzer {
	return p
}

// ProvideHistoryStore creates the rollup-aware history reader.
func ProvideHistoryStore(chClient *pkgch.Client, lgr *logger.Logger) repository.HistoryStore {
	store := internalrepo.NewCHHistoryStore(chClient)
	store.SetLogger(lgr)
	return store
}

// ProvideRedisCache connects to Redis. The connection is shared by the
// cache layers and the job queue.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	host, port := splitAddr(cfg.Redis.Addr)
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideCacheService layers an in-memory LRU over Redis. Nil when
// caching is disabled.
func ProvideCacheService(rc *pkgcache.RedisCache, cfg *config.Config) pkgcache.Service {
	if !cfg.Cache.Enabled {
		return nil
	}
	opts := []pkgcache.LayeredOption{}
	if cfg.Cache.MemorySize > 0 {
		opts = append(opts, pkgcache.WithLayeredMemorySize(cfg.Cache.MemorySize))
	}
	return pkgcache.NewLayeredCache(rc, opts...)
}

// ProvideReportCache wraps the cache service for typed report storage.
func ProvideReportCache(svc pkgcache.Service, cfg *config.Config, lgr *logger.Logger) repository.ReportCache {
	if svc == nil {
		return nil
	}
	return svcc.NewReportCache(svc, cfg.Cache.ReportTTL, lgr)
}

// ProvideReportBuilder creates the report builder use case.
func ProvideReportBuilder(store repository.HistoryStore, p *trend.Provider, rcache repository.ReportCache, lgr *logger.Logger) *usecase.ReportBuilder {
	return usecase.NewReportBuilder(store, p, rcache, lgr)
}

// ProvideHistoryUseCase creates the history use case.
func ProvideHistoryUseCase(store repository.HistoryStore) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(store)
}

// ProvideAveragesUseCase creates the averages use case.
func ProvideAveragesUseCase(store repository.HistoryStore, analyzer domsvc.TrendAnalyzer) *usecase.AveragesUseCase {
	return usecase.NewAveragesUseCase(store, analyzer)
}

// ProvideRefreshTargets converts tracked metrics from config.
func ProvideRefreshTargets(cfg *config.Config) []usecase.RefreshTarget {
	targets := make([]usecase.RefreshTarget, 0, len(cfg.Tracked))
	for _, m := range cfg.Tracked {
		targets = append(targets, usecase.RefreshTarget{
			MetricID: m.ID,
			Window:   m.Window,
			Limit:    m.Limit,
		})
	}
	return targets
}

// ProvideOverviewUseCase creates the overview use case.
func ProvideOverviewUseCase(builder *usecase.ReportBuilder, targets []usecase.RefreshTarget) *usecase.OverviewUseCase {
	return usecase.NewOverviewUseCase(builder, targets)
}

// ProvideAlertSink fans alerts out to the Kafka topic and, when
// configured, the webhook.
func ProvideAlertSink(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertSink {
	kafkaSink := internalrepo.NewKafkaAlertSink(producer, cfg.Kafka.AlertsTopic)
	var hook repository.AlertSink
	if ws := notify.NewWebhookSink(cfg); ws != nil {
		hook = ws
	}
	return internalrepo.NewFanoutSink(kafkaSink, hook)
}

// ProvideAlertDispatcher creates the rate-capped alert dispatcher.
func ProvideAlertDispatcher(sink repository.AlertSink, lgr *logger.Logger, cfg *config.Config) *usecase.AlertDispatcher {
	return usecase.NewAlertDispatcher(sink, lgr, cfg.Alerts.Enabled, cfg.Alerts.MaxPerMin, cfg.Alerts.Burst)
}

// ProvideQueue creates the Redis job queue with the refresh and log
// shipping jobs registered.
func ProvideQueue(
	cfg *config.Config,
	rc *pkgcache.RedisCache,
	lgr *logger.Logger,
	builder *usecase.ReportBuilder,
	alerts *usecase.AlertDispatcher,
	producer *pkgkafka.Producer,
) *queue.RedisQueue {
	q := queue.NewRedisQueue(lgr, &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc.Client(), queue.ModeProducerConsumer)

	refresh := usecase.NewRefreshJob(builder, alerts, lgr)
	refresh.SetLocks(rc)
	q.RegisterJob(refresh)

	logsTopic := cfg.Kafka.LogsTopic
	if logsTopic == "" {
		logsTopic = "opspulse.logs"
	}
	q.RegisterJob(usecase.NewLogShipJob(producer, logsTopic, lgr))
	return q
}

// ProvideScheduler creates the cron sweep that enqueues refresh jobs.
// Nil when the scheduler is disabled.
func ProvideScheduler(
	q *queue.RedisQueue,
	targets []usecase.RefreshTarget,
	alerts *usecase.AlertDispatcher,
	cfg *config.Config,
	lgr *logger.Logger,
) *usecase.RefreshScheduler {
	if !cfg.Scheduler.Enabled {
		return nil
	}
	return usecase.NewRefreshScheduler(q, targets, cfg.Scheduler.RefreshSpec, alerts, lgr)
}

// ProvideApp assembles the application from everything above.
func ProvideApp(
    cfg *config.Config,
    lgr *logger.Logger,
    collector *usecase.ObservationCollector,
    consumer *pkgkafka.Consumer,
    kh *usecase.KafkaObservationsHandler,
    chClient *pkgch.Client,
    p *trend.Provider,
    q *queue.RedisQueue,
    sched *usecase.RefreshScheduler,
    builder *usecase.ReportBuilder,
    averages *usecase.AveragesUseCase,
    history *usecase.HistoryUseCase,
    overview *usecase.OverviewUseCase,
    alerts *usecase.AlertDispatcher,
) *server.App {
    // stamp start time and trace id onto every message context
    if consumer != nil {
        consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TracingHook{}))
    }
    app := server.New(cfg, collector, consumer, kh, chClient)
    app.SetLogger(lgr)
    app.SetQueue(q)
    app.SetScheduler(sched)
    app.SetUsecases(builder, averages, history, overview)
    app.SetAlerts(alerts)
    app.SetConfigReload(func(c *config.Config) {
        p.Swap(trend.New(engineConfig(c), trend.WithLogger(lgr)))
    })
    // attach observation processor to app for closing resources via collector
    if collector != nil {
        app.ObsProc = collector.Processor()
    }
    return app
}

// engineConfig maps the config file's engine section onto the engine's
// own config type. Invalid values are normalized inside trend.New.
func engineConfig(cfg *config.Config) trend.Config {
	return trend.Config{
		NoiseRatio:          cfg.Engine.NoiseRatio,
		VolatilityCap:       cfg.Engine.VolatilityCap,
		ConfidenceBase:      cfg.Engine.ConfidenceBase,
		ConfidenceCap:       cfg.Engine.ConfidenceCap,
		ConfidenceFloor:     cfg.Engine.ConfidenceFloor,
		ThresholdPeriod:     cfg.Engine.ThresholdPeriod,
		ThresholdMultiplier: cfg.Engine.ThresholdMultiplier,
		ShortPeriod:         cfg.Engine.ShortPeriod,
		LongPeriod:          cfg.Engine.LongPeriod,
		TrendLookback:       cfg.Engine.TrendLookback,
	}
}

func splitAddr(addr string) (string, int) {
	if addr == "" {
		return "localhost", 6379
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 6379
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, 6379
	}
	return host, port
}
