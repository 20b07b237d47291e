package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"OpsPulse/internal/handler/api"
	"OpsPulse/internal/usecase"
	pkgch "OpsPulse/pkg/clickhouse"
	"OpsPulse/pkg/config"
	xhttp "OpsPulse/pkg/http"
	pkgkafka "OpsPulse/pkg/kafka"
	applogger "OpsPulse/pkg/logger"
	"OpsPulse/pkg/queue"

	"github.com/labstack/echo/v4"
)

// App owns the process lifecycle. Run boots the components in
// dependency order, serves until a signal arrives, and unwinds them in
// reverse.
type App struct {
	cfg         *config.Config
	collector   *usecase.ObservationCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	ObsProc     *usecase.ObservationProcessor

	l          *applogger.Logger
	queue      *queue.RedisQueue
	scheduler  *usecase.RefreshScheduler
	builder    *usecase.ReportBuilder
	averages   *usecase.AveragesUseCase
	history    *usecase.HistoryUseCase
	overview   *usecase.OverviewUseCase
	alerts     *usecase.AlertDispatcher
	watcher    *config.Watcher
	configPath string
	onReload   func(*config.Config)
}

// New bundles the components every deployment has. Optional ones arrive
// through the setters before Run.
func New(
	cfg *config.Config,
	collector *usecase.ObservationCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler overrides the API handler mounted on the server.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetLogger injects the application logger.
func (a *App) SetLogger(l *applogger.Logger) { a.l = l }

// SetQueue injects the background job queue.
func (a *App) SetQueue(q *queue.RedisQueue) { a.queue = q }

// SetScheduler injects the refresh sweep. May be nil when disabled.
func (a *App) SetScheduler(s *usecase.RefreshScheduler) { a.scheduler = s }

// SetUsecases injects the read-side use cases backing the HTTP API.
func (a *App) SetUsecases(
	builder *usecase.ReportBuilder,
	averages *usecase.AveragesUseCase,
	history *usecase.HistoryUseCase,
	overview *usecase.OverviewUseCase,
) {
	a.builder = builder
	a.averages = averages
	a.history = history
	a.overview = overview
}

// SetAlerts injects the alert dispatcher.
func (a *App) SetAlerts(d *usecase.AlertDispatcher) { a.alerts = d }

// SetConfigReload installs the callback invoked when the watched config
// file changes. Watching only starts once SetConfigPath is also called.
func (a *App) SetConfigReload(fn func(*config.Config)) { a.onReload = fn }

// SetConfigPath tells the app which file to watch for engine reloads.
func (a *App) SetConfigPath(path string) { a.configPath = path }

// Run boots every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.ensureLogger()
	a.buildHTTPServer(l)
	a.startIngest(ctx, l)
	a.startBackground(ctx, l)

	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// ensureLogger falls back to a console logger when none was injected
// and, when a queue is present, starts batching warn and error lines
// onto it for shipping.
func (a *App) ensureLogger() *applogger.Logger {
	if a.l == nil {
		l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		if err != nil {
			l = applogger.NewNop()
		}
		a.l = l
	}

	if a.queue != nil {
		a.l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          usecase.LogsMessageType,
			Publisher:      a.queue,
		})
	}
	return a.l
}

// buildHTTPServer assembles the Echo server with the API routes and the
// health probe.
func (a *App) buildHTTPServer(l *applogger.Logger) {
	h := a.httpHandler
	if h == nil && a.builder != nil {
		h = api.NewReportsEchoHandler(l, a.builder, a.averages, a.history, a.overview)
	}

	a.httpServer = xhttp.NewServer(h,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsEndpoint(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
		xhttp.WithLogger(l),
	)
	a.registerHealth()
}

// startIngest launches the feed collector and, when configured, the
// Kafka consumer.
func (a *App) startIngest(ctx context.Context, l *applogger.Logger) {
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("metrics", a.cfg.MetricIDs()))

	if a.consumer == nil || a.kh == nil {
		return
	}
	a.consumer.RegisterHandler(a.kh)
	go func() {
		if err := a.consumer.Start(); err != nil {
			l.Error("kafka consumer error", applogger.Error(err))
		}
	}()
	l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
}

// startBackground brings up the job queue, the refresh sweep, and the
// config watcher. A failure here degrades the app but does not stop it.
func (a *App) startBackground(ctx context.Context, l *applogger.Logger) {
	if a.queue != nil {
		if err := a.queue.Start(); err != nil {
			l.Error("queue start error", applogger.Error(err))
		} else {
			l.Info("queue workers started", applogger.Int("workers", a.cfg.Queue.Workers))
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Start(); err != nil {
			l.Error("scheduler start error", applogger.Error(err))
		} else {
			l.Info("refresh scheduler started", applogger.String("spec", a.cfg.Scheduler.RefreshSpec))
		}
	}

	if a.configPath == "" || a.onReload == nil {
		return
	}
	w, err := config.NewWatcher(a.configPath, l, a.onReload)
	if err != nil {
		l.Warn("config watcher error", applogger.Error(err))
		return
	}
	if err := w.Start(ctx); err != nil {
		l.Warn("config watcher start error", applogger.Error(err))
		return
	}
	a.watcher = w
}

// registerHealth mounts the probe endpoint. Each dependency is checked
// separately so operators can see which one is failing.
func (a *App) registerHealth() {
	a.httpServer.Echo().GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		if a.chClient != nil {
			if err := a.chClient.Health(ctx); err != nil {
				checks["clickhouse"] = err.Error()
				healthy = false
			} else {
				checks["clickhouse"] = "ok"
			}
		}
		if a.queue != nil {
			if err := a.queue.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return xhttp.DataResponse(c, status, checks)
	})
}

// shutdown unwinds in reverse boot order. The sweep stops first so no
// new jobs land in the queue while the workers drain.
func (a *App) shutdown(ctx context.Context) error {
	l := a.l
	l.Info("shutting down...")

	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	if a.queue != nil {
		if err := a.queue.Stop(shutdownCtx); err != nil {
			l.Warn("queue stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.alerts != nil {
		if err := a.alerts.Close(); err != nil {
			l.Warn("alert sink close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.ObsProc != nil {
		a.ObsProc.Close()
	}

	l.RemoveCollector()
	l.Info("shutdown complete")
	return nil
}
