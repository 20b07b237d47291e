package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	domrepo "OpsPulse/internal/domain/repository"
	icache "OpsPulse/internal/service/cache"
	"OpsPulse/internal/service/metrics"
	"OpsPulse/internal/service/ratelimit"
	"OpsPulse/internal/usecase"
	"OpsPulse/pkg/http/middleware"
	applogger "OpsPulse/pkg/logger"
)

// ReportsHandler is the plain net/http surface for the analysis
// endpoints. The Echo handler is the primary API; this one exists for
// embedding into an existing mux without pulling in Echo.
type ReportsHandler struct {
	builder  *usecase.ReportBuilder
	overview *usecase.OverviewUseCase
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	l        *applogger.Logger
}

func NewReportsHandler(builder *usecase.ReportBuilder, overview *usecase.OverviewUseCase) *ReportsHandler {
	metrics.Register()
	return &ReportsHandler{builder: builder, overview: overview, rl: ratelimit.New()}
}

func (h *ReportsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *ReportsHandler) SetLogger(l *applogger.Logger) { h.l = l }

// Mount registers the report endpoints on mux with request metrics applied.
// Call SetLogger first if slow-request logging is wanted.
func (h *ReportsHandler) Mount(mux *http.ServeMux) {
	instrument := middleware.Metrics(h.l, 500*time.Millisecond)
	mux.Handle("GET /api/reports/trend", instrument(h.Trend()))
	mux.Handle("GET /api/reports/threshold", instrument(h.Threshold()))
	mux.Handle("GET /api/reports/overview", instrument(h.Overview()))
}

func (h *ReportsHandler) Trend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "trend"
		defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		metric := r.URL.Query().Get("metric")
		if metric == "" {
			if h.l != nil {
				h.l.Warn("reports.trend missing metric")
			}
			http.Error(w, "metric required", http.StatusBadRequest)
			return
		}
		limit := parseInt(r.URL.Query().Get("limit"), 168)
		short := parseInt(r.URL.Query().Get("short_period"), 0)
		long := parseInt(r.URL.Query().Get("long_period"), 0)
		win := domrepo.NormalizeWindow(r.URL.Query().Get("window"))
		if !h.rl.Allow(r.RemoteAddr+":trend", 5, 2) {
			if h.l != nil {
				h.l.Warn("reports.trend rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "trend:" + metric + ":" + string(win) + ":" + strconv.Itoa(short) + ":" + strconv.Itoa(long)
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("reports.trend cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("reports.trend cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("reports.trend write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("reports.trend cache_miss", applogger.String("key", cacheKey))
			}
		}
		res, err := h.builder.TrendReport(r.Context(), usecase.TrendParams{
			MetricID:    metric,
			Window:      win,
			Limit:       limit,
			ShortPeriod: short,
			LongPeriod:  long,
		})
		if err != nil {
			metrics.EngineErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.trend error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if len(res.ShortMA) == 0 && len(res.EMAShort) == 0 {
			metrics.DegradedInputs.WithLabelValues(endpoint).Inc()
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("reports.trend marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("reports.trend cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("reports.trend write_error", applogger.Error(err))
		}
	}
}

func (h *ReportsHandler) Threshold() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "threshold"
		defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		metric := r.URL.Query().Get("metric")
		if metric == "" {
			if h.l != nil {
				h.l.Warn("reports.threshold missing metric")
			}
			http.Error(w, "metric required", http.StatusBadRequest)
			return
		}
		limit := parseInt(r.URL.Query().Get("limit"), 168)
		period := parseInt(r.URL.Query().Get("period"), 0)
		mult := parseFloat(r.URL.Query().Get("multiplier"), 0)
		win := domrepo.NormalizeWindow(r.URL.Query().Get("window"))
		if !h.rl.Allow(r.RemoteAddr+":threshold", 5, 2) {
			if h.l != nil {
				h.l.Warn("reports.threshold rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "threshold:" + metric + ":" + string(win) + ":" + strconv.Itoa(period)
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("reports.threshold cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("reports.threshold cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("reports.threshold write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("reports.threshold cache_miss", applogger.String("key", cacheKey))
			}
		}
		res, err := h.builder.Threshold(r.Context(), usecase.ThresholdParams{
			MetricID:   metric,
			Window:     win,
			Limit:      limit,
			Period:     period,
			Multiplier: mult,
		})
		if err != nil {
			metrics.EngineErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.threshold error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if res.IsZero() {
			metrics.DegradedInputs.WithLabelValues(endpoint).Inc()
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("reports.threshold marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("reports.threshold cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("reports.threshold write_error", applogger.Error(err))
		}
	}
}

func (h *ReportsHandler) Overview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "overview"
		defer func() { metrics.EngineLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		window := r.URL.Query().Get("window")
		if !h.rl.Allow(r.RemoteAddr+":overview", 3, 1) {
			if h.l != nil {
				h.l.Warn("reports.overview rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := "overview:" + window
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("reports.overview cache_get_error", applogger.Error(err))
				}
			} else if ok {
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("reports.overview cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("reports.overview write_error", applogger.Error(err))
				}
				return
			}
			if h.l != nil {
				h.l.Debug("reports.overview cache_miss", applogger.String("key", cacheKey))
			}
		}
		res, err := h.overview.Overview(r.Context(), window)
		if err != nil {
			metrics.EngineErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("reports.overview error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("reports.overview marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(cacheKey, b, 15*time.Second); err != nil && h.l != nil {
				h.l.Warn("reports.overview cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("reports.overview write_error", applogger.Error(err))
		}
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
