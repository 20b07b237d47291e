package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	applogger "OpsPulse/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opspulse",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Requests served by the embeddable report endpoints",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opspulse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"route", "method", "class"},
	)

	httpInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "opspulse",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being served",
		},
		[]string{"route"},
	)

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opspulse",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Response body size in bytes",
			Buckets:   []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576},
		},
		[]string{"route", "class"},
	)

	regOnce sync.Once
)

// Metrics instruments a plain net/http handler with request counters, latency
// and size histograms, and an in-flight gauge under opspulse_http_* on the
// shared registry. Responses with a 5xx status are logged as errors and
// requests slower than slowThreshold as warnings; a nil logger disables
// logging and a zero threshold disables the slow log.
func Metrics(l *applogger.Logger, slowThreshold time.Duration) func(http.Handler) http.Handler {
	regOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInFlight, httpResponseSize)
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeLabel(r)

			httpInFlight.WithLabelValues(route).Inc()
			start := time.Now()

			sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			status := strconv.Itoa(sw.code)
			class := statusClass(sw.code)

			httpRequestsTotal.WithLabelValues(route, r.Method, status).Inc()
			httpRequestDuration.WithLabelValues(route, r.Method, class).Observe(elapsed.Seconds())
			httpResponseSize.WithLabelValues(route, class).Observe(float64(sw.bytes))
			httpInFlight.WithLabelValues(route).Dec()

			if l == nil {
				return
			}
			if sw.code >= http.StatusInternalServerError {
				l.Error("http request failed",
					applogger.String("route", route),
					applogger.String("method", r.Method),
					applogger.String("status", status),
					applogger.Duration("duration", elapsed),
					applogger.Int("bytes", sw.bytes),
				)
				return
			}
			if slowThreshold > 0 && elapsed >= slowThreshold {
				l.Warn("http request slow",
					applogger.String("route", route),
					applogger.String("method", r.Method),
					applogger.String("status", status),
					applogger.Duration("duration", elapsed),
					applogger.Int("bytes", sw.bytes),
				)
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// routeLabel keeps label cardinality bounded: the ServeMux pattern the
// request matched when one is set, the raw path otherwise.
func routeLabel(r *http.Request) string {
	if p := r.Pattern; p != "" {
		// patterns may carry a method prefix ("GET /api/reports/trend")
		if i := strings.IndexByte(p, ' '); i >= 0 {
			p = p[i+1:]
		}
		return p
	}
	return r.URL.Path
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
