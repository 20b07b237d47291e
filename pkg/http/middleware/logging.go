package middleware

import (
	"log"
	"net/http"
	"time"

	applogger "OpsPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request through the app logger, falling
// back to the standard logger when none is set. Paths in skip are not
// logged; the server passes its scrape path here so Prometheus polling
// does not drown out real traffic.
func RequestLogging(l *applogger.Logger, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		if p != "" {
			skipped[p] = struct{}{}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if _, ok := skipped[req.URL.Path]; ok {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			latency := time.Since(start)
			res := c.Response()

			if l == nil {
				log.Printf("[%s] %s %s - %d (%s)",
					req.Method,
					req.RequestURI,
					req.RemoteAddr,
					res.Status,
					latency,
				)
				return err
			}

			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", req.RemoteAddr),
				applogger.Int("status", res.Status),
				applogger.Duration("latency", latency),
			}
			if err != nil {
				fields = append(fields, applogger.Error(err))
			}
			if err != nil || res.Status >= http.StatusInternalServerError {
				l.Error("http request", fields...)
			} else {
				l.Info("http request", fields...)
			}
			return err
		}
	}
}
