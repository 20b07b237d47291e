package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	applogger "OpsPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover converts a handler panic into a plain JSON 500 so one bad
// request cannot take the server down.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				cause, ok := r.(error)
				if !ok {
					cause = fmt.Errorf("%v", r)
				}
				logPanic(l, c, cause)
				err = c.JSON(http.StatusInternalServerError, map[string]any{
					"status":  http.StatusInternalServerError,
					"message": "Internal Server Error",
				})
			}()
			return next(c)
		}
	}
}

// logPanic writes the stack through the app logger, falling back to the
// standard logger so a panic is never silent.
func logPanic(l *applogger.Logger, c echo.Context, cause error) {
	if l == nil {
		log.Printf("PANIC %s: %v\n%s", c.Request().RequestURI, cause, debug.Stack())
		return
	}
	l.Error("panic recovered",
		applogger.Error(cause),
		applogger.String("uri", c.Request().RequestURI),
		applogger.String("stack", string(debug.Stack())),
	)
}
