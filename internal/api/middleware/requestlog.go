package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDHeader = "X-Request-ID"

// RequestLog returns Echo middleware that logs requests with structured fields.
// It generates a request ID if none is provided and propagates it through
// the response header and echo context.
//
// Probe endpoints (/healthz, /readyz) are treated specially so that a scraper
// polling every few seconds does not flood the log: the first success on each
// probe path is logged, further successes are suppressed, and any non-2xx
// probe response is always logged at Warn.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var mu sync.Mutex
	probeOK := make(map[string]bool)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set("request_id", reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status
			fields := []any{
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			}

			if path == "/healthz" || path == "/readyz" {
				if status >= 200 && status < 300 {
					mu.Lock()
					seen := probeOK[path]
					probeOK[path] = true
					mu.Unlock()

					if !seen {
						log.Info("request", fields...)
					}
				} else {
					log.Warn("request", fields...)
				}
				return err
			}

			log.Info("request", fields...)

			return err
		}
	}
}
