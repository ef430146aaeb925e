// Package middleware provides HTTP middleware for the calendar API server.
// Middleware is applied globally in internal/app; see app.setupMiddleware for
// the order.
package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/chronicle-calendar/internal/metrics"
)

// RequestLogger returns middleware that logs every HTTP request with
// structured fields (method, path, status, latency, remote IP) and records
// its latency in the request duration histogram.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			// The error handler has not run yet; let it write the status
			// so the log line and metric see the real one.
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", latency),
				slog.String("remote_ip", c.RealIP()),
			}
			if req.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", req.URL.RawQuery))
			}
			if cid := c.Param("cid"); cid != "" {
				attrs = append(attrs, slog.String("calendar_id", cid))
			}

			level := slog.LevelInfo
			if res.Status >= 500 {
				level = slog.LevelError
			} else if res.Status >= 400 {
				level = slog.LevelWarn
			}
			slog.LogAttrs(req.Context(), level, "request", attrs...)

			metrics.RecordHTTPRequest(req.Method, routeLabel(c), strconv.Itoa(res.Status), latency.Seconds())

			return nil
		}
	}
}

// routeLabel is the matched route pattern, never the raw path, so metric
// cardinality stays bounded.
func routeLabel(c echo.Context) string {
	if route := c.Path(); route != "" {
		return route
	}
	return "unmatched"
}
