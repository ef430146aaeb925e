package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
	"github.com/keyxmakerx/chronicle-calendar/internal/metrics"
)

// Recovery turns a handler panic into an internal AppError so the client
// gets the usual JSON error body. The stack and the calendar being served
// are logged, and the panic is counted per route.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (returnErr error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				route := routeLabel(c)
				attrs := []any{
					slog.Any("panic", r),
					slog.String("method", c.Request().Method),
					slog.String("route", route),
					slog.String("stack", string(debug.Stack())),
				}
				if cid := c.Param("cid"); cid != "" {
					attrs = append(attrs, slog.String("calendar_id", cid))
				}
				slog.Error("handler panic", attrs...)
				metrics.RecordPanic(route)

				returnErr = apperror.NewInternal(fmt.Errorf("panic in %s: %v", route, r))
			}()

			return next(c)
		}
	}
}
