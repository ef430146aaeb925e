package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
	"github.com/keyxmakerx/chronicle-calendar/internal/widgets/notes"
)

// RegisterRoutes sets up all application routes. This is the single place
// where the calendar and note routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	e.GET("/healthz", a.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Calendar API ---
	calendars := calendarsWithNotes{CalendarService: a.Calendars, notes: a.Notes, clock: a.Clock}
	calendar.RegisterRoutes(e, calendar.NewHandler(calendars, a.Clock))

	// --- Notes API ---
	notes.RegisterRoutes(e, notes.NewHandler(a.Notes, a.Calendars))
}

// health reports whether MariaDB and Redis answer.
func (a *App) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "mariadb": "ok", "redis": "ok"}
	code := http.StatusOK
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			status["mariadb"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			status["redis"], status["status"], code = err.Error(), "degraded", http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}
