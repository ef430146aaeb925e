// Package app is the application bootstrap and dependency injection root.
// It creates the calendar and note services on top of the shared
// infrastructure (DB pool, Redis client, Echo instance) and wires their
// routes.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
	"github.com/keyxmakerx/chronicle-calendar/internal/config"
	"github.com/keyxmakerx/chronicle-calendar/internal/middleware"
	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
	"github.com/keyxmakerx/chronicle-calendar/internal/widgets/notes"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go.
type App struct {
	Config *config.Config

	// DB is the MariaDB pool holding calendar notes.
	DB *sql.DB

	// Redis holds calendar definitions and clocks.
	Redis *redis.Client

	Echo *echo.Echo

	Calendars calendar.CalendarService
	Notes     notes.NoteService

	// Clock is nil when the real-time clock is disabled.
	Clock *calendar.TimeKeeper

	limiter *middleware.RateLimiter
}

// New creates a new App with the given dependencies, builds the services,
// and configures the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*App, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() feeds rate limiting; trust forwarding headers only from
	// the reverse proxy's network.
	proxies := cfg.TrustedProxies
	if len(proxies) == 0 {
		proxies = middleware.DefaultTrustedProxies
	}
	if err := middleware.TrustedProxies(e, proxies); err != nil {
		return nil, err
	}

	calendars := calendar.NewCalendarService(calendar.NewConfigStore(rdb))
	app := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Echo:      e,
		Calendars: calendars,
		Notes:     notes.NewNoteService(notes.NewNoteRepository(db), calendars),
	}
	if cfg.Clock.Enabled {
		app.Clock = calendar.NewTimeKeeper(calendars)
	}
	if cfg.RateLimit.Requests > 0 {
		app.limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app, nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders())

	// Virtual tabletop modules call the API from their own origin.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: a.Config.CORSOrigins,
		AllowHeaders:   []string{notes.AuthorHeader},
	}))

	if a.limiter != nil {
		a.Echo.Use(a.limiter.Middleware(func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/healthz" || p == "/metrics"
		}))
	}
}

// errorHandler maps domain errors (AppError) and Echo's HTTP errors to a
// JSON response. Everything else is logged and reported as a 500.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)
	errType := "internal_error"

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		errType = appErr.Type
		if appErr.RetryAfter > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
		}

		// Log internal errors with the underlying cause.
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		errType = "http_error"
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{
		"error":   http.StatusText(code),
		"type":    errType,
		"message": message,
	})
}

// defaultErrorMessage returns a user-friendly message for common HTTP status
// codes when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusNotFound:
		return "The requested resource does not exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusConflict:
		return "This action conflicts with the current state."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "Something went wrong on our end. Please try again."
	}
}

// RunBackground runs the clock scheduler and the rate limiter sweep until
// ctx is done, starting the configured autostart clocks first.
func (a *App) RunBackground(ctx context.Context) error {
	if a.limiter != nil {
		go a.limiter.Run(ctx)
	}
	if a.Clock == nil {
		<-ctx.Done()
		return nil
	}
	for _, id := range a.Config.Clock.Autostart {
		if err := a.Clock.Start(ctx, id); err != nil {
			slog.Warn("clock autostart failed",
				slog.String("calendar_id", id),
				slog.Any("error", err),
			)
		}
	}
	return a.Clock.Run(ctx)
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting calendar server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

// calendarsWithNotes deletes a calendar's notes and stops its clock along
// with the calendar itself.
type calendarsWithNotes struct {
	calendar.CalendarService
	notes notes.NoteService
	clock *calendar.TimeKeeper
}

func (s calendarsWithNotes) DeleteCalendar(ctx context.Context, calendarID string) error {
	if s.clock != nil {
		s.clock.Pause(calendarID)
	}
	if err := s.CalendarService.DeleteCalendar(ctx, calendarID); err != nil {
		return err
	}
	if err := s.notes.DeleteAll(ctx, calendarID); err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting notes of %s: %w", calendarID, err))
	}
	return nil
}
