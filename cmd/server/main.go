// Package main is the entry point for the calendar server. It loads
// configuration, connects to MariaDB and Redis, applies migrations, wires
// the calendar and note services, and runs the HTTP server and game clock
// until interrupted.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/keyxmakerx/chronicle-calendar/internal/app"
	"github.com/keyxmakerx/chronicle-calendar/internal/config"
	"github.com/keyxmakerx/chronicle-calendar/internal/database"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logFile := setupLogging(cfg)
	if logFile != nil {
		defer logFile.Close()
	}

	slog.Info("starting calendar server",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	// Stop on interrupt/term so container restarts drain cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	if _, err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		return err
	}

	// --- Connect to Redis ---
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	slog.Info("connected to Redis")

	// --- Create Application ---
	application, err := app.New(cfg, db, rdb)
	if err != nil {
		return err
	}
	application.RegisterRoutes()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return application.RunBackground(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		// Give in-flight requests 10 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return application.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// setupLogging configures the global slog logger. Development uses text
// format for readability, production uses JSON. When LOG_FILE is set logs
// also go to that file, rotated by size. The returned closer is nil when no
// file is used.
func setupLogging(cfg *config.Config) io.Closer {
	level := parseLevel(cfg.LogLevel)

	var out io.Writer = os.Stdout
	var file *lumberjack.Logger
	if cfg.LogFile != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, file)
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))

	if file == nil {
		return nil
	}
	return file
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
