package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests. Use ["*"] to allow all.
	// Example: ["https://foundry.example.com", "http://localhost:30000"]
	AllowedOrigins []string

	// AllowCredentials indicates whether the browser should include cookies
	// and auth headers in cross-origin requests.
	AllowCredentials bool

	// AllowHeaders are extra request headers clients may send, such as the
	// note author header.
	AllowHeaders []string
}

// CORS lets virtual tabletop modules call the calendar API from their own
// origin.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	// SECURITY: a wildcard origin with credentials lets any site make
	// authenticated requests.
	if slices.Contains(cfg.AllowedOrigins, "*") && cfg.AllowCredentials {
		slog.Warn("CORS misconfiguration: AllowedOrigins=['*'] with AllowCredentials=true; credentials will not be sent")
		cfg.AllowCredentials = false
	}

	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:     append([]string{echo.HeaderContentType, echo.HeaderAuthorization}, cfg.AllowHeaders...),
		AllowCredentials: cfg.AllowCredentials,
		// Clients read the export file name and the rate limit backoff.
		ExposeHeaders: []string{echo.HeaderContentDisposition, "Retry-After"},
		MaxAge:        3600,
	})
}
