package notes

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all note routes under a calendar.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	ng := e.Group("/api/v1/calendars/:cid/notes")

	// Queries by date. Registered before /:noteId so they are not shadowed.
	ng.GET("/day", h.Day)
	ng.GET("/upcoming", h.Upcoming)
	ng.POST("/between", h.Between)

	// CRUD.
	ng.GET("", h.List)
	ng.POST("", h.Create)
	ng.PUT("/order", h.Reorder)
	ng.POST("/import", h.Import)
	ng.GET("/:noteId", h.Get)
	ng.PUT("/:noteId", h.Update)
	ng.DELETE("/:noteId", h.Delete)
}
