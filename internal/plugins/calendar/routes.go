package calendar

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all calendar routes under /api/v1/calendars.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/api/v1/calendars", h.ListCalendarsAPI)

	cg := e.Group("/api/v1/calendars/:cid")

	// Definition CRUD.
	cg.POST("", h.CreateCalendarAPI)
	cg.GET("", h.GetCalendarAPI)
	cg.PUT("", h.ReplaceCalendarAPI)
	cg.DELETE("", h.DeleteCalendarAPI)

	// Partial definition updates.
	cg.PUT("/months", h.UpdateMonthsAPI)
	cg.PUT("/weekdays", h.UpdateWeekdaysAPI)
	cg.PUT("/moons", h.UpdateMoonsAPI)
	cg.PUT("/seasons", h.UpdateSeasonsAPI)
	cg.PUT("/leap-year", h.UpdateLeapYearAPI)
	cg.PUT("/year", h.UpdateYearAPI)
	cg.PUT("/time", h.UpdateTimeAPI)
	cg.PUT("/general", h.UpdateGeneralAPI)

	// Date arithmetic.
	cg.POST("/to-seconds", h.ToSecondsAPI)
	cg.GET("/from-seconds", h.FromSecondsAPI)
	cg.GET("/date", h.DateInfoAPI)
	cg.GET("/month", h.MonthAPI)
	cg.POST("/recurrence", h.RecurrenceAPI)

	// Clock.
	cg.GET("/current", h.CurrentTimeAPI)
	cg.PUT("/current", h.SetCurrentTimeAPI)
	cg.POST("/advance", h.AdvanceTimeAPI)
	cg.POST("/clock/start", h.StartClockAPI)
	cg.POST("/clock/pause", h.PauseClockAPI)

	// Import / export.
	cg.GET("/export", h.ExportCalendarAPI)
	cg.POST("/import", h.ImportCalendarAPI)
	cg.POST("/migrate", h.MigrateCalendarAPI)
}
