package calendar

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// maxUploadBytes bounds import and migration payloads.
const maxUploadBytes = 10 * 1024 * 1024

// Handler processes HTTP requests for the calendar plugin.
type Handler struct {
	svc    CalendarService
	keeper *TimeKeeper
}

// NewHandler creates a new calendar Handler. keeper may be nil, in which case
// the clock endpoints respond 503.
func NewHandler(svc CalendarService, keeper *TimeKeeper) *Handler {
	return &Handler{svc: svc, keeper: keeper}
}

// --- Calendar CRUD ---

// ListCalendarsAPI returns the IDs of all calendars.
// GET /api/v1/calendars
func (h *Handler) ListCalendarsAPI(c echo.Context) error {
	ids, err := h.svc.ListCalendars(c.Request().Context())
	if err != nil {
		return err
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"calendars": ids})
}

// CreateCalendarAPI creates a calendar from a JSON configuration.
// POST /api/v1/calendars/:cid
func (h *Handler) CreateCalendarAPI(c echo.Context) error {
	var cfg Config
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	def, err := h.svc.CreateCalendar(c.Request().Context(), c.Param("cid"), cfg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, def.Config())
}

// GetCalendarAPI returns the calendar's normalized configuration.
// GET /api/v1/calendars/:cid
func (h *Handler) GetCalendarAPI(c echo.Context) error {
	def, err := h.svc.GetDefinition(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, def.Config())
}

// ReplaceCalendarAPI replaces the whole configuration.
// PUT /api/v1/calendars/:cid
func (h *Handler) ReplaceCalendarAPI(c echo.Context) error {
	var cfg Config
	if err := c.Bind(&cfg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	def, err := h.svc.ReplaceConfig(c.Request().Context(), c.Param("cid"), cfg)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, def.Config())
}

// DeleteCalendarAPI deletes the calendar.
// DELETE /api/v1/calendars/:cid
func (h *Handler) DeleteCalendarAPI(c echo.Context) error {
	if err := h.svc.DeleteCalendar(c.Request().Context(), c.Param("cid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// updateSection binds a request body into one part of the configuration.
func updateSection[T any](h *Handler, c echo.Context, apply func(cfg *Config, v T)) error {
	var v T
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	def, err := h.svc.UpdateConfig(c.Request().Context(), c.Param("cid"), func(cfg *Config) error {
		apply(cfg, v)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, def.Config())
}

// UpdateMonthsAPI replaces all months.
// PUT /api/v1/calendars/:cid/months
func (h *Handler) UpdateMonthsAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v []Month) { cfg.Months = v })
}

// UpdateWeekdaysAPI replaces all weekdays.
// PUT /api/v1/calendars/:cid/weekdays
func (h *Handler) UpdateWeekdaysAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v []Weekday) { cfg.Weekdays = v })
}

// UpdateMoonsAPI replaces all moons.
// PUT /api/v1/calendars/:cid/moons
func (h *Handler) UpdateMoonsAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v []Moon) { cfg.Moons = v })
}

// UpdateSeasonsAPI replaces all seasons.
// PUT /api/v1/calendars/:cid/seasons
func (h *Handler) UpdateSeasonsAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v []Season) { cfg.Seasons = v })
}

// UpdateLeapYearAPI sets the leap year rule.
// PUT /api/v1/calendars/:cid/leap-year
func (h *Handler) UpdateLeapYearAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v LeapRuleConfig) {
		cfg.LeapYear = v
		cfg.CustomLeap = nil
	})
}

// UpdateYearAPI sets the year settings.
// PUT /api/v1/calendars/:cid/year
func (h *Handler) UpdateYearAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v YearConfig) { cfg.Year = v })
}

// UpdateTimeAPI sets the time settings.
// PUT /api/v1/calendars/:cid/time
func (h *Handler) UpdateTimeAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v TimeConfig) { cfg.Time = v })
}

// UpdateGeneralAPI sets the general settings.
// PUT /api/v1/calendars/:cid/general
func (h *Handler) UpdateGeneralAPI(c echo.Context) error {
	return updateSection(h, c, func(cfg *Config, v GeneralSettings) { cfg.General = v })
}

// --- Conversions ---

// ToSecondsAPI converts a date to linear seconds.
// POST /api/v1/calendars/:cid/to-seconds
func (h *Handler) ToSecondsAPI(c echo.Context) error {
	var p DateTimeParts
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	e, err := h.svc.Engine(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	secs, err := e.ToLinearSeconds(p)
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, map[string]int64{"seconds": secs})
}

// FromSecondsAPI converts linear seconds to a date.
// GET /api/v1/calendars/:cid/from-seconds?seconds=N
func (h *Handler) FromSecondsAPI(c echo.Context) error {
	secs, err := strconv.ParseInt(c.QueryParam("seconds"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "seconds must be an integer")
	}
	e, err := h.svc.Engine(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	p, err := e.FromLinearSeconds(secs)
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// DateInfo describes one calendar day.
type DateInfo struct {
	Date        DateTimeParts     `json:"date"`
	Seconds     int64             `json:"seconds"`
	Weekday     int               `json:"weekday"`
	WeekdayName string            `json:"weekday_name,omitempty"`
	MonthName   string            `json:"month_name"`
	Year        string            `json:"year"`
	YearName    string            `json:"year_name,omitempty"`
	LeapYear    bool              `json:"leap_year"`
	Season      *Season           `json:"season,omitempty"`
	Moons       []MoonPhaseResult `json:"moons"`
}

// DescribeDate gathers everything known about p's day.
func DescribeDate(e *Engine, p DateTimeParts) (*DateInfo, error) {
	def := e.Definition()
	secs, err := e.ToLinearSeconds(p)
	if err != nil {
		return nil, err
	}
	wd, err := e.WeekdayFor(p)
	if err != nil {
		return nil, err
	}
	name, err := def.WeekdayName(p)
	if err != nil {
		return nil, err
	}
	season, err := def.SeasonFor(p)
	if err != nil {
		return nil, err
	}
	moons, err := def.MoonsOn(p)
	if err != nil {
		return nil, err
	}
	if moons == nil {
		moons = []MoonPhaseResult{}
	}
	return &DateInfo{
		Date:        p,
		Seconds:     secs,
		Weekday:     wd,
		WeekdayName: name,
		MonthName:   def.cfg.Months[p.Month].Name,
		Year:        def.FormatYear(p.Year),
		YearName:    def.YearName(p.Year),
		LeapYear:    def.IsLeapYear(p.Year),
		Season:      season,
		Moons:       moons,
	}, nil
}

// DateInfoAPI describes the day given by year, month (0-based) and day.
// GET /api/v1/calendars/:cid/date?year=Y&month=M&day=D
func (h *Handler) DateInfoAPI(c echo.Context) error {
	p, err := DateFromQuery(c)
	if err != nil {
		return err
	}
	e, err := h.svc.Engine(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	info, err := DescribeDate(e, p)
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, info)
}

// MonthView is one month laid out for display.
type MonthView struct {
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Name         string    `json:"name"`
	Days         int       `json:"days"`
	FirstWeekday int       `json:"first_weekday"`
	Weekdays     []Weekday `json:"weekdays"`
}

// MonthAPI returns a month's length and the weekday of its first day.
// GET /api/v1/calendars/:cid/month?year=Y&month=M
func (h *Handler) MonthAPI(c echo.Context) error {
	year, err := IntQuery(c, "year")
	if err != nil {
		return err
	}
	month, err := IntQuery(c, "month")
	if err != nil {
		return err
	}
	e, err := h.svc.Engine(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	def := e.Definition()
	days, err := def.MonthDays(year, month)
	if err != nil {
		return toAppError(err)
	}
	wd, err := e.WeekdayFor(DateTimeParts{Year: year, Month: month, Day: 1})
	if err != nil {
		return toAppError(err)
	}
	return c.JSON(http.StatusOK, MonthView{
		Year:         year,
		Month:        month,
		Name:         def.cfg.Months[month].Name,
		Days:         days,
		FirstWeekday: wd,
		Weekdays:     def.Weekdays(),
	})
}

// recurrenceRequest evaluates a note's recurrence without storing it.
type recurrenceRequest struct {
	Note  Note           `json:"note"`
	Date  DateTimeParts  `json:"date"`
	To    *DateTimeParts `json:"to,omitempty"`
	Limit int            `json:"limit,omitempty"`
}

// RecurrenceAPI answers OccursOn, NextOccurrence and, when "to" is given,
// OccurrencesBetween for an ad hoc note.
// POST /api/v1/calendars/:cid/recurrence
func (h *Handler) RecurrenceAPI(c echo.Context) error {
	var req recurrenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	if req.Note.Repeat == "" {
		req.Note.Repeat = RepeatNone
	}
	e, err := h.svc.Engine(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	occurs, err := e.OccursOn(req.Note, req.Date)
	if err != nil {
		return toAppError(err)
	}
	resp := map[string]any{"occurs": occurs}
	if next, ok, err := e.NextOccurrence(req.Note, req.Date); err != nil {
		return toAppError(err)
	} else if ok {
		resp["next"] = next
	}
	if req.To != nil {
		limit := req.Limit
		if limit <= 0 || limit > 1000 {
			limit = 1000
		}
		between, err := e.OccurrencesBetween(req.Note, req.Date, *req.To, limit)
		if err != nil {
			return toAppError(err)
		}
		resp["occurrences"] = between
	}
	return c.JSON(http.StatusOK, resp)
}

// --- Clock ---

// CurrentTimeAPI returns the calendar's current date.
// GET /api/v1/calendars/:cid/current
func (h *Handler) CurrentTimeAPI(c echo.Context) error {
	p, secs, err := h.svc.CurrentTime(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.clockResponse(c.Param("cid"), p, secs))
}

// SetCurrentTimeAPI sets the calendar's current date.
// PUT /api/v1/calendars/:cid/current
func (h *Handler) SetCurrentTimeAPI(c echo.Context) error {
	var p DateTimeParts
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	secs, err := h.svc.SetCurrentTime(c.Request().Context(), c.Param("cid"), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.clockResponse(c.Param("cid"), p, secs))
}

// AdvanceTimeAPI moves the current time by days, hours, minutes and seconds.
// Negative values move it back.
// POST /api/v1/calendars/:cid/advance
func (h *Handler) AdvanceTimeAPI(c echo.Context) error {
	var req struct {
		Days    int64 `json:"days"`
		Hours   int64 `json:"hours"`
		Minutes int64 `json:"minutes"`
		Seconds int64 `json:"seconds"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	ctx := c.Request().Context()
	def, err := h.svc.GetDefinition(ctx, c.Param("cid"))
	if err != nil {
		return err
	}
	delta, err := def.Duration(req.Days, req.Hours, req.Minutes, req.Seconds)
	if err != nil {
		return toAppError(err)
	}
	if delta == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "must advance by a non-zero amount")
	}
	p, secs, err := h.svc.AdvanceTime(ctx, c.Param("cid"), delta)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.clockResponse(c.Param("cid"), p, secs))
}

func (h *Handler) clockResponse(calendarID string, p DateTimeParts, secs int64) map[string]any {
	running := h.keeper != nil && h.keeper.Running(calendarID)
	return map[string]any{
		"current": p,
		"seconds": secs,
		"running": running,
	}
}

// StartClockAPI starts the game clock.
// POST /api/v1/calendars/:cid/clock/start
func (h *Handler) StartClockAPI(c echo.Context) error {
	if h.keeper == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "clock is disabled")
	}
	if err := h.keeper.Start(c.Request().Context(), c.Param("cid")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"running": true})
}

// PauseClockAPI pauses the game clock.
// POST /api/v1/calendars/:cid/clock/pause
func (h *Handler) PauseClockAPI(c echo.Context) error {
	if h.keeper == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "clock is disabled")
	}
	h.keeper.Pause(c.Param("cid"))
	return c.JSON(http.StatusOK, map[string]bool{"running": false})
}

// --- Import / export ---

// ExportCalendarAPI returns the calendar as a downloadable JSON file.
// GET /api/v1/calendars/:cid/export
func (h *Handler) ExportCalendarAPI(c echo.Context) error {
	export, err := h.svc.ExportCalendar(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	c.Response().Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s-calendar.json"`, c.Param("cid")))
	return c.JSON(http.StatusOK, export)
}

// ImportCalendarAPI handles calendar import from an uploaded JSON file.
// Accepts Simple Calendar, Calendaria, Fantasy-Calendar and native exports.
// With ?preview=true the parsed result is returned without being applied.
// POST /api/v1/calendars/:cid/import
func (h *Handler) ImportCalendarAPI(c echo.Context) error {
	data, err := ReadUpload(c)
	if err != nil {
		return err
	}

	if c.QueryParam("preview") == "true" {
		result, err := DetectAndParse(data)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, result)
	}

	result, err := h.svc.ImportCalendar(c.Request().Context(), c.Param("cid"), data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"format":   result.Format,
		"name":     result.Config.Name,
		"months":   len(result.Config.Months),
		"weekdays": len(result.Config.Weekdays),
		"moons":    len(result.Config.Moons),
		"seasons":  len(result.Config.Seasons),
		"notes":    len(result.Notes),
	})
}

// MigrateCalendarAPI upgrades a stored record from an older release.
// POST /api/v1/calendars/:cid/migrate
func (h *Handler) MigrateCalendarAPI(c echo.Context) error {
	data, err := ReadUpload(c)
	if err != nil {
		return err
	}
	migrated, err := h.svc.MigrateLegacy(c.Request().Context(), c.Param("cid"), data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"migrated": migrated,
		"version":  CurrentSchemaVersion,
	})
}

// ReadUpload reads a multipart "file" field, falling back to the raw body.
func ReadUpload(c echo.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
		}
		defer src.Close()
		data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxUploadBytes))
	if err != nil || len(data) == 0 {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "no file uploaded and no JSON body")
	}
	return data, nil
}

// --- Query helpers ---

// IntQuery parses a required integer query parameter.
func IntQuery(c echo.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}

// DateFromQuery reads year, month and day query parameters.
func DateFromQuery(c echo.Context) (DateTimeParts, error) {
	var p DateTimeParts
	var err error
	if p.Year, err = IntQuery(c, "year"); err != nil {
		return p, err
	}
	if p.Month, err = IntQuery(c, "month"); err != nil {
		return p, err
	}
	if p.Day, err = IntQuery(c, "day"); err != nil {
		return p, err
	}
	return p, nil
}
