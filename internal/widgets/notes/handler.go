package notes

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
)

// AuthorHeader names the request header carrying the note author.
const AuthorHeader = "X-Chronicle-User"

// Clock reports a calendar's current date. calendar.CalendarService
// satisfies it.
type Clock interface {
	CurrentTime(ctx context.Context, calendarID string) (calendar.DateTimeParts, int64, error)
}

// Handler handles HTTP requests for note operations. Handlers are thin:
// bind request, call service, render response. No business logic lives here.
type Handler struct {
	service NoteService
	clock   Clock
}

// NewHandler creates a new note handler backed by the given service.
func NewHandler(service NoteService, clock Clock) *Handler {
	return &Handler{service: service, clock: clock}
}

// List returns the calendar's notes (GET /api/v1/calendars/:cid/notes).
// Supports ?visible=true and ?category=<name>.
func (h *Handler) List(c echo.Context) error {
	notes, err := h.service.List(c.Request().Context(), c.Param("cid"), filterFromQuery(c))
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []Note{}
	}
	return c.JSON(http.StatusOK, notes)
}

// Create adds a new note (POST /api/v1/calendars/:cid/notes).
func (h *Handler) Create(c echo.Context) error {
	var req CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}

	note, err := h.service.Create(c.Request().Context(), c.Param("cid"), author(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

// Get returns one note (GET /api/v1/calendars/:cid/notes/:noteId).
func (h *Handler) Get(c echo.Context) error {
	note, err := h.service.GetByID(c.Request().Context(), c.Param("cid"), c.Param("noteId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Update modifies a note (PUT /api/v1/calendars/:cid/notes/:noteId).
func (h *Handler) Update(c echo.Context) error {
	var req UpdateNoteRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}

	note, err := h.service.Update(c.Request().Context(), c.Param("cid"), c.Param("noteId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Delete removes a note (DELETE /api/v1/calendars/:cid/notes/:noteId).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("cid"), c.Param("noteId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder sets the display order (PUT /api/v1/calendars/:cid/notes/order).
func (h *Handler) Reorder(c echo.Context) error {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	if err := h.service.Reorder(c.Request().Context(), c.Param("cid"), req.IDs); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Day returns the notes on one day
// (GET /api/v1/calendars/:cid/notes/day?year=&month=&day=).
func (h *Handler) Day(c echo.Context) error {
	day, err := calendar.DateFromQuery(c)
	if err != nil {
		return err
	}
	notes, err := h.service.OnDay(c.Request().Context(), c.Param("cid"), day, filterFromQuery(c))
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []Note{}
	}
	return c.JSON(http.StatusOK, notes)
}

// Upcoming returns the next occurrences after a day, or after the calendar's
// current date when no day is given
// (GET /api/v1/calendars/:cid/notes/upcoming?limit=).
func (h *Handler) Upcoming(c echo.Context) error {
	ctx := c.Request().Context()
	cid := c.Param("cid")

	var after calendar.DateTimeParts
	var err error
	if c.QueryParam("year") != "" {
		if after, err = calendar.DateFromQuery(c); err != nil {
			return err
		}
	} else if after, _, err = h.clock.CurrentTime(ctx, cid); err != nil {
		return err
	}

	limit, err := limitFromQuery(c)
	if err != nil {
		return err
	}
	occ, err := h.service.Upcoming(ctx, cid, after, limit, filterFromQuery(c))
	if err != nil {
		return err
	}
	if occ == nil {
		occ = []Occurrence{}
	}
	return c.JSON(http.StatusOK, occ)
}

// Between lists occurrences in a range (POST /api/v1/calendars/:cid/notes/between).
func (h *Handler) Between(c echo.Context) error {
	var req struct {
		From  calendar.DateTimeParts `json:"from"`
		To    calendar.DateTimeParts `json:"to"`
		Limit int                    `json:"limit"`
	}
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid JSON body")
	}
	occ, err := h.service.Between(c.Request().Context(), c.Param("cid"), req.From, req.To, req.Limit, filterFromQuery(c))
	if err != nil {
		return err
	}
	if occ == nil {
		occ = []Occurrence{}
	}
	return c.JSON(http.StatusOK, occ)
}

// Import creates notes for the festivals of an uploaded calendar file
// without touching the calendar definition
// (POST /api/v1/calendars/:cid/notes/import).
func (h *Handler) Import(c echo.Context) error {
	data, err := calendar.ReadUpload(c)
	if err != nil {
		return err
	}
	result, err := calendar.DetectAndParse(data)
	if err != nil {
		return apperror.NewValidation(err.Error())
	}

	created, err := h.service.ImportObservances(c.Request().Context(), c.Param("cid"), author(c), result.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"format":  result.Format,
		"created": len(created),
		"notes":   created,
	})
}

// --- Helpers ---

func author(c echo.Context) string {
	if a := c.Request().Header.Get(AuthorHeader); a != "" {
		return a
	}
	return "gm"
}

func filterFromQuery(c echo.Context) ListFilter {
	return ListFilter{
		VisibleOnly: c.QueryParam("visible") == "true",
		Category:    c.QueryParam("category"),
	}
}

func limitFromQuery(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperror.NewBadRequest("limit must be a non-negative integer")
	}
	return limit, nil
}
