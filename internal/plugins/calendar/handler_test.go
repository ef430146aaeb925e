package calendar

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
)

// newTestServer wires the calendar routes onto a bare Echo instance with a
// service holding one gregorian-like calendar "cal".
func newTestServer(t *testing.T, withKeeper bool) (*echo.Echo, CalendarService) {
	t.Helper()
	svc, _ := newTestService(t)
	var keeper *TimeKeeper
	if withKeeper {
		keeper = NewTimeKeeper(svc)
	}
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			_ = c.JSON(appErr.Code, appErr)
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
	RegisterRoutes(e, NewHandler(svc, keeper))
	return e, svc
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCalendarCRUD(t *testing.T) {
	e, _ := newTestServer(t, false)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/calendars/second", twoMonthConfig())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/second", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[Config](t, rec)
	assert.Len(t, cfg.Months, 2)
	assert.NotEmpty(t, cfg.Months[0].ID, "ids are assigned on build")

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]string](t, rec)
	assert.ElementsMatch(t, []string{"cal", "second"}, list["calendars"])

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/second", twoMonthConfig())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, e, http.MethodDelete, "/api/v1/calendars/second", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/second", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateSections(t *testing.T) {
	e, svc := newTestServer(t, false)

	rec := doJSON(t, e, http.MethodPut, "/api/v1/calendars/cal/leap-year", LeapRuleConfig{Rule: "gregorian"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	def, err := svc.GetDefinition(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "cal")
	require.NoError(t, err)
	assert.False(t, def.IsLeapYear(100))
	assert.True(t, def.IsLeapYear(400))

	rec = doJSON(t, e, http.MethodPut, "/api/v1/calendars/cal/leap-year", LeapRuleConfig{Rule: "sometimes"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/calendars/cal/months", []Month{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/calendars/cal/weekdays", []Weekday{{Name: "Work"}, {Name: "Rest", RestDay: true}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[Config](t, rec).Weekdays, 2)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/calendars/missing/time", standardTime())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversionEndpoints(t *testing.T) {
	e, _ := newTestServer(t, false)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/to-seconds", date(1, 0, 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(366*86400), decode[map[string]int64](t, rec)["seconds"])

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/to-seconds", date(1, 1, 29))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/from-seconds?seconds=90000", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DateTimeParts{Year: 0, Month: 0, Day: 2, Hour: 1}, decode[DateTimeParts](t, rec))

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/from-seconds?seconds=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDateInfoEndpoint(t *testing.T) {
	e, _ := newTestServer(t, false)

	rec := doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/date?year=4&month=1&day=29", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	info := decode[DateInfo](t, rec)
	assert.True(t, info.LeapYear)
	assert.Equal(t, "February", info.MonthName)
	assert.Equal(t, "4", info.Year)
	assert.NotNil(t, info.Moons)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/date?year=4&month=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/month?year=5&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[MonthView](t, rec)
	assert.Equal(t, 28, view.Days)
	assert.Equal(t, "February", view.Name)
	assert.Len(t, view.Weekdays, 7)

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/month?year=5&month=12", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRecurrenceEndpoint(t *testing.T) {
	e, _ := newTestServer(t, false)

	body := map[string]any{
		"note":  Note{Anchor: date(1, 0, 31), Repeat: RepeatMonthly},
		"date":  date(1, 0, 31),
		"to":    date(1, 11, 31),
		"limit": 3,
	}
	rec := doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/recurrence", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Occurs      bool            `json:"occurs"`
		Next        *DateTimeParts  `json:"next"`
		Occurrences []DateTimeParts `json:"occurrences"`
	}](t, rec)
	assert.True(t, resp.Occurs)
	require.NotNil(t, resp.Next)
	assert.Equal(t, date(1, 2, 31), *resp.Next)
	assert.Equal(t, []DateTimeParts{date(1, 0, 31), date(1, 2, 31), date(1, 4, 31)}, resp.Occurrences)

	body["note"] = Note{Anchor: date(1, 0, 1), Repeat: "daily"}
	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/recurrence", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestClockEndpoints(t *testing.T) {
	e, _ := newTestServer(t, false)

	rec := doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/advance", map[string]int64{"days": 1, "hours": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Current DateTimeParts `json:"current"`
		Running bool          `json:"running"`
	}](t, rec)
	assert.Equal(t, DateTimeParts{Year: 1, Month: 0, Day: 2, Hour: 2}, resp.Current)
	assert.False(t, resp.Running)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/advance", map[string]int64{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/calendars/cal/current", date(5, 11, 31))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodPut, "/api/v1/calendars/cal/current", date(5, 12, 1))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/clock/start", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClockStartEndpoint(t *testing.T) {
	e, _ := newTestServer(t, true)

	// The calendar has no game time ratio yet.
	rec := doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/clock/start", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	tc := standardTime()
	tc.GameTimeRatio = 1
	rec = doJSON(t, e, http.MethodPut, "/api/v1/calendars/cal/time", tc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/clock/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/current", nil)
	assert.True(t, decode[map[string]any](t, rec)["running"].(bool))

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/clock/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[map[string]bool](t, rec)["running"])
}

func TestExportImportEndpoints(t *testing.T) {
	e, _ := newTestServer(t, false)

	rec := doJSON(t, e, http.MethodGet, "/api/v1/calendars/cal/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="cal-calendar.json"`)
	exported := rec.Body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calendars/copy/import", bytes.NewReader(exported))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[map[string]any](t, rec)
	assert.Equal(t, string(FormatChronicle), summary["format"])
	assert.Equal(t, float64(12), summary["months"])

	rec = doJSON(t, e, http.MethodGet, "/api/v1/calendars/copy/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, date(1, 0, 1), decode[struct {
		Current DateTimeParts `json:"current"`
	}](t, rec).Current)
}

func TestImportEndpoint_MultipartPreview(t *testing.T) {
	e, svc := newTestServer(t, false)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "harptos.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(simpleCalendarV2))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/calendars/cal/import?preview=true", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[ImportResult](t, rec)
	assert.Equal(t, FormatSimpleCal, preview.Format)
	assert.Equal(t, "Harptos", preview.Config.Name)

	// Preview leaves the calendar alone.
	def, err := svc.GetDefinition(req.Context(), "cal")
	require.NoError(t, err)
	assert.Equal(t, "Test", def.Config().Name)
}

func TestImportEndpoint_Errors(t *testing.T) {
	e, _ := newTestServer(t, false)

	rec := doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/import", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/import", map[string]string{"hello": "world"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/api/v1/calendars/cal/import?preview=true", map[string]string{"hello": "world"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMigrateEndpoint(t *testing.T) {
	e, _ := newTestServer(t, false)

	data := legacyRecordJSON(t, 1, `{"playersAddNotes": true}`, `{"numericRepresentation": 3}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/calendars/old/migrate", bytes.NewReader(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, true, resp["migrated"])
	assert.Equal(t, float64(CurrentSchemaVersion), resp["version"])
}
