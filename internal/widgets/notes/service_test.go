package notes

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
)

// --- Mock Repository ---

// mockNoteRepo implements NoteRepository for testing. Without an fn override
// each method works on the in-memory notes slice.
type mockNoteRepo struct {
	notes []Note

	createFn  func(ctx context.Context, note *Note) error
	updateFn  func(ctx context.Context, note *Note) error
	reorderFn func(ctx context.Context, calendarID string, ids []string) error
	listFn    func(ctx context.Context, calendarID string) ([]Note, error)
}

func (m *mockNoteRepo) Create(ctx context.Context, note *Note) error {
	if m.createFn != nil {
		return m.createFn(ctx, note)
	}
	m.notes = append(m.notes, *note)
	return nil
}

func (m *mockNoteRepo) FindByID(ctx context.Context, id string) (*Note, error) {
	for i := range m.notes {
		if m.notes[i].ID == id {
			n := m.notes[i]
			return &n, nil
		}
	}
	return nil, apperror.NewNotFound("note not found")
}

func (m *mockNoteRepo) Update(ctx context.Context, note *Note) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, note)
	}
	for i := range m.notes {
		if m.notes[i].ID == note.ID {
			m.notes[i] = *note
			return nil
		}
	}
	return apperror.NewNotFound("note not found")
}

func (m *mockNoteRepo) Delete(ctx context.Context, id string) error {
	for i := range m.notes {
		if m.notes[i].ID == id {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			return nil
		}
	}
	return apperror.NewNotFound("note not found")
}

func (m *mockNoteRepo) ListByCalendar(ctx context.Context, calendarID string) ([]Note, error) {
	if m.listFn != nil {
		return m.listFn(ctx, calendarID)
	}
	var out []Note
	for _, n := range m.notes {
		if n.CalendarID == calendarID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNoteRepo) DeleteByCalendar(ctx context.Context, calendarID string) error {
	kept := m.notes[:0]
	for _, n := range m.notes {
		if n.CalendarID != calendarID {
			kept = append(kept, n)
		}
	}
	m.notes = kept
	return nil
}

func (m *mockNoteRepo) Reorder(ctx context.Context, calendarID string, ids []string) error {
	if m.reorderFn != nil {
		return m.reorderFn(ctx, calendarID, ids)
	}
	return nil
}

// stubEngines serves one engine for calendar "cal".
type stubEngines struct {
	engine *calendar.Engine
}

func (s *stubEngines) Engine(ctx context.Context, calendarID string) (*calendar.Engine, error) {
	if calendarID != "cal" {
		return nil, apperror.NewNotFound("calendar not found")
	}
	return s.engine, nil
}

// --- Test Helpers ---

// assertAppError checks that err is an *apperror.AppError with the expected code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// testConfig is a twelve-month calendar with a leap day in the second month
// every fourth year.
func testConfig() calendar.Config {
	lengths := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	months := make([]calendar.Month, len(lengths))
	for i, d := range lengths {
		months[i] = calendar.Month{Name: string(rune('A' + i)), Days: d}
	}
	months[1].LeapYearDays = 29
	weekdays := make([]calendar.Weekday, 7)
	for i := range weekdays {
		weekdays[i] = calendar.Weekday{Name: string(rune('1' + i))}
	}
	return calendar.Config{
		Name:     "Test",
		Year:     calendar.YearConfig{Current: 1},
		LeapYear: calendar.LeapRuleConfig{Rule: "every", Interval: 4},
		Time:     calendar.TimeConfig{HoursPerDay: 24, MinutesPerHour: 60, SecondsPerMinute: 60},
		Months:   months,
		Weekdays: weekdays,
	}
}

func newTestService(t *testing.T) (NoteService, *mockNoteRepo) {
	t.Helper()
	e, err := calendar.NewEngine(testConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	repo := &mockNoteRepo{}
	return NewNoteService(repo, &stubEngines{engine: e}), repo
}

func date(y, m, d int) calendar.DateTimeParts {
	return calendar.DateTimeParts{Year: y, Month: m, Day: d}
}

func mustCreate(t *testing.T, svc NoteService, req CreateNoteRequest) *Note {
	t.Helper()
	n, err := svc.Create(context.Background(), "cal", "gm", req)
	if err != nil {
		t.Fatalf("Create %q: %v", req.Title, err)
	}
	return n
}

// --- Create Tests ---

func TestCreate_Success(t *testing.T) {
	svc, repo := newTestService(t)

	note := mustCreate(t, svc, CreateNoteRequest{
		Title:      "  Market Day  ",
		Content:    `<p>Bring coin</p><script>alert(1)</script>`,
		Anchor:     calendar.DateTimeParts{Year: 1, Month: 2, Day: 4, Hour: 9},
		Repeat:     "weekly",
		Categories: []string{"Town", " ", "Town"},
	})
	if note.ID == "" {
		t.Error("expected generated ID")
	}
	if note.Title != "Market Day" {
		t.Errorf("expected trimmed title, got %q", note.Title)
	}
	if strings.Contains(note.Content, "script") {
		t.Errorf("expected script stripped, got %q", note.Content)
	}
	if note.Repeat != calendar.RepeatWeekly {
		t.Errorf("expected weekly, got %q", note.Repeat)
	}
	if len(note.Categories) != 1 || note.Categories[0] != "Town" {
		t.Errorf("expected categories [Town], got %v", note.Categories)
	}
	if note.Anchor.Hour != 9 {
		t.Errorf("expected time kept, got %v", note.Anchor)
	}

	second := mustCreate(t, svc, CreateNoteRequest{Anchor: date(1, 0, 1), AllDay: true})
	if second.Title != "Untitled" {
		t.Errorf("expected default title, got %q", second.Title)
	}
	if second.Order != 1 {
		t.Errorf("expected order 1, got %d", second.Order)
	}
	if second.Repeat != calendar.RepeatNone {
		t.Errorf("expected repeat none, got %q", second.Repeat)
	}
	if len(repo.notes) != 2 {
		t.Errorf("expected 2 stored notes, got %d", len(repo.notes))
	}
}

func TestCreate_AllDayClearsTime(t *testing.T) {
	svc, _ := newTestService(t)
	note := mustCreate(t, svc, CreateNoteRequest{
		Anchor: calendar.DateTimeParts{Year: 1, Month: 0, Day: 1, Hour: 12, Minute: 30},
		AllDay: true,
	})
	if note.Anchor != date(1, 0, 1) {
		t.Errorf("expected time cleared, got %v", note.Anchor)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	end := date(1, 0, 5)
	before := date(1, 0, 1)

	tests := []struct {
		name string
		cal  string
		req  CreateNoteRequest
		code int
	}{
		{"title too long", "cal", CreateNoteRequest{Title: strings.Repeat("x", MaxTitleLength+1), Anchor: date(1, 0, 1)}, 400},
		{"unknown repeat", "cal", CreateNoteRequest{Anchor: date(1, 0, 1), Repeat: "daily"}, 400},
		{"no leap day in year 1", "cal", CreateNoteRequest{Anchor: date(1, 1, 29)}, 422},
		{"month out of range", "cal", CreateNoteRequest{Anchor: date(1, 12, 1)}, 422},
		{"repeating with end", "cal", CreateNoteRequest{Anchor: date(1, 0, 1), End: &end, Repeat: "yearly"}, 400},
		{"end before start", "cal", CreateNoteRequest{Anchor: date(1, 0, 3), End: &before}, 400},
		{"missing calendar", "other", CreateNoteRequest{Anchor: date(1, 0, 1)}, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.cal, "gm", tt.req)
			assertAppError(t, err, tt.code)
		})
	}
}

func TestCreate_LeapDayInLeapYear(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, CreateNoteRequest{Title: "Shieldmeet", Anchor: date(4, 1, 29), Repeat: "yearly"})
}

func TestCreate_RepoError(t *testing.T) {
	svc, repo := newTestService(t)
	repo.createFn = func(ctx context.Context, note *Note) error {
		return errors.New("db down")
	}
	_, err := svc.Create(context.Background(), "cal", "gm", CreateNoteRequest{Anchor: date(1, 0, 1)})
	if err == nil {
		t.Fatal("expected error")
	}
}

// --- Get / Update / Delete Tests ---

func TestGetByID_OtherCalendar(t *testing.T) {
	svc, repo := newTestService(t)
	repo.notes = []Note{{ID: "n1", CalendarID: "elsewhere", Anchor: date(1, 0, 1)}}

	_, err := svc.GetByID(context.Background(), "cal", "n1")
	assertAppError(t, err, 404)
	assertAppError(t, svc.Delete(context.Background(), "cal", "n1"), 404)
}

func TestUpdate_PartialFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	end := date(1, 0, 3)
	note := mustCreate(t, svc, CreateNoteRequest{Title: "Fair", Anchor: date(1, 0, 1), End: &end})

	title := "Harvest Fair"
	got, err := svc.Update(ctx, "cal", note.ID, UpdateNoteRequest{Title: &title, ClearEnd: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != "Harvest Fair" {
		t.Errorf("expected new title, got %q", got.Title)
	}
	if got.End != nil {
		t.Errorf("expected end cleared, got %v", got.End)
	}
	if got.Anchor != date(1, 0, 1) {
		t.Errorf("anchor changed: %v", got.Anchor)
	}

	repeat := "monthly"
	got, err = svc.Update(ctx, "cal", note.ID, UpdateNoteRequest{Repeat: &repeat})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Repeat != calendar.RepeatMonthly {
		t.Errorf("expected monthly, got %q", got.Repeat)
	}
}

func TestUpdate_InvalidAnchor(t *testing.T) {
	svc, _ := newTestService(t)
	note := mustCreate(t, svc, CreateNoteRequest{Anchor: date(1, 0, 1)})

	bad := date(1, 3, 31)
	_, err := svc.Update(context.Background(), "cal", note.ID, UpdateNoteRequest{Anchor: &bad})
	assertAppError(t, err, 422)
}

func TestUpdate_RepeatWithExistingEnd(t *testing.T) {
	svc, _ := newTestService(t)
	end := date(1, 0, 3)
	note := mustCreate(t, svc, CreateNoteRequest{Anchor: date(1, 0, 1), End: &end})

	repeat := "weekly"
	_, err := svc.Update(context.Background(), "cal", note.ID, UpdateNoteRequest{Repeat: &repeat})
	assertAppError(t, err, 400)
}

func TestDelete_Success(t *testing.T) {
	svc, repo := newTestService(t)
	note := mustCreate(t, svc, CreateNoteRequest{Anchor: date(1, 0, 1)})

	if err := svc.Delete(context.Background(), "cal", note.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.notes) != 0 {
		t.Errorf("expected note removed, got %d", len(repo.notes))
	}
}

// --- Listing Tests ---

func TestList_Filter(t *testing.T) {
	svc, _ := newTestService(t)
	mustCreate(t, svc, CreateNoteRequest{Title: "Secret", Anchor: date(1, 0, 1), Categories: []string{"Plot"}})
	mustCreate(t, svc, CreateNoteRequest{
		Title:         "Public",
		Content:       `<p>Parade<span data-secret="true"> and a coup</span></p>`,
		Anchor:        date(1, 0, 1),
		PlayerVisible: true,
		Categories:    []string{"Holiday"},
	})

	visible, err := svc.List(context.Background(), "cal", ListFilter{VisibleOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(visible) != 1 || visible[0].Title != "Public" {
		t.Errorf("expected only Public, got %v", visible)
	}
	if strings.Contains(visible[0].Content, "coup") {
		t.Errorf("expected secret stripped for players, got %q", visible[0].Content)
	}

	plot, _ := svc.List(context.Background(), "cal", ListFilter{Category: "Plot"})
	if len(plot) != 1 || plot[0].Title != "Secret" {
		t.Errorf("expected only Secret, got %v", plot)
	}
}

func TestReorder_Duplicate(t *testing.T) {
	svc, repo := newTestService(t)
	var got []string
	repo.reorderFn = func(ctx context.Context, calendarID string, ids []string) error {
		got = ids
		return nil
	}

	assertAppError(t, svc.Reorder(context.Background(), "cal", []string{"a", "b", "a"}), 400)
	if err := svc.Reorder(context.Background(), "cal", []string{"b", "a"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if len(got) != 2 || got[0] != "b" {
		t.Errorf("expected ids passed through, got %v", got)
	}
}

// --- Date Query Tests ---

func TestOnDay(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateNoteRequest{Title: "Weekly", Anchor: date(1, 0, 1), Repeat: "weekly"})
	mustCreate(t, svc, CreateNoteRequest{Title: "Once", Anchor: date(1, 0, 9)})
	end := date(1, 0, 10)
	mustCreate(t, svc, CreateNoteRequest{Title: "Festival", Anchor: date(1, 0, 7), End: &end})
	// Stored before the definition lost a day; skipped, not fatal.
	repo.notes = append(repo.notes, Note{ID: "stale", CalendarID: "cal", Anchor: date(1, 1, 30), Repeat: calendar.RepeatNone})

	on8, err := svc.OnDay(ctx, "cal", date(1, 0, 8), ListFilter{})
	if err != nil {
		t.Fatalf("OnDay: %v", err)
	}
	if titles(on8) != "Weekly,Festival" {
		t.Errorf("expected Weekly,Festival on day 8, got %s", titles(on8))
	}

	on9, _ := svc.OnDay(ctx, "cal", date(1, 0, 9), ListFilter{})
	if titles(on9) != "Once,Festival" {
		t.Errorf("expected Once,Festival on day 9, got %s", titles(on9))
	}

	_, err = svc.OnDay(ctx, "cal", date(1, 0, 32), ListFilter{})
	assertAppError(t, err, 422)
}

func TestUpcoming_SortedAndLimited(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateNoteRequest{Title: "Yearly", Anchor: date(1, 5, 10), Repeat: "yearly"})
	mustCreate(t, svc, CreateNoteRequest{Title: "Once", Anchor: date(1, 2, 1)})
	mustCreate(t, svc, CreateNoteRequest{Title: "Monthly", Anchor: date(1, 0, 15), Repeat: "monthly"})
	mustCreate(t, svc, CreateNoteRequest{Title: "Past", Anchor: date(1, 0, 2)})

	occ, err := svc.Upcoming(ctx, "cal", date(1, 1, 1), 0, ListFilter{})
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	want := []struct {
		title string
		day   calendar.DateTimeParts
	}{
		{"Monthly", date(1, 1, 15)},
		{"Once", date(1, 2, 1)},
		{"Yearly", date(1, 5, 10)},
	}
	if len(occ) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(occ))
	}
	for i, w := range want {
		if occ[i].Note.Title != w.title || occ[i].Date.DateOnly() != w.day {
			t.Errorf("occurrence %d: expected %s on %v, got %s on %v", i, w.title, w.day, occ[i].Note.Title, occ[i].Date)
		}
		if i > 0 && occ[i].Seconds <= occ[i-1].Seconds {
			t.Errorf("occurrences not ordered by time")
		}
	}

	limited, _ := svc.Upcoming(ctx, "cal", date(1, 1, 1), 2, ListFilter{})
	if len(limited) != 2 {
		t.Errorf("expected limit 2, got %d", len(limited))
	}
}

func TestUpcomingAndBetween_SkipStaleTimeOfDay(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateNoteRequest{Title: "Market", Anchor: date(1, 0, 2), Repeat: "weekly"})
	// Stored before the day was shortened; hour 30 no longer exists.
	lateAnchor := date(1, 0, 3)
	lateAnchor.Hour = 30
	repo.notes = append(repo.notes, Note{ID: "late", CalendarID: "cal", Title: "Vigil", Anchor: lateAnchor, Repeat: calendar.RepeatWeekly})

	upcoming, err := svc.Upcoming(ctx, "cal", date(1, 0, 1), 0, ListFilter{})
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(upcoming) != 1 || upcoming[0].Note.Title != "Market" {
		t.Errorf("expected only Market upcoming, got %d occurrences", len(upcoming))
	}

	between, err := svc.Between(ctx, "cal", date(1, 0, 1), date(1, 0, 28), 0, ListFilter{})
	if err != nil {
		t.Fatalf("Between: %v", err)
	}
	if len(between) != 4 {
		t.Errorf("expected 4 Market occurrences, got %d", len(between))
	}
	for _, o := range between {
		if o.Note.Title != "Market" {
			t.Errorf("stale note %q returned", o.Note.Title)
		}
	}
}

func TestBetween(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, CreateNoteRequest{Title: "Monthly", Anchor: date(1, 0, 15), Repeat: "monthly"})
	mustCreate(t, svc, CreateNoteRequest{Title: "Once", Anchor: date(1, 2, 1)})

	occ, err := svc.Between(ctx, "cal", date(1, 0, 1), date(1, 2, 31), 0, ListFilter{})
	if err != nil {
		t.Fatalf("Between: %v", err)
	}
	want := []calendar.DateTimeParts{date(1, 0, 15), date(1, 1, 15), date(1, 2, 1), date(1, 2, 15)}
	if len(occ) != len(want) {
		t.Fatalf("expected %d occurrences, got %d", len(want), len(occ))
	}
	for i, w := range want {
		if occ[i].Date.DateOnly() != w {
			t.Errorf("occurrence %d: expected %v, got %v", i, w, occ[i].Date)
		}
	}

	_, err = svc.Between(ctx, "cal", date(1, 2, 1), date(1, 0, 1), 0, ListFilter{})
	assertAppError(t, err, 400)
}

// --- Import Tests ---

func TestImportObservances(t *testing.T) {
	svc, repo := newTestService(t)
	created, err := svc.ImportObservances(context.Background(), "cal", "gm", []calendar.ImportedNote{
		{Title: "Midsummer", Anchor: date(1, 6, 1), Repeat: calendar.RepeatYearly},
		{Title: "Greengrass", Anchor: date(1, 3, 1), Repeat: calendar.RepeatYearly},
	})
	if err != nil {
		t.Fatalf("ImportObservances: %v", err)
	}
	if len(created) != 2 || len(repo.notes) != 2 {
		t.Fatalf("expected 2 notes, got %d created, %d stored", len(created), len(repo.notes))
	}
	if !created[0].PlayerVisible || !created[0].AllDay {
		t.Error("expected imported notes to be visible all-day notes")
	}
}

func TestImportObservances_StopsOnInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.ImportObservances(context.Background(), "cal", "gm", []calendar.ImportedNote{
		{Title: "Ok", Anchor: date(1, 0, 1), Repeat: calendar.RepeatYearly},
		{Title: "Bad", Anchor: date(1, 0, 40), Repeat: calendar.RepeatYearly},
	})
	assertAppError(t, err, 422)
	if len(created) != 1 {
		t.Errorf("expected the first note kept, got %d", len(created))
	}
}

func titles(notes []Note) string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.Title
	}
	return strings.Join(out, ",")
}
