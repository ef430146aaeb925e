package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
	"github.com/keyxmakerx/chronicle-calendar/internal/plugins/calendar"
	"github.com/keyxmakerx/chronicle-calendar/internal/sanitize"
)

// EngineProvider returns the active calendar engine. calendar.CalendarService
// satisfies it.
type EngineProvider interface {
	Engine(ctx context.Context, calendarID string) (*calendar.Engine, error)
}

// NoteService defines the business logic contract for notes.
type NoteService interface {
	Create(ctx context.Context, calendarID, author string, req CreateNoteRequest) (*Note, error)
	GetByID(ctx context.Context, calendarID, id string) (*Note, error)
	Update(ctx context.Context, calendarID, id string, req UpdateNoteRequest) (*Note, error)
	Delete(ctx context.Context, calendarID, id string) error
	DeleteAll(ctx context.Context, calendarID string) error

	List(ctx context.Context, calendarID string, filter ListFilter) ([]Note, error)
	Reorder(ctx context.Context, calendarID string, ids []string) error

	// OnDay returns the notes that occur on day, in sort order.
	OnDay(ctx context.Context, calendarID string, day calendar.DateTimeParts, filter ListFilter) ([]Note, error)
	// Upcoming returns the next occurrence of each note strictly after
	// after's day, earliest first, at most limit of them.
	Upcoming(ctx context.Context, calendarID string, after calendar.DateTimeParts, limit int, filter ListFilter) ([]Occurrence, error)
	// Between lists every occurrence in [from, to] by day, earliest first.
	Between(ctx context.Context, calendarID string, from, to calendar.DateTimeParts, limit int, filter ListFilter) ([]Occurrence, error)

	// ImportObservances creates yearly notes for festivals found in an
	// imported calendar file.
	ImportObservances(ctx context.Context, calendarID, author string, observances []calendar.ImportedNote) ([]Note, error)
}

// noteService implements NoteService.
type noteService struct {
	repo    NoteRepository
	engines EngineProvider
}

// NewNoteService creates a new note service.
func NewNoteService(repo NoteRepository, engines EngineProvider) NoteService {
	return &noteService{repo: repo, engines: engines}
}

// Create validates and persists a new note. The anchor must be a real date
// of the calendar's current definition.
func (s *noteService) Create(ctx context.Context, calendarID, author string, req CreateNoteRequest) (*Note, error) {
	title, err := cleanTitle(req.Title)
	if err != nil {
		return nil, err
	}
	repeat, err := calendar.ParseRepeat(req.Repeat)
	if err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}

	note := &Note{
		ID:            uuid.NewString(),
		CalendarID:    calendarID,
		Author:        author,
		Title:         title,
		Content:       sanitize.HTML(req.Content),
		Anchor:        req.Anchor,
		End:           req.End,
		Repeat:        repeat,
		AllDay:        req.AllDay,
		Categories:    cleanList(req.Categories),
		PlayerVisible: req.PlayerVisible,
		RemindUsers:   cleanList(req.RemindUsers),
	}
	if note.AllDay {
		note.Anchor = note.Anchor.DateOnly()
	}
	if err := s.validateDates(ctx, note); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListByCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	note.Order = len(existing)

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, err
	}
	slog.Debug("calendar note created",
		slog.String("calendar_id", calendarID),
		slog.String("note_id", note.ID),
		slog.String("repeat", string(note.Repeat)),
	)
	return s.repo.FindByID(ctx, note.ID)
}

// GetByID retrieves a note, hiding notes of other calendars.
func (s *noteService) GetByID(ctx context.Context, calendarID, id string) (*Note, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if note.CalendarID != calendarID {
		return nil, apperror.NewNotFound("note not found")
	}
	return note, nil
}

// Update applies a partial update.
func (s *noteService) Update(ctx context.Context, calendarID, id string, req UpdateNoteRequest) (*Note, error) {
	note, err := s.GetByID(ctx, calendarID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if note.Title, err = cleanTitle(*req.Title); err != nil {
			return nil, err
		}
	}
	if req.Content != nil {
		note.Content = sanitize.HTML(*req.Content)
	}
	if req.Anchor != nil {
		note.Anchor = *req.Anchor
	}
	if req.ClearEnd {
		note.End = nil
	} else if req.End != nil {
		note.End = req.End
	}
	if req.Repeat != nil {
		if note.Repeat, err = calendar.ParseRepeat(*req.Repeat); err != nil {
			return nil, apperror.NewBadRequest(err.Error())
		}
	}
	if req.AllDay != nil {
		note.AllDay = *req.AllDay
	}
	if note.AllDay {
		note.Anchor = note.Anchor.DateOnly()
	}
	if req.Categories != nil {
		note.Categories = cleanList(*req.Categories)
	}
	if req.PlayerVisible != nil {
		note.PlayerVisible = *req.PlayerVisible
	}
	if req.RemindUsers != nil {
		note.RemindUsers = cleanList(*req.RemindUsers)
	}
	if err := s.validateDates(ctx, note); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, note); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, note.ID)
}

// Delete removes a note.
func (s *noteService) Delete(ctx context.Context, calendarID, id string) error {
	if _, err := s.GetByID(ctx, calendarID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DeleteAll removes every note of a calendar.
func (s *noteService) DeleteAll(ctx context.Context, calendarID string) error {
	return s.repo.DeleteByCalendar(ctx, calendarID)
}

// List returns the calendar's notes in sort order. Player views get GM
// secrets stripped from the content.
func (s *noteService) List(ctx context.Context, calendarID string, filter ListFilter) ([]Note, error) {
	all, err := s.repo.ListByCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	out := make([]Note, 0, len(all))
	for i := range all {
		if !filter.matches(&all[i]) {
			continue
		}
		if filter.VisibleOnly {
			all[i].Content = sanitize.StripSecretsHTML(all[i].Content)
		}
		out = append(out, all[i])
	}
	return out, nil
}

// Reorder sets the display order of the calendar's notes.
func (s *noteService) Reorder(ctx context.Context, calendarID string, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperror.NewBadRequest("duplicate note id " + id)
		}
		seen[id] = true
	}
	return s.repo.Reorder(ctx, calendarID, ids)
}

// OnDay returns the notes that occur on day.
func (s *noteService) OnDay(ctx context.Context, calendarID string, day calendar.DateTimeParts, filter ListFilter) ([]Note, error) {
	e, err := s.engines.Engine(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if err := validateDay(e, day); err != nil {
		return nil, err
	}
	notes, err := s.List(ctx, calendarID, filter)
	if err != nil {
		return nil, err
	}

	var out []Note
	for i := range notes {
		ok, err := e.OccursOn(notes[i].Recurrence(), day)
		if err != nil {
			// A note anchored on a day the definition no longer has is
			// skipped rather than failing the whole day.
			logStaleNote(&notes[i], err)
			continue
		}
		if ok {
			out = append(out, notes[i])
		}
	}
	return out, nil
}

// Upcoming returns each note's next occurrence after after's day.
func (s *noteService) Upcoming(ctx context.Context, calendarID string, after calendar.DateTimeParts, limit int, filter ListFilter) ([]Occurrence, error) {
	e, err := s.engines.Engine(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if err := validateDay(e, after); err != nil {
		return nil, err
	}
	notes, err := s.List(ctx, calendarID, filter)
	if err != nil {
		return nil, err
	}

	var out []Occurrence
	for i := range notes {
		next, ok, err := e.NextOccurrence(notes[i].Recurrence(), after)
		if err != nil {
			logStaleNote(&notes[i], err)
			continue
		}
		if !ok {
			continue
		}
		// The day fits but the anchor's time of day may not, e.g. after
		// the day was shortened.
		secs, err := e.ToLinearSeconds(next)
		if err != nil {
			logStaleNote(&notes[i], err)
			continue
		}
		out = append(out, Occurrence{Note: &notes[i], Date: next, Seconds: secs})
	}
	sortOccurrences(out)
	return truncate(out, limit), nil
}

// Between lists every occurrence of every note in [from, to].
func (s *noteService) Between(ctx context.Context, calendarID string, from, to calendar.DateTimeParts, limit int, filter ListFilter) ([]Occurrence, error) {
	e, err := s.engines.Engine(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if err := validateDay(e, from); err != nil {
		return nil, err
	}
	if err := validateDay(e, to); err != nil {
		return nil, err
	}
	if to.DateOnly().Before(from.DateOnly()) {
		return nil, apperror.NewBadRequest("range end is before its start")
	}
	notes, err := s.List(ctx, calendarID, filter)
	if err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	var out []Occurrence
nextNote:
	for i := range notes {
		days, err := e.OccurrencesBetween(notes[i].Recurrence(), from, to, limit)
		if err != nil {
			logStaleNote(&notes[i], err)
			continue
		}
		found := make([]Occurrence, 0, len(days))
		for _, d := range days {
			secs, err := e.ToLinearSeconds(d)
			if err != nil {
				logStaleNote(&notes[i], err)
				continue nextNote
			}
			found = append(found, Occurrence{Note: &notes[i], Date: d, Seconds: secs})
		}
		out = append(out, found...)
	}
	sortOccurrences(out)
	return truncate(out, limit), nil
}

// ImportObservances stores imported festivals as yearly, player-visible
// all-day notes.
func (s *noteService) ImportObservances(ctx context.Context, calendarID, author string, observances []calendar.ImportedNote) ([]Note, error) {
	created := make([]Note, 0, len(observances))
	for _, o := range observances {
		note, err := s.Create(ctx, calendarID, author, CreateNoteRequest{
			Title:         o.Title,
			Anchor:        o.Anchor,
			Repeat:        string(o.Repeat),
			AllDay:        true,
			PlayerVisible: true,
			Categories:    []string{"Holiday"},
		})
		if err != nil {
			return created, fmt.Errorf("importing %q: %w", o.Title, err)
		}
		created = append(created, *note)
	}
	return created, nil
}

// validateDates checks the anchor and end against the active definition.
func (s *noteService) validateDates(ctx context.Context, note *Note) error {
	e, err := s.engines.Engine(ctx, note.CalendarID)
	if err != nil {
		return err
	}
	def := e.Definition()
	if err := def.Validate(note.Anchor); err != nil {
		return apperror.NewValidation(fmt.Sprintf("anchor: %v", err))
	}
	if note.End == nil {
		return nil
	}
	if note.Repeat != calendar.RepeatNone {
		return apperror.NewBadRequest("only non-repeating notes can span several days")
	}
	if err := def.Validate(*note.End); err != nil {
		return apperror.NewValidation(fmt.Sprintf("end: %v", err))
	}
	if note.End.Before(note.Anchor) {
		return apperror.NewBadRequest("note ends before it starts")
	}
	return nil
}

// --- Helpers ---

func cleanTitle(title string) (string, error) {
	title = sanitize.Text(title)
	if title == "" {
		title = "Untitled"
	}
	if len(title) > MaxTitleLength {
		return "", apperror.NewBadRequest(fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

// cleanList reduces entries to plain text and drops blanks and duplicates.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = sanitize.Text(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func validateDay(e *calendar.Engine, day calendar.DateTimeParts) error {
	if err := e.Definition().Validate(day); err != nil {
		return apperror.NewValidation(err.Error())
	}
	return nil
}

func logStaleNote(n *Note, err error) {
	slog.Warn("skipping note with invalid date",
		slog.String("calendar_id", n.CalendarID),
		slog.String("note_id", n.ID),
		slog.Any("error", err),
	)
}

func sortOccurrences(occ []Occurrence) {
	sort.SliceStable(occ, func(i, j int) bool {
		if occ[i].Seconds != occ[j].Seconds {
			return occ[i].Seconds < occ[j].Seconds
		}
		return occ[i].Note.Order < occ[j].Note.Order
	})
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func truncate(occ []Occurrence, limit int) []Occurrence {
	limit = clampLimit(limit)
	if len(occ) > limit {
		return occ[:limit]
	}
	return occ
}

// toAppError maps calendar errors to client errors.
func toAppError(err error) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, calendar.ErrInvalidDate),
		errors.Is(err, calendar.ErrConfig),
		errors.Is(err, calendar.ErrOverflow):
		return apperror.NewValidation(err.Error())
	default:
		return apperror.NewInternal(err)
	}
}
