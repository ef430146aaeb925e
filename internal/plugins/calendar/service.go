package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
)

// CalendarService defines business logic for calendars. It owns one Engine
// per calendar and keeps the stored current time as linear seconds, so a
// definition change never moves the clock.
type CalendarService interface {
	CreateCalendar(ctx context.Context, calendarID string, cfg Config) (*Definition, error)
	GetDefinition(ctx context.Context, calendarID string) (*Definition, error)
	Engine(ctx context.Context, calendarID string) (*Engine, error)
	ReplaceConfig(ctx context.Context, calendarID string, cfg Config) (*Definition, error)
	UpdateConfig(ctx context.Context, calendarID string, fn func(cfg *Config) error) (*Definition, error)
	DeleteCalendar(ctx context.Context, calendarID string) error
	ListCalendars(ctx context.Context) ([]string, error)

	// Import and export.
	ImportCalendar(ctx context.Context, calendarID string, data []byte) (*ImportResult, error)
	ExportCalendar(ctx context.Context, calendarID string) (*ChronicleExport, error)
	MigrateLegacy(ctx context.Context, calendarID string, data []byte) (bool, error)

	// Clock.
	CurrentTime(ctx context.Context, calendarID string) (DateTimeParts, int64, error)
	SetCurrentTime(ctx context.Context, calendarID string, p DateTimeParts) (int64, error)
	AdvanceTime(ctx context.Context, calendarID string, seconds int64) (DateTimeParts, int64, error)
}

// calendarService is the default CalendarService implementation.
type calendarService struct {
	store ConfigStore

	mu      sync.Mutex
	engines map[string]*Engine
	loads   singleflight.Group

	// edit serializes writes that read, modify and store a calendar.
	edit sync.Mutex
}

// NewCalendarService creates a CalendarService backed by the given store.
func NewCalendarService(store ConfigStore) CalendarService {
	return &calendarService{
		store:   store,
		engines: make(map[string]*Engine),
	}
}

// CreateCalendar validates and stores a new calendar. The clock starts at
// the first day of the configured current year.
func (s *calendarService) CreateCalendar(ctx context.Context, calendarID string, cfg Config) (*Definition, error) {
	if calendarID == "" {
		return nil, apperror.NewBadRequest("calendar id is required")
	}
	s.edit.Lock()
	defer s.edit.Unlock()

	existing, err := s.store.LoadConfig(ctx, calendarID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("check existing calendar: %w", err))
	}
	if existing != nil {
		return nil, apperror.NewConflict("calendar already exists")
	}

	if cfg.Name == "" {
		cfg.Name = "Campaign Calendar"
	}
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, toAppError(err)
	}
	def := engine.Definition()
	if err := s.store.SaveConfig(ctx, calendarID, def.Config()); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("create calendar: %w", err))
	}
	if start, err := def.ToLinearSeconds(DateTimeParts{Year: s.startYear(def), Day: 1}); err == nil {
		if err := s.store.SaveNow(ctx, calendarID, start); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("create calendar: %w", err))
		}
	}

	s.mu.Lock()
	s.engines[calendarID] = engine
	s.mu.Unlock()

	slog.Info("calendar created",
		slog.String("calendar_id", calendarID),
		slog.String("name", cfg.Name),
	)
	return def, nil
}

// startYear picks the configured current year, stepping off year 0 when the
// calendar has none.
func (s *calendarService) startYear(def *Definition) int {
	y := def.cfg.Year.Current
	if def.cfg.Year.SkipYearZero && y == 0 {
		y = 1
	}
	return y
}

// Engine returns the calendar's engine, loading it from the store once even
// under concurrent requests.
func (s *calendarService) Engine(ctx context.Context, calendarID string) (*Engine, error) {
	s.mu.Lock()
	e, ok := s.engines[calendarID]
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	v, err, _ := s.loads.Do(calendarID, func() (any, error) {
		cfg, err := s.store.LoadConfig(ctx, calendarID)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("load calendar: %w", err))
		}
		if cfg == nil {
			return nil, apperror.NewNotFound("calendar not found")
		}
		e, err := NewEngine(*cfg)
		if err != nil {
			// A stored config that no longer builds is a server-side problem.
			return nil, apperror.NewInternal(fmt.Errorf("build stored calendar %s: %w", calendarID, err))
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.engines[calendarID]; ok {
			return cur, nil
		}
		s.engines[calendarID] = e
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

// GetDefinition returns the calendar's active definition.
func (s *calendarService) GetDefinition(ctx context.Context, calendarID string) (*Definition, error) {
	e, err := s.Engine(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return e.Definition(), nil
}

// ReplaceConfig validates cfg and makes it the calendar's definition. On any
// error the previous definition stays active.
func (s *calendarService) ReplaceConfig(ctx context.Context, calendarID string, cfg Config) (*Definition, error) {
	return s.UpdateConfig(ctx, calendarID, func(c *Config) error {
		*c = cfg
		return nil
	})
}

// UpdateConfig applies fn to the active configuration. The new definition
// is built and stored before it is installed.
func (s *calendarService) UpdateConfig(ctx context.Context, calendarID string, fn func(cfg *Config) error) (*Definition, error) {
	e, err := s.Engine(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	s.edit.Lock()
	defer s.edit.Unlock()

	cfg := e.Definition().Config()
	if err := fn(&cfg); err != nil {
		return nil, toAppError(err)
	}
	def, err := BuildDefinition(cfg)
	if err != nil {
		return nil, toAppError(err)
	}
	if err := s.store.SaveConfig(ctx, calendarID, def.Config()); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("update calendar: %w", err))
	}
	e.Install(def)
	return def, nil
}

// DeleteCalendar removes a calendar and forgets its engine.
func (s *calendarService) DeleteCalendar(ctx context.Context, calendarID string) error {
	s.edit.Lock()
	defer s.edit.Unlock()
	if err := s.store.Delete(ctx, calendarID); err != nil {
		return apperror.NewInternal(fmt.Errorf("delete calendar: %w", err))
	}
	s.mu.Lock()
	delete(s.engines, calendarID)
	s.mu.Unlock()
	return nil
}

// ListCalendars returns the IDs of all stored calendars.
func (s *calendarService) ListCalendars(ctx context.Context) ([]string, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("list calendars: %w", err))
	}
	return ids, nil
}

// ImportCalendar parses data in any supported format and stores it as the
// calendar's configuration, creating the calendar if needed. The imported
// current date, if present, becomes the calendar's clock.
func (s *calendarService) ImportCalendar(ctx context.Context, calendarID string, data []byte) (*ImportResult, error) {
	res, err := DetectAndParse(data)
	if err != nil {
		return nil, apperror.NewValidation(err.Error())
	}
	def, err := BuildDefinition(res.Config)
	if err != nil {
		return nil, toAppError(err)
	}
	var now *int64
	if res.Current != nil {
		secs, err := def.ToLinearSeconds(*res.Current)
		if err != nil {
			return nil, apperror.NewValidation(fmt.Sprintf("imported current date: %v", err))
		}
		now = &secs
	}

	s.edit.Lock()
	defer s.edit.Unlock()
	if err := s.store.SaveConfig(ctx, calendarID, def.Config()); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("import calendar: %w", err))
	}
	if now != nil {
		if err := s.store.SaveNow(ctx, calendarID, *now); err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("import calendar: %w", err))
		}
	}
	s.install(calendarID, def)

	res.Config = def.Config()
	slog.Info("calendar imported",
		slog.String("calendar_id", calendarID),
		slog.String("format", string(res.Format)),
		slog.Int("months", len(res.Config.Months)),
	)
	return res, nil
}

// install makes def active for calendarID, creating the engine if needed.
func (s *calendarService) install(calendarID string, def *Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[calendarID]; ok {
		e.Install(def)
		return
	}
	s.engines[calendarID] = &Engine{def: def}
}

// ExportCalendar builds the native export including the current time.
func (s *calendarService) ExportCalendar(ctx context.Context, calendarID string) (*ChronicleExport, error) {
	def, err := s.GetDefinition(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	now, ok, err := s.store.LoadNow(ctx, calendarID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("export calendar: %w", err))
	}
	var nowPtr *int64
	if ok {
		nowPtr = &now
	}
	export, err := BuildExport(def, nowPtr)
	if err != nil {
		return nil, toAppError(err)
	}
	return export, nil
}

// MigrateLegacy upgrades a stored record of any schema version and saves it
// as the calendar's configuration. It reports whether an upgrade happened.
func (s *calendarService) MigrateLegacy(ctx context.Context, calendarID string, data []byte) (bool, error) {
	rec, err := DecodeLegacy(data)
	if err != nil {
		return false, toAppError(err)
	}
	cfg, migrated, err := MigrateLegacy(rec)
	if err != nil {
		return false, toAppError(err)
	}
	def, err := BuildDefinition(cfg)
	if err != nil {
		return false, toAppError(err)
	}

	s.edit.Lock()
	defer s.edit.Unlock()
	if err := s.store.SaveConfig(ctx, calendarID, def.Config()); err != nil {
		return false, apperror.NewInternal(fmt.Errorf("migrate calendar: %w", err))
	}
	s.install(calendarID, def)
	if migrated {
		slog.Info("legacy calendar migrated",
			slog.String("calendar_id", calendarID),
			slog.Int("from_version", rec.Version),
			slog.Int("to_version", CurrentSchemaVersion),
		)
	}
	return migrated, nil
}

// CurrentTime returns the calendar's current date and linear time.
func (s *calendarService) CurrentTime(ctx context.Context, calendarID string) (DateTimeParts, int64, error) {
	e, err := s.Engine(ctx, calendarID)
	if err != nil {
		return DateTimeParts{}, 0, err
	}
	now, ok, err := s.store.LoadNow(ctx, calendarID)
	if err != nil {
		return DateTimeParts{}, 0, apperror.NewInternal(fmt.Errorf("get current time: %w", err))
	}
	def := e.Definition()
	if !ok {
		if now, err = def.ToLinearSeconds(DateTimeParts{Year: s.startYear(def), Day: 1}); err != nil {
			return DateTimeParts{}, 0, toAppError(err)
		}
	}
	p, err := e.FromLinearSeconds(now)
	if err != nil {
		return DateTimeParts{}, 0, toAppError(err)
	}
	return p, now, nil
}

// SetCurrentTime moves the clock to p.
func (s *calendarService) SetCurrentTime(ctx context.Context, calendarID string, p DateTimeParts) (int64, error) {
	s.edit.Lock()
	defer s.edit.Unlock()

	e, err := s.Engine(ctx, calendarID)
	if err != nil {
		return 0, err
	}
	secs, err := e.ToLinearSeconds(p)
	if err != nil {
		return 0, toAppError(err)
	}
	if err := s.store.SaveNow(ctx, calendarID, secs); err != nil {
		return 0, apperror.NewInternal(fmt.Errorf("set current time: %w", err))
	}
	return secs, nil
}

// AdvanceTime moves the clock by seconds, which may be negative.
func (s *calendarService) AdvanceTime(ctx context.Context, calendarID string, seconds int64) (DateTimeParts, int64, error) {
	s.edit.Lock()
	defer s.edit.Unlock()

	_, now, err := s.CurrentTime(ctx, calendarID)
	if err != nil {
		return DateTimeParts{}, 0, err
	}
	next, err := addSeconds(now, seconds)
	if err != nil {
		return DateTimeParts{}, 0, toAppError(err)
	}
	e, err := s.Engine(ctx, calendarID)
	if err != nil {
		return DateTimeParts{}, 0, err
	}
	p, err := e.FromLinearSeconds(next)
	if err != nil {
		return DateTimeParts{}, 0, toAppError(err)
	}
	if err := s.store.SaveNow(ctx, calendarID, next); err != nil {
		return DateTimeParts{}, 0, apperror.NewInternal(fmt.Errorf("advance time: %w", err))
	}
	return p, next, nil
}

// toAppError maps engine errors onto client-facing application errors.
func toAppError(err error) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ErrConfig),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidMoonConfig),
		errors.Is(err, ErrOverflow):
		return apperror.NewValidation(err.Error())
	case errors.Is(err, ErrNotFound):
		return apperror.NewNotFound("calendar not found")
	default:
		return apperror.NewInternal(err)
	}
}
