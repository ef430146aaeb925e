package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/keyxmakerx/chronicle-calendar/internal/apperror"
	"github.com/keyxmakerx/chronicle-calendar/internal/metrics"
)

// defaultUpdateFrequency is used when a calendar leaves UpdateFrequency at 0.
const defaultUpdateFrequency = 1

// TimeKeeper runs the game clock of started calendars. Every UpdateFrequency
// real seconds it advances the calendar by UpdateFrequency * GameTimeRatio
// game seconds. Fractional game seconds carry over to the next tick.
type TimeKeeper struct {
	svc  CalendarService
	cron *cron.Cron

	mu      sync.Mutex
	clocks  map[string]*clock
	timeout time.Duration
}

type clock struct {
	entry     cron.EntryID
	step      float64
	remainder float64
}

// NewTimeKeeper creates a TimeKeeper that advances calendars through svc.
// Call Run to start the scheduler.
func NewTimeKeeper(svc CalendarService) *TimeKeeper {
	return &TimeKeeper{
		svc:     svc,
		cron:    cron.New(cron.WithSeconds()),
		clocks:  make(map[string]*clock),
		timeout: 5 * time.Second,
	}
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running ticks to finish.
func (t *TimeKeeper) Run(ctx context.Context) error {
	t.cron.Start()
	<-ctx.Done()
	stopped := t.cron.Stop()
	<-stopped.Done()
	return nil
}

// Start begins advancing the calendar's clock. Starting a running clock
// reschedules it with the calendar's current time settings.
func (t *TimeKeeper) Start(ctx context.Context, calendarID string) error {
	def, err := t.svc.GetDefinition(ctx, calendarID)
	if err != nil {
		return err
	}
	tc := def.Config().Time
	freq := tc.UpdateFrequency
	if freq <= 0 {
		freq = defaultUpdateFrequency
	}
	if tc.GameTimeRatio <= 0 {
		return apperror.NewValidation("game time ratio must be positive to start the clock")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clocks[calendarID]; ok {
		t.cron.Remove(c.entry)
	}
	c := &clock{step: float64(freq) * tc.GameTimeRatio}
	id, err := t.cron.AddFunc(fmt.Sprintf("@every %ds", freq), func() { t.tick(calendarID) })
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("schedule clock: %w", err))
	}
	c.entry = id
	t.clocks[calendarID] = c

	slog.Info("calendar clock started",
		slog.String("calendar_id", calendarID),
		slog.Int("frequency", freq),
		slog.Float64("ratio", tc.GameTimeRatio),
	)
	return nil
}

// Pause stops advancing the calendar's clock. Pausing a stopped clock is a
// no-op.
func (t *TimeKeeper) Pause(calendarID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clocks[calendarID]
	if !ok {
		return
	}
	t.cron.Remove(c.entry)
	delete(t.clocks, calendarID)
	slog.Info("calendar clock paused", slog.String("calendar_id", calendarID))
}

// Running reports whether the calendar's clock is started.
func (t *TimeKeeper) Running(calendarID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.clocks[calendarID]
	return ok
}

// tick advances one calendar by one step.
func (t *TimeKeeper) tick(calendarID string) {
	delta, ok := t.nextDelta(calendarID)
	if !ok || delta == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	_, _, err := t.svc.AdvanceTime(ctx, calendarID, delta)
	metrics.RecordClockTick(err)
	if err != nil {
		slog.Error("calendar clock tick failed",
			slog.String("calendar_id", calendarID),
			slog.Any("error", err),
		)
	}
}

// nextDelta returns the whole game seconds to add on this tick.
func (t *TimeKeeper) nextDelta(calendarID string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clocks[calendarID]
	if !ok {
		return 0, false
	}
	total := c.step + c.remainder
	whole := math.Floor(total)
	if whole >= math.MaxInt64 {
		return 0, false
	}
	c.remainder = total - whole
	return int64(whole), true
}
