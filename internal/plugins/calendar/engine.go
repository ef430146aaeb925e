package calendar

import (
	"sync"

	"github.com/keyxmakerx/chronicle-calendar/internal/metrics"
)

// Engine owns the active Definition of one calendar. Readers always see a
// complete definition; Replace and Update build the new definition before
// swapping it in, so a rejected configuration leaves the old one active.
type Engine struct {
	mu  sync.RWMutex
	def *Definition
}

// NewEngine builds cfg and returns an engine serving it.
func NewEngine(cfg Config) (*Engine, error) {
	def, err := BuildDefinition(cfg)
	metrics.RecordDefinitionBuild(err)
	if err != nil {
		return nil, err
	}
	return &Engine{def: def}, nil
}

// Definition returns the active definition. The returned value is immutable
// and stays valid after later swaps.
func (e *Engine) Definition() *Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.def
}

// Replace builds cfg and makes it the active definition.
func (e *Engine) Replace(cfg Config) (*Definition, error) {
	def, err := BuildDefinition(cfg)
	metrics.RecordDefinitionBuild(err)
	if err != nil {
		return nil, err
	}
	e.Install(def)
	return def, nil
}

// Update applies fn to a copy of the active configuration and installs the
// result. Concurrent updates are serialized so none is lost.
func (e *Engine) Update(fn func(cfg *Config) error) (*Definition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.def.Config()
	if err := fn(&cfg); err != nil {
		return nil, err
	}
	def, err := BuildDefinition(cfg)
	metrics.RecordDefinitionBuild(err)
	if err != nil {
		return nil, err
	}
	e.def = def
	return def, nil
}

// Install makes an already built definition active.
func (e *Engine) Install(def *Definition) {
	e.mu.Lock()
	e.def = def
	e.mu.Unlock()
}

// ToLinearSeconds converts p using the active definition.
func (e *Engine) ToLinearSeconds(p DateTimeParts) (int64, error) {
	s, err := e.Definition().ToLinearSeconds(p)
	metrics.RecordOperation("to_linear", err)
	return s, err
}

// FromLinearSeconds converts secs using the active definition.
func (e *Engine) FromLinearSeconds(secs int64) (DateTimeParts, error) {
	p, err := e.Definition().FromLinearSeconds(secs)
	metrics.RecordOperation("from_linear", err)
	return p, err
}

// WeekdayFor returns the weekday of p using the active definition.
func (e *Engine) WeekdayFor(p DateTimeParts) (int, error) {
	w, err := e.Definition().WeekdayFor(p)
	metrics.RecordOperation("weekday", err)
	return w, err
}

// PhaseFor returns moon's phase on p using the active definition.
func (e *Engine) PhaseFor(moon Moon, p DateTimeParts) (MoonPhaseResult, error) {
	r, err := e.Definition().PhaseFor(moon, p)
	metrics.RecordOperation("moon_phase", err)
	return r, err
}

// OccursOn reports whether note occurs on p using the active definition.
func (e *Engine) OccursOn(note Note, p DateTimeParts) (bool, error) {
	ok, err := e.Definition().OccursOn(note, p)
	metrics.RecordOperation("occurs_on", err)
	return ok, err
}

// NextOccurrence finds note's next occurrence after after.
func (e *Engine) NextOccurrence(note Note, after DateTimeParts) (DateTimeParts, bool, error) {
	p, ok, err := e.Definition().NextOccurrence(note, after)
	metrics.RecordOperation("next_occurrence", err)
	return p, ok, err
}

// OccurrencesBetween lists note's occurrences in [from, to].
func (e *Engine) OccurrencesBetween(note Note, from, to DateTimeParts, limit int) ([]DateTimeParts, error) {
	ps, err := e.Definition().OccurrencesBetween(note, from, to, limit)
	metrics.RecordOperation("occurrences_between", err)
	return ps, err
}
