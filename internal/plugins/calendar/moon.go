package calendar

import (
	"fmt"
	"math"
)

// MoonPhaseResult is a moon's state on a given day.
type MoonPhaseResult struct {
	MoonID   string    `json:"moon_id"`
	MoonName string    `json:"moon_name"`
	Phase    MoonPhase `json:"phase"`
	Index    int       `json:"index"`
	IsWaxing bool      `json:"is_waxing"`
	// CycleDay is the position within the cycle, in [0, CycleLength).
	CycleDay float64 `json:"cycle_day"`
}

// DefaultPhases returns the eight standard phases for a cycle. The new,
// first quarter, full and last quarter phases last one day each when the
// cycle is long enough.
func DefaultPhases(cycle float64) []MoonPhase {
	names := [...]string{
		"New Moon", "Waxing Crescent", "First Quarter", "Waxing Gibbous",
		"Full Moon", "Waning Gibbous", "Last Quarter", "Waning Crescent",
	}
	icons := [...]string{
		"new", "waxing-crescent", "first-quarter", "waxing-gibbous",
		"full", "waning-gibbous", "last-quarter", "waning-crescent",
	}
	phases := make([]MoonPhase, len(names))
	if cycle <= 8 {
		for i := range phases {
			phases[i] = MoonPhase{Name: names[i], Length: cycle / 8, Icon: icons[i]}
		}
		return phases
	}
	between := (cycle - 4) / 4
	for i := range phases {
		p := MoonPhase{Name: names[i], Icon: icons[i], Length: between}
		if i%2 == 0 {
			p.Length, p.SingleDay = 1, true
		}
		phases[i] = p
	}
	return phases
}

// PhaseFor returns the phase of moon on p's day. The offset in days from the
// moon's anchor, plus CycleDayAdjust, is reduced into [0, CycleLength) and
// matched against the half-open phase spans in order.
func (d *Definition) PhaseFor(moon Moon, p DateTimeParts) (MoonPhaseResult, error) {
	cycle := moon.CycleLength
	if !(cycle > 0) || math.IsInf(cycle, 0) {
		return MoonPhaseResult{}, fmt.Errorf("%w: moon %q cycle length %g", ErrInvalidMoonConfig, moon.Name, cycle)
	}
	if len(moon.Phases) == 0 {
		return MoonPhaseResult{}, fmt.Errorf("%w: moon %q has no phases", ErrInvalidMoonConfig, moon.Name)
	}
	if err := d.validateDay(p.Year, p.Month, p.Day); err != nil {
		return MoonPhaseResult{}, err
	}

	anchor, err := d.moonAnchor(moon, p.Year)
	if err != nil {
		return MoonPhaseResult{}, err
	}
	dn, err := d.dayNumber(p)
	if err != nil {
		return MoonPhaseResult{}, err
	}
	an, err := d.dayNumber(anchor)
	if err != nil {
		return MoonPhaseResult{}, err
	}

	offset := float64(dn-an) + moon.CycleDayAdjust
	pos := math.Mod(offset, cycle)
	if pos < 0 {
		pos += cycle
	}
	if pos >= cycle {
		pos = 0
	}

	res := MoonPhaseResult{
		MoonID:   moon.ID,
		MoonName: moon.Name,
		IsWaxing: pos < cycle/2,
		CycleDay: pos,
	}
	acc := 0.0
	for i, ph := range moon.Phases {
		if pos < acc+ph.Length {
			res.Phase, res.Index = ph, i
			return res, nil
		}
		acc += ph.Length
	}
	// Rounding in the phase lengths can leave pos just past the last span.
	last := len(moon.Phases) - 1
	res.Phase, res.Index = moon.Phases[last], last
	return res, nil
}

// MoonsOn returns the phase of every configured moon on p's day.
func (d *Definition) MoonsOn(p DateTimeParts) ([]MoonPhaseResult, error) {
	out := make([]MoonPhaseResult, 0, len(d.cfg.Moons))
	for _, m := range d.cfg.Moons {
		r, err := d.PhaseFor(m, p)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// moonAnchor resolves the new moon the cycle counts from for dates in year.
// When a reset moves the anchor into a year whose anchor month is shorter,
// the anchor day is clamped to the month's last day.
func (d *Definition) moonAnchor(moon Moon, year int) (DateTimeParts, error) {
	f := moon.FirstNewMoon
	anchorYear := f.Year
	switch f.YearReset {
	case "", ResetNone:
	case ResetLeapYear:
		if y, ok := d.lastLeapYear(year); ok {
			anchorYear = y
		}
	case ResetXYears:
		if f.YearX <= 0 {
			return DateTimeParts{}, fmt.Errorf("%w: moon %q resets every %d years", ErrInvalidMoonConfig, moon.Name, f.YearX)
		}
		k := floorDiv(int64(d.astro(year)-d.astro(f.Year)), int64(f.YearX))
		anchorYear = d.display(d.astro(f.Year) + int(k)*f.YearX)
	default:
		return DateTimeParts{}, fmt.Errorf("%w: moon %q unknown year reset %q", ErrInvalidMoonConfig, moon.Name, f.YearReset)
	}

	n, err := d.MonthDays(anchorYear, f.Month)
	if err != nil {
		return DateTimeParts{}, fmt.Errorf("%w: moon %q anchor: %v", ErrInvalidMoonConfig, moon.Name, err)
	}
	day := min(f.Day, n)
	if day < 1 {
		return DateTimeParts{}, fmt.Errorf("%w: moon %q anchor day %d", ErrInvalidMoonConfig, moon.Name, f.Day)
	}
	return DateTimeParts{Year: anchorYear, Month: f.Month, Day: day}, nil
}

// lastLeapYear finds the most recent leap year at or before year.
func (d *Definition) lastLeapYear(year int) (int, bool) {
	limit := d.leap.period()
	if limit <= 0 {
		limit = blockYears
	}
	y := year
	for i := 0; i < limit; i++ {
		if d.leap.isLeap(y) {
			return y, true
		}
		y = d.prevYear(y)
	}
	return 0, false
}
