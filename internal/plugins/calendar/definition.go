package calendar

import (
	"math"
	"math/bits"
	"sort"

	"github.com/google/uuid"
)

// Definition is an immutable, validated calendar. It owns a per-year cache
// that lives and dies with it, so replacing a definition never serves stale
// year data. All methods are safe for concurrent use.
type Definition struct {
	cfg    Config
	leap   LeapRule
	naming YearNaming

	secondsPerMinute int64
	secondsPerHour   int64
	secondsPerDay    int64

	// origin is the astronomical year of year index 0 (the epoch year).
	origin int

	// common and leapYear are the lengths of a common and a leap year.
	common   span
	leapYear span
	// cycle is the sum over one leap period, for periodic rules.
	cycle span

	cache *yearCache
}

// BuildDefinition validates cfg and produces a Definition. The input is
// copied; later changes to cfg do not affect the result. Missing IDs are
// filled with fresh UUIDs and positions are normalized to 0..n-1.
func BuildDefinition(cfg Config) (*Definition, error) {
	cfg = cloneConfig(cfg)

	if err := normalizeMonths(cfg.Months); err != nil {
		return nil, err
	}
	if err := normalizeWeekdays(cfg.Weekdays); err != nil {
		return nil, err
	}
	sort.SliceStable(cfg.Months, func(i, j int) bool { return cfg.Months[i].Position < cfg.Months[j].Position })
	sort.SliceStable(cfg.Weekdays, func(i, j int) bool { return cfg.Weekdays[i].Position < cfg.Weekdays[j].Position })

	for i := range cfg.Months {
		m := &cfg.Months[i]
		if m.Days < 1 {
			return nil, configErrorf("months", "month %q has %d days", m.Name, m.Days)
		}
		if m.LeapYearDays < 0 {
			return nil, configErrorf("months", "month %q has %d leap year days", m.Name, m.LeapYearDays)
		}
		if m.StartingWeekday != nil && (*m.StartingWeekday < 0 || *m.StartingWeekday >= len(cfg.Weekdays)) {
			return nil, configErrorf("months", "month %q starting weekday %d out of range", m.Name, *m.StartingWeekday)
		}
	}
	if cfg.Year.FirstWeekday < 0 || cfg.Year.FirstWeekday >= len(cfg.Weekdays) {
		return nil, configErrorf("year.first_weekday", "%d out of range [0, %d)", cfg.Year.FirstWeekday, len(cfg.Weekdays))
	}

	d := &Definition{cfg: cfg}
	if err := d.buildTime(); err != nil {
		return nil, err
	}

	var err error
	if d.leap, err = leapRuleFromConfig(cfg.LeapYear, cfg.CustomLeap); err != nil {
		return nil, err
	}
	if cfg.CustomLeap == nil {
		d.cfg.LeapYear = leapRuleConfig(d.leap)
	}
	if d.naming, err = yearNamingFromConfig(cfg.Year.Naming); err != nil {
		return nil, err
	}
	d.cfg.Year.Naming = yearNamingConfig(d.naming)

	// With no year 0, a YearZero of 0 places the epoch at the start of year 1.
	d.origin = d.astro(cfg.Year.YearZero)

	d.common = d.monthsSpan(false)
	d.leapYear = d.monthsSpan(true)
	if err := d.buildCycle(); err != nil {
		return nil, err
	}
	d.cache = newYearCache()

	for i := range d.cfg.Moons {
		if err := d.validateMoon(&d.cfg.Moons[i]); err != nil {
			return nil, err
		}
	}
	for i := range d.cfg.Seasons {
		s := &d.cfg.Seasons[i]
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.StartingMonth < 0 || s.StartingMonth >= len(d.cfg.Months) {
			return nil, configErrorf("seasons", "season %q starting month %d out of range", s.Name, s.StartingMonth)
		}
		m := d.cfg.Months[s.StartingMonth]
		if s.StartingDay < 1 || s.StartingDay > max(m.Days, m.LeapYearDays) {
			return nil, configErrorf("seasons", "season %q starting day %d out of range", s.Name, s.StartingDay)
		}
	}
	return d, nil
}

// normalizeMonths assigns IDs and checks positions. When every position is
// zero the slice order is used.
func normalizeMonths(months []Month) error {
	if len(months) == 0 {
		return configErrorf("months", "at least one month is required")
	}
	pos := make([]int, len(months))
	for i := range months {
		if months[i].ID == "" {
			months[i].ID = uuid.NewString()
		}
		pos[i] = months[i].Position
	}
	if err := normalizePositions("months", pos); err != nil {
		return err
	}
	for i := range months {
		months[i].Position = pos[i]
	}
	return nil
}

func normalizeWeekdays(weekdays []Weekday) error {
	if len(weekdays) == 0 {
		return configErrorf("weekdays", "at least one weekday is required")
	}
	pos := make([]int, len(weekdays))
	for i := range weekdays {
		if weekdays[i].ID == "" {
			weekdays[i].ID = uuid.NewString()
		}
		pos[i] = weekdays[i].Position
	}
	if err := normalizePositions("weekdays", pos); err != nil {
		return err
	}
	for i := range weekdays {
		weekdays[i].Position = pos[i]
	}
	return nil
}

// normalizePositions requires pos to be a permutation of 0..n-1, or all zero.
func normalizePositions(field string, pos []int) error {
	allZero := true
	for _, p := range pos {
		if p != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		for i := range pos {
			pos[i] = i
		}
		return nil
	}
	seen := make([]bool, len(pos))
	for _, p := range pos {
		if p < 0 || p >= len(pos) || seen[p] {
			return configErrorf(field, "positions must be a permutation of 0..%d", len(pos)-1)
		}
		seen[p] = true
	}
	return nil
}

func (d *Definition) buildTime() error {
	t := d.cfg.Time
	if t.HoursPerDay <= 0 || t.MinutesPerHour <= 0 || t.SecondsPerMinute <= 0 {
		return configErrorf("time", "hours, minutes and seconds must be positive (got %d/%d/%d)",
			t.HoursPerDay, t.MinutesPerHour, t.SecondsPerMinute)
	}
	d.secondsPerMinute = int64(t.SecondsPerMinute)
	var ok bool
	if d.secondsPerHour, ok = mul64(d.secondsPerMinute, int64(t.MinutesPerHour)); !ok {
		return configErrorf("time", "day length overflows")
	}
	if d.secondsPerDay, ok = mul64(d.secondsPerHour, int64(t.HoursPerDay)); !ok {
		return configErrorf("time", "day length overflows")
	}
	if t.GameTimeRatio < 0 || math.IsNaN(t.GameTimeRatio) || math.IsInf(t.GameTimeRatio, 0) {
		return configErrorf("time.game_time_ratio", "must be a finite non-negative number")
	}
	if t.UpdateFrequency < 0 {
		return configErrorf("time.update_frequency", "must not be negative")
	}
	freq := t.UpdateFrequency
	if freq == 0 {
		freq = defaultUpdateFrequency
	}
	// The clock adds ratio*frequency game seconds per tick as an int64.
	if float64(freq)*t.GameTimeRatio >= math.MaxInt64 {
		return configErrorf("time.game_time_ratio", "advances more than the clock can hold per tick (%g x %ds)",
			t.GameTimeRatio, freq)
	}
	return nil
}

// buildCycle precomputes the length of one leap period. Rules that can count
// leap years directly do not need it.
func (d *Definition) buildCycle() error {
	if _, ok := d.leap.(leapCounter); ok {
		return nil
	}
	p := d.leap.period()
	if p <= 0 {
		return nil
	}
	for y := 1; y <= p; y++ {
		s, ok := d.cycle.add(d.yearSpanFor(y))
		if !ok {
			return configErrorf("leap_year", "leap period too long")
		}
		d.cycle = s
	}
	return nil
}

// validateMoon checks the cycle and phases and fills missing IDs and phases.
func (d *Definition) validateMoon(m *Moon) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if !(m.CycleLength > 0) || math.IsInf(m.CycleLength, 0) {
		return configErrorf("moons", "moon %q cycle length must be positive", m.Name)
	}
	if len(m.Phases) == 0 {
		m.Phases = DefaultPhases(m.CycleLength)
	}
	total := 0.0
	for _, p := range m.Phases {
		if !(p.Length > 0) {
			return configErrorf("moons", "moon %q phase %q length must be positive", m.Name, p.Name)
		}
		total += p.Length
	}
	if math.Abs(total-m.CycleLength) > 1e-6 {
		return configErrorf("moons", "moon %q phases sum to %g, cycle is %g", m.Name, total, m.CycleLength)
	}
	switch m.FirstNewMoon.YearReset {
	case "":
		m.FirstNewMoon.YearReset = ResetNone
	case ResetNone, ResetLeapYear:
	case ResetXYears:
		if m.FirstNewMoon.YearX <= 0 {
			return configErrorf("moons", "moon %q resets every %d years", m.Name, m.FirstNewMoon.YearX)
		}
	default:
		return configErrorf("moons", "moon %q unknown year reset %q", m.Name, m.FirstNewMoon.YearReset)
	}
	a := m.FirstNewMoon
	if err := d.validateDay(a.Year, a.Month, a.Day); err != nil {
		return configErrorf("moons", "moon %q first new moon: %v", m.Name, err)
	}
	return nil
}

// Config returns a copy of the configuration the definition was built from,
// with IDs and positions filled in.
func (d *Definition) Config() Config {
	return cloneConfig(d.cfg)
}

// Months returns a copy of the months in calendar order.
func (d *Definition) Months() []Month { return append([]Month(nil), d.cfg.Months...) }

// Weekdays returns a copy of the weekdays in order.
func (d *Definition) Weekdays() []Weekday { return append([]Weekday(nil), d.cfg.Weekdays...) }

// Moons returns a copy of the configured moons.
func (d *Definition) Moons() []Moon { return cloneConfig(Config{Moons: d.cfg.Moons}).Moons }

// Seasons returns a copy of the configured seasons.
func (d *Definition) Seasons() []Season { return append([]Season(nil), d.cfg.Seasons...) }

// SecondsPerDay is the length of one day in seconds.
func (d *Definition) SecondsPerDay() int64 { return d.secondsPerDay }

// IsLeapYear reports whether year is a leap year.
func (d *Definition) IsLeapYear(year int) bool { return d.leap.isLeap(year) }

// MonthDays returns the number of days in month (0-based) of year.
func (d *Definition) MonthDays(year, month int) (int, error) {
	if month < 0 || month >= len(d.cfg.Months) {
		return 0, invalidDate("month", month, "out of range [0, %d)", len(d.cfg.Months))
	}
	return d.cfg.Months[month].daysIn(d.leap.isLeap(year)), nil
}

// DaysInYear returns the number of days in year.
func (d *Definition) DaysInYear(year int) int {
	return int(d.yearSpanFor(year).days)
}

// astro maps a display year onto the continuous astronomical sequence.
func (d *Definition) astro(year int) int {
	if d.cfg.Year.SkipYearZero && year <= 0 {
		return year + 1
	}
	return year
}

// display is the inverse of astro.
func (d *Definition) display(a int) int {
	if d.cfg.Year.SkipYearZero && a <= 0 {
		return a - 1
	}
	return a
}

func (d *Definition) yearIndex(year int) int { return d.astro(year) - d.origin }
func (d *Definition) yearAt(index int) int { return d.display(index + d.origin) }

// nextYear returns the year after year, skipping year 0 when configured.
func (d *Definition) nextYear(year int) int { return d.display(d.astro(year) + 1) }

// prevYear returns the year before year.
func (d *Definition) prevYear(year int) int { return d.display(d.astro(year) - 1) }

func (d *Definition) monthsSpan(leap bool) span {
	var s span
	for _, m := range d.cfg.Months {
		n := int64(m.daysIn(leap))
		s.days += n
		if m.counted() {
			s.counted += n
		}
	}
	return s
}

func (d *Definition) yearSpanFor(year int) span {
	if d.leap.isLeap(year) {
		return d.leapYear
	}
	return d.common
}

func cloneConfig(c Config) Config {
	out := c
	out.Months = append([]Month(nil), c.Months...)
	for i, m := range out.Months {
		if m.StartingWeekday != nil {
			v := *m.StartingWeekday
			out.Months[i].StartingWeekday = &v
		}
	}
	out.Weekdays = append([]Weekday(nil), c.Weekdays...)
	out.Seasons = append([]Season(nil), c.Seasons...)
	out.NoteCategories = append([]NoteCategory(nil), c.NoteCategories...)
	out.Year.Naming.Names = append([]string(nil), c.Year.Naming.Names...)
	out.Moons = make([]Moon, len(c.Moons))
	for i, m := range c.Moons {
		m.Phases = append([]MoonPhase(nil), m.Phases...)
		out.Moons[i] = m
	}
	if c.Moons == nil {
		out.Moons = nil
	}
	p := &out.General.Permissions
	for _, pm := range []*PermissionMatrix{&p.ViewCalendar, &p.AddNotes, &p.ReorderNotes, &p.ChangeDateTime} {
		pm.Users = append([]string(nil), pm.Users...)
	}
	if c.CustomLeap != nil {
		cl := *c.CustomLeap
		out.CustomLeap = &cl
	}
	return out
}

// span is a count of days, and of the days that advance the weekday cycle.
type span struct {
	days    int64
	counted int64
}

func (s span) add(o span) (span, bool) {
	d, ok1 := add64(s.days, o.days)
	c, ok2 := add64(s.counted, o.counted)
	return span{d, c}, ok1 && ok2
}

func (s span) times(n int64) (span, bool) {
	d, ok1 := mul64(s.days, n)
	c, ok2 := mul64(s.counted, n)
	return span{d, c}, ok1 && ok2
}

func (s span) neg() span { return span{-s.days, -s.counted} }

func add64(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) != (b > 0) {
		return c, false
	}
	return c, true
}

func mul64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	neg := (a < 0) != (b < 0)
	ua, ub := abs64(a), abs64(b)
	hi, lo := bits.Mul64(ua, ub)
	if hi != 0 {
		return 0, false
	}
	if neg && lo == 1<<63 {
		return math.MinInt64, true
	}
	if lo > math.MaxInt64 {
		return 0, false
	}
	if neg {
		return -int64(lo), true
	}
	return int64(lo), true
}

func abs64(a int64) uint64 {
	if a < 0 {
		return uint64(-a)
	}
	return uint64(a)
}
