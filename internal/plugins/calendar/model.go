// Package calendar provides the fantasy calendar engine: custom months and
// weekdays, leap-year rules, intercalary months, moons with phase tracking,
// seasons, year names, and recurring notes. Dates convert exactly to and from
// linear time (seconds since the calendar epoch) so that stored timestamps
// survive any later change to the calendar definition.
package calendar

import "fmt"

// Config is the editable, serializable form of a calendar. It is turned into
// an immutable Definition by BuildDefinition.
type Config struct {
	Name           string          `json:"name" yaml:"name"`
	General        GeneralSettings `json:"general" yaml:"general"`
	Year           YearConfig      `json:"year" yaml:"year"`
	LeapYear       LeapRuleConfig  `json:"leap_year" yaml:"leap_year"`
	Time           TimeConfig      `json:"time" yaml:"time"`
	Months         []Month         `json:"months" yaml:"months"`
	Weekdays       []Weekday       `json:"weekdays" yaml:"weekdays"`
	Moons          []Moon          `json:"moons,omitempty" yaml:"moons,omitempty"`
	Seasons        []Season        `json:"seasons,omitempty" yaml:"seasons,omitempty"`
	NoteCategories []NoteCategory  `json:"note_categories,omitempty" yaml:"note_categories,omitempty"`

	// CustomLeap overrides LeapYear with a programmatic rule. It cannot be
	// serialized and is dropped by the stores.
	CustomLeap *LeapCustom `json:"-" yaml:"-"`
}

// Month is a named month with a fixed length and an optional leap-year length.
type Month struct {
	ID           string `json:"id" yaml:"id,omitempty"`
	Name         string `json:"name" yaml:"name"`
	Abbreviation string `json:"abbreviation,omitempty" yaml:"abbreviation,omitempty"`
	Position     int    `json:"position" yaml:"position,omitempty"`
	Days         int    `json:"days" yaml:"days"`
	// LeapYearDays is the full length of the month in a leap year. Zero
	// means the month is the same length every year.
	LeapYearDays int `json:"leap_year_days,omitempty" yaml:"leap_year_days,omitempty"`
	// Intercalary months sit outside the regular month sequence. Unless
	// IntercalaryInclude is set their days do not advance the weekday cycle.
	Intercalary        bool `json:"intercalary,omitempty" yaml:"intercalary,omitempty"`
	IntercalaryInclude bool `json:"intercalary_include,omitempty" yaml:"intercalary_include,omitempty"`
	// StartingWeekday pins day 1 of this month to a weekday index.
	StartingWeekday *int `json:"starting_weekday,omitempty" yaml:"starting_weekday,omitempty"`
}

// daysIn returns the month length for a leap or common year.
func (m Month) daysIn(leap bool) int {
	if leap && m.LeapYearDays > 0 {
		return m.LeapYearDays
	}
	return m.Days
}

// counted reports whether the month's days take part in weekday counting.
func (m Month) counted() bool {
	return !m.Intercalary || m.IntercalaryInclude
}

// Weekday is a named day of the week.
type Weekday struct {
	ID           string `json:"id" yaml:"id,omitempty"`
	Name         string `json:"name" yaml:"name"`
	Abbreviation string `json:"abbreviation,omitempty" yaml:"abbreviation,omitempty"`
	Position     int    `json:"position" yaml:"position,omitempty"`
	RestDay      bool   `json:"rest_day,omitempty" yaml:"rest_day,omitempty"`
}

// YearConfig holds year display and numbering settings.
type YearConfig struct {
	// Current is the year shown when no stored current time exists yet.
	Current int    `json:"current" yaml:"current"`
	Prefix  string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Postfix string `json:"postfix,omitempty" yaml:"postfix,omitempty"`
	// YearZero is the year in which linear time 0 falls.
	YearZero int `json:"year_zero" yaml:"year_zero"`
	// SkipYearZero numbers years ..., -1, 1, ... with no year 0.
	SkipYearZero        bool             `json:"skip_year_zero,omitempty" yaml:"skip_year_zero,omitempty"`
	FirstWeekday        int              `json:"first_weekday" yaml:"first_weekday"`
	ShowWeekdayHeadings bool             `json:"show_weekday_headings" yaml:"show_weekday_headings"`
	Naming              YearNamingConfig `json:"naming" yaml:"naming"`
}

// YearNamingConfig is the serialized form of a YearNaming rule.
type YearNamingConfig struct {
	Rule  string   `json:"rule,omitempty" yaml:"rule,omitempty"` // "default", "repeat" or "random"
	Names []string `json:"names,omitempty" yaml:"names,omitempty"`
	Start int      `json:"start,omitempty" yaml:"start,omitempty"`
}

// LeapRuleConfig is the serialized form of a LeapRule.
type LeapRuleConfig struct {
	Rule     string `json:"rule" yaml:"rule"` // "none", "gregorian", "every" (alias "custom")
	Interval int    `json:"interval,omitempty" yaml:"interval,omitempty"`
	Offset   int    `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// TimeConfig defines the length of a day and how fast game time runs.
type TimeConfig struct {
	HoursPerDay      int `json:"hours_per_day" yaml:"hours_per_day"`
	MinutesPerHour   int `json:"minutes_per_hour" yaml:"minutes_per_hour"`
	SecondsPerMinute int `json:"seconds_per_minute" yaml:"seconds_per_minute"`
	// GameTimeRatio is game seconds per real second while the clock runs.
	GameTimeRatio float64 `json:"game_time_ratio,omitempty" yaml:"game_time_ratio,omitempty"`
	// UpdateFrequency is the clock tick interval in real seconds.
	UpdateFrequency int `json:"update_frequency,omitempty" yaml:"update_frequency,omitempty"`
}

// MoonYearReset controls whether a moon's cycle anchor moves forward.
type MoonYearReset string

// Moon anchor reset modes.
const (
	ResetNone     MoonYearReset = "none"
	ResetLeapYear MoonYearReset = "leap-year"
	ResetXYears   MoonYearReset = "x-years"
)

// Moon is a celestial body with a repeating phase cycle.
type Moon struct {
	ID             string       `json:"id" yaml:"id,omitempty"`
	Name           string       `json:"name" yaml:"name"`
	CycleLength    float64      `json:"cycle_length" yaml:"cycle_length"`
	Phases         []MoonPhase  `json:"phases,omitempty" yaml:"phases,omitempty"`
	FirstNewMoon   FirstNewMoon `json:"first_new_moon" yaml:"first_new_moon"`
	CycleDayAdjust float64      `json:"cycle_day_adjust,omitempty" yaml:"cycle_day_adjust,omitempty"`
	Color          string       `json:"color,omitempty" yaml:"color,omitempty"`
}

// MoonPhase is one named span of a moon's cycle.
type MoonPhase struct {
	Name      string  `json:"name" yaml:"name"`
	Length    float64 `json:"length" yaml:"length"`
	SingleDay bool    `json:"single_day,omitempty" yaml:"single_day,omitempty"`
	Icon      string  `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// FirstNewMoon anchors a moon's cycle. Month is 0-based, Day is 1-based.
type FirstNewMoon struct {
	YearReset MoonYearReset `json:"year_reset,omitempty" yaml:"year_reset,omitempty"`
	Year      int           `json:"year" yaml:"year"`
	YearX     int           `json:"year_x,omitempty" yaml:"year_x,omitempty"`
	Month     int           `json:"month" yaml:"month"`
	Day       int           `json:"day" yaml:"day"`
}

// Season is a named period starting on a fixed month and day each year.
type Season struct {
	ID            string `json:"id" yaml:"id,omitempty"`
	Name          string `json:"name" yaml:"name"`
	StartingMonth int    `json:"starting_month" yaml:"starting_month"`
	StartingDay   int    `json:"starting_day" yaml:"starting_day"`
	Color         string `json:"color,omitempty" yaml:"color,omitempty"`
	// Sunrise and sunset as seconds into the day.
	SunriseTime int `json:"sunrise_time,omitempty" yaml:"sunrise_time,omitempty"`
	SunsetTime  int `json:"sunset_time,omitempty" yaml:"sunset_time,omitempty"`
}

// NoteCategory is a label notes can be tagged with.
type NoteCategory struct {
	Name      string `json:"name" yaml:"name"`
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	TextColor string `json:"text_color,omitempty" yaml:"text_color,omitempty"`
}

// Game world time integration modes.
const (
	TimeIntegrationNone       = "none"
	TimeIntegrationSelf       = "self"
	TimeIntegrationThirdParty = "third-party"
	TimeIntegrationMixed      = "mixed"
)

// PermissionMatrix grants an action to roles and, optionally, named users.
type PermissionMatrix struct {
	Player              bool     `json:"player" yaml:"player"`
	TrustedPlayer       bool     `json:"trusted_player" yaml:"trusted_player"`
	AssistantGameMaster bool     `json:"assistant_game_master" yaml:"assistant_game_master"`
	Users               []string `json:"users,omitempty" yaml:"users,omitempty"`
}

// Permissions holds the per-action permission matrices.
type Permissions struct {
	ViewCalendar   PermissionMatrix `json:"view_calendar" yaml:"view_calendar"`
	AddNotes       PermissionMatrix `json:"add_notes" yaml:"add_notes"`
	ReorderNotes   PermissionMatrix `json:"reorder_notes" yaml:"reorder_notes"`
	ChangeDateTime PermissionMatrix `json:"change_date_time" yaml:"change_date_time"`
}

// GeneralSettings are the calendar-wide settings stored with the definition.
type GeneralSettings struct {
	GameWorldTimeIntegration string      `json:"game_world_time_integration" yaml:"game_world_time_integration"`
	ShowClock                bool        `json:"show_clock" yaml:"show_clock"`
	PF2ESync                 bool        `json:"pf2e_sync" yaml:"pf2e_sync"`
	Permissions              Permissions `json:"permissions" yaml:"permissions"`
}

// DefaultGeneralSettings returns the settings a new calendar starts with.
func DefaultGeneralSettings() GeneralSettings {
	return GeneralSettings{
		GameWorldTimeIntegration: TimeIntegrationMixed,
		ShowClock:                true,
		PF2ESync:                 true,
		Permissions: Permissions{
			ViewCalendar:   PermissionMatrix{Player: true, TrustedPlayer: true, AssistantGameMaster: true},
			AddNotes:       PermissionMatrix{},
			ReorderNotes:   PermissionMatrix{},
			ChangeDateTime: PermissionMatrix{},
		},
	}
}

// DateTimeParts is a structured date and time. Month is 0-based, Day is
// 1-based, and the time fields are 0-based.
type DateTimeParts struct {
	Year   int `json:"year" yaml:"year"`
	Month  int `json:"month" yaml:"month"`
	Day    int `json:"day" yaml:"day"`
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
	Second int `json:"second" yaml:"second"`
}

// DateOnly returns d with the time of day cleared.
func (d DateTimeParts) DateOnly() DateTimeParts {
	return DateTimeParts{Year: d.Year, Month: d.Month, Day: d.Day}
}

// Compare orders two values field by field. It returns -1, 0 or 1.
func (d DateTimeParts) Compare(o DateTimeParts) int {
	a := [...]int{d.Year, d.Month, d.Day, d.Hour, d.Minute, d.Second}
	b := [...]int{o.Year, o.Month, o.Day, o.Hour, o.Minute, o.Second}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Before reports whether d is strictly earlier than o.
func (d DateTimeParts) Before(o DateTimeParts) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly later than o.
func (d DateTimeParts) After(o DateTimeParts) bool { return d.Compare(o) > 0 }

func (d DateTimeParts) String() string {
	return fmt.Sprintf("%d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month+1, d.Day, d.Hour, d.Minute, d.Second)
}

// Repeat is how often a note recurs.
type Repeat string

// Note recurrence patterns.
const (
	RepeatNone    Repeat = "none"
	RepeatWeekly  Repeat = "weekly"
	RepeatMonthly Repeat = "monthly"
	RepeatYearly  Repeat = "yearly"
)

// ParseRepeat validates a stored recurrence value. The empty string is
// treated as RepeatNone.
func ParseRepeat(s string) (Repeat, error) {
	switch r := Repeat(s); r {
	case "":
		return RepeatNone, nil
	case RepeatNone, RepeatWeekly, RepeatMonthly, RepeatYearly:
		return r, nil
	}
	return "", configErrorf("repeat", "unknown value %q", s)
}

// Note is the part of a calendar note the recurrence matcher needs.
type Note struct {
	ID     string         `json:"id"`
	Anchor DateTimeParts  `json:"anchor"`
	End    *DateTimeParts `json:"end,omitempty"`
	Repeat Repeat         `json:"repeat"`
}
