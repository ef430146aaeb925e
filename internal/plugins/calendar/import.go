// import.go provides calendar import from four formats: the native export,
// Simple Calendar (Foundry VTT, v1 and v2 exports), Calendaria (Foundry VTT)
// and Fantasy-Calendar.com. Every parser produces a Config; validation is
// left to BuildDefinition so import errors read like any other config error.
//
// Simple Calendar v1 exports refer to months by numericRepresentation and
// use 1-based days. v2 exports use 0-based month and day indexes.
//
// Calendaria uses object maps keyed by ID rather than arrays, sometimes
// nested under a "values" key. Seasons are day-of-year ranges.
//
// Fantasy-Calendar.com keeps the calendar under static_data and the current
// date under dynamic_data. Leap days are added to the month they belong to.
package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ImportFormat identifies which JSON format was detected.
type ImportFormat string

const (
	FormatChronicle  ImportFormat = "chronicle"
	FormatSimpleCal  ImportFormat = "simple-calendar"
	FormatCalendaria ImportFormat = "calendaria"
	FormatFantasyCal ImportFormat = "fantasy-calendar"
	FormatUnknown    ImportFormat = "unknown"
)

// ImportResult holds a parsed calendar ready to be built.
type ImportResult struct {
	Format ImportFormat `json:"format"`
	Config Config       `json:"config"`
	// Current is the in-game date stored in the file, if any.
	Current *DateTimeParts `json:"current,omitempty"`
	// Notes are fixed observances (festivals, holidays) found in the file.
	Notes []ImportedNote `json:"notes,omitempty"`
}

// ImportedNote is a note recovered from an import.
type ImportedNote struct {
	Title  string        `json:"title"`
	Anchor DateTimeParts `json:"anchor"`
	Repeat Repeat        `json:"repeat"`
}

// DetectAndParse auto-detects the format of raw JSON bytes and parses it.
func DetectAndParse(data []byte) (*ImportResult, error) {
	format := detectFormat(data)
	var (
		res *ImportResult
		err error
	)
	switch format {
	case FormatChronicle:
		res, err = parseChronicle(data)
	case FormatSimpleCal:
		res, err = parseSimpleCalendar(data)
	case FormatCalendaria:
		res, err = parseCalendaria(data)
	case FormatFantasyCal:
		res, err = parseFantasyCalendar(data)
	default:
		return nil, fmt.Errorf("unrecognized calendar format: could not detect Chronicle, Simple Calendar, Calendaria, or Fantasy-Calendar JSON")
	}
	if err != nil {
		return nil, err
	}
	applyTimeDefaults(&res.Config.Time)
	if res.Config.Name == "" {
		res.Config.Name = "Imported Calendar"
	}
	return res, nil
}

// topLevel is the undecoded top-level object of an import file.
type topLevel map[string]json.RawMessage

func (t topLevel) has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := t[k]; !ok {
			return false
		}
	}
	return true
}

// formatProbes are tried in order; the first match wins. The native export
// is checked first because it also carries a "calendar" key.
var formatProbes = []struct {
	format ImportFormat
	match  func(t topLevel) bool
}{
	{FormatChronicle, func(t topLevel) bool {
		var f string
		return json.Unmarshal(t["format"], &f) == nil && f == ExportFormatVersion
	}},
	// Simple Calendar v1 has one "calendar"; v2 a "calendars" array.
	{FormatSimpleCal, func(t topLevel) bool {
		return t.has("calendar") || t.has("exportVersion", "calendars")
	}},
	{FormatFantasyCal, func(t topLevel) bool {
		return t.has("static_data", "dynamic_data")
	}},
	// Calendaria keeps hoursPerDay under "days" and months in an object.
	{FormatCalendaria, func(t topLevel) bool {
		var days struct {
			HoursPerDay *json.RawMessage `json:"hoursPerDay"`
		}
		if json.Unmarshal(t["days"], &days) == nil && days.HoursPerDay != nil {
			return true
		}
		months := bytes.TrimSpace(t["months"])
		return len(months) > 0 && months[0] == '{'
	}},
}

// detectFormat reports which import format data is in.
func detectFormat(data []byte) ImportFormat {
	var t topLevel
	if err := json.Unmarshal(data, &t); err != nil {
		return FormatUnknown
	}
	for _, p := range formatProbes {
		if p.match(t) {
			return p.format
		}
	}
	return FormatUnknown
}

// --- Native ---

func parseChronicle(data []byte) (*ImportResult, error) {
	var export ChronicleExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parse chronicle JSON: %w", err)
	}
	return &ImportResult{
		Format:  FormatChronicle,
		Config:  export.Calendar,
		Current: export.Current,
	}, nil
}

// --- Simple Calendar ---

// scData is the Simple Calendar v1 export structure.
type scData struct {
	Calendar scCalendar `json:"calendar"`
}

// scCalendar holds a Simple Calendar configuration. Supports both v2 field
// names and v1 legacy aliases (yearSettings, monthSettings, etc.).
type scCalendar struct {
	Name           string           `json:"name"`
	CurrentDate    scCurrentDate    `json:"currentDate"`
	General        scGeneral        `json:"general"`
	LeapYear       scLeapYear       `json:"leapYear"`
	Months         []scMonth        `json:"months"`
	Moons          []scMoon         `json:"moons"`
	NoteCategories []scNoteCategory `json:"noteCategories"`
	Seasons        []scSeason       `json:"seasons"`
	Time           scTime           `json:"time"`
	Weekdays       []scWeekday      `json:"weekdays"`
	Year           scYear           `json:"year"`
}

// UnmarshalJSON handles Simple Calendar v1 legacy field names as aliases.
func (c *scCalendar) UnmarshalJSON(data []byte) error {
	type Alias scCalendar
	var v2 Alias
	if err := json.Unmarshal(data, &v2); err != nil {
		return err
	}
	*c = scCalendar(v2)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	alias := func(key string, empty bool, v any) {
		if r, ok := raw[key]; ok && empty {
			_ = json.Unmarshal(r, v)
		}
	}
	alias("monthSettings", len(c.Months) == 0, &c.Months)
	alias("weekdaySettings", len(c.Weekdays) == 0, &c.Weekdays)
	alias("seasonSettings", len(c.Seasons) == 0, &c.Seasons)
	alias("moonSettings", len(c.Moons) == 0, &c.Moons)
	alias("yearSettings", c.Year.NumericRepresentation == 0, &c.Year)
	alias("timeSettings", c.Time.HoursInDay == 0, &c.Time)
	alias("leapYearSettings", c.LeapYear.Rule == "", &c.LeapYear)
	return nil
}

type scCurrentDate struct {
	Year    int `json:"year"`
	Month   int `json:"month"`
	Day     int `json:"day"`
	Seconds int `json:"seconds"` // seconds since midnight
}

type scGeneral struct {
	GameWorldTimeIntegration string `json:"gameWorldTimeIntegration"`
	ShowClock                *bool  `json:"showClock"`
	PF2ESync                 *bool  `json:"pf2eSync"`
}

type scLeapYear struct {
	Rule      string `json:"rule"` // "none", "gregorian", "custom"
	CustomMod int    `json:"customMod"`
}

type scMonth struct {
	Name                  string `json:"name"`
	Abbreviation          string `json:"abbreviation"`
	NumericRepresentation int    `json:"numericRepresentation"`
	NumberOfDays          int    `json:"numberOfDays"`
	NumberOfLeapYearDays  int    `json:"numberOfLeapYearDays"`
	Intercalary           bool   `json:"intercalary"`
	IntercalaryInclude    bool   `json:"intercalaryInclude"`
	StartingWeekday       *int   `json:"startingWeekday"`
}

type scWeekday struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Restday      bool   `json:"restday"`
}

type scSeason struct {
	Name          string `json:"name"`
	StartingMonth int    `json:"startingMonth"`
	StartingDay   int    `json:"startingDay"`
	Color         string `json:"color"`
	CustomColor   string `json:"customColor"`
	SunriseTime   int    `json:"sunriseTime"`
	SunsetTime    int    `json:"sunsetTime"`
}

type scMoon struct {
	Name           string         `json:"name"`
	CycleLength    float64        `json:"cycleLength"`
	CycleDayAdjust float64        `json:"cycleDayAdjust"`
	FirstNewMoon   scFirstNewMoon `json:"firstNewMoon"`
	Phases         []scMoonPhase  `json:"phases"`
	Color          string         `json:"color"`
}

type scMoonPhase struct {
	Name      string  `json:"name"`
	Length    float64 `json:"length"`
	SingleDay bool    `json:"singleDay"`
	Icon      string  `json:"icon"`
}

type scFirstNewMoon struct {
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	YearReset string `json:"yearReset"`
	YearX     int    `json:"yearX"`
}

type scTime struct {
	HoursInDay      int     `json:"hoursInDay"`
	MinutesInHour   int     `json:"minutesInHour"`
	SecondsInMinute int     `json:"secondsInMinute"`
	GameTimeRatio   float64 `json:"gameTimeRatio"`
	UpdateFrequency int     `json:"updateFrequency"`
}

type scYear struct {
	NumericRepresentation int      `json:"numericRepresentation"`
	Prefix                string   `json:"prefix"`
	Postfix               string   `json:"postfix"`
	YearZero              int      `json:"yearZero"`
	FirstWeekday          int      `json:"firstWeekday"`
	ShowWeekdayHeadings   *bool    `json:"showWeekdayHeadings"`
	YearNames             []string `json:"yearNames"`
	YearNamingRule        string   `json:"yearNamingRule"`
	YearNamesStart        int      `json:"yearNamesStart"`
}

type scNoteCategory struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	TextColor string `json:"textColor"`
}

// parseSimpleCalendar handles v2 ("calendars" array) and v1 ("calendar").
func parseSimpleCalendar(data []byte) (*ImportResult, error) {
	var v2 struct {
		ExportVersion int          `json:"exportVersion"`
		Calendars     []scCalendar `json:"calendars"`
	}
	if err := json.Unmarshal(data, &v2); err == nil && len(v2.Calendars) > 0 {
		return parseSimpleCalendarInner(v2.Calendars[0], true)
	}

	var sc scData
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse simple calendar JSON: %w", err)
	}
	return parseSimpleCalendarInner(sc.Calendar, false)
}

// parseSimpleCalendarInner converts one Simple Calendar configuration.
// indexed selects the v2 convention of 0-based month and day indexes.
func parseSimpleCalendarInner(cal scCalendar, indexed bool) (*ImportResult, error) {
	cfg := Config{
		Name:    stripLocalizationKey(cal.Name),
		General: DefaultGeneralSettings(),
		Time: TimeConfig{
			HoursPerDay:      cal.Time.HoursInDay,
			MinutesPerHour:   cal.Time.MinutesInHour,
			SecondsPerMinute: cal.Time.SecondsInMinute,
			GameTimeRatio:    cal.Time.GameTimeRatio,
			UpdateFrequency:  cal.Time.UpdateFrequency,
		},
		Year: YearConfig{
			Current:             cal.Year.NumericRepresentation,
			Prefix:              cal.Year.Prefix,
			Postfix:             cal.Year.Postfix,
			YearZero:            cal.Year.YearZero,
			FirstWeekday:        cal.Year.FirstWeekday,
			ShowWeekdayHeadings: true,
			Naming: YearNamingConfig{
				Rule:  cal.Year.YearNamingRule,
				Names: cal.Year.YearNames,
				Start: cal.Year.YearNamesStart,
			},
		},
	}
	if cal.Year.ShowWeekdayHeadings != nil {
		cfg.Year.ShowWeekdayHeadings = *cal.Year.ShowWeekdayHeadings
	}
	if g := cal.General.GameWorldTimeIntegration; g != "" {
		cfg.General.GameWorldTimeIntegration = g
	}
	if cal.General.ShowClock != nil {
		cfg.General.ShowClock = *cal.General.ShowClock
	}
	if cal.General.PF2ESync != nil {
		cfg.General.PF2ESync = *cal.General.PF2ESync
	}

	switch cal.LeapYear.Rule {
	case "gregorian":
		cfg.LeapYear = LeapRuleConfig{Rule: "gregorian"}
	case "custom":
		cfg.LeapYear = LeapRuleConfig{Rule: "every", Interval: cal.LeapYear.CustomMod}
	default:
		cfg.LeapYear = LeapRuleConfig{Rule: "none"}
	}

	for i, m := range cal.Months {
		month := Month{
			Name:               stripLocalizationKey(m.Name),
			Abbreviation:       m.Abbreviation,
			Position:           i,
			Days:               m.NumberOfDays,
			Intercalary:        m.Intercalary,
			IntercalaryInclude: m.IntercalaryInclude,
			StartingWeekday:    m.StartingWeekday,
		}
		if m.NumberOfLeapYearDays != m.NumberOfDays {
			month.LeapYearDays = m.NumberOfLeapYearDays
		}
		cfg.Months = append(cfg.Months, month)
	}
	// month resolves a stored month reference to a 0-based index.
	month := func(v int) int {
		if indexed {
			return v
		}
		for i, m := range cal.Months {
			if m.NumericRepresentation == v {
				return i
			}
		}
		return v - 1
	}
	day := func(v int) int {
		if indexed {
			return v + 1
		}
		return v
	}

	for i, w := range cal.Weekdays {
		cfg.Weekdays = append(cfg.Weekdays, Weekday{
			Name:         stripLocalizationKey(w.Name),
			Abbreviation: w.Abbreviation,
			Position:     i,
			RestDay:      w.Restday,
		})
	}

	for _, m := range cal.Moons {
		moon := Moon{
			Name:           stripLocalizationKey(m.Name),
			CycleLength:    m.CycleLength,
			CycleDayAdjust: m.CycleDayAdjust,
			Color:          normalizeColor(m.Color),
			FirstNewMoon: FirstNewMoon{
				YearReset: MoonYearReset(m.FirstNewMoon.YearReset),
				Year:      m.FirstNewMoon.Year,
				YearX:     m.FirstNewMoon.YearX,
				Month:     month(m.FirstNewMoon.Month),
				Day:       day(m.FirstNewMoon.Day),
			},
		}
		for _, p := range m.Phases {
			moon.Phases = append(moon.Phases, MoonPhase{
				Name:      stripLocalizationKey(p.Name),
				Length:    p.Length,
				SingleDay: p.SingleDay,
				Icon:      p.Icon,
			})
		}
		cfg.Moons = append(cfg.Moons, moon)
	}

	for _, s := range cal.Seasons {
		color := s.Color
		if s.CustomColor != "" {
			color = s.CustomColor
		}
		cfg.Seasons = append(cfg.Seasons, Season{
			Name:          stripLocalizationKey(s.Name),
			StartingMonth: month(s.StartingMonth),
			StartingDay:   day(s.StartingDay),
			Color:         normalizeColor(color),
			SunriseTime:   s.SunriseTime,
			SunsetTime:    s.SunsetTime,
		})
	}

	for _, nc := range cal.NoteCategories {
		cfg.NoteCategories = append(cfg.NoteCategories, NoteCategory{
			Name:      nc.Name,
			Color:     normalizeColor(nc.Color),
			TextColor: nc.TextColor,
		})
	}

	res := &ImportResult{Format: FormatSimpleCal, Config: cfg}
	if cal.CurrentDate.Year != 0 || cal.CurrentDate.Month != 0 || cal.CurrentDate.Day != 0 {
		cur := DateTimeParts{
			Year:  cal.CurrentDate.Year,
			Month: month(cal.CurrentDate.Month),
			Day:   day(cal.CurrentDate.Day),
		}
		applyTimeDefaults(&cfg.Time)
		setTimeOfDay(&cur, cfg.Time, cal.CurrentDate.Seconds)
		res.Current = &cur
	}
	return res, nil
}

// --- Calendaria ---

// calData is the Calendaria JSON structure.
type calData struct {
	Name           string                 `json:"name"`
	Years          calYears               `json:"years"`
	LeapYearConfig calLeapYear            `json:"leapYearConfig"`
	Days           calDays                `json:"days"`
	Weeks          map[string]calWeekday  `json:"weeks"`
	Months         map[string]calMonth    `json:"-"`
	Seasons        map[string]calSeason   `json:"-"`
	Moons          map[string]calMoon     `json:"-"`
	Festivals      map[string]calFestival `json:"-"`
}

// UnmarshalJSON handles Calendaria's inconsistent nesting: some files put
// data directly in "months": {...}, others under "months": {"values": {...}}.
func (d *calData) UnmarshalJSON(data []byte) error {
	type Alias struct {
		Name           string                `json:"name"`
		Years          calYears              `json:"years"`
		LeapYearConfig calLeapYear           `json:"leapYearConfig"`
		Days           calDays               `json:"days"`
		Weeks          map[string]calWeekday `json:"weeks"`
	}
	var alias Alias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	d.Name = alias.Name
	d.Years = alias.Years
	d.LeapYearConfig = alias.LeapYearConfig
	d.Days = alias.Days
	d.Weeks = alias.Weeks

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Months = unmarshalValuedMap[calMonth](raw, "months")
	d.Seasons = unmarshalValuedMap[calSeason](raw, "seasons")
	d.Moons = unmarshalValuedMap[calMoon](raw, "moons")
	d.Festivals = unmarshalValuedMap[calFestival](raw, "festivals")
	return nil
}

// unmarshalValuedMap decodes a field that is either a direct map or a map
// nested under a "values" key.
func unmarshalValuedMap[T any](raw map[string]json.RawMessage, key string) map[string]T {
	fieldRaw, ok := raw[key]
	if !ok {
		return nil
	}
	var wrapper struct {
		Values map[string]T `json:"values"`
	}
	if err := json.Unmarshal(fieldRaw, &wrapper); err == nil && len(wrapper.Values) > 0 {
		return wrapper.Values
	}
	var direct map[string]T
	if err := json.Unmarshal(fieldRaw, &direct); err == nil && len(direct) > 0 {
		return direct
	}
	return nil
}

// sortedValues returns the map's values ordered by key(v), then map key.
func sortedValues[T any](m map[string]T, key func(T) int) []T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := key(m[keys[i]]), key(m[keys[j]])
		if a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}

type calYears struct {
	YearZero     int         `json:"yearZero"`
	FirstWeekday int         `json:"firstWeekday"`
	LeapYear     *calLeapYr2 `json:"leapYear,omitempty"`
}

type calLeapYr2 struct {
	LeapStart    int `json:"leapStart"`
	LeapInterval int `json:"leapInterval"`
}

type calLeapYear struct {
	Rule     string `json:"rule"` // "none", "gregorian", "custom"
	Interval int    `json:"interval"`
	Start    int    `json:"start"`
}

type calMonth struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Ordinal      int    `json:"ordinal"`
	Days         int    `json:"days"`
	LeapDays     int    `json:"leapDays,omitempty"` // total days in a leap year
	Type         string `json:"type,omitempty"`     // "intercalary" for festival months
}

type calDays struct {
	Values           map[string]calWeekday `json:"values"`
	HoursPerDay      int                   `json:"hoursPerDay"`
	MinutesPerHour   int                   `json:"minutesPerHour"`
	SecondsPerMinute int                   `json:"secondsPerMinute"`
}

type calWeekday struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Ordinal      int    `json:"ordinal"`
	IsRestDay    bool   `json:"isRestDay"`
}

type calSeason struct {
	Name     string `json:"name"`
	Color    string `json:"color"`
	DayStart int    `json:"dayStart"` // day-of-year, 1-based
}

type calMoon struct {
	Name          string     `json:"name"`
	CycleLength   float64    `json:"cycleLength"`
	Color         string     `json:"color"`
	ReferenceDate calRefDate `json:"referenceDate"`
}

// calRefDate uses a 0-based month and a 1-based day.
type calRefDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// calFestival is a fixed observance; month and day are 1-based.
type calFestival struct {
	Name  string `json:"name"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
}

func parseCalendaria(data []byte) (*ImportResult, error) {
	var cal calData
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calendaria JSON: %w", err)
	}

	cfg := Config{
		Name:    stripLocalizationKey(cal.Name),
		General: DefaultGeneralSettings(),
		Time: TimeConfig{
			HoursPerDay:      cal.Days.HoursPerDay,
			MinutesPerHour:   cal.Days.MinutesPerHour,
			SecondsPerMinute: cal.Days.SecondsPerMinute,
		},
		Year: YearConfig{
			Current:             cal.Years.YearZero,
			YearZero:            cal.Years.YearZero,
			FirstWeekday:        cal.Years.FirstWeekday,
			ShowWeekdayHeadings: true,
		},
		LeapYear: LeapRuleConfig{Rule: "none"},
	}

	switch cal.LeapYearConfig.Rule {
	case "gregorian":
		cfg.LeapYear = LeapRuleConfig{Rule: "gregorian"}
	case "custom":
		cfg.LeapYear = LeapRuleConfig{Rule: "every", Interval: cal.LeapYearConfig.Interval, Offset: cal.LeapYearConfig.Start}
	}
	if ly := cal.Years.LeapYear; ly != nil && ly.LeapInterval > 0 {
		cfg.LeapYear = LeapRuleConfig{Rule: "every", Interval: ly.LeapInterval, Offset: ly.LeapStart}
	}

	for i, m := range sortedValues(cal.Months, func(m calMonth) int { return m.Ordinal }) {
		month := Month{
			Name:         stripLocalizationKey(m.Name),
			Abbreviation: stripLocalizationKey(m.Abbreviation),
			Position:     i,
			Days:         m.Days,
			Intercalary:  m.Type == "intercalary",
		}
		if m.LeapDays > 0 && m.LeapDays != m.Days {
			month.LeapYearDays = m.LeapDays
		}
		cfg.Months = append(cfg.Months, month)
	}

	weekdays := cal.Days.Values
	if len(weekdays) == 0 {
		weekdays = cal.Weeks
	}
	for i, w := range sortedValues(weekdays, func(w calWeekday) int { return w.Ordinal }) {
		cfg.Weekdays = append(cfg.Weekdays, Weekday{
			Name:         stripLocalizationKey(w.Name),
			Abbreviation: stripLocalizationKey(w.Abbreviation),
			Position:     i,
			RestDay:      w.IsRestDay,
		})
	}

	for _, m := range sortedValues(cal.Moons, func(calMoon) int { return 0 }) {
		cfg.Moons = append(cfg.Moons, Moon{
			Name:        stripLocalizationKey(m.Name),
			CycleLength: m.CycleLength,
			Color:       normalizeColor(m.Color),
			FirstNewMoon: FirstNewMoon{
				YearReset: ResetNone,
				Year:      m.ReferenceDate.Year,
				Month:     m.ReferenceDate.Month,
				Day:       max(m.ReferenceDate.Day, 1),
			},
		})
	}

	for _, s := range sortedValues(cal.Seasons, func(s calSeason) int { return s.DayStart }) {
		month, day := dayOfYearToMonthDay(s.DayStart, cfg.Months)
		cfg.Seasons = append(cfg.Seasons, Season{
			Name:          stripLocalizationKey(s.Name),
			StartingMonth: month,
			StartingDay:   day,
			Color:         normalizeColor(s.Color),
		})
	}

	res := &ImportResult{Format: FormatCalendaria, Config: cfg}
	for _, f := range sortedValues(cal.Festivals, func(f calFestival) int { return f.Month*1000 + f.Day }) {
		res.Notes = append(res.Notes, ImportedNote{
			Title:  stripLocalizationKey(f.Name),
			Anchor: DateTimeParts{Year: cfg.Year.Current, Month: f.Month - 1, Day: f.Day},
			Repeat: RepeatYearly,
		})
	}
	return res, nil
}

// dayOfYearToMonthDay converts a 1-based day-of-year to a 0-based month and
// 1-based day using common-year month lengths. Out-of-range values clamp to
// the first or last day of the year.
func dayOfYearToMonthDay(dayOfYear int, months []Month) (int, int) {
	if dayOfYear <= 0 || len(months) == 0 {
		return 0, 1
	}
	cumulative := 0
	for i, m := range months {
		if dayOfYear <= cumulative+m.Days {
			return i, dayOfYear - cumulative
		}
		cumulative += m.Days
	}
	last := len(months) - 1
	return last, months[last].Days
}

// --- Fantasy-Calendar.com ---

type fcData struct {
	Name        string        `json:"name"`
	StaticData  fcStaticData  `json:"static_data"`
	DynamicData fcDynamicData `json:"dynamic_data"`
}

type fcStaticData struct {
	YearData fcYearData `json:"year_data"`
	Moons    []fcMoon   `json:"moons"`
	Clock    fcClock    `json:"clock"`
	Seasons  fcSeasons  `json:"seasons"`
}

type fcYearData struct {
	FirstDay   int          `json:"first_day"` // 1-based weekday of the first day
	GlobalWeek []string     `json:"global_week"`
	Timespans  []fcTimespan `json:"timespans"`
	LeapDays   []fcLeapDay  `json:"leap_days"`
}

type fcTimespan struct {
	Name   string `json:"name"`
	Type   string `json:"type"` // "month" or "intercalary"
	Length int    `json:"length"`
}

type fcLeapDay struct {
	Name     string `json:"name"`
	Timespan int    `json:"timespan"` // month index
	Interval string `json:"interval"` // e.g. "4", or "400,!100,4"
	Offset   int    `json:"offset"`
}

type fcMoon struct {
	Name   string  `json:"name"`
	Cycle  float64 `json:"cycle"`
	Shift  float64 `json:"shift"`
	Color  string  `json:"color"`
	Hidden bool    `json:"hidden"`
}

type fcClock struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

type fcSeasons struct {
	Data []fcSeason `json:"data"`
}

type fcSeason struct {
	Name  string    `json:"name"`
	Color [2]string `json:"color"` // [start, end]
}

type fcDynamicData struct {
	Year     int `json:"year"`
	Timespan int `json:"timespan"` // current month index
	Day      int `json:"day"`      // 1-based
	Hour     int `json:"hour"`
	Minute   int `json:"minute"`
}

func parseFantasyCalendar(data []byte) (*ImportResult, error) {
	var fc fcData
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse fantasy-calendar JSON: %w", err)
	}
	yd := fc.StaticData.YearData

	cfg := Config{
		Name:    fc.Name,
		General: DefaultGeneralSettings(),
		Time: TimeConfig{
			HoursPerDay:      fc.StaticData.Clock.Hours,
			MinutesPerHour:   fc.StaticData.Clock.Minutes,
			SecondsPerMinute: 60,
		},
		Year: YearConfig{
			Current:             fc.DynamicData.Year,
			FirstWeekday:        max(yd.FirstDay-1, 0),
			ShowWeekdayHeadings: true,
		},
		LeapYear: LeapRuleConfig{Rule: "none"},
	}

	for i, ts := range yd.Timespans {
		cfg.Months = append(cfg.Months, Month{
			Name:        ts.Name,
			Position:    i,
			Days:        ts.Length,
			Intercalary: ts.Type == "intercalary",
		})
	}

	// Only simple "every N years" leap days map onto a single leap rule; the
	// first such interval wins.
	for _, ld := range yd.LeapDays {
		if ld.Timespan < 0 || ld.Timespan >= len(cfg.Months) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(ld.Interval))
		if err != nil || n <= 0 {
			continue
		}
		if cfg.LeapYear.Rule == "none" {
			cfg.LeapYear = LeapRuleConfig{Rule: "every", Interval: n, Offset: ld.Offset}
		} else if cfg.LeapYear.Interval != n || cfg.LeapYear.Offset != ld.Offset {
			continue
		}
		m := &cfg.Months[ld.Timespan]
		if m.LeapYearDays == 0 {
			m.LeapYearDays = m.Days
		}
		m.LeapYearDays++
	}

	for i, name := range yd.GlobalWeek {
		cfg.Weekdays = append(cfg.Weekdays, Weekday{Name: name, Position: i})
	}
	if len(cfg.Weekdays) > 0 && cfg.Year.FirstWeekday >= len(cfg.Weekdays) {
		cfg.Year.FirstWeekday = 0
	}

	for _, m := range fc.StaticData.Moons {
		if m.Hidden {
			continue
		}
		cfg.Moons = append(cfg.Moons, Moon{
			Name:           m.Name,
			CycleLength:    m.Cycle,
			CycleDayAdjust: m.Shift,
			Color:          normalizeColor(m.Color),
			FirstNewMoon:   FirstNewMoon{YearReset: ResetNone, Year: 0, Month: 0, Day: 1},
		})
	}

	// The export carries no season start dates, so seasons are spread evenly.
	yearDays := 0
	for _, m := range cfg.Months {
		yearDays += m.Days
	}
	if n := len(fc.StaticData.Seasons.Data); n > 0 && yearDays > 0 {
		dayCounter := 1
		for i, s := range fc.StaticData.Seasons.Data {
			month, day := dayOfYearToMonthDay(dayCounter, cfg.Months)
			cfg.Seasons = append(cfg.Seasons, Season{
				Name:          s.Name,
				StartingMonth: month,
				StartingDay:   day,
				Color:         normalizeColor(s.Color[0]),
			})
			dayCounter += yearDays / n
			if i < yearDays%n {
				dayCounter++
			}
		}
	}

	res := &ImportResult{Format: FormatFantasyCal, Config: cfg}
	if dd := fc.DynamicData; dd.Day > 0 {
		res.Current = &DateTimeParts{Year: dd.Year, Month: dd.Timespan, Day: dd.Day, Hour: dd.Hour, Minute: dd.Minute}
	}
	return res, nil
}

// --- Helpers ---

// applyTimeDefaults fills a 24/60/60 day for formats that omit time.
func applyTimeDefaults(t *TimeConfig) {
	if t.HoursPerDay <= 0 {
		t.HoursPerDay = 24
	}
	if t.MinutesPerHour <= 0 {
		t.MinutesPerHour = 60
	}
	if t.SecondsPerMinute <= 0 {
		t.SecondsPerMinute = 60
	}
}

// setTimeOfDay splits seconds since midnight into hour, minute and second.
func setTimeOfDay(p *DateTimeParts, t TimeConfig, secs int) {
	spm := t.SecondsPerMinute
	sph := spm * t.MinutesPerHour
	p.Hour = secs / sph
	p.Minute = secs % sph / spm
	p.Second = secs % spm
}

// stripLocalizationKey removes Foundry VTT localization prefixes from names.
// e.g. "CALENDARIA.Calendar.Gregorian.Month.January" → "January"
func stripLocalizationKey(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return s
	}
	parts := strings.Split(s, ".")
	return parts[len(parts)-1]
}

// normalizeColor ensures a color string is a hex color, defaulting to gray.
func normalizeColor(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "#808080"
	}
	if c[0] != '#' {
		c = "#" + c
	}
	return c
}
