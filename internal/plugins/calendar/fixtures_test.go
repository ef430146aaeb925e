package calendar

import (
	"errors"
	"testing"
)

// --- Test Helpers ---

func standardTime() TimeConfig {
	return TimeConfig{HoursPerDay: 24, MinutesPerHour: 60, SecondsPerMinute: 60}
}

func sevenWeekdays() []Weekday {
	names := []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	out := make([]Weekday, len(names))
	for i, n := range names {
		out[i] = Weekday{Name: n}
	}
	return out
}

// gregorianLikeConfig is a twelve-month calendar with a leap day in the
// second month every fourth year counted from year 0.
func gregorianLikeConfig() Config {
	lengths := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	names := []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	months := make([]Month, len(lengths))
	for i := range lengths {
		months[i] = Month{Name: names[i], Days: lengths[i]}
	}
	months[1].LeapYearDays = 29
	return Config{
		Name:     "Test",
		General:  DefaultGeneralSettings(),
		Year:     YearConfig{Current: 1, ShowWeekdayHeadings: true},
		LeapYear: LeapRuleConfig{Rule: "every", Interval: 4},
		Time:     standardTime(),
		Months:   months,
		Weekdays: sevenWeekdays(),
	}
}

// twoMonthConfig has months A and B of 30 days each and no leap years.
func twoMonthConfig() Config {
	return Config{
		Name:     "Two Months",
		LeapYear: LeapRuleConfig{Rule: "none"},
		Time:     standardTime(),
		Months:   []Month{{Name: "A", Days: 30}, {Name: "B", Days: 30}},
		Weekdays: sevenWeekdays(),
	}
}

// mustBuild builds cfg or fails the test.
func mustBuild(t *testing.T, cfg Config) *Definition {
	t.Helper()
	def, err := BuildDefinition(cfg)
	if err != nil {
		t.Fatalf("BuildDefinition: %v", err)
	}
	return def
}

// assertConfigError checks that err is a *ConfigError.
func assertConfigError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected config error, got nil")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(err, ErrConfig) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}

// assertInvalidDate checks that err is an *InvalidDateError for field.
func assertInvalidDate(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected invalid %s, got nil", field)
	}
	var dateErr *InvalidDateError
	if !errors.As(err, &dateErr) || !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected *InvalidDateError, got %T: %v", err, err)
	}
	if dateErr.Field != field {
		t.Errorf("expected field %q, got %q", field, dateErr.Field)
	}
}

func date(year, month, day int) DateTimeParts {
	return DateTimeParts{Year: year, Month: month, Day: day}
}
