package calendar

import (
	"fmt"
	"log/slog"
)

// LeapRule decides which years are leap years. The set of rules is closed:
// LeapNone, LeapEvery, LeapGregorian and LeapCustom.
type LeapRule interface {
	isLeap(year int) bool
	// period is the number of years after which the rule repeats, or 0 when
	// the rule is not known to repeat.
	period() int
	leapRule()
}

// leapCounter is implemented by rules that can count leap years in a range
// without visiting each year.
type leapCounter interface {
	// countLeap returns the number of leap years in [from, to).
	countLeap(from, to int) int64
}

// LeapNone never has leap years.
type LeapNone struct{}

func (LeapNone) isLeap(int) bool { return false }
func (LeapNone) period() int { return 1 }
func (LeapNone) leapRule() {}
func (LeapNone) countLeap(int, int) int64 { return 0 }

// LeapEvery makes every Interval-th year a leap year, counting from Offset.
// An Interval of zero or less yields no leap years.
type LeapEvery struct {
	Interval int
	Offset   int
}

func (r LeapEvery) isLeap(year int) bool {
	if r.Interval <= 0 {
		return false
	}
	return floorMod(year-r.Offset, r.Interval) == 0
}

func (r LeapEvery) period() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

func (LeapEvery) leapRule() {}

func (r LeapEvery) countLeap(from, to int) int64 {
	if r.Interval <= 0 || from >= to {
		return 0
	}
	i := int64(r.Interval)
	return floorDiv(int64(to-1-r.Offset), i) - floorDiv(int64(from-1-r.Offset), i)
}

// LeapGregorian applies the proleptic Gregorian rule to calendar years.
type LeapGregorian struct{}

func (LeapGregorian) isLeap(year int) bool {
	return floorMod(year, 4) == 0 && (floorMod(year, 100) != 0 || floorMod(year, 400) == 0)
}

func (LeapGregorian) period() int { return 400 }
func (LeapGregorian) leapRule() {}

func (LeapGregorian) countLeap(from, to int) int64 {
	if from >= to {
		return 0
	}
	upTo := func(y int64) int64 { // leap years in (-inf, y] relative to 0
		return floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400)
	}
	return upTo(int64(to-1)) - upTo(int64(from-1))
}

// LeapCustom delegates to Check, which receives the number of years since
// ReferenceYear. Check must be pure and defined for every input. Period may
// be set when the pattern is known to repeat; zero means aperiodic.
type LeapCustom struct {
	ReferenceYear int
	Period        int
	Check         func(yearsSinceReference int) bool
}

func (r LeapCustom) isLeap(year int) bool {
	if r.Check == nil {
		return false
	}
	return r.Check(year - r.ReferenceYear)
}

func (r LeapCustom) period() int { return r.Period }
func (LeapCustom) leapRule() {}

// maxLeapPeriod bounds the cycle of a custom rule so that per-cycle sums stay
// cheap to compute.
const maxLeapPeriod = 100_000

// leapRuleFromConfig resolves the serialized rule, preferring a programmatic
// custom rule when one is set.
func leapRuleFromConfig(c LeapRuleConfig, custom *LeapCustom) (LeapRule, error) {
	if custom != nil {
		if custom.Check == nil {
			return nil, configErrorf("leap_year", "custom rule has no check function")
		}
		if custom.Period < 0 || custom.Period > maxLeapPeriod {
			return nil, configErrorf("leap_year", "custom period %d out of range [0, %d]", custom.Period, maxLeapPeriod)
		}
		return *custom, nil
	}
	switch c.Rule {
	case "", "none":
		return LeapNone{}, nil
	case "gregorian":
		return LeapGregorian{}, nil
	case "every", "custom":
		if c.Interval <= 0 {
			slog.Error("leap year interval is not positive; no year will be a leap year",
				slog.Int("interval", c.Interval),
			)
		}
		return LeapEvery{Interval: c.Interval, Offset: c.Offset}, nil
	}
	return nil, configErrorf("leap_year.rule", "unknown rule %q", c.Rule)
}

// leapRuleConfig is the inverse of leapRuleFromConfig. Custom rules have no
// serialized form and come back as "none".
func leapRuleConfig(r LeapRule) LeapRuleConfig {
	switch r := r.(type) {
	case LeapNone:
		return LeapRuleConfig{Rule: "none"}
	case LeapEvery:
		return LeapRuleConfig{Rule: "every", Interval: r.Interval, Offset: r.Offset}
	case LeapGregorian:
		return LeapRuleConfig{Rule: "gregorian"}
	case LeapCustom:
		return LeapRuleConfig{Rule: "none"}
	default:
		panic(fmt.Sprintf("calendar: unhandled leap rule %T", r))
	}
}

// floorMod returns a mod b in [0, b) for b > 0.
func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// floorDiv returns a / b rounded toward negative infinity for b > 0.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func floorMod64(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
