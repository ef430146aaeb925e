package calendar

import "fmt"

// Validate checks every field of p against the definition.
func (d *Definition) Validate(p DateTimeParts) error {
	if err := d.validateDay(p.Year, p.Month, p.Day); err != nil {
		return err
	}
	t := d.cfg.Time
	if p.Hour < 0 || p.Hour >= t.HoursPerDay {
		return invalidDate("hour", p.Hour, "out of range [0, %d)", t.HoursPerDay)
	}
	if p.Minute < 0 || p.Minute >= t.MinutesPerHour {
		return invalidDate("minute", p.Minute, "out of range [0, %d)", t.MinutesPerHour)
	}
	if p.Second < 0 || p.Second >= t.SecondsPerMinute {
		return invalidDate("second", p.Second, "out of range [0, %d)", t.SecondsPerMinute)
	}
	return nil
}

func (d *Definition) validateDay(year, month, day int) error {
	if d.cfg.Year.SkipYearZero && year == 0 {
		return invalidDate("year", year, "calendar has no year 0")
	}
	n, err := d.MonthDays(year, month)
	if err != nil {
		return err
	}
	if day < 1 || day > n {
		return invalidDate("day", day, "out of range [1, %d] for %s of year %d", n, d.cfg.Months[month].Name, year)
	}
	return nil
}

// Date builds and validates a DateTimeParts.
func (d *Definition) Date(year, month, day, hour, minute, second int) (DateTimeParts, error) {
	p := DateTimeParts{Year: year, Month: month, Day: day, Hour: hour, Minute: minute, Second: second}
	if err := d.Validate(p); err != nil {
		return DateTimeParts{}, err
	}
	return p, nil
}

// ToLinearSeconds converts a date to seconds since the epoch, which is the
// first second of year YearZero. Dates before the epoch are negative.
func (d *Definition) ToLinearSeconds(p DateTimeParts) (int64, error) {
	if err := d.Validate(p); err != nil {
		return 0, err
	}
	days, err := d.dayNumber(p)
	if err != nil {
		return 0, err
	}
	tod := int64(p.Hour)*d.secondsPerHour + int64(p.Minute)*d.secondsPerMinute + int64(p.Second)
	// Before the epoch, borrow a day so the product stays above the int64
	// floor whenever the final sum does.
	if days < 0 && tod > 0 {
		days++
		tod -= d.secondsPerDay
	}
	secs, ok := mul64(days, d.secondsPerDay)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, p)
	}
	if secs, ok = add64(secs, tod); !ok {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, p)
	}
	return secs, nil
}

// FromLinearSeconds converts seconds since the epoch back to a date. It is
// the exact inverse of ToLinearSeconds.
func (d *Definition) FromLinearSeconds(secs int64) (DateTimeParts, error) {
	days := floorDiv(secs, d.secondsPerDay)
	rem := secs - days*d.secondsPerDay

	p, err := d.fromDayNumber(days)
	if err != nil {
		return DateTimeParts{}, err
	}
	p.Hour = int(rem / d.secondsPerHour)
	rem %= d.secondsPerHour
	p.Minute = int(rem / d.secondsPerMinute)
	p.Second = int(rem % d.secondsPerMinute)
	return p, nil
}

// dayNumber returns the days from the epoch to p's day. p must be valid.
func (d *Definition) dayNumber(p DateTimeParts) (int64, error) {
	before, err := d.daysBefore(d.yearIndex(p.Year))
	if err != nil {
		return 0, err
	}
	leap := d.leap.isLeap(p.Year)
	n := int64(p.Day - 1)
	for _, m := range d.cfg.Months[:p.Month] {
		n += int64(m.daysIn(leap))
	}
	days, ok := add64(before.days, n)
	if !ok {
		return 0, ErrOverflow
	}
	return days, nil
}

// countedDayNumber is dayNumber restricted to days that advance the weekday
// cycle. The bool is false when p falls in an excluded intercalary month.
func (d *Definition) countedDayNumber(p DateTimeParts) (int64, bool, error) {
	if !d.cfg.Months[p.Month].counted() {
		return 0, false, nil
	}
	before, err := d.daysBefore(d.yearIndex(p.Year))
	if err != nil {
		return 0, false, err
	}
	leap := d.leap.isLeap(p.Year)
	n := int64(p.Day - 1)
	for _, m := range d.cfg.Months[:p.Month] {
		if m.counted() {
			n += int64(m.daysIn(leap))
		}
	}
	c, ok := add64(before.counted, n)
	if !ok {
		return 0, false, ErrOverflow
	}
	return c, true, nil
}

// fromDayNumber is the inverse of dayNumber.
func (d *Definition) fromDayNumber(days int64) (DateTimeParts, error) {
	k, start, err := d.yearForDay(days)
	if err != nil {
		return DateTimeParts{}, err
	}
	year := d.yearAt(k)
	leap := d.leap.isLeap(year)
	doy := days - start
	for i, m := range d.cfg.Months {
		n := int64(m.daysIn(leap))
		if doy < n {
			return DateTimeParts{Year: year, Month: i, Day: int(doy) + 1}, nil
		}
		doy -= n
	}
	// yearForDay guarantees the day lies inside the year.
	return DateTimeParts{}, fmt.Errorf("day %d not found in year %d", days, year)
}

// AddSeconds returns p moved by delta seconds.
func (d *Definition) AddSeconds(p DateTimeParts, delta int64) (DateTimeParts, error) {
	s, err := d.ToLinearSeconds(p)
	if err != nil {
		return DateTimeParts{}, err
	}
	if s, err = addSeconds(s, delta); err != nil {
		return DateTimeParts{}, err
	}
	return d.FromLinearSeconds(s)
}

// AddDays returns p moved by delta days, keeping the time of day.
func (d *Definition) AddDays(p DateTimeParts, delta int64) (DateTimeParts, error) {
	if err := d.Validate(p); err != nil {
		return DateTimeParts{}, err
	}
	n, err := d.dayNumber(p)
	if err != nil {
		return DateTimeParts{}, err
	}
	var ok bool
	if n, ok = add64(n, delta); !ok {
		return DateTimeParts{}, ErrOverflow
	}
	out, err := d.fromDayNumber(n)
	if err != nil {
		return DateTimeParts{}, err
	}
	out.Hour, out.Minute, out.Second = p.Hour, p.Minute, p.Second
	return out, nil
}

// DaysBetween returns the number of whole days from a to b.
func (d *Definition) DaysBetween(a, b DateTimeParts) (int64, error) {
	if err := d.Validate(a); err != nil {
		return 0, err
	}
	if err := d.Validate(b); err != nil {
		return 0, err
	}
	na, err := d.dayNumber(a)
	if err != nil {
		return 0, err
	}
	nb, err := d.dayNumber(b)
	if err != nil {
		return 0, err
	}
	diff, ok := add64(nb, -na)
	if !ok {
		return 0, ErrOverflow
	}
	return diff, nil
}

func addSeconds(s, delta int64) (int64, error) {
	out, ok := add64(s, delta)
	if !ok {
		return 0, ErrOverflow
	}
	return out, nil
}

// Duration converts a mixed span of days, hours, minutes and seconds to
// seconds under this calendar's time units.
func (d *Definition) Duration(days, hours, minutes, seconds int64) (int64, error) {
	total := seconds
	for _, part := range [...]struct{ n, unit int64 }{
		{days, d.secondsPerDay},
		{hours, d.secondsPerHour},
		{minutes, d.secondsPerMinute},
	} {
		v, ok := mul64(part.n, part.unit)
		if !ok {
			return 0, ErrOverflow
		}
		if total, ok = add64(total, v); !ok {
			return 0, ErrOverflow
		}
	}
	return total, nil
}
