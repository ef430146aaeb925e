package calendar

// NoWeekday is returned for days that are outside the weekday cycle, such as
// days of an intercalary month that is not counted.
const NoWeekday = -1

// WeekdayFor returns the weekday index of p's day, or NoWeekday.
func (d *Definition) WeekdayFor(p DateTimeParts) (int, error) {
	if err := d.validateDay(p.Year, p.Month, p.Day); err != nil {
		return 0, err
	}
	return d.weekdayOf(p)
}

// weekdayOf is WeekdayFor without validation.
func (d *Definition) weekdayOf(p DateTimeParts) (int, error) {
	n := len(d.cfg.Weekdays)
	m := d.cfg.Months[p.Month]
	if !m.counted() {
		return NoWeekday, nil
	}
	if m.StartingWeekday != nil {
		return floorMod(*m.StartingWeekday+p.Day-1, n), nil
	}
	c, _, err := d.countedDayNumber(p)
	if err != nil {
		return 0, err
	}
	return int(floorMod64(c+int64(d.cfg.Year.FirstWeekday), int64(n))), nil
}

// WeekdayName returns the name of p's weekday, or "" for days outside the
// weekday cycle.
func (d *Definition) WeekdayName(p DateTimeParts) (string, error) {
	w, err := d.WeekdayFor(p)
	if err != nil || w == NoWeekday {
		return "", err
	}
	return d.cfg.Weekdays[w].Name, nil
}
