package calendar

import "fmt"

// OccursOn reports whether note occurs on p's day. Time of day is ignored.
//
//   - RepeatNone matches the anchor day, or every day from the anchor to End
//     inclusive when End is set.
//   - RepeatWeekly matches days on or after the anchor with the anchor's
//     weekday.
//   - RepeatMonthly matches days on or after the anchor with the anchor's day
//     of month. Months too short for that day are skipped, never clamped, and
//     intercalary months outside the weekday cycle are skipped.
//   - RepeatYearly matches the anchor's month and day on or after the anchor.
func (d *Definition) OccursOn(note Note, p DateTimeParts) (bool, error) {
	a := note.Anchor.DateOnly()
	q := p.DateOnly()
	if err := d.validateDay(a.Year, a.Month, a.Day); err != nil {
		return false, fmt.Errorf("note anchor: %w", err)
	}
	if err := d.validateDay(q.Year, q.Month, q.Day); err != nil {
		return false, err
	}
	cmp := q.Compare(a)

	switch note.Repeat {
	case RepeatNone, "":
		if note.End == nil || cmp < 0 {
			return cmp == 0, nil
		}
		return q.Compare(note.End.DateOnly()) <= 0, nil
	case RepeatWeekly:
		if cmp < 0 {
			return false, nil
		}
		wa, err := d.weekdayOf(a)
		if err != nil {
			return false, err
		}
		if wa == NoWeekday {
			return cmp == 0, nil
		}
		wq, err := d.weekdayOf(q)
		if err != nil {
			return false, err
		}
		return wq == wa, nil
	case RepeatMonthly:
		if cmp <= 0 {
			return cmp == 0, nil
		}
		return q.Day == a.Day && d.cfg.Months[q.Month].counted(), nil
	case RepeatYearly:
		if cmp < 0 {
			return false, nil
		}
		return q.Month == a.Month && q.Day == a.Day, nil
	default:
		return false, configErrorf("repeat", "unknown value %q", note.Repeat)
	}
}

// NextOccurrence returns the first day strictly after after's day on which
// note occurs, carrying the anchor's time of day. The bool is false when the
// note never occurs again.
func (d *Definition) NextOccurrence(note Note, after DateTimeParts) (DateTimeParts, bool, error) {
	a := note.Anchor
	if err := d.validateDay(a.Year, a.Month, a.Day); err != nil {
		return DateTimeParts{}, false, fmt.Errorf("note anchor: %w", err)
	}
	if err := d.validateDay(after.Year, after.Month, after.Day); err != nil {
		return DateTimeParts{}, false, err
	}
	start, err := d.AddDays(after.DateOnly(), 1)
	if err != nil {
		return DateTimeParts{}, false, err
	}
	withTime := func(p DateTimeParts) DateTimeParts {
		p.Hour, p.Minute, p.Second = a.Hour, a.Minute, a.Second
		return p
	}
	// The anchor itself is always an occurrence.
	if start.Compare(a.DateOnly()) <= 0 {
		return withTime(a.DateOnly()), true, nil
	}

	switch note.Repeat {
	case RepeatNone, "":
		return DateTimeParts{}, false, nil
	case RepeatWeekly:
		p, ok, err := d.nextWeekday(a.DateOnly(), start)
		return withTime(p), ok, err
	case RepeatMonthly:
		p, ok := d.nextMonthDay(a.Day, start)
		return withTime(p), ok, nil
	case RepeatYearly:
		p, ok := d.nextYearDay(a.Month, a.Day, start)
		return withTime(p), ok, nil
	default:
		return DateTimeParts{}, false, configErrorf("repeat", "unknown value %q", note.Repeat)
	}
}

// OccurrencesBetween lists the occurrences of note in [from, to] by day, at
// most limit of them. A limit of zero or less means no limit.
func (d *Definition) OccurrencesBetween(note Note, from, to DateTimeParts, limit int) ([]DateTimeParts, error) {
	if err := d.validateDay(from.Year, from.Month, from.Day); err != nil {
		return nil, err
	}
	if err := d.validateDay(to.Year, to.Month, to.Day); err != nil {
		return nil, err
	}
	var out []DateTimeParts
	at := func(p DateTimeParts) DateTimeParts {
		p.Hour, p.Minute, p.Second = note.Anchor.Hour, note.Anchor.Minute, note.Anchor.Second
		return p
	}
	// A ranged note occurs on each day of its span.
	if (note.Repeat == RepeatNone || note.Repeat == "") && note.End != nil {
		lo, hi := from.DateOnly(), to.DateOnly()
		if a := note.Anchor.DateOnly(); lo.Before(a) {
			lo = a
		}
		if e := note.End.DateOnly(); e.Before(hi) {
			hi = e
		}
		for cur := lo; !cur.After(hi) && (limit <= 0 || len(out) < limit); {
			out = append(out, at(cur))
			var err error
			if cur, err = d.AddDays(cur, 1); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	first, err := d.OccursOn(note, from)
	if err != nil {
		return nil, err
	}
	if first && !from.DateOnly().After(to.DateOnly()) {
		out = append(out, at(from.DateOnly()))
	}
	cur := from
	for limit <= 0 || len(out) < limit {
		next, ok, err := d.NextOccurrence(note, cur)
		if err != nil {
			return nil, err
		}
		if !ok || next.DateOnly().Compare(to.DateOnly()) > 0 {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// scanYears bounds how many years the monthly and yearly searches cover. A
// day of month or year that exists at all exists within one leap period.
func (d *Definition) scanYears() int {
	if p := d.leap.period(); p > 0 {
		return p + 1
	}
	return blockYears
}

// nextWeekday finds the first day on or after start with the anchor's
// weekday, jumping a month at a time.
func (d *Definition) nextWeekday(anchor, start DateTimeParts) (DateTimeParts, bool, error) {
	target, err := d.weekdayOf(anchor)
	if err != nil {
		return DateTimeParts{}, false, err
	}
	if target == NoWeekday {
		return DateTimeParts{}, false, nil
	}
	n := len(d.cfg.Weekdays)
	months := len(d.cfg.Months)
	y, m, day := start.Year, start.Month, start.Day
	for i := 0; i < months*(n+2); i++ {
		md := d.cfg.Months[m].daysIn(d.leap.isLeap(y))
		if d.cfg.Months[m].counted() && day <= md {
			wd, err := d.weekdayOf(DateTimeParts{Year: y, Month: m, Day: day})
			if err != nil {
				return DateTimeParts{}, false, err
			}
			if hit := day + floorMod(target-wd, n); hit <= md {
				return DateTimeParts{Year: y, Month: m, Day: hit}, true, nil
			}
		}
		day = 1
		if m++; m == months {
			m, y = 0, d.nextYear(y)
		}
	}
	return DateTimeParts{}, false, nil
}

// nextMonthDay finds the first counted month on or after start's month that
// has day-of-month dom, not before start.
func (d *Definition) nextMonthDay(dom int, start DateTimeParts) (DateTimeParts, bool) {
	months := len(d.cfg.Months)
	y, m := start.Year, start.Month
	if start.Day > dom {
		if m++; m == months {
			m, y = 0, d.nextYear(y)
		}
	}
	for i := 0; i < months*d.scanYears(); i++ {
		mo := d.cfg.Months[m]
		if mo.counted() && mo.daysIn(d.leap.isLeap(y)) >= dom {
			return DateTimeParts{Year: y, Month: m, Day: dom}, true
		}
		if m++; m == months {
			m, y = 0, d.nextYear(y)
		}
	}
	return DateTimeParts{}, false
}

// nextYearDay finds the first year on or after start's year whose month
// has day dom, not before start.
func (d *Definition) nextYearDay(month, dom int, start DateTimeParts) (DateTimeParts, bool) {
	y := start.Year
	if month < start.Month || (month == start.Month && dom < start.Day) {
		y = d.nextYear(y)
	}
	for i := 0; i < d.scanYears(); i++ {
		if d.cfg.Months[month].daysIn(d.leap.isLeap(y)) >= dom {
			return DateTimeParts{Year: y, Month: month, Day: dom}, true
		}
		y = d.nextYear(y)
	}
	return DateTimeParts{}, false
}
