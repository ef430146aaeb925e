package calendar

import "sort"

// SeasonFor returns the season p's day falls in: the one with the latest
// start on or before the day, wrapping to the last season of the year for
// days before the first start. It returns nil when no seasons are defined.
func (d *Definition) SeasonFor(p DateTimeParts) (*Season, error) {
	if err := d.validateDay(p.Year, p.Month, p.Day); err != nil {
		return nil, err
	}
	if len(d.cfg.Seasons) == 0 {
		return nil, nil
	}
	seasons := d.Seasons()
	sort.SliceStable(seasons, func(i, j int) bool {
		a, b := seasons[i], seasons[j]
		if a.StartingMonth != b.StartingMonth {
			return a.StartingMonth < b.StartingMonth
		}
		return a.StartingDay < b.StartingDay
	})
	cur := seasons[len(seasons)-1]
	for _, s := range seasons {
		if s.StartingMonth < p.Month || (s.StartingMonth == p.Month && s.StartingDay <= p.Day) {
			cur = s
		}
	}
	return &cur, nil
}
