package calendar

import (
	"fmt"
	"sync"
)

const (
	// blockYears is the size of a memoized prefix-sum block for rules that
	// cannot count leap years directly.
	blockYears = 1024
	// maxScanYears bounds the years an aperiodic custom rule is evaluated over.
	maxScanYears = 1 << 26
	// maxYearIndex keeps year arithmetic far from int overflow.
	maxYearIndex = 1 << 52
	// maxCachedBlocks caps memory use of the block cache.
	maxCachedBlocks = 1 << 16
)

// yearCache memoizes per-block sums for aperiodic custom leap rules. It
// belongs to exactly one Definition.
type yearCache struct {
	mu     sync.Mutex
	blocks map[int]span
}

func newYearCache() *yearCache {
	return &yearCache{blocks: make(map[int]span)}
}

// blockSpan returns the sum over display years [b*blockYears, (b+1)*blockYears).
func (d *Definition) blockSpan(b int) span {
	c := d.cache
	c.mu.Lock()
	s, ok := c.blocks[b]
	c.mu.Unlock()
	if ok {
		return s
	}
	start := b * blockYears
	for y := start; y < start+blockYears; y++ {
		ys := d.yearSpanFor(y)
		s.days += ys.days
		s.counted += ys.counted
	}
	c.mu.Lock()
	if len(c.blocks) >= maxCachedBlocks {
		c.blocks = make(map[int]span)
	}
	c.blocks[b] = s
	c.mu.Unlock()
	return s
}

// displaySpan sums the lengths of the consecutive display years [from, to).
func (d *Definition) displaySpan(from, to int) (span, error) {
	if from >= to {
		return span{}, nil
	}
	n := int64(to - from)

	if lc, ok := d.leap.(leapCounter); ok {
		leaps := lc.countLeap(from, to)
		total, ok1 := d.common.times(n - leaps)
		extra, ok2 := d.leapYear.times(leaps)
		sum, ok3 := total.add(extra)
		if !ok1 || !ok2 || !ok3 {
			return span{}, ErrOverflow
		}
		return sum, nil
	}

	if p := d.leap.period(); p > 0 {
		q, r := n/int64(p), int(n%int64(p))
		total, ok := d.cycle.times(q)
		if !ok {
			return span{}, ErrOverflow
		}
		// The sum over any p consecutive years equals one cycle, so the
		// remainder can be taken from the start of the range.
		for y := from; y < from+r; y++ {
			if total, ok = total.add(d.yearSpanFor(y)); !ok {
				return span{}, ErrOverflow
			}
		}
		return total, nil
	}

	if from < -maxScanYears || to > maxScanYears {
		return span{}, fmt.Errorf("%w: year range [%d, %d) exceeds custom leap rule search limit", ErrOverflow, from, to)
	}
	var total span
	y := from
	for ; y < to && floorMod(y, blockYears) != 0; y++ {
		total, _ = total.add(d.yearSpanFor(y))
	}
	for ; y+blockYears <= to; y += blockYears {
		total, _ = total.add(d.blockSpan(int(floorDiv(int64(y), blockYears))))
	}
	for ; y < to; y++ {
		total, _ = total.add(d.yearSpanFor(y))
	}
	return total, nil
}

// indexSpan sums the years with index in [from, to), splitting at the missing
// year 0 when the calendar has none.
func (d *Definition) indexSpan(from, to int) (span, error) {
	a0, a1 := from+d.origin, to+d.origin
	if !d.cfg.Year.SkipYearZero {
		return d.displaySpan(a0, a1)
	}
	// Astronomical years <= 0 display one lower.
	var total span
	if a0 < 1 {
		s, err := d.displaySpan(a0-1, min(a1, 1)-1)
		if err != nil {
			return span{}, err
		}
		total = s
	}
	if a1 > 1 {
		s, err := d.displaySpan(max(a0, 1), a1)
		if err != nil {
			return span{}, err
		}
		var ok bool
		if total, ok = total.add(s); !ok {
			return span{}, ErrOverflow
		}
	}
	return total, nil
}

// daysBefore returns the days from the epoch to the start of the year with
// the given index. It is negative for years before the epoch.
func (d *Definition) daysBefore(index int) (span, error) {
	if index > maxYearIndex || index < -maxYearIndex {
		return span{}, ErrOverflow
	}
	if index >= 0 {
		return d.indexSpan(0, index)
	}
	s, err := d.indexSpan(index, 0)
	return s.neg(), err
}

// yearForDay finds the year index containing day number day (days since the
// epoch) and the day number of that year's first day. It gallops outward
// from an estimate and then bisects, since year lengths are irregular.
func (d *Definition) yearForDay(day int64) (int, int64, error) {
	avg := d.common.days
	if p := d.leap.period(); p > 0 && d.cycle.days > 0 {
		avg = max(1, d.cycle.days/int64(p))
	}
	est := floorDiv(day, avg)
	if est > maxYearIndex || est < -maxYearIndex {
		return 0, 0, ErrOverflow
	}
	startOf := func(k int) (int64, error) {
		s, err := d.daysBefore(k)
		return s.days, err
	}

	lo, hi := int(est), int(est)
	s, err := startOf(lo)
	if err != nil {
		return 0, 0, err
	}
	if s <= day {
		// Find hi with start(hi) > day.
		for step := 1; ; step *= 2 {
			hi = lo + step
			hs, err := startOf(hi)
			if err != nil {
				return 0, 0, err
			}
			if hs > day {
				break
			}
			lo = hi
		}
	} else {
		for step := 1; ; step *= 2 {
			lo = hi - step
			ls, err := startOf(lo)
			if err != nil {
				return 0, 0, err
			}
			if ls <= day {
				break
			}
			hi = lo
		}
	}
	// start(lo) <= day < start(hi)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		ms, err := startOf(mid)
		if err != nil {
			return 0, 0, err
		}
		if ms <= day {
			lo = mid
		} else {
			hi = mid
		}
	}
	start, err := startOf(lo)
	if err != nil {
		return 0, 0, err
	}
	return lo, start, nil
}
