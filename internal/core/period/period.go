// Package period implements half-open timestamp intervals used to bound
// data-sequence periods, and date ranges bounding consumption unions.
package period

import (
	"fmt"
	"sort"
	"time"

	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
)

// Range is the half-open interval [From, To). A zero To means the range is
// open-ended.
type Range struct {
	From time.Time
	To   time.Time
}

// Open reports whether the range has no end.
func (r Range) Open() bool {
	return r.To.IsZero()
}

// Contains reports whether t lies in [From, To).
func (r Range) Contains(t time.Time) bool {
	if t.Before(r.From) {
		return false
	}
	return r.Open() || t.Before(r.To)
}

// Overlaps reports whether two ranges share any instant.
func (r Range) Overlaps(o Range) bool {
	if !r.Open() && !o.From.Before(r.To) {
		return false
	}
	if !o.Open() && !r.From.Before(o.To) {
		return false
	}
	return true
}

// Intersect clips [from, to) to the range. ok is false when the result is
// empty.
func (r Range) Intersect(from, to time.Time) (time.Time, time.Time, bool) {
	if from.Before(r.From) {
		from = r.From
	}
	if !r.Open() && to.After(r.To) {
		to = r.To
	}
	return from, to, from.Before(to)
}

// Validate requires clock-hour aligned endpoints and a positive length.
func (r Range) Validate() error {
	if !hourAligned(r.From) {
		return fmt.Errorf("%w: period start %s is not a clock hour", coreerrors.ErrAlignment, r.From)
	}
	if r.Open() {
		return nil
	}
	if !hourAligned(r.To) {
		return fmt.Errorf("%w: period end %s is not a clock hour", coreerrors.ErrAlignment, r.To)
	}
	if !r.From.Before(r.To) {
		return fmt.Errorf("period end %s must be after start %s", r.To, r.From)
	}
	return nil
}

func hourAligned(t time.Time) bool {
	return t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func (r Range) String() string {
	if r.Open() {
		return fmt.Sprintf("[%s, ∞)", r.From.Format(time.RFC3339))
	}
	return fmt.Sprintf("[%s, %s)", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
}

// CheckNonOverlapping fails with ErrOverlappingPeriods when any two ranges
// overlap.
func CheckNonOverlapping(ranges []Range) error {
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].From.Before(sorted[j].From) })
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Overlaps(sorted[i]) {
			return fmt.Errorf("%w: %s and %s", coreerrors.ErrOverlappingPeriods, sorted[i-1], sorted[i])
		}
	}
	return nil
}

// DateRange is an inclusive range of calendar dates. Only the year, month
// and day of From and To are used; a zero To means open-ended.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Timestamps converts the date range to the timestamp range from midnight
// of From to midnight after To in loc.
func (d DateRange) Timestamps(loc *time.Location) Range {
	y, m, day := d.From.Date()
	r := Range{From: time.Date(y, m, day, 0, 0, 0, 0, loc)}
	if !d.To.IsZero() {
		y, m, day = d.To.Date()
		r.To = time.Date(y, m, day+1, 0, 0, 0, 0, loc)
	}
	return r
}

// Intersect clips [from, to) to the date range in loc.
func (d DateRange) Intersect(from, to time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	return d.Timestamps(loc).Intersect(from, to)
}
