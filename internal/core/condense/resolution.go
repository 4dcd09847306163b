// Package condense implements the resolution calendar: flooring and ceiling
// timestamps to minute, five-minute, hour, day, month, quarter and year
// boundaries in a given timezone.
package condense

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Resolution is one rung of the resolution ladder. Lower values are finer.
type Resolution int

const (
	Minutes Resolution = iota
	FiveMinutes
	Hours
	Days
	Months
	Quarters
	Years
)

// Ladder lists the resolutions from coarsest to finest.
var Ladder = []Resolution{Years, Quarters, Months, Days, Hours, FiveMinutes, Minutes}

var resolutionNames = map[Resolution]string{
	Minutes:     "minutes",
	FiveMinutes: "five_minutes",
	Hours:       "hours",
	Days:        "days",
	Months:      "months",
	Quarters:    "quarters",
	Years:       "years",
}

func (r Resolution) String() string {
	if name, ok := resolutionNames[r]; ok {
		return name
	}
	return fmt.Sprintf("resolution(%d)", int(r))
}

// Valid reports whether r is on the ladder.
func (r Resolution) Valid() bool {
	return r >= Minutes && r <= Years
}

// ParseResolution accepts the ladder names and the short forms "1m", "5m",
// "1h", "1d", "1mo", "1q" and "1y".
func ParseResolution(s string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minutes", "minute", "1m":
		return Minutes, nil
	case "five_minutes", "5m":
		return FiveMinutes, nil
	case "hours", "hour", "1h":
		return Hours, nil
	case "days", "day", "1d":
		return Days, nil
	case "months", "month", "1mo":
		return Months, nil
	case "quarters", "quarter", "1q":
		return Quarters, nil
	case "years", "year", "1y":
		return Years, nil
	}
	return 0, fmt.Errorf("unknown resolution %q", s)
}

// Next returns the next finer resolution. Minutes has no finer rung.
func (r Resolution) Next() (Resolution, bool) {
	if r <= Minutes || !r.Valid() {
		return r, false
	}
	return r - 1, true
}

// IsFiner reports whether a is strictly finer than b.
func IsFiner(a, b Resolution) bool {
	return a < b
}

// IsCoarser reports whether a is strictly coarser than b.
func IsCoarser(a, b Resolution) bool {
	return a > b
}

// Fixed reports whether the resolution has a fixed duration independent of
// the calendar.
func (r Resolution) Fixed() bool {
	return r <= Hours
}

// Duration returns the width of a fixed resolution.
func (r Resolution) Duration() time.Duration {
	switch r {
	case Minutes:
		return time.Minute
	case FiveMinutes:
		return 5 * time.Minute
	case Hours:
		return time.Hour
	}
	panic(fmt.Sprintf("condense: %s has no fixed duration", r))
}

// Floor returns the start of the resolution bucket containing t.
//
// Day and coarser buckets are computed on the wall clock in loc and
// localized again, so the result is always a real midnight in loc. Finer
// buckets are multiples of their duration in absolute (UTC) time, matching
// the cache tables; an ambiguous fall-back hour stays distinguishable from
// its twin. Zones with a fractional-hour offset are rejected by
// CheckWholeHourZone.
func Floor(t time.Time, r Resolution, loc *time.Location) time.Time {
	if r.Fixed() {
		return t.Truncate(r.Duration())
	}

	local := t.In(loc)
	year, month, day := local.Date()
	switch r {
	case Days:
	case Months:
		day = 1
	case Quarters:
		day = 1
		month = time.Month((int(month)-1)/3*3 + 1)
	case Years:
		day = 1
		month = time.January
	default:
		panic(fmt.Sprintf("condense: invalid resolution %d", int(r)))
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// CheckWholeHourZone reports an error when loc has an offset that is not a
// whole number of hours at any month start from 2000 to 2100. In such a zone
// local midnights are not clock hours, so day buckets cannot be built from
// hourly deltas.
func CheckWholeHourZone(loc *time.Location) error {
	for year := 2000; year <= 2100; year++ {
		for month := time.January; month <= time.December; month++ {
			_, offset := time.Date(year, month, 1, 12, 0, 0, 0, loc).Zone()
			if offset%3600 != 0 {
				return fmt.Errorf("time zone %s has offset %s in %d-%02d, not a whole hour",
					loc, time.Duration(offset)*time.Second, year, month)
			}
		}
	}
	return nil
}

// Ceil returns t when it is aligned to r, otherwise the start of the next
// bucket.
func Ceil(t time.Time, r Resolution, loc *time.Location) time.Time {
	floored := Floor(t, r, loc)
	if floored.Equal(t) {
		return t
	}
	return Add(floored, r, loc, 1)
}

// IsAligned reports whether t is a bucket start for r.
func IsAligned(t time.Time, r Resolution, loc *time.Location) bool {
	return Floor(t, r, loc).Equal(t)
}

// Add steps t forward by n buckets of r. Calendar resolutions are stepped on
// the wall clock in loc.
func Add(t time.Time, r Resolution, loc *time.Location, n int) time.Time {
	if r.Fixed() {
		return t.Add(time.Duration(n) * r.Duration())
	}
	local := t.In(loc)
	switch r {
	case Days:
		return local.AddDate(0, 0, n)
	case Months:
		return local.AddDate(0, n, 0)
	case Quarters:
		return local.AddDate(0, 3*n, 0)
	case Years:
		return local.AddDate(n, 0, 0)
	}
	panic(fmt.Sprintf("condense: invalid resolution %d", int(r)))
}

// Boundaries yields from, from+r, from+2r, ... while strictly before to.
func Boundaries(from, to time.Time, r Resolution, loc *time.Location) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for t := from; t.Before(to); t = Add(t, r, loc, 1) {
			if !yield(t) {
				return
			}
		}
	}
}

// Buckets yields the [start, end) pairs of r-buckets covering [from, to).
func Buckets(from, to time.Time, r Resolution, loc *time.Location) iter.Seq2[time.Time, time.Time] {
	return func(yield func(time.Time, time.Time) bool) {
		for t := range Boundaries(from, to, r, loc) {
			if !yield(t, Add(t, r, loc, 1)) {
				return
			}
		}
	}
}
