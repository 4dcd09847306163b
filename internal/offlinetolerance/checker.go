// Package offlinetolerance reports the stretches of a date range where a
// sequence's raw sources were silent for longer than a number of clock hours.
package offlinetolerance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/datasequences"
)

var (
	ErrInvalidHours = errors.New("offline tolerance must be at least one clock hour")
	ErrInvalidDates = errors.New("offline tolerance dates out of order")
)

// Invalidation is a gap between two online clock hours, or a range boundary,
// longer than the tolerance.
type Invalidation struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Checker checks one sequence against its tolerance.
type Checker struct {
	Sequence datasequences.Sequence
	Hours    int
}

func (c Checker) Validate() error {
	if c.Hours < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidHours, c.Hours)
	}
	return nil
}

// Check returns the gaps in [fromDate, toDate], both whole days in the
// customer time zone. A clock hour is online when any period overlapping the
// range has a raw reading in it.
func (c Checker) Check(ctx context.Context, env datasequences.Env, fromDate, toDate time.Time) ([]Invalidation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if toDate.Before(fromDate) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidDates, fromDate.Format(time.DateOnly), toDate.Format(time.DateOnly))
	}
	loc := env.Zone()
	bounds := period.DateRange{From: fromDate, To: toDate}.Timestamps(loc)

	online := make(map[time.Time]int)
	for _, p := range datasequences.SourcePeriods(c.Sequence) {
		from, to, ok := p.Intersect(bounds.From, bounds.To)
		if !ok {
			continue
		}
		points, err := env.Raw.PointsInRange(ctx, p.Source.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("offline tolerance of %q: %w", c.Sequence.Info().Name, err)
		}
		for _, pt := range points {
			online[condense.Floor(pt.Timestamp, condense.Hours, loc)]++
		}
	}

	marks := make([]time.Time, 0, len(online)+2)
	marks = append(marks, bounds.From, bounds.To)
	for hour, count := range online {
		if count > 0 {
			marks = append(marks, hour)
		}
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].Before(marks[j]) })

	var out []Invalidation
	for i := 1; i < len(marks); i++ {
		a, b := marks[i-1], marks[i]
		if int(b.Sub(a)/time.Hour) > c.Hours {
			out = append(out, Invalidation{From: a.In(loc), To: b.In(loc)})
		}
	}

	if len(out) > 0 {
		slog.Debug("[Offline] Sequence offline",
			"sequence", c.Sequence.Info().Name,
			"gaps", len(out),
			"tolerance_hours", c.Hours)
	}
	return out, nil
}
