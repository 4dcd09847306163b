package datasequences

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/rawdata"
)

// PointPeriod reads instantaneous readings, such as temperature or power,
// from a source.
type PointPeriod struct {
	period.Range
	Source rawdata.Source
}

// PointSequence is a sequence of instantaneous readings.
type PointSequence struct {
	Meta
	Periods []PointPeriod
}

// Validate checks units and that no two periods overlap.
func (s *PointSequence) Validate() error {
	ranges := make([]period.Range, len(s.Periods))
	for i, p := range s.Periods {
		ranges[i] = p.Range
		if err := requireCompatible(fmt.Sprintf("point period %s", p.Range), p.Source.Unit, s.Unit); err != nil {
			return fmt.Errorf("point sequence %q: %w", s.Name, err)
		}
	}
	if err := period.CheckNonOverlapping(ranges); err != nil {
		return fmt.Errorf("point sequence %q: %w", s.Name, err)
	}
	return nil
}

func (s *PointSequence) DependsOn() []Sequence { return nil }
func (s *PointSequence) inputs() []Sequence    { return nil }

func (s *PointSequence) ranges() []period.Range {
	out := make([]period.Range, len(s.Periods))
	for i, p := range s.Periods {
		out[i] = p.Range
	}
	return out
}

func (s *PointSequence) sortedPeriods() []PointPeriod {
	out := append([]PointPeriod(nil), s.Periods...)
	sort.Slice(out, func(i, j int) bool { return out[i].From.Before(out[j].From) })
	return out
}

// RawSequence yields the readings of every period overlapping [from, to],
// each period contributing its readings within the overlap.
func (s *PointSequence) RawSequence(ctx context.Context, env Env, from, to time.Time) samples.PointStream {
	return func(yield func(samples.Point, error) bool) {
		for _, p := range s.sortedPeriods() {
			f, t := from, to
			if f.Before(p.From) {
				f = p.From
			}
			if !p.Open() && t.After(p.To) {
				t = p.To
			}
			if t.Before(f) {
				continue
			}
			for point, err := range rawdata.Sequence(ctx, env.Raw, p.Source, f, t) {
				if !yield(point, err) || err != nil {
					return
				}
			}
		}
	}
}

// bracketedSequence is RawSequence extended by the nearest reading outside
// either end, so values at from and to can be interpolated.
func (s *PointSequence) bracketedSequence(ctx context.Context, env Env, from, to time.Time) samples.PointStream {
	return func(yield func(samples.Point, error) bool) {
		periods := s.sortedPeriods()
		if len(periods) == 0 {
			return
		}
		emit := func(src rawdata.Source, before bool, t time.Time) bool {
			lookup := env.Raw.PointAfter
			if before {
				lookup = env.Raw.PointBefore
			}
			p, ok, err := lookup(ctx, src.ID, t)
			if err != nil {
				yield(samples.Point{}, fmt.Errorf("point sequence %q: %w", s.Name, err))
				return false
			}
			if !ok {
				return true
			}
			q, err := src.Quantity(p.Value)
			if err != nil {
				yield(samples.Point{}, err)
				return false
			}
			return yield(samples.Point{Timestamp: p.Timestamp, Quantity: q}, nil)
		}

		if first := periods[0]; !first.From.After(from) {
			if !emit(first.Source, true, from) {
				return
			}
		}
		for point, err := range s.RawSequence(ctx, env, from, to) {
			if !yield(point, err) || err != nil {
				return
			}
		}
		if last := periods[len(periods)-1]; last.Contains(to) {
			emit(last.Source, false, to)
		}
	}
}

// A point sequence evaluates to degenerate ranged samples.
func (s *PointSequence) evaluate(ctx context.Context, env Env, from, to time.Time) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		for p, err := range s.RawSequence(ctx, env, from, to) {
			if err != nil {
				yield(samples.Ranged{}, err)
				return
			}
			if !p.Timestamp.Before(to) {
				return
			}
			if !yield(samples.Ranged{From: p.Timestamp, To: p.Timestamp, Quantity: p.Quantity}, nil) {
				return
			}
		}
	}
}
