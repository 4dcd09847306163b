package datasequences

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/shopspring/decimal"
)

// PiecewisePeriod defines a piecewise-constant rate within its own range.
type PiecewisePeriod interface {
	Bounds() period.Range
	// Values yields the rate samples of [from, to), which lies within Bounds.
	Values(ctx context.Context, env Env, from, to time.Time) samples.Stream
	Validate(unit string) error
	Source() (rawdata.Source, bool)
}

// PiecewiseConstant is a sequence of rates constant on each sample, such as
// a tariff, a CO₂ factor or an energy-per-volume conversion. Resolution is
// the width of every sample it yields.
type PiecewiseConstant struct {
	Meta
	Resolution condense.Resolution
	Periods    []PiecewisePeriod
}

// Validate checks every period against the sequence unit and that no two
// periods overlap.
func (s *PiecewiseConstant) Validate() error {
	if s.Resolution != condense.Hours && s.Resolution != condense.FiveMinutes {
		return fmt.Errorf("piecewise constant %q: resolution %s: %w", s.Name, s.Resolution, coreerrors.ErrUndefinedSamples)
	}
	ranges := make([]period.Range, len(s.Periods))
	for i, p := range s.Periods {
		ranges[i] = p.Bounds()
		if err := p.Validate(s.Unit); err != nil {
			return fmt.Errorf("piecewise constant %q: %w", s.Name, err)
		}
	}
	if err := period.CheckNonOverlapping(ranges); err != nil {
		return fmt.Errorf("piecewise constant %q: %w", s.Name, err)
	}
	return nil
}

func (s *PiecewiseConstant) DependsOn() []Sequence { return nil }
func (s *PiecewiseConstant) inputs() []Sequence    { return nil }

func (s *PiecewiseConstant) ranges() []period.Range {
	out := make([]period.Range, len(s.Periods))
	for i, p := range s.Periods {
		out[i] = p.Bounds()
	}
	return out
}

// ValueSequence concatenates the rate samples of every period overlapping
// [from, to), clipped to the range.
func (s *PiecewiseConstant) ValueSequence(ctx context.Context, env Env, from, to time.Time) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		periods := append([]PiecewisePeriod(nil), s.Periods...)
		sort.Slice(periods, func(i, j int) bool { return periods[i].Bounds().From.Before(periods[j].Bounds().From) })
		for _, p := range periods {
			f, t, ok := p.Bounds().Intersect(from, to)
			if !ok {
				continue
			}
			for sample, err := range p.Values(ctx, env, f, t) {
				if !yield(sample, err) || err != nil {
					return
				}
			}
		}
	}
}

// Rates are not additive, so they exist only at their own resolution.
func (s *PiecewiseConstant) evaluate(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	if res != s.Resolution {
		return samples.Failed(fmt.Errorf("piecewise constant %q at %s: only defined at %s: %w",
			s.Name, res, s.Resolution, coreerrors.ErrUndefinedSamples))
	}
	return s.ValueSequence(ctx, env, from, to)
}

// FixedPeriod holds one value for its whole range, in buckets of Resolution.
type FixedPeriod struct {
	period.Range
	Value      decimal.Decimal
	Unit       string
	Resolution condense.Resolution
}

func (p FixedPeriod) Bounds() period.Range            { return p.Range }
func (p FixedPeriod) Source() (rawdata.Source, bool) { return rawdata.Source{}, false }

func (p FixedPeriod) Validate(unit string) error {
	if !p.Resolution.Fixed() {
		return fmt.Errorf("fixed period %s: resolution %s has no fixed width", p.Range, p.Resolution)
	}
	return requireCompatible(fmt.Sprintf("fixed period %s", p.Range), p.Unit, unit)
}

// Quantity is the fixed value.
func (p FixedPeriod) Quantity() (units.Quantity, error) {
	return units.FromDecimal(p.Value, p.Unit)
}

func (p FixedPeriod) Values(_ context.Context, env Env, from, to time.Time) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		q, err := p.Quantity()
		if err != nil {
			yield(samples.Ranged{}, err)
			return
		}
		loc := env.Zone()
		for f := condense.Ceil(from, p.Resolution, loc); ; {
			t := condense.Add(f, p.Resolution, loc, 1)
			if t.After(to) {
				return
			}
			if !yield(samples.Ranged{From: f, To: t, Quantity: q}, nil) {
				return
			}
			f = t
		}
	}
}

// SpotPricePeriod derives an hourly price from a spot price source:
// min(Coefficient × spot + Constant, Ceiling). Constant and Ceiling are in
// ConstantUnit; a nil Ceiling leaves the price unbounded.
type SpotPricePeriod struct {
	period.Range
	Src          rawdata.Source
	Coefficient  decimal.Decimal
	Constant     decimal.Decimal
	Ceiling      *decimal.Decimal
	ConstantUnit string
}

func (p SpotPricePeriod) Bounds() period.Range            { return p.Range }
func (p SpotPricePeriod) Source() (rawdata.Source, bool) { return p.Src, true }

func (p SpotPricePeriod) Validate(unit string) error {
	if err := requireCompatible(fmt.Sprintf("spot price period %s constant", p.Range), p.ConstantUnit, unit); err != nil {
		return err
	}
	return requireCompatible(fmt.Sprintf("spot price period %s source", p.Range), p.Src.Unit, unit)
}

// Price applies the coefficient, constant and ceiling to one spot value.
func (p SpotPricePeriod) Price(spot units.Quantity) (units.Quantity, error) {
	constant, err := units.FromDecimal(p.Constant, p.ConstantUnit)
	if err != nil {
		return units.Quantity{}, err
	}
	price, err := spot.Scale(p.Coefficient.Rat()).Add(constant)
	if err != nil {
		return units.Quantity{}, err
	}
	if p.Ceiling == nil {
		return price, nil
	}
	ceiling, err := units.FromDecimal(*p.Ceiling, p.ConstantUnit)
	if err != nil {
		return units.Quantity{}, err
	}
	return units.Min(price, ceiling)
}

// Values assumes the spot price source delivers one reading per hour.
func (p SpotPricePeriod) Values(ctx context.Context, env Env, from, to time.Time) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		for point, err := range rawdata.Sequence(ctx, env.Raw, p.Src, from, to) {
			if err != nil {
				yield(samples.Ranged{}, err)
				return
			}
			if !point.Timestamp.Before(to) {
				return
			}
			price, err := p.Price(point.Quantity)
			if err != nil {
				yield(samples.Ranged{}, fmt.Errorf("spot price at %s: %w", point.Timestamp, err))
				return
			}
			sample := samples.Ranged{From: point.Timestamp, To: point.Timestamp.Add(time.Hour), Quantity: price}
			if !yield(sample, nil) {
				return
			}
		}
	}
}

// RawPiecewisePeriod reads rates from a source with one reading per Width
// bucket, such as dynamic CO₂ factors in five-minute resolution.
type RawPiecewisePeriod struct {
	period.Range
	Src   rawdata.Source
	Width condense.Resolution
}

func (p RawPiecewisePeriod) Bounds() period.Range            { return p.Range }
func (p RawPiecewisePeriod) Source() (rawdata.Source, bool) { return p.Src, true }

func (p RawPiecewisePeriod) Validate(unit string) error {
	if !p.Width.Fixed() {
		return fmt.Errorf("raw piecewise period %s: width %s has no fixed duration", p.Range, p.Width)
	}
	return requireCompatible(fmt.Sprintf("raw piecewise period %s", p.Range), p.Src.Unit, unit)
}

func (p RawPiecewisePeriod) Values(ctx context.Context, env Env, from, to time.Time) samples.Stream {
	width := p.Width.Duration()
	return func(yield func(samples.Ranged, error) bool) {
		for point, err := range rawdata.Sequence(ctx, env.Raw, p.Src, from, to) {
			if err != nil {
				yield(samples.Ranged{}, err)
				return
			}
			if !point.Timestamp.Before(to) {
				return
			}
			if !yield(samples.Ranged{From: point.Timestamp, To: point.Timestamp.Add(width), Quantity: point.Quantity}, nil) {
				return
			}
		}
	}
}

// EnergyConversionPeriod reads energy-per-volume factors where each reading
// holds until the next one, and yields them in hourly samples.
type EnergyConversionPeriod struct {
	period.Range
	Src rawdata.Source
}

func (p EnergyConversionPeriod) Bounds() period.Range            { return p.Range }
func (p EnergyConversionPeriod) Source() (rawdata.Source, bool) { return p.Src, true }

func (p EnergyConversionPeriod) Validate(unit string) error {
	return requireCompatible(fmt.Sprintf("energy conversion period %s", p.Range), p.Src.Unit, unit)
}

func (p EnergyConversionPeriod) Values(ctx context.Context, env Env, from, to time.Time) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		if !isClockHour(from) || !isClockHour(to) {
			yield(samples.Ranged{}, fmt.Errorf("energy conversion %s - %s: %w", from, to, coreerrors.ErrAlignment))
			return
		}
		steps, err := p.steps(ctx, env, from, to)
		if err != nil {
			yield(samples.Ranged{}, err)
			return
		}

		// An hour takes the value of the step it starts in.
		hour := from
		for _, step := range steps {
			for hour.Before(step.From) {
				hour = hour.Add(time.Hour)
			}
			for hour.Before(step.To) {
				if !yield(samples.Ranged{From: hour, To: hour.Add(time.Hour), Quantity: step.Quantity}, nil) {
					return
				}
				hour = hour.Add(time.Hour)
			}
		}
	}
}

// steps turns the reading at or before from and the readings inside
// (from, to) into samples lasting until the next reading or to.
func (p EnergyConversionPeriod) steps(ctx context.Context, env Env, from, to time.Time) ([]samples.Ranged, error) {
	points, err := env.Raw.PointsInRange(ctx, p.Src.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("energy conversion %s: %w", p.Src.ID, err)
	}
	if len(points) == 0 || points[0].Timestamp.After(from) {
		before, ok, err := env.Raw.PointBefore(ctx, p.Src.ID, from)
		if err != nil {
			return nil, fmt.Errorf("energy conversion %s: %w", p.Src.ID, err)
		}
		if ok {
			points = append([]storage.RawPoint{before}, points...)
		}
	}

	var out []samples.Ranged
	for i, point := range points {
		if !point.Timestamp.Before(to) {
			break
		}
		end := to
		if i+1 < len(points) && points[i+1].Timestamp.Before(to) {
			end = points[i+1].Timestamp
		}
		q, err := p.Src.Quantity(point.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, samples.Ranged{From: point.Timestamp, To: end, Quantity: q})
	}
	return out, nil
}
