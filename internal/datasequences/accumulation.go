package datasequences

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/shopspring/decimal"
)

// AccumulationPeriod defines an accumulation within its own range.
type AccumulationPeriod interface {
	Bounds() period.Range
	// Accumulated yields the increase per bucket of [from, to), which lies
	// within Bounds. res is Minutes, FiveMinutes or Hours.
	Accumulated(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream
	// Validate checks the period against the unit of its sequence.
	Validate(unit string) error
	// Source is the raw source behind the period, if any.
	Source() (rawdata.Source, bool)
}

// Accumulation is a sequence of accumulated quantities, such as a metered
// consumption or production.
type Accumulation struct {
	Meta
	Periods []AccumulationPeriod
}

// Validate checks every period against the sequence unit and that no two
// periods overlap.
func (a *Accumulation) Validate() error {
	ranges := make([]period.Range, len(a.Periods))
	for i, p := range a.Periods {
		ranges[i] = p.Bounds()
		if err := ranges[i].Validate(); err != nil {
			return fmt.Errorf("accumulation %q: %w", a.Name, err)
		}
		if err := p.Validate(a.Unit); err != nil {
			return fmt.Errorf("accumulation %q: %w", a.Name, err)
		}
	}
	if err := period.CheckNonOverlapping(ranges); err != nil {
		return fmt.Errorf("accumulation %q: %w", a.Name, err)
	}
	return nil
}

func (a *Accumulation) DependsOn() []Sequence { return nil }
func (a *Accumulation) inputs() []Sequence    { return nil }

func (a *Accumulation) ranges() []period.Range {
	out := make([]period.Range, len(a.Periods))
	for i, p := range a.Periods {
		out[i] = p.Bounds()
	}
	return out
}

func (a *Accumulation) sortedPeriods() []AccumulationPeriod {
	out := append([]AccumulationPeriod(nil), a.Periods...)
	sort.Slice(out, func(i, j int) bool { return out[i].Bounds().From.Before(out[j].Bounds().From) })
	return out
}

// accumulated concatenates the periods overlapping [from, to), each clipped
// to the range.
func (a *Accumulation) accumulated(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		for _, p := range a.sortedPeriods() {
			f, t, ok := p.Bounds().Intersect(from, to)
			if !ok {
				continue
			}
			for s, err := range p.Accumulated(ctx, env, f, t, res) {
				if !yield(s, err) || err != nil {
					return
				}
			}
		}
	}
}

// DevelopmentSequence yields the development of the accumulation per res
// bucket. Five-minute and hour buckets come from the condense cache, minutes
// straight from raw readings, and coarser buckets are hour deltas summed in
// env.Location.
func (a *Accumulation) DevelopmentSequence(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	switch res {
	case condense.Minutes, condense.FiveMinutes, condense.Hours:
		return a.accumulated(ctx, env, from, to, res)
	case condense.Days, condense.Months, condense.Quarters, condense.Years:
		return samples.AggregateSum(a.accumulated(ctx, env, from, to, condense.Hours), res, env.Zone())
	default:
		return samples.Failed(fmt.Errorf("development of %q: unsupported resolution %s", a.Name, res))
	}
}

// DevelopmentSum is the total development over [from, to), whose ends must
// be clock hours. ok is false when no period contributed.
func (a *Accumulation) DevelopmentSum(ctx context.Context, env Env, from, to time.Time) (units.Quantity, bool, error) {
	if !isClockHour(from) || !isClockHour(to) {
		return units.Quantity{}, false, fmt.Errorf("development sum of %q over %s - %s: %w", a.Name, from, to, coreerrors.ErrAlignment)
	}
	total, ok, err := samples.Sum(a.accumulated(ctx, env, from, to, condense.Hours))
	if err != nil || !ok {
		return units.Quantity{}, false, err
	}
	return total, true, nil
}

func isClockHour(t time.Time) bool {
	return t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func requireCompatible(what, have, want string) error {
	ok, err := units.CompatibleUnits(have, want)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if !ok {
		return fmt.Errorf("%s: %s is not compatible with %s: %w", what, have, want, coreerrors.ErrIncompatibleUnits)
	}
	return nil
}

// NonpulsePeriod reads an accumulating source directly.
type NonpulsePeriod struct {
	period.Range
	Src rawdata.Source
}

func (p NonpulsePeriod) Bounds() period.Range            { return p.Range }
func (p NonpulsePeriod) Source() (rawdata.Source, bool) { return p.Src, true }

func (p NonpulsePeriod) Validate(unit string) error {
	if units.IsImpulse(p.Src.Unit) {
		return fmt.Errorf("nonpulse period %s: source %s counts pulses", p.Range, p.Src.ID)
	}
	return requireCompatible(fmt.Sprintf("nonpulse period %s", p.Range), p.Src.Unit, unit)
}

func (p NonpulsePeriod) Accumulated(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	if res == condense.Minutes {
		return rawDeltas(ctx, env, p.Src, from, to)
	}
	return env.Cache.Accumulated(ctx, p.Src, from, to, res)
}

// PulsePeriod converts a pulse counter: every PulseQuantity pulses amount to
// OutputQuantity of OutputUnit.
type PulsePeriod struct {
	period.Range
	Src            rawdata.Source
	PulseQuantity  int64
	OutputQuantity decimal.Decimal
	OutputUnit     string
}

func (p PulsePeriod) Bounds() period.Range            { return p.Range }
func (p PulsePeriod) Source() (rawdata.Source, bool) { return p.Src, true }

func (p PulsePeriod) Validate(unit string) error {
	if !units.IsImpulse(p.Src.Unit) {
		return fmt.Errorf("pulse period %s: source %s does not count pulses", p.Range, p.Src.ID)
	}
	if p.PulseQuantity <= 0 {
		return fmt.Errorf("pulse period %s: pulse quantity must be positive", p.Range)
	}
	return requireCompatible(fmt.Sprintf("pulse period %s", p.Range), p.OutputUnit, unit)
}

// Factor is the quantity one pulse stands for.
func (p PulsePeriod) Factor() (units.Quantity, error) {
	output, err := units.FromDecimal(p.OutputQuantity, p.OutputUnit)
	if err != nil {
		return units.Quantity{}, err
	}
	pulses, err := units.FromInt(p.PulseQuantity, "impulse")
	if err != nil {
		return units.Quantity{}, err
	}
	return output.Div(pulses)
}

func (p PulsePeriod) Accumulated(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	factor, err := p.Factor()
	if err != nil {
		return samples.Failed(fmt.Errorf("pulse period %s: %w", p.Range, err))
	}
	if res == condense.Minutes {
		return samples.ScaleBy(rawDeltas(ctx, env, p.Src, from, to), factor)
	}
	return samples.ScaleBy(env.Cache.Accumulated(ctx, p.Src, from, to, res), factor)
}

// SingleValuePeriod spreads one known total evenly over a closed period.
type SingleValuePeriod struct {
	period.Range
	Value decimal.Decimal
	Unit  string
}

func (p SingleValuePeriod) Bounds() period.Range            { return p.Range }
func (p SingleValuePeriod) Source() (rawdata.Source, bool) { return rawdata.Source{}, false }

func (p SingleValuePeriod) Validate(unit string) error {
	if p.Open() {
		return fmt.Errorf("single value period from %s: end is required", p.From)
	}
	return requireCompatible(fmt.Sprintf("single value period %s", p.Range), p.Unit, unit)
}

func (p SingleValuePeriod) Accumulated(_ context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		if p.Open() {
			yield(samples.Ranged{}, fmt.Errorf("single value period from %s: end is required", p.From))
			return
		}
		total, err := units.FromDecimal(p.Value, p.Unit)
		if err != nil {
			yield(samples.Ranged{}, err)
			return
		}
		periodSeconds := int64(p.To.Sub(p.From) / time.Second)
		loc := env.Zone()
		for bucketFrom := condense.Ceil(from, res, loc); ; {
			bucketTo := condense.Add(bucketFrom, res, loc, 1)
			if bucketTo.After(to) {
				return
			}
			share := big.NewRat(int64(bucketTo.Sub(bucketFrom)/time.Second), periodSeconds)
			if !yield(samples.Ranged{From: bucketFrom, To: bucketTo, Quantity: total.Scale(share)}, nil) {
				return
			}
			bucketFrom = bucketTo
		}
	}
}

// rawDeltas yields the increase between consecutive raw readings in
// [from, to] as ranged samples.
func rawDeltas(ctx context.Context, env Env, src rawdata.Source, from, to time.Time) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		var (
			prev    samples.Point
			hasPrev bool
		)
		for p, err := range rawdata.Sequence(ctx, env.Raw, src, from, to) {
			if err != nil {
				yield(samples.Ranged{}, err)
				return
			}
			if hasPrev {
				d, err := p.Quantity.Sub(prev.Quantity)
				if err != nil {
					yield(samples.Ranged{}, err)
					return
				}
				if !yield(samples.Ranged{From: prev.Timestamp, To: p.Timestamp, Quantity: d}, nil) {
					return
				}
			}
			prev, hasPrev = p, true
		}
	}
}
