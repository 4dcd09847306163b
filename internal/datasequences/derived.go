package datasequences

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/degreedays"
)

// Operator names how a derived sequence combines its inputs.
type Operator string

const (
	OpSum        Operator = "sum"
	OpDifference Operator = "difference"
	OpProduct    Operator = "product"
	OpQuotient   Operator = "quotient"
	OpIntegral   Operator = "integral"
	OpDegreeDays Operator = "degree_days"
	OpCorrected  Operator = "corrected"
)

// arity is the number of inputs per operator; zero means one or more.
var arity = map[Operator]int{
	OpSum:        0,
	OpDifference: 2,
	OpProduct:    2,
	OpQuotient:   2,
	OpIntegral:   1,
	OpDegreeDays: 1,
	// consumption, standard degree days, actual degree days
	OpCorrected: 3,
}

// ValidOperator reports whether op is a known operator.
func ValidOperator(op Operator) bool {
	_, ok := arity[op]
	return ok
}

// Derived is computed from other sequences.
type Derived struct {
	Meta
	Op     Operator
	Inputs []Sequence
}

// Validate checks the operator and its inputs. It does not look for cycles;
// see ValidateGraph.
func (d *Derived) Validate() error {
	n, ok := arity[d.Op]
	if !ok {
		return fmt.Errorf("derived %q: unknown operator %q", d.Name, d.Op)
	}
	if (n == 0 && len(d.Inputs) == 0) || (n > 0 && len(d.Inputs) != n) {
		return fmt.Errorf("derived %q: %s takes %d inputs, got %d", d.Name, d.Op, n, len(d.Inputs))
	}
	for i, in := range d.Inputs {
		if in == nil {
			return fmt.Errorf("derived %q: input %d is missing", d.Name, i)
		}
	}
	if d.Op == OpDegreeDays {
		temps, ok := d.Inputs[0].(*PointSequence)
		if !ok {
			return fmt.Errorf("derived %q: degree days need a point sequence, got %T", d.Name, d.Inputs[0])
		}
		if err := requireCompatible(fmt.Sprintf("derived %q", d.Name), temps.Unit, "kelvin"); err != nil {
			return err
		}
	}
	return nil
}

func (d *Derived) inputs() []Sequence     { return d.Inputs }
func (d *Derived) ranges() []period.Range { return nil }

// DependsOn returns the inputs and everything they depend on, each once.
func (d *Derived) DependsOn() []Sequence {
	seen := map[Sequence]bool{d: true}
	var out []Sequence
	var walk func(Sequence)
	walk = func(s Sequence) {
		for _, in := range s.inputs() {
			if seen[in] {
				continue
			}
			seen[in] = true
			out = append(out, in)
			walk(in)
		}
	}
	walk(d)
	return out
}

func (d *Derived) evaluate(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	if err := d.Validate(); err != nil {
		return samples.Failed(err)
	}
	in := func(i int) samples.Stream {
		return Evaluate(ctx, env, d.Inputs[i], from, to, res)
	}

	switch d.Op {
	case OpSum:
		streams := make([]samples.Stream, len(d.Inputs))
		for i := range d.Inputs {
			streams[i] = in(i)
		}
		return samples.AddAll(streams, from, to, res, env.Zone())
	case OpDifference:
		return samples.Subtract(in(0), in(1))
	case OpProduct:
		return samples.Multiply(in(0), in(1))
	case OpQuotient:
		return samples.Quotient(in(0), in(1))
	case OpIntegral:
		return d.integral(ctx, env, from, to, res)
	case OpDegreeDays:
		return d.degreeDays(ctx, env, from, to, res)
	default:
		return samples.Failed(fmt.Errorf("derived %q: %s has no sample stream, only a development: %w",
			d.Name, d.Op, coreerrors.ErrUndefinedSamples))
	}
}

// integral turns rates into amounts. Ranged inputs are multiplied by their
// duration; point inputs are integrated with the trapezoid rule, each
// segment counted in the bucket it starts in.
func (d *Derived) integral(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	var amounts samples.Stream
	switch input := d.Inputs[0].(type) {
	case *PointSequence:
		amounts = trapezoids(input.RawSequence(ctx, env, from, to))
	case *PiecewiseConstant:
		amounts = timesDuration(input.ValueSequence(ctx, env, from, to))
	default:
		inner := condense.Hours
		if res.Fixed() {
			inner = res
		}
		amounts = timesDuration(Evaluate(ctx, env, input, from, to, inner))
	}
	return samples.AggregateSum(samples.Within(amounts, from, to), res, env.Zone())
}

func secondsOf(from, to time.Time) units.Quantity {
	return units.MustNew(big.NewRat(int64(to.Sub(from)/time.Second), 1), "second")
}

func timesDuration(s samples.Stream) samples.Stream {
	return samples.Map(s, func(r samples.Ranged) (samples.Ranged, error) {
		q, err := r.Quantity.Mul(secondsOf(r.From, r.To))
		if err != nil {
			return samples.Ranged{}, err
		}
		return r.WithQuantity(q), nil
	})
}

func trapezoids(points samples.PointStream) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		var (
			prev    samples.Point
			hasPrev bool
		)
		for p, err := range points {
			if err != nil {
				yield(samples.Ranged{}, err)
				return
			}
			if hasPrev {
				sum, err := prev.Quantity.Add(p.Quantity)
				if err != nil {
					yield(samples.Ranged{}, err)
					return
				}
				area, err := sum.Scale(big.NewRat(1, 2)).Mul(secondsOf(prev.Timestamp, p.Timestamp))
				if err != nil {
					yield(samples.Ranged{}, err)
					return
				}
				if !yield(samples.Ranged{From: prev.Timestamp, To: p.Timestamp, Quantity: area}, nil) {
					return
				}
			}
			prev, hasPrev = p, true
		}
	}
}

func (d *Derived) degreeDays(ctx context.Context, env Env, from, to time.Time, res condense.Resolution) samples.Stream {
	if condense.IsFiner(res, condense.Days) {
		return samples.Failed(fmt.Errorf("degree days %q at %s: %w", d.Name, res, coreerrors.ErrUndefinedSamples))
	}
	temps := d.Inputs[0].(*PointSequence)
	days := degreedays.Heating(temps.bracketedSequence(ctx, env, from, to), from, to, env.Zone())
	if res == condense.Days {
		return days
	}
	return samples.AggregateSum(days, res, env.Zone())
}

// CalculateDevelopment is the total of a corrected sequence over
// [from, to): the consumption development scaled by standard over actual
// degree days. ok is false when any of the three totals is missing.
func (d *Derived) CalculateDevelopment(ctx context.Context, env Env, from, to time.Time) (units.Quantity, bool, error) {
	if d.Op != OpCorrected {
		return Development(ctx, env, d, from, to)
	}
	if err := d.Validate(); err != nil {
		return units.Quantity{}, false, err
	}
	totals := make([]units.Quantity, len(d.Inputs))
	for i, in := range d.Inputs {
		q, ok, err := Development(ctx, env, in, from, to)
		if err != nil || !ok {
			return units.Quantity{}, false, err
		}
		totals[i] = q
	}
	q, err := degreedays.Correct(totals[0], totals[1], totals[2])
	if err != nil {
		return units.Quantity{}, false, fmt.Errorf("corrected %q: %w", d.Name, err)
	}
	return q, true, nil
}

// Development is the total of seq over [from, to). ok is false when nothing
// contributed.
func Development(ctx context.Context, env Env, seq Sequence, from, to time.Time) (units.Quantity, bool, error) {
	switch s := seq.(type) {
	case *Accumulation:
		return s.DevelopmentSum(ctx, env, from, to)
	case *Derived:
		switch s.Op {
		case OpCorrected:
			return s.CalculateDevelopment(ctx, env, from, to)
		case OpDegreeDays:
			return samples.Sum(Evaluate(ctx, env, s, from, to, condense.Days))
		}
	}
	return samples.Sum(Evaluate(ctx, env, seq, from, to, condense.Hours))
}

// ValidateGraph fails with ErrCyclicDependency when any of seqs depends on
// itself.
func ValidateGraph(seqs ...Sequence) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[Sequence]int)
	var visit func(Sequence) error
	visit = func(s Sequence) error {
		switch state[s] {
		case visiting:
			return fmt.Errorf("%q: %w", s.Info().Name, coreerrors.ErrCyclicDependency)
		case done:
			return nil
		}
		state[s] = visiting
		for _, in := range s.inputs() {
			if err := visit(in); err != nil {
				return err
			}
		}
		state[s] = done
		return nil
	}
	for _, s := range seqs {
		if err := visit(s); err != nil {
			return err
		}
	}
	return nil
}
