package consumptions

import (
	"context"
	"fmt"
	"time"

	"github.com/gridlab/gridcore/internal/co2conversions"
	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/tariffs"
	"github.com/google/uuid"
)

// CostCompensationUnit is the unit of cost compensation factors for the
// given currency.
func CostCompensationUnit(currency string) string {
	return currency + "*kilowatt^-1*hour^-1"
}

// Union is a set of consumptions counted within a date range. It is the
// part main consumptions and consumption groups have in common.
type Union struct {
	ID           uuid.UUID
	Name         string
	Dates        period.DateRange
	Consumptions []*Consumption
	// CostCompensation is an hourly amount per energy, or nil.
	CostCompensation *datasequences.PiecewiseConstant
}

func (u *Union) validate(utilityUnit, currency string) error {
	for _, c := range u.Consumptions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("%q: %w", u.Name, err)
		}
		if err := requireCompatible(u.Name, c.Unit, utilityUnit); err != nil {
			return err
		}
	}
	if u.CostCompensation == nil {
		return nil
	}
	if u.CostCompensation.Resolution != condense.Hours {
		return fmt.Errorf("%q: cost compensation must be hourly", u.Name)
	}
	if err := requireCompatible(u.Name, u.CostCompensation.Unit, CostCompensationUnit(currency)); err != nil {
		return err
	}
	return u.CostCompensation.Validate()
}

func (u *Union) intersect(env datasequences.Env, from, to time.Time) (time.Time, time.Time, bool) {
	return u.Dates.Intersect(from, to, env.Zone())
}

// EnergySequence is the summed energy of the consumptions within the date
// range.
func (u *Union) EnergySequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	f, t, ok := u.intersect(env, from, to)
	if !ok {
		return samples.Empty()
	}
	streams := make([]samples.Stream, len(u.Consumptions))
	for i, c := range u.Consumptions {
		streams[i] = c.EnergySequence(ctx, env, f, t, res)
	}
	return samples.AddAll(streams, f, t, res, env.Zone())
}

// EnergySum is the total energy within the date range. ok is false when no
// consumption contributed.
func (u *Union) EnergySum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return u.sum(env, from, to, func(c *Consumption, f, t time.Time) (units.Quantity, bool, error) {
		return c.EnergySum(ctx, env, f, t)
	})
}

// UtilitySequence is the summed utility of the consumptions within the date
// range.
func (u *Union) UtilitySequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	f, t, ok := u.intersect(env, from, to)
	if !ok {
		return samples.Empty()
	}
	streams := make([]samples.Stream, len(u.Consumptions))
	for i, c := range u.Consumptions {
		streams[i] = c.UtilitySequence(ctx, env, f, t, res)
	}
	return samples.AddAll(streams, f, t, res, env.Zone())
}

// UtilitySum is the total utility within the date range.
func (u *Union) UtilitySum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return u.sum(env, from, to, func(c *Consumption, f, t time.Time) (units.Quantity, bool, error) {
		return c.UtilitySum(ctx, env, f, t)
	})
}

func (u *Union) sum(env datasequences.Env, from, to time.Time, each func(*Consumption, time.Time, time.Time) (units.Quantity, bool, error)) (units.Quantity, bool, error) {
	f, t, ok := u.intersect(env, from, to)
	if !ok {
		return units.Quantity{}, false, nil
	}
	var acc optionalSum
	for _, c := range u.Consumptions {
		q, ok, err := each(c, f, t)
		if err != nil {
			return units.Quantity{}, false, fmt.Errorf("%q: %w", u.Name, err)
		}
		if err := acc.add(q, ok); err != nil {
			return units.Quantity{}, false, err
		}
	}
	return acc.total, acc.found, nil
}

// NextValidDate is the first date after date with data in any consumption.
func (u *Union) NextValidDate(date time.Time, loc *time.Location) (time.Time, bool) {
	return datasequences.NextValidDate(u.sequences(), date, loc)
}

// PreviousValidDate is the last date before date with data in any
// consumption.
func (u *Union) PreviousValidDate(date time.Time, loc *time.Location) (time.Time, bool) {
	return datasequences.PreviousValidDate(u.sequences(), date, loc)
}

func (u *Union) sequences() []datasequences.Sequence {
	out := make([]datasequences.Sequence, len(u.Consumptions))
	for i, c := range u.Consumptions {
		out[i] = c.Accumulation
	}
	return out
}

// union is implemented by *Main and *Group; the cost and emission figures
// below are defined once in terms of it.
type union interface {
	base() *Union
	tariff() *tariffs.Tariff
	co2Conversions() *co2conversions.Conversions
	CostCompensationAmountSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream
}

// netCostSequence applies the tariff to the hourly utility.
func netCostSequence(ctx context.Context, env datasequences.Env, u union, from, to time.Time, res condense.Resolution) samples.Stream {
	tariff := u.tariff()
	if tariff == nil {
		return samples.Empty()
	}
	hourly := samples.Multiply(
		u.base().UtilitySequence(ctx, env, from, to, condense.Hours),
		tariff.ValueSequence(ctx, env, from, to),
	)
	return samples.AggregateSum(hourly, res, env.Zone())
}

func netCostSum(ctx context.Context, env datasequences.Env, u union, from, to time.Time) (units.Quantity, bool, error) {
	return samples.Sum(netCostSequence(ctx, env, u, from, to, condense.Hours))
}

func costCompensationAmountSum(ctx context.Context, env datasequences.Env, u union, from, to time.Time) (units.Quantity, bool, error) {
	return samples.Sum(u.CostCompensationAmountSequence(ctx, env, from, to, condense.Hours))
}

// variableCostSum is net cost minus cost compensation. Without a
// compensation amount it is the net cost; without a net cost it is
// undefined.
func variableCostSum(ctx context.Context, env datasequences.Env, u union, from, to time.Time) (units.Quantity, bool, error) {
	net, hasNet, err := netCostSum(ctx, env, u, from, to)
	if err != nil {
		return units.Quantity{}, false, err
	}
	compensation, hasCompensation, err := costCompensationAmountSum(ctx, env, u, from, to)
	if err != nil {
		return units.Quantity{}, false, err
	}
	switch {
	case !hasCompensation:
		return net, hasNet, nil
	case hasNet:
		q, err := net.Sub(compensation)
		return q, err == nil, err
	default:
		return units.Quantity{}, false, nil
	}
}

func variableCostSequence(ctx context.Context, env datasequences.Env, u union, from, to time.Time, res condense.Resolution) samples.Stream {
	hourly := samples.Subtract(
		netCostSequence(ctx, env, u, from, to, condense.Hours),
		u.CostCompensationAmountSequence(ctx, env, from, to, condense.Hours),
	)
	return samples.AggregateSum(hourly, res, env.Zone())
}

// co2EmissionsSequence applies the five-minute CO₂ conversion to the
// five-minute utility.
func co2EmissionsSequence(ctx context.Context, env datasequences.Env, u union, from, to time.Time, res condense.Resolution) samples.Stream {
	emissions := samples.Multiply(
		u.co2Conversions().ValueSequence(ctx, env, from, to),
		u.base().UtilitySequence(ctx, env, from, to, condense.FiveMinutes),
	)
	if res == condense.FiveMinutes {
		return emissions
	}
	return samples.AggregateSum(emissions, res, env.Zone())
}

func co2EmissionsSum(ctx context.Context, env datasequences.Env, u union, from, to time.Time) (units.Quantity, bool, error) {
	return samples.Sum(co2EmissionsSequence(ctx, env, u, from, to, condense.FiveMinutes))
}

// compensationAmounts multiplies hourly energy by the hourly compensation
// factors.
func compensationAmounts(ctx context.Context, env datasequences.Env, energy samples.Stream, compensation *datasequences.PiecewiseConstant, from, to time.Time) samples.Stream {
	return samples.Multiply(energy, compensation.ValueSequence(ctx, env, from, to))
}

// optionalSum adds quantities that may be missing; found stays false until
// one is present.
type optionalSum struct {
	total units.Quantity
	found bool
}

func (s *optionalSum) add(q units.Quantity, ok bool) error {
	if !ok {
		return nil
	}
	if !s.found {
		s.total, s.found = q, true
		return nil
	}
	total, err := s.total.Add(q)
	if err != nil {
		return err
	}
	s.total = total
	return nil
}

func requireCompatible(name, have, want string) error {
	ok, err := units.CompatibleUnits(have, want)
	if err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	if !ok {
		return fmt.Errorf("%q: %s is not compatible with %s: %w", name, have, want, coreerrors.ErrIncompatibleUnits)
	}
	return nil
}
