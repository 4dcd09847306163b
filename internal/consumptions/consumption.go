// Package consumptions computes utility, energy, cost and CO₂ figures for
// metered consumptions and for the main consumptions and consumption groups
// that bundle them.
package consumptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
)

var ErrUnknownUtilityType = errors.New("unknown utility type")

// UtilityType is what a main consumption is billed for.
type UtilityType string

const (
	Electricity     UtilityType = "electricity"
	Gas             UtilityType = "gas"
	DistrictHeating UtilityType = "district_heating"
	SolidFuel       UtilityType = "solid_fuel"
	LiquidFuel      UtilityType = "liquid_fuel"
)

var utilityBaseUnits = map[UtilityType]string{
	Electricity:     "milliwatt*hour",
	Gas:             "milliliter",
	DistrictHeating: "milliwatt*hour",
	SolidFuel:       "gram",
	LiquidFuel:      "milliliter",
}

// BaseUnit is the unit raw data of this utility is stored in.
func (u UtilityType) BaseUnit() (string, error) {
	unit, ok := utilityBaseUnits[u]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUtilityType, u)
	}
	return unit, nil
}

// Utility units a consumption may be measured in.
const (
	EnergyUnit = "joule"
	VolumeUnit = "meter^3"
	TimeUnit   = "second"
)

// Consumption is a metered utility. Volume consumptions may carry a
// conversion to energy.
type Consumption struct {
	*datasequences.Accumulation
	// VolumeToEnergy is an hourly energy-per-volume sequence, or nil.
	VolumeToEnergy *datasequences.PiecewiseConstant
}

// Validate checks the accumulation and that only volume consumptions carry
// a conversion.
func (c *Consumption) Validate() error {
	switch c.Unit {
	case EnergyUnit, VolumeUnit, TimeUnit:
	default:
		return fmt.Errorf("consumption %q: utility unit %q: %w", c.Name, c.Unit, coreerrors.ErrIncompatibleUnits)
	}
	if c.VolumeToEnergy != nil {
		if c.Unit != VolumeUnit {
			return fmt.Errorf("consumption %q: only volume consumptions convert to energy", c.Name)
		}
		if c.VolumeToEnergy.Resolution != condense.Hours {
			return fmt.Errorf("consumption %q: volume to energy conversion must be hourly", c.Name)
		}
		if err := c.VolumeToEnergy.Validate(); err != nil {
			return fmt.Errorf("consumption %q: %w", c.Name, err)
		}
	}
	return c.Accumulation.Validate()
}

// IsEnergy reports whether the utility needs no conversion to count as
// energy. Time utilities are passed through as they are.
func (c *Consumption) IsEnergy() bool {
	return c.Unit == EnergyUnit || c.Unit == TimeUnit
}

// UtilitySequence is the development of the consumption.
func (c *Consumption) UtilitySequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return c.DevelopmentSequence(ctx, env, from, to, res)
}

// UtilitySum is the total utility over [from, to).
func (c *Consumption) UtilitySum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return c.DevelopmentSum(ctx, env, from, to)
}

// EnergySequence is the consumption as energy. Volumes are converted hour
// by hour before aggregating to res; hours without a conversion factor are
// left out.
func (c *Consumption) EnergySequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	if c.IsEnergy() {
		return c.UtilitySequence(ctx, env, from, to, res)
	}
	hourly := samples.Multiply(
		c.UtilitySequence(ctx, env, from, to, condense.Hours),
		c.conversionSequence(ctx, env, from, to),
	)
	return samples.AggregateSum(hourly, res, env.Zone())
}

func (c *Consumption) conversionSequence(ctx context.Context, env datasequences.Env, from, to time.Time) samples.Stream {
	if c.VolumeToEnergy == nil {
		return samples.Empty()
	}
	return c.VolumeToEnergy.ValueSequence(ctx, env, from, to)
}

// EnergySum is the total energy over [from, to). ok is false when nothing
// contributed.
func (c *Consumption) EnergySum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	if c.IsEnergy() {
		return c.UtilitySum(ctx, env, from, to)
	}
	return samples.Sum(c.EnergySequence(ctx, env, from, to, condense.Hours))
}
