// Package co2conversions defines how the utility of a main consumption
// converts to CO₂ emissions, in five-minute samples.
package co2conversions

import (
	"context"
	"fmt"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fixed converts with one factor for the whole range.
func Fixed(r period.Range, value decimal.Decimal, unit string) datasequences.PiecewisePeriod {
	return datasequences.FixedPeriod{Range: r, Value: value, Unit: unit, Resolution: condense.FiveMinutes}
}

// Dynamic reads factors from a raw source with one reading per five
// minutes.
func Dynamic(r period.Range, src rawdata.Source) datasequences.PiecewisePeriod {
	return datasequences.RawPiecewisePeriod{Range: r, Src: src, Width: condense.FiveMinutes}
}

// UnitIsValid reports whether a factor in unit turns utilityUnit into mass.
func UnitIsValid(unit, utilityUnit string) bool {
	factor, err := units.FromInt(1, unit)
	if err != nil {
		return false
	}
	utility, err := units.FromInt(1, utilityUnit)
	if err != nil {
		return false
	}
	mass, err := factor.Mul(utility)
	return err == nil && mass.Compatible("gram")
}

// Conversions is the set of CO₂ conversion periods of one main
// consumption.
type Conversions struct {
	ID          uuid.UUID
	UtilityUnit string
	Periods     []datasequences.PiecewisePeriod
}

// Sequence is the conversions as a five-minute piecewise-constant sequence.
func (c *Conversions) Sequence() *datasequences.PiecewiseConstant {
	return &datasequences.PiecewiseConstant{
		Meta:       datasequences.Meta{ID: c.ID, Name: "co2 conversion", Unit: "gram/" + c.UtilityUnit},
		Resolution: condense.FiveMinutes,
		Periods:    c.Periods,
	}
}

// Validate requires five-minute aligned periods with units that convert the
// utility to mass, no two overlapping.
func (c *Conversions) Validate() error {
	for _, p := range c.Periods {
		r := p.Bounds()
		if !isFiveMinuteMultiple(r.From) || (!r.Open() && !isFiveMinuteMultiple(r.To)) {
			return fmt.Errorf("co2 conversion %s: %w", r, coreerrors.ErrAlignment)
		}
		var unit string
		switch conv := p.(type) {
		case datasequences.FixedPeriod:
			unit = conv.Unit
		case datasequences.RawPiecewisePeriod:
			unit = conv.Src.Unit
		default:
			return fmt.Errorf("co2 conversion %s: unsupported period %T", r, p)
		}
		if !UnitIsValid(unit, c.UtilityUnit) {
			return fmt.Errorf("co2 conversion %s: %s does not convert %s to mass: %w",
				r, unit, c.UtilityUnit, coreerrors.ErrIncompatibleUnits)
		}
	}
	return c.Sequence().Validate()
}

// ValueSequence yields the five-minute conversion factors of [from, to).
func (c *Conversions) ValueSequence(ctx context.Context, env datasequences.Env, from, to time.Time) samples.Stream {
	if c == nil {
		return samples.Empty()
	}
	return c.Sequence().ValueSequence(ctx, env, from, to)
}

func isFiveMinuteMultiple(t time.Time) bool {
	return t.Minute()%5 == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
