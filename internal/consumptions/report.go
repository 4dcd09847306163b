package consumptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
)

var ErrUnknownSeries = errors.New("unknown consumption series")

// Series names one of the figures a consumption union reports.
type Series string

const (
	SeriesUtility      Series = "utility"
	SeriesEnergy       Series = "energy"
	SeriesNetCost      Series = "net_cost"
	SeriesVariableCost Series = "variable_cost"
	SeriesCO2          Series = "co2"
)

// Reporter is implemented by *Main and *Group.
type Reporter interface {
	UtilityUnit() (string, error)

	UtilitySequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream
	EnergySequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream
	NetCostSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream
	VariableCostSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream
	CO2EmissionsSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream

	UtilitySum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error)
	EnergySum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error)
	NetCostSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error)
	VariableCostSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error)
	CO2EmissionsSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error)
}

// SeriesOf streams the named figure of r.
func SeriesOf(ctx context.Context, env datasequences.Env, r Reporter, s Series, from, to time.Time, res condense.Resolution) (samples.Stream, error) {
	switch s {
	case SeriesUtility:
		return r.UtilitySequence(ctx, env, from, to, res), nil
	case SeriesEnergy:
		return r.EnergySequence(ctx, env, from, to, res), nil
	case SeriesNetCost:
		return r.NetCostSequence(ctx, env, from, to, res), nil
	case SeriesVariableCost:
		return r.VariableCostSequence(ctx, env, from, to, res), nil
	case SeriesCO2:
		return r.CO2EmissionsSequence(ctx, env, from, to, res), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeries, s)
	}
}

// SumOf totals the named figure of r over [from, to). ok is false when
// nothing contributed.
func SumOf(ctx context.Context, env datasequences.Env, r Reporter, s Series, from, to time.Time) (units.Quantity, bool, error) {
	switch s {
	case SeriesUtility:
		return r.UtilitySum(ctx, env, from, to)
	case SeriesEnergy:
		return r.EnergySum(ctx, env, from, to)
	case SeriesNetCost:
		return r.NetCostSum(ctx, env, from, to)
	case SeriesVariableCost:
		return r.VariableCostSum(ctx, env, from, to)
	case SeriesCO2:
		return r.CO2EmissionsSum(ctx, env, from, to)
	default:
		return units.Quantity{}, false, fmt.Errorf("%w: %q", ErrUnknownSeries, s)
	}
}

var utilityDisplayUnits = map[string]string{
	EnergyUnit: "kilowatt*hour",
	TimeUnit:   "hour",
}

// DisplayUnit is the unit a figure of r is reported in by default.
func DisplayUnit(r Reporter, s Series, currency string) (string, error) {
	switch s {
	case SeriesUtility:
		base, err := r.UtilityUnit()
		if err != nil {
			return "", err
		}
		if display, ok := utilityDisplayUnits[base]; ok {
			return display, nil
		}
		return base, nil
	case SeriesEnergy:
		return "kilowatt*hour", nil
	case SeriesNetCost, SeriesVariableCost:
		return currency, nil
	case SeriesCO2:
		return "kilogram", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSeries, s)
	}
}
