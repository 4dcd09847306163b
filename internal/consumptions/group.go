package consumptions

import (
	"context"
	"time"

	"github.com/gridlab/gridcore/internal/co2conversions"
	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/tariffs"
)

// Group is an energy use of a main consumption. It is billed by the main
// consumption's tariff and emits by its CO₂ conversions.
type Group struct {
	Union
	Main *Main
}

func (g *Group) base() *Union            { return &g.Union }
func (g *Group) tariff() *tariffs.Tariff { return g.Main.Tariff }

func (g *Group) co2Conversions() *co2conversions.Conversions { return g.Main.CO2 }

// UtilityUnit is the base unit of the main consumption's utility.
func (g *Group) UtilityUnit() (string, error) {
	return g.Main.UtilityUnit()
}

func (g *Group) compensation() *datasequences.PiecewiseConstant {
	if g.CostCompensation != nil {
		return g.CostCompensation
	}
	return g.Main.CostCompensation
}

// CostCompensationAmountSequence is the group energy times its own cost
// compensation, or the main consumption's when it has none.
func (g *Group) CostCompensationAmountSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	compensation := g.compensation()
	if compensation == nil {
		return samples.Empty()
	}
	hourly := compensationAmounts(ctx, env, g.EnergySequence(ctx, env, from, to, condense.Hours), compensation, from, to)
	return samples.AggregateSum(hourly, res, env.Zone())
}

func (g *Group) CostCompensationAmountSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return costCompensationAmountSum(ctx, env, g, from, to)
}

func (g *Group) NetCostSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return netCostSequence(ctx, env, g, from, to, res)
}

func (g *Group) NetCostSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return netCostSum(ctx, env, g, from, to)
}

func (g *Group) VariableCostSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return variableCostSequence(ctx, env, g, from, to, res)
}

func (g *Group) VariableCostSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return variableCostSum(ctx, env, g, from, to)
}

func (g *Group) CO2EmissionsSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return co2EmissionsSequence(ctx, env, g, from, to, res)
}

func (g *Group) CO2EmissionsSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return co2EmissionsSum(ctx, env, g, from, to)
}
