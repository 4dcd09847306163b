package consumptions

import (
	"context"
	"fmt"
	"time"

	"github.com/gridlab/gridcore/internal/co2conversions"
	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/tariffs"
)

// Main is an individually billed utility intake. Its groups break the
// consumption down by energy use.
type Main struct {
	Union
	UtilityType UtilityType
	Tariff      *tariffs.Tariff
	CO2         *co2conversions.Conversions
	Groups      []*Group
}

func (m *Main) base() *Union                                { return &m.Union }
func (m *Main) tariff() *tariffs.Tariff                     { return m.Tariff }
func (m *Main) co2Conversions() *co2conversions.Conversions { return m.CO2 }

// UtilityUnit is the base unit of the utility type.
func (m *Main) UtilityUnit() (string, error) {
	return m.UtilityType.BaseUnit()
}

// Validate checks the consumptions, the tariff and CO₂ conversions against
// the utility, and every group.
func (m *Main) Validate(currency string) error {
	utilityUnit, err := m.UtilityUnit()
	if err != nil {
		return fmt.Errorf("main consumption %q: %w", m.Name, err)
	}
	if err := m.validate(utilityUnit, currency); err != nil {
		return fmt.Errorf("main consumption %w", err)
	}
	if m.Tariff != nil {
		if err := m.Tariff.Validate(); err != nil {
			return fmt.Errorf("main consumption %q: %w", m.Name, err)
		}
		if !billable(utilityUnit, m.Tariff.Unit(), m.Tariff.Currency) {
			return fmt.Errorf("main consumption %q: tariff unit %s does not price %s: %w",
				m.Name, m.Tariff.Unit(), utilityUnit, coreerrors.ErrIncompatibleUnits)
		}
	}
	if m.CO2 != nil {
		if m.CO2.UtilityUnit != utilityUnit {
			return fmt.Errorf("main consumption %q: co2 conversions are for %s, not %s", m.Name, m.CO2.UtilityUnit, utilityUnit)
		}
		if err := m.CO2.Validate(); err != nil {
			return fmt.Errorf("main consumption %q: %w", m.Name, err)
		}
	}
	for _, g := range m.Groups {
		if g.Main != m {
			return fmt.Errorf("main consumption %q: group %q belongs elsewhere", m.Name, g.Name)
		}
		if err := g.validate(utilityUnit, currency); err != nil {
			return fmt.Errorf("consumption group %w", err)
		}
	}
	return nil
}

// billable reports whether utility × tariff is an amount of currency.
func billable(utilityUnit, tariffUnit, currency string) bool {
	utility, err := units.FromInt(1, utilityUnit)
	if err != nil {
		return false
	}
	price, err := units.FromInt(1, tariffUnit)
	if err != nil {
		return false
	}
	cost, err := utility.Mul(price)
	return err == nil && cost.Compatible(currency)
}

// CostCompensationAmountSequence is the compensation amount per res bucket.
// Groups with their own compensation are compensated by it; the remaining
// energy is compensated by the main consumption's own, if any. Energy is
// never compensated twice.
func (m *Main) CostCompensationAmountSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	var tainted []*Group
	for _, g := range m.Groups {
		if g.CostCompensation != nil {
			tainted = append(tainted, g)
		}
	}

	untaintedAmounts := samples.Empty()
	if m.CostCompensation != nil {
		taintedEnergy := make([]samples.Stream, len(tainted))
		for i, g := range tainted {
			taintedEnergy[i] = g.EnergySequence(ctx, env, from, to, condense.Hours)
		}
		untaintedEnergy := samples.Subtract(
			m.EnergySequence(ctx, env, from, to, condense.Hours),
			samples.AddAll(taintedEnergy, from, to, condense.Hours, env.Zone()),
		)
		untaintedAmounts = compensationAmounts(ctx, env, untaintedEnergy, m.CostCompensation, from, to)
	}

	taintedAmounts := make([]samples.Stream, len(tainted))
	for i, g := range tainted {
		taintedAmounts[i] = g.CostCompensationAmountSequence(ctx, env, from, to, condense.Hours)
	}

	hourly := samples.AddAll([]samples.Stream{
		untaintedAmounts,
		samples.AddAll(taintedAmounts, from, to, condense.Hours, env.Zone()),
	}, from, to, condense.Hours, env.Zone())
	return samples.AggregateSum(hourly, res, env.Zone())
}

// CostCompensationAmountSum is the total compensation amount.
func (m *Main) CostCompensationAmountSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return costCompensationAmountSum(ctx, env, m, from, to)
}

// NetCostSequence is the tariff applied to the utility.
func (m *Main) NetCostSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return netCostSequence(ctx, env, m, from, to, res)
}

// NetCostSum is the total net cost.
func (m *Main) NetCostSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return netCostSum(ctx, env, m, from, to)
}

// VariableCostSequence is net cost minus compensation per res bucket.
func (m *Main) VariableCostSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return variableCostSequence(ctx, env, m, from, to, res)
}

// VariableCostSum is the total net cost minus compensation.
func (m *Main) VariableCostSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return variableCostSum(ctx, env, m, from, to)
}

// FixedCostSum is the subscription cost of the tariff.
func (m *Main) FixedCostSum(from, to time.Time) (units.Quantity, bool, error) {
	if m.Tariff == nil {
		return units.Quantity{}, false, nil
	}
	return m.Tariff.SubscriptionCostSum(from, to)
}

// TotalCostSum is variable plus fixed cost, either of which may be missing.
func (m *Main) TotalCostSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	variable, hasVariable, err := m.VariableCostSum(ctx, env, from, to)
	if err != nil {
		return units.Quantity{}, false, err
	}
	fixed, hasFixed, err := m.FixedCostSum(from, to)
	if err != nil {
		return units.Quantity{}, false, err
	}
	var acc optionalSum
	if err := acc.add(variable, hasVariable); err != nil {
		return units.Quantity{}, false, err
	}
	if err := acc.add(fixed, hasFixed); err != nil {
		return units.Quantity{}, false, err
	}
	return acc.total, acc.found, nil
}

// CO2EmissionsSequence is the CO₂ emitted per res bucket.
func (m *Main) CO2EmissionsSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	return co2EmissionsSequence(ctx, env, m, from, to, res)
}

// CO2EmissionsSum is the total CO₂ emitted.
func (m *Main) CO2EmissionsSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	return co2EmissionsSum(ctx, env, m, from, to)
}
