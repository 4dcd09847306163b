// Package energyperformances computes energy performance indicators:
// energy per unit produced, and mean power over a period.
package energyperformances

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/consumptions"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/productions"
	"github.com/google/uuid"
)

// Performance is one energy performance indicator.
type Performance interface {
	Info() (uuid.UUID, string)
	// Unit is the unit the result is reported in.
	Unit() string
	// Compute returns the indicator over [from, to). ok is false when it is
	// undefined for the period.
	Compute(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error)
}

// totalEnergy sums the energy of the groups, starting from zero watt hours.
func totalEnergy(ctx context.Context, env datasequences.Env, groups []*consumptions.Group, from, to time.Time) (units.Quantity, error) {
	total := units.MustNew(new(big.Rat), "watt*hour")
	for _, g := range groups {
		q, ok, err := g.EnergySum(ctx, env, from, to)
		if err != nil {
			return units.Quantity{}, err
		}
		if !ok {
			continue
		}
		if total, err = total.Add(q); err != nil {
			return units.Quantity{}, fmt.Errorf("energy of %q: %w", g.Name, err)
		}
	}
	return total, nil
}

// Production is energy consumed per unit produced.
type Production struct {
	ID                uuid.UUID
	Name              string
	ProductionUnit    string
	ConsumptionGroups []*consumptions.Group
	ProductionGroups  []*productions.Group
}

func (p *Production) Info() (uuid.UUID, string) { return p.ID, p.Name }

func (p *Production) Unit() string { return "kilowatt*hour*" + p.ProductionUnit + "^-1" }

// Compute divides total energy by total production. It is undefined when
// nothing was produced.
func (p *Production) Compute(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	energy, err := totalEnergy(ctx, env, p.ConsumptionGroups, from, to)
	if err != nil {
		return units.Quantity{}, false, fmt.Errorf("performance %q: %w", p.Name, err)
	}
	production, err := units.Zero(p.ProductionUnit)
	if err != nil {
		return units.Quantity{}, false, err
	}
	for _, g := range p.ProductionGroups {
		q, err := g.DevelopmentSum(ctx, env, from, to)
		if err != nil {
			return units.Quantity{}, false, fmt.Errorf("performance %q: %w", p.Name, err)
		}
		if production, err = production.Add(q); err != nil {
			return units.Quantity{}, false, fmt.Errorf("performance %q: %w", p.Name, err)
		}
	}
	if production.IsZero() {
		return units.Quantity{}, false, nil
	}
	q, err := energy.Div(production)
	if err != nil {
		return units.Quantity{}, false, err
	}
	return q, true, nil
}

// Time is mean power: energy consumed divided by the length of the period.
type Time struct {
	ID                uuid.UUID
	Name              string
	PowerUnit         string
	ConsumptionGroups []*consumptions.Group
}

func (p *Time) Info() (uuid.UUID, string) { return p.ID, p.Name }

func (p *Time) Unit() string { return p.PowerUnit }

// Compute divides total energy by the seconds in [from, to).
func (p *Time) Compute(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, bool, error) {
	if !from.Before(to) {
		return units.Quantity{}, false, fmt.Errorf("performance %q: empty period %s - %s", p.Name, from, to)
	}
	energy, err := totalEnergy(ctx, env, p.ConsumptionGroups, from, to)
	if err != nil {
		return units.Quantity{}, false, fmt.Errorf("performance %q: %w", p.Name, err)
	}
	seconds := units.MustNew(big.NewRat(int64(to.Sub(from)/time.Second), 1), "second")
	q, err := energy.Div(seconds)
	if err != nil {
		return units.Quantity{}, false, err
	}
	return q, true, nil
}
