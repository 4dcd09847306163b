// Package productions holds production accumulations and the groups that
// energy performance indicators divide by.
package productions

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/google/uuid"
)

// Production is an accumulation in one of the production_a..e units.
type Production struct {
	*datasequences.Accumulation
}

// Validate requires a production unit the customer has labelled.
func (p *Production) Validate(env datasequences.Env) error {
	if err := validUnit(env, p.Unit); err != nil {
		return fmt.Errorf("production %q: %w", p.Name, err)
	}
	return p.Accumulation.Validate()
}

func validUnit(env datasequences.Env, unit string) error {
	if !slices.Contains(units.ProductionUnits, unit) {
		return fmt.Errorf("%q is not a production unit", unit)
	}
	if _, ok := env.ProductionUnits[unit]; !ok {
		return fmt.Errorf("production unit %q has no label", unit)
	}
	return nil
}

// Group is a set of productions sharing a unit.
type Group struct {
	ID          uuid.UUID
	Name        string
	Unit        string
	Productions []*Production
}

// Validate checks every production and that it is counted in the group
// unit.
func (g *Group) Validate(env datasequences.Env) error {
	if err := validUnit(env, g.Unit); err != nil {
		return fmt.Errorf("production group %q: %w", g.Name, err)
	}
	for _, p := range g.Productions {
		if p.Unit != g.Unit {
			return fmt.Errorf("production group %q: production %q is in %s, not %s", g.Name, p.Name, p.Unit, g.Unit)
		}
		if err := p.Validate(env); err != nil {
			return fmt.Errorf("production group %q: %w", g.Name, err)
		}
	}
	return nil
}

// DevelopmentSum is the total production over [from, to), zero in the group
// unit when nothing was produced.
func (g *Group) DevelopmentSum(ctx context.Context, env datasequences.Env, from, to time.Time) (units.Quantity, error) {
	total, err := units.Zero(g.Unit)
	if err != nil {
		return units.Quantity{}, err
	}
	for _, p := range g.Productions {
		q, ok, err := p.DevelopmentSum(ctx, env, from, to)
		if err != nil {
			return units.Quantity{}, fmt.Errorf("production group %q: %w", g.Name, err)
		}
		if !ok {
			continue
		}
		if total, err = total.Add(q); err != nil {
			return units.Quantity{}, err
		}
	}
	return total, nil
}

// ProductionSequence is the summed production per res bucket.
func (g *Group) ProductionSequence(ctx context.Context, env datasequences.Env, from, to time.Time, res condense.Resolution) samples.Stream {
	streams := make([]samples.Stream, len(g.Productions))
	for i, p := range g.Productions {
		streams[i] = p.DevelopmentSequence(ctx, env, from, to, res)
	}
	return samples.AddAll(streams, from, to, res, env.Zone())
}

// NextValidDate is the first date after date with data in any production.
func (g *Group) NextValidDate(date time.Time, loc *time.Location) (time.Time, bool) {
	return datasequences.NextValidDate(g.sequences(), date, loc)
}

// PreviousValidDate is the last date before date with data in any
// production.
func (g *Group) PreviousValidDate(date time.Time, loc *time.Location) (time.Time, bool) {
	return datasequences.PreviousValidDate(g.sequences(), date, loc)
}

func (g *Group) sequences() []datasequences.Sequence {
	out := make([]datasequences.Sequence, len(g.Productions))
	for i, p := range g.Productions {
		out[i] = p.Accumulation
	}
	return out
}
