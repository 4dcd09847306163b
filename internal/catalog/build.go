package catalog

import (
	"fmt"
	"slices"
	"time"

	"github.com/gridlab/gridcore/internal/co2conversions"
	"github.com/gridlab/gridcore/internal/consumptions"
	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/energyperformances"
	"github.com/gridlab/gridcore/internal/offlinetolerance"
	"github.com/gridlab/gridcore/internal/productions"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/gridlab/gridcore/internal/tariffs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sequences without an id in the catalog get one derived from kind and name,
// so ids stay stable across restarts.
var idNamespace = uuid.MustParse("6f1c1d0a-3b9e-4f7a-9a43-2b1c4de0c1a7")

func idFor(kind, name string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(kind+"/"+name))
}

// builder turns the merged raw files into validated domain objects.
type builder struct {
	c *Catalog
}

func build(raw rawFile) (*Catalog, error) {
	b := builder{c: empty()}
	steps := []func(rawFile) error{
		b.customer,
		b.sources,
		b.tariffs,
		b.co2Conversions,
		b.mainConsumptions,
		b.productionGroups,
		b.performances,
		b.offlineTolerances,
	}
	for _, step := range steps {
		if err := step(raw); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}
	return b.c, nil
}

func (b builder) customer(raw rawFile) error {
	if raw.Customer == nil {
		return nil
	}
	if raw.Customer.Timezone != "" {
		loc, err := time.LoadLocation(raw.Customer.Timezone)
		if err != nil {
			return fmt.Errorf("customer timezone: %w", err)
		}
		if err := condense.CheckWholeHourZone(loc); err != nil {
			return fmt.Errorf("customer timezone: %w", err)
		}
		b.c.Location = loc
	}
	if raw.Customer.Currency != "" {
		if !slices.Contains(tariffs.Currencies, raw.Customer.Currency) {
			return fmt.Errorf("customer %w: %q", tariffs.ErrUnknownCurrency, raw.Customer.Currency)
		}
		b.c.Currency = raw.Customer.Currency
	}
	for unit, label := range raw.Customer.ProductionUnits {
		if !slices.Contains(units.ProductionUnits, unit) {
			return fmt.Errorf("customer: %q is not a production unit", unit)
		}
		b.c.ProductionUnits[unit] = label
	}
	return nil
}

func (b builder) sources(raw rawFile) error {
	for _, rs := range raw.Sources {
		id, err := uuid.Parse(rs.ID)
		if err != nil {
			return fmt.Errorf("source %q: %w", rs.Name, err)
		}
		src := rawdata.Source{ID: id, Name: rs.Name, Unit: rs.Unit, HardwareID: rs.HardwareID}
		if err := src.Validate(); err != nil {
			return err
		}
		if _, dup := b.c.sources[id]; dup {
			return fmt.Errorf("source %s: duplicate id", id)
		}
		if _, dup := b.c.sourcesByName[src.Name]; dup {
			return fmt.Errorf("source %q: duplicate name", src.Name)
		}
		b.c.sources[id] = src
		b.c.sourcesByName[src.Name] = src
	}
	return nil
}

func (b builder) source(name string) (rawdata.Source, error) {
	src, ok := b.c.sourcesByName[name]
	if !ok {
		return rawdata.Source{}, fmt.Errorf("source %q: %w", name, ErrNotFound)
	}
	return src, nil
}

func (b builder) tariffs(raw rawFile) error {
	for _, rt := range raw.Tariffs {
		t := &tariffs.Tariff{
			ID:       idFor("tariff", rt.Name),
			Name:     rt.Name,
			Kind:     tariffs.Kind(rt.Kind),
			Currency: rt.Currency,
		}
		if t.Currency == "" {
			t.Currency = b.c.Currency
		}
		for _, rp := range rt.Periods {
			p, err := b.tariffPeriod(rp)
			if err != nil {
				return fmt.Errorf("tariff %q: %w", rt.Name, err)
			}
			t.Periods = append(t.Periods, p)
		}
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := b.c.tariffs[t.Name]; dup {
			return fmt.Errorf("tariff %q: duplicate name", t.Name)
		}
		b.c.tariffs[t.Name] = t
	}
	return nil
}

func (b builder) tariffPeriod(rp rawTariffPeriod) (tariffs.Period, error) {
	r, err := parseRange(rp.rawRange)
	if err != nil {
		return tariffs.Period{}, err
	}
	sub := tariffs.Subscription{Interval: tariffs.Interval(rp.Subscription.Interval)}
	if sub.Fee, err = parseDecimal(rp.Subscription.Fee, "0"); err != nil {
		return tariffs.Period{}, fmt.Errorf("subscription fee: %w", err)
	}
	if sub.Interval == "" {
		sub.Interval = tariffs.Monthly
	}

	switch {
	case rp.Fixed != nil && rp.Spot == nil:
		value, err := parseDecimal(rp.Fixed.Value, "")
		if err != nil {
			return tariffs.Period{}, err
		}
		return tariffs.NewFixedPeriod(r, value, rp.Fixed.Unit, sub), nil
	case rp.Spot != nil && rp.Fixed == nil:
		src, err := b.source(rp.Spot.Source)
		if err != nil {
			return tariffs.Period{}, err
		}
		coefficient, err := parseDecimal(rp.Spot.Coefficient, "1")
		if err != nil {
			return tariffs.Period{}, err
		}
		constant, err := parseDecimal(rp.Spot.Constant, "0")
		if err != nil {
			return tariffs.Period{}, err
		}
		var ceiling *decimal.Decimal
		if rp.Spot.Ceiling != "" {
			c, err := decimal.NewFromString(rp.Spot.Ceiling)
			if err != nil {
				return tariffs.Period{}, fmt.Errorf("ceiling: %w", err)
			}
			ceiling = &c
		}
		return tariffs.NewSpotPricePeriod(r, src, coefficient, constant, ceiling, rp.Spot.Unit, sub), nil
	default:
		return tariffs.Period{}, fmt.Errorf("period %s: exactly one of fixed and spot is required", r)
	}
}

func (b builder) co2Conversions(raw rawFile) error {
	for _, rc := range raw.CO2Conversions {
		conv := &co2conversions.Conversions{ID: idFor("co2", rc.Name), UtilityUnit: rc.UtilityUnit}
		for _, rp := range rc.Periods {
			r, err := parseRange(rp.rawRange)
			if err != nil {
				return fmt.Errorf("co2 conversion %q: %w", rc.Name, err)
			}
			if rp.Source != "" {
				src, err := b.source(rp.Source)
				if err != nil {
					return fmt.Errorf("co2 conversion %q: %w", rc.Name, err)
				}
				conv.Periods = append(conv.Periods, co2conversions.Dynamic(r, src))
				continue
			}
			value, err := parseDecimal(rp.Value, "")
			if err != nil {
				return fmt.Errorf("co2 conversion %q: %w", rc.Name, err)
			}
			conv.Periods = append(conv.Periods, co2conversions.Fixed(r, value, rp.Unit))
		}
		if err := conv.Validate(); err != nil {
			return fmt.Errorf("co2 conversion %q: %w", rc.Name, err)
		}
		if _, dup := b.c.co2[rc.Name]; dup {
			return fmt.Errorf("co2 conversion %q: duplicate name", rc.Name)
		}
		b.c.co2[rc.Name] = conv
	}
	return nil
}

func (b builder) mainConsumptions(raw rawFile) error {
	for _, rm := range raw.MainConsumptions {
		union, err := b.union("main consumption", rm.rawUnion)
		if err != nil {
			return err
		}
		m := &consumptions.Main{Union: union, UtilityType: consumptions.UtilityType(rm.UtilityType)}
		if rm.Tariff != "" {
			t, ok := b.c.tariffs[rm.Tariff]
			if !ok {
				return fmt.Errorf("main consumption %q: tariff %q: %w", rm.Name, rm.Tariff, ErrNotFound)
			}
			m.Tariff = t
		}
		if rm.CO2 != "" {
			conv, ok := b.c.co2[rm.CO2]
			if !ok {
				return fmt.Errorf("main consumption %q: co2 conversion %q: %w", rm.Name, rm.CO2, ErrNotFound)
			}
			m.CO2 = conv
		}
		for _, rg := range rm.Groups {
			gu, err := b.union("consumption group", rg)
			if err != nil {
				return err
			}
			m.Groups = append(m.Groups, &consumptions.Group{Union: gu, Main: m})
		}
		if err := m.Validate(b.c.Currency); err != nil {
			return err
		}
		if err := b.claimConsumptionName(m.Name); err != nil {
			return err
		}
		b.c.mains[m.Name] = m
		for _, g := range m.Groups {
			if err := b.claimConsumptionName(g.Name); err != nil {
				return err
			}
			b.c.groups[g.Name] = g
		}
	}
	return nil
}

func (b builder) claimConsumptionName(name string) error {
	_, main := b.c.mains[name]
	_, group := b.c.groups[name]
	if main || group {
		return fmt.Errorf("consumption %q: duplicate name", name)
	}
	return nil
}

func (b builder) union(kind string, ru rawUnion) (consumptions.Union, error) {
	u := consumptions.Union{ID: idFor(kind, ru.Name), Name: ru.Name}
	from, err := parseDate(ru.From)
	if err != nil {
		return u, fmt.Errorf("%s %q: from: %w", kind, ru.Name, err)
	}
	u.Dates.From = from
	if ru.To != "" {
		if u.Dates.To, err = parseDate(ru.To); err != nil {
			return u, fmt.Errorf("%s %q: to: %w", kind, ru.Name, err)
		}
	}
	for _, rc := range ru.Consumptions {
		c, err := b.consumption(rc)
		if err != nil {
			return u, fmt.Errorf("%s %q: %w", kind, ru.Name, err)
		}
		u.Consumptions = append(u.Consumptions, c)
	}
	if len(ru.CostCompensation) > 0 {
		seq, err := b.hourlyRates(kind+" cost compensation", ru.Name, consumptions.CostCompensationUnit(b.c.Currency), ru.CostCompensation)
		if err != nil {
			return u, err
		}
		u.CostCompensation = seq
	}
	return u, nil
}

func (b builder) consumption(rc rawConsumption) (*consumptions.Consumption, error) {
	unit := rc.Unit
	if unit == "" {
		unit = consumptions.EnergyUnit
	}
	acc, err := b.accumulation("consumption", rc.Name, unit, rc.Periods)
	if err != nil {
		return nil, err
	}
	c := &consumptions.Consumption{Accumulation: acc}
	if len(rc.VolumeToEnergy) > 0 {
		if c.VolumeToEnergy, err = b.hourlyRates("volume to energy", rc.Name, consumptions.EnergyUnit+"*meter^-3", rc.VolumeToEnergy); err != nil {
			return nil, err
		}
	}
	if err := b.claimSequence(acc); err != nil {
		return nil, err
	}
	return c, nil
}

// hourlyRates builds an hourly sequence from fixed values and, for energy
// conversions, sources of stepwise factors.
func (b builder) hourlyRates(kind, name, unit string, periods []rawRatePeriod) (*datasequences.PiecewiseConstant, error) {
	seq := &datasequences.PiecewiseConstant{
		Meta:       datasequences.Meta{ID: idFor(kind, name), Name: name + " " + kind, Unit: unit},
		Resolution: condense.Hours,
	}
	for _, rp := range periods {
		r, err := parseRange(rp.rawRange)
		if err != nil {
			return nil, fmt.Errorf("%s of %q: %w", kind, name, err)
		}
		if rp.Source != "" {
			src, err := b.source(rp.Source)
			if err != nil {
				return nil, fmt.Errorf("%s of %q: %w", kind, name, err)
			}
			seq.Periods = append(seq.Periods, datasequences.EnergyConversionPeriod{Range: r, Src: src})
			continue
		}
		value, err := parseDecimal(rp.Value, "")
		if err != nil {
			return nil, fmt.Errorf("%s of %q: %w", kind, name, err)
		}
		seq.Periods = append(seq.Periods, datasequences.FixedPeriod{Range: r, Value: value, Unit: rp.Unit, Resolution: condense.Hours})
	}
	return seq, nil
}

func (b builder) accumulation(kind, name, unit string, periods []rawAccumulationPeriod) (*datasequences.Accumulation, error) {
	acc := &datasequences.Accumulation{Meta: datasequences.Meta{ID: idFor(kind, name), Name: name, Unit: unit}}
	for _, rp := range periods {
		r, err := parseRange(rp.rawRange)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, name, err)
		}
		p, err := b.accumulationPeriod(r, rp)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", kind, name, err)
		}
		acc.Periods = append(acc.Periods, p)
	}
	return acc, nil
}

func (b builder) accumulationPeriod(r period.Range, rp rawAccumulationPeriod) (datasequences.AccumulationPeriod, error) {
	if rp.Source == "" {
		if rp.SingleValue == nil {
			return nil, fmt.Errorf("period %s: source or single_value is required", r)
		}
		value, err := parseDecimal(rp.SingleValue.Value, "")
		if err != nil {
			return nil, err
		}
		return datasequences.SingleValuePeriod{Range: r, Value: value, Unit: rp.SingleValue.Unit}, nil
	}
	src, err := b.source(rp.Source)
	if err != nil {
		return nil, err
	}
	if rp.Pulse == nil {
		return datasequences.NonpulsePeriod{Range: r, Src: src}, nil
	}
	quantity, err := parseDecimal(rp.Pulse.Quantity, "")
	if err != nil {
		return nil, err
	}
	return datasequences.PulsePeriod{
		Range:          r,
		Src:            src,
		PulseQuantity:  rp.Pulse.Pulses,
		OutputQuantity: quantity,
		OutputUnit:     rp.Pulse.Unit,
	}, nil
}

// claimSequence registers a named accumulation for offline checks.
func (b builder) claimSequence(seq datasequences.Sequence) error {
	name := seq.Info().Name
	if _, dup := b.c.sequences[name]; dup {
		return fmt.Errorf("sequence %q: duplicate name", name)
	}
	b.c.sequences[name] = seq
	return nil
}

func (b builder) productionGroups(raw rawFile) error {
	env := b.c.Env(nil, nil)
	for _, rg := range raw.ProductionGroups {
		g := &productions.Group{ID: idFor("production group", rg.Name), Name: rg.Name, Unit: rg.Unit}
		for _, rp := range rg.Productions {
			acc, err := b.accumulation("production", rp.Name, rg.Unit, rp.Periods)
			if err != nil {
				return fmt.Errorf("production group %q: %w", rg.Name, err)
			}
			if err := b.claimSequence(acc); err != nil {
				return err
			}
			g.Productions = append(g.Productions, &productions.Production{Accumulation: acc})
		}
		if err := g.Validate(env); err != nil {
			return err
		}
		if _, dup := b.c.productionGroups[g.Name]; dup {
			return fmt.Errorf("production group %q: duplicate name", g.Name)
		}
		b.c.productionGroups[g.Name] = g
	}
	return nil
}

func (b builder) performances(raw rawFile) error {
	for _, rp := range raw.Performances {
		groups := make([]*consumptions.Group, 0, len(rp.ConsumptionGroups))
		for _, name := range rp.ConsumptionGroups {
			g, ok := b.c.groups[name]
			if !ok {
				return fmt.Errorf("performance %q: consumption group %q: %w", rp.Name, name, ErrNotFound)
			}
			groups = append(groups, g)
		}

		var perf energyperformances.Performance
		switch rp.Kind {
		case "production":
			if _, ok := b.c.ProductionUnits[rp.ProductionUnit]; !ok {
				return fmt.Errorf("performance %q: production unit %q has no label", rp.Name, rp.ProductionUnit)
			}
			p := &energyperformances.Production{
				ID:                idFor("performance", rp.Name),
				Name:              rp.Name,
				ProductionUnit:    rp.ProductionUnit,
				ConsumptionGroups: groups,
			}
			for _, name := range rp.ProductionGroups {
				g, ok := b.c.productionGroups[name]
				if !ok {
					return fmt.Errorf("performance %q: production group %q: %w", rp.Name, name, ErrNotFound)
				}
				if g.Unit != rp.ProductionUnit {
					return fmt.Errorf("performance %q: production group %q counts %s, not %s", rp.Name, name, g.Unit, rp.ProductionUnit)
				}
				p.ProductionGroups = append(p.ProductionGroups, g)
			}
			perf = p
		case "time":
			unit := rp.PowerUnit
			if unit == "" {
				unit = "kilowatt"
			}
			if q, err := units.FromInt(1, unit); err != nil || !q.Compatible("watt") {
				return fmt.Errorf("performance %q: %q is not a power unit", rp.Name, unit)
			}
			perf = &energyperformances.Time{
				ID:                idFor("performance", rp.Name),
				Name:              rp.Name,
				PowerUnit:         unit,
				ConsumptionGroups: groups,
			}
		default:
			return fmt.Errorf("performance %q: unknown kind %q", rp.Name, rp.Kind)
		}

		if _, dup := b.c.performances[rp.Name]; dup {
			return fmt.Errorf("performance %q: duplicate name", rp.Name)
		}
		b.c.performances[rp.Name] = perf
	}
	return nil
}

func (b builder) offlineTolerances(raw rawFile) error {
	for _, ro := range raw.OfflineTolerances {
		seq, ok := b.c.sequences[ro.Sequence]
		if !ok {
			return fmt.Errorf("offline tolerance: sequence %q: %w", ro.Sequence, ErrNotFound)
		}
		checker := offlinetolerance.Checker{Sequence: seq, Hours: ro.Hours}
		if err := checker.Validate(); err != nil {
			return fmt.Errorf("offline tolerance of %q: %w", ro.Sequence, err)
		}
		b.c.tolerances[ro.Sequence] = checker
	}
	return nil
}

func parseRange(r rawRange) (period.Range, error) {
	from, err := time.Parse(time.RFC3339, r.From)
	if err != nil {
		return period.Range{}, fmt.Errorf("period from: %w", err)
	}
	out := period.Range{From: from}
	if r.To != "" {
		if out.To, err = time.Parse(time.RFC3339, r.To); err != nil {
			return period.Range{}, fmt.Errorf("period to: %w", err)
		}
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// parseDecimal parses s, falling back to def when s is empty. An empty def
// makes the value required.
func parseDecimal(s, def string) (decimal.Decimal, error) {
	if s == "" {
		if def == "" {
			return decimal.Decimal{}, fmt.Errorf("value is required")
		}
		s = def
	}
	return decimal.NewFromString(s)
}
