// Package tariffs holds energy and volume tariffs: hourly prices made of
// fixed-price and spot-price periods, each carrying a subscription fee.
package tariffs

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownKind     = errors.New("unknown tariff kind")
	ErrUnknownInterval = errors.New("unknown subscription interval")
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Currencies a customer can be billed in.
var Currencies = []string{"currency_dkk", "currency_eur"}

// Kind selects what a tariff prices.
type Kind string

const (
	Energy Kind = "energy"
	Volume Kind = "volume"
)

// Interval is how often a subscription fee is charged.
type Interval string

const (
	Monthly   Interval = "monthly"
	Quarterly Interval = "quarterly"
	Yearly    Interval = "yearly"
)

var intervalUnits = map[Interval]string{
	Monthly:   "month",
	Quarterly: "quarteryear",
	Yearly:    "year",
}

// Duration is one interval as a time quantity. Months and years have a
// fixed length here, so costs over calendar periods can be off by a few
// percent.
func (i Interval) Duration() (units.Quantity, error) {
	unit, ok := intervalUnits[i]
	if !ok {
		return units.Quantity{}, fmt.Errorf("%w: %q", ErrUnknownInterval, i)
	}
	return units.FromInt(1, unit)
}

// Subscription is a fee in the tariff currency charged every Interval.
type Subscription struct {
	Fee      decimal.Decimal
	Interval Interval
}

// Period is a price definition and the subscription that applies with it.
// Price is a datasequences.FixedPeriod or datasequences.SpotPricePeriod.
type Period struct {
	Price datasequences.PiecewisePeriod
	Subscription
}

// NewFixedPeriod prices every hour of r at value.
func NewFixedPeriod(r period.Range, value decimal.Decimal, unit string, sub Subscription) Period {
	return Period{
		Price:        datasequences.FixedPeriod{Range: r, Value: value, Unit: unit, Resolution: condense.Hours},
		Subscription: sub,
	}
}

// NewSpotPricePeriod prices every hour of r from an hourly spot price
// source. A nil ceiling leaves the price unbounded.
func NewSpotPricePeriod(r period.Range, src rawdata.Source, coefficient, constant decimal.Decimal, ceiling *decimal.Decimal, unit string, sub Subscription) Period {
	return Period{
		Price: datasequences.SpotPricePeriod{
			Range:        r,
			Src:          src,
			Coefficient:  coefficient,
			Constant:     constant,
			Ceiling:      ceiling,
			ConstantUnit: unit,
		},
		Subscription: sub,
	}
}

// SubscriptionCost is fee × (to - from) / interval in currency. [from, to)
// must lie within the period.
func (p Period) SubscriptionCost(currency string, from, to time.Time) (units.Quantity, error) {
	fee, err := units.FromDecimal(p.Fee, currency)
	if err != nil {
		return units.Quantity{}, err
	}
	interval, err := p.Interval.Duration()
	if err != nil {
		return units.Quantity{}, err
	}
	seconds := units.MustNew(big.NewRat(int64(to.Sub(from)/time.Second), 1), "second")
	cost, err := fee.Mul(seconds)
	if err != nil {
		return units.Quantity{}, err
	}
	return cost.Div(interval)
}

// Tariff is a sequence of hourly prices.
type Tariff struct {
	ID       uuid.UUID
	Name     string
	Kind     Kind
	Currency string
	Periods  []Period
}

// Unit is the price unit: currency per megawatt hour for energy tariffs,
// currency per cubic meter for volume tariffs.
func (t *Tariff) Unit() string {
	switch t.Kind {
	case Volume:
		return t.Currency + "*meter^-3"
	default:
		return t.Currency + "*megawatt^-1*hour^-1"
	}
}

// Sequence is the tariff as an hourly piecewise-constant sequence.
func (t *Tariff) Sequence() *datasequences.PiecewiseConstant {
	periods := make([]datasequences.PiecewisePeriod, len(t.Periods))
	for i, p := range t.Periods {
		periods[i] = p.Price
	}
	return &datasequences.PiecewiseConstant{
		Meta:       datasequences.Meta{ID: t.ID, Name: t.Name, Unit: t.Unit()},
		Resolution: condense.Hours,
		Periods:    periods,
	}
}

// Validate checks the kind, currency, intervals and price periods.
func (t *Tariff) Validate() error {
	if t.Kind != Energy && t.Kind != Volume {
		return fmt.Errorf("tariff %q: %w: %q", t.Name, ErrUnknownKind, t.Kind)
	}
	if !validCurrency(t.Currency) {
		return fmt.Errorf("tariff %q: %w: %q", t.Name, ErrUnknownCurrency, t.Currency)
	}
	for _, p := range t.Periods {
		if _, err := p.Interval.Duration(); err != nil {
			return fmt.Errorf("tariff %q: %w", t.Name, err)
		}
		if err := p.Price.Bounds().Validate(); err != nil {
			return fmt.Errorf("tariff %q: %w", t.Name, err)
		}
		switch price := p.Price.(type) {
		case datasequences.FixedPeriod:
			if price.Resolution != condense.Hours {
				return fmt.Errorf("tariff %q: fixed price period %s must be hourly", t.Name, price.Range)
			}
		case datasequences.SpotPricePeriod:
		default:
			return fmt.Errorf("tariff %q: unsupported price period %T", t.Name, p.Price)
		}
	}
	return t.Sequence().Validate()
}

func validCurrency(c string) bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// ValueSequence yields the hourly prices of [from, to).
func (t *Tariff) ValueSequence(ctx context.Context, env datasequences.Env, from, to time.Time) samples.Stream {
	return t.Sequence().ValueSequence(ctx, env, from, to)
}

// SubscriptionCostSum is the total subscription cost of the periods
// overlapping [from, to), each counted for its overlap only. ok is false
// when no period overlaps.
func (t *Tariff) SubscriptionCostSum(from, to time.Time) (units.Quantity, bool, error) {
	var (
		total units.Quantity
		found bool
	)
	for _, p := range t.Periods {
		f, e, ok := p.Price.Bounds().Intersect(from, to)
		if !ok {
			continue
		}
		cost, err := p.SubscriptionCost(t.Currency, f, e)
		if err != nil {
			return units.Quantity{}, false, fmt.Errorf("tariff %q: %w", t.Name, err)
		}
		if !found {
			total, found = cost, true
			continue
		}
		if total, err = total.Add(cost); err != nil {
			return units.Quantity{}, false, err
		}
	}
	return total, found, nil
}
