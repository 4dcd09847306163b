package datasequences

import (
	"context"
	"testing"
	"time"

	"github.com/gridlab/gridcore/internal/condensing"
	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/storage/memory"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type fixture struct {
	ctx   context.Context
	env   Env
	store *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	return &fixture{
		ctx:   context.Background(),
		store: store,
		env: Env{
			Location: time.UTC,
			Currency: "currency_dkk",
			Cache:    condensing.NewCache(store, store, 0),
			Raw:      store,
		},
	}
}

func (f *fixture) source(t *testing.T, unit string, points ...storage.RawPoint) rawdata.Source {
	t.Helper()
	src := rawdata.Source{ID: uuid.New(), Name: unit, Unit: unit}
	for _, p := range points {
		require.NoError(t, f.store.InsertPoint(f.ctx, src.ID, p))
	}
	return src
}

func requireValues(t *testing.T, s samples.Stream, unit string, want ...string) []samples.Ranged {
	t.Helper()
	got, err := samples.Collect(s)
	require.NoError(t, err)
	values := make([]string, len(got))
	for i, r := range got {
		v, err := r.Quantity.Convert(unit)
		require.NoError(t, err)
		values[i] = v.RatString()
	}
	require.Equal(t, want, values)
	return got
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func singleValue(value string, unit string, from, to time.Time) *Accumulation {
	return &Accumulation{
		Meta: Meta{ID: uuid.New(), Name: "single", Unit: unit},
		Periods: []AccumulationPeriod{SingleValuePeriod{
			Range: period.Range{From: from, To: to},
			Value: decimal.RequireFromString(value),
			Unit:  unit,
		}},
	}
}

func fixedTariff(value string, unit string, from, to time.Time) *PiecewiseConstant {
	return &PiecewiseConstant{
		Meta:       Meta{ID: uuid.New(), Name: "tariff", Unit: "currency_dkk*kilowatt^-1*hour^-1"},
		Resolution: condense.Hours,
		Periods: []PiecewisePeriod{FixedPeriod{
			Range:      period.Range{From: from, To: to},
			Value:      decimal.RequireFromString(value),
			Unit:       unit,
			Resolution: condense.Hours,
		}},
	}
}

func TestAccumulation_Nonpulse(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "milliwatt*hour",
		storage.RawPoint{Timestamp: at(11, 0), Value: 5},
		storage.RawPoint{Timestamp: at(17, 0), Value: 77},
		storage.RawPoint{Timestamp: at(22, 0), Value: 77},
	)
	acc := &Accumulation{
		Meta:    Meta{Name: "main", Unit: "kilowatt*hour"},
		Periods: []AccumulationPeriod{NonpulsePeriod{Range: period.Range{From: at(0, 0)}, Src: src}},
	}
	require.NoError(t, acc.Validate())

	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(13, 0), at(15, 0), condense.Hours), "milliwatt*hour", "12", "12")
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(13, 0), at(13, 15), condense.FiveMinutes), "milliwatt*hour", "1", "1", "1")
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(0, 0), at(24, 0), condense.Days), "milliwatt*hour", "72")
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(11, 0), at(22, 0), condense.Minutes), "milliwatt*hour", "72", "0")

	total, ok, err := acc.DevelopmentSum(f.ctx, f.env, at(11, 0), at(22, 0))
	require.NoError(t, err)
	require.True(t, ok)
	v, err := total.Convert("milliwatt*hour")
	require.NoError(t, err)
	require.Equal(t, "72", v.RatString())

	_, _, err = acc.DevelopmentSum(f.ctx, f.env, at(11, 30), at(22, 0))
	require.ErrorIs(t, err, coreerrors.ErrAlignment)

	_, ok, err = acc.DevelopmentSum(f.ctx, f.env, at(1, 0), at(3, 0))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAccumulation_Pulse(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "impulse",
		storage.RawPoint{Timestamp: at(11, 0), Value: 5},
		storage.RawPoint{Timestamp: at(12, 0), Value: 29},
		storage.RawPoint{Timestamp: at(13, 0), Value: 53},
		storage.RawPoint{Timestamp: at(14, 0), Value: 77},
	)
	pulse := PulsePeriod{
		Range:          period.Range{From: at(0, 0)},
		Src:            src,
		PulseQuantity:  1000,
		OutputQuantity: decimal.NewFromInt(1),
		OutputUnit:     "kilowatt*hour",
	}
	acc := &Accumulation{Meta: Meta{Name: "pulses", Unit: "kilowatt*hour"}, Periods: []AccumulationPeriod{pulse}}
	require.NoError(t, acc.Validate())

	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(11, 0), at(14, 0), condense.Hours), "watt*hour", "24", "24", "24")

	pulse.OutputUnit = "meter^3"
	require.ErrorIs(t, pulse.Validate("kilowatt*hour"), coreerrors.ErrIncompatibleUnits)
}

func TestAccumulation_PulseAfterLateReading(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "impulse",
		storage.RawPoint{Timestamp: at(11, 0), Value: 5},
		storage.RawPoint{Timestamp: at(12, 0), Value: 29},
		storage.RawPoint{Timestamp: at(14, 0), Value: 77},
	)
	cache := condensing.NewCache(f.store, f.store, 0)
	f.env.Cache = cache
	require.NoError(t, cache.Generate(f.ctx, src, at(11, 0), at(14, 0)))

	acc := &Accumulation{
		Meta: Meta{Name: "pulses", Unit: "kilowatt*hour"},
		Periods: []AccumulationPeriod{PulsePeriod{
			Range:          period.Range{From: at(0, 0)},
			Src:            src,
			PulseQuantity:  1000,
			OutputQuantity: decimal.NewFromInt(1),
			OutputUnit:     "kilowatt*hour",
		}},
	}
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(11, 0), at(14, 0), condense.Hours), "watt*hour", "24", "0", "48")

	svc := rawdata.NewService(f.store, cache)
	require.NoError(t, svc.Insert(f.ctx, src, storage.RawPoint{Timestamp: at(13, 0), Value: 53}))
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(11, 0), at(14, 0), condense.Hours), "watt*hour", "24", "24", "24")

	require.NoError(t, cache.Generate(f.ctx, src, at(11, 0), at(14, 0)))
	deleted, err := svc.Delete(f.ctx, src, at(12, 0))
	require.NoError(t, err)
	require.True(t, deleted)
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(11, 0), at(14, 0), condense.Hours), "watt*hour", "0", "48", "24")
}

func TestAccumulation_SingleValue(t *testing.T) {
	f := newFixture(t)
	acc := singleValue("42", "kilowatt*hour", at(0, 0), at(24, 0))
	require.NoError(t, acc.Validate())

	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(0, 0), at(24, 0), condense.Hours), "kilowatt*hour", repeat("7/4", 24)...)
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(0, 0), at(1, 0), condense.FiveMinutes), "kilowatt*hour", repeat("7/48", 12)...)
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(0, 0), at(48, 0), condense.Days), "kilowatt*hour", "42")

	open := SingleValuePeriod{Range: period.Range{From: at(0, 0)}, Value: decimal.NewFromInt(1), Unit: "kilowatt*hour"}
	require.Error(t, open.Validate("kilowatt*hour"))
}

func TestAccumulation_ClipsPeriods(t *testing.T) {
	f := newFixture(t)
	a := f.source(t, "milliwatt*hour",
		storage.RawPoint{Timestamp: at(10, 0), Value: 0},
		storage.RawPoint{Timestamp: at(20, 0), Value: 100},
	)
	b := f.source(t, "milliwatt*hour",
		storage.RawPoint{Timestamp: at(10, 0), Value: 0},
		storage.RawPoint{Timestamp: at(20, 0), Value: 1000},
	)
	acc := &Accumulation{
		Meta: Meta{Name: "swapped meter", Unit: "kilowatt*hour"},
		Periods: []AccumulationPeriod{
			NonpulsePeriod{Range: period.Range{From: at(14, 0)}, Src: b},
			NonpulsePeriod{Range: period.Range{From: at(0, 0), To: at(14, 0)}, Src: a},
		},
	}
	require.NoError(t, acc.Validate())
	requireValues(t, acc.DevelopmentSequence(f.ctx, f.env, at(12, 0), at(16, 0), condense.Hours), "milliwatt*hour", "10", "10", "100", "100")
}

func TestAccumulation_Validate(t *testing.T) {
	src := rawdata.Source{ID: uuid.New(), Unit: "milliwatt*hour"}
	tests := []struct {
		name    string
		periods []AccumulationPeriod
		wantErr error
	}{
		{
			name: "overlapping",
			periods: []AccumulationPeriod{
				NonpulsePeriod{Range: period.Range{From: at(0, 0), To: at(10, 0)}, Src: src},
				NonpulsePeriod{Range: period.Range{From: at(9, 0)}, Src: src},
			},
			wantErr: coreerrors.ErrOverlappingPeriods,
		},
		{
			name:    "incompatible source",
			periods: []AccumulationPeriod{NonpulsePeriod{Range: period.Range{From: at(0, 0)}, Src: rawdata.Source{Unit: "milliliter"}}},
			wantErr: coreerrors.ErrIncompatibleUnits,
		},
		{
			name:    "unaligned",
			periods: []AccumulationPeriod{NonpulsePeriod{Range: period.Range{From: at(0, 5)}, Src: src}},
			wantErr: coreerrors.ErrAlignment,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Accumulation{Meta: Meta{Name: tt.name, Unit: "kilowatt*hour"}, Periods: tt.periods}
			require.ErrorIs(t, acc.Validate(), tt.wantErr)
		})
	}
}

func TestPiecewiseConstant_Fixed(t *testing.T) {
	f := newFixture(t)
	tariff := fixedTariff("10", "currency_dkk*kilowatt^-1*hour^-1", at(0, 0), at(24, 0))
	require.NoError(t, tariff.Validate())

	requireValues(t, tariff.ValueSequence(f.ctx, f.env, at(0, 0), at(3, 0)), "currency_dkk*kilowatt^-1*hour^-1", "10", "10", "10")
	requireValues(t, tariff.ValueSequence(f.ctx, f.env, at(23, 0), at(30, 0)), "currency_dkk*kilowatt^-1*hour^-1", "10")

	_, err := samples.Collect(Evaluate(f.ctx, f.env, tariff, at(0, 0), at(24, 0), condense.Days))
	require.ErrorIs(t, err, coreerrors.ErrUndefinedSamples)
}

func TestPiecewiseConstant_SpotPrice(t *testing.T) {
	f := newFixture(t)
	spot := f.source(t, "currency_dkk*gigawatt^-1*hour^-1",
		storage.RawPoint{Timestamp: at(0, 0), Value: 200000},
		storage.RawPoint{Timestamp: at(1, 0), Value: 400000},
		storage.RawPoint{Timestamp: at(2, 0), Value: 100000},
	)
	ceiling := decimal.NewFromInt(800)
	spotPeriod := SpotPricePeriod{
		Range:        period.Range{From: at(0, 0)},
		Src:          spot,
		Coefficient:  decimal.NewFromInt(2),
		Constant:     decimal.NewFromInt(100),
		Ceiling:      &ceiling,
		ConstantUnit: "currency_dkk*megawatt^-1*hour^-1",
	}
	tariff := &PiecewiseConstant{
		Meta:       Meta{Name: "spot", Unit: "currency_dkk*megawatt^-1*hour^-1"},
		Resolution: condense.Hours,
		Periods:    []PiecewisePeriod{spotPeriod},
	}
	require.NoError(t, tariff.Validate())

	got := requireValues(t, tariff.ValueSequence(f.ctx, f.env, at(0, 0), at(2, 0)), "currency_dkk*megawatt^-1*hour^-1", "500", "800")
	require.True(t, got[1].To.Equal(at(2, 0)))

	spotPeriod.Ceiling = nil
	tariff.Periods = []PiecewisePeriod{spotPeriod}
	requireValues(t, tariff.ValueSequence(f.ctx, f.env, at(0, 0), at(3, 0)), "currency_dkk*megawatt^-1*hour^-1", "500", "900", "300")
}

func TestPiecewiseConstant_EnergyConversion(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "milliwatt*hour/meter^3",
		storage.RawPoint{Timestamp: at(9, 30), Value: 1000},
		storage.RawPoint{Timestamp: at(11, 30), Value: 2000},
	)
	conv := &PiecewiseConstant{
		Meta:       Meta{Name: "district heating", Unit: "milliwatt*hour/meter^3"},
		Resolution: condense.Hours,
		Periods:    []PiecewisePeriod{EnergyConversionPeriod{Range: period.Range{From: at(0, 0)}, Src: src}},
	}
	require.NoError(t, conv.Validate())
	requireValues(t, conv.ValueSequence(f.ctx, f.env, at(10, 0), at(13, 0)), "milliwatt*hour/meter^3", "1000", "1000", "2000")

	_, err := samples.Collect(conv.ValueSequence(f.ctx, f.env, at(10, 5), at(13, 0)))
	require.ErrorIs(t, err, coreerrors.ErrAlignment)
}

func TestPiecewiseConstant_RawFiveMinute(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "gram*kilowatt^-1*hour^-1",
		storage.RawPoint{Timestamp: at(0, 0), Value: 100},
		storage.RawPoint{Timestamp: at(0, 5), Value: 200},
		storage.RawPoint{Timestamp: at(0, 10), Value: 300},
	)
	co2 := &PiecewiseConstant{
		Meta:       Meta{Name: "co2", Unit: "gram*kilowatt^-1*hour^-1"},
		Resolution: condense.FiveMinutes,
		Periods:    []PiecewisePeriod{RawPiecewisePeriod{Range: period.Range{From: at(0, 0)}, Src: src, Width: condense.FiveMinutes}},
	}
	require.NoError(t, co2.Validate())
	got := requireValues(t, Evaluate(f.ctx, f.env, co2, at(0, 0), at(0, 10), condense.FiveMinutes), "gram*kilowatt^-1*hour^-1", "100", "200")
	require.True(t, got[0].To.Equal(at(0, 5)))
}

func TestPointSequence(t *testing.T) {
	f := newFixture(t)
	src := f.source(t, "millikelvin",
		storage.RawPoint{Timestamp: at(0, 0), Value: 280150},
		storage.RawPoint{Timestamp: at(6, 0), Value: 281150},
		storage.RawPoint{Timestamp: at(12, 0), Value: 282150},
	)
	temps := &PointSequence{
		Meta:    Meta{Name: "outdoor", Unit: "kelvin"},
		Periods: []PointPeriod{{Range: period.Range{From: at(0, 0)}, Source: src}},
	}
	require.NoError(t, temps.Validate())

	points, err := samples.CollectPoints(temps.RawSequence(f.ctx, f.env, at(0, 0), at(12, 0)))
	require.NoError(t, err)
	require.Len(t, points, 3)

	ranged, err := samples.Collect(Evaluate(f.ctx, f.env, temps, at(0, 0), at(12, 0), condense.Hours))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	require.True(t, ranged[1].Degenerate())
}

func TestDerived_Operators(t *testing.T) {
	f := newFixture(t)
	a := singleValue("48", "kilowatt*hour", at(0, 0), at(24, 0))
	b := singleValue("24", "kilowatt*hour", at(0, 0), at(24, 0))

	tests := []struct {
		name string
		op   Operator
		ins  []Sequence
		unit string
		want []string
	}{
		{"sum", OpSum, []Sequence{a, b}, "kilowatt*hour", []string{"3", "3"}},
		{"difference", OpDifference, []Sequence{a, b}, "kilowatt*hour", []string{"1", "1"}},
		{"quotient", OpQuotient, []Sequence{a, b}, "none", []string{"2", "2"}},
		{"product", OpProduct, []Sequence{a, fixedTariff("10", "currency_dkk*kilowatt^-1*hour^-1", at(0, 0), at(24, 0))}, "currency_dkk", []string{"20", "20"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Derived{Meta: Meta{Name: tt.name}, Op: tt.op, Inputs: tt.ins}
			require.NoError(t, d.Validate())
			requireValues(t, Evaluate(f.ctx, f.env, d, at(0, 0), at(2, 0), condense.Hours), tt.unit, tt.want...)
		})
	}
}

func TestDerived_NetCost(t *testing.T) {
	f := newFixture(t)
	cost := &Derived{
		Meta: Meta{Name: "net cost", Unit: "currency_dkk"},
		Op:   OpProduct,
		Inputs: []Sequence{
			singleValue("42", "kilowatt*hour", at(0, 0), at(24, 0)),
			fixedTariff("10", "currency_dkk*kilowatt^-1*hour^-1", at(0, 0), at(24, 0)),
		},
	}
	total, ok, err := Development(f.ctx, f.env, cost, at(0, 0), at(24, 0))
	require.NoError(t, err)
	require.True(t, ok)
	v, err := total.Convert("currency_dkk")
	require.NoError(t, err)
	require.Equal(t, "420", v.RatString())
}

func TestDerived_Integral(t *testing.T) {
	f := newFixture(t)
	power := &PiecewiseConstant{
		Meta:       Meta{Name: "power", Unit: "watt"},
		Resolution: condense.Hours,
		Periods: []PiecewisePeriod{FixedPeriod{
			Range:      period.Range{From: at(0, 0), To: at(24, 0)},
			Value:      decimal.NewFromInt(500),
			Unit:       "watt",
			Resolution: condense.Hours,
		}},
	}
	energy := &Derived{Meta: Meta{Name: "energy", Unit: "kilowatt*hour"}, Op: OpIntegral, Inputs: []Sequence{power}}
	requireValues(t, Evaluate(f.ctx, f.env, energy, at(0, 0), at(2, 0), condense.Hours), "kilowatt*hour", "1/2", "1/2")
	requireValues(t, Evaluate(f.ctx, f.env, energy, at(0, 0), at(24, 0), condense.Days), "kilowatt*hour", "12")
}

func temperatures(f *fixture, t *testing.T, millikelvin int64, days int) *PointSequence {
	points := make([]storage.RawPoint, days+1)
	for i := range points {
		points[i] = storage.RawPoint{Timestamp: day.AddDate(0, 0, i), Value: millikelvin}
	}
	src := f.source(t, "millikelvin", points...)
	return &PointSequence{
		Meta:    Meta{ID: uuid.New(), Name: "temperature", Unit: "millikelvin"},
		Periods: []PointPeriod{{Range: period.Range{From: day}, Source: src}},
	}
}

func TestDerived_DegreeDays(t *testing.T) {
	f := newFixture(t)
	hdd := &Derived{Meta: Meta{Name: "hdd", Unit: "kelvin*day"}, Op: OpDegreeDays, Inputs: []Sequence{temperatures(f, t, 280150, 3)}}
	require.NoError(t, hdd.Validate())

	requireValues(t, Evaluate(f.ctx, f.env, hdd, day, day.AddDate(0, 0, 3), condense.Days), "kelvin*day", "10", "10", "10")
	requireValues(t, Evaluate(f.ctx, f.env, hdd, day, day.AddDate(0, 0, 3), condense.Months), "kelvin*day", "30")

	_, err := samples.Collect(Evaluate(f.ctx, f.env, hdd, day, day.AddDate(0, 0, 1), condense.Hours))
	require.ErrorIs(t, err, coreerrors.ErrUndefinedSamples)

	bad := &Derived{Meta: Meta{Name: "bad"}, Op: OpDegreeDays, Inputs: []Sequence{singleValue("1", "kilowatt*hour", day, day.AddDate(0, 0, 1))}}
	require.Error(t, bad.Validate())
}

func TestDerived_Corrected(t *testing.T) {
	f := newFixture(t)
	actual := &Derived{Meta: Meta{Name: "actual"}, Op: OpDegreeDays, Inputs: []Sequence{temperatures(f, t, 280150, 1)}}
	standard := &Derived{Meta: Meta{Name: "standard"}, Op: OpDegreeDays, Inputs: []Sequence{temperatures(f, t, 275150, 1)}}
	consumption := singleValue("42", "kilowatt*hour", day, day.AddDate(0, 0, 1))

	corrected := &Derived{Meta: Meta{Name: "corrected", Unit: "kilowatt*hour"}, Op: OpCorrected, Inputs: []Sequence{consumption, standard, actual}}
	total, ok, err := corrected.CalculateDevelopment(f.ctx, f.env, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.True(t, ok)
	v, err := total.Convert("kilowatt*hour")
	require.NoError(t, err)
	require.Equal(t, "63", v.RatString())

	_, err = samples.Collect(Evaluate(f.ctx, f.env, corrected, day, day.AddDate(0, 0, 1), condense.Days))
	require.ErrorIs(t, err, coreerrors.ErrUndefinedSamples)
}

func TestValidateGraph(t *testing.T) {
	leaf := singleValue("1", "kilowatt*hour", at(0, 0), at(1, 0))
	inner := &Derived{Meta: Meta{Name: "inner"}, Op: OpSum, Inputs: []Sequence{leaf}}
	outer := &Derived{Meta: Meta{Name: "outer"}, Op: OpDifference, Inputs: []Sequence{inner, leaf}}

	require.NoError(t, ValidateGraph(outer))
	require.Equal(t, []Sequence{inner, leaf}, outer.DependsOn())

	x := &Derived{Meta: Meta{Name: "x"}, Op: OpSum}
	y := &Derived{Meta: Meta{Name: "y"}, Op: OpSum, Inputs: []Sequence{x}}
	x.Inputs = []Sequence{y}
	require.ErrorIs(t, ValidateGraph(x), coreerrors.ErrCyclicDependency)
	require.Len(t, x.DependsOn(), 1)
}

func TestSources(t *testing.T) {
	a := rawdata.Source{ID: uuid.New(), Unit: "milliwatt*hour"}
	acc := &Accumulation{Meta: Meta{Name: "acc"}, Periods: []AccumulationPeriod{
		NonpulsePeriod{Range: period.Range{From: at(0, 0), To: at(1, 0)}, Src: a},
		NonpulsePeriod{Range: period.Range{From: at(1, 0)}, Src: a},
	}}
	sum := &Derived{Meta: Meta{Name: "sum"}, Op: OpSum, Inputs: []Sequence{acc, singleValue("1", "kilowatt*hour", at(0, 0), at(1, 0))}}
	require.Equal(t, []rawdata.Source{a}, Sources(sum))
}

func TestValidDates(t *testing.T) {
	acc := &Accumulation{Meta: Meta{Name: "acc"}, Periods: []AccumulationPeriod{
		SingleValuePeriod{Range: period.Range{From: day, To: day.AddDate(0, 0, 2)}},
		SingleValuePeriod{Range: period.Range{From: day.AddDate(0, 0, 10)}},
	}}
	seqs := []Sequence{acc}

	tests := []struct {
		name     string
		next     bool
		date     time.Time
		want     time.Time
		wantNone bool
	}{
		{"next inside period", true, day, day.AddDate(0, 0, 1), false},
		{"next skips gap", true, day.AddDate(0, 0, 1), day.AddDate(0, 0, 10), false},
		{"next in open period", true, day.AddDate(0, 0, 30), day.AddDate(0, 0, 31), false},
		{"previous before start", false, day, time.Time{}, true},
		{"previous inside period", false, day.AddDate(0, 0, 1), day, false},
		{"previous skips gap", false, day.AddDate(0, 0, 10), day.AddDate(0, 0, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got time.Time
				ok  bool
			)
			if tt.next {
				got, ok = NextValidDate(seqs, tt.date, time.UTC)
			} else {
				got, ok = PreviousValidDate(seqs, tt.date, time.UTC)
			}
			if tt.wantNone {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			require.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}
