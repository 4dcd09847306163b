package co2conversions

import (
	"context"
	"testing"
	"time"

	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/period"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/storage/memory"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)

func TestUnitIsValid(t *testing.T) {
	tests := []struct {
		unit, utility string
		want          bool
	}{
		{"gram*kilowatt^-1*hour^-1", "milliwatt*hour", true},
		{"gram*meter^-3", "milliliter", true},
		{"gram*meter^-3", "milliwatt*hour", false},
		{"none", "gram", true},
		{"bogus", "milliwatt*hour", false},
	}
	for _, tt := range tests {
		t.Run(tt.unit+" "+tt.utility, func(t *testing.T) {
			require.Equal(t, tt.want, UnitIsValid(tt.unit, tt.utility))
		})
	}
}

func TestConversions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		periods []datasequences.PiecewisePeriod
		wantErr error
	}{
		{
			name:    "unaligned start",
			periods: []datasequences.PiecewisePeriod{Fixed(period.Range{From: day.Add(3 * time.Minute)}, decimal.NewFromInt(1), "gram*kilowatt^-1*hour^-1")},
			wantErr: coreerrors.ErrAlignment,
		},
		{
			name:    "volume factor for energy",
			periods: []datasequences.PiecewisePeriod{Fixed(period.Range{From: day}, decimal.NewFromInt(1), "gram*meter^-3")},
			wantErr: coreerrors.ErrIncompatibleUnits,
		},
		{
			name: "overlapping",
			periods: []datasequences.PiecewisePeriod{
				Fixed(period.Range{From: day, To: day.Add(time.Hour)}, decimal.NewFromInt(1), "gram*kilowatt^-1*hour^-1"),
				Dynamic(period.Range{From: day.Add(55 * time.Minute)}, rawdata.Source{Unit: "gram*kilowatt^-1*hour^-1"}),
			},
			wantErr: coreerrors.ErrOverlappingPeriods,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Conversions{UtilityUnit: "milliwatt*hour", Periods: tt.periods}
			require.ErrorIs(t, c.Validate(), tt.wantErr)
		})
	}
}

func TestConversions_ValueSequence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	src := rawdata.Source{ID: uuid.New(), Unit: "gram*kilowatt^-1*hour^-1"}
	require.NoError(t, store.InsertPoint(ctx, src.ID, storage.RawPoint{Timestamp: day.Add(10 * time.Minute), Value: 300}))
	require.NoError(t, store.InsertPoint(ctx, src.ID, storage.RawPoint{Timestamp: day.Add(15 * time.Minute), Value: 400}))

	c := &Conversions{
		UtilityUnit: "milliwatt*hour",
		Periods: []datasequences.PiecewisePeriod{
			Fixed(period.Range{From: day, To: day.Add(10 * time.Minute)}, decimal.NewFromInt(200), "gram*kilowatt^-1*hour^-1"),
			Dynamic(period.Range{From: day.Add(10 * time.Minute)}, src),
		},
	}
	require.NoError(t, c.Validate())

	env := datasequences.Env{Location: time.UTC, Raw: store}
	got, err := samples.Collect(c.ValueSequence(ctx, env, day, day.Add(20*time.Minute)))
	require.NoError(t, err)
	require.Len(t, got, 4)

	values := make([]string, len(got))
	for i, s := range got {
		require.Equal(t, 5*time.Minute, s.Duration())
		v, err := s.Quantity.Convert("gram*kilowatt^-1*hour^-1")
		require.NoError(t, err)
		values[i] = v.RatString()
	}
	require.Equal(t, []string{"200", "200", "300", "400"}, values)

	var none *Conversions
	empty, err := samples.Collect(none.ValueSequence(ctx, env, day, day.Add(time.Hour)))
	require.NoError(t, err)
	require.Empty(t, empty)
}
