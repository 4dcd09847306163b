package tariffs

import (
	"context"
	"testing"
	"time"

	"github.com/gridlab/gridcore/internal/condensing"
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

func monthly(fee int64) Subscription {
	return Subscription{Fee: decimal.NewFromInt(fee), Interval: Monthly}
}

func TestSubscriptionCostSum(t *testing.T) {
	tests := []struct {
		name     string
		periods  []Period
		from, to time.Time
		want     string
		wantNone bool
	}{
		{
			name:    "monthly fee over ten days",
			periods: []Period{NewFixedPeriod(period.Range{From: day}, decimal.NewFromInt(1), "currency_dkk*kilowatt^-1*hour^-1", monthly(300))},
			from:    day,
			to:      day.AddDate(0, 0, 10),
			want:    "100",
		},
		{
			name: "quarterly fee over one day",
			periods: []Period{NewFixedPeriod(period.Range{From: day}, decimal.NewFromInt(1), "currency_dkk*kilowatt^-1*hour^-1",
				Subscription{Fee: decimal.NewFromInt(365), Interval: Quarterly})},
			from: day,
			to:   day.AddDate(0, 0, 1),
			want: "4",
		},
		{
			name: "periods are clipped to the range",
			periods: []Period{
				NewFixedPeriod(period.Range{From: day, To: day.AddDate(0, 0, 5)}, decimal.NewFromInt(1), "currency_dkk*kilowatt^-1*hour^-1", monthly(30)),
				NewFixedPeriod(period.Range{From: day.AddDate(0, 0, 5)}, decimal.NewFromInt(2), "currency_dkk*kilowatt^-1*hour^-1",
					Subscription{Fee: decimal.NewFromInt(365), Interval: Yearly}),
			},
			from: day.AddDate(0, 0, 3),
			to:   day.AddDate(0, 0, 8),
			want: "5",
		},
		{
			name:     "no overlapping period",
			periods:  []Period{NewFixedPeriod(period.Range{From: day, To: day.AddDate(0, 0, 1)}, decimal.NewFromInt(1), "currency_dkk*kilowatt^-1*hour^-1", monthly(30))},
			from:     day.AddDate(0, 0, 2),
			to:       day.AddDate(0, 0, 3),
			wantNone: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tariff := &Tariff{Name: tt.name, Kind: Energy, Currency: "currency_dkk", Periods: tt.periods}
			require.NoError(t, tariff.Validate())

			got, ok, err := tariff.SubscriptionCostSum(tt.from, tt.to)
			require.NoError(t, err)
			if tt.wantNone {
				require.False(t, ok)
				return
			}
			require.True(t, ok)
			v, err := got.Convert("currency_dkk")
			require.NoError(t, err)
			require.Equal(t, tt.want, v.RatString())
		})
	}
}

func TestTariff_Validate(t *testing.T) {
	fixed := NewFixedPeriod(period.Range{From: day}, decimal.NewFromInt(1), "currency_dkk*kilowatt^-1*hour^-1", monthly(1))
	tests := []struct {
		name    string
		tariff  Tariff
		wantErr error
	}{
		{"unknown kind", Tariff{Kind: "steam", Currency: "currency_dkk"}, ErrUnknownKind},
		{"unknown currency", Tariff{Kind: Energy, Currency: "currency_sek"}, ErrUnknownCurrency},
		{"unknown interval", Tariff{Kind: Energy, Currency: "currency_dkk", Periods: []Period{{Price: fixed.Price, Subscription: Subscription{Interval: "weekly"}}}}, ErrUnknownInterval},
		{"volume price on energy tariff", Tariff{Kind: Energy, Currency: "currency_dkk", Periods: []Period{
			NewFixedPeriod(period.Range{From: day}, decimal.NewFromInt(1), "currency_dkk*meter^-3", monthly(1)),
		}}, coreerrors.ErrIncompatibleUnits},
		{"overlapping periods", Tariff{Kind: Energy, Currency: "currency_dkk", Periods: []Period{fixed, fixed}}, coreerrors.ErrOverlappingPeriods},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.tariff.Validate(), tt.wantErr)
		})
	}
}

func TestTariff_Unit(t *testing.T) {
	require.Equal(t, "currency_eur*megawatt^-1*hour^-1", (&Tariff{Kind: Energy, Currency: "currency_eur"}).Unit())
	require.Equal(t, "currency_dkk*meter^-3", (&Tariff{Kind: Volume, Currency: "currency_dkk"}).Unit())
}

func TestTariff_ValueSequence(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	spot := rawdata.Source{ID: uuid.New(), Unit: "currency_dkk*gigawatt^-1*hour^-1"}
	for i, v := range []int64{300000, 700000} {
		require.NoError(t, store.InsertPoint(ctx, spot.ID, storage.RawPoint{Timestamp: day.Add(time.Duration(12+i) * time.Hour), Value: v}))
	}
	ceiling := decimal.NewFromInt(500)

	tariff := &Tariff{
		Name:     "mixed",
		Kind:     Energy,
		Currency: "currency_dkk",
		Periods: []Period{
			NewFixedPeriod(period.Range{From: day, To: day.Add(12 * time.Hour)}, decimal.NewFromInt(250), "currency_dkk*megawatt^-1*hour^-1", monthly(0)),
			NewSpotPricePeriod(period.Range{From: day.Add(12 * time.Hour)}, spot, decimal.NewFromInt(1), decimal.NewFromInt(50), &ceiling,
				"currency_dkk*megawatt^-1*hour^-1", monthly(0)),
		},
	}
	require.NoError(t, tariff.Validate())

	env := datasequences.Env{Location: time.UTC, Currency: "currency_dkk", Cache: condensing.NewCache(store, store, 0), Raw: store}
	got, err := samples.Collect(tariff.ValueSequence(ctx, env, day.Add(11*time.Hour), day.Add(14*time.Hour)))
	require.NoError(t, err)

	values := make([]string, len(got))
	for i, s := range got {
		v, err := s.Quantity.Convert(tariff.Unit())
		require.NoError(t, err)
		values[i] = v.RatString()
	}
	require.Equal(t, []string{"250", "350", "500"}, values)
}
