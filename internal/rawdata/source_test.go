package rawdata

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/storage/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2014, 4, 14, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return base.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func TestInterpolation(t *testing.T) {
	a := storage.RawPoint{Timestamp: at(11, 0), Value: 5}
	b := storage.RawPoint{Timestamp: at(17, 0), Value: 77}

	tests := []struct {
		name string
		fn   InterpolateFunc
		t    time.Time
		want *big.Rat
	}{
		{"linear at start", Linear, at(11, 0), big.NewRat(5, 1)},
		{"linear at 13:00", Linear, at(13, 0), big.NewRat(29, 1)},
		{"linear at 13:05", Linear, at(13, 5), big.NewRat(30, 1)},
		{"linear fraction", Linear, at(11, 1), big.NewRat(26, 5)},
		{"linear drops sub-second", Linear, at(11, 1).Add(500 * time.Millisecond), big.NewRat(26, 5)},
		{"impulse holds", Impulse, at(16, 59), big.NewRat(5, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(tt.t, a, b)
			require.Zero(t, tt.want.Cmp(got), "got %s want %s", got.RatString(), tt.want.RatString())
		})
	}
}

func TestLinear_Monotone(t *testing.T) {
	points := []storage.RawPoint{
		{Timestamp: at(0, 0), Value: 0},
		{Timestamp: at(0, 7), Value: 3},
		{Timestamp: at(1, 0), Value: 3},
		{Timestamp: at(2, 13), Value: 1000},
		{Timestamp: at(5, 0), Value: 1001},
	}
	prev := new(big.Rat).SetInt64(points[0].Value)
	for i := 0; i+1 < len(points); i++ {
		for ts := points[i].Timestamp; ts.Before(points[i+1].Timestamp); ts = ts.Add(37 * time.Second) {
			v := Linear(ts, points[i], points[i+1])
			require.GreaterOrEqual(t, v.Cmp(prev), 0, "at %s", ts)
			prev = v
		}
	}
}

func TestSource_Interpolation(t *testing.T) {
	require.NotNil(t, Source{Unit: "impulse"}.Interpolation())
	got := Source{Unit: "impulse"}.Interpolation()(at(1, 30), storage.RawPoint{Timestamp: at(1, 0), Value: 1}, storage.RawPoint{Timestamp: at(2, 0), Value: 9})
	require.Zero(t, got.Cmp(big.NewRat(1, 1)))

	got = Source{Unit: "milliwatt*hour"}.Interpolation()(at(1, 30), storage.RawPoint{Timestamp: at(1, 0), Value: 1}, storage.RawPoint{Timestamp: at(2, 0), Value: 9})
	require.Zero(t, got.Cmp(big.NewRat(5, 1)))
}

func TestSource_ValidateTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		unit    string
		t       time.Time
		wantErr bool
	}{
		{"tariff on hour", "currency_dkk*gigawatt^-1*hour^-1", at(3, 0), false},
		{"tariff off hour", "currency_dkk*gigawatt^-1*hour^-1", at(3, 5), true},
		{"co2 on five minutes", "gram*kilowatt^-1*hour^-1", at(3, 5), false},
		{"co2 off five minutes", "gram*kilowatt^-1*hour^-1", at(3, 7), true},
		{"energy anywhere", "milliwatt*hour", at(3, 7).Add(time.Second), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Source{ID: uuid.New(), Unit: tt.unit}.ValidateTimestamp(tt.t)
			if tt.wantErr {
				require.ErrorIs(t, err, coreerrors.ErrAlignment)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSource_Validate(t *testing.T) {
	require.NoError(t, Source{ID: uuid.New(), Unit: "milliwatt*hour"}.Validate())
	require.Error(t, Source{ID: uuid.New(), Unit: "kilowatt*hour"}.Validate())
	require.Error(t, Source{Unit: "milliwatt*hour"}.Validate())
}

func TestSequenceAndValidDates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	src := Source{ID: uuid.New(), Unit: "milliwatt*hour"}
	for _, p := range []storage.RawPoint{
		{Timestamp: at(11, 0), Value: 5},
		{Timestamp: at(17, 0), Value: 77},
		{Timestamp: at(24*3+2, 0), Value: 80},
	} {
		require.NoError(t, store.InsertPoint(ctx, src.ID, p))
	}

	points, err := samples.CollectPoints(Sequence(ctx, store, src, at(11, 0), at(17, 0)))
	require.NoError(t, err)
	require.Len(t, points, 2)
	v, err := points[1].Quantity.Convert("milliwatt*hour")
	require.NoError(t, err)
	require.Zero(t, v.Cmp(big.NewRat(77, 1)))

	next, ok, err := NextValidDate(ctx, store, src, base, time.UTC)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, base.AddDate(0, 0, 3), next)

	prev, ok, err := PreviousValidDate(ctx, store, src, base.AddDate(0, 0, 3), time.UTC)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, base, prev)

	_, ok, err = PreviousValidDate(ctx, store, src, base, time.UTC)
	require.NoError(t, err)
	require.False(t, ok)
}

type recordingInvalidator struct {
	calls []time.Time
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, _ uuid.UUID, t time.Time) error {
	r.calls = append(r.calls, t)
	return r.err
}

func TestService_InsertDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	inv := &recordingInvalidator{}
	svc := NewService(store, inv)
	src := Source{ID: uuid.New(), Unit: "currency_dkk*gigawatt^-1*hour^-1"}

	require.NoError(t, svc.Insert(ctx, src, storage.RawPoint{Timestamp: at(1, 0), Value: 100}))
	require.ErrorIs(t, svc.Insert(ctx, src, storage.RawPoint{Timestamp: at(1, 0), Value: 100}), storage.ErrDuplicate)
	require.ErrorIs(t, svc.Insert(ctx, src, storage.RawPoint{Timestamp: at(1, 30), Value: 1}), coreerrors.ErrAlignment)

	deleted, err := svc.Delete(ctx, src, at(2, 0))
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = svc.Delete(ctx, src, at(1, 0))
	require.NoError(t, err)
	require.True(t, deleted)

	require.Equal(t, []time.Time{at(1, 0), at(1, 0)}, inv.calls)

	inv.err = errors.New("cache down")
	err = svc.Insert(ctx, src, storage.RawPoint{Timestamp: at(3, 0), Value: 1})
	require.ErrorIs(t, err, ErrCacheInvalidation)
	require.ErrorIs(t, err, inv.err)

	points, err := store.PointsInRange(ctx, src.ID, at(3, 0), at(3, 0))
	require.NoError(t, err)
	require.Len(t, points, 1)
}
