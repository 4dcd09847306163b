package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/stretchr/testify/require"
)

func TestCacheAdapter_StoreFill(t *testing.T) {
	hour := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	hourRows := []storage.CacheRow{
		{Timestamp: hour, Value: 100},
		{Timestamp: hour.Add(time.Hour), Value: 200},
	}
	fiveRows := []storage.CacheRow{
		{Timestamp: hour, Value: 8},
		{Timestamp: hour.Add(5 * time.Minute), Value: 9},
	}

	tests := []struct {
		name    string
		fill    storage.CacheFill
		mock    func(mock sqlmock.Sqlmock)
		wantErr string
	}{
		{
			name: "both widths in one transaction",
			fill: storage.CacheFill{condense.Hours: hourRows, condense.FiveMinutes: fiveRows},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				five := mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertFiveMinuteRow))
				five.ExpectExec().WithArgs(testSource, hour, int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
				five.ExpectExec().WithArgs(testSource, hour.Add(5*time.Minute), int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
				hours := mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertHourRow))
				hours.ExpectExec().WithArgs(testSource, hour, int64(100)).WillReturnResult(sqlmock.NewResult(0, 1))
				hours.ExpectExec().WithArgs(testSource, hour.Add(time.Hour), int64(200)).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "hour rows only",
			fill: storage.CacheFill{condense.Hours: hourRows, condense.FiveMinutes: nil},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				prep := mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertHourRow))
				prep.ExpectExec().WithArgs(testSource, hour, int64(100)).WillReturnResult(sqlmock.NewResult(0, 1))
				prep.ExpectExec().WithArgs(testSource, hour.Add(time.Hour), int64(200)).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "failed hour upsert rolls back the five minute rows",
			fill: storage.CacheFill{condense.Hours: hourRows, condense.FiveMinutes: fiveRows},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				five := mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertFiveMinuteRow))
				five.ExpectExec().WithArgs(testSource, hour, int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
				five.ExpectExec().WithArgs(testSource, hour.Add(5*time.Minute), int64(9)).WillReturnResult(sqlmock.NewResult(0, 1))
				hours := mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertHourRow))
				hours.ExpectExec().WithArgs(testSource, hour, int64(100)).WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			wantErr: "disk full",
		},
		{
			name:    "unsupported width stores nothing",
			fill:    storage.CacheFill{condense.Days: hourRows, condense.Hours: hourRows},
			mock:    func(mock sqlmock.Sqlmock) {},
			wantErr: "no cache table for width",
		},
		{
			name: "empty fill",
			fill: storage.CacheFill{condense.Hours: nil},
			mock: func(mock sqlmock.Sqlmock) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			err = NewCacheAdapter(db).StoreFill(context.Background(), testSource, tt.fill)
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCacheAdapter_CachedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(15 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(querySelectFiveMinuteRows)).
		WithArgs(testSource, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"timestamp", "value"}).
			AddRow(from, int64(3)).
			AddRow(from.Add(5*time.Minute), int64(4)))

	rows, err := NewCacheAdapter(db).CachedRows(context.Background(), testSource, condense.FiveMinutes, from, to)
	require.NoError(t, err)
	require.Equal(t, []storage.CacheRow{
		{Timestamp: from, Value: 3},
		{Timestamp: from.Add(5 * time.Minute), Value: 4},
	}, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheAdapter_DeleteRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta(queryDeleteHourRows)).
		WithArgs(testSource, from, to).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := NewCacheAdapter(db).DeleteRows(context.Background(), testSource, condense.Hours, from, to)
	require.NoError(t, err)
	require.Equal(t, int64(2), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheAdapter_HasRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryHasCacheRows)).
		WithArgs(testSource).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := NewCacheAdapter(db).HasRows(context.Background(), testSource)
	require.NoError(t, err)
	require.True(t, has)
	require.NoError(t, mock.ExpectationsWereMet())
}
