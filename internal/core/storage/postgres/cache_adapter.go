package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/google/uuid"
)

type cacheQueries struct {
	selectRows string
	upsertRow  string
	deleteRows string
}

var cacheTables = map[condense.Resolution]cacheQueries{
	condense.FiveMinutes: {
		selectRows: querySelectFiveMinuteRows,
		upsertRow:  queryUpsertFiveMinuteRow,
		deleteRows: queryDeleteFiveMinuteRows,
	},
	condense.Hours: {
		selectRows: querySelectHourRows,
		upsertRow:  queryUpsertHourRow,
		deleteRows: queryDeleteHourRows,
	},
}

func queriesFor(width condense.Resolution) (cacheQueries, error) {
	q, ok := cacheTables[width]
	if !ok {
		return cacheQueries{}, fmt.Errorf("no cache table for width %s", width)
	}
	return q, nil
}

// CacheAdapter implements storage.CacheStore on the five_minute_delta and
// hour_delta tables. A fill of both widths is one transaction, so the widths
// never disagree after a failed fill.
type CacheAdapter struct {
	db *sql.DB
}

// NewCacheAdapter creates a CacheAdapter sharing the given connection.
func NewCacheAdapter(db *sql.DB) *CacheAdapter {
	return &CacheAdapter{db: db}
}

// CachedRows implements storage.CacheStore.
func (a *CacheAdapter) CachedRows(
	ctx context.Context,
	sourceID uuid.UUID,
	width condense.Resolution,
	from time.Time,
	to time.Time,
) ([]storage.CacheRow, error) {
	q, err := queriesFor(width)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, q.selectRows, sourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query %s cache rows: %w", width, err)
	}
	defer rows.Close()

	var results []storage.CacheRow
	for rows.Next() {
		var row storage.CacheRow
		if err := rows.Scan(&row.Timestamp, &row.Value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row.Timestamp = row.Timestamp.UTC()
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, nil
}

// StoreFill implements storage.CacheStore. Every width is upserted in the
// same transaction.
func (a *CacheAdapter) StoreFill(
	ctx context.Context,
	sourceID uuid.UUID,
	fill storage.CacheFill,
) error {
	if fill.Len() == 0 {
		return nil
	}
	widths := fill.Widths()
	for _, width := range widths {
		if _, err := queriesFor(width); err != nil {
			return err
		}
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, width := range widths {
		if err := upsertRows(ctx, tx, sourceID, width, fill[width]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache store: commit: %w", err)
	}

	slog.Debug("[CacheAdapter] Stored fill",
		"source_id", sourceID,
		"five_minute_rows", len(fill[condense.FiveMinutes]),
		"hour_rows", len(fill[condense.Hours]),
	)
	return nil
}

func upsertRows(ctx context.Context, tx *sql.Tx, sourceID uuid.UUID, width condense.Resolution, rows []storage.CacheRow) error {
	if len(rows) == 0 {
		return nil
	}
	q, err := queriesFor(width)
	if err != nil {
		return err
	}

	upsertStmt, err := tx.PrepareContext(ctx, q.upsertRow)
	if err != nil {
		return fmt.Errorf("cache store: prepare %s upsert: %w", width, err)
	}
	defer upsertStmt.Close()

	for _, row := range rows {
		if _, err := upsertStmt.ExecContext(ctx, sourceID, row.Timestamp.UTC(), row.Value); err != nil {
			return fmt.Errorf("cache store: upsert %s at %s: %w", width, row.Timestamp, err)
		}
	}
	return nil
}

// DeleteRows implements storage.CacheStore.
func (a *CacheAdapter) DeleteRows(
	ctx context.Context,
	sourceID uuid.UUID,
	width condense.Resolution,
	from time.Time,
	to time.Time,
) (int64, error) {
	q, err := queriesFor(width)
	if err != nil {
		return 0, err
	}

	result, err := a.db.ExecContext(ctx, q.deleteRows, sourceID, from, to)
	if err != nil {
		return 0, fmt.Errorf("delete %s cache rows: %w", width, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check %s cache delete: %w", width, err)
	}
	return deleted, nil
}

// HasRows implements storage.CacheStore.
func (a *CacheAdapter) HasRows(ctx context.Context, sourceID uuid.UUID) (bool, error) {
	var exists bool
	if err := a.db.QueryRowContext(ctx, queryHasCacheRows, sourceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cache rows: %w", err)
	}
	return exists, nil
}
