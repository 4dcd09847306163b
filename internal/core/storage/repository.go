package storage

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/google/uuid"
)

// ErrDuplicate is returned when a raw point with the same (source_id, timestamp) already exists.
var ErrDuplicate = errors.New("raw point already exists")

// RawPoint is one integer reading of a raw source.
type RawPoint struct {
	Timestamp time.Time
	Value     int64
}

// CacheRow is one condensed delta keyed by its bucket start.
type CacheRow struct {
	Timestamp time.Time
	Value     int64
}

// RawDataStore is the append-mostly table of raw readings per source.
type RawDataStore interface {
	// PointsInRange returns the points with from <= timestamp <= to ordered by timestamp.
	PointsInRange(ctx context.Context, sourceID uuid.UUID, from, to time.Time) ([]RawPoint, error)

	// PointBefore returns the last point strictly before t.
	PointBefore(ctx context.Context, sourceID uuid.UUID, t time.Time) (RawPoint, bool, error)

	// PointAfter returns the first point strictly after t.
	PointAfter(ctx context.Context, sourceID uuid.UUID, t time.Time) (RawPoint, bool, error)

	// InsertPoint stores one point. Returns ErrDuplicate if the timestamp is taken.
	InsertPoint(ctx context.Context, sourceID uuid.UUID, point RawPoint) error

	// DeletePoint removes the point at t and reports whether it existed.
	DeletePoint(ctx context.Context, sourceID uuid.UUID, t time.Time) (bool, error)
}

// CacheFill is the rows computed by one cache fill, keyed by width.
type CacheFill map[condense.Resolution][]CacheRow

// Widths returns the widths of the fill in ascending order.
func (f CacheFill) Widths() []condense.Resolution {
	widths := make([]condense.Resolution, 0, len(f))
	for w := range f {
		widths = append(widths, w)
	}
	slices.Sort(widths)
	return widths
}

// Len is the number of rows over all widths.
func (f CacheFill) Len() int {
	n := 0
	for _, rows := range f {
		n += len(rows)
	}
	return n
}

// CacheStore holds the five-minute and hourly condensed deltas. The width
// argument selects the table and is either condense.FiveMinutes or
// condense.Hours.
type CacheStore interface {
	// CachedRows returns rows with from <= timestamp < to ordered by timestamp.
	CachedRows(ctx context.Context, sourceID uuid.UUID, width condense.Resolution, from, to time.Time) ([]CacheRow, error)

	// StoreFill upserts the rows of every width in a single transaction;
	// equal keys are overwritten. Either all rows are stored or none.
	StoreFill(ctx context.Context, sourceID uuid.UUID, fill CacheFill) error

	// DeleteRows removes rows with from <= timestamp <= to and returns the count.
	DeleteRows(ctx context.Context, sourceID uuid.UUID, width condense.Resolution, from, to time.Time) (int64, error)

	// HasRows reports whether any row of either width exists for the source.
	HasRows(ctx context.Context, sourceID uuid.UUID) (bool, error)
}
