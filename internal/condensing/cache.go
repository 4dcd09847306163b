// Package condensing keeps the five-minute and hourly condensed deltas of
// accumulating raw sources, filling them on demand and invalidating them
// when raw readings change.
package condensing

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/metrics"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
)

// DefaultBorder is how far outside a missing period raw readings are loaded
// so its endpoints can be interpolated.
const DefaultBorder = time.Minute

// Widths are the bucket widths with a cache table.
var Widths = []condense.Resolution{condense.FiveMinutes, condense.Hours}

// Cache reads and fills condensed deltas.
type Cache struct {
	raw    storage.RawDataStore
	rows   storage.CacheStore
	border time.Duration
}

// NewCache creates a Cache. A non-positive border selects DefaultBorder.
func NewCache(raw storage.RawDataStore, rows storage.CacheStore, border time.Duration) *Cache {
	if border <= 0 {
		border = DefaultBorder
	}
	return &Cache{raw: raw, rows: rows, border: border}
}

func widthDuration(width condense.Resolution) (time.Duration, error) {
	if width != condense.FiveMinutes && width != condense.Hours {
		return 0, fmt.Errorf("no condensed table for %s", width)
	}
	return width.Duration(), nil
}

func requireAligned(t time.Time, width time.Duration) error {
	if !t.Truncate(width).Equal(t) {
		return fmt.Errorf("%s is not aligned to %s: %w", t, width, coreerrors.ErrAlignment)
	}
	return nil
}

// HourlyAccumulated is Accumulated at hour width.
func (c *Cache) HourlyAccumulated(ctx context.Context, src rawdata.Source, from, to time.Time) samples.Stream {
	return c.Accumulated(ctx, src, from, to, condense.Hours)
}

// FiveMinuteAccumulated is Accumulated at five-minute width.
func (c *Cache) FiveMinuteAccumulated(ctx context.Context, src rawdata.Source, from, to time.Time) samples.Stream {
	return c.Accumulated(ctx, src, from, to, condense.FiveMinutes)
}

// Accumulated yields one ranged sample per bucket of [from, to) with the
// increase of the source over that bucket. Cached rows are used where
// present; missing buckets are computed from raw readings but not stored.
// Buckets without covering raw data are absent from the output.
func (c *Cache) Accumulated(ctx context.Context, src rawdata.Source, from, to time.Time, width condense.Resolution) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		start := time.Now()
		rows, err := c.accumulatedRows(ctx, src, from, to, width)
		metrics.ObserveCacheRead(width.String(), metrics.Result(err), time.Since(start))
		if err != nil {
			yield(samples.Ranged{}, err)
			return
		}

		d := width.Duration()
		for _, row := range rows {
			q, err := src.Quantity(row.Value)
			if err != nil {
				yield(samples.Ranged{}, err)
				return
			}
			if !yield(samples.Ranged{From: row.Timestamp, To: row.Timestamp.Add(d), Quantity: q}, nil) {
				return
			}
		}
	}
}

func (c *Cache) accumulatedRows(ctx context.Context, src rawdata.Source, from, to time.Time, width condense.Resolution) ([]storage.CacheRow, error) {
	d, err := widthDuration(width)
	if err != nil {
		return nil, err
	}
	if err := requireAligned(from, d); err != nil {
		return nil, err
	}
	if err := requireAligned(to, d); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("accumulated: to %s before from %s", to, from)
	}

	entries, err := c.rows.CachedRows(ctx, src.ID, width, from, to)
	if err != nil {
		return nil, fmt.Errorf("read %s cache for %s: %w", width, src.ID, err)
	}

	periodCount := int(to.Sub(from) / d)
	if len(entries) > periodCount {
		return nil, fmt.Errorf("%d %s rows for %d buckets of %s: %w", len(entries), width, periodCount, src.ID, coreerrors.ErrCacheCorruption)
	}
	if len(entries) == periodCount {
		return entries, nil
	}

	present := make([]time.Time, len(entries))
	for i, e := range entries {
		present[i] = e.Timestamp
	}
	missing := MissingPeriods(from, to, present, d)
	metrics.AddMissingPeriods(width.String(), len(missing))

	interpolate := src.Interpolation()
	for _, p := range missing {
		data, err := rawDataForCache(ctx, c.raw, src, p.From, p.To, c.border)
		if err != nil {
			return nil, err
		}
		for _, g := range generatePeriodData(data, p.From, p.To, d, interpolate) {
			entries = append(entries, storage.CacheRow{Timestamp: g.timestamp, Value: units.RoundToInt64(g.value)})
		}
	}
	slices.SortFunc(entries, func(a, b storage.CacheRow) int { return a.Timestamp.Compare(b.Timestamp) })
	return entries, nil
}

// Generate computes and stores the five-minute and hourly deltas of
// [from, to) that are not cached yet. Both ends must be clock hours.
func (c *Cache) Generate(ctx context.Context, src rawdata.Source, from, to time.Time) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveCacheGenerate(metrics.Result(err), time.Since(start)) }()

	if err := requireAligned(from, time.Hour); err != nil {
		return err
	}
	if err := requireAligned(to, time.Hour); err != nil {
		return err
	}
	if !units.IsCachable(src.Unit) {
		return fmt.Errorf("generate cache for %s: unit %q is not an accumulation", src.ID, src.Unit)
	}

	missingFive, err := c.missing(ctx, src.ID, condense.FiveMinutes, from, to)
	if err != nil {
		return err
	}
	missingHours, err := c.missing(ctx, src.ID, condense.Hours, from, to)
	if err != nil {
		return err
	}

	hourKeys := make(map[[2]int64]bool, len(missingHours))
	for _, p := range missingHours {
		hourKeys[p.key()] = true
	}
	fiveKeys := make(map[[2]int64]bool, len(missingFive))
	for _, p := range missingFive {
		fiveKeys[p.key()] = true
	}

	interpolate := src.Interpolation()
	var fiveRows, hourRows []storage.CacheRow
	collect := func(dst *[]storage.CacheRow, data []storage.RawPoint, p Period, width time.Duration) {
		for _, g := range generatePeriodData(data, p.From, p.To, width, interpolate) {
			*dst = append(*dst, storage.CacheRow{Timestamp: g.timestamp, Value: units.RoundToInt64(g.value)})
		}
	}

	// Periods missing at both widths share one raw-data scan.
	for _, p := range missingFive {
		data, err := rawDataForCache(ctx, c.raw, src, p.From, p.To, c.border)
		if err != nil {
			return err
		}
		collect(&fiveRows, data, p, 5*time.Minute)
		if hourKeys[p.key()] {
			collect(&hourRows, data, p, time.Hour)
		}
	}
	for _, p := range missingHours {
		if fiveKeys[p.key()] {
			continue
		}
		data, err := rawDataForCache(ctx, c.raw, src, p.From, p.To, c.border)
		if err != nil {
			return err
		}
		collect(&hourRows, data, p, time.Hour)
	}

	fill := storage.CacheFill{condense.FiveMinutes: fiveRows, condense.Hours: hourRows}
	if err := c.rows.StoreFill(ctx, src.ID, fill); err != nil {
		return fmt.Errorf("store cache for %s: %w", src.ID, err)
	}
	metrics.AddRowsGenerated(condense.FiveMinutes.String(), len(fiveRows))
	metrics.AddRowsGenerated(condense.Hours.String(), len(hourRows))

	slog.Debug("[Condense] Generated cache",
		"source_id", src.ID,
		"from", from,
		"to", to,
		"five_minute_rows", len(fiveRows),
		"hour_rows", len(hourRows))
	return nil
}

func (c *Cache) missing(ctx context.Context, sourceID uuid.UUID, width condense.Resolution, from, to time.Time) ([]Period, error) {
	rows, err := c.rows.CachedRows(ctx, sourceID, width, from, to)
	if err != nil {
		return nil, fmt.Errorf("read %s cache for %s: %w", width, sourceID, err)
	}
	present := make([]time.Time, len(rows))
	for i, r := range rows {
		present[i] = r.Timestamp
	}
	return MissingPeriods(from, to, present, width.Duration()), nil
}

// Invalidate deletes cached deltas that may depend on the raw reading at t.
// The tainted range runs from the reading before t to the reading after t
// (t itself where a neighbour is missing); buckets starting up to one width
// before it are included since they may end inside it. Call it after the
// reading has been inserted or deleted.
func (c *Cache) Invalidate(ctx context.Context, sourceID uuid.UUID, t time.Time) (err error) {
	defer func() { metrics.IncInvalidation(metrics.Result(err)) }()

	rangeStart, rangeEnd := t, t
	if prev, ok, err := c.raw.PointBefore(ctx, sourceID, t); err != nil {
		return fmt.Errorf("invalidate %s: %w", sourceID, err)
	} else if ok {
		rangeStart = prev.Timestamp
	}
	if next, ok, err := c.raw.PointAfter(ctx, sourceID, t); err != nil {
		return fmt.Errorf("invalidate %s: %w", sourceID, err)
	} else if ok {
		rangeEnd = next.Timestamp
	}

	if rangeStart.Equal(rangeEnd) {
		// A lone reading cannot have produced any delta.
		has, err := c.rows.HasRows(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("invalidate %s: %w", sourceID, err)
		}
		if has {
			return fmt.Errorf("cache rows exist for %s without two raw readings: %w", sourceID, coreerrors.ErrCacheCorruption)
		}
		return nil
	}

	for _, width := range Widths {
		d := width.Duration()
		deleted, err := c.rows.DeleteRows(ctx, sourceID, width, rangeStart.Add(-d), rangeEnd)
		if err != nil {
			return fmt.Errorf("invalidate %s %s: %w", sourceID, width, err)
		}
		metrics.AddRowsDeleted(width.String(), deleted)
	}

	slog.Debug("[Condense] Invalidated cache",
		"source_id", sourceID,
		"tainted_from", rangeStart,
		"tainted_to", rangeEnd)
	return nil
}
