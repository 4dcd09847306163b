package condensing

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/rawdata"
)

// Period is a half-open run [From, To) of absent buckets.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) key() [2]int64 {
	return [2]int64{p.From.UnixNano(), p.To.UnixNano()}
}

// delta is one condensed bucket before rounding.
type delta struct {
	timestamp time.Time
	value     *big.Rat
}

// MissingPeriods returns the maximal runs within [from, to) not covered by
// present, where each present timestamp stands for [t, t+width). present
// must be sorted.
func MissingPeriods(from, to time.Time, present []time.Time, width time.Duration) []Period {
	if len(present) == 0 {
		if from.Before(to) {
			return []Period{{From: from, To: to}}
		}
		return nil
	}

	var missing []Period
	if from.Before(present[0]) {
		missing = append(missing, Period{From: from, To: present[0]})
	}
	for i := 0; i+1 < len(present); i++ {
		end := present[i].Add(width)
		if end.Before(present[i+1]) {
			missing = append(missing, Period{From: end, To: present[i+1]})
		}
	}
	if last := present[len(present)-1].Add(width); last.Before(to) {
		missing = append(missing, Period{From: last, To: to})
	}
	return missing
}

// rawDataForCache loads the readings needed to interpolate [from, to]: the
// points within border of the range, extended by the nearest reading on
// either side when the range edges are not covered. Returns nil when no
// point of [from, to] can be interpolated.
func rawDataForCache(ctx context.Context, store storage.RawDataStore, src rawdata.Source, from, to time.Time, border time.Duration) ([]storage.RawPoint, error) {
	data, err := store.PointsInRange(ctx, src.ID, from.Add(-border), to.Add(border))
	if err != nil {
		return nil, fmt.Errorf("load raw data for cache: %w", err)
	}

	if len(data) == 0 || data[len(data)-1].Timestamp.Before(to) {
		after, ok, err := store.PointAfter(ctx, src.ID, to)
		if err != nil {
			return nil, fmt.Errorf("load raw data after %s: %w", to, err)
		}
		if ok {
			data = append(data, after)
		}
	}
	if len(data) > 0 && data[0].Timestamp.After(from) {
		before, ok, err := store.PointBefore(ctx, src.ID, from)
		if err != nil {
			return nil, fmt.Errorf("load raw data before %s: %w", from, err)
		}
		if ok {
			data = append([]storage.RawPoint{before}, data...)
		}
	}

	if len(data) == 0 || data[0].Timestamp.After(to) || data[len(data)-1].Timestamp.Before(from) {
		return nil, nil
	}
	return data, nil
}

// adjustFromTo shrinks [from, to] to the largest width-aligned range that
// lies within the time span of data. ok is false if no aligned point exists.
func adjustFromTo(data []storage.RawPoint, from, to time.Time, width time.Duration) (time.Time, time.Time, bool) {
	if len(data) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first := data[0].Timestamp
	last := data[len(data)-1].Timestamp

	if from.Before(first) {
		from = first.Truncate(width)
		if from.Before(first) {
			from = from.Add(width)
		}
	}
	if to.After(last) {
		to = last.Truncate(width)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

// periodAligned interpolates data at every width step from from to to
// inclusive. data must start at or before from and end at or after to.
func periodAligned(data []storage.RawPoint, from, to time.Time, width time.Duration, interpolate rawdata.InterpolateFunc) []delta {
	var out []delta
	next := from
	for i := 0; i+1 < len(data); i++ {
		a, b := data[i], data[i+1]
		for !a.Timestamp.After(next) && next.Before(b.Timestamp) {
			out = append(out, delta{timestamp: next, value: interpolate(next, a, b)})
			next = next.Add(width)
			if next.After(to) {
				return out
			}
		}
	}
	// The last reading sits exactly on to.
	last := data[len(data)-1]
	if next.Equal(last.Timestamp) {
		out = append(out, delta{timestamp: next, value: new(big.Rat).SetInt64(last.Value)})
	}
	return out
}

// generatePeriodData turns readings into per-bucket increases for the
// buckets of [from, to) that the readings cover.
func generatePeriodData(data []storage.RawPoint, from, to time.Time, width time.Duration, interpolate rawdata.InterpolateFunc) []delta {
	from, to, ok := adjustFromTo(data, from, to, width)
	if !ok {
		return nil
	}
	aligned := periodAligned(data, from, to, width, interpolate)
	if len(aligned) < 2 {
		return nil
	}
	out := make([]delta, 0, len(aligned)-1)
	for i := 0; i+1 < len(aligned); i++ {
		out = append(out, delta{
			timestamp: aligned[i].timestamp,
			value:     new(big.Rat).Sub(aligned[i+1].value, aligned[i].value),
		})
	}
	return out
}
