// Package rawdata is the read/write view of raw meter readings: integer
// values per source, interpreted in the source's base unit.
package rawdata

import (
	"context"
	"fmt"
	"math/big"
	"time"

	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/google/uuid"
)

// Source is a raw data source. Its readings are stored as integers in Unit,
// which must be one of the registered base units.
type Source struct {
	ID         uuid.UUID
	Name       string
	Unit       string
	HardwareID string
}

// Validate checks the source unit.
func (s Source) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("source %q: missing id", s.Name)
	}
	if !units.IsBaseUnit(s.Unit) {
		return fmt.Errorf("source %q: %q is not a base unit: %w", s.Name, s.Unit, coreerrors.ErrUnitParse)
	}
	return nil
}

// InterpolateFunc returns the value at t, where a.Timestamp <= t < b.Timestamp.
type InterpolateFunc func(t time.Time, a, b storage.RawPoint) *big.Rat

// Linear interpolates between a and b. Sub-second parts of the offsets are
// dropped, so the result is a ratio of whole seconds.
func Linear(t time.Time, a, b storage.RawPoint) *big.Rat {
	elapsed := int64(t.Sub(a.Timestamp) / time.Second)
	span := int64(b.Timestamp.Sub(a.Timestamp) / time.Second)
	result := new(big.Rat).SetInt64(a.Value)
	if span == 0 {
		return result
	}
	delta := new(big.Rat).SetInt64(b.Value - a.Value)
	delta.Mul(delta, big.NewRat(elapsed, span))
	return result.Add(result, delta)
}

// Impulse is step interpolation: pulses are discrete, so the count holds
// until the next reading.
func Impulse(_ time.Time, a, _ storage.RawPoint) *big.Rat {
	return new(big.Rat).SetInt64(a.Value)
}

// Interpolation selects the interpolation for the source unit.
func (s Source) Interpolation() InterpolateFunc {
	if units.IsImpulse(s.Unit) {
		return Impulse
	}
	return Linear
}

// ValidateTimestamp enforces the grid of piecewise-constant sources: tariff
// readings on clock hours, CO₂ readings on five-minute multiples.
func (s Source) ValidateTimestamp(t time.Time) error {
	if units.IsTariffUnit(s.Unit) && !isClockHour(t) {
		return fmt.Errorf("tariff source %s: %s must be clock hour: %w", s.ID, t, coreerrors.ErrAlignment)
	}
	if units.IsCO2ConversionUnit(s.Unit) && !isFiveMinuteMultiple(t) {
		return fmt.Errorf("co2 source %s: %s must be a five-minute multiple: %w", s.ID, t, coreerrors.ErrAlignment)
	}
	return nil
}

func isClockHour(t time.Time) bool {
	return t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func isFiveMinuteMultiple(t time.Time) bool {
	return t.Minute()%5 == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// Quantity converts a stored integer into a quantity of the source unit.
func (s Source) Quantity(value int64) (units.Quantity, error) {
	return units.FromInt(value, s.Unit)
}

// Sequence yields the raw readings in [from, to] as point samples.
func Sequence(ctx context.Context, store storage.RawDataStore, src Source, from, to time.Time) samples.PointStream {
	return func(yield func(samples.Point, error) bool) {
		points, err := store.PointsInRange(ctx, src.ID, from, to)
		if err != nil {
			yield(samples.Point{}, fmt.Errorf("raw sequence %s: %w", src.ID, err))
			return
		}
		for _, p := range points {
			q, err := src.Quantity(p.Value)
			if err != nil {
				yield(samples.Point{}, err)
				return
			}
			if !yield(samples.Point{Timestamp: p.Timestamp, Quantity: q}, nil) {
				return
			}
		}
	}
}

// NextValidDate returns the first date in loc after date holding a reading.
func NextValidDate(ctx context.Context, store storage.RawDataStore, src Source, date time.Time, loc *time.Location) (time.Time, bool, error) {
	endOfDay := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)
	p, ok, err := store.PointAfter(ctx, src.ID, endOfDay)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return dateOf(p.Timestamp, loc), true, nil
}

// PreviousValidDate returns the last date in loc before date holding a reading.
func PreviousValidDate(ctx context.Context, store storage.RawDataStore, src Source, date time.Time, loc *time.Location) (time.Time, bool, error) {
	beginningOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	p, ok, err := store.PointBefore(ctx, src.ID, beginningOfDay)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return dateOf(p.Timestamp, loc), true, nil
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
