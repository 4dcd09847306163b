// Package degreedays computes heating degree days from temperature readings
// and the quantities derived from them: degree-day corrected consumption and
// the mean cool-down temperature of district heating water.
package degreedays

import (
	"fmt"
	"math/big"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	coreerrors "github.com/gridlab/gridcore/internal/core/errors"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
)

// Unit is the unit degree days are reported in.
const Unit = "kelvin*day"

var (
	// Base is 17 °C; days with a mean temperature at or above it count zero.
	Base = units.MustNew(big.NewRat(29015, 100), "kelvin")

	// VolumetricThermalCapacityWater turns a volume of district heating
	// water into energy per kelvin.
	VolumetricThermalCapacityWater = units.MustNew(big.NewRat(860, 1), "kelvin*meter^3*megawatt^-1*hour^-1")
)

// Heating yields one sample per day of [from, to) in loc holding
// max(0, ∫(Base - T) dt) over the day. Temperatures are interpolated
// linearly between readings; a day not bracketed by readings on both sides
// is left out. points must be ordered and should include the nearest
// reading on either side of the range.
func Heating(points samples.PointStream, from, to time.Time, loc *time.Location) samples.Stream {
	return func(yield func(samples.Ranged, error) bool) {
		if !condense.IsAligned(from, condense.Days, loc) || !condense.IsAligned(to, condense.Days, loc) {
			yield(samples.Ranged{}, fmt.Errorf("heating degree days for %s - %s: only defined for whole days: %w",
				from, to, coreerrors.ErrUndefinedSamples))
			return
		}

		temps, err := samples.CollectPoints(points)
		if err != nil {
			yield(samples.Ranged{}, err)
			return
		}
		if len(temps) == 0 {
			return
		}

		zero := units.MustNew(new(big.Rat), "kelvin*second")
		for dayBegin, dayEnd := range condense.Buckets(from, to, condense.Days, loc) {
			if temps[0].Timestamp.After(dayBegin) || temps[len(temps)-1].Timestamp.Before(dayEnd) {
				continue
			}
			total, err := dayIntegral(temps, dayBegin, dayEnd)
			if err != nil {
				yield(samples.Ranged{}, err)
				return
			}
			if total.Sign() < 0 {
				total = zero
			}
			if !yield(samples.Ranged{From: dayBegin, To: dayEnd, Quantity: total}, nil) {
				return
			}
		}
	}
}

// dayIntegral integrates Base - T over [begin, end] with the trapezoid rule,
// inserting interpolated knots at both ends.
func dayIntegral(temps []samples.Point, begin, end time.Time) (units.Quantity, error) {
	knots := make([]samples.Point, 0, 8)
	for i := 0; i+1 < len(temps); i++ {
		a, b := temps[i], temps[i+1]
		if !b.Timestamp.After(begin) || a.Timestamp.After(end) {
			continue
		}
		if len(knots) == 0 {
			q, err := interpolate(begin, a, b)
			if err != nil {
				return units.Quantity{}, err
			}
			knots = append(knots, samples.Point{Timestamp: begin, Quantity: q})
		}
		if b.Timestamp.Before(end) {
			knots = append(knots, b)
			continue
		}
		q, err := interpolate(end, a, b)
		if err != nil {
			return units.Quantity{}, err
		}
		knots = append(knots, samples.Point{Timestamp: end, Quantity: q})
		break
	}

	total := units.MustNew(new(big.Rat), "kelvin*second")
	for i := 0; i+1 < len(knots); i++ {
		a, b := knots[i], knots[i+1]
		sum, err := a.Quantity.Add(b.Quantity)
		if err != nil {
			return units.Quantity{}, err
		}
		mean := sum.Scale(big.NewRat(1, 2))
		excess, err := Base.Sub(mean)
		if err != nil {
			return units.Quantity{}, fmt.Errorf("degree days: %w", err)
		}
		seconds := units.MustNew(big.NewRat(int64(b.Timestamp.Sub(a.Timestamp)/time.Second), 1), "second")
		step, err := excess.Mul(seconds)
		if err != nil {
			return units.Quantity{}, err
		}
		if total, err = total.Add(step); err != nil {
			return units.Quantity{}, err
		}
	}
	return total, nil
}

func interpolate(t time.Time, a, b samples.Point) (units.Quantity, error) {
	span := int64(b.Timestamp.Sub(a.Timestamp) / time.Second)
	if span == 0 || t.Equal(a.Timestamp) {
		return a.Quantity, nil
	}
	diff, err := b.Quantity.Sub(a.Quantity)
	if err != nil {
		return units.Quantity{}, err
	}
	elapsed := int64(t.Sub(a.Timestamp) / time.Second)
	return a.Quantity.Add(diff.Scale(big.NewRat(elapsed, span)))
}

// Correct normalises a consumption to standard degree days:
// consumption × standard / actual. When either degree-day total is zero the
// consumption is returned unchanged.
func Correct(consumption, standard, actual units.Quantity) (units.Quantity, error) {
	if standard.IsZero() || actual.IsZero() {
		return consumption, nil
	}
	scaled, err := consumption.Mul(standard)
	if err != nil {
		return units.Quantity{}, err
	}
	return scaled.Div(actual)
}

// MeanCoolDown is the mean temperature drop of the water volume that
// delivered energy: energy / (volume / VolumetricThermalCapacityWater).
func MeanCoolDown(energy, volume units.Quantity) (units.Quantity, error) {
	if !energy.Compatible("joule") {
		return units.Quantity{}, fmt.Errorf("mean cool-down: energy %s: %w", energy, coreerrors.ErrIncompatibleUnits)
	}
	if !volume.Compatible("meter^3") {
		return units.Quantity{}, fmt.Errorf("mean cool-down: volume %s: %w", volume, coreerrors.ErrIncompatibleUnits)
	}
	perKelvin, err := volume.Div(VolumetricThermalCapacityWater)
	if err != nil {
		return units.Quantity{}, err
	}
	return energy.Div(perKelvin)
}
