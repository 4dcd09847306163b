package samples

import (
	"iter"
	"time"

	"github.com/gridlab/gridcore/internal/core/units"
)

// Stream is a lazy, pull-driven sequence of ranged samples ordered by From
// and non-overlapping. A non-nil error ends the stream.
type Stream = iter.Seq2[Ranged, error]

// PointStream is a lazy sequence of point samples ordered by timestamp.
type PointStream = iter.Seq2[Point, error]

// Empty is the stream with no samples.
func Empty() Stream {
	return func(func(Ranged, error) bool) {}
}

// Failed is a stream that yields only err.
func Failed(err error) Stream {
	return func(yield func(Ranged, error) bool) {
		yield(Ranged{}, err)
	}
}

// FromSlice streams the given samples.
func FromSlice(samples []Ranged) Stream {
	return func(yield func(Ranged, error) bool) {
		for _, s := range samples {
			if !yield(s, nil) {
				return
			}
		}
	}
}

// PointsFromSlice streams the given point samples.
func PointsFromSlice(points []Point) PointStream {
	return func(yield func(Point, error) bool) {
		for _, p := range points {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// Collect drains s into a slice.
func Collect(s Stream) ([]Ranged, error) {
	var out []Ranged
	for sample, err := range s {
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	return out, nil
}

// CollectPoints drains a point stream into a slice.
func CollectPoints(s PointStream) ([]Point, error) {
	var out []Point
	for p, err := range s {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Sum adds the quantities of all samples. ok is false when the stream was
// empty, which callers report as "no value" rather than zero.
func Sum(s Stream) (total units.Quantity, ok bool, err error) {
	for sample, err := range s {
		if err != nil {
			return units.Quantity{}, false, err
		}
		if !ok {
			total, ok = sample.Quantity, true
			continue
		}
		if total, err = total.Add(sample.Quantity); err != nil {
			return units.Quantity{}, false, err
		}
	}
	return total, ok, nil
}

// Concat streams each input in turn.
func Concat(streams ...Stream) Stream {
	return func(yield func(Ranged, error) bool) {
		for _, s := range streams {
			for sample, err := range s {
				if !yield(sample, err) || err != nil {
					return
				}
			}
		}
	}
}

// Map applies fn to every sample.
func Map(s Stream, fn func(Ranged) (Ranged, error)) Stream {
	return func(yield func(Ranged, error) bool) {
		for sample, err := range s {
			if err != nil {
				yield(Ranged{}, err)
				return
			}
			out, err := fn(sample)
			if !yield(out, err) || err != nil {
				return
			}
		}
	}
}

// Within keeps samples lying inside [from, to].
func Within(s Stream, from, to time.Time) Stream {
	return func(yield func(Ranged, error) bool) {
		for sample, err := range s {
			if err != nil {
				yield(Ranged{}, err)
				return
			}
			if !sample.InRange(from, to) {
				continue
			}
			if !yield(sample, nil) {
				return
			}
		}
	}
}

// ScaleBy multiplies every sample by factor.
func ScaleBy(s Stream, factor units.Quantity) Stream {
	return Map(s, func(r Ranged) (Ranged, error) {
		q, err := r.Quantity.Mul(factor)
		if err != nil {
			return Ranged{}, err
		}
		return r.WithQuantity(q), nil
	})
}

// puller adapts a Stream to explicit next calls for the combinators that
// advance several inputs independently.
type puller struct {
	next func() (Ranged, error, bool)
	stop func()
}

func pull(s Stream) *puller {
	next, stop := iter.Pull2(s)
	return &puller{next: next, stop: stop}
}

// get returns the next sample; ok is false at the end of the stream.
func (p *puller) get() (Ranged, bool, error) {
	sample, err, ok := p.next()
	if !ok {
		return Ranged{}, false, nil
	}
	if err != nil {
		return Ranged{}, false, err
	}
	return sample, true, nil
}
