package samples

import (
	"fmt"
	"iter"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
)

// Pad yields one entry per r-aligned slot of [from, to): the sample starting
// at that slot, or nil when the input has none. Samples not starting on a
// slot are dropped.
func Pad(s Stream, from, to time.Time, r condense.Resolution, loc *time.Location) iter.Seq2[*Ranged, error] {
	return func(yield func(*Ranged, error) bool) {
		p := pull(s)
		defer p.stop()

		head, ok, err := p.get()
		if err != nil {
			yield(nil, err)
			return
		}
		for slot := range condense.Boundaries(from, to, r, loc) {
			for ok && head.From.Before(slot) {
				if head, ok, err = p.get(); err != nil {
					yield(nil, err)
					return
				}
			}
			if ok && head.From.Equal(slot) {
				sample := head
				if !yield(&sample, nil) {
					return
				}
				if head, ok, err = p.get(); err != nil {
					yield(nil, err)
					return
				}
				continue
			}
			if !yield(nil, nil) {
				return
			}
		}
	}
}

// AddAll sums the inputs slot by slot over the r-aligned grid of [from, to).
// A slot where no input has a sample is omitted, not reported as zero.
func AddAll(streams []Stream, from, to time.Time, r condense.Resolution, loc *time.Location) Stream {
	return func(yield func(Ranged, error) bool) {
		pullers := make([]func() (*Ranged, error, bool), len(streams))
		for i, s := range streams {
			next, stop := iter.Pull2(Pad(s, from, to, r, loc))
			defer stop()
			pullers[i] = next
		}

		for slot := range condense.Boundaries(from, to, r, loc) {
			var (
				acc   Ranged
				found bool
			)
			for _, next := range pullers {
				sample, err, ok := next()
				if err != nil {
					yield(Ranged{}, err)
					return
				}
				if !ok || sample == nil {
					continue
				}
				if !found {
					acc, found = *sample, true
					continue
				}
				q, err := acc.Quantity.Add(sample.Quantity)
				if err != nil {
					yield(Ranged{}, fmt.Errorf("add samples at %s: %w", slot, err))
					return
				}
				acc.Quantity = q
			}
			if found && !yield(acc, nil) {
				return
			}
		}
	}
}

// Subtract merges a and b by From. Where both have a sample the result is
// a - b; a sample present in only one input is passed through, negated when
// it comes from b.
func Subtract(a, b Stream) Stream {
	return func(yield func(Ranged, error) bool) {
		pa, pb := pull(a), pull(b)
		defer pa.stop()
		defer pb.stop()

		sa, okA, err := pa.get()
		if err != nil {
			yield(Ranged{}, err)
			return
		}
		sb, okB, err := pb.get()
		if err != nil {
			yield(Ranged{}, err)
			return
		}

		for okA || okB {
			var out Ranged
			switch {
			case okA && okB && sa.From.Equal(sb.From):
				q, err := sa.Quantity.Sub(sb.Quantity)
				if err != nil {
					yield(Ranged{}, err)
					return
				}
				out = sa.WithQuantity(q)
				if sa, okA, err = pa.get(); err == nil {
					sb, okB, err = pb.get()
				}
				if err != nil {
					yield(Ranged{}, err)
					return
				}
			case okA && (!okB || sa.From.Before(sb.From)):
				out = sa
				if sa, okA, err = pa.get(); err != nil {
					yield(Ranged{}, err)
					return
				}
			default:
				out = sb.WithQuantity(sb.Quantity.Neg())
				if sb, okB, err = pb.get(); err != nil {
					yield(Ranged{}, err)
					return
				}
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Multiply pairs samples of a and b with equal From, skipping samples that
// have no partner, and yields their products. It stops when either input
// ends.
func Multiply(a, b Stream) Stream {
	return func(yield func(Ranged, error) bool) {
		pa, pb := pull(a), pull(b)
		defer pa.stop()
		defer pb.stop()

		sa, okA, err := pa.get()
		if err != nil {
			yield(Ranged{}, err)
			return
		}
		sb, okB, err := pb.get()
		if err != nil {
			yield(Ranged{}, err)
			return
		}

		for okA && okB {
			switch {
			case sa.From.Before(sb.From):
				sa, okA, err = pa.get()
			case sb.From.Before(sa.From):
				sb, okB, err = pb.get()
			default:
				if !sa.To.Equal(sb.To) {
					yield(Ranged{}, fmt.Errorf("multiply: misaligned samples %s and %s", sa, sb))
					return
				}
				q, mulErr := sa.Quantity.Mul(sb.Quantity)
				if mulErr != nil {
					yield(Ranged{}, mulErr)
					return
				}
				if !yield(sa.WithQuantity(q), nil) {
					return
				}
				if sa, okA, err = pa.get(); err == nil {
					sb, okB, err = pb.get()
				}
			}
			if err != nil {
				yield(Ranged{}, err)
				return
			}
		}
	}
}

// AggregateSum groups consecutive samples by the r-bucket containing their
// From and yields one sample per bucket with the summed quantity. Day and
// coarser buckets are computed in loc.
func AggregateSum(s Stream, r condense.Resolution, loc *time.Location) Stream {
	return func(yield func(Ranged, error) bool) {
		var (
			acc     Ranged
			pending bool
		)
		for sample, err := range s {
			if err != nil {
				yield(Ranged{}, err)
				return
			}
			key := condense.Floor(sample.From, r, loc)
			if pending && acc.From.Equal(key) {
				q, err := acc.Quantity.Add(sample.Quantity)
				if err != nil {
					yield(Ranged{}, fmt.Errorf("aggregate at %s: %w", key, err))
					return
				}
				acc.Quantity = q
				continue
			}
			if pending && !yield(acc, nil) {
				return
			}
			acc = Ranged{From: key, To: condense.Add(key, r, loc, 1), Quantity: sample.Quantity}
			pending = true
		}
		if pending {
			yield(acc, nil)
		}
	}
}
