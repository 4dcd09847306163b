package samples

import (
	"fmt"

	"github.com/gridlab/gridcore/internal/core/units"
)

// Quotient divides numerator by denominator slot by slot.
//
// A zero denominator slot with a numerator present carries the numerator
// forward to the next non-zero denominator slot. Every carried slot, the
// zero one included, is then yielded with the sum of the carried numerators
// divided by that denominator. Carry never crosses the end of either input:
// numerators still carried when the denominator runs out are dropped.
func Quotient(numerator, denominator Stream) Stream {
	return func(yield func(Ranged, error) bool) {
		pn, pd := pull(numerator), pull(denominator)
		defer pn.stop()
		defer pd.stop()

		fail := func(err error) { yield(Ranged{}, err) }

		for {
			n, ok, err := pn.get()
			if err != nil || !ok {
				if err != nil {
					fail(err)
				}
				return
			}
			d, ok, err := pd.get()
			if err != nil || !ok {
				if err != nil {
					fail(err)
				}
				return
			}

			// Missing entries on either side are skipped in the other.
			for !n.From.Equal(d.From) {
				if n.From.Before(d.From) {
					n, ok, err = pn.get()
				} else {
					d, ok, err = pd.get()
				}
				if err != nil {
					fail(err)
					return
				}
				if !ok {
					return
				}
			}
			if !n.To.Equal(d.To) {
				fail(fmt.Errorf("quotient: misaligned samples %s and %s", n, d))
				return
			}

			if !d.Quantity.IsZero() {
				q, err := n.Quantity.Div(d.Quantity)
				if err != nil {
					fail(err)
					return
				}
				if !yield(n.WithQuantity(q), nil) {
					return
				}
				continue
			}

			for d.Quantity.IsZero() {
				if d, ok, err = pd.get(); err != nil || !ok {
					if err != nil {
						fail(err)
					}
					return
				}
			}
			carried := []Ranged{n}
			for n.From.Before(d.From) {
				if n, ok, err = pn.get(); err != nil || !ok {
					if err != nil {
						fail(err)
					}
					return
				}
				if !n.From.After(d.From) {
					carried = append(carried, n)
				}
			}

			total := units.ZeroOf(carried[0].Quantity)
			for _, c := range carried {
				if total, err = total.Add(c.Quantity); err != nil {
					fail(err)
					return
				}
			}
			q, err := total.Div(d.Quantity)
			if err != nil {
				fail(err)
				return
			}
			for _, c := range carried {
				if !yield(c.WithQuantity(q), nil) {
					return
				}
			}
		}
	}
}
