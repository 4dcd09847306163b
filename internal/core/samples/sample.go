// Package samples holds point and ranged samples of physical quantities and
// the combinators over lazy, timestamp-ordered sample streams.
package samples

import (
	"fmt"
	"time"

	"github.com/gridlab/gridcore/internal/core/units"
)

// Point is a quantity observed at an instant.
type Point struct {
	Timestamp time.Time
	Quantity  units.Quantity
}

// Ranged is a quantity accumulated over, or constant on, the half-open
// interval [From, To). From == To is the degenerate point form.
type Ranged struct {
	From     time.Time
	To       time.Time
	Quantity units.Quantity
}

// NewRanged validates the interval before building the sample.
func NewRanged(from, to time.Time, q units.Quantity) (Ranged, error) {
	if to.Before(from) {
		return Ranged{}, fmt.Errorf("ranged sample: to %s before from %s", to, from)
	}
	return Ranged{From: from, To: to, Quantity: q}, nil
}

// Degenerate reports whether the sample is the point form.
func (r Ranged) Degenerate() bool {
	return r.From.Equal(r.To)
}

// Duration is the length of the sampled interval.
func (r Ranged) Duration() time.Duration {
	return r.To.Sub(r.From)
}

// WithQuantity returns a copy of r carrying q.
func (r Ranged) WithQuantity(q units.Quantity) Ranged {
	r.Quantity = q
	return r
}

// InRange reports whether r lies within [from, to].
func (r Ranged) InRange(from, to time.Time) bool {
	return !r.From.Before(from) && !r.To.After(to)
}

func (r Ranged) String() string {
	return fmt.Sprintf("[%s, %s) %s", r.From.Format(time.RFC3339), r.To.Format(time.RFC3339), r.Quantity)
}

func (p Point) String() string {
	return fmt.Sprintf("%s %s", p.Timestamp.Format(time.RFC3339), p.Quantity)
}
