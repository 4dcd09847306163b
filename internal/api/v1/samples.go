package v1

import (
	"time"

	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/shopspring/decimal"
)

// DecimalPlaces is the precision of every quantity in a response.
const DecimalPlaces = 6

// Sample is one ranged sample rendered in the response unit.
type Sample struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Value decimal.Decimal `json:"value"`
}

// Quantity is a quantity rendered in a unit.
type Quantity struct {
	Value   decimal.Decimal `json:"value"`
	Unit    string          `json:"unit"`
	Display string          `json:"display,omitempty"`
}

// NewQuantity renders q in unit.
func NewQuantity(q units.Quantity, unit string) (Quantity, error) {
	v, err := q.Decimal(unit, DecimalPlaces)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: v, Unit: unit, Display: units.DisplayName(unit)}, nil
}

// NewSamples renders rs in unit.
func NewSamples(rs []samples.Ranged, unit string) ([]Sample, error) {
	out := make([]Sample, 0, len(rs))
	for _, r := range rs {
		v, err := r.Quantity.Decimal(unit, DecimalPlaces)
		if err != nil {
			return nil, err
		}
		out = append(out, Sample{From: r.From, To: r.To, Value: v})
	}
	return out, nil
}

// SeriesResponse is a sample sequence, optionally with its total.
type SeriesResponse struct {
	Name       string    `json:"name"`
	Series     string    `json:"series,omitempty"`
	Unit       string    `json:"unit"`
	Display    string    `json:"display,omitempty"`
	Resolution string    `json:"resolution"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
	Values     []Sample  `json:"values"`
	Total      *Quantity `json:"total,omitempty"`
}

// PerformanceResponse is an energy performance indicator over a period.
// Value is nil when the indicator is undefined for the period.
type PerformanceResponse struct {
	Name  string    `json:"name"`
	ID    string    `json:"id"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Value *Quantity `json:"value"`
}

// OfflineResponse lists the periods a sequence was offline for longer
// than its tolerance.
type OfflineResponse struct {
	Sequence      string          `json:"sequence"`
	Hours         int             `json:"hours"`
	FromDate      string          `json:"from_date"`
	ToDate        string          `json:"to_date"`
	Invalidations []OfflinePeriod `json:"invalidations"`
}

// OfflinePeriod is one gap in a sequence's readings.
type OfflinePeriod struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// CacheRequest asks for the condense cache of a source to be filled.
type CacheRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
