package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxPointsPerRequest bounds one ingestion batch.
const MaxPointsPerRequest = 10000

// Point is one reading of a raw source as posted by a client.
type Point struct {
	// Timestamp is when the reading was taken. It must be aligned to the
	// source's reading interval when the source has one.
	Timestamp time.Time `json:"timestamp"`

	// Value is the reading. It must convert to a whole number of the
	// source's base unit.
	Value decimal.Decimal `json:"value"`

	// Unit of Value. Empty means the source's base unit.
	Unit string `json:"unit,omitempty"`
}

// Validate ensures the point carries a timestamp.
func (p *Point) Validate() error {
	if p.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// PointsRequest is the body of a batch ingestion.
type PointsRequest struct {
	Points []Point `json:"points"`
}

// Validate checks the batch size, every point, and that no timestamp is
// posted twice.
func (r *PointsRequest) Validate() error {
	if len(r.Points) == 0 {
		return fmt.Errorf("points is required")
	}
	if len(r.Points) > MaxPointsPerRequest {
		return fmt.Errorf("at most %d points per request, got %d", MaxPointsPerRequest, len(r.Points))
	}

	seen := make(map[int64]struct{}, len(r.Points))
	for i := range r.Points {
		if err := r.Points[i].Validate(); err != nil {
			return fmt.Errorf("points[%d]: %w", i, err)
		}
		key := r.Points[i].Timestamp.UnixNano()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("points[%d]: timestamp %s posted twice", i, r.Points[i].Timestamp.Format(time.RFC3339))
		}
		seen[key] = struct{}{}
	}
	return nil
}

// PointsResponse reports the outcome of a batch ingestion.
type PointsResponse struct {
	Status     string      `json:"status"`
	Inserted   int         `json:"inserted"`
	Duplicates []time.Time `json:"duplicates,omitempty"`
}

// PartialWrite is the error detail of a batch that failed part-way. Points
// in Accepted are stored; points after FailedAt were not attempted.
// StaleCache lists stored points whose cache invalidation failed.
type PartialWrite struct {
	Inserted   int         `json:"inserted"`
	Accepted   []time.Time `json:"accepted,omitempty"`
	Duplicates []time.Time `json:"duplicates,omitempty"`
	FailedAt   *time.Time  `json:"failed_at,omitempty"`
	StaleCache []time.Time `json:"stale_cache,omitempty"`
}
