package projection

import (
	"context"
	"fmt"
	"time"

	v1 "github.com/gridlab/gridcore/internal/api/v1"
	"github.com/gridlab/gridcore/internal/consumptions"
	"github.com/gridlab/gridcore/internal/core/samples"
)

// rollupTotal sums a figure over the whole range. A range nothing
// contributed to has no total.
func (s *Service) rollupTotal(ctx context.Context, r consumptions.Reporter, series consumptions.Series, from, to time.Time, unit string) (*v1.Quantity, error) {
	q, ok, err := consumptions.SumOf(ctx, s.env, r, series, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	total, err := v1.NewQuantity(q, unit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return &total, nil
}

// convertToValues renders the samples in unit together with their sum.
func convertToValues(rs []samples.Ranged, unit string) ([]v1.Sample, *v1.Quantity, error) {
	values, err := v1.NewSamples(rs, unit)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	sum, ok, err := samples.Sum(samples.FromSlice(rs))
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return values, nil, nil
	}
	total, err := v1.NewQuantity(sum, unit)
	if err != nil {
		return nil, nil, err
	}
	return values, &total, nil
}
