// Package projection serves the read side over HTTP: condensed source
// deltas, consumption figures, energy performance indicators and offline
// checks, all evaluated on demand against the raw store and the cache.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	v1 "github.com/gridlab/gridcore/internal/api/v1"
	"github.com/gridlab/gridcore/internal/condensing"
	"github.com/gridlab/gridcore/internal/consumptions"
	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/samples"
	"github.com/gridlab/gridcore/internal/core/units"
	"github.com/gridlab/gridcore/internal/datasequences"
	"github.com/gridlab/gridcore/internal/energyperformances"
	"github.com/gridlab/gridcore/internal/offlinetolerance"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
)

const (
	defaultWidth      = condense.Hours
	defaultResolution = condense.Days
	// maxSamples bounds one series response.
	maxSamples = 100_000
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid query")

// Catalog resolves configured names. *catalog.Catalog implements it.
type Catalog interface {
	Source(id uuid.UUID) (rawdata.Source, error)
	Consumption(name string) (consumptions.Reporter, error)
	Performance(name string) (energyperformances.Performance, error)
	OfflineTolerance(sequence string) (offlinetolerance.Checker, error)
}

// Cache reads and fills condensed deltas. *condensing.Cache implements it.
type Cache interface {
	datasequences.Accumulator
	Generate(ctx context.Context, src rawdata.Source, from, to time.Time) error
}

// Service implements the projection/query layer.
type Service struct {
	catalog Catalog
	cache   Cache
	env     datasequences.Env
}

// NewService creates a new projection service. env.Cache is used by every
// evaluation; cache serves the source endpoints.
func NewService(catalog Catalog, cache Cache, env datasequences.Env) *Service {
	return &Service{catalog: catalog, cache: cache, env: env}
}

func validateRange(from, to time.Time) error {
	if !from.Before(to) {
		return fmt.Errorf("%w: from %s must be before to %s", ErrInvalidQuery, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return nil
}

func checkSize(from, to time.Time, r condense.Resolution) error {
	if r.Fixed() && to.Sub(from)/r.Duration() > maxSamples {
		return fmt.Errorf("%w: more than %d samples at %s", ErrInvalidQuery, maxSamples, r)
	}
	return nil
}

func (s *Service) source(id string) (rawdata.Source, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return rawdata.Source{}, fmt.Errorf("%w: source id: %w", ErrInvalidQuery, err)
	}
	return s.catalog.Source(parsed)
}

// Accumulated returns the condensed deltas of a source.
func (s *Service) Accumulated(ctx context.Context, q AccumulatedQuery) (v1.SeriesResponse, error) {
	src, err := s.source(q.SourceID)
	if err != nil {
		return v1.SeriesResponse{}, err
	}
	if err := validateRange(q.From, q.To); err != nil {
		return v1.SeriesResponse{}, err
	}
	width := defaultWidth
	if q.Width != "" {
		if width, err = condense.ParseResolution(q.Width); err != nil {
			return v1.SeriesResponse{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
	}
	if !slices.Contains(condensing.Widths, width) {
		return v1.SeriesResponse{}, fmt.Errorf("%w: no condensed deltas at %s", ErrInvalidQuery, width)
	}
	if err := checkSize(q.From, q.To, width); err != nil {
		return v1.SeriesResponse{}, err
	}

	rs, err := samples.Collect(s.cache.Accumulated(ctx, src, q.From, q.To, width))
	if err != nil {
		return v1.SeriesResponse{}, err
	}
	values, total, err := convertToValues(rs, src.Unit)
	if err != nil {
		return v1.SeriesResponse{}, err
	}
	return v1.SeriesResponse{
		Name:       src.Name,
		Unit:       src.Unit,
		Display:    units.DisplayName(src.Unit),
		Resolution: width.String(),
		From:       q.From,
		To:         q.To,
		Values:     values,
		Total:      total,
	}, nil
}

// FillCache generates the condensed deltas of a source over clock-hour
// aligned [from, to).
func (s *Service) FillCache(ctx context.Context, sourceID string, req v1.CacheRequest) error {
	src, err := s.source(sourceID)
	if err != nil {
		return err
	}
	if err := validateRange(req.From, req.To); err != nil {
		return err
	}
	slog.Info("[Projection] Filling cache", "source_id", src.ID, "from", req.From, "to", req.To)
	return s.cache.Generate(ctx, src, req.From, req.To)
}

// Consumption returns one figure of a main consumption or group, either as
// a series at a resolution or, for granularity "total", as one sum.
func (s *Service) Consumption(ctx context.Context, q ConsumptionQuery) (v1.SeriesResponse, error) {
	r, err := s.catalog.Consumption(q.Name)
	if err != nil {
		return v1.SeriesResponse{}, err
	}
	if err := validateRange(q.From, q.To); err != nil {
		return v1.SeriesResponse{}, err
	}
	series := consumptions.Series(q.Series)
	unit := q.Unit
	if unit == "" {
		if unit, err = consumptions.DisplayUnit(r, series, s.env.Currency); err != nil {
			return v1.SeriesResponse{}, asInvalid(err)
		}
	}

	resp := v1.SeriesResponse{
		Name:    q.Name,
		Series:  q.Series,
		Unit:    unit,
		Display: units.DisplayName(unit),
		From:    q.From,
		To:      q.To,
		Values:  []v1.Sample{},
	}

	if q.Resolution == granularityTotal {
		resp.Resolution = granularityTotal
		if resp.Total, err = s.rollupTotal(ctx, r, series, q.From, q.To, unit); err != nil {
			return v1.SeriesResponse{}, asInvalid(err)
		}
		return resp, nil
	}

	res := defaultResolution
	if q.Resolution != "" {
		if res, err = condense.ParseResolution(q.Resolution); err != nil {
			return v1.SeriesResponse{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
	}
	if err := checkSize(q.From, q.To, res); err != nil {
		return v1.SeriesResponse{}, err
	}
	resp.Resolution = res.String()

	stream, err := consumptions.SeriesOf(ctx, s.env, r, series, q.From, q.To, res)
	if err != nil {
		return v1.SeriesResponse{}, asInvalid(err)
	}
	rs, err := samples.Collect(stream)
	if err != nil {
		return v1.SeriesResponse{}, err
	}
	if resp.Values, resp.Total, err = convertToValues(rs, unit); err != nil {
		return v1.SeriesResponse{}, err
	}
	return resp, nil
}

// Performance computes an energy performance indicator.
func (s *Service) Performance(ctx context.Context, q PerformanceQuery) (v1.PerformanceResponse, error) {
	p, err := s.catalog.Performance(q.Name)
	if err != nil {
		return v1.PerformanceResponse{}, err
	}
	if err := validateRange(q.From, q.To); err != nil {
		return v1.PerformanceResponse{}, err
	}

	id, name := p.Info()
	resp := v1.PerformanceResponse{Name: name, ID: id.String(), From: q.From, To: q.To}
	value, ok, err := p.Compute(ctx, s.env, q.From, q.To)
	if err != nil {
		return v1.PerformanceResponse{}, err
	}
	if !ok {
		return resp, nil
	}
	rendered, err := v1.NewQuantity(value, p.Unit())
	if err != nil {
		return v1.PerformanceResponse{}, err
	}
	resp.Value = &rendered
	return resp, nil
}

// Offline lists the periods the named sequence was offline for longer than
// its tolerance.
func (s *Service) Offline(ctx context.Context, q OfflineQuery) (v1.OfflineResponse, error) {
	checker, err := s.catalog.OfflineTolerance(q.Name)
	if err != nil {
		return v1.OfflineResponse{}, err
	}
	gaps, err := checker.Check(ctx, s.env, q.FromDate, q.ToDate)
	if err != nil {
		return v1.OfflineResponse{}, asInvalid(err)
	}

	resp := v1.OfflineResponse{
		Sequence:      q.Name,
		Hours:         checker.Hours,
		FromDate:      q.FromDate.Format(time.DateOnly),
		ToDate:        q.ToDate.Format(time.DateOnly),
		Invalidations: make([]v1.OfflinePeriod, 0, len(gaps)),
	}
	for _, g := range gaps {
		resp.Invalidations = append(resp.Invalidations, v1.OfflinePeriod{From: g.From, To: g.To})
	}
	return resp, nil
}

// asInvalid marks the errors a client can fix by changing the request.
func asInvalid(err error) error {
	switch {
	case errors.Is(err, consumptions.ErrUnknownSeries),
		errors.Is(err, offlinetolerance.ErrInvalidDates):
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return err
}
