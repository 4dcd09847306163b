package rawdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/metrics"
	"github.com/google/uuid"
)

// ErrCacheInvalidation marks a write that reached raw storage but whose
// cache invalidation failed.
var ErrCacheInvalidation = errors.New("cache invalidation failed")

// Invalidator drops condensed rows that may have been derived from the
// neighbourhood of a changed raw point.
type Invalidator interface {
	Invalidate(ctx context.Context, sourceID uuid.UUID, t time.Time) error
}

// Service writes raw points and keeps the condense cache consistent.
type Service struct {
	store       storage.RawDataStore
	invalidator Invalidator
}

// NewService creates a Service. invalidator may be nil when no cache is kept.
func NewService(store storage.RawDataStore, invalidator Invalidator) *Service {
	return &Service{store: store, invalidator: invalidator}
}

// Insert stores a reading and invalidates the cache around it. Returns
// storage.ErrDuplicate if the source already has a reading at that time.
func (s *Service) Insert(ctx context.Context, src Source, point storage.RawPoint) (err error) {
	defer func() { metrics.IncRawPointWrite("insert", metrics.Result(err)) }()

	if point.Timestamp.IsZero() {
		return fmt.Errorf("insert raw point for %s: missing timestamp", src.ID)
	}
	if err := src.ValidateTimestamp(point.Timestamp); err != nil {
		return err
	}
	if err := s.store.InsertPoint(ctx, src.ID, point); err != nil {
		return fmt.Errorf("insert raw point for %s: %w", src.ID, err)
	}

	slog.Debug("[RawData] Inserted point",
		"source_id", src.ID,
		"timestamp", point.Timestamp,
		"value", point.Value)

	return s.invalidate(ctx, src.ID, point.Timestamp)
}

// Delete removes the reading at t. Deleting a missing reading is a no-op.
func (s *Service) Delete(ctx context.Context, src Source, t time.Time) (deleted bool, err error) {
	defer func() { metrics.IncRawPointWrite("delete", metrics.Result(err)) }()

	deleted, err = s.store.DeletePoint(ctx, src.ID, t)
	if err != nil {
		return false, fmt.Errorf("delete raw point for %s: %w", src.ID, err)
	}
	if !deleted {
		return false, nil
	}

	slog.Debug("[RawData] Deleted point", "source_id", src.ID, "timestamp", t)

	return true, s.invalidate(ctx, src.ID, t)
}

func (s *Service) invalidate(ctx context.Context, sourceID uuid.UUID, t time.Time) error {
	if s.invalidator == nil {
		return nil
	}
	if err := s.invalidator.Invalidate(ctx, sourceID, t); err != nil {
		slog.Error("[RawData] Cache invalidation failed",
			"source_id", sourceID,
			"timestamp", t,
			"error", err)
		return fmt.Errorf("invalidate cache for %s at %s: %w: %w", sourceID, t, ErrCacheInvalidation, err)
	}
	return nil
}
