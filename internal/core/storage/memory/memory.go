// Package memory is an in-process implementation of the raw-data and cache
// stores, used for the "memory" database driver and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/google/uuid"
)

type cacheKey struct {
	source uuid.UUID
	width  condense.Resolution
}

// Store keeps raw points and cache rows in sorted slices per source.
type Store struct {
	mu    sync.RWMutex
	raw   map[uuid.UUID][]storage.RawPoint
	cache map[cacheKey][]storage.CacheRow
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		raw:   make(map[uuid.UUID][]storage.RawPoint),
		cache: make(map[cacheKey][]storage.CacheRow),
	}
}

// PointsInRange implements storage.RawDataStore.
func (s *Store) PointsInRange(_ context.Context, sourceID uuid.UUID, from, to time.Time) ([]storage.RawPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.raw[sourceID]
	start := sort.Search(len(points), func(i int) bool { return !points[i].Timestamp.Before(from) })
	var out []storage.RawPoint
	for _, p := range points[start:] {
		if p.Timestamp.After(to) {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

// PointBefore implements storage.RawDataStore.
func (s *Store) PointBefore(_ context.Context, sourceID uuid.UUID, t time.Time) (storage.RawPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.raw[sourceID]
	i := sort.Search(len(points), func(i int) bool { return !points[i].Timestamp.Before(t) })
	if i == 0 {
		return storage.RawPoint{}, false, nil
	}
	return points[i-1], true, nil
}

// PointAfter implements storage.RawDataStore.
func (s *Store) PointAfter(_ context.Context, sourceID uuid.UUID, t time.Time) (storage.RawPoint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.raw[sourceID]
	i := sort.Search(len(points), func(i int) bool { return points[i].Timestamp.After(t) })
	if i == len(points) {
		return storage.RawPoint{}, false, nil
	}
	return points[i], true, nil
}

// InsertPoint implements storage.RawDataStore.
func (s *Store) InsertPoint(_ context.Context, sourceID uuid.UUID, point storage.RawPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	point.Timestamp = point.Timestamp.UTC()
	points := s.raw[sourceID]
	i := sort.Search(len(points), func(i int) bool { return !points[i].Timestamp.Before(point.Timestamp) })
	if i < len(points) && points[i].Timestamp.Equal(point.Timestamp) {
		return fmt.Errorf("insert point at %s: %w", point.Timestamp, storage.ErrDuplicate)
	}
	points = append(points, storage.RawPoint{})
	copy(points[i+1:], points[i:])
	points[i] = point
	s.raw[sourceID] = points
	return nil
}

// DeletePoint implements storage.RawDataStore.
func (s *Store) DeletePoint(_ context.Context, sourceID uuid.UUID, t time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := s.raw[sourceID]
	i := sort.Search(len(points), func(i int) bool { return !points[i].Timestamp.Before(t) })
	if i == len(points) || !points[i].Timestamp.Equal(t) {
		return false, nil
	}
	s.raw[sourceID] = append(points[:i], points[i+1:]...)
	return true, nil
}

// CachedRows implements storage.CacheStore.
func (s *Store) CachedRows(_ context.Context, sourceID uuid.UUID, width condense.Resolution, from, to time.Time) ([]storage.CacheRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.CacheRow
	for _, row := range s.cache[cacheKey{sourceID, width}] {
		if !row.Timestamp.Before(from) && row.Timestamp.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

// StoreFill implements storage.CacheStore. Both widths are written under one
// lock.
func (s *Store) StoreFill(_ context.Context, sourceID uuid.UUID, fill storage.CacheFill) error {
	for _, width := range fill.Widths() {
		if width != condense.FiveMinutes && width != condense.Hours {
			return fmt.Errorf("no cache table for width %s", width)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, width := range fill.Widths() {
		key := cacheKey{sourceID, width}
		byTime := make(map[int64]storage.CacheRow, len(s.cache[key])+len(fill[width]))
		for _, row := range s.cache[key] {
			byTime[row.Timestamp.UnixNano()] = row
		}
		for _, row := range fill[width] {
			row.Timestamp = row.Timestamp.UTC()
			byTime[row.Timestamp.UnixNano()] = row
		}

		merged := make([]storage.CacheRow, 0, len(byTime))
		for _, row := range byTime {
			merged = append(merged, row)
		}
		sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
		s.cache[key] = merged
	}
	return nil
}

// DeleteRows implements storage.CacheStore.
func (s *Store) DeleteRows(_ context.Context, sourceID uuid.UUID, width condense.Resolution, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey{sourceID, width}
	var (
		kept    []storage.CacheRow
		deleted int64
	)
	for _, row := range s.cache[key] {
		if !row.Timestamp.Before(from) && !row.Timestamp.After(to) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.cache[key] = kept
	return deleted, nil
}

// HasRows implements storage.CacheStore.
func (s *Store) HasRows(_ context.Context, sourceID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.cache[cacheKey{sourceID, condense.FiveMinutes}]) > 0 ||
		len(s.cache[cacheKey{sourceID, condense.Hours}]) > 0, nil
}
