package warmup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gridlab/gridcore/internal/condensing"
	"github.com/gridlab/gridcore/internal/core/condense"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/storage/memory"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingGenerator struct {
	mu    sync.Mutex
	calls map[uuid.UUID]int
	fail  map[uuid.UUID]bool
}

func newRecorder() *recordingGenerator {
	return &recordingGenerator{calls: map[uuid.UUID]int{}, fail: map[uuid.UUID]bool{}}
}

func (g *recordingGenerator) Generate(_ context.Context, src rawdata.Source, _, _ time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[src.ID]++
	if g.fail[src.ID] {
		return errors.New("boom")
	}
	return nil
}

func meters(n int) []rawdata.Source {
	out := make([]rawdata.Source, n)
	for i := range out {
		out[i] = rawdata.Source{ID: uuid.New(), Name: "meter", Unit: "milliwatt*hour"}
	}
	return out
}

func TestRun(t *testing.T) {
	from := time.Date(2014, 4, 14, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	tests := []struct {
		name    string
		sources int
		workers int
		failing int
	}{
		{"more sources than workers", 25, 4, 0},
		{"more workers than sources", 3, 10, 0},
		{"default workers", 7, 0, 0},
		{"failures are counted", 10, 3, 2},
		{"no sources", 0, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newRecorder()
			sources := meters(tt.sources)
			for _, src := range sources[:tt.failing] {
				gen.fail[src.ID] = true
			}

			res, err := Run(context.Background(), gen, sources, from, to, tt.workers)
			require.NoError(t, err)
			require.Equal(t, tt.sources, res.Sources)
			require.Equal(t, tt.failing, res.Failed)
			require.Len(t, gen.calls, tt.sources)
			for _, n := range gen.calls {
				require.Equal(t, 1, n)
			}
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, newRecorder(), meters(3), time.Time{}, time.Time{}.Add(time.Hour), 2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_FillsCache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	src := rawdata.Source{ID: uuid.New(), Name: "main", Unit: "milliwatt*hour"}
	at := func(h int) time.Time { return time.Date(2014, 4, 14, h, 0, 0, 0, time.UTC) }
	for _, p := range []storage.RawPoint{{Timestamp: at(11), Value: 5}, {Timestamp: at(17), Value: 77}} {
		require.NoError(t, store.InsertPoint(ctx, src.ID, p))
	}

	gen := Deduplicated(condensing.NewCache(store, store, 0))
	res, err := Run(ctx, gen, []rawdata.Source{src}, at(13), at(15), 2)
	require.NoError(t, err)
	require.Zero(t, res.Failed)

	rows, err := store.CachedRows(ctx, src.ID, condense.Hours, at(13), at(15))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(12), rows[0].Value)
}

func TestScheduler_Window(t *testing.T) {
	s := NewScheduler(newRecorder(), func() []rawdata.Source { return nil }, Options{Lookback: 90 * time.Minute})
	s.now = func() time.Time { return time.Date(2014, 4, 14, 13, 42, 0, 0, time.UTC) }

	from, to := s.window()
	require.Equal(t, time.Date(2014, 4, 14, 13, 0, 0, 0, time.UTC), to)
	require.Equal(t, time.Date(2014, 4, 14, 12, 0, 0, 0, time.UTC), from)
}

func TestScheduler_StartRunsUntilCancelled(t *testing.T) {
	gen := newRecorder()
	sources := meters(2)
	s := NewScheduler(gen, func() []rawdata.Source { return sources }, Options{Interval: time.Hour, Lookback: 2 * time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Start(ctx))

	// The initial run sees the cancelled context; only the final run on
	// shutdown generates.
	for _, src := range sources {
		require.Equal(t, 1, gen.calls[src.ID])
	}
}
