// Package warmup fills the condense cache ahead of reads: periodically for a
// trailing window, or once for an explicit range from the command line.
package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gridlab/gridcore/internal/core/partition"
	"github.com/gridlab/gridcore/internal/rawdata"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultWorkerCount = 4

// Generator fills the cache of one source over clock-hour aligned
// [from, to). *condensing.Cache implements it.
type Generator interface {
	Generate(ctx context.Context, src rawdata.Source, from, to time.Time) error
}

// Result summarizes one warm-up run.
type Result struct {
	Sources int
	Failed  int
}

// Run generates the cache of every source over [from, to). Sources are
// sharded over workers by id, so two fills of one source never run at once
// within a run. A failing source is logged and counted; the others go on.
// The returned error is only set when ctx is cancelled.
func Run(ctx context.Context, gen Generator, sources []rawdata.Source, from, to time.Time, workers int) (Result, error) {
	if workers <= 0 {
		workers = defaultWorkerCount
	}
	workers = min(workers, len(sources))
	if workers == 0 {
		return Result{}, nil
	}

	shards := make([][]rawdata.Source, workers)
	for _, src := range sources {
		i := partition.For(src.ID.String()) % workers
		shards[i] = append(shards[i], src)
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		g.Go(func() error {
			for _, src := range shard {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := gen.Generate(gctx, src, from, to); err != nil {
					failed.Add(1)
					slog.Error("[Warmup] Cache generation failed",
						"source_id", src.ID,
						"source", src.Name,
						"from", from,
						"to", to,
						"error", err)
				}
			}
			return nil
		})
	}
	err := g.Wait()

	res := Result{Sources: len(sources), Failed: int(failed.Load())}
	slog.Info("[Warmup] Run complete",
		"sources", res.Sources,
		"failed", res.Failed,
		"workers", workers,
		"from", from,
		"to", to)
	if err != nil {
		return res, fmt.Errorf("warm-up interrupted: %w", err)
	}
	return res, nil
}

// Deduplicated shares one in-flight generation between concurrent callers
// asking for the same source and range.
func Deduplicated(gen Generator) Generator {
	return &dedup{gen: gen}
}

type dedup struct {
	gen   Generator
	group singleflight.Group
}

func (d *dedup) Generate(ctx context.Context, src rawdata.Source, from, to time.Time) error {
	key := fmt.Sprintf("%s/%d/%d", src.ID, from.Unix(), to.Unix())
	_, err, shared := d.group.Do(key, func() (any, error) {
		return nil, d.gen.Generate(ctx, src, from, to)
	})
	if shared {
		slog.Debug("[Warmup] Joined in-flight generation", "source_id", src.ID, "from", from, "to", to)
	}
	return err
}
