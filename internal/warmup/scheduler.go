package warmup

import (
	"context"
	"log/slog"
	"time"

	"github.com/gridlab/gridcore/internal/metrics"
	"github.com/gridlab/gridcore/internal/rawdata"
)

const finalRunTimeout = 30 * time.Second

// Options controls the periodic warm-up.
type Options struct {
	Interval    time.Duration
	Lookback    time.Duration
	WorkerCount int
}

func (o Options) normalized() Options {
	n := o
	if n.Interval <= 0 {
		n.Interval = 15 * time.Minute
	}
	if n.Lookback < time.Hour {
		n.Lookback = time.Hour
	}
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	return n
}

// Scheduler warms the cache for the trailing Lookback hours on every tick.
type Scheduler struct {
	gen     Generator
	sources func() []rawdata.Source
	opts    Options
	now     func() time.Time
}

// NewScheduler creates a scheduler over the sources returned by sources,
// which is called on every run.
func NewScheduler(gen Generator, sources func() []rawdata.Source, opts Options) *Scheduler {
	return &Scheduler{gen: gen, sources: sources, opts: opts.normalized(), now: time.Now}
}

// Start runs once immediately, then on every interval until ctx is
// cancelled, then once more with a fresh deadline.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	slog.Info("[Warmup] Starting cache warm-up scheduler",
		"interval", s.opts.Interval,
		"lookback", s.opts.Lookback,
		"workers", s.opts.WorkerCount)

	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			slog.Info("[Warmup] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), finalRunTimeout)
			defer cancel()

			slog.Info("[Warmup] Running final warm-up before shutdown...")
			s.runOnce(shutdownCtx)
			slog.Info("[Warmup] Final warm-up complete")
			return nil
		}
	}
}

// window is the trailing lookback ending at the last clock hour.
func (s *Scheduler) window() (time.Time, time.Time) {
	to := s.now().UTC().Truncate(time.Hour)
	return to.Add(-s.opts.Lookback.Truncate(time.Hour)), to
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := time.Now()
	from, to := s.window()
	res, err := Run(ctx, s.gen, s.sources(), from, to, s.opts.WorkerCount)
	if err == nil && res.Failed > 0 {
		metrics.ObserveWarmup(metrics.ResultError, time.Since(start))
		return
	}
	metrics.ObserveWarmup(metrics.Result(err), time.Since(start))
	if err != nil {
		slog.Warn("[Warmup] Run interrupted", "error", err)
	}
}
