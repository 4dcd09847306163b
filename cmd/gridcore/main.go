package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gridlab/gridcore/internal/condensing"
	corecfg "github.com/gridlab/gridcore/internal/core/config"
	"github.com/gridlab/gridcore/internal/core/storage"
	"github.com/gridlab/gridcore/internal/core/storage/memory"
	"github.com/gridlab/gridcore/internal/core/storage/postgres"
	"github.com/gridlab/gridcore/internal/ingestion"
	"github.com/gridlab/gridcore/internal/metrics"
	"github.com/gridlab/gridcore/internal/migrations"
	"github.com/gridlab/gridcore/internal/projection"
	"github.com/gridlab/gridcore/internal/rawdata"
	"github.com/gridlab/gridcore/internal/server"
	"github.com/gridlab/gridcore/internal/warmup"
)

type stores struct {
	raw    storage.RawDataStore
	rows   storage.CacheStore
	health server.HealthChecker
	close  func() error
}

func main() {
	configPath := flag.String("config", "gridcore.yaml", "Path to configuration file")
	generate := flag.Bool("generate-cache", false, "Fill the condense cache for [-from, -to) and exit")
	fromFlag := flag.String("from", "", "Start of the cache range (RFC3339, clock hour)")
	toFlag := flag.String("to", "", "End of the cache range (RFC3339, clock hour)")
	flag.Parse()

	// 0. Initialize Logger
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("[Main] Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("[Main] Loaded config",
		"catalog_dir", cfg.Catalog.Dir,
		"catalog_fingerprint", cfg.Loaded.Fingerprint,
		"sources", len(cfg.Loaded.Sources()),
		"database_driver", cfg.Database.Driver)

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	// 2. Initialize Storage
	st, err := openStores(cfg.Database, *generate)
	if err != nil {
		slog.Error("[Main] Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer st.close()

	cache := condensing.NewCache(st.raw, st.rows, cfg.Condense.BorderDuration())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("[Main] Signal received, shutting down...")
		cancel()
	}()

	// 3. One-shot cache generation
	if *generate {
		if err := generateCache(ctx, cache, cfg, *fromFlag, *toFlag); err != nil {
			slog.Error("[Main] Cache generation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// 4. Initialize Services
	writer := rawdata.NewService(st.raw, cache)
	ingestionSvc := ingestion.NewService(cfg.Loaded, writer, cfg.Server.MaxBodySizeMB)
	projectionSvc := projection.NewService(cfg.Loaded, cache, cfg.Loaded.Env(cache, st.raw))

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	srv := server.New(
		server.Options{Addr: cfg.Server.Addr(), Mode: cfg.Server.Mode, MetricsPath: metricsPath},
		st.health,
		server.Build{CatalogFingerprint: cfg.Loaded.Fingerprint, Sources: len(cfg.Loaded.Sources())},
		ingestionSvc,
		projectionSvc,
	)

	// 5. Start the warm-up scheduler in the background if enabled
	if cfg.Warmup.Enabled {
		scheduler := warmup.NewScheduler(warmup.Deduplicated(cache), cfg.Loaded.CachableSources, warmup.Options{
			Interval:    cfg.Warmup.IntervalDuration(),
			Lookback:    cfg.Warmup.LookbackDuration(),
			WorkerCount: cfg.Warmup.WorkerCount,
		})
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("[Main] Warm-up scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("[Main] Warm-up scheduler disabled by config")
	}

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("[Main] Server stopped with error", "error", err)
	}

	slog.Info("[Main] Shutdown complete")
}

func newLogger(w io.Writer, cfg corecfg.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openStores opens the configured stores. requireCurrent refuses a database
// whose schema is behind the embedded migrations.
func openStores(cfg corecfg.DatabaseConfig, requireCurrent bool) (stores, error) {
	if cfg.Driver == "memory" {
		slog.Warn("[Main] Using in-memory storage; readings are lost on restart")
		store := memory.NewStore()
		return stores{raw: store, rows: store, close: func() error { return nil }}, nil
	}

	adapter, err := postgres.NewAdapter(cfg.Driver, cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return stores{}, err
	}
	schema, err := migrations.RunMigrations(adapter.DB(), cfg.AutoMigrate)
	if err != nil {
		adapter.Close()
		return stores{}, fmt.Errorf("running migrations: %w", err)
	}
	if requireCurrent && !schema.Current() {
		adapter.Close()
		return stores{}, fmt.Errorf("schema at version %d, cache tables need version %d: enable database.auto_migrate", schema.Version, schema.Latest)
	}
	if err := adapter.Prepare(); err != nil {
		adapter.Close()
		return stores{}, err
	}
	return stores{
		raw:    adapter,
		rows:   postgres.NewCacheAdapter(adapter.DB()),
		health: adapter,
		close:  adapter.Close,
	}, nil
}

func generateCache(ctx context.Context, gen warmup.Generator, cfg *corecfg.Config, fromArg, toArg string) error {
	from, err := time.Parse(time.RFC3339, fromArg)
	if err != nil {
		return fmt.Errorf("-from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toArg)
	if err != nil {
		return fmt.Errorf("-to: %w", err)
	}
	if !from.Before(to) {
		return fmt.Errorf("-from %s must be before -to %s", fromArg, toArg)
	}

	res, err := warmup.Run(ctx, gen, cfg.Loaded.CachableSources(), from, to, cfg.Warmup.WorkerCount)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d sources failed", res.Failed, res.Sources)
	}
	return nil
}
