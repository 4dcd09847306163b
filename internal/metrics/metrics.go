// Package metrics exposes Prometheus counters and histograms for the
// condense cache, raw-data ingestion and cache warm-up.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "gridcore_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	cacheReads       *prometheus.CounterVec
	cacheReadLatency *prometheus.HistogramVec
	cacheMissing     *prometheus.CounterVec

	cacheGenerateTotal   *prometheus.CounterVec
	cacheGenerateLatency *prometheus.HistogramVec
	cacheRowsGenerated   *prometheus.CounterVec

	cacheInvalidations *prometheus.CounterVec
	cacheRowsDeleted   *prometheus.CounterVec

	rawPointWrites *prometheus.CounterVec

	warmupRuns    *prometheus.CounterVec
	warmupLatency *prometheus.HistogramVec
)

// Init registers all collectors with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		cacheReads = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_reads_total",
				Help: "Total accumulated reads by width and result",
			},
			[]string{"width", "result"},
		)
		cacheReadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cache_read_latency_seconds",
				Help:    "Accumulated read latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"width", "result"},
		)
		cacheMissing = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_missing_periods_total",
				Help: "Missing periods computed from raw data on read",
			},
			[]string{"width"},
		)

		cacheGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_generate_total",
				Help: "Total cache generate operations by result",
			},
			[]string{"result"},
		)
		cacheGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cache_generate_latency_seconds",
				Help:    "Cache generate latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		cacheRowsGenerated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_rows_generated_total",
				Help: "Condensed rows written by width",
			},
			[]string{"width"},
		)

		cacheInvalidations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_invalidations_total",
				Help: "Cache invalidations by result",
			},
			[]string{"result"},
		)
		cacheRowsDeleted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_rows_deleted_total",
				Help: "Condensed rows deleted by invalidation, by width",
			},
			[]string{"width"},
		)

		rawPointWrites = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "raw_point_writes_total",
				Help: "Raw point inserts and deletes by operation and result",
			},
			[]string{"op", "result"},
		)

		warmupRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "warmup_runs_total",
				Help: "Cache warm-up runs by result",
			},
			[]string{"result"},
		)
		warmupLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "warmup_latency_seconds",
				Help:    "Cache warm-up run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			cacheReads,
			cacheReadLatency,
			cacheMissing,
			cacheGenerateTotal,
			cacheGenerateLatency,
			cacheRowsGenerated,
			cacheInvalidations,
			cacheRowsDeleted,
			rawPointWrites,
			warmupRuns,
			warmupLatency,
		)
	})
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// ObserveCacheRead records an accumulated read.
func ObserveCacheRead(width, result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if cacheReads != nil {
		cacheReads.WithLabelValues(width, result).Inc()
	}
	if cacheReadLatency != nil {
		cacheReadLatency.WithLabelValues(width, result).Observe(duration.Seconds())
	}
}

// AddMissingPeriods counts periods computed from raw data on a read.
func AddMissingPeriods(width string, count int) {
	if count <= 0 {
		return
	}
	if cacheMissing != nil {
		cacheMissing.WithLabelValues(width).Add(float64(count))
	}
}

// ObserveCacheGenerate records a generate_cache call.
func ObserveCacheGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if cacheGenerateTotal != nil {
		cacheGenerateTotal.WithLabelValues(result).Inc()
	}
	if cacheGenerateLatency != nil {
		cacheGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddRowsGenerated counts condensed rows written.
func AddRowsGenerated(width string, count int) {
	if count <= 0 {
		return
	}
	if cacheRowsGenerated != nil {
		cacheRowsGenerated.WithLabelValues(width).Add(float64(count))
	}
}

// IncInvalidation counts a cache invalidation.
func IncInvalidation(result string) {
	if cacheInvalidations != nil {
		cacheInvalidations.WithLabelValues(result).Inc()
	}
}

// AddRowsDeleted counts condensed rows removed by invalidation.
func AddRowsDeleted(width string, count int64) {
	if count <= 0 {
		return
	}
	if cacheRowsDeleted != nil {
		cacheRowsDeleted.WithLabelValues(width).Add(float64(count))
	}
}

// IncRawPointWrite counts a raw point insert or delete.
func IncRawPointWrite(op, result string) {
	if op == "" {
		op = "unknown"
	}
	if rawPointWrites != nil {
		rawPointWrites.WithLabelValues(op, result).Inc()
	}
}

// ObserveWarmup records one warm-up run.
func ObserveWarmup(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if warmupRuns != nil {
		warmupRuns.WithLabelValues(result).Inc()
	}
	if warmupLatency != nil {
		warmupLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
