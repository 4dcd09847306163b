package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveBeforeInitIsNoop(t *testing.T) {
	// Collectors are nil until Init; observing must not panic.
	if cacheGenerateTotal == nil {
		ObserveCacheGenerate(ResultSuccess, time.Second)
		AddRowsDeleted("hour", 3)
	}
}

func TestCounters(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(cacheGenerateTotal.WithLabelValues(ResultError))
	ObserveCacheGenerate(Result(errors.New("boom")), 10*time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(cacheGenerateTotal.WithLabelValues(ResultError)))

	before = testutil.ToFloat64(cacheRowsDeleted.WithLabelValues("five_minutes"))
	AddRowsDeleted("five_minutes", 12)
	AddRowsDeleted("five_minutes", 0)
	require.Equal(t, before+12, testutil.ToFloat64(cacheRowsDeleted.WithLabelValues("five_minutes")))

	before = testutil.ToFloat64(rawPointWrites.WithLabelValues("unknown", ResultSuccess))
	IncRawPointWrite("", ResultSuccess)
	require.Equal(t, before+1, testutil.ToFloat64(rawPointWrites.WithLabelValues("unknown", ResultSuccess)))
}

func TestResult(t *testing.T) {
	require.Equal(t, ResultSuccess, Result(nil))
	require.Equal(t, ResultError, Result(errors.New("x")))
}
