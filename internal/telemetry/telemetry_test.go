package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huangsam/repopulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMeter(t *testing.T) (*AnalysisMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	am, err := NewAnalysisMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return am, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for i := range rm.ScopeMetrics {
		for j := range rm.ScopeMetrics[i].Metrics {
			if rm.ScopeMetrics[i].Metrics[j].Name == name {
				return &rm.ScopeMetrics[i].Metrics[j]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64]")
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestRecordRepository(t *testing.T) {
	am, reader := setupMeter(t)
	ctx := context.Background()

	am.RecordRepository(ctx, schema.RepositoryResult{TotalCommits: 7, TotalAICommits: 2, TotalLinesAdded: 120}, 150*time.Millisecond)
	am.RecordRepository(ctx, schema.RepositoryResult{TotalCommits: 3, TotalLinesAdded: 10, Cached: true}, time.Millisecond)
	am.RecordRepository(ctx, schema.RepositoryResult{Error: "PathNotFound: /nope", ErrorKind: "PathNotFound"}, time.Millisecond)

	rm := collect(t, reader)
	assert.Equal(t, int64(3), sumOf(t, findMetric(rm, metricRepositoriesTotal)))
	assert.Equal(t, int64(10), sumOf(t, findMetric(rm, metricCommitsTotal)))
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, metricAICommitsTotal)))
	assert.Equal(t, int64(130), sumOf(t, findMetric(rm, metricLinesAddedTotal)))

	dur := findMetric(rm, metricDuration)
	require.NotNil(t, dur)
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestRecordCacheAndReload(t *testing.T) {
	am, reader := setupMeter(t)
	ctx := context.Background()

	am.RecordCache(ctx, true)
	am.RecordCache(ctx, true)
	am.RecordCache(ctx, false)
	am.RecordReload(ctx, nil)
	am.RecordReload(ctx, errors.New("bad file"))

	rm := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, metricCacheHitsTotal)))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, metricCacheMissesTotal)))
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, metricReloadsTotal)))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var am *AnalysisMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		am.RecordRepository(ctx, schema.RepositoryResult{TotalCommits: 1}, time.Second)
		am.RecordCache(ctx, true)
		am.RecordReload(ctx, nil)
	})
}

func TestProviderServesMetrics(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	p.Metrics().RecordCache(context.Background(), true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "cache_hits")
}

func TestProvidersAreIsolated(t *testing.T) {
	a, err := NewProvider()
	require.NoError(t, err)
	b, err := NewProvider()
	require.NoError(t, err)
	assert.NotSame(t, a.registry, b.registry)
	assert.NotNil(t, a.Meter())
}

func TestServeRejectsBadAddress(t *testing.T) {
	p, err := NewProvider()
	require.NoError(t, err)
	assert.Error(t, p.Serve(context.Background(), "not-an-address"))
}
