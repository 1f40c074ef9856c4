package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/repopulse/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRepositoriesTotal = "repopulse.analysis.repositories.total"
	metricCommitsTotal      = "repopulse.analysis.commits.total"
	metricAICommitsTotal    = "repopulse.analysis.ai_commits.total"
	metricLinesAddedTotal   = "repopulse.analysis.lines_added.total"
	metricDuration          = "repopulse.analysis.repository.duration.seconds"
	metricCacheHitsTotal    = "repopulse.cache.hits.total"
	metricCacheMissesTotal  = "repopulse.cache.misses.total"
	metricReloadsTotal      = "repopulse.ruleset.reloads.total"

	attrStatus = "status"
	attrKind   = "error_kind"
)

// Bucket boundaries for per-repository durations, in seconds.
var durationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// AnalysisMetrics holds the instruments recorded during analyses. A nil *AnalysisMetrics is a valid no-op.
type AnalysisMetrics struct {
	repositories metric.Int64Counter
	commits      metric.Int64Counter
	aiCommits    metric.Int64Counter
	linesAdded   metric.Int64Counter
	duration     metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	reloads      metric.Int64Counter
}

// NewAnalysisMetrics creates the instruments from mt.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	b := &builder{meter: mt}
	am := &AnalysisMetrics{
		repositories: b.counter(metricRepositoriesTotal, "Repositories analyzed by outcome", "{repository}"),
		commits:      b.counter(metricCommitsTotal, "Commits attributed", "{commit}"),
		aiCommits:    b.counter(metricAICommitsTotal, "Commits classified as AI-assisted", "{commit}"),
		linesAdded:   b.counter(metricLinesAddedTotal, "Qualifying lines added", "{line}"),
		duration:     b.histogram(metricDuration, "Per-repository analysis duration in seconds", "s", durationBuckets...),
		cacheHits:    b.counter(metricCacheHitsTotal, "Result cache hits", "{hit}"),
		cacheMisses:  b.counter(metricCacheMissesTotal, "Result cache misses", "{miss}"),
		reloads:      b.counter(metricReloadsTotal, "Ruleset reloads by outcome", "{reload}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return am, nil
}

// RecordRepository records the outcome of one repository analysis.
func (am *AnalysisMetrics) RecordRepository(ctx context.Context, result schema.RepositoryResult, elapsed time.Duration) {
	if am == nil {
		return
	}
	status := "ok"
	switch {
	case result.Failed():
		status = "failed"
	case result.Cached:
		status = "cached"
	}
	attrs := []attribute.KeyValue{attribute.String(attrStatus, status)}
	if result.ErrorKind != "" {
		attrs = append(attrs, attribute.String(attrKind, result.ErrorKind))
	}
	am.repositories.Add(ctx, 1, metric.WithAttributes(attrs...))
	am.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String(attrStatus, status)))

	if result.Failed() {
		return
	}
	am.commits.Add(ctx, int64(result.TotalCommits))
	am.aiCommits.Add(ctx, int64(result.TotalAICommits))
	am.linesAdded.Add(ctx, int64(result.TotalLinesAdded))
}

// RecordCache records a result cache lookup.
func (am *AnalysisMetrics) RecordCache(ctx context.Context, hit bool) {
	if am == nil {
		return
	}
	if hit {
		am.cacheHits.Add(ctx, 1)
		return
	}
	am.cacheMisses.Add(ctx, 1)
}

// RecordReload records a ruleset reload attempt.
func (am *AnalysisMetrics) RecordReload(ctx context.Context, err error) {
	if am == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	am.reloads.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// builder keeps the first instrument creation error so construction needs one check.
type builder struct {
	meter metric.Meter
	err   error
}

func (b *builder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)
	return c
}

func (b *builder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	b.setErr(name, err)
	return h
}

func (b *builder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
