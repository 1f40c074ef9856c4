package core

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/repopulse/core/classify"
	"github.com/huangsam/repopulse/core/extract"
	"github.com/huangsam/repopulse/core/identity"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/internal/telemetry"
	"github.com/huangsam/repopulse/schema"
)

// unknownAuthor replaces empty author names.
const unknownAuthor = "Unknown"

// Options tune how repositories are analyzed.
type Options struct {
	Workers      int  // concurrent repository analyses; <= 0 uses contract.DefaultWorkers
	ScanDiffs    bool // classify added diff lines in addition to commit messages
	MaxDiffBytes int  // per-commit cap on scanned diff text

	Cache   contract.CacheStore        // optional result cache
	Metrics *telemetry.AnalysisMetrics // optional instruments
}

// OptionsFromConfig maps the runtime configuration onto analysis options.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{
		Workers:      cfg.Workers,
		ScanDiffs:    cfg.ScanDiffs,
		MaxDiffBytes: cfg.MaxDiffBytes,
	}
}

// AnalyzeRepository extracts, classifies and aggregates the history of one repository.
// Repository failures are reported inside the result and never returned as errors.
func AnalyzeRepository(ctx context.Context, client contract.GitClient, target schema.RepoTarget, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) schema.RepositoryResult {
	name := RepositoryName(target)
	records, stats, err := extract.Extract(ctx, client, target.Path, dateRange, snap, extract.Options{
		ScanDiffs:    opts.ScanDiffs,
		MaxDiffBytes: opts.MaxDiffBytes,
	})
	if err != nil {
		return failedResult(name, target.Path, err)
	}

	result := Summarize(name, target.Path, dateRange, records, snap)
	result.Languages = extract.Languages(records)

	switch {
	case stats.SystematicParseFailure():
		msg := fmt.Sprintf("no commits could be parsed from %d lines of git output", stats.Lines)
		result.Warnings = append(result.Warnings, msg)
		contract.LogWarn(fmt.Sprintf("Parse failure in %s", name), contract.NewRepositoryError(contract.KindParseError, target.Path, nil))
	case stats.ParseErrors > 0:
		result.Warnings = append(result.Warnings, fmt.Sprintf("skipped %d malformed git log lines", stats.ParseErrors))
	}
	return result
}

// Summarize classifies records in place and folds them into a repository result.
func Summarize(name, path string, dateRange schema.DateRange, records []schema.CommitRecord, snap *ruleset.Snapshot) schema.RepositoryResult {
	result := schema.RepositoryResult{
		Name:      name,
		Path:      path,
		StartDate: dateRange.StartDay(),
		EndDate:   dateRange.EndDay(),
	}

	devs := make(map[string]*schema.DeveloperStat)
	days := make(map[string]*schema.DayBucket)

	for i := range records {
		rec := &records[i]
		verdict := classify.Classify(rec.Message, rec.DiffText, snap)
		rec.IsAIGenerated = verdict.IsAI
		rec.AIConfidence = verdict.Confidence

		author := identity.Normalize(rec.AuthorRaw, snap)
		if strings.TrimSpace(author) == "" {
			author = unknownAuthor
		}
		dev, ok := devs[author]
		if !ok {
			dev = &schema.DeveloperStat{Name: author}
			devs[author] = dev
		}
		dev.Add(*rec)

		day := rec.Day()
		bucket, ok := days[day]
		if !ok {
			bucket = &schema.DayBucket{Date: day}
			days[day] = bucket
		}
		bucket.Add(*rec)

		result.TotalCommits++
		result.TotalLinesAdded += rec.LinesAdded
		result.TotalLinesRemoved += rec.LinesRemoved
		if rec.IsAIGenerated {
			result.TotalAICommits++
			result.TotalAILinesAdded += rec.LinesAdded
			result.TotalAILinesRemoved += rec.LinesRemoved
		}
	}

	result.DeveloperStats = make([]schema.DeveloperStat, 0, len(devs))
	for _, dev := range devs {
		dev.Finalize()
		result.DeveloperStats = append(result.DeveloperStats, *dev)
	}
	sortDevelopers(result.DeveloperStats)

	result.TimeSeriesData = make([]schema.DayBucket, 0, len(days))
	for _, bucket := range days {
		bucket.AIPercentage = schema.Percentage(bucket.AILinesAdded, bucket.TotalLinesAdded)
		result.TimeSeriesData = append(result.TimeSeriesData, *bucket)
	}
	slices.SortFunc(result.TimeSeriesData, func(a, b schema.DayBucket) int {
		return cmp.Compare(a.Date, b.Date)
	})

	result.OverallAIPercentage = schema.Percentage(result.TotalAILinesAdded, result.TotalLinesAdded)
	return result
}

// AnalyzeBatch analyzes every target with a bounded worker pool.
// Results keep the order of targets. The only error is an invalid date range,
// reported before any git command runs.
func AnalyzeBatch(ctx context.Context, client contract.GitClient, targets []schema.RepoTarget, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) ([]schema.RepositoryResult, error) {
	if !dateRange.Valid() {
		return nil, contract.NewRepositoryError(contract.KindInvalidRange, "",
			fmt.Errorf("start %s is after end %s", dateRange.StartDay(), dateRange.EndDay()))
	}

	results := make([]schema.RepositoryResult, len(targets))
	if len(targets) == 0 {
		return results, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = contract.DefaultWorkers
	}
	workers = min(workers, len(targets))

	jobs := make(chan int, len(targets))
	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range jobs {
				// each worker writes only its own slot
				results[i] = analyzeTracked(ctx, client, targets[i], dateRange, snap, opts)
			}
		})
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, nil
}

// analyzeTracked runs one cached analysis and records its metrics.
func analyzeTracked(ctx context.Context, client contract.GitClient, target schema.RepoTarget, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) schema.RepositoryResult {
	start := time.Now()
	result := cachedAnalyzeRepository(ctx, client, target, dateRange, snap, opts)
	opts.Metrics.RecordRepository(ctx, result, time.Since(start))
	return result
}

// RepositoryName returns the display name of a target: its override or the final path segment.
func RepositoryName(target schema.RepoTarget) string {
	if target.Name != "" {
		return target.Name
	}
	path := target.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	base := filepath.Base(filepath.Clean(path))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return target.Path
	}
	return base
}

func failedResult(name, path string, err error) schema.RepositoryResult {
	return schema.RepositoryResult{
		Name:      name,
		Path:      path,
		Error:     err.Error(),
		ErrorKind: string(contract.KindOf(err)),
	}
}

// sortDevelopers orders by lines added descending, then name ascending.
func sortDevelopers(devs []schema.DeveloperStat) {
	slices.SortFunc(devs, func(a, b schema.DeveloperStat) int {
		if c := cmp.Compare(b.LinesAdded, a.LinesAdded); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}
