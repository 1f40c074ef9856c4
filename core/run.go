package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
)

// ErrNoRepositorySucceeded is returned with the full output when every repository failed.
var ErrNoRepositorySucceeded = errors.New("no repository could be analyzed")

// ErrNoTargets is returned when there is nothing to analyze.
var ErrNoTargets = errors.New("no repositories to analyze")

// RunAnalysis analyzes targets, combines the results and records the run in the history store.
// The result cache and history store come from mgr; either may be absent.
func RunAnalysis(ctx context.Context, client contract.GitClient, mgr contract.CacheManager, targets []schema.RepoTarget, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) (schema.AnalysisOutput, error) {
	out := schema.AnalysisOutput{
		RunID:              uuid.NewString(),
		TotalRepos:         len(targets),
		StartDate:          dateRange.StartDay(),
		EndDate:            dateRange.EndDay(),
		RulesetFingerprint: snap.Fingerprint(),
	}
	if len(targets) == 0 {
		return out, ErrNoTargets
	}

	var history contract.HistoryStore
	if mgr != nil {
		if opts.Cache == nil {
			opts.Cache = mgr.GetResultStore()
		}
		history = mgr.GetHistoryStore()
	}

	startTime := time.Now()
	results, err := AnalyzeBatch(ctx, client, targets, dateRange, snap, opts)
	if err != nil {
		return out, err
	}

	out.Results = results
	out.Combined = Combine(results, snap)
	out.ValidRepos = out.Combined.SuccessfulRepositories
	out.Success = out.ValidRepos > 0

	if history != nil {
		recordRun(history, out, startTime, dateRange, snap, targets, opts)
	}

	if !out.Success {
		return out, ErrNoRepositorySucceeded
	}
	return out, nil
}

// recordRun stores the run and its developer rows. Tracking failures are logged and never fail the run.
func recordRun(history contract.HistoryStore, out schema.AnalysisOutput, startTime time.Time, dateRange schema.DateRange, snap *ruleset.Snapshot, targets []schema.RepoTarget, opts Options) {
	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		paths = append(paths, t.Path)
	}
	configParams := map[string]any{
		"targets":        paths,
		"workers":        opts.Workers,
		"scan_diffs":     opts.ScanDiffs,
		"max_diff_bytes": opts.MaxDiffBytes,
		"ruleset_source": snap.Source(),
	}

	if err := history.BeginRun(out.RunID, startTime, dateRange, snap.Fingerprint(), configParams); err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return
	}
	for _, result := range out.Results {
		if result.Failed() {
			continue
		}
		if err := history.RecordRepository(out.RunID, result); err != nil {
			logTrackingError("RecordRepository", result.Name, err)
		}
	}
	if err := history.EndRun(out.RunID, time.Now(), out.TotalRepos, out.ValidRepos); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// logTrackingError logs database tracking errors to stderr without disrupting analysis.
func logTrackingError(operation, repo string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s on %s", operation, repo), err)
}
