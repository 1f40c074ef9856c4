// Package core has the attribution engine: repository analysis, batching and cross-repository aggregation.
package core

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/outwriter"
	"github.com/huangsam/repopulse/internal/ruleset"
)

// ExecutorFunc defines the function signature for executing a report.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, snap *ruleset.Snapshot) error

// ExecuteReport analyzes the configured repositories and writes the view selected by cfg.View.
// It is the entry point of the analyze, developers and trend commands.
// When every repository fails the report is still written and ErrNoRepositorySucceeded is returned.
func ExecuteReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, snap *ruleset.Snapshot) error {
	start := time.Now()
	if !shouldSuppressHeader(ctx) {
		outwriter.LogAnalysisHeader(os.Stderr, cfg, snap)
	}

	client := contract.NewLocalGitClient(cfg.GitTimeout)
	out, err := RunAnalysis(ctx, client, mgr, cfg.Targets, cfg.DateRange(), snap, OptionsFromConfig(cfg))
	if err != nil && !errors.Is(err, ErrNoRepositorySucceeded) {
		return err
	}

	if werr := outwriter.WriteReport(out, cfg, time.Since(start)); werr != nil {
		return werr
	}
	return err
}
