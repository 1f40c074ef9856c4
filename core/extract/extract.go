// Package extract turns git history into commit records for one repository.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
)

// Options tune a single extraction.
type Options struct {
	ScanDiffs    bool // request patch text so the classifier can scan added lines
	MaxDiffBytes int  // per-commit cap on collected patch text; <= 0 uses the default
}

// Stats describes how the history output was consumed.
type Stats struct {
	Lines       int // output lines read
	Commits     int // commits kept inside the range
	ParseErrors int // malformed headers or numstat lines that were skipped
	OutOfRange  int // commits dropped by date re-validation
	headers     int
}

// SystematicParseFailure reports non-empty output from which no commit header could be parsed.
// It is distinct from a repository that simply has no commits in range.
func (s Stats) SystematicParseFailure() bool {
	return s.Lines > 0 && s.headers == 0 && s.ParseErrors > 0
}

// Extract validates repoPath, queries its history for dateRange and parses the output.
// Failures are *contract.RepositoryError values.
func Extract(ctx context.Context, client contract.GitClient, repoPath string, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) ([]schema.CommitRecord, Stats, error) {
	if !dateRange.Valid() {
		return nil, Stats{}, contract.NewRepositoryError(contract.KindInvalidRange, "",
			fmt.Errorf("start %s is after end %s", dateRange.StartDay(), dateRange.EndDay()))
	}
	if err := CheckRepository(repoPath); err != nil {
		return nil, Stats{}, err
	}

	// git's own date filter is approximate; widen it and re-validate while parsing.
	query := contract.HistoryQuery{
		Since:     dateRange.Start.AddDate(0, 0, -1),
		Until:     dateRange.End.AddDate(0, 0, 1),
		WithPatch: opts.ScanDiffs,
	}
	out, err := client.GetHistoryLog(ctx, repoPath, query)
	if err != nil {
		var repoErr *contract.RepositoryError
		if errors.As(err, &repoErr) {
			return nil, Stats{}, err
		}
		return nil, Stats{}, contract.NewRepositoryError(contract.KindQueryFailed, repoPath, err)
	}

	records, stats := Parse(out, dateRange, snap, opts)
	return records, stats, nil
}

// CheckRepository fails with PathNotFound when repoPath is missing
// and NotARepository when it has no .git entry.
func CheckRepository(repoPath string) error {
	info, err := os.Stat(repoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return contract.NewRepositoryError(contract.KindPathNotFound, repoPath, nil)
		}
		return contract.NewRepositoryError(contract.KindPathNotFound, repoPath, err)
	}
	if !info.IsDir() {
		return contract.NewRepositoryError(contract.KindNotARepository, repoPath, errors.New("path is not a directory"))
	}
	// .git is a directory in a normal clone and a file in worktrees and submodules.
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		return contract.NewRepositoryError(contract.KindNotARepository, repoPath, nil)
	}
	return nil
}
