// Package contract provides interfaces and shared utilities for the internal architecture of repopulse.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/repopulse/schema"
)

// HistoryQuery describes one history extraction against a repository.
type HistoryQuery struct {
	Since     time.Time // inclusive lower bound passed to --since
	Until     time.Time // inclusive upper bound passed to --until
	WithPatch bool      // include unified diff text after the numstat block
}

// GitClient defines the Git operations needed for attribution.
// This allows the core analysis logic to be tested without needing a real git executable.
type GitClient interface {
	// Run executes a git command inside repoPath and returns its stdout.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetRepoHash returns the current HEAD commit hash of the repository.
	GetRepoHash(ctx context.Context, repoPath string) (string, error)

	// GetHistoryLog returns the raw commit log with per-file numstat entries.
	GetHistoryLog(ctx context.Context, repoPath string, query HistoryQuery) ([]byte, error)
}

// CacheManager defines the interface for managing the persistent stores.
// This allows the storage layer to be mocked for testing.
type CacheManager interface {
	GetResultStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cached repository results.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking analysis runs and their attribution rows.
type HistoryStore interface {
	// BeginRun records the start of a run identified by runID.
	BeginRun(runID string, startTime time.Time, dateRange schema.DateRange, rulesetHash string, configParams map[string]any) error

	// EndRun records completion data for the run.
	EndRun(runID string, endTime time.Time, totalRepos, validRepos int) error

	// RecordRepository stores the developer rows of one successful repository result.
	RecordRepository(runID string, result schema.RepositoryResult) error

	// GetStatus returns status information about the store.
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns returns every recorded run, oldest first.
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllDeveloperRecords returns every recorded developer row.
	GetAllDeveloperRecords() ([]schema.DeveloperRecord, error)

	// Close closes the underlying connection.
	Close() error
}
