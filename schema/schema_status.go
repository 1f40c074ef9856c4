package schema

import "time"

// CacheStatus represents the status of the result cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend           string           `json:"backend"`
	Connected         bool             `json:"connected"`
	TotalRuns         int              `json:"total_runs"`
	LastRunID         string           `json:"last_run_id"`
	LastRunTime       time.Time        `json:"last_run_time"`
	OldestRunTime     time.Time        `json:"oldest_run_time"`
	TotalReposScanned int              `json:"total_repos_scanned"`
	TableSizes        map[string]int64 `json:"table_sizes"`
}

// RunRecord represents a row from the repopulse_runs table.
type RunRecord struct {
	RunID         string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int64
	RangeStart    string
	RangeEnd      string
	TotalRepos    int32
	ValidRepos    int32
	RulesetHash   string
	ConfigParams  *string
}

// DeveloperRecord represents a row from the repopulse_developer_stats table.
type DeveloperRecord struct {
	RunID          string
	Repository     string
	Developer      string
	Commits        int32
	LinesAdded     int64
	LinesRemoved   int64
	AILinesAdded   int64
	AILinesRemoved int64
	AICommits      int32
	AIPercentage   float64
}
