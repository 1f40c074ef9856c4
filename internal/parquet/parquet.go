// Package parquet exports run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/repopulse/schema"
	"github.com/parquet-go/parquet-go"
)

// Run maps to the repopulse_runs table.
type Run struct {
	RunID string `parquet:"run_id,snappy"`

	StartTime time.Time  `parquet:"start_time,snappy"`
	EndTime   *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs stays empty for runs that never finished.
	RunDurationMs *int64 `parquet:"run_duration_ms,optional,snappy"`

	RangeStart string `parquet:"range_start,snappy"`
	RangeEnd   string `parquet:"range_end,snappy"`
	TotalRepos int32  `parquet:"total_repos,snappy"`
	ValidRepos int32  `parquet:"valid_repos,snappy"`

	// RulesetHash is the fingerprint of the ruleset the run classified with.
	RulesetHash string `parquet:"ruleset_hash,snappy"`

	// ConfigParams holds the JSON-encoded run settings.
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// DeveloperStat maps to the repopulse_developer_stats table.
type DeveloperStat struct {
	RunID          string  `parquet:"run_id,snappy"`
	Repository     string  `parquet:"repository,snappy"`
	Developer      string  `parquet:"developer,snappy"`
	Commits        int32   `parquet:"commits,snappy"`
	LinesAdded     int64   `parquet:"lines_added,snappy"`
	LinesRemoved   int64   `parquet:"lines_removed,snappy"`
	AILinesAdded   int64   `parquet:"ai_lines_added,snappy"`
	AILinesRemoved int64   `parquet:"ai_lines_removed,snappy"`
	AICommits      int32   `parquet:"ai_commits,snappy"`
	AIPercentage   float64 `parquet:"ai_percentage,snappy"`
}

// writeRows writes rows to outputPath with a schema inferred from T.
func writeRows[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteDeveloperStatsParquet writes developer rows to a Parquet file.
func WriteDeveloperStatsParquet(data []DeveloperStat, outputPath string) error {
	return writeRows(data, outputPath)
}

// ConvertRunRecords converts stored runs for export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:         r.RunID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			RangeStart:    r.RangeStart,
			RangeEnd:      r.RangeEnd,
			TotalRepos:    r.TotalRepos,
			ValidRepos:    r.ValidRepos,
			RulesetHash:   r.RulesetHash,
			ConfigParams:  r.ConfigParams,
		}
	}
	return result
}

// ConvertDeveloperRecords converts stored developer rows for export.
func ConvertDeveloperRecords(records []schema.DeveloperRecord) []DeveloperStat {
	result := make([]DeveloperStat, len(records))
	for i, r := range records {
		result[i] = DeveloperStat(r)
	}
	return result
}
