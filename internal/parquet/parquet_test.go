package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/repopulse/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestRunSchema(t *testing.T) {
	s := parquet.SchemaOf(new(Run))
	for _, col := range []string{"run_id", "start_time", "end_time", "run_duration_ms", "range_start", "range_end", "total_repos", "valid_repos", "ruleset_hash", "config_params"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "column %s", col)
	}
}

func TestWriteRunsParquet(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	duration := int64(90000)
	params := `{"workers":4}`

	records := []schema.RunRecord{
		{RunID: "run-1", StartTime: start, EndTime: &end, RunDurationMs: &duration, RangeStart: "2024-02-01", RangeEnd: "2024-03-01", TotalRepos: 3, ValidRepos: 2, RulesetHash: "abc", ConfigParams: &params},
		{RunID: "run-2", StartTime: end, RangeStart: "2024-02-01", RangeEnd: "2024-03-01", RulesetHash: "abc"},
	}

	path := filepath.Join(t.TempDir(), "runs.parquet")
	require.NoError(t, WriteRunsParquet(ConvertRunRecords(records), path))

	rows := readAll[Run](t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "run-1", rows[0].RunID)
	require.NotNil(t, rows[0].EndTime)
	assert.WithinDuration(t, end, *rows[0].EndTime, time.Microsecond)
	require.NotNil(t, rows[0].RunDurationMs)
	assert.Equal(t, duration, *rows[0].RunDurationMs)
	assert.Equal(t, int32(2), rows[0].ValidRepos)
	assert.Nil(t, rows[1].EndTime)
	assert.Nil(t, rows[1].ConfigParams)
}

func TestWriteDeveloperStatsParquet(t *testing.T) {
	records := []schema.DeveloperRecord{
		{RunID: "run-1", Repository: "alpha", Developer: "JohnDoe", Commits: 15, LinesAdded: 150, LinesRemoved: 30, AILinesAdded: 40, AICommits: 4, AIPercentage: 26.7},
		{RunID: "run-1", Repository: "beta", Developer: "Jane Roe", Commits: 1, LinesAdded: 50},
	}

	path := filepath.Join(t.TempDir(), "devs.parquet")
	require.NoError(t, WriteDeveloperStatsParquet(ConvertDeveloperRecords(records), path))

	rows := readAll[DeveloperStat](t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, DeveloperStat(records[0]), rows[0])
	assert.Equal(t, "Jane Roe", rows[1].Developer)
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRunsParquet(nil, path))
	assert.Empty(t, readAll[Run](t, path))
}

func TestWriteInvalidPath(t *testing.T) {
	err := WriteRunsParquet(nil, "/nonexistent/dir/runs.parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}
