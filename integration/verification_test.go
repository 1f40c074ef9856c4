//go:build integration

// Package integration contains integration tests for repopulse.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/json"
	"os/exec"
	"strconv"
	"strings"
	"testing"

	"github.com/huangsam/repopulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnalyzeVerification runs repopulse analyze and checks the totals against git log.
func TestAnalyzeVerification(t *testing.T) {
	repo := sampleRepo(t)
	env := []string{"HOME=" + t.TempDir()}

	args := append([]string{"analyze", repo.Dir, "--output", "json", "--cache-backend", "none"}, marchArgs...)
	stdout, err := runRepopulse(t, repo.Dir, env, args...)
	require.NoError(t, err)

	var out schema.AnalysisOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.True(t, out.Success)
	require.Len(t, out.Results, 1)

	result := out.Results[0]
	assert.Equal(t, 2, result.TotalCommits)
	assert.Equal(t, gitAddedLines(t, repo.Dir, ".go"), result.TotalLinesAdded)
	assert.Equal(t, 10, result.TotalAILinesAdded)
	assert.Equal(t, 1, result.TotalAICommits)
	assert.Len(t, out.Combined.Developers, 2)
	assert.Len(t, out.Combined.TimeSeriesData, 2)
}

// TestDevelopersCSV runs the developers view as CSV.
func TestDevelopersCSV(t *testing.T) {
	repo := sampleRepo(t)
	env := []string{"HOME=" + t.TempDir()}

	args := append([]string{"developers", repo.Dir, "--output", "csv", "--cache-backend", "none"}, marchArgs...)
	stdout, err := runRepopulse(t, repo.Dir, env, args...)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "alice")
}

// TestCachedRerun checks that a second run with the SQLite cache returns the same totals.
func TestCachedRerun(t *testing.T) {
	repo := sampleRepo(t)
	env := []string{"HOME=" + t.TempDir()}

	args := append([]string{"analyze", repo.Dir, "--output", "json"}, marchArgs...)
	first, err := runRepopulse(t, repo.Dir, env, args...)
	require.NoError(t, err)
	second, err := runRepopulse(t, repo.Dir, env, args...)
	require.NoError(t, err)

	var a, b schema.AnalysisOutput
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	assert.False(t, a.Results[0].Cached)
	assert.True(t, b.Results[0].Cached)
	assert.Equal(t, a.Combined.TotalLinesAdded, b.Combined.TotalLinesAdded)

	status, err := runRepopulse(t, repo.Dir, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, status, "Total Entries: 1")
}

// TestMissingRepository checks the exit status when nothing can be analyzed.
func TestMissingRepository(t *testing.T) {
	env := []string{"HOME=" + t.TempDir()}
	_, err := runRepopulse(t, t.TempDir(), env, "analyze", "/nonexistent/repo", "--cache-backend", "none")
	require.Error(t, err)
}

// TestRulesCheck scores a message with the default ruleset.
func TestRulesCheck(t *testing.T) {
	env := []string{"HOME=" + t.TempDir()}
	stdout, err := runRepopulse(t, t.TempDir(), env, "rules", "check", "Generated with Copilot", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "copilot")
}

// gitAddedLines sums the numstat additions of files with the given extension.
func gitAddedLines(t *testing.T, dir, ext string) int {
	t.Helper()
	out, err := exec.Command("git", "-C", dir, "log", "--numstat", "--format=").Output()
	require.NoError(t, err)

	total := 0
	for line := range strings.SplitSeq(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 || !strings.HasSuffix(fields[2], ext) {
			continue
		}
		added, err := strconv.Atoi(fields[0])
		require.NoError(t, err)
		total += added
	}
	return total
}
