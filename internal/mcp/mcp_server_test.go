package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testRules = `
ai_threshold: 1
name_mappings:
  johndoe: JohnDoe
ai_keywords:
  - pattern: copilot
    weight: 1
file_types: [".go"]
`

const sampleLog = "" +
	"\x1eaaa\x1fJohnDoe\x1fjd@example.com\x1f2024-03-02T10:00:00Z\x1fUse copilot for parser\x1f\x1d\n" +
	"10\t2\tparser.go\n" +
	"\n" +
	"\x1ebbb\x1fjohn doe\x1fjd@example.com\x1f2024-03-03T15:00:00Z\x1fmanual fix\x1f\x1d\n" +
	"30\t1\tparser.go\n"

type fixture struct {
	handler   *toolHandler
	client    *contract.MockGitClient
	rulesPath string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rulesPath := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(testRules), 0o644))
	rules := ruleset.NewStore(rulesPath)
	_, err := rules.Load()
	require.NoError(t, err)

	client := &contract.MockGitClient{}
	return &fixture{
		handler: &toolHandler{
			baseCfg: &contract.Config{
				StartTime: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
				EndTime:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
				Workers:   2,
				View:      schema.FullView,
			},
			rules:  rules,
			client: client,
		},
		client:    client,
		rulesPath: rulesPath,
	}
}

func fakeRepo(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	return dir
}

func call(t *testing.T, h *toolHandler, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := newServer(h).GetTool(name)
	require.NotNil(t, tool, "tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "tool failures are reported in the result")
	require.NotNil(t, res)
	return res
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestToolsRegistered(t *testing.T) {
	s := newServer(newFixture(t).handler)
	for _, name := range []string{"analyze_repositories", "get_ruleset", "reload_ruleset", "normalize_author", "classify_commit"} {
		assert.NotNil(t, s.GetTool(name), name)
	}
}

func TestAnalyzeRepositories(t *testing.T) {
	f := newFixture(t)
	repo := fakeRepo(t, "service")
	f.client.On("GetHistoryLog", mock.Anything, repo, mock.Anything).Return([]byte(sampleLog), nil).Once()

	res := call(t, f.handler, "analyze_repositories", map[string]any{
		"repositories": []any{repo},
		"view":         "developers",
	})
	require.False(t, res.IsError, textOf(t, res))

	var devs []schema.CombinedDeveloper
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &devs))
	require.Len(t, devs, 1)
	assert.Equal(t, "JohnDoe", devs[0].Name)
	assert.Equal(t, 2, devs[0].Commits)
	assert.Equal(t, 40, devs[0].LinesAdded)
	assert.Equal(t, 10, devs[0].AILinesAdded)
	assert.Equal(t, []string{"service"}, devs[0].Repositories)
	f.client.AssertExpectations(t)
}

func TestAnalyzeRepositoriesFullView(t *testing.T) {
	f := newFixture(t)
	repo := fakeRepo(t, "service")
	f.handler.baseCfg.Targets = []schema.RepoTarget{{Path: repo, Name: "svc"}}
	f.client.On("GetHistoryLog", mock.Anything, repo, mock.Anything).Return([]byte(sampleLog), nil).Once()

	res := call(t, f.handler, "analyze_repositories", map[string]any{})
	require.False(t, res.IsError, textOf(t, res))

	var out schema.AnalysisOutput
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	assert.True(t, out.Success)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "svc", out.Results[0].Name)
	assert.Equal(t, 25.0, out.Combined.OverallAIPercentage)
	assert.Len(t, out.Combined.TimeSeriesData, 2)
}

func TestAnalyzeRepositoriesAllFailed(t *testing.T) {
	f := newFixture(t)
	missing := filepath.Join(t.TempDir(), "missing")

	res := call(t, f.handler, "analyze_repositories", map[string]any{"repositories": []any{missing}})
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "no repository could be analyzed")
	assert.Contains(t, textOf(t, res), string(contract.KindPathNotFound))
	f.client.AssertNotCalled(t, "GetHistoryLog", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyzeRepositoriesValidation(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{"no repositories", map[string]any{}, "at least one repository is required"},
		{"bad start", map[string]any{"repositories": []any{"."}, "start": "someday"}, "invalid start"},
		{"bad view", map[string]any{"repositories": []any{"."}, "view": "files"}, "invalid view"},
		{"empty target", map[string]any{"repositories": []any{"name="}}, "invalid repository"},
		{"reversed range", map[string]any{"repositories": []any{"."}, "start": "2024-04-01", "end": "2024-03-01"}, "analysis failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res := call(t, f.handler, "analyze_repositories", tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, textOf(t, res), tt.expected)
			f.client.AssertNotCalled(t, "GetHistoryLog", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestGetAndReloadRuleset(t *testing.T) {
	f := newFixture(t)

	res := call(t, f.handler, "get_ruleset", nil)
	require.False(t, res.IsError)
	var view struct {
		Source      string         `json:"source"`
		Fingerprint string         `json:"fingerprint"`
		Ruleset     schema.Ruleset `json:"ruleset"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &view))
	assert.Equal(t, f.rulesPath, view.Source)
	assert.Equal(t, 1.0, view.Ruleset.AIThreshold)
	before := view.Fingerprint

	require.NoError(t, os.WriteFile(f.rulesPath, []byte("ai_threshold: 2\n"), 0o644))
	res = call(t, f.handler, "reload_ruleset", nil)
	require.False(t, res.IsError, textOf(t, res))
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &view))
	assert.Equal(t, 2.0, view.Ruleset.AIThreshold)
	assert.NotEqual(t, before, view.Fingerprint)

	require.NoError(t, os.WriteFile(f.rulesPath, []byte("ai_threshold: -1\n"), 0o644))
	res = call(t, f.handler, "reload_ruleset", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "reload failed")
	assert.Equal(t, 2.0, f.handler.rules.Current().Threshold())
}

func TestNormalizeAuthor(t *testing.T) {
	f := newFixture(t)

	res := call(t, f.handler, "normalize_author", map[string]any{"name": "John Doe"})
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"input":"John Doe","canonical":"JohnDoe"}`, textOf(t, res))

	res = call(t, f.handler, "normalize_author", map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "name is required")
}

func TestClassifyCommit(t *testing.T) {
	f := newFixture(t)

	res := call(t, f.handler, "classify_commit", map[string]any{"message": "Refactor with Copilot"})
	require.False(t, res.IsError)
	var verdict struct {
		IsAI      bool     `json:"isAi"`
		Score     float64  `json:"score"`
		Matches   []string `json:"matches"`
		Threshold float64  `json:"threshold"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &verdict))
	assert.True(t, verdict.IsAI)
	assert.Equal(t, 1.0, verdict.Score)
	assert.Equal(t, []string{"copilot"}, verdict.Matches)
	assert.Equal(t, 1.0, verdict.Threshold)

	res = call(t, f.handler, "classify_commit", map[string]any{"message": "fix typo", "diff": "// suggested by copilot"})
	require.False(t, res.IsError)
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &verdict))
	assert.True(t, verdict.IsAI)

	res = call(t, f.handler, "classify_commit", map[string]any{})
	assert.True(t, res.IsError)
}
