package contract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/gittest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMockGitClient_Run ensures the mock records and returns programmed values.
func TestMockGitClient_Run(t *testing.T) {
	mockClient := new(contract.MockGitClient)
	ctx := context.Background()
	expectedOutput := []byte("a1b2c3d commit message")
	expectedError := errors.New("mocked git error")

	mockClient.On("Run", ctx, "/path/to/repo", "log", "-1", "--oneline").
		Return(expectedOutput, expectedError).
		Once()

	out, err := mockClient.Run(ctx, "/path/to/repo", "log", "-1", "--oneline")
	assert.Equal(t, expectedOutput, out)
	assert.Equal(t, expectedError, err)
	mockClient.AssertExpectations(t)
}

func TestNewLocalGitClient(t *testing.T) {
	assert.Equal(t, contract.DefaultGitTimeout, contract.NewLocalGitClient(0).Timeout)
	assert.Equal(t, 5*time.Second, contract.NewLocalGitClient(5*time.Second).Timeout)
}

func TestHistoryLogArgs(t *testing.T) {
	args := contract.HistoryLogArgs(contract.HistoryQuery{
		Since:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Until:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		WithPatch: true,
	})
	assert.Equal(t, []string{"-c", "core.quotePath=false", "log"}, args[:3])
	assert.Contains(t, args, "--numstat")
	assert.Contains(t, args, "-p")
	assert.Contains(t, args, "--since=2024-01-01")
	assert.Contains(t, args, "--until=2024-02-01")

	plain := contract.HistoryLogArgs(contract.HistoryQuery{})
	assert.NotContains(t, plain, "-p")
	for _, a := range plain {
		assert.False(t, strings.HasPrefix(a, "--since"))
	}
}

func TestLocalGitClient_RunErrors(t *testing.T) {
	gittest.SkipIfGitNotAvailable(t)
	client := contract.NewLocalGitClient(0)
	ctx := context.Background()

	_, err := client.Run(ctx, t.TempDir(), "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrQueryFailed)
	assert.Equal(t, contract.KindQueryFailed, contract.KindOf(err))

	repo := gittest.NewRepo(t)
	_, err = client.Run(ctx, repo.Dir, "definitely-not-a-command")
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrQueryFailed)
	assert.Contains(t, err.Error(), "exited with code")
}

func TestLocalGitClient_CanceledContext(t *testing.T) {
	gittest.SkipIfGitNotAvailable(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := contract.NewLocalGitClient(0).Run(ctx, t.TempDir(), "status")
	require.Error(t, err)
	assert.Equal(t, contract.KindQueryFailed, contract.KindOf(err))
}

func TestLocalGitClient_HistoryAndHash(t *testing.T) {
	repo := gittest.NewRepo(t)
	when := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.Commit(t, "Alice", "alice@example.com", when, "add main", gittest.Change{Path: "main.go", Content: "package main\n"})

	client := contract.NewLocalGitClient(0)
	ctx := context.Background()

	hash, err := client.GetRepoHash(ctx, repo.Dir)
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	out, err := client.GetHistoryLog(ctx, repo.Dir, contract.HistoryQuery{
		Since: when.AddDate(0, 0, -1),
		Until: when.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, contract.RecordStart+hash))
	assert.Contains(t, text, "Alice"+contract.FieldSep+"alice@example.com")
	assert.Contains(t, text, "1\t0\tmain.go")
}

// TestLocalGitClient_TimeoutWithLingeringChild uses a fake git whose child keeps stdout open
// after git itself is killed. Run must still return shortly after the timeout.
func TestLocalGitClient_TimeoutWithLingeringChild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake git script requires a POSIX shell")
	}
	bin := t.TempDir()
	script := "#!/bin/sh\n/bin/sleep 5\necho done\n"
	require.NoError(t, os.WriteFile(filepath.Join(bin, "git"), []byte(script), 0o755))
	t.Setenv("PATH", bin)

	client := contract.NewLocalGitClient(200 * time.Millisecond)
	start := time.Now()
	_, err := client.Run(context.Background(), t.TempDir(), "-c", "core.quotePath=false", "log")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, contract.KindQueryFailed, contract.KindOf(err))
	assert.Contains(t, err.Error(), "git log timed out after 200ms")
	assert.Less(t, elapsed, 3*time.Second)
}

func TestLocalGitClient_NonASCIIPath(t *testing.T) {
	repo := gittest.NewRepo(t)
	when := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	repo.Commit(t, "Alice", "alice@example.com", when, "add greeting",
		gittest.Change{Path: "src/héllo.go", Content: "package src\n\nvar x = 1\n"})

	out, err := contract.NewLocalGitClient(0).GetHistoryLog(context.Background(), repo.Dir, contract.HistoryQuery{WithPatch: true})
	require.NoError(t, err)
	assert.Contains(t, string(out), "3\t0\tsrc/héllo.go")
	assert.Contains(t, string(out), "+++ b/src/héllo.go")
}
