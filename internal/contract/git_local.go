package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultGitTimeout bounds a single git invocation.
const DefaultGitTimeout = 30 * time.Second

// gitWaitDelay bounds how long Run waits for output pipes after the timeout kills git.
// Grandchildren such as textconv drivers or wrapper scripts may still hold them open.
const gitWaitDelay = time.Second

// Markers framing each commit header in GetHistoryLog output.
// The header is RecordStart + hash, author, email, ISO date, subject and body joined by FieldSep,
// terminated by RecordEnd. The body may span several lines.
const (
	RecordStart = "\x1e"
	FieldSep    = "\x1f"
	RecordEnd   = "\x1d"
)

const historyFormat = "--pretty=format:%x1e%H%x1f%an%x1f%ae%x1f%aI%x1f%s%x1f%b%x1d"

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct {
	Timeout time.Duration
}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
// A non-positive timeout falls back to DefaultGitTimeout.
func NewLocalGitClient(timeout time.Duration) *LocalGitClient {
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	return &LocalGitClient{Timeout: timeout}
}

// Run executes a git command and returns its stdout.
// Failures are reported as *RepositoryError with kind ToolUnavailable or QueryFailed.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(runCtx, "git", fullArgs...)
	cmd.WaitDelay = gitWaitDelay
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, NewRepositoryError(KindQueryFailed, repoPath, fmt.Errorf("git %s timed out after %s", firstArg(args), timeout))
	}
	if ctx.Err() != nil {
		return nil, NewRepositoryError(KindQueryFailed, repoPath, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, NewRepositoryError(KindQueryFailed, repoPath, fmt.Errorf("git %s exited with code %d: %s", firstArg(args), exitErr.ExitCode(), stderr))
	}
	return nil, NewRepositoryError(KindToolUnavailable, repoPath, fmt.Errorf("%w. Ensure Git is installed and available on your PATH", err))
}

// GetRepoHash implements the GitClient interface.
func (c *LocalGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	out, err := c.Run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetHistoryLog implements the GitClient interface.
func (c *LocalGitClient) GetHistoryLog(ctx context.Context, repoPath string, query HistoryQuery) ([]byte, error) {
	return c.Run(ctx, repoPath, HistoryLogArgs(query)...)
}

// HistoryLogArgs builds the git log arguments for a history query.
// Paths are printed verbatim instead of C-quoted when they contain non-ASCII bytes.
func HistoryLogArgs(query HistoryQuery) []string {
	args := []string{
		"-c", "core.quotePath=false",
		"log",
		"--no-color",
		"--numstat",
		historyFormat,
	}
	if query.WithPatch {
		args = append(args, "-p", "--unified=0")
	}
	if !query.Since.IsZero() {
		args = append(args, "--since="+query.Since.Format(time.DateOnly))
	}
	if !query.Until.IsZero() {
		args = append(args, "--until="+query.Until.Format(time.DateOnly))
	}
	return args
}

// firstArg returns the git subcommand, skipping leading "-c key=value" pairs.
func firstArg(args []string) string {
	for len(args) >= 2 && args[0] == "-c" {
		args = args[2:]
	}
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
