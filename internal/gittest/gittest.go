// Package gittest builds throwaway Git repositories for tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// Repo is a temporary repository rooted at Dir.
type Repo struct {
	Dir string
}

// Change writes Content to Path relative to the repository root.
type Change struct {
	Path    string
	Content string
}

// SkipIfGitNotAvailable skips the test if git binary is not found in PATH.
func SkipIfGitNotAvailable(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skipf("git binary not found in PATH: %v", err)
	}
}

// NewRepo initializes an empty repository in a temp directory.
func NewRepo(t testing.TB) *Repo {
	t.Helper()
	SkipIfGitNotAvailable(t)
	r := &Repo{Dir: t.TempDir()}
	r.git(t, nil, "init", "-q")
	r.git(t, nil, "config", "commit.gpgsign", "false")
	return r
}

// Commit writes the changes and commits them as author at the given time.
func (r *Repo) Commit(t testing.TB, author, email string, when time.Time, message string, changes ...Change) {
	t.Helper()
	for _, c := range changes {
		full := filepath.Join(r.Dir, filepath.FromSlash(c.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", full, err)
		}
		if err := os.WriteFile(full, []byte(c.Content), 0o644); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
	r.git(t, nil, "add", "-A")
	stamp := when.Format(time.RFC3339)
	env := []string{
		"GIT_AUTHOR_NAME=" + author,
		"GIT_AUTHOR_EMAIL=" + email,
		"GIT_AUTHOR_DATE=" + stamp,
		"GIT_COMMITTER_NAME=" + author,
		"GIT_COMMITTER_EMAIL=" + email,
		"GIT_COMMITTER_DATE=" + stamp,
	}
	r.git(t, env, "commit", "-q", "--allow-empty", "-m", message)
}

func (r *Repo) git(t testing.TB, env []string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", r.Dir}, args...)...)
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "HOME="+r.Dir)
	cmd.Env = append(cmd.Env, env...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}
