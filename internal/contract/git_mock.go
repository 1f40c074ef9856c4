package contract

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockGitClient is a testify mock implementing GitClient.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	callArgs := []any{ctx, repoPath}
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	ret := m.Called(callArgs...)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// GetRepoHash implements the GitClient interface.
func (m *MockGitClient) GetRepoHash(ctx context.Context, repoPath string) (string, error) {
	ret := m.Called(ctx, repoPath)
	return ret.String(0), ret.Error(1)
}

// GetHistoryLog implements the GitClient interface.
func (m *MockGitClient) GetHistoryLog(ctx context.Context, repoPath string, query HistoryQuery) ([]byte, error) {
	ret := m.Called(ctx, repoPath, query)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}
