package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/repopulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	reset := func() {
		Manager = &StoreManager{}
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
	}
	reset()
	t.Cleanup(func() {
		CloseStores()
		reset()
	})
}

func TestInitStores(t *testing.T) {
	resetGlobals(t)
	dir := t.TempDir()

	err := InitStores(schema.SQLiteBackend, filepath.Join(dir, "cache.db"), schema.SQLiteBackend, filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	assert.NotNil(t, Manager.GetResultStore())
	assert.NotNil(t, Manager.GetHistoryStore())

	// Later calls are no-ops.
	require.NoError(t, InitStores(schema.NoneBackend, "", schema.NoneBackend, ""))
	assert.NotNil(t, Manager.GetResultStore())

	CloseStores()
	CloseStores()
}

func TestInitStoresDisabled(t *testing.T) {
	resetGlobals(t)

	require.NoError(t, InitStores(schema.NoneBackend, "", "", ""))
	assert.Nil(t, Manager.GetResultStore())
	assert.Nil(t, Manager.GetHistoryStore())
}

func TestInitStoresFailure(t *testing.T) {
	resetGlobals(t)

	err := InitStores("oracle", "", schema.NoneBackend, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize result cache")
	assert.Nil(t, Manager.GetResultStore())
}

func TestClearCacheSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewCacheStore(resultTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	require.NoError(t, store.Close())

	require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine.
	assert.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
}

func TestClearHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewHistoryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearHistory(schema.SQLiteBackend, path, ""))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	assert.Error(t, ClearHistory(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearHistory("oracle", "", ""))
}
