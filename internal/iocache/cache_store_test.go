package iocache

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/repopulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheStore(t *testing.T) *CacheStoreImpl {
	t.Helper()
	store, err := NewCacheStore(resultTable, schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCacheStoreGetSet(t *testing.T) {
	store := newTestCacheStore(t)

	_, _, _, err := store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, store.Set("k1", []byte("first"), 1, 100))
	value, version, ts, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), value)
	assert.Equal(t, 1, version)
	assert.Equal(t, int64(100), ts)

	// Set replaces the existing entry.
	require.NoError(t, store.Set("k1", []byte("second"), 2, 200))
	value, version, ts, err = store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), value)
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(200), ts)
}

func TestCacheStoreStatus(t *testing.T) {
	store := newTestCacheStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "sqlite", status.Backend)
	assert.Zero(t, status.TotalEntries)

	require.NoError(t, store.Set("a", bytes.Repeat([]byte("x"), 64), 1, 1000))
	require.NoError(t, store.Set("b", []byte("y"), 1, 2000))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(1000, 0), status.OldestEntryTime)
	assert.Equal(t, time.Unix(2000, 0), status.LastEntryTime)
	assert.Positive(t, status.TableSizeBytes)
}

func TestCacheStoreNoneBackend(t *testing.T) {
	store, err := NewCacheStore(resultTable, schema.NoneBackend, "")
	require.NoError(t, err)

	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	_, _, _, err = store.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestNewCacheStoreErrors(t *testing.T) {
	_, err := NewCacheStore("bad name", schema.SQLiteBackend, filepath.Join(t.TempDir(), "c.db"))
	assert.Error(t, err)

	_, err = NewCacheStore(resultTable, "oracle", "")
	assert.Error(t, err)
}
