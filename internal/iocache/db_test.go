package iocache

import (
	"testing"
	"time"

	"github.com/huangsam/repopulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverName(t *testing.T) {
	tests := []struct {
		backend  schema.DatabaseBackend
		expected string
		wantErr  bool
	}{
		{schema.SQLiteBackend, "sqlite", false},
		{schema.MySQLBackend, "mysql", false},
		{schema.PostgreSQLBackend, "pgx", false},
		{schema.NoneBackend, "", true},
		{"oracle", "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			name, err := driverName(tt.backend)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, name)
		})
	}
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, validateTableName("repopulse_result_cache"))
	assert.NoError(t, validateTableName("_t1"))
	assert.Error(t, validateTableName(""))
	assert.Error(t, validateTableName("1table"))
	assert.Error(t, validateTableName("users; DROP TABLE users"))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`runs`", quoteTableName("runs", schema.MySQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.PostgreSQLBackend))
	assert.Equal(t, `"runs"`, quoteTableName("runs", schema.SQLiteBackend))
}

func TestRebind(t *testing.T) {
	query := "UPDATE t SET a = ?, b = ? WHERE c = ?"
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE c = $3", rebind(query, schema.PostgreSQLBackend))
	assert.Equal(t, query, rebind(query, schema.MySQLBackend))
	assert.Equal(t, query, rebind(query, schema.SQLiteBackend))
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 5, 0, 42, time.FixedZone("X", 3600))

	assert.Equal(t, "2024-03-01T08:05:00.000000042Z", formatTime(ts, schema.SQLiteBackend))
	assert.Equal(t, ts.UTC(), formatTime(ts, schema.PostgreSQLBackend))

	// Fixed width keeps lexical and chronological order aligned.
	a := formatTime(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), schema.SQLiteBackend).(string)
	b := formatTime(time.Date(2024, 3, 1, 0, 0, 0, 500, time.UTC), schema.SQLiteBackend).(string)
	assert.Less(t, a, b)
	assert.Len(t, b, len(a))
}

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2024, 3, 1, 8, 5, 0, 0, time.UTC)

	tests := []struct {
		name  string
		src   any
		valid bool
	}{
		{"time", want, true},
		{"sqlite text", "2024-03-01T08:05:00.000000000Z", true},
		{"bytes", []byte("2024-03-01 08:05:00"), true},
		{"micro", "2024-03-01 08:05:00.000000", true},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got dbTime
			require.NoError(t, got.Scan(tt.src))
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, want.Equal(got.Time))
			}
		})
	}

	var bad dbTime
	assert.Error(t, bad.Scan("yesterday"))
	assert.Error(t, bad.Scan(42))
}
