package outwriter

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentFormatter(t *testing.T) {
	assert.Equal(t, "33.3", percentFormatter(1)(33.333))
	assert.Equal(t, "33.33", percentFormatter(2)(33.333))
	assert.Equal(t, "0.0", percentFormatter(1)(0))
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, map[string]int{"commits": 3}))
	assert.Equal(t, "{\n  \"commits\": 3\n}\n", buf.String())

	err := writeJSON(&buf, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := writeCSV(&buf, []string{"developer", "note"}, func(w *csv.Writer) error {
		return w.Write([]string{"Jane Roe", "a value, with comma"})
	})
	require.NoError(t, err)
	assert.Equal(t, "developer,note\nJane Roe,\"a value, with comma\"\n", buf.String())

	err = writeCSV(&buf, []string{"col"}, func(*csv.Writer) error { return assert.AnError })
	assert.Equal(t, assert.AnError, err)
}

func TestWriteWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	err := writeWithFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("report"))
		return err
	}, "Wrote table")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report", string(content))

	err = writeWithFile(path, func(io.Writer) error { return assert.AnError }, "Wrote table")
	assert.Equal(t, assert.AnError, err)

	err = writeWithFile("/nonexistent/dir/report.txt", func(io.Writer) error { return nil }, "Wrote table")
	assert.Error(t, err)
}
