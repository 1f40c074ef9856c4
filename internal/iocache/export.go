package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/parquet"
)

// ExportHistory writes the recorded runs and developer rows to two Parquet files
// named <outputFile>.runs.parquet and <outputFile>.developer_stats.parquet.
func ExportHistory(store contract.HistoryStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not enabled")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total developer records: %d\n", status.TableSizes[developerStatsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	devs, err := store.GetAllDeveloperRecords()
	if err != nil {
		return fmt.Errorf("failed to retrieve developer records: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteRunsParquet(parquet.ConvertRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	devsFile := outputFile + ".developer_stats.parquet"
	if err := parquet.WriteDeveloperStatsParquet(parquet.ConvertDeveloperRecords(devs), devsFile); err != nil {
		return fmt.Errorf("failed to write developer records: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d developer records to: %s\n", len(devs), devsFile)
	return nil
}
