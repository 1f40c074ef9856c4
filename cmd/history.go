package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/iocache"
	"github.com/huangsam/repopulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyConfig resolves the history backend and connection string from config.
func historyConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	backend, err := contract.ParseBackend(viper.GetString("history-backend"))
	if err != nil {
		return "", "", err
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup opens only the history store.
func historySetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historyConfig()
	if err != nil {
		return err
	}
	if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history store: %w", err)
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyCmd focused on run history management.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded analysis runs",
	Long: `Manage the run history that records every analysis and its per-developer rows.

History is disabled unless --history-backend is set. When enabled, each analyze,
developers or trend run stores its date range, ruleset fingerprint and settings
together with one row per developer and repository.

Supported backends: SQLite, MySQL, PostgreSQL, or None (default)

Subcommands:
  status  - Show run counts, timestamps and table sizes
  clear   - Remove all recorded runs
  export  - Write recorded runs to Parquet files
  migrate - Move the history schema to a version`,
}

// historyClearCmd clears the history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs",
	Long: `Delete all recorded runs from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables and the migration bookkeeping table`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearHistory(cfg.HistoryBackend, contract.GetHistoryDBFilePath(), cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Display run history statistics",
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			iocache.PrintHistoryStatus(os.Stdout, schema.HistoryStatus{Backend: string(schema.NoneBackend)})
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyExportCmd exports runs to Parquet.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to Parquet files",
	Long: `Write the runs table and the developer stats table to two Parquet files named
after --output-file: <output-file>.runs.parquet and <output-file>.developer_stats.parquet.

Examples:
  repopulse history export --history-backend sqlite --output-file pulse`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportHistory(iocache.Manager.GetHistoryStore(), viper.GetString("output-file"), os.Stdout); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs the embedded schema migrations.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the history schema",
	Long: `Apply or roll back the embedded history migrations.

Examples:
  # Migrate to the latest version
  repopulse history migrate --history-backend sqlite

  # Roll back to version 1
  repopulse history migrate --history-backend postgresql --history-db-connect "host=... dbname=..." --target-version 1

  # Roll back everything
  repopulse history migrate --history-backend sqlite --target-version 0`,
	Run: func(_ *cobra.Command, _ []string) {
		backend, connStr, err := historyConfig()
		if err != nil {
			contract.LogFatal("Invalid history configuration", err)
		}
		if err := iocache.MigrateHistory(backend, connStr, viper.GetInt("target-version"), os.Stdout); err != nil {
			contract.LogFatal("Failed to migrate history", err)
		}
	},
}
