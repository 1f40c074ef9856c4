// Package cmd defines the command-line interface for repopulse.
package cmd

import (
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(developersCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the rules subcommands to the parent rules command
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesInitCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.AddCommand(rulesNormalizeCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("start", "", "First day to analyze: YYYY-MM-DD, RFC3339 or time ago (default 30 days ago)")
	rootCmd.PersistentFlags().String("end", "", "Last day to analyze, inclusive (default today)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of repositories analyzed concurrently")
	rootCmd.PersistentFlags().String("git-timeout", contract.DefaultGitTimeout.String(), "Timeout for each git invocation")
	rootCmd.PersistentFlags().Bool("scan-diffs", false, "Also scan added diff lines for AI markers (slower)")
	rootCmd.PersistentFlags().Int("max-diff-bytes", contract.DefaultMaxDiffBytes, "Maximum diff bytes scanned per commit")
	rootCmd.PersistentFlags().String("rules", defaultRulesFile, "Path to the attribution rules file (defaults apply when missing)")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of developers to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for percentage columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Result cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for run history (a SQLite file must differ from the cache file)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of analyzeCmd to Viper
	analyzeCmd.Flags().Bool("trend", false, "Append the daily AI share series to the report")
	if err := viper.BindPFlags(analyzeCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analyze flags", err)
	}

	// Bind all flags of the rules subcommands to Viper
	rulesInitCmd.Flags().Bool("force", false, "Overwrite an existing rules file")
	rulesCheckCmd.Flags().String("diff-file", "", "File with added diff lines to scan together with the message")
	for _, c := range []*cobra.Command{rulesInitCmd, rulesCheckCmd} {
		if err := viper.BindPFlags(c.Flags()); err != nil {
			contract.LogFatal("Error binding rules flags", err)
		}
	}

	// Bind all flags of mcpCmd to Viper
	mcpCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9464)")
	mcpCmd.Flags().Bool("watch-rules", true, "Reload the rules file when it changes")
	if err := viper.BindPFlags(mcpCmd.Flags()); err != nil {
		contract.LogFatal("Error binding mcp flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
