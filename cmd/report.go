package cmd

import (
	"errors"

	"github.com/huangsam/repopulse/core"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reportSetup selects the view, runs the shared setup and falls back to the working directory
// when neither arguments nor the config file name a repository.
func reportSetup(view schema.ReportView) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg.View = view
		if err := sharedSetup(rootCtx, cmd, args); err != nil {
			return err
		}
		cfg.ShowTrend = view == schema.FullView && viper.GetBool("trend")
		if len(cfg.Targets) == 0 {
			cfg.Targets = []schema.RepoTarget{{Path: "."}}
		}
		return nil
	}
}

// runReport executes the report and exits non-zero when nothing could be analyzed.
func runReport(_ *cobra.Command, _ []string) {
	err := core.ExecuteReport(rootCtx, cfg, cacheManager, rulesStore.Current())
	if errors.Is(err, core.ErrNoRepositorySucceeded) {
		contract.LogFatal("Analysis produced no results", err)
	}
	if err != nil {
		contract.LogFatal("Cannot run analysis", err)
	}
}

// analyzeCmd prints the full attribution report.
var analyzeCmd = &cobra.Command{
	Use:   "analyze [name=]path...",
	Short: "Report per-repository and per-developer AI attribution.",
	Long: `Read the Git history of each repository in the date range and attribute added lines
to canonical developers, splitting them into AI-assisted and manual work.

Prints one summary row per repository (failed repositories are listed with their
error kind), then the combined developer table across all repositories.

Repositories come from the arguments, optionally named as name=path, and from the
repositories list of the config file. The working directory is used when neither is given.

Examples:
  # Last 30 days of the current repository
  repopulse analyze

  # Several services for a quarter, with the daily series
  repopulse analyze api=../api web=../web --start 2024-01-01 --end 2024-03-31 --trend

  # Also scan added diff lines and export JSON
  repopulse analyze ../api --scan-diffs --output json --output-file pulse.json`,
	PreRunE: reportSetup(schema.FullView),
	Run:     runReport,
}

// developersCmd prints only the combined developer table.
var developersCmd = &cobra.Command{
	Use:   "developers [name=]path...",
	Short: "Show the combined developer table across repositories.",
	Long: `Merge the developer statistics of every repository and rank developers by lines added.

Identities are normalized with the rules file, so "John Doe", "john doe" and "johndoe"
collapse into one row when the rules map them to the same canonical name.

Examples:
  # Top 10 developers across two repositories
  repopulse developers ../api ../web --limit 10

  # CSV for a spreadsheet
  repopulse developers ../api --output csv --output-file devs.csv`,
	PreRunE: reportSetup(schema.DevelopersView),
	Run:     runReport,
}

// trendCmd prints only the daily series.
var trendCmd = &cobra.Command{
	Use:   "trend [name=]path...",
	Short: "Show the daily AI share across repositories.",
	Long: `Print one row per day with commits, AI-assisted commits, added lines and AI share,
merged across every repository that could be analyzed.

Examples:
  # Daily series for the last 2 weeks
  repopulse trend --start "2 weeks ago"`,
	PreRunE: reportSetup(schema.TrendView),
	Run:     runReport,
}
