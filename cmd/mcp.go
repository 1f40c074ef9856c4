package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/mcp"
	"github.com/huangsam/repopulse/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the RepoPulse MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents run attribution analyses,
inspect and reload the ruleset, normalize author names and classify commits.

The rules file is watched and reloaded on change unless --watch-rules=false.
With --metrics-addr, Prometheus metrics are served on that address.`,
	// Stdio carries the protocol, so all diagnostics go to stderr.
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		var metrics *telemetry.AnalysisMetrics
		if addr := viper.GetString("metrics-addr"); addr != "" {
			provider, err := telemetry.NewProvider()
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = provider.Shutdown(shutdownCtx)
			}()
			go func() {
				if err := provider.Serve(ctx, addr); err != nil {
					contract.LogWarn("Metrics endpoint stopped", err)
				}
			}()
			metrics = provider.Metrics()
		}

		return mcp.StartMCPServer(ctx, cfg, cacheManager, rulesStore, metrics)
	},
}
