// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/internal/telemetry"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerVersion is reported to MCP clients during initialization.
const ServerVersion = "1.0.0"

// NewMCPServer initializes and configures the RepoPulse MCP server without starting it.
// metrics may be nil.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager, rules *ruleset.Store, metrics *telemetry.AnalysisMetrics) *server.MCPServer {
	return newServer(&toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
		rules:   rules,
		metrics: metrics,
		client:  contract.NewLocalGitClient(baseCfg.GitTimeout),
	})
}

func newServer(h *toolHandler) *server.MCPServer {
	s := server.NewMCPServer(
		"RepoPulse Attribution Server",
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	// --- 1. Tool: analyze_repositories ---
	s.AddTool(mcp.NewTool("analyze_repositories",
		mcp.WithDescription("Analyze git history of one or more repositories and attribute added lines to AI-assisted commits per developer."),
		mcp.WithArray("repositories",
			mcp.Description("Repository paths, optionally as name=path. Defaults to the configured repositories."),
			mcp.WithStringItems(),
		),
		mcp.WithString("start", mcp.Description("First day of the range (YYYY-MM-DD, RFC3339 or 'N days ago'). Defaults to the configured start.")),
		mcp.WithString("end", mcp.Description("Last day of the range, inclusive. Defaults to the configured end.")),
		mcp.WithString("view", mcp.Description("Which part of the result to return. Defaults to 'full'."), mcp.Enum("full", "developers", "trend")),
		mcp.WithBoolean("scan_diffs", mcp.Description("Also scan added diff lines for AI markers.")),
	), h.handleAnalyzeRepositories)

	// --- 2. Tool: get_ruleset ---
	s.AddTool(mcp.NewTool("get_ruleset",
		mcp.WithDescription("Return the active attribution ruleset with its source and fingerprint."),
	), h.handleGetRuleset)

	// --- 3. Tool: reload_ruleset ---
	s.AddTool(mcp.NewTool("reload_ruleset",
		mcp.WithDescription("Re-read the rules file. The previous ruleset stays active when the file is invalid."),
	), h.handleReloadRuleset)

	// --- 4. Tool: normalize_author ---
	s.AddTool(mcp.NewTool("normalize_author",
		mcp.WithDescription("Map a raw git author name to its canonical developer name."),
		mcp.WithString("name", mcp.Description("Raw author name as recorded by git."), mcp.Required()),
	), h.handleNormalizeAuthor)

	// --- 5. Tool: classify_commit ---
	s.AddTool(mcp.NewTool("classify_commit",
		mcp.WithDescription("Score a commit message, and optionally its added diff lines, against the AI keyword table."),
		mcp.WithString("message", mcp.Description("Full commit message."), mcp.Required()),
		mcp.WithString("diff", mcp.Description("Added diff text to scan in addition to the message.")),
	), h.handleClassifyCommit)

	return s
}

// StartMCPServer serves the RepoPulse MCP server over stdio.
// With WatchRules set and a rules file configured, the file is reloaded on change until ctx is done.
func StartMCPServer(ctx context.Context, baseCfg *contract.Config, mgr contract.CacheManager, rules *ruleset.Store, metrics *telemetry.AnalysisMetrics) error {
	if baseCfg.WatchRules && rules.Path() != "" {
		go func() {
			err := rules.Watch(ctx, func(snap *ruleset.Snapshot, err error) {
				metrics.RecordReload(ctx, err)
				if err != nil {
					contract.LogWarn("Rules reload failed, keeping the previous ruleset", err)
					return
				}
				contract.LogInfo("Rules reloaded: " + snap.ShortFingerprint())
			})
			if err != nil {
				contract.LogWarn("Rules watcher stopped", err)
			}
		}()
	}

	s := NewMCPServer(baseCfg, mgr, rules, metrics)
	return server.ServeStdio(s)
}
