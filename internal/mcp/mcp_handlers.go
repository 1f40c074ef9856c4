package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/repopulse/core"
	"github.com/huangsam/repopulse/core/classify"
	"github.com/huangsam/repopulse/core/identity"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/outwriter"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/internal/telemetry"
	"github.com/huangsam/repopulse/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
	rules   *ruleset.Store
	metrics *telemetry.AnalysisMetrics
	client  contract.GitClient
}

var validViews = map[schema.ReportView]struct{}{
	schema.FullView:       {},
	schema.DevelopersView: {},
	schema.TrendView:      {},
}

func (h *toolHandler) handleAnalyzeRepositories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if repos := request.GetStringSlice("repositories", nil); len(repos) > 0 {
		cfg.Targets = cfg.Targets[:0]
		for _, repo := range repos {
			target, err := contract.ParseTarget(repo)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid repository: %v", err)), nil
			}
			cfg.Targets = append(cfg.Targets, target)
		}
	}
	if len(cfg.Targets) == 0 {
		return mcp.NewToolResultError("at least one repository is required"), nil
	}

	now := time.Now()
	if s := request.GetString("start", ""); s != "" {
		t, err := contract.ParseDate(s, now)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid start: %v", err)), nil
		}
		cfg.StartTime = t
	}
	if s := request.GetString("end", ""); s != "" {
		t, err := contract.ParseDate(s, now)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid end: %v", err)), nil
		}
		cfg.EndTime = t
	}
	if v := request.GetString("view", ""); v != "" {
		cfg.View = schema.ReportView(v)
	}
	if _, ok := validViews[cfg.View]; !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid view %q. must be full, developers or trend", cfg.View)), nil
	}
	cfg.ScanDiffs = request.GetBool("scan_diffs", cfg.ScanDiffs)

	opts := core.OptionsFromConfig(cfg)
	opts.Metrics = h.metrics
	out, err := core.RunAnalysis(core.WithSuppressHeader(ctx), h.client, h.mgr, cfg.Targets, cfg.DateRange(), h.rules.Current(), opts)
	if err != nil && !errors.Is(err, core.ErrNoRepositorySucceeded) {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}

	view := cfg.View
	if err != nil {
		// Every repository failed; the per-repository errors are in the full output.
		view = schema.FullView
	}
	var buf bytes.Buffer
	if werr := outwriter.WriteJSONReport(&buf, out, view); werr != nil {
		return nil, werr
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v\n%s", err, buf.String())), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (h *toolHandler) handleGetRuleset(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return rulesetResult(h.rules.Current())
}

func (h *toolHandler) handleReloadRuleset(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := h.rules.Reload()
	h.metrics.RecordReload(ctx, err)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reload failed, keeping ruleset %s: %v", h.rules.Current().ShortFingerprint(), err)), nil
	}
	return rulesetResult(snap)
}

func rulesetResult(snap *ruleset.Snapshot) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := outwriter.WriteRuleset(&buf, snap, schema.JSONOut); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}

// normalizedAuthor is the response of normalize_author.
type normalizedAuthor struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical"`
}

func (h *toolHandler) handleNormalizeAuthor(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	jsonData, _ := json.MarshalIndent(normalizedAuthor{
		Input:     name,
		Canonical: identity.Normalize(name, h.rules.Current()),
	}, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleClassifyCommit(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := request.GetString("message", "")
	if message == "" {
		return mcp.NewToolResultError("message is required"), nil
	}
	snap := h.rules.Current()
	verdict := classify.Classify(message, request.GetString("diff", ""), snap)

	var buf bytes.Buffer
	if err := outwriter.WriteVerdict(&buf, verdict, snap.Threshold(), schema.JSONOut); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(buf.String()), nil
}
