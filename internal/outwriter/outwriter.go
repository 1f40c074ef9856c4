// Package outwriter renders analysis output as tables, CSV or JSON.
package outwriter

import (
	"fmt"
	"io"
	"time"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
)

// WriteReport writes out in the configured output format and view.
func WriteReport(out schema.AnalysisOutput, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return WriteJSONReport(w, out, cfg.View)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVReport(w, out, cfg)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeTextReport(w, out, cfg, duration)
		}, "Wrote table")
	}
}

// LogAnalysisHeader prints a short header describing the analysis about to run.
func LogAnalysisHeader(w io.Writer, cfg *contract.Config, snap *ruleset.Snapshot) {
	view := cfg.View
	if view == "" {
		view = schema.FullView
	}
	_, _ = fmt.Fprintf(w, "🔎 Repos: %d (View: %s)\n", len(cfg.Targets), view)
	_, _ = fmt.Fprintf(w, "📅 Range: %s → %s\n", cfg.StartTime.Format(schema.DateLayout), cfg.EndTime.Format(schema.DateLayout))
	if snap != nil {
		_, _ = fmt.Fprintf(w, "📜 Rules: %s (%s)\n", snap.Source(), snap.ShortFingerprint())
	}
}
