package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/repopulse/core/classify"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
)

// rulesetView is the JSON shape of an active ruleset.
type rulesetView struct {
	Source      string         `json:"source"`
	Fingerprint string         `json:"fingerprint"`
	LoadedAt    string         `json:"loadedAt"`
	Ruleset     schema.Ruleset `json:"ruleset"`
}

// WriteRuleset prints the active ruleset. CSV mode prints only the keyword table.
func WriteRuleset(w io.Writer, snap *ruleset.Snapshot, mode schema.OutputMode) error {
	raw := snap.Ruleset()
	switch mode {
	case schema.JSONOut:
		return writeJSON(w, rulesetView{
			Source:      snap.Source(),
			Fingerprint: snap.Fingerprint(),
			LoadedAt:    snap.LoadedAt().Format(time.RFC3339),
			Ruleset:     raw,
		})
	case schema.CSVOut:
		return writeCSV(w, []string{"pattern", "weight", "regex"}, func(cw *csv.Writer) error {
			for _, kw := range raw.AIKeywords {
				rec := []string{kw.Pattern, strconv.FormatFloat(kw.Weight, 'f', -1, 64), strconv.FormatBool(kw.Regex)}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if _, err := fmt.Fprintf(w, "📜 Source: %s\n🔑 Fingerprint: %s\n🎯 Threshold: %g\n",
		snap.Source(), snap.Fingerprint(), snap.Threshold()); err != nil {
		return err
	}

	keywords := make([][]string, 0, len(raw.AIKeywords))
	for _, kw := range raw.AIKeywords {
		kind := "substring"
		if kw.Regex {
			kind = "regex"
		}
		keywords = append(keywords, []string{kw.Pattern, strconv.FormatFloat(kw.Weight, 'f', -1, 64), kind})
	}
	if err := renderTable(newTable(w, []string{"Keyword", "Weight", "Kind"}), keywords); err != nil {
		return err
	}

	mappings := make([][]string, 0, len(raw.NameMappings))
	for _, key := range slices.Sorted(maps.Keys(raw.NameMappings)) {
		mappings = append(mappings, []string{key, raw.NameMappings[key]})
	}
	if err := renderTable(newTable(w, []string{"Identity", "Canonical Name"}), mappings); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "File types: %s\nExcludes: %s\n",
		strings.Join(raw.FileTypes, " "), strings.Join(raw.ExcludePatterns, " "))
	return err
}

// verdictView is the JSON shape of a classification.
type verdictView struct {
	classify.Verdict
	Threshold float64 `json:"threshold"`
}

// WriteVerdict prints a single classification result.
func WriteVerdict(w io.Writer, v classify.Verdict, threshold float64, mode schema.OutputMode) error {
	if mode == schema.JSONOut {
		return writeJSON(w, verdictView{Verdict: v, Threshold: threshold})
	}

	answer := "no"
	if v.IsAI {
		answer = "yes"
	}
	if _, err := fmt.Fprintf(w, "🤖 AI-assisted: %s (score %.2f, confidence %.2f, threshold %.2f)\n",
		answer, v.Score, v.Confidence, threshold); err != nil {
		return err
	}
	matches := "none"
	if len(v.Matches) > 0 {
		matches = strings.Join(v.Matches, ", ")
	}
	_, err := fmt.Fprintf(w, "Matches: %s\n", matches)
	return err
}
