// Package classify scores commits against the ruleset keyword table.
package classify

import (
	"strings"

	"github.com/huangsam/repopulse/internal/ruleset"
)

// Verdict is the outcome of classifying one commit.
type Verdict struct {
	IsAI       bool     `json:"isAi"`
	Confidence float64  `json:"confidence"`
	Score      float64  `json:"score"`
	Matches    []string `json:"matches,omitempty"`
}

// Classify scores message and diff. Each keyword contributes its weight at most once,
// whether it matches the message, the diff, or both. The commit is AI-assisted when
// the cumulative score reaches the snapshot threshold; confidence is the score clamped to [0,1].
func Classify(message, diff string, snap *ruleset.Snapshot) Verdict {
	if snap == nil || (strings.TrimSpace(message) == "" && strings.TrimSpace(diff) == "") {
		return Verdict{}
	}

	lowMsg := strings.ToLower(message)
	lowDiff := strings.ToLower(diff)

	var v Verdict
	for _, kw := range snap.Keywords() {
		if kw.Weight == 0 {
			continue
		}
		if kw.Match(lowMsg, message) || (diff != "" && kw.Match(lowDiff, diff)) {
			v.Score += kw.Weight
			v.Matches = append(v.Matches, kw.Pattern)
		}
	}

	v.Confidence = clamp01(v.Score)
	v.IsAI = v.Score > 0 && v.Score >= snap.Threshold()
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
