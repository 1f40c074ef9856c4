package classify

import (
	"testing"

	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
	"github.com/stretchr/testify/assert"
)

func testSnapshot(threshold float64, keywords ...schema.Keyword) *ruleset.Snapshot {
	return ruleset.MustCompile(schema.Ruleset{AIKeywords: keywords, AIThreshold: threshold}, "test")
}

func TestClassify(t *testing.T) {
	snap := testSnapshot(1.0,
		schema.Keyword{Pattern: "Copilot", Weight: 1.0},
		schema.Keyword{Pattern: "assisted", Weight: 0.5},
		schema.Keyword{Pattern: "refactor", Weight: 0.15},
		schema.Keyword{Pattern: `generated\s+by\s+ai`, Weight: 1.0, Regex: true},
	)

	tests := []struct {
		name       string
		message    string
		diff       string
		isAI       bool
		confidence float64
		matches    int
	}{
		{"empty input", "", "", false, 0, 0},
		{"whitespace only", "  \n", "", false, 0, 0},
		{"no keywords", "add login page", "", false, 0, 0},
		{"single high keyword in diff", "add login page", "+// copilot suggestion", true, 1.0, 1},
		{"case insensitive message", "COPILOT wrote this", "", true, 1.0, 1},
		{"below threshold", "assisted refactor", "", false, 0.65, 2},
		{"regex across whitespace", "Generated   by AI", "", true, 1.0, 1},
		{"keyword counted once", "copilot copilot", "+copilot", true, 1.0, 1},
		{"medium keyword plus pattern", "assisted", "+ Generated by ai", true, 1.0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Classify(tt.message, tt.diff, snap)
			assert.Equal(t, tt.isAI, v.IsAI)
			assert.InDelta(t, tt.confidence, v.Confidence, 1e-9)
			assert.Len(t, v.Matches, tt.matches)
			assert.GreaterOrEqual(t, v.Confidence, 0.0)
			assert.LessOrEqual(t, v.Confidence, 1.0)
		})
	}
}

func TestClassifyScoreAboveOneClamps(t *testing.T) {
	snap := testSnapshot(1.0,
		schema.Keyword{Pattern: "cursor", Weight: 1.0},
		schema.Keyword{Pattern: "claude", Weight: 1.0},
	)
	v := Classify("cursor and claude", "", snap)
	assert.True(t, v.IsAI)
	assert.Equal(t, 2.0, v.Score)
	assert.Equal(t, 1.0, v.Confidence)
}

func TestClassifyCustomThreshold(t *testing.T) {
	snap := testSnapshot(2.0, schema.Keyword{Pattern: "gpt", Weight: 1.0})
	v := Classify("gpt", "", snap)
	assert.False(t, v.IsAI)
	assert.Equal(t, 1.0, v.Confidence)
}

func TestClassifyNoKeywords(t *testing.T) {
	snap := testSnapshot(1.0)
	v := Classify("written by copilot", "+ai generated", snap)
	assert.Equal(t, Verdict{}, v)
}

func TestClassifyDeterministic(t *testing.T) {
	snap := ruleset.MustCompile(ruleset.Default(), ruleset.DefaultsSource)
	first := Classify("Fix bug with Cursor assisted refactor", "+// Generated by AI\n", snap)
	for range 20 {
		assert.Equal(t, first, Classify("Fix bug with Cursor assisted refactor", "+// Generated by AI\n", snap))
	}
	assert.True(t, first.IsAI)
}

func TestClassifyNilSnapshot(t *testing.T) {
	assert.Equal(t, Verdict{}, Classify("copilot", "", nil))
}

func FuzzClassify(f *testing.F) {
	snap := ruleset.MustCompile(ruleset.Default(), ruleset.DefaultsSource)
	f.Add("Refactor with copilot", "+x := 1")
	f.Add("", "")
	f.Fuzz(func(t *testing.T, message, diff string) {
		v := Classify(message, diff, snap)
		if v.Confidence < 0 || v.Confidence > 1 {
			t.Fatalf("confidence out of range: %v", v.Confidence)
		}
		if v.IsAI && v.Score < snap.Threshold() {
			t.Fatalf("IsAI with score %v below threshold", v.Score)
		}
	})
}
