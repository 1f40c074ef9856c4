package ruleset

import "github.com/huangsam/repopulse/schema"

// Keyword tier weights.
const (
	HighWeight    = 1.0
	MediumWeight  = 0.5
	LowWeight     = 0.15
	PatternWeight = 1.0

	DefaultThreshold = 1.0
)

var (
	highKeywords = []string{
		"cursor", "copilot", "chatgpt", "gpt", "claude", "bard", "gemini",
		"ai generated", "ai-assisted", "ai helped", "ai suggested",
		"auto-generated", "generated code", "boilerplate",
	}
	mediumKeywords = []string{
		"intellisense", "autocomplete", "code completion",
		"assisted", "helped by", "suggested by", "generated",
	}
	lowKeywords = []string{
		"refactor", "optimize", "improve", "enhance", "update",
		"fix", "bug", "feature", "implement", "complete",
	}
	messagePatterns = []string{
		`ai\s+generated`,
		`generated\s+by\s+ai`,
		`cursor\s+assisted`,
		`copilot\s+suggestion`,
		`auto\s+generated`,
	}
	contentPatterns = []string{
		`//\s*Generated\s+by\s+AI`,
		`<!--\s*AI\s+Generated\s*-->`,
		`#\s*AI\s+Generated`,
		`//\s*Cursor\s+assisted`,
	}
)

// Default returns a fresh copy of the built-in ruleset.
func Default() schema.Ruleset {
	var keywords []schema.Keyword
	for _, k := range highKeywords {
		keywords = append(keywords, schema.Keyword{Pattern: k, Weight: HighWeight})
	}
	for _, k := range mediumKeywords {
		keywords = append(keywords, schema.Keyword{Pattern: k, Weight: MediumWeight})
	}
	for _, k := range lowKeywords {
		keywords = append(keywords, schema.Keyword{Pattern: k, Weight: LowWeight})
	}
	for _, p := range messagePatterns {
		keywords = append(keywords, schema.Keyword{Pattern: p, Weight: PatternWeight, Regex: true})
	}
	for _, p := range contentPatterns {
		keywords = append(keywords, schema.Keyword{Pattern: p, Weight: PatternWeight, Regex: true})
	}

	return schema.Ruleset{
		NameMappings: map[string]string{
			"sonikumari":       "Soni Kumari",
			"mukundsingh":      "Mukund Singh",
			"vaibhavbhatia":    "Vaibhav Bhatia",
			"siddharthvatsal":  "Siddharth Vatsal",
			"shiwanshukashyap": "Shiwanshu Kashyap",
			"nidhibansal":      "Nidhi Bansal",
			"nikhilmanglik":    "Nikhil Manglik",
			"akashgupta1":      "Akash Gupta",
			"jainagpal":        "Jai Nagpal",
			"jainagpal1":       "Jai Nagpal",
			"jainagpal2":       "Jai Nagpal",
		},
		NormalizationRules: []schema.NormalizationRule{
			{Pattern: `\s+`, Replacement: ""},
		},
		AIKeywords:  keywords,
		AIThreshold: DefaultThreshold,
		FileTypes: []string{
			".cs", ".js", ".ts", ".py", ".java", ".cpp", ".c", ".h",
			".php", ".rb", ".go", ".swift", ".kt", ".scala", ".rs",
			".jsx", ".tsx", ".vue", ".svelte", ".r", ".m", ".mm",
		},
		ExcludePatterns: []string{
			".config", ".json", ".xml", ".md", ".txt", ".yml", ".yaml",
			".lock", ".log", ".gitignore", ".editorconfig", ".env",
			".min.js", ".min.css", ".map", ".d.ts",
		},
	}
}
