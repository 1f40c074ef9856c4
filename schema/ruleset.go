package schema

// Keyword is one weighted AI indicator.
// Plain keywords match by case-insensitive substring; Regex keywords are compiled case-insensitive.
type Keyword struct {
	Pattern string  `json:"pattern" mapstructure:"pattern" yaml:"pattern"`
	Weight  float64 `json:"weight" mapstructure:"weight" yaml:"weight"`
	Regex   bool    `json:"regex,omitempty" mapstructure:"regex" yaml:"regex,omitempty"`
}

// NormalizationRule rewrites an identity lookup key before the mapping table is consulted.
type NormalizationRule struct {
	Pattern     string `json:"pattern" mapstructure:"pattern" yaml:"pattern"`
	Replacement string `json:"replacement" mapstructure:"replacement" yaml:"replacement"`
}

// Ruleset is the serializable form of the attribution rules.
type Ruleset struct {
	NameMappings       map[string]string   `json:"nameMappings" mapstructure:"name_mappings" yaml:"name_mappings"`
	NormalizationRules []NormalizationRule `json:"normalizationRules" mapstructure:"normalization_rules" yaml:"normalization_rules"`
	AIKeywords         []Keyword           `json:"aiKeywords" mapstructure:"ai_keywords" yaml:"ai_keywords"`
	AIThreshold        float64             `json:"aiThreshold" mapstructure:"ai_threshold" yaml:"ai_threshold"`
	FileTypes          []string            `json:"fileTypes" mapstructure:"file_types" yaml:"file_types"`
	ExcludePatterns    []string            `json:"excludePatterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
}
