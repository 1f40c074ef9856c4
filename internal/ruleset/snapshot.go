// Package ruleset compiles, stores and reloads the attribution rules used by an analysis.
package ruleset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/repopulse/schema"
)

// CompiledKeyword is a keyword ready for matching.
type CompiledKeyword struct {
	Pattern string // lowercased for plain keywords, as written for regex keywords
	Weight  float64
	Regex   *regexp.Regexp
}

// Match reports whether the keyword occurs in lowered (for plain keywords) or raw text (for regex keywords).
func (k CompiledKeyword) Match(lowered, raw string) bool {
	if k.Regex != nil {
		return k.Regex.MatchString(raw)
	}
	return strings.Contains(lowered, k.Pattern)
}

type compiledRule struct {
	re          *regexp.Regexp
	replacement string
}

// Snapshot is an immutable, compiled ruleset. It is safe for concurrent use.
type Snapshot struct {
	raw         schema.Ruleset
	mappings    map[string]string
	rules       []compiledRule
	keywords    []CompiledKeyword
	threshold   float64
	fileTypes   []string
	excludes    []string
	fingerprint string
	source      string
	loadedAt    time.Time
}

// Compile validates raw and builds a Snapshot. raw is copied; later changes to it have no effect.
func Compile(raw schema.Ruleset, source string) (*Snapshot, error) {
	raw = cloneRuleset(raw)
	if raw.AIThreshold == 0 {
		raw.AIThreshold = DefaultThreshold
	}
	if raw.AIThreshold < 0 {
		return nil, fmt.Errorf("ai_threshold must be greater than 0 (received %v)", raw.AIThreshold)
	}

	snap := &Snapshot{
		raw:       raw,
		mappings:  make(map[string]string, len(raw.NameMappings)),
		threshold: raw.AIThreshold,
		source:    source,
		loadedAt:  time.Now(),
	}

	for i, rule := range raw.NormalizationRules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("normalization rule %d (%q): %w", i, rule.Pattern, err)
		}
		snap.rules = append(snap.rules, compiledRule{re: re, replacement: rule.Replacement})
	}

	for i, kw := range raw.AIKeywords {
		if strings.TrimSpace(kw.Pattern) == "" {
			return nil, fmt.Errorf("ai keyword %d has an empty pattern", i)
		}
		if kw.Weight < 0 {
			return nil, fmt.Errorf("ai keyword %q has a negative weight", kw.Pattern)
		}
		compiled := CompiledKeyword{Pattern: strings.ToLower(kw.Pattern), Weight: kw.Weight}
		if kw.Regex {
			re, err := regexp.Compile("(?i)" + kw.Pattern)
			if err != nil {
				return nil, fmt.Errorf("ai keyword %q: %w", kw.Pattern, err)
			}
			compiled.Pattern = kw.Pattern
			compiled.Regex = re
		}
		snap.keywords = append(snap.keywords, compiled)
	}

	direct := make(map[string]string, len(raw.NameMappings))
	for key, canonical := range raw.NameMappings {
		k := snap.Key(key)
		if k == "" {
			return nil, fmt.Errorf("name mapping %q normalizes to an empty key", key)
		}
		direct[k] = canonical
	}
	for k := range direct {
		snap.mappings[k] = resolveMapping(k, direct, snap.Key)
	}

	for _, ext := range raw.FileTypes {
		if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
			snap.fileTypes = append(snap.fileTypes, ext)
		}
	}
	for _, ex := range raw.ExcludePatterns {
		if ex = strings.ToLower(strings.TrimSpace(ex)); ex != "" {
			snap.excludes = append(snap.excludes, ex)
		}
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint ruleset: %w", err)
	}
	sum := sha256.Sum256(encoded)
	snap.fingerprint = hex.EncodeToString(sum[:])

	return snap, nil
}

// MustCompile is like Compile but panics on error. Only for rulesets known to be valid.
func MustCompile(raw schema.Ruleset, source string) *Snapshot {
	snap, err := Compile(raw, source)
	if err != nil {
		panic(err)
	}
	return snap
}

// resolveMapping follows canonical names whose own key is mapped again, so lookups are idempotent.
// It stops at the first key already seen, which keeps cycles finite.
func resolveMapping(start string, direct map[string]string, key func(string) string) string {
	seen := map[string]struct{}{start: {}}
	current := direct[start]
	for {
		next := key(current)
		if _, visited := seen[next]; visited {
			return current
		}
		target, ok := direct[next]
		if !ok {
			return current
		}
		seen[next] = struct{}{}
		current = target
	}
}

// Key builds the identity lookup key: lowercase, no whitespace, then the normalization rules in order.
func (s *Snapshot) Key(raw string) string {
	key := strings.Join(strings.Fields(strings.ToLower(raw)), "")
	for _, rule := range s.rules {
		key = rule.re.ReplaceAllString(key, rule.replacement)
	}
	return key
}

// Canonical returns the canonical name registered for key.
func (s *Snapshot) Canonical(key string) (string, bool) {
	name, ok := s.mappings[key]
	return name, ok
}

// Keywords returns the compiled keyword table in declaration order.
func (s *Snapshot) Keywords() []CompiledKeyword { return s.keywords }

// Threshold returns the score at which a commit counts as AI-assisted.
func (s *Snapshot) Threshold() float64 { return s.threshold }

// FileTypes returns the lowercased extension allow-list. Empty allows every file.
func (s *Snapshot) FileTypes() []string { return s.fileTypes }

// Excludes returns the lowercased exclude patterns.
func (s *Snapshot) Excludes() []string { return s.excludes }

// Fingerprint is a SHA-256 over the normalized ruleset content.
func (s *Snapshot) Fingerprint() string { return s.fingerprint }

// ShortFingerprint returns the first 12 hex characters of the fingerprint.
func (s *Snapshot) ShortFingerprint() string { return s.fingerprint[:12] }

// Source names where the ruleset came from: a file path or "defaults".
func (s *Snapshot) Source() string { return s.source }

// LoadedAt is when the snapshot was compiled.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Ruleset returns a copy of the raw ruleset the snapshot was compiled from.
func (s *Snapshot) Ruleset() schema.Ruleset { return cloneRuleset(s.raw) }

func cloneRuleset(r schema.Ruleset) schema.Ruleset {
	out := r
	if r.NameMappings != nil {
		out.NameMappings = maps.Clone(r.NameMappings)
	}
	out.NormalizationRules = slices.Clone(r.NormalizationRules)
	out.AIKeywords = slices.Clone(r.AIKeywords)
	out.FileTypes = slices.Clone(r.FileTypes)
	out.ExcludePatterns = slices.Clone(r.ExcludePatterns)
	return out
}
