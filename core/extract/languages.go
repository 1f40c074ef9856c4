package extract

import (
	"cmp"
	"path/filepath"
	"slices"

	"github.com/huangsam/repopulse/schema"
	"github.com/src-d/enry/v2"
)

// otherLanguage groups paths enry cannot identify.
const otherLanguage = "Other"

// Language detects the language of a path from its name alone.
func Language(path string) string {
	if lang := enry.GetLanguage(filepath.Base(path), nil); lang != "" {
		return lang
	}
	return otherLanguage
}

// Languages sums qualifying line volume per detected language,
// sorted by lines added descending then language name.
func Languages(records []schema.CommitRecord) []schema.LanguageStat {
	byLang := make(map[string]*schema.LanguageStat)
	for _, rec := range records {
		for _, fc := range rec.FilesChanged {
			if fc.Binary {
				continue
			}
			lang := Language(fc.Path)
			stat, ok := byLang[lang]
			if !ok {
				stat = &schema.LanguageStat{Language: lang}
				byLang[lang] = stat
			}
			stat.LinesAdded += fc.Added
			stat.LinesRemoved += fc.Removed
		}
	}

	out := make([]schema.LanguageStat, 0, len(byLang))
	for _, stat := range byLang {
		out = append(out, *stat)
	}
	slices.SortFunc(out, func(a, b schema.LanguageStat) int {
		if c := cmp.Compare(b.LinesAdded, a.LinesAdded); c != 0 {
			return c
		}
		return cmp.Compare(a.Language, b.Language)
	})
	return out
}
