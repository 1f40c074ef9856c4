package core

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/huangsam/repopulse/core/identity"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
)

// Combine merges every successful repository result by canonical developer name.
// Names are normalized again with snap since results may come from older snapshots or the cache.
// Results are folded in path order, so totals and float averages do not depend on input order.
// Repositories sharing a name are listed as "name (path)".
func Combine(results []schema.RepositoryResult, snap *ruleset.Snapshot) schema.CombinedResult {
	out := schema.CombinedResult{TotalRepositories: len(results)}

	ordered := slices.Clone(results)
	slices.SortStableFunc(ordered, func(a, b schema.RepositoryResult) int {
		if c := cmp.Compare(repoKey(a), repoKey(b)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	devs := make(map[string]*schema.CombinedDeveloper)
	repos := make(map[string]map[string]string) // developer -> repo key -> name
	days := make(map[string]*schema.DayBucket)

	for _, r := range ordered {
		if r.Failed() {
			out.FailedRepositories++
			continue
		}
		out.SuccessfulRepositories++
		out.TotalCommits += r.TotalCommits
		out.TotalLinesAdded += r.TotalLinesAdded
		out.TotalLinesRemoved += r.TotalLinesRemoved
		out.TotalAILinesAdded += r.TotalAILinesAdded
		out.TotalAILinesRemoved += r.TotalAILinesRemoved
		out.TotalAICommits += r.TotalAICommits

		for _, d := range r.DeveloperStats {
			name := identity.Normalize(d.Name, snap)
			dev, ok := devs[name]
			if !ok {
				dev = &schema.CombinedDeveloper{DeveloperStat: schema.DeveloperStat{Name: name}}
				devs[name] = dev
				repos[name] = make(map[string]string)
			}
			dev.Merge(d)
			repos[name][repoKey(r)] = r.Name
		}

		for _, b := range r.TimeSeriesData {
			bucket, ok := days[b.Date]
			if !ok {
				bucket = &schema.DayBucket{Date: b.Date}
				days[b.Date] = bucket
			}
			mergeBucket(bucket, b)
		}
	}

	out.Developers = make([]schema.CombinedDeveloper, 0, len(devs))
	for name, dev := range devs {
		dev.Finalize()
		dev.ContributionPercent = schema.Percentage(dev.LinesAdded, out.TotalLinesAdded)
		dev.Repositories = repoLabels(repos[name])
		out.Developers = append(out.Developers, *dev)
	}
	slices.SortFunc(out.Developers, func(a, b schema.CombinedDeveloper) int {
		if c := cmp.Compare(b.LinesAdded, a.LinesAdded); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})

	out.TimeSeriesData = make([]schema.DayBucket, 0, len(days))
	for _, b := range days {
		b.AIPercentage = schema.Percentage(b.AILinesAdded, b.TotalLinesAdded)
		out.TimeSeriesData = append(out.TimeSeriesData, *b)
	}
	slices.SortFunc(out.TimeSeriesData, func(a, b schema.DayBucket) int {
		return cmp.Compare(a.Date, b.Date)
	})

	out.OverallAIPercentage = schema.Percentage(out.TotalAILinesAdded, out.TotalLinesAdded)
	return out
}

// repoKey identifies a repository by path, falling back to its name.
func repoKey(r schema.RepositoryResult) string {
	if r.Path != "" {
		return r.Path
	}
	return r.Name
}

// repoLabels returns sorted display names. Names shared by several paths carry the path.
func repoLabels(byKey map[string]string) []string {
	seen := make(map[string]int, len(byKey))
	for _, name := range byKey {
		seen[name]++
	}
	labels := make([]string, 0, len(byKey))
	for key, name := range byKey {
		if seen[name] > 1 && key != name {
			name = fmt.Sprintf("%s (%s)", name, key)
		}
		labels = append(labels, name)
	}
	slices.Sort(labels)
	return labels
}

func mergeBucket(dst *schema.DayBucket, src schema.DayBucket) {
	dst.TotalLinesAdded += src.TotalLinesAdded
	dst.TotalLinesRemoved += src.TotalLinesRemoved
	dst.AILinesAdded += src.AILinesAdded
	dst.AILinesRemoved += src.AILinesRemoved
	dst.Commits += src.Commits
	dst.AICommits += src.AICommits
}
