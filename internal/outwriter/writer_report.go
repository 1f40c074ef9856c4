package outwriter

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/schema"
)

// WriteJSONReport writes the whole output for the full view and only the relevant section otherwise.
func WriteJSONReport(w io.Writer, out schema.AnalysisOutput, view schema.ReportView) error {
	switch view {
	case schema.DevelopersView:
		return writeJSON(w, out.Combined.Developers)
	case schema.TrendView:
		return writeJSON(w, out.Combined.TimeSeriesData)
	default:
		return writeJSON(w, out)
	}
}

// writeCSVReport writes one flat table per view.
// The full view emits one row per repository and developer.
func writeCSVReport(w io.Writer, out schema.AnalysisOutput, cfg *contract.Config) error {
	fmtPct := percentFormatter(cfg.Precision)
	switch cfg.View {
	case schema.DevelopersView:
		return writeDevelopersCSV(w, out.Combined.Developers, fmtPct)
	case schema.TrendView:
		return writeTrendCSV(w, out.Combined.TimeSeriesData, fmtPct)
	default:
		return writeRepositoryCSV(w, out.Results, fmtPct)
	}
}

func writeRepositoryCSV(w io.Writer, results []schema.RepositoryResult, fmtPct func(float64) string) error {
	header := []string{"repository", "developer", "commits", "lines_added", "lines_removed", "ai_lines_added", "ai_lines_removed", "ai_commits", "ai_percentage", "label", "error"}
	return writeCSV(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			if r.Failed() {
				if err := cw.Write([]string{r.Name, "", "", "", "", "", "", "", "", "", r.Error}); err != nil {
					return err
				}
				continue
			}
			for _, d := range r.DeveloperStats {
				rec := []string{
					r.Name,
					d.Name,
					strconv.Itoa(d.Commits),
					strconv.Itoa(d.LinesAdded),
					strconv.Itoa(d.LinesRemoved),
					strconv.Itoa(d.AILinesAdded),
					strconv.Itoa(d.AILinesRemoved),
					strconv.Itoa(d.AICommits),
					fmtPct(d.AIPercentage),
					contract.GetShareLabel(d.AIPercentage),
					"",
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func writeDevelopersCSV(w io.Writer, devs []schema.CombinedDeveloper, fmtPct func(float64) string) error {
	header := []string{"rank", "developer", "commits", "lines_added", "lines_removed", "ai_lines_added", "ai_commits", "ai_percentage", "label", "contribution_percentage", "repositories"}
	return writeCSV(w, header, func(cw *csv.Writer) error {
		for i, d := range devs {
			rec := []string{
				strconv.Itoa(i + 1),
				d.Name,
				strconv.Itoa(d.Commits),
				strconv.Itoa(d.LinesAdded),
				strconv.Itoa(d.LinesRemoved),
				strconv.Itoa(d.AILinesAdded),
				strconv.Itoa(d.AICommits),
				fmtPct(d.AIPercentage),
				contract.GetShareLabel(d.AIPercentage),
				fmtPct(d.ContributionPercent),
				strings.Join(d.Repositories, "|"),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeTrendCSV(w io.Writer, days []schema.DayBucket, fmtPct func(float64) string) error {
	header := []string{"date", "commits", "ai_commits", "lines_added", "lines_removed", "ai_lines_added", "ai_lines_removed", "ai_percentage"}
	return writeCSV(w, header, func(cw *csv.Writer) error {
		for _, d := range days {
			rec := []string{
				d.Date,
				strconv.Itoa(d.Commits),
				strconv.Itoa(d.AICommits),
				strconv.Itoa(d.TotalLinesAdded),
				strconv.Itoa(d.TotalLinesRemoved),
				strconv.Itoa(d.AILinesAdded),
				strconv.Itoa(d.AILinesRemoved),
				fmtPct(d.AIPercentage),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
