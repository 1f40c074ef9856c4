package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeTextReport renders the sections of the selected view followed by a summary footer.
func writeTextReport(w io.Writer, out schema.AnalysisOutput, cfg *contract.Config, duration time.Duration) error {
	fmtPct := percentFormatter(cfg.Precision)

	switch cfg.View {
	case schema.DevelopersView:
		if err := writeDeveloperTable(w, out.Combined.Developers, cfg, fmtPct); err != nil {
			return err
		}
	case schema.TrendView:
		if err := writeTrendTable(w, out.Combined.TimeSeriesData, fmtPct); err != nil {
			return err
		}
	default:
		if err := writeRepositoryTable(w, out.Results, cfg, fmtPct); err != nil {
			return err
		}
		if err := writeProblems(w, out.Results); err != nil {
			return err
		}
		if err := writeDeveloperTable(w, out.Combined.Developers, cfg, fmtPct); err != nil {
			return err
		}
		if cfg.ShowTrend {
			if err := writeTrendTable(w, out.Combined.TimeSeriesData, fmtPct); err != nil {
				return err
			}
		}
	}
	return writeFooter(w, out, cfg, duration, fmtPct)
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func renderTable(table *tablewriter.Table, data [][]string) error {
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// shareLabel colors the AI share label unless colors are disabled.
func shareLabel(pct float64, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorShareLabel(pct)
	}
	return contract.GetShareLabel(pct)
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}

func writeRepositoryTable(w io.Writer, results []schema.RepositoryResult, cfg *contract.Config, fmtPct func(float64) string) error {
	width := nameColumnWidth(cfg)
	table := newTable(w, []string{"Repository", "Commits", "Lines +", "Lines -", "AI Lines", "AI %", "Share", "Status"})

	data := make([][]string, 0, len(results))
	for _, r := range results {
		name := contract.TruncatePath(r.Name, width)
		if r.Failed() {
			data = append(data, []string{name, "-", "-", "-", "-", "-", "-", r.ErrorKind})
			continue
		}
		status := "ok"
		if r.Cached {
			status = "cached"
		}
		data = append(data, []string{
			name,
			comma(r.TotalCommits),
			comma(r.TotalLinesAdded),
			comma(r.TotalLinesRemoved),
			comma(r.TotalAILinesAdded),
			fmtPct(r.OverallAIPercentage),
			shareLabel(r.OverallAIPercentage, cfg),
			status,
		})
	}
	return renderTable(table, data)
}

// writeProblems lists repository errors and warnings below the repository table.
func writeProblems(w io.Writer, results []schema.RepositoryResult) error {
	for _, r := range results {
		if r.Failed() {
			if _, err := fmt.Fprintf(w, "❌ %s: %s\n", r.Name, r.Error); err != nil {
				return err
			}
		}
		for _, warning := range r.Warnings {
			if _, err := fmt.Fprintf(w, "⚠️  %s: %s\n", r.Name, warning); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeDeveloperTable(w io.Writer, devs []schema.CombinedDeveloper, cfg *contract.Config, fmtPct func(float64) string) error {
	width := nameColumnWidth(cfg)
	table := newTable(w, []string{"Rank", "Developer", "Commits", "Lines +", "Lines -", "AI Lines", "AI %", "Share", "Contrib %", "Repos"})

	limit := len(devs)
	if cfg.ResultLimit > 0 {
		limit = min(limit, cfg.ResultLimit)
	}
	data := make([][]string, 0, limit)
	for i, d := range devs[:limit] {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(d.Name, width),
			comma(d.Commits),
			comma(d.LinesAdded),
			comma(d.LinesRemoved),
			comma(d.AILinesAdded),
			fmtPct(d.AIPercentage),
			shareLabel(d.AIPercentage, cfg),
			fmtPct(d.ContributionPercent),
			strconv.Itoa(len(d.Repositories)),
		})
	}
	if err := renderTable(table, data); err != nil {
		return err
	}
	if limit < len(devs) {
		_, err := fmt.Fprintf(w, "Showing top %d of %d developers\n", limit, len(devs))
		return err
	}
	return nil
}

func writeTrendTable(w io.Writer, days []schema.DayBucket, fmtPct func(float64) string) error {
	table := newTable(w, []string{"Date", "Commits", "AI Commits", "Lines +", "AI Lines", "AI %", "Trend"})

	peak := 0.0
	for _, d := range days {
		peak = max(peak, d.AIPercentage)
	}
	data := make([][]string, 0, len(days))
	for _, d := range days {
		data = append(data, []string{
			d.Date,
			comma(d.Commits),
			comma(d.AICommits),
			comma(d.TotalLinesAdded),
			comma(d.AILinesAdded),
			fmtPct(d.AIPercentage),
			sparkBar(d.AIPercentage, peak),
		})
	}
	return renderTable(table, data)
}

// sparkBar draws a bar of up to 10 cells scaled to the peak value.
func sparkBar(v, peak float64) string {
	if peak <= 0 || v <= 0 {
		return ""
	}
	cells := max(1, int(v/peak*10+0.5))
	return strings.Repeat("█", cells)
}

func writeFooter(w io.Writer, out schema.AnalysisOutput, cfg *contract.Config, duration time.Duration, fmtPct func(float64) string) error {
	c := out.Combined
	if _, err := fmt.Fprintf(w, "Analyzed %d of %d repositories: %s commits, %s lines added, %s%% AI (%s)\n",
		c.SuccessfulRepositories, c.TotalRepositories,
		comma(c.TotalCommits), comma(c.TotalLinesAdded),
		fmtPct(c.OverallAIPercentage), contract.GetShareLabel(c.OverallAIPercentage)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers. Cache backend: %s\n",
		duration.Round(time.Millisecond), cfg.Workers, cfg.CacheBackend)
	return err
}
