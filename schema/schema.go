// Package schema has models, constants and records for all parts of repopulse.
package schema

import "time"

// DateLayout is the calendar-day layout used for every date that crosses a package boundary.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is not after End.
func (r DateRange) Valid() bool {
	return !r.Start.After(r.End)
}

// Contains reports whether the calendar day of t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	day := t.Format(DateLayout)
	return day >= r.Start.Format(DateLayout) && day <= r.End.Format(DateLayout)
}

// StartDay returns the start as YYYY-MM-DD.
func (r DateRange) StartDay() string { return r.Start.Format(DateLayout) }

// EndDay returns the end as YYYY-MM-DD.
func (r DateRange) EndDay() string { return r.End.Format(DateLayout) }

// RepoTarget identifies a repository to analyze and an optional display name.
type RepoTarget struct {
	Path string `json:"path" mapstructure:"path" yaml:"path"`
	Name string `json:"name,omitempty" mapstructure:"name" yaml:"name,omitempty"`
}

// FileChange is one numstat entry of a commit.
type FileChange struct {
	Path    string `json:"path"`
	Added   int    `json:"added"`
	Removed int    `json:"removed"`
	Binary  bool   `json:"binary,omitempty"`
}

// CommitRecord is a single commit parsed from the history of a repository.
type CommitRecord struct {
	Hash          string       `json:"hash"`
	AuthorRaw     string       `json:"authorRaw"`
	AuthorEmail   string       `json:"authorEmail,omitempty"`
	Date          time.Time    `json:"date"`
	Message       string       `json:"message"`
	DiffText      string       `json:"-"`
	LinesAdded    int          `json:"linesAdded"`
	LinesRemoved  int          `json:"linesRemoved"`
	FilesChanged  []FileChange `json:"filesChanged"`
	IsAIGenerated bool         `json:"isAiGenerated"`
	AIConfidence  float64      `json:"aiConfidence"`
}

// Day returns the commit date as YYYY-MM-DD.
func (c CommitRecord) Day() string { return c.Date.Format(DateLayout) }

// DeveloperStat accumulates the contributions of one canonical developer.
type DeveloperStat struct {
	Name           string  `json:"name"`
	Commits        int     `json:"commits"`
	LinesAdded     int     `json:"linesAdded"`
	LinesRemoved   int     `json:"linesRemoved"`
	AILinesAdded   int     `json:"aiLinesAdded"`
	AILinesRemoved int     `json:"aiLinesRemoved"`
	AICommits      int     `json:"aiCommits"`
	ConfidenceSum  float64 `json:"confidenceSum"`
	AIPercentage   float64 `json:"aiPercentage"`
	AvgConfidence  float64 `json:"avgConfidence"`
}

// Add folds a classified commit into the stat.
func (d *DeveloperStat) Add(c CommitRecord) {
	d.Commits++
	d.LinesAdded += c.LinesAdded
	d.LinesRemoved += c.LinesRemoved
	d.ConfidenceSum += c.AIConfidence
	if c.IsAIGenerated {
		d.AICommits++
		d.AILinesAdded += c.LinesAdded
		d.AILinesRemoved += c.LinesRemoved
	}
}

// Merge sums the numeric fields of other into d.
func (d *DeveloperStat) Merge(other DeveloperStat) {
	d.Commits += other.Commits
	d.LinesAdded += other.LinesAdded
	d.LinesRemoved += other.LinesRemoved
	d.AILinesAdded += other.AILinesAdded
	d.AILinesRemoved += other.AILinesRemoved
	d.AICommits += other.AICommits
	d.ConfidenceSum += other.ConfidenceSum
}

// Finalize computes the derived percentage fields.
func (d *DeveloperStat) Finalize() {
	d.AIPercentage = Percentage(d.AILinesAdded, d.LinesAdded)
	d.AvgConfidence = 0
	if d.Commits > 0 {
		d.AvgConfidence = d.ConfidenceSum / float64(d.Commits)
	}
}

// DayBucket is the per-day aggregate used for trend series.
type DayBucket struct {
	Date              string  `json:"date"`
	TotalLinesAdded   int     `json:"totalLinesAdded"`
	TotalLinesRemoved int     `json:"totalLinesRemoved"`
	AILinesAdded      int     `json:"aiLinesAdded"`
	AILinesRemoved    int     `json:"aiLinesRemoved"`
	Commits           int     `json:"commits"`
	AICommits         int     `json:"aiCommits"`
	AIPercentage      float64 `json:"aiPercentage"`
}

// Add folds a classified commit into the bucket.
func (b *DayBucket) Add(c CommitRecord) {
	b.Commits++
	b.TotalLinesAdded += c.LinesAdded
	b.TotalLinesRemoved += c.LinesRemoved
	if c.IsAIGenerated {
		b.AICommits++
		b.AILinesAdded += c.LinesAdded
		b.AILinesRemoved += c.LinesRemoved
	}
}

// LanguageStat is the line volume attributed to one detected language.
type LanguageStat struct {
	Language     string `json:"language"`
	LinesAdded   int    `json:"linesAdded"`
	LinesRemoved int    `json:"linesRemoved"`
}

// RepositoryResult is the outcome of analyzing one repository.
// A failed repository only carries Name, Path, Error and ErrorKind.
type RepositoryResult struct {
	Name                string          `json:"name"`
	Path                string          `json:"path"`
	StartDate           string          `json:"startDate,omitempty"`
	EndDate             string          `json:"endDate,omitempty"`
	TotalCommits        int             `json:"totalCommits"`
	TotalLinesAdded     int             `json:"totalLinesAdded"`
	TotalLinesRemoved   int             `json:"totalLinesRemoved"`
	TotalAILinesAdded   int             `json:"totalAiLinesAdded"`
	TotalAILinesRemoved int             `json:"totalAiLinesRemoved"`
	TotalAICommits      int             `json:"totalAiCommits"`
	OverallAIPercentage float64         `json:"overallAiPercentage"`
	DeveloperStats      []DeveloperStat `json:"developerStats"`
	TimeSeriesData      []DayBucket     `json:"timeSeriesData"`
	Languages           []LanguageStat  `json:"languages,omitempty"`
	Warnings            []string        `json:"warnings,omitempty"`
	Error               string          `json:"error,omitempty"`
	ErrorKind           string          `json:"errorKind,omitempty"`
	Cached              bool            `json:"cached,omitempty"`
}

// Failed reports whether the repository could not be analyzed.
func (r RepositoryResult) Failed() bool { return r.Error != "" }

// CombinedDeveloper is one row of the cross-repository developer table.
type CombinedDeveloper struct {
	DeveloperStat
	ContributionPercent float64  `json:"contributionPercent"`
	Repositories        []string `json:"repositories"`
}

// CombinedResult merges every successful RepositoryResult.
type CombinedResult struct {
	TotalRepositories      int                 `json:"totalRepositories"`
	SuccessfulRepositories int                 `json:"successfulRepositories"`
	FailedRepositories     int                 `json:"failedRepositories"`
	TotalCommits           int                 `json:"totalCommits"`
	TotalLinesAdded        int                 `json:"totalLinesAdded"`
	TotalLinesRemoved      int                 `json:"totalLinesRemoved"`
	TotalAILinesAdded      int                 `json:"totalAiLinesAdded"`
	TotalAILinesRemoved    int                 `json:"totalAiLinesRemoved"`
	TotalAICommits         int                 `json:"totalAiCommits"`
	OverallAIPercentage    float64             `json:"overallAiPercentage"`
	Developers             []CombinedDeveloper `json:"developers"`
	TimeSeriesData         []DayBucket         `json:"timeSeriesData"`
}

// AnalysisOutput is the envelope returned for a batch analysis.
type AnalysisOutput struct {
	RunID              string             `json:"runId"`
	Success            bool               `json:"success"`
	TotalRepos         int                `json:"totalRepos"`
	ValidRepos         int                `json:"validRepos"`
	StartDate          string             `json:"startDate"`
	EndDate            string             `json:"endDate"`
	RulesetFingerprint string             `json:"rulesetFingerprint"`
	Results            []RepositoryResult `json:"results"`
	Combined           CombinedResult     `json:"combined"`
}

// Percentage returns 100*part/whole, or 0 when whole is 0.
func Percentage(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}
