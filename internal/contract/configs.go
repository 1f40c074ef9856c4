package contract

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/repopulse/schema"
)

// Default values for configuration.
const (
	DefaultLookbackDays = 30
	DefaultResultLimit  = 25
	MaxResultLimit      = 1000
	DefaultPrecision    = 1
	DefaultMaxDiffBytes = 256 * 1024
)

// DefaultWorkers is the default number of concurrent repository analyses.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for an analysis.
// This struct is the "final, validated" config.
type Config struct {
	Targets      []schema.RepoTarget
	StartTime    time.Time
	EndTime      time.Time
	Workers      int
	GitTimeout   time.Duration
	ScanDiffs    bool
	MaxDiffBytes int
	RulesPath    string
	WatchRules   bool

	Output      schema.OutputMode
	OutputFile  string
	Precision   int
	ResultLimit int
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	View        schema.ReportView
	ShowTrend   bool // include the daily series in the full view

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// Set manually from positional args, so no tag
	TargetArgs []string

	Repositories     []schema.RepoTarget `mapstructure:"repositories"`
	Start            string              `mapstructure:"start"`
	End              string              `mapstructure:"end"`
	Workers          int                 `mapstructure:"workers"`
	GitTimeout       string              `mapstructure:"git-timeout"`
	ScanDiffs        bool                `mapstructure:"scan-diffs"`
	MaxDiffBytes     int                 `mapstructure:"max-diff-bytes"`
	Rules            string              `mapstructure:"rules"`
	WatchRules       bool                `mapstructure:"watch-rules"`
	Output           string              `mapstructure:"output"`
	OutputFile       string              `mapstructure:"output-file"`
	Precision        int                 `mapstructure:"precision"`
	Limit            int                 `mapstructure:"limit"`
	Width            int                 `mapstructure:"width"`
	Color            string              `mapstructure:"color"`
	CacheBackend     string              `mapstructure:"cache-backend"`
	CacheDBConnect   string              `mapstructure:"cache-db-connect"`
	HistoryBackend   string              `mapstructure:"history-backend"`
	HistoryDBConnect string              `mapstructure:"history-db-connect"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Targets != nil {
		clone.Targets = make([]schema.RepoTarget, len(c.Targets))
		copy(clone.Targets, c.Targets)
	}
	return &clone
}

// DateRange returns the configured inclusive range.
func (c *Config) DateRange() schema.DateRange {
	return schema.DateRange{Start: c.StartTime, End: c.EndTime}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
// The ordering of start and end is checked by the batch runner, not here.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	return processTargets(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseBackend lowercases and validates a backend name. Empty means none.
func ParseBackend(raw string) (schema.DatabaseBackend, error) {
	if strings.TrimSpace(raw) == "" {
		return schema.NoneBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", raw)
	}
	return backend, nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	backend, err := ParseBackend(input.CacheBackend)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	cfg.CacheBackend = backend
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	backend, err = ParseBackend(input.HistoryBackend)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		historyPath := cfg.HistoryDBConnect
		if historyPath == "" {
			historyPath = GetHistoryDBFilePath()
		}
		if filepath.Clean(cachePath) == filepath.Clean(historyPath) {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates all non-date, non-target fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.ScanDiffs = input.ScanDiffs
	cfg.RulesPath = strings.TrimSpace(input.Rules)
	cfg.WatchRules = input.WatchRules
	if cfg.View == "" {
		cfg.View = schema.FullView
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Limit <= 0 || input.Limit > MaxResultLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxResultLimit, input.Limit)
	}
	cfg.ResultLimit = input.Limit

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	cfg.GitTimeout = DefaultGitTimeout
	if strings.TrimSpace(input.GitTimeout) != "" {
		timeout, err := time.ParseDuration(strings.TrimSpace(input.GitTimeout))
		if err != nil || timeout <= 0 {
			return fmt.Errorf("git-timeout must be a positive duration such as 30s (received %q)", input.GitTimeout)
		}
		cfg.GitTimeout = timeout
	}

	if input.MaxDiffBytes < 0 {
		return fmt.Errorf("max-diff-bytes cannot be negative (received %d)", input.MaxDiffBytes)
	}
	cfg.MaxDiffBytes = input.MaxDiffBytes
	if cfg.MaxDiffBytes == 0 {
		cfg.MaxDiffBytes = DefaultMaxDiffBytes
	}

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json", cfg.Output)
	}

	return validateBackendConfigs(cfg, input)
}

// processTimeRange parses start and end. Missing values default to the last DefaultLookbackDays days.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	cfg.EndTime = truncateDay(now)
	cfg.StartTime = cfg.EndTime.AddDate(0, 0, -DefaultLookbackDays)

	if input.Start != "" {
		t, err := ParseDate(input.Start, now)
		if err != nil {
			return fmt.Errorf("invalid start: %w", err)
		}
		cfg.StartTime = t
	}
	if input.End != "" {
		t, err := ParseDate(input.End, now)
		if err != nil {
			return fmt.Errorf("invalid end: %w", err)
		}
		cfg.EndTime = t
	}
	return nil
}

// processTargets merges positional targets with the repositories list from the config file.
func processTargets(cfg *Config, input *ConfigRawInput) error {
	cfg.Targets = nil
	for _, arg := range input.TargetArgs {
		target, err := ParseTarget(arg)
		if err != nil {
			return err
		}
		cfg.Targets = append(cfg.Targets, target)
	}
	for _, repo := range input.Repositories {
		if strings.TrimSpace(repo.Path) == "" {
			return fmt.Errorf("repositories entry %q has an empty path", repo.Name)
		}
		cfg.Targets = append(cfg.Targets, schema.RepoTarget{Path: strings.TrimSpace(repo.Path), Name: strings.TrimSpace(repo.Name)})
	}
	return nil
}

// ParseTarget parses "path" or "name=path" into a RepoTarget.
func ParseTarget(arg string) (schema.RepoTarget, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return schema.RepoTarget{}, fmt.Errorf("repository target cannot be empty")
	}
	if name, path, ok := strings.Cut(arg, "="); ok {
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if path == "" {
			return schema.RepoTarget{}, fmt.Errorf("repository target %q has an empty path", arg)
		}
		return schema.RepoTarget{Path: path, Name: name}, nil
	}
	return schema.RepoTarget{Path: arg}, nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
}
