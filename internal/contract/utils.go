package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// AI share label constants.
const (
	HighShareValue     = "High"
	ModerateShareValue = "Moderate"
	LowShareValue      = "Low"
	NoneShareValue     = "None"
)

// Color variables for console output.
var (
	HighShareColor     = color.New(color.FgRed, color.Bold)
	ModerateShareColor = color.New(color.FgYellow)
	LowShareColor      = color.New(color.FgCyan)
	NoneShareColor     = color.New(color.FgHiBlack)
)

// GetShareLabel returns a plain label for an AI percentage.
// This is the core logic used for CSV, JSON, and table printing.
func GetShareLabel(aiPercentage float64) string {
	switch {
	case aiPercentage >= 50:
		return HighShareValue
	case aiPercentage >= 20:
		return ModerateShareValue
	case aiPercentage > 0:
		return LowShareValue
	default:
		return NoneShareValue
	}
}

// GetColorShareLabel returns a colored label for console output (table).
func GetColorShareLabel(aiPercentage float64) string {
	text := GetShareLabel(aiPercentage)
	switch text {
	case HighShareValue:
		return HighShareColor.Sprint(text)
	case ModerateShareValue:
		return ModerateShareColor.Sprint(text)
	case LowShareValue:
		return LowShareColor.Sprint(text)
	default:
		return NoneShareColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output.
// An empty path means stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// ShouldIgnore returns true if the given path matches any of the exclude patterns.
// It supports simple glob patterns (using filepath.Match) when the pattern
// contains wildcard characters (*, ?, [ ]). Patterns ending with '/' are treated
// as directory prefixes. Anything else, including dotted patterns like ".config"
// or ".env", matches anywhere in the path.
func ShouldIgnore(path string, excludes []string) bool {
	for _, ex := range excludes {
		ex = strings.TrimSpace(ex)
		if ex == "" {
			continue
		}

		if strings.ContainsAny(ex, "*?[") {
			pat := strings.ReplaceAll(ex, "**", "*")
			if ok, err := filepath.Match(pat, path); err == nil && ok {
				return true
			}
			// Also try matching against the base filename (e.g. *.min.js)
			if ok, err := filepath.Match(pat, filepath.Base(path)); err == nil && ok {
				return true
			}
			continue
		}

		switch {
		case strings.HasSuffix(ex, "/"):
			if strings.HasPrefix(path, ex) || strings.Contains(path, "/"+ex) {
				return true
			}
		case strings.Contains(path, ex):
			return true
		}
	}
	return false
}

// HasAllowedExtension reports whether path ends with one of the extensions.
// An empty extension list allows everything.
func HasAllowedExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if ext != "" && strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo logs an informational message to stderr.
func LogInfo(msg string) {
	_, _ = fmt.Fprintf(os.Stderr, "Info %s\n", msg)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the result cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repopulse_cache.db"
	}
	return filepath.Join(homeDir, ".repopulse_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repopulse_history.db"
	}
	return filepath.Join(homeDir, ".repopulse_history.db")
}

// TruncatePath truncates a path to a maximum width with an ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
