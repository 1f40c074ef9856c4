package ruleset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/huangsam/repopulse/schema"
	"github.com/spf13/viper"
)

// DefaultsSource is the Source of a snapshot built without a rules file.
const DefaultsSource = "defaults"

// Store holds the current snapshot. Readers call Current and keep the pointer for a whole run;
// Reload swaps in a fully compiled replacement so readers never see a partial ruleset.
type Store struct {
	path    string
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes reloads
}

// NewStore returns a store primed with the built-in defaults.
// An empty path means the defaults are always used.
func NewStore(path string) *Store {
	s := &Store{path: path}
	s.current.Store(MustCompile(Default(), DefaultsSource))
	return s
}

// Path returns the rules file path the store reads.
func (s *Store) Path() string { return s.path }

// Current returns the active snapshot.
func (s *Store) Current() *Snapshot { return s.current.Load() }

// Load reads the rules file and makes it current. It is an alias of Reload kept for call-site clarity.
func (s *Store) Load() (*Snapshot, error) { return s.Reload() }

// Reload re-reads the rules file and atomically swaps the snapshot.
// On error the previous snapshot stays current.
func (s *Store) Reload() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}

// ReadFile compiles the rules file at path. A missing file or empty path yields the defaults.
// Fields the file does not set keep their default values.
func ReadFile(path string) (*Snapshot, error) {
	if path == "" {
		return Compile(Default(), DefaultsSource)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Compile(Default(), DefaultsSource)
	}

	// Mapping keys may contain dots, so the default key delimiter cannot be used.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	var raw schema.Ruleset
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode rules file %q: %w", path, err)
	}

	defaults := Default()
	if !v.IsSet("name_mappings") {
		raw.NameMappings = defaults.NameMappings
	}
	if !v.IsSet("normalization_rules") {
		raw.NormalizationRules = defaults.NormalizationRules
	}
	if !v.IsSet("ai_keywords") {
		raw.AIKeywords = defaults.AIKeywords
	}
	if !v.IsSet("ai_threshold") {
		raw.AIThreshold = defaults.AIThreshold
	}
	if !v.IsSet("file_types") {
		raw.FileTypes = defaults.FileTypes
	}
	if !v.IsSet("exclude_patterns") {
		raw.ExcludePatterns = defaults.ExcludePatterns
	}

	snap, err := Compile(raw, path)
	if err != nil {
		return nil, fmt.Errorf("invalid rules file %q: %w", path, err)
	}
	return snap, nil
}

// Watch reloads the store whenever the rules file is written or created.
// The directory is watched so editors that replace files atomically are handled.
// onReload receives each outcome; it may be nil. Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, onReload func(*Snapshot, error)) error {
	if s.path == "" {
		return errors.New("no rules file configured to watch")
	}
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rules watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			snap, err := s.Reload()
			if onReload != nil {
				onReload(snap, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onReload != nil {
				onReload(nil, err)
			}
		}
	}
}
