package ruleset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/repopulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileDefaults(t *testing.T) {
	snap, err := Compile(Default(), DefaultsSource)
	require.NoError(t, err)

	assert.Equal(t, DefaultThreshold, snap.Threshold())
	assert.Len(t, snap.Keywords(), len(highKeywords)+len(mediumKeywords)+len(lowKeywords)+len(messagePatterns)+len(contentPatterns))
	assert.Contains(t, snap.FileTypes(), ".go")
	assert.Contains(t, snap.Excludes(), ".min.js")
	assert.Len(t, snap.Fingerprint(), 64)
	assert.Len(t, snap.ShortFingerprint(), 12)
	assert.Equal(t, DefaultsSource, snap.Source())

	name, ok := snap.Canonical("sonikumari")
	assert.True(t, ok)
	assert.Equal(t, "Soni Kumari", name)
}

func TestCompileIsDeterministic(t *testing.T) {
	a := MustCompile(Default(), "a")
	b := MustCompile(Default(), "b")
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	changed := Default()
	changed.AIThreshold = 2
	c := MustCompile(changed, "c")
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestCompileCopiesInput(t *testing.T) {
	raw := Default()
	snap := MustCompile(raw, "x")
	raw.NameMappings["sonikumari"] = "Someone Else"
	raw.AIKeywords[0].Pattern = "mutated"

	name, _ := snap.Canonical("sonikumari")
	assert.Equal(t, "Soni Kumari", name)
	assert.Equal(t, "cursor", snap.Ruleset().AIKeywords[0].Pattern)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*schema.Ruleset)
	}{
		{"negative threshold", func(r *schema.Ruleset) { r.AIThreshold = -1 }},
		{"bad keyword regex", func(r *schema.Ruleset) { r.AIKeywords = []schema.Keyword{{Pattern: "(", Weight: 1, Regex: true}} }},
		{"empty keyword", func(r *schema.Ruleset) { r.AIKeywords = []schema.Keyword{{Pattern: " ", Weight: 1}} }},
		{"negative weight", func(r *schema.Ruleset) { r.AIKeywords = []schema.Keyword{{Pattern: "x", Weight: -0.5}} }},
		{"bad normalization rule", func(r *schema.Ruleset) { r.NormalizationRules = []schema.NormalizationRule{{Pattern: "["}} }},
		{"empty mapping key", func(r *schema.Ruleset) { r.NameMappings = map[string]string{"  ": "Nobody"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := Default()
			tt.mutate(&raw)
			_, err := Compile(raw, "test")
			assert.Error(t, err)
		})
	}
}

func TestZeroThresholdFallsBackToDefault(t *testing.T) {
	raw := Default()
	raw.AIThreshold = 0
	assert.Equal(t, DefaultThreshold, MustCompile(raw, "x").Threshold())
}

func TestKey(t *testing.T) {
	raw := schema.Ruleset{
		NormalizationRules: []schema.NormalizationRule{{Pattern: `[._-]`, Replacement: ""}},
	}
	snap := MustCompile(raw, "x")
	assert.Equal(t, "johndoe", snap.Key("  John Doe "))
	assert.Equal(t, "johndoe", snap.Key("john.doe"))
	assert.Equal(t, "johndoe", snap.Key("JOHN_DOE"))
}

func TestMappingKeysAreNormalized(t *testing.T) {
	snap := MustCompile(schema.Ruleset{NameMappings: map[string]string{"John Doe": "JohnDoe"}}, "x")
	name, ok := snap.Canonical("johndoe")
	assert.True(t, ok)
	assert.Equal(t, "JohnDoe", name)
}

func TestMappingChainsResolve(t *testing.T) {
	snap := MustCompile(schema.Ruleset{NameMappings: map[string]string{
		"jd":      "John Doe",
		"johndoe": "Johnathan Doe",
	}}, "x")
	name, _ := snap.Canonical("jd")
	assert.Equal(t, "Johnathan Doe", name)
	name, _ = snap.Canonical("johndoe")
	assert.Equal(t, "Johnathan Doe", name)
}

func TestMappingCyclesTerminate(t *testing.T) {
	snap := MustCompile(schema.Ruleset{NameMappings: map[string]string{
		"a": "B",
		"b": "A",
	}}, "x")
	a, _ := snap.Canonical("a")
	b, _ := snap.Canonical("b")
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
}

func TestReadFileMissingUsesDefaults(t *testing.T) {
	snap, err := ReadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultsSource, snap.Source())
	assert.Equal(t, MustCompile(Default(), "").Fingerprint(), snap.Fingerprint())
}

func TestReadFilePartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
ai_threshold: 0.5
name_mappings:
  john.doe: John Doe
ai_keywords:
  - pattern: copilot
    weight: 1
  - pattern: 'generated\s+by'
    weight: 0.5
    regex: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	snap, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, snap.Source())
	assert.Equal(t, 0.5, snap.Threshold())
	require.Len(t, snap.Keywords(), 2)
	assert.NotNil(t, snap.Keywords()[1].Regex)
	assert.Equal(t, Default().FileTypes, snap.Ruleset().FileTypes)

	name, ok := snap.Canonical("john.doe")
	assert.True(t, ok)
	assert.Equal(t, "John Doe", name)
}

func TestReadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai_threshold: -3\n"), 0o644))
	_, err := ReadFile(path)
	assert.Error(t, err)
}

func TestStoreReloadSwapsAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	store := NewStore(path)
	initial := store.Current()
	assert.Equal(t, DefaultsSource, initial.Source())

	require.NoError(t, os.WriteFile(path, []byte("ai_threshold: 2\n"), 0o644))
	snap, err := store.Reload()
	require.NoError(t, err)
	assert.Same(t, snap, store.Current())
	assert.Equal(t, 2.0, store.Current().Threshold())
	assert.Equal(t, DefaultThreshold, initial.Threshold(), "captured snapshots never change")

	require.NoError(t, os.WriteFile(path, []byte("ai_threshold: -1\n"), 0o644))
	_, err = store.Reload()
	assert.Error(t, err)
	assert.Same(t, snap, store.Current(), "failed reload keeps the previous snapshot")
}

func TestStoreConcurrentReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai_threshold: 3\n"), 0o644))
	store := NewStore(path)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			for range 100 {
				th := store.Current().Threshold()
				assert.True(t, th == DefaultThreshold || th == 3.0)
			}
		})
	}
	for range 10 {
		_, err := store.Reload()
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestStoreWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai_threshold: 1\n"), 0o644))
	store := NewStore(path)
	_, err := store.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan float64, 16)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func(snap *Snapshot, err error) {
			if err == nil && snap != nil {
				reloaded <- snap.Threshold()
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("ai_threshold: 4\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case th := <-reloaded:
			if th == 4 {
				cancel()
				require.NoError(t, <-done)
				return
			}
		case <-deadline:
			t.Fatal("rules file change was not picked up")
		}
	}
}

func TestWatchWithoutPath(t *testing.T) {
	assert.Error(t, NewStore("").Watch(context.Background(), nil))
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rules.yaml")
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "refuses to overwrite")
	require.NoError(t, WriteDefault(path, true))

	snap, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), snap.Ruleset())
}
