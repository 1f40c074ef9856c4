package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/huangsam/repopulse/schema"
	"gopkg.in/yaml.v3"
)

const fileHeader = `# repopulse attribution rules
# name_mappings: normalized key -> canonical developer name
# ai_keywords: plain keywords match by case-insensitive substring, regex: true compiles the pattern
# ai_threshold: cumulative keyword weight at which a commit counts as AI-assisted
`

// Encode writes rs as YAML to w.
func Encode(w io.Writer, rs schema.Ruleset) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rs); err != nil {
		return fmt.Errorf("failed to encode ruleset: %w", err)
	}
	return enc.Close()
}

// WriteDefault writes the built-in ruleset to path. An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := Encode(&buf, Default()); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
