package extract

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huangsam/repopulse/internal/contract"
	"github.com/huangsam/repopulse/internal/ruleset"
	"github.com/huangsam/repopulse/schema"
)

// parser holds the state of one pass over git log output.
type parser struct {
	dateRange schema.DateRange
	snap      *ruleset.Snapshot
	maxDiff   int

	records []schema.CommitRecord
	stats   Stats

	current  *schema.CommitRecord
	diff     strings.Builder
	header   strings.Builder
	inHeader bool
	skipping bool // inside a dropped record; its trailing lines are ignored
	inPatch  bool
	keepHunk bool // the file of the current patch section qualifies
}

// Parse reads the output of contract.HistoryLogArgs. Malformed records are counted and skipped.
func Parse(out []byte, dateRange schema.DateRange, snap *ruleset.Snapshot, opts Options) ([]schema.CommitRecord, Stats) {
	maxDiff := opts.MaxDiffBytes
	if maxDiff <= 0 {
		maxDiff = contract.DefaultMaxDiffBytes
	}
	p := &parser{dateRange: dateRange, snap: snap, maxDiff: maxDiff}

	for line := range strings.SplitSeq(string(out), "\n") {
		p.stats.Lines++
		p.consume(strings.TrimSuffix(line, "\r"))
	}
	if p.inHeader {
		// output ended in the middle of a header
		p.stats.ParseErrors++
	}
	p.flush()

	if strings.TrimSpace(string(out)) == "" {
		p.stats.Lines = 0
	}
	return p.records, p.stats
}

func (p *parser) consume(line string) {
	if p.inHeader {
		p.appendHeader(line)
		return
	}
	if strings.HasPrefix(line, contract.RecordStart) {
		p.flush()
		p.inHeader = true
		p.header.Reset()
		p.appendHeader(strings.TrimPrefix(line, contract.RecordStart))
		return
	}
	if p.skipping {
		return
	}
	if p.inPatch || strings.HasPrefix(line, "diff --git ") {
		p.consumePatch(line)
		return
	}
	if strings.TrimSpace(line) == "" {
		return
	}
	if p.current == nil {
		p.stats.ParseErrors++
		return
	}
	p.consumeNumstat(line)
}

func (p *parser) appendHeader(line string) {
	if idx := strings.Index(line, contract.RecordEnd); idx >= 0 {
		p.header.WriteString(line[:idx])
		p.inHeader = false
		p.startRecord(p.header.String())
		if rest := line[idx+len(contract.RecordEnd):]; strings.TrimSpace(rest) != "" {
			p.consume(rest)
		}
		return
	}
	p.header.WriteString(line)
	p.header.WriteByte('\n')
}

// startRecord parses "hash␟author␟email␟date␟subject␟body".
func (p *parser) startRecord(header string) {
	fields := strings.SplitN(header, contract.FieldSep, 6)
	if len(fields) < 5 || strings.TrimSpace(fields[0]) == "" {
		p.stats.ParseErrors++
		p.skipping = true
		return
	}
	date, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[3]))
	if err != nil {
		p.stats.ParseErrors++
		p.skipping = true
		return
	}
	p.stats.headers++

	if !p.dateRange.Contains(date) {
		p.stats.OutOfRange++
		p.skipping = true
		return
	}

	message := strings.TrimSpace(fields[4])
	if len(fields) == 6 {
		if body := strings.TrimSpace(fields[5]); body != "" {
			message += "\n\n" + body
		}
	}
	p.current = &schema.CommitRecord{
		Hash:         strings.TrimSpace(fields[0]),
		AuthorRaw:    fields[1],
		AuthorEmail:  fields[2],
		Date:         date,
		Message:      message,
		FilesChanged: []schema.FileChange{},
	}
}

// consumeNumstat parses "added<TAB>removed<TAB>path". Binary files report "-" for both counts.
func (p *parser) consumeNumstat(line string) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 || parts[2] == "" {
		p.stats.ParseErrors++
		return
	}

	path := NewPath(parts[2])
	change := schema.FileChange{Path: path}
	if parts[0] == "-" && parts[1] == "-" {
		change.Binary = true
	} else {
		added, errA := strconv.Atoi(parts[0])
		removed, errR := strconv.Atoi(parts[1])
		if errA != nil || errR != nil || added < 0 || removed < 0 {
			p.stats.ParseErrors++
			return
		}
		change.Added, change.Removed = added, removed
	}

	if !Qualifies(path, p.snap) {
		return
	}
	p.current.FilesChanged = append(p.current.FilesChanged, change)
	p.current.LinesAdded += change.Added
	p.current.LinesRemoved += change.Removed
}

// consumePatch collects added lines of qualifying files up to the diff cap.
func (p *parser) consumePatch(line string) {
	p.inPatch = true
	if p.current == nil {
		return
	}
	switch {
	case strings.HasPrefix(line, "diff --git "):
		p.keepHunk = false
	case strings.HasPrefix(line, "+++ "):
		target := unquotePath(strings.TrimPrefix(line, "+++ "))
		p.keepHunk = target != "/dev/null" && Qualifies(strings.TrimPrefix(target, "b/"), p.snap)
	case strings.HasPrefix(line, "+"):
		if !p.keepHunk || p.diff.Len() >= p.maxDiff {
			return
		}
		text := line[1:]
		if room := p.maxDiff - p.diff.Len(); len(text)+1 > room {
			cut := max(room-1, 0)
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		p.diff.WriteString(text)
		p.diff.WriteByte('\n')
	}
}

// flush closes the current record and resets per-record state.
func (p *parser) flush() {
	if p.current != nil {
		p.current.DiffText = p.diff.String()
		p.records = append(p.records, *p.current)
		p.stats.Commits++
	}
	p.current = nil
	p.diff.Reset()
	p.skipping = false
	p.inPatch = false
	p.keepHunk = false
}

// Qualifies reports whether a changed path counts toward line totals.
// Matching is done on the lowercased path.
func Qualifies(path string, snap *ruleset.Snapshot) bool {
	if snap == nil {
		return true
	}
	lower := strings.ToLower(path)
	if contract.ShouldIgnore(lower, snap.Excludes()) {
		return false
	}
	return contract.HasAllowedExtension(lower, snap.FileTypes())
}

// NewPath returns the destination of a numstat rename ("old => new" or "pre/{old => new}/suf").
// C-quoted paths are unquoted first. Other paths are returned unchanged.
func NewPath(path string) string {
	path = unquotePath(path)
	if !strings.Contains(path, " => ") {
		return path
	}
	start := strings.Index(path, "{")
	end := strings.LastIndex(path, "}")
	if start == -1 || end == -1 || start > end {
		_, after, _ := strings.Cut(path, " => ")
		return after
	}

	_, newPart, ok := strings.Cut(path[start+1:end], " => ")
	if !ok {
		return path
	}
	joined := path[:start] + newPart + path[end+1:]
	return strings.ReplaceAll(joined, "//", "/")
}

// unquotePath decodes a path git printed in C-quoted form ("src/h\303\251llo.go").
// Git's escapes are a subset of Go's, so strconv.Unquote handles them.
func unquotePath(path string) string {
	if len(path) < 2 || path[0] != '"' || path[len(path)-1] != '"' {
		return path
	}
	if unquoted, err := strconv.Unquote(path); err == nil {
		return unquoted
	}
	return path
}
