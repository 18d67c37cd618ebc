// Package importer turns history CSV files into candidate records, flags
// likely duplicates and commits the accepted ones.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/portfolio"
)

// Parser reads one CSV layout of asset history into records of the given
// currency partition.
type Parser interface {
	Parse(r io.Reader, currency string) ([]model.Record, error)
	Format() string
}

// Registry maps a format name (case-insensitive) to its parser.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a registry with no formats.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds p under its format name. Two parsers for one format is a
// programming error and panics.
func (r *Registry) Register(p Parser) {
	format := strings.ToLower(p.Format())
	if _, taken := r.parsers[format]; taken {
		panic("importer: format " + format + " registered twice")
	}
	r.parsers[format] = p
}

// Get returns the parser for format, or nil when none is registered.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(strings.TrimSpace(format))]
}

// Formats lists the registered format names in order.
func (r *Registry) Formats() []string {
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	slices.Sort(formats)
	return formats
}

// DefaultRegistry knows the history export written by the export package.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&HistoryParser{})
	return r
}

// Candidate is a parsed record awaiting commit.
type Candidate struct {
	Record    model.Record `json:"record"`
	Duplicate bool         `json:"duplicate"`
}

// FlagDuplicates wraps parsed records as candidates. A candidate is a
// duplicate when its signature matches an existing record or an earlier
// candidate of the same batch.
func FlagDuplicates(existing, parsed []model.Record) []Candidate {
	seen := make(map[model.Signature]bool, len(existing)+len(parsed))
	for _, r := range existing {
		seen[r.Signature()] = true
	}
	out := make([]Candidate, len(parsed))
	for i, r := range parsed {
		sig := r.Signature()
		out[i] = Candidate{Record: r, Duplicate: seen[sig]}
		seen[sig] = true
	}
	return out
}

// Read parses r with p and flags duplicates against existing. Every record
// is sanitized, validated and has its interest recomputed; one bad row
// rejects the whole file.
func Read(r io.Reader, p Parser, currency string, existing []model.Record) ([]Candidate, error) {
	parsed, err := p.Parse(r, currency)
	if err != nil {
		return nil, fmt.Errorf("parsing %s file: %w", p.Format(), err)
	}
	for i := range parsed {
		rec, err := portfolio.Prepare(parsed[i])
		if err != nil {
			return nil, fmt.Errorf("parsing %s file: row %d: %w", p.Format(), i+2, err)
		}
		parsed[i] = rec
	}
	return FlagDuplicates(existing, parsed), nil
}

// Adder persists one record. portfolio.Session implements it.
type Adder interface {
	Add(ctx context.Context, r model.Record) (model.Record, error)
}

// Result summarizes a commit.
type Result struct {
	Inserted []model.Record `json:"inserted"`
	Skipped  int            `json:"skipped"`
}

// Commit inserts the candidates in order, skipping duplicates unless
// allowDuplicates is set. It stops at the first failure and reports what
// was inserted before it.
func Commit(ctx context.Context, dst Adder, candidates []Candidate, allowDuplicates bool) (Result, error) {
	var res Result
	for i, c := range candidates {
		if c.Duplicate && !allowDuplicates {
			res.Skipped++
			continue
		}
		saved, err := dst.Add(ctx, c.Record)
		if err != nil {
			return res, fmt.Errorf("importing candidate %d (%s): %w", i+1, c.Record.Name, err)
		}
		res.Inserted = append(res.Inserted, saved)
	}
	logger.FromContext(ctx).Info().
		Int("inserted", len(res.Inserted)).
		Int("skipped", res.Skipped).
		Msg("import committed")
	return res, nil
}

// Pending is a history file waiting in the project's import/ directory.
type Pending struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

var (
	inboxDir     = "import"
	processedDir = filepath.Join("import", "processed")
)

// Scan lists the .csv files waiting in <root>/import/, by name. Dotfiles
// and subdirectories are ignored; a missing import/ means nothing waits.
func Scan(root string) ([]Pending, error) {
	dir := filepath.Join(root, inboxDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", inboxDir, err)
	}

	var pending []Pending
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		pending = append(pending, Pending{
			Name:    name,
			Path:    filepath.Join(dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return pending, nil
}

// MarkProcessed moves an imported file to import/processed/ so the next scan
// skips it. An earlier file of the same name is kept; the new one gets a
// numeric suffix.
func MarkProcessed(root, name string) error {
	dst := filepath.Join(root, processedDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", processedDir, err)
	}

	target := filepath.Join(dst, name)
	ext := filepath.Ext(name)
	for n := 1; ; n++ {
		if _, err := os.Stat(target); err != nil {
			break
		}
		target = filepath.Join(dst, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext))
	}
	if err := os.Rename(filepath.Join(root, inboxDir, name), target); err != nil {
		return fmt.Errorf("moving %s to %s: %w", name, processedDir, err)
	}
	return nil
}
