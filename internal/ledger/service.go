package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/TamChouWeng/my-asset-sub000/internal/id"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

// RelPath is the ledger location inside a project directory.
var RelPath = filepath.Join("ledger", "records.csv")

// Service is a store.Store backed by a single CSV file. Every mutation
// rewrites the file through a temp file and rename.
type Service struct {
	mu   sync.Mutex
	path string
	tags bool
}

var _ store.Store = (*Service)(nil)

// NewService creates a ledger Service for the project at repoRoot. When tags
// is set, rate and interest are also written into the remarks.
func NewService(repoRoot string, tags bool) *Service {
	return &Service{path: filepath.Join(repoRoot, RelPath), tags: tags}
}

// Path returns the ledger file path.
func (s *Service) Path() string { return s.path }

// Create writes an empty ledger unless one exists.
func (s *Service) Create() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	}
	return s.write(nil)
}

// List implements store.Store.
func (s *Service) List(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return nil, err
	}
	store.SortByDateDesc(records)
	return records, nil
}

// Insert implements store.Store.
func (s *Service) Insert(ctx context.Context, r model.Record) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return model.Record{}, err
	}
	if r.ID == "" {
		r.ID = id.NewRecordID()
	}
	records = append(records, r)
	if err := s.write(records); err != nil {
		return model.Record{}, err
	}
	return r, nil
}

// Update implements store.Store.
func (s *Service) Update(ctx context.Context, recordID string, p model.Patch) error {
	return s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		i := slices.IndexFunc(records, func(r model.Record) bool { return r.ID == recordID })
		if i < 0 {
			return nil, store.ErrNotFound
		}
		records[i] = p.Apply(records[i])
		return records, nil
	})
}

// Delete implements store.Store.
func (s *Service) Delete(ctx context.Context, recordID string) error {
	return s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		i := slices.IndexFunc(records, func(r model.Record) bool { return r.ID == recordID })
		if i < 0 {
			return nil, store.ErrNotFound
		}
		return slices.Delete(records, i, i+1), nil
	})
}

// DeleteMany implements store.Store.
func (s *Service) DeleteMany(ctx context.Context, ids []string) error {
	drop := make(map[string]bool, len(ids))
	for _, recordID := range ids {
		drop[recordID] = true
	}
	return s.mutate(ctx, func(records []model.Record) ([]model.Record, error) {
		return slices.DeleteFunc(records, func(r model.Record) bool { return drop[r.ID] }), nil
	})
}

func (s *Service) mutate(ctx context.Context, fn func([]model.Record) ([]model.Record, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	records, err = fn(records)
	if err != nil {
		return err
	}
	return s.write(records)
}

// read returns the records in file order. A missing file is an empty ledger.
func (s *Service) read() ([]model.Record, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := ReadRecords(f)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", s.path, err)
	}
	return records, nil
}

func (s *Service) write(records []model.Record) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".records-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteRecords(tmp, records, s.tags); err != nil {
		tmp.Close()
		return fmt.Errorf("writing ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing ledger: %w", err)
	}
	return nil
}
