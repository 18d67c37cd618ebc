// Package store defines the record store contract shared by the CSV ledger
// and the SQLite backends.
package store

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/TamChouWeng/my-asset-sub000/internal/id"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// ErrNotFound is returned when an id does not match any record.
var ErrNotFound = errors.New("record not found")

// Store is the authoritative list of records.
type Store interface {
	// List returns all records, most recent date first.
	List(ctx context.Context) ([]model.Record, error)
	// Insert assigns an id when r has none and persists r.
	Insert(ctx context.Context, r model.Record) (model.Record, error)
	// Update applies a partial update to the record with the given id.
	Update(ctx context.Context, recordID string, p model.Patch) error
	// Delete removes one record.
	Delete(ctx context.Context, recordID string) error
	// DeleteMany removes every listed record. Unknown ids are ignored.
	DeleteMany(ctx context.Context, ids []string) error
}

// SortByDateDesc orders records by date, most recent first. Records on the
// same day keep their relative order.
func SortByDateDesc(records []model.Record) {
	slices.SortStableFunc(records, func(a, b model.Record) int {
		return b.Date.Compare(a.Date)
	})
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records []model.Record
}

// NewMemory returns a Memory store seeded with records.
func NewMemory(records ...model.Record) *Memory {
	m := &Memory{}
	for _, r := range records {
		m.records = append(m.records, r.Clone())
	}
	return m
}

// List implements Store.
func (m *Memory) List(_ context.Context) ([]model.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Record, len(m.records))
	for i, r := range m.records {
		out[i] = r.Clone()
	}
	SortByDateDesc(out)
	return out, nil
}

// Insert implements Store.
func (m *Memory) Insert(_ context.Context, r model.Record) (model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = id.NewRecordID()
	}
	m.records = append(m.records, r.Clone())
	return r, nil
}

// Update implements Store.
func (m *Memory) Update(_ context.Context, recordID string, p model.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.records {
		if r.ID == recordID {
			m.records[i] = p.Apply(r)
			return nil
		}
	}
	return ErrNotFound
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.records {
		if r.ID == recordID {
			m.records = slices.Delete(m.records, i, i+1)
			return nil
		}
	}
	return ErrNotFound
}

// DeleteMany implements Store.
func (m *Memory) DeleteMany(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, recordID := range ids {
		drop[recordID] = true
	}
	m.records = slices.DeleteFunc(m.records, func(r model.Record) bool { return drop[r.ID] })
	return nil
}
