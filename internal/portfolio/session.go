// Package portfolio holds the in-memory record list of one project. It loads
// from a store, applies the maturity scan, and performs optimistic
// mutations that roll back when the store rejects them.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/id"
	"github.com/TamChouWeng/my-asset-sub000/internal/interest"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/remarks"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

const pendingPrefix = "pending-"

// Session is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	store   store.Store
	records []model.Record
	engine  *derive.Engine
	now     func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the clock used by the maturity scan.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New returns an empty session over st. Call Load to fetch records.
func New(st store.Store, opts ...Option) *Session {
	s := &Session{
		store:  st,
		engine: derive.NewEngine(nil),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the derivation engine fed by this session.
func (s *Session) Engine() *derive.Engine { return s.engine }

// Records returns a copy of the in-memory records, date descending.
func (s *Session) Records() []model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.records)
}

// Get returns the record with recordID.
func (s *Session) Get(recordID string) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(recordID)
	if i < 0 {
		return model.Record{}, store.ErrNotFound
	}
	return s.records[i].Clone(), nil
}

// Resolve expands an id prefix to a full record id.
func (s *Session) Resolve(prefix string) (string, error) {
	s.mu.Lock()
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	s.mu.Unlock()
	return id.Resolve(prefix, ids)
}

// Load fetches the records, recomputes fixed-deposit interest and moves
// matured deposits to Mature, persisting each transition. A failed fetch
// leaves the previous records in place. It returns the ids that matured.
func (s *Session) Load(ctx context.Context) ([]string, error) {
	log := logger.FromContext(ctx)

	records, err := s.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("fetching records failed, keeping previous state")
		return nil, fmt.Errorf("loading records: %w", err)
	}
	interest.ApplyAll(records)

	s.mu.Lock()
	s.records = records
	s.publish()
	s.mu.Unlock()

	matured, err := s.ScanMaturity(ctx)
	if err != nil {
		return matured, err
	}
	log.Debug().Int("records", len(records)).Int("matured", len(matured)).Msg("records loaded")
	return matured, nil
}

// ScanMaturity moves Active fixed deposits at or past maturity to Mature.
// The change is visible in memory at once; each transition is then
// persisted. Persist failures are joined into the returned error but the
// in-memory status stays Mature, and the next load retries.
func (s *Session) ScanMaturity(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	changed := interest.ScanMaturity(s.records, s.now())
	if len(changed) > 0 {
		s.publish()
	}
	s.mu.Unlock()

	log := logger.FromContext(ctx)
	var errs []error
	for _, recordID := range changed {
		if err := s.store.Update(ctx, recordID, model.StatusPatch(model.StatusMature)); err != nil {
			log.Warn().Err(err).Str("record_id", recordID).Msg("persisting maturity failed")
			errs = append(errs, fmt.Errorf("persisting maturity of %s: %w", id.Short(recordID), err))
			continue
		}
		log.Info().Str("record_id", recordID).Msg("fixed deposit matured")
	}
	return changed, errors.Join(errs...)
}

// Prepare sanitizes, defaults and validates a record from a form or an
// import, and recomputes fixed-deposit interest.
func Prepare(r model.Record) (model.Record, error) {
	r = model.Sanitize(r)
	if err := model.JoinValidation(model.Validate(r)); err != nil {
		return model.Record{}, err
	}
	return interest.Apply(r), nil
}

// Add inserts a new record. It appears in memory before the store confirms
// and is removed again if the insert fails.
func (s *Session) Add(ctx context.Context, r model.Record) (model.Record, error) {
	r, err := Prepare(r)
	if err != nil {
		return model.Record{}, err
	}
	pending := r.Clone()
	pending.ID = pendingPrefix + id.NewRecordID()

	s.mu.Lock()
	s.records = append(s.records, pending)
	s.sortAndPublish()
	s.mu.Unlock()

	r.ID = ""
	saved, err := s.store.Insert(ctx, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(pending.ID)
	if err != nil {
		if i >= 0 {
			s.records = slices.Delete(s.records, i, i+1)
			s.publish()
		}
		logger.FromContext(ctx).Error().Err(err).Str("name", r.Name).Msg("insert failed, rolled back")
		return model.Record{}, fmt.Errorf("saving record: %w", err)
	}
	if i >= 0 {
		s.records[i] = saved.Clone()
		s.publish()
	}
	return saved, nil
}

// Update applies p to the record with recordID and persists the result as
// a full replace, so derived interest is stored along with it. The previous
// record is restored if the store rejects the change.
func (s *Session) Update(ctx context.Context, recordID string, p model.Patch) (model.Record, error) {
	s.mu.Lock()
	i := s.indexOf(recordID)
	if i < 0 {
		s.mu.Unlock()
		return model.Record{}, store.ErrNotFound
	}
	prev := s.records[i].Clone()
	s.mu.Unlock()

	next, err := Prepare(p.Apply(prev))
	if err != nil {
		return model.Record{}, err
	}
	next.ID = recordID

	s.mu.Lock()
	if i = s.indexOf(recordID); i >= 0 {
		s.records[i] = next.Clone()
		s.sortAndPublish()
	}
	s.mu.Unlock()

	if err := s.store.Update(ctx, recordID, model.ReplacePatch(next)); err != nil {
		s.mu.Lock()
		if i = s.indexOf(recordID); i >= 0 {
			s.records[i] = prev
			s.sortAndPublish()
		}
		s.mu.Unlock()
		logger.FromContext(ctx).Error().Err(err).Str("record_id", recordID).Msg("update failed, rolled back")
		return model.Record{}, fmt.Errorf("updating record %s: %w", id.Short(recordID), err)
	}
	return next, nil
}

// Delete removes one record, restoring it if the store fails.
func (s *Session) Delete(ctx context.Context, recordID string) error {
	removed, ok := s.remove([]string{recordID})
	if !ok {
		return store.ErrNotFound
	}
	if err := s.store.Delete(ctx, recordID); err != nil {
		s.restore(removed)
		logger.FromContext(ctx).Error().Err(err).Str("record_id", recordID).Msg("delete failed, rolled back")
		return fmt.Errorf("deleting record %s: %w", id.Short(recordID), err)
	}
	return nil
}

// DeleteMany removes records in one batch, restoring all of them if the
// store fails. Unknown ids are ignored.
func (s *Session) DeleteMany(ctx context.Context, ids []string) (int, error) {
	removed, _ := s.remove(ids)
	if len(removed) == 0 {
		return 0, nil
	}
	batch := make([]string, len(removed))
	for i, r := range removed {
		batch[i] = r.ID
	}
	if err := s.store.DeleteMany(ctx, batch); err != nil {
		s.restore(removed)
		logger.FromContext(ctx).Error().Err(err).Int("count", len(batch)).Msg("batch delete failed, rolled back")
		return 0, fmt.Errorf("deleting %d records: %w", len(batch), err)
	}
	return len(removed), nil
}

// MigrateRemarks moves legacy remarks tags into the dedicated fields and
// strips them from remarks, persisting every changed record. It returns
// how many records changed.
func (s *Session) MigrateRemarks(ctx context.Context) (int, error) {
	migrated := 0
	for _, r := range s.Records() {
		next, changed := remarks.Migrate(r)
		if !changed {
			continue
		}
		if _, err := s.Update(ctx, r.ID, model.ReplacePatch(next)); err != nil {
			return migrated, err
		}
		migrated++
	}
	logger.FromContext(ctx).Info().Int("migrated", migrated).Msg("remarks migration complete")
	return migrated, nil
}

// Rewrite persists every record again as a full replace, e.g. after the
// store's remarks encoding changed.
func (s *Session) Rewrite(ctx context.Context) (int, error) {
	n := 0
	for _, r := range s.Records() {
		if _, err := s.Update(ctx, r.ID, model.ReplacePatch(r)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *Session) remove(ids []string) ([]model.Record, bool) {
	drop := make(map[string]bool, len(ids))
	for _, recordID := range ids {
		drop[recordID] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []model.Record
	s.records = slices.DeleteFunc(s.records, func(r model.Record) bool {
		if drop[r.ID] {
			removed = append(removed, r)
			return true
		}
		return false
	})
	if len(removed) > 0 {
		s.publish()
	}
	return removed, len(removed) > 0
}

func (s *Session) restore(records []model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.sortAndPublish()
}

func (s *Session) indexOf(recordID string) int {
	return slices.IndexFunc(s.records, func(r model.Record) bool { return r.ID == recordID })
}

// sortAndPublish must be called with mu held.
func (s *Session) sortAndPublish() {
	store.SortByDateDesc(s.records)
	s.publish()
}

// publish must be called with mu held.
func (s *Session) publish() {
	s.engine.SetRecords(s.records)
}

func cloneAll(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
