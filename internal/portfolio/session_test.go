package portfolio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

var errBoom = errors.New("boom")

// flakyStore fails the operations whose flag is set.
type flakyStore struct {
	*store.Memory
	failList, failInsert, failUpdate, failDelete bool
	updates                                      []string
}

func (f *flakyStore) List(ctx context.Context) ([]model.Record, error) {
	if f.failList {
		return nil, errBoom
	}
	return f.Memory.List(ctx)
}

func (f *flakyStore) Insert(ctx context.Context, r model.Record) (model.Record, error) {
	if f.failInsert {
		return model.Record{}, errBoom
	}
	return f.Memory.Insert(ctx, r)
}

func (f *flakyStore) Update(ctx context.Context, recordID string, p model.Patch) error {
	if f.failUpdate {
		return errBoom
	}
	f.updates = append(f.updates, recordID)
	return f.Memory.Update(ctx, recordID, p)
}

func (f *flakyStore) Delete(ctx context.Context, recordID string) error {
	if f.failDelete {
		return errBoom
	}
	return f.Memory.Delete(ctx, recordID)
}

func (f *flakyStore) DeleteMany(ctx context.Context, ids []string) error {
	if f.failDelete {
		return errBoom
	}
	return f.Memory.DeleteMany(ctx, ids)
}

func day(s string) time.Time {
	t, err := time.Parse(model.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedDeposit() model.Record {
	m := day("2024-07-01")
	return model.Record{
		ID:           "fd-1",
		Date:         day("2024-01-01"),
		Type:         model.TypeFixedDeposit,
		Name:         "Maybank FD",
		Action:       "Deposit",
		Amount:       decimal.NewFromInt(10000),
		InterestRate: decimal.NewNullDecimal(decimal.RequireFromString("3.5")),
		MaturityDate: &m,
		Status:       model.StatusActive,
		Currency:     "MYR",
	}
}

func stock(recordID, date string) model.Record {
	return model.Record{
		ID:       recordID,
		Date:     day(date),
		Type:     model.TypeStock,
		Name:     "Maybank",
		Action:   "Buy",
		Amount:   decimal.NewFromInt(500),
		Status:   model.StatusActive,
		Currency: "MYR",
	}
}

func newSession(t *testing.T, today string, records ...model.Record) (*Session, *flakyStore) {
	t.Helper()
	fs := &flakyStore{Memory: store.NewMemory(records...)}
	return New(fs, WithClock(func() time.Time { return day(today) })), fs
}

func TestLoad_MaturesAndPersists(t *testing.T) {
	s, fs := newSession(t, "2024-08-01", fixedDeposit(), stock("s-1", "2024-02-01"))

	matured, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fd-1"}, matured)

	got, err := s.Get("fd-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusMature, got.Status)
	assert.Equal(t, "174.52", got.InterestDividend.Decimal.StringFixed(2))

	stored, err := fs.Memory.List(context.Background())
	require.NoError(t, err)
	for _, r := range stored {
		if r.ID == "fd-1" {
			assert.Equal(t, model.StatusMature, r.Status)
		}
	}

	// The second load finds nothing to change.
	matured, err = s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matured)
	assert.Equal(t, []string{"fd-1"}, fs.updates)
}

func TestLoad_BeforeMaturityStaysActive(t *testing.T) {
	s, _ := newSession(t, "2024-06-30", fixedDeposit())
	matured, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, matured)

	got, err := s.Get("fd-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestLoad_FailureKeepsPriorState(t *testing.T) {
	s, fs := newSession(t, "2024-01-01", stock("s-1", "2024-01-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	fs.failList = true
	_, err = s.Load(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Len(t, s.Records(), 1)
}

func TestLoad_FeedsEngine(t *testing.T) {
	s, _ := newSession(t, "2024-01-01", stock("s-1", "2024-01-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	dash := s.Engine().Dashboard("MYR", derive.AllTypes)
	assert.Equal(t, "500", dash.TotalValue.String())
}

func TestAdd(t *testing.T) {
	s, _ := newSession(t, "2024-01-01")
	r := fixedDeposit()
	r.ID = ""
	r.Name = "  <b>CIMB</b> FD "

	saved, err := s.Add(context.Background(), r)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.NotContains(t, saved.ID, pendingPrefix)
	assert.Equal(t, "CIMB FD", saved.Name)
	assert.Equal(t, "174.52", saved.InterestDividend.Decimal.StringFixed(2))

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, saved.ID, records[0].ID)
}

func TestAdd_RollsBackOnFailure(t *testing.T) {
	s, fs := newSession(t, "2024-01-01", stock("s-1", "2024-01-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	fs.failInsert = true
	_, err = s.Add(context.Background(), stock("", "2024-03-01"))
	require.ErrorIs(t, err, errBoom)
	assert.Len(t, s.Records(), 1)
	assert.Equal(t, 1, s.Engine().Dashboard("MYR", "").RecordCount)
}

func TestAdd_Invalid(t *testing.T) {
	s, _ := newSession(t, "2024-01-01")
	r := stock("", "2024-01-01")
	r.Name = ""

	_, err := s.Add(context.Background(), r)
	var verr model.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, s.Records())
}

func TestUpdate(t *testing.T) {
	s, fs := newSession(t, "2024-01-01", fixedDeposit())
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	rate := decimal.NewNullDecimal(decimal.NewFromInt(4))
	got, err := s.Update(context.Background(), "fd-1", model.Patch{InterestRate: &rate})
	require.NoError(t, err)
	assert.Equal(t, "199.45", got.InterestDividend.Decimal.StringFixed(2))

	stored, err := fs.Memory.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "199.45", stored[0].InterestDividend.Decimal.StringFixed(2), "derived interest is persisted")
}

func TestUpdate_ClearRateClearsInterest(t *testing.T) {
	s, fs := newSession(t, "2024-01-01", fixedDeposit())
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	got, err := s.Update(context.Background(), "fd-1", model.Patch{InterestRate: &decimal.NullDecimal{}})
	require.NoError(t, err)
	assert.False(t, got.InterestRate.Valid)
	assert.False(t, got.InterestDividend.Valid)

	stored, err := fs.Memory.List(context.Background())
	require.NoError(t, err)
	assert.False(t, stored[0].InterestDividend.Valid, "no stale interest is persisted")
}

func TestUpdate_RollsBackOnFailure(t *testing.T) {
	s, fs := newSession(t, "2024-01-01", stock("s-1", "2024-01-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	fs.failUpdate = true
	sold := model.StatusSold
	_, err = s.Update(context.Background(), "s-1", model.Patch{Status: &sold})
	require.ErrorIs(t, err, errBoom)

	got, err := s.Get("s-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
}

func TestUpdate_AnyStatusAllowed(t *testing.T) {
	s, _ := newSession(t, "2024-08-01", fixedDeposit())
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	active := model.StatusActive
	got, err := s.Update(context.Background(), "fd-1", model.Patch{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status, "manual edits are unconstrained")
}

func TestUpdate_Unknown(t *testing.T) {
	s, _ := newSession(t, "2024-01-01")
	_, err := s.Update(context.Background(), "nope", model.Patch{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, fs := newSession(t, "2024-01-01", stock("s-1", "2024-01-01"), stock("s-2", "2024-02-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "s-1"))
	assert.Len(t, s.Records(), 1)

	fs.failDelete = true
	require.ErrorIs(t, s.Delete(context.Background(), "s-2"), errBoom)
	assert.Len(t, s.Records(), 1, "rolled back")

	assert.ErrorIs(t, s.Delete(context.Background(), "missing"), store.ErrNotFound)
}

func TestDeleteMany(t *testing.T) {
	s, fs := newSession(t, "2024-01-01",
		stock("s-1", "2024-01-01"), stock("s-2", "2024-02-01"), stock("s-3", "2024-03-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	fs.failDelete = true
	_, err = s.DeleteMany(context.Background(), []string{"s-1", "s-3"})
	require.ErrorIs(t, err, errBoom)
	assert.Len(t, s.Records(), 3)

	fs.failDelete = false
	n, err := s.DeleteMany(context.Background(), []string{"s-1", "s-3", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "s-2", records[0].ID)
}

func TestMigrateRemarks(t *testing.T) {
	legacy := stock("s-1", "2024-01-01")
	legacy.Type = model.TypeREIT
	legacy.Action = "Dividend"
	legacy.Remarks = "Q1 payout [Int: 42.5]"
	s, fs := newSession(t, "2024-01-01", legacy, stock("s-2", "2024-01-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	n, err := s.MigrateRemarks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get("s-1")
	require.NoError(t, err)
	assert.Equal(t, "Q1 payout", got.Remarks)
	assert.Equal(t, "42.5", got.InterestDividend.Decimal.String())
	assert.Equal(t, []string{"s-1"}, fs.updates)

	n, err = s.MigrateRemarks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRewrite(t *testing.T) {
	s, fs := newSession(t, "2024-01-01", stock("s-1", "2024-01-01"), stock("s-2", "2024-01-02"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	n, err := s.Rewrite(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"s-1", "s-2"}, fs.updates)

	fs.failUpdate = true
	n, err = s.Rewrite(context.Background())
	assert.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, s.Records(), 2)
}

func TestResolve(t *testing.T) {
	s, _ := newSession(t, "2024-01-01", stock("abc-1", "2024-01-01"), stock("abd-2", "2024-01-01"))
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	got, err := s.Resolve("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc-1", got)

	_, err = s.Resolve("ab")
	assert.Error(t, err)
}
