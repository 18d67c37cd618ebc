// Package storetest holds the behavioral contract every store.Store backend
// must satisfy.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) store.Store

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// Sample returns a fully populated fixed deposit record without id.
func Sample() model.Record {
	m := date(2024, 7, 1)
	return model.Record{
		Date:             date(2024, 1, 1),
		Type:             model.TypeFixedDeposit,
		Name:             "Maybank FD",
		Action:           "Deposit",
		Amount:           decimal.RequireFromString("10000"),
		UnitPrice:        decimal.NewNullDecimal(decimal.RequireFromString("1")),
		Quantity:         decimal.NewNullDecimal(decimal.RequireFromString("10000")),
		Fee:              decimal.NewNullDecimal(decimal.RequireFromString("0.5")),
		InterestRate:     decimal.NewNullDecimal(decimal.RequireFromString("3.5")),
		InterestDividend: decimal.NewNullDecimal(decimal.RequireFromString("174.52")),
		MaturityDate:     &m,
		Status:           model.StatusActive,
		Currency:         "MYR",
		Remarks:          `12 month, "promo" rate`,
	}
}

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("InsertAssignsID", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Insert(ctx, Sample())
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, got.ID, list[0].ID)
	})

	t.Run("RoundTripsAllFields", func(t *testing.T) {
		s := newStore(t)
		want, err := s.Insert(ctx, Sample())
		require.NoError(t, err)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		got := list[0]

		assert.True(t, want.Date.Equal(got.Date))
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Action, got.Action)
		assert.True(t, want.Amount.Equal(got.Amount), "amount: %s", got.Amount)
		assert.True(t, want.UnitPrice.Decimal.Equal(got.UnitPrice.Decimal))
		assert.True(t, want.Quantity.Decimal.Equal(got.Quantity.Decimal))
		assert.True(t, want.Fee.Decimal.Equal(got.Fee.Decimal))
		assert.True(t, got.InterestRate.Valid)
		assert.True(t, want.InterestRate.Decimal.Equal(got.InterestRate.Decimal))
		require.NotNil(t, got.MaturityDate)
		assert.True(t, want.MaturityDate.Equal(*got.MaturityDate))
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Currency, got.Currency)
		assert.Equal(t, want.Remarks, got.Remarks)
	})

	t.Run("OptionalFieldsStayAbsent", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Insert(ctx, model.Record{
			Date:   date(2024, 3, 1),
			Type:   model.TypeStock,
			Name:   "PBBANK",
			Action: "Buy",
			Amount: decimal.RequireFromString("420.10"),
			Status: model.StatusActive,
		})
		require.NoError(t, err)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		got := list[0]
		assert.False(t, got.UnitPrice.Valid)
		assert.False(t, got.Quantity.Valid)
		assert.False(t, got.Fee.Valid)
		assert.False(t, got.InterestRate.Valid)
		assert.False(t, got.InterestDividend.Valid)
		assert.Nil(t, got.MaturityDate)
	})

	t.Run("ListOrdersByDateDesc", func(t *testing.T) {
		s := newStore(t)
		for _, d := range []time.Time{date(2024, 1, 1), date(2024, 3, 1), date(2024, 2, 1)} {
			r := Sample()
			r.Date = d
			r.MaturityDate = nil
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}
		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "2024-03-01", list[0].Date.Format(model.DateFormat))
		assert.Equal(t, "2024-02-01", list[1].Date.Format(model.DateFormat))
		assert.Equal(t, "2024-01-01", list[2].Date.Format(model.DateFormat))
	})

	t.Run("UpdatePartial", func(t *testing.T) {
		s := newStore(t)
		r, err := s.Insert(ctx, Sample())
		require.NoError(t, err)

		require.NoError(t, s.Update(ctx, r.ID, model.StatusPatch(model.StatusMature)))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, model.StatusMature, list[0].Status)
		assert.Equal(t, "Maybank FD", list[0].Name, "other fields untouched")
		assert.Equal(t, r.ID, list[0].ID)
	})

	t.Run("UpdateUnknown", func(t *testing.T) {
		s := newStore(t)
		err := s.Update(ctx, "00000000-0000-0000-0000-000000000000", model.StatusPatch(model.StatusSold))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Insert(ctx, Sample())
		require.NoError(t, err)
		b, err := s.Insert(ctx, Sample())
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, a.ID))
		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, b.ID, list[0].ID)

		assert.ErrorIs(t, s.Delete(ctx, a.ID), store.ErrNotFound)
	})

	t.Run("DeleteMany", func(t *testing.T) {
		s := newStore(t)
		var ids []string
		for i := 0; i < 4; i++ {
			r, err := s.Insert(ctx, Sample())
			require.NoError(t, err)
			ids = append(ids, r.ID)
		}
		require.NoError(t, s.DeleteMany(ctx, []string{ids[0], ids[2], "missing"}))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		got := []string{list[0].ID, list[1].ID}
		assert.ElementsMatch(t, []string{ids[1], ids[3]}, got)
	})
}
