package derive

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

func ids(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestViewState_Transitions(t *testing.T) {
	v := NewView(ViewAll, 5)
	assert.Equal(t, SortDate, v.Sort)
	assert.Equal(t, Desc, v.Dir)
	assert.Equal(t, 1, v.Page)

	v.SetPage(3)
	v.ToggleSort(SortAmount)
	assert.Equal(t, SortAmount, v.Sort)
	assert.Equal(t, Asc, v.Dir, "new key starts ascending")
	assert.Equal(t, 1, v.Page)

	v.SetPage(2)
	v.ToggleSort(SortAmount)
	assert.Equal(t, Desc, v.Dir, "same key flips")
	assert.Equal(t, 1, v.Page)

	v.ToggleSort(SortAmount)
	assert.Equal(t, Asc, v.Dir)

	v.SetPage(4)
	v.SetSearch("maybank")
	assert.Equal(t, 1, v.Page)

	v.SetPage(4)
	v.SetTypeFilter(model.TypeStock)
	assert.Equal(t, 1, v.Page)

	v.SetPage(4)
	v.SetPageSize(20)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, 20, v.PageSize)
}

func TestFilter(t *testing.T) {
	a := rec("1", model.TypeStock, "Maybank", "1")
	b := rec("2", model.TypeREIT, "Sunway REIT", "1")
	b.Remarks = "bought via maybank2u"
	c := rec("3", model.TypeStock, "CIMB", "1")
	records := []model.Record{a, b, c}

	all := NewView(ViewAll, 10)
	all.SetSearch("MAYBANK")
	assert.Equal(t, []string{"1", "2"}, ids(Filter(records, all)), "all view searches remarks")

	all.SetTypeFilter(model.TypeStock)
	assert.Equal(t, []string{"1"}, ids(Filter(records, all)))

	fd := NewView(ViewFixedDeposit, 10)
	fd.SetSearch("maybank")
	assert.Equal(t, []string{"1"}, ids(Filter(records, fd)), "other views search names only")

	assert.Len(t, Filter(records, NewView(ViewAll, 10)), 3)
}

func TestSort(t *testing.T) {
	a := rec("a", model.TypeStock, "B", "30")
	a.Date = day("2024-03-01")
	b := rec("b", model.TypeStock, "A", "10")
	b.Date = day("2024-01-01")
	b.Fee = decimal.NewNullDecimal(dec("2"))
	c := rec("c", model.TypeStock, "C", "20")
	c.Date = day("2024-02-01")
	d := rec("d", model.TypeStock, "A", "10")
	d.Date = day("2024-02-01")
	records := []model.Record{a, b, c, d}

	assert.Equal(t, []string{"a", "c", "d", "b"}, ids(Sort(records, "", "")), "default date desc, stable")
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids(Sort(records, SortName, Asc)))
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(Sort(records, SortAmount, Asc)))
	assert.Equal(t, []string{"a", "c", "b", "d"}, ids(Sort(records, SortAmount, Desc)), "desc keeps ties in input order")
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids(Sort(records, SortFee, Desc)), "absent fee compares as zero")

	assert.False(t, records[0].Fee.Valid, "sorting never fills absent values")
	assert.Equal(t, "a", records[0].ID, "input is not reordered")
}

func TestSort_MaturityAbsentFirst(t *testing.T) {
	m := day("2025-01-01")
	with := rec("with", model.TypeFixedDeposit, "FD", "1")
	with.MaturityDate = &m
	without := rec("without", model.TypeFixedDeposit, "FD", "1")

	assert.Equal(t, []string{"without", "with"}, ids(Sort([]model.Record{with, without}, SortMaturityDate, Asc)))
	assert.Nil(t, without.MaturityDate)
}

func TestPaginate_Clamps(t *testing.T) {
	var records []model.Record
	for i := range 7 {
		records = append(records, rec(fmt.Sprint(i), model.TypeStock, "x", "1"))
	}

	p := Paginate(records, 0, 3)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 7, p.Total)
	assert.Equal(t, []string{"0", "1", "2"}, ids(p.Items))

	p = Paginate(records, 99, 3)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, []string{"6"}, ids(p.Items))

	p = Paginate(records, -4, 3)
	assert.Equal(t, 1, p.Page)

	empty := Paginate(nil, 5, 3)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Empty(t, empty.Items)
}

func TestPaginate_ConcatenationReproducesList(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for size := 1; size <= 7; size++ {
			var records []model.Record
			for i := range n {
				records = append(records, rec(fmt.Sprint(i), model.TypeStock, "x", "1"))
			}

			pages := TotalPages(n, size)
			assert.Equal(t, (n+size-1)/size, pages)

			var joined []string
			for page := 1; page <= pages; page++ {
				got := Paginate(records, page, size)
				require.Equal(t, page, got.Page)
				joined = append(joined, ids(got.Items)...)
			}
			if n == 0 {
				assert.Empty(t, joined)
				continue
			}
			assert.Equal(t, ids(records), joined, "n=%d size=%d", n, size)
		}
	}
}

func TestApplyView(t *testing.T) {
	var records []model.Record
	for i := range 12 {
		r := rec(fmt.Sprintf("r%02d", i), model.TypeStock, fmt.Sprintf("Stock %02d", i), "1")
		r.Date = day("2024-01-01").AddDate(0, 0, i)
		records = append(records, r)
	}

	v := NewView(ViewAll, 5)
	v.SetPage(3)
	page := ApplyView(records, v)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, []string{"r01", "r00"}, ids(page.Items))
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("Amount")
	require.NoError(t, err)
	assert.Equal(t, SortAmount, k)

	k, err = ParseSortKey("")
	require.NoError(t, err)
	assert.Empty(t, k)

	_, err = ParseSortKey("id")
	assert.Error(t, err)

	d, err := ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)
	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
