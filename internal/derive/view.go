package derive

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// ViewKind selects which list a ViewState drives.
type ViewKind int

const (
	ViewAll ViewKind = iota
	ViewProperty
	ViewFixedDeposit
)

// SortKey names a sortable record column.
type SortKey string

const (
	SortDate             SortKey = "date"
	SortType             SortKey = "type"
	SortName             SortKey = "name"
	SortAction           SortKey = "action"
	SortAmount           SortKey = "amount"
	SortUnitPrice        SortKey = "unit_price"
	SortQuantity         SortKey = "quantity"
	SortFee              SortKey = "fee"
	SortInterestRate     SortKey = "interest_rate"
	SortInterestDividend SortKey = "interest_dividend"
	SortMaturityDate     SortKey = "maturity_date"
	SortStatus           SortKey = "status"
	SortRemarks          SortKey = "remarks"
)

// SortKeys lists the accepted sort keys.
var SortKeys = []SortKey{
	SortDate, SortType, SortName, SortAction, SortAmount, SortUnitPrice, SortQuantity,
	SortFee, SortInterestRate, SortInterestDividend, SortMaturityDate, SortStatus, SortRemarks,
}

// ParseSortKey validates a sort key. The empty string means the default.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return "", nil
	}
	if !slices.Contains(SortKeys, k) {
		return "", fmt.Errorf("unknown sort key %q", s)
	}
	return k, nil
}

// Direction is ascending or descending.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection validates a sort direction. The empty string means the
// default.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case "", Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// DefaultPageSize is used when a view has no page size.
const DefaultPageSize = 10

// ViewState is the search, filter, sort and page window of one list view.
// Each list keeps its own.
type ViewState struct {
	Kind     ViewKind        `json:"kind"`
	Search   string          `json:"search"`
	Type     model.AssetType `json:"type"`
	Sort     SortKey         `json:"sort"`
	Dir      Direction       `json:"dir"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// NewView returns a view sorted by date descending on page 1.
func NewView(kind ViewKind, pageSize int) ViewState {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return ViewState{Kind: kind, Type: AllTypes, Sort: SortDate, Dir: Desc, Page: 1, PageSize: pageSize}
}

// SetSearch changes the search text and resets to page 1.
func (v *ViewState) SetSearch(q string) {
	v.Search = q
	v.Page = 1
}

// SetTypeFilter changes the type filter and resets to page 1.
func (v *ViewState) SetTypeFilter(t model.AssetType) {
	v.Type = t
	v.Page = 1
}

// ToggleSort flips the direction when key is already the sort key;
// otherwise it sorts by key ascending. The page resets to 1.
func (v *ViewState) ToggleSort(key SortKey) {
	if v.Sort == key {
		if v.Dir == Asc {
			v.Dir = Desc
		} else {
			v.Dir = Asc
		}
	} else {
		v.Sort = key
		v.Dir = Asc
	}
	v.Page = 1
}

// SetSort sets key and direction explicitly and resets to page 1.
func (v *ViewState) SetSort(key SortKey, dir Direction) {
	v.Sort = key
	v.Dir = dir
	v.Page = 1
}

// SetPage moves to page n. Out-of-range pages are clamped when applied.
func (v *ViewState) SetPage(n int) {
	v.Page = n
}

// SetPageSize changes the page size and resets to page 1.
func (v *ViewState) SetPageSize(n int) {
	v.PageSize = n
	v.Page = 1
}

// Page is one window of a filtered, sorted list.
type Page struct {
	Items      []model.Record `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total"`
}

// Filter returns the records matching the view search and type filter.
// The all-records view also searches remarks.
func Filter(records []model.Record, v ViewState) []model.Record {
	q := strings.ToLower(strings.TrimSpace(v.Search))
	var out []model.Record
	for _, r := range records {
		if v.Kind == ViewAll && !matchesType(r, v.Type) {
			continue
		}
		if q != "" {
			hit := strings.Contains(strings.ToLower(r.Name), q)
			if !hit && v.Kind == ViewAll {
				hit = strings.Contains(strings.ToLower(r.Remarks), q)
			}
			if !hit {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Sort returns a stably sorted copy of records. An unset key sorts by date
// descending.
func Sort(records []model.Record, key SortKey, dir Direction) []model.Record {
	if key == "" {
		key, dir = SortDate, Desc
	}
	if dir == "" {
		dir = Asc
	}
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b model.Record) int {
		c := compare(a, b, key)
		if dir == Desc {
			return -c
		}
		return c
	})
	return out
}

func compare(a, b model.Record, key SortKey) int {
	switch key {
	case SortDate:
		return a.Date.Compare(b.Date)
	case SortType:
		return cmp.Compare(a.Type, b.Type)
	case SortName:
		return cmp.Compare(a.Name, b.Name)
	case SortAction:
		return cmp.Compare(a.Action, b.Action)
	case SortAmount:
		return a.Amount.Cmp(b.Amount)
	case SortUnitPrice:
		return orZero(a.UnitPrice).Cmp(orZero(b.UnitPrice))
	case SortQuantity:
		return orZero(a.Quantity).Cmp(orZero(b.Quantity))
	case SortFee:
		return orZero(a.Fee).Cmp(orZero(b.Fee))
	case SortInterestRate:
		return orZero(a.InterestRate).Cmp(orZero(b.InterestRate))
	case SortInterestDividend:
		return orZero(a.InterestDividend).Cmp(orZero(b.InterestDividend))
	case SortMaturityDate:
		return cmp.Compare(model.FormatOptionalDate(a.MaturityDate), model.FormatOptionalDate(b.MaturityDate))
	case SortStatus:
		return cmp.Compare(a.Status, b.Status)
	case SortRemarks:
		return cmp.Compare(a.Remarks, b.Remarks)
	}
	return 0
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// TotalPages is ceil(n/size).
func TotalPages(n, size int) int {
	if size < 1 {
		size = DefaultPageSize
	}
	return (n + size - 1) / size
}

// Paginate returns page of records, clamping page to [1, max(1, pages)].
func Paginate(records []model.Record, page, size int) Page {
	if size < 1 {
		size = DefaultPageSize
	}
	pages := TotalPages(len(records), size)
	page = min(max(page, 1), max(pages, 1))
	start := min((page-1)*size, len(records))
	end := min(start+size, len(records))
	return Page{
		Items:      records[start:end:end],
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
		Total:      len(records),
	}
}

// ApplyView filters, sorts and paginates records.
func ApplyView(records []model.Record, v ViewState) Page {
	sorted := Sort(Filter(records, v), v.Sort, v.Dir)
	return Paginate(sorted, v.Page, v.PageSize)
}
