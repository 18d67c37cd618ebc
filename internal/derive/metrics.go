// Package derive turns a flat record list plus view parameters into the
// dashboard figures, breakdowns and list views. Every function is pure.
package derive

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/interest"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// AllTypes is the type filter that matches every record.
const AllTypes model.AssetType = "All"

// TypeColors colors type-level allocation slices.
var TypeColors = map[model.AssetType]string{
	model.TypeFixedDeposit: "#3b82f6",
	model.TypeStock:        "#10b981",
	model.TypeREIT:         "#f59e0b",
	model.TypeProperty:     "#ef4444",
	model.TypeEPF:          "#8b5cf6",
	model.TypeOther:        "#6b7280",
}

// Palette is cycled in encounter order for name-level allocation slices.
var Palette = []string{
	"#0ea5e9", "#22c55e", "#eab308", "#f97316",
	"#ec4899", "#6366f1", "#14b8a6", "#a855f7",
}

// Slice is one group of a breakdown.
type Slice struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Color string          `json:"color,omitempty"`
}

// FixedDepositSummary totals the Active fixed deposits of a partition.
type FixedDepositSummary struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Count     int             `json:"count"`
}

// Partition returns the records whose currency equals currency. Records
// without a currency belong to MYR.
func Partition(records []model.Record, currency string) []model.Record {
	want := strings.ToUpper(strings.TrimSpace(currency))
	if want == "" {
		want = model.DefaultCurrency
	}
	var out []model.Record
	for _, r := range records {
		if strings.ToUpper(r.CurrencyCode()) == want {
			out = append(out, r)
		}
	}
	return out
}

// Currencies lists the distinct currency codes of records, sorted. MYR is
// always present.
func Currencies(records []model.Record) []string {
	seen := map[string]bool{model.DefaultCurrency: true}
	for _, r := range records {
		seen[strings.ToUpper(r.CurrencyCode())] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

func matchesType(r model.Record, filter model.AssetType) bool {
	return filter == "" || filter == AllTypes || r.Type == filter
}

// TotalValue sums the amounts of Active records matching filter, keyed by
// currency code.
func TotalValue(records []model.Record, filter model.AssetType) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range records {
		if !r.IsActive() || !matchesType(r, filter) {
			continue
		}
		cur := strings.ToUpper(r.CurrencyCode())
		out[cur] = out[cur].Add(r.Amount)
	}
	return out
}

// group sums Active amounts by type (filter All) or by name within the
// filtered type, in first-encounter order.
func group(records []model.Record, filter model.AssetType) []Slice {
	byType := filter == "" || filter == AllTypes
	index := make(map[string]int)
	var groups []Slice
	for _, r := range records {
		if !r.IsActive() || !matchesType(r, filter) {
			continue
		}
		key := r.Name
		if byType {
			key = string(r.Type)
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			color := Palette[i%len(Palette)]
			if byType {
				color = TypeColors[r.Type]
			}
			groups = append(groups, Slice{Name: key, Color: color})
		}
		groups[i].Value = groups[i].Value.Add(r.Amount)
	}
	return groups
}

// TopAsset returns the group with the highest Active sum. The first group
// encountered wins ties. Without Active records it returns N/A with 0.
func TopAsset(records []model.Record, filter model.AssetType) Slice {
	top := Slice{Name: "N/A", Value: decimal.Zero}
	found := false
	for _, g := range group(records, filter) {
		if !found || g.Value.GreaterThan(top.Value) {
			top = Slice{Name: g.Name, Value: g.Value}
			found = true
		}
	}
	return top
}

// Allocation returns one slice per type (filter All) or per name, with
// values above zero only, largest first.
func Allocation(records []model.Record, filter model.AssetType) []Slice {
	groups := group(records, filter)
	out := make([]Slice, 0, len(groups))
	for _, g := range groups {
		if g.Value.IsPositive() {
			out = append(out, g)
		}
	}
	slices.SortStableFunc(out, func(a, b Slice) int {
		return b.Value.Cmp(a.Value)
	})
	return out
}

// Count is the number of records in the partition, any status.
func Count(records []model.Record) int {
	return len(records)
}

// FixedDepositStats sums principal and recomputed interest over Active
// fixed deposits.
func FixedDepositStats(records []model.Record) FixedDepositSummary {
	sum := FixedDepositSummary{Principal: decimal.Zero, Interest: decimal.Zero}
	for _, r := range records {
		if r.Type != model.TypeFixedDeposit || !r.IsActive() {
			continue
		}
		sum.Principal = sum.Principal.Add(r.Amount)
		sum.Interest = sum.Interest.Add(interest.ForRecord(r))
		sum.Count++
	}
	return sum
}

// OfType returns the records of type t.
func OfType(records []model.Record, t model.AssetType) []model.Record {
	var out []model.Record
	for _, r := range records {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}
