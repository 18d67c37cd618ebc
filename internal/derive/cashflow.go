package derive

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// Action keywords for property cash flow, matched as lowercase substrings.
var (
	OutflowKeywords = []string{"buy", "pay", "installment", "downpayment", "maintenance", "expense", "tax", "renovation"}
	InflowKeywords  = []string{"rent", "income", "sold", "dividend"}
)

// CashFlow is the money put into and taken out of property records.
type CashFlow struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	TotalReturned decimal.Decimal `json:"total_returned"`
	NetCashFlow   decimal.Decimal `json:"net_cash_flow"`
}

// IsOutflow reports whether action matches an outflow keyword.
func IsOutflow(action string) bool { return containsAny(action, OutflowKeywords) }

// IsInflow reports whether action matches an inflow keyword.
func IsInflow(action string) bool { return containsAny(action, InflowKeywords) }

func containsAny(action string, keywords []string) bool {
	a := strings.ToLower(action)
	for _, k := range keywords {
		if strings.Contains(a, k) {
			return true
		}
	}
	return false
}

// PropertyRecords returns the Property records of the partition, narrowed
// to one property when name is not empty.
func PropertyRecords(records []model.Record, name string) []model.Record {
	var out []model.Record
	for _, r := range records {
		if r.Type != model.TypeProperty {
			continue
		}
		if name != "" && r.Name != name {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PropertyNames lists distinct property names in first-encounter order.
func PropertyNames(records []model.Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		if r.Type != model.TypeProperty || seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		names = append(names, r.Name)
	}
	return names
}

// PropertyCashFlow classifies each property record by its action. An action
// matching both keyword lists counts in both totals; one matching neither
// counts in none.
func PropertyCashFlow(records []model.Record, name string) CashFlow {
	cf := CashFlow{TotalInvested: decimal.Zero, TotalReturned: decimal.Zero}
	for _, r := range PropertyRecords(records, name) {
		if IsOutflow(r.Action) {
			cf.TotalInvested = cf.TotalInvested.Add(r.Amount)
		}
		if IsInflow(r.Action) {
			cf.TotalReturned = cf.TotalReturned.Add(r.Amount)
		}
	}
	cf.NetCashFlow = cf.TotalReturned.Sub(cf.TotalInvested)
	return cf
}
