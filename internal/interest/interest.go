// Package interest computes simple interest for fixed deposits and detects
// matured deposits.
package interest

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// dayBasis is the percent-year denominator (365 days x 100).
var dayBasis = decimal.NewFromInt(36500)

// Days returns the whole number of days from start to end, rounded up.
func Days(start, end time.Time) int64 {
	return int64(math.Ceil(end.Sub(start).Hours() / 24))
}

// Calculate returns amount * ratePercent * days / 36500 rounded to 2 places.
// It returns 0 when any input is absent or zero, or when end is not after
// start.
func Calculate(amount, ratePercent decimal.Decimal, start, end time.Time) decimal.Decimal {
	if amount.IsZero() || ratePercent.IsZero() || start.IsZero() || end.IsZero() {
		return decimal.Zero
	}
	if !end.After(start) {
		return decimal.Zero
	}
	days := decimal.NewFromInt(Days(start, end))
	return amount.Mul(ratePercent).Mul(days).Div(dayBasis).Round(2)
}

// ForRecord computes the interest of a fixed deposit from its amount, rate,
// start date and maturity date.
func ForRecord(r model.Record) decimal.Decimal {
	if !r.InterestRate.Valid || r.MaturityDate == nil {
		return decimal.Zero
	}
	return Calculate(r.Amount, r.InterestRate.Decimal, r.Date, *r.MaturityDate)
}

// Apply repopulates InterestDividend of a fixed deposit. The stored value is
// never trusted for this type: a deposit without a rate has no interest.
// Other records are returned unchanged.
func Apply(r model.Record) model.Record {
	if r.Type != model.TypeFixedDeposit {
		return r
	}
	out := r.Clone()
	if !r.InterestRate.Valid {
		out.InterestDividend = decimal.NullDecimal{}
		return out
	}
	out.InterestDividend = decimal.NewNullDecimal(ForRecord(r))
	return out
}

// ApplyAll runs Apply over records in place.
func ApplyAll(records []model.Record) {
	for i := range records {
		records[i] = Apply(records[i])
	}
}

// IsMatured reports whether r is an Active fixed deposit whose maturity date
// is on or before today (calendar comparison).
func IsMatured(r model.Record, today time.Time) bool {
	if r.Type != model.TypeFixedDeposit || r.Status != model.StatusActive || r.MaturityDate == nil {
		return false
	}
	return !model.DateOf(*r.MaturityDate).After(model.DateOf(today))
}

// ScanMaturity moves matured fixed deposits from Active to Mature in place
// and returns the ids that changed. Running it again is a no-op.
func ScanMaturity(records []model.Record, today time.Time) []string {
	var changed []string
	for i := range records {
		if IsMatured(records[i], today) {
			records[i].Status = model.StatusMature
			changed = append(changed, records[i].ID)
		}
	}
	return changed
}
