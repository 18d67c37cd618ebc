package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the ISO calendar date layout used for record dates.
const DateFormat = "2006-01-02"

// DefaultCurrency applies to records without a currency code.
const DefaultCurrency = "MYR"

// AssetType classifies records. The set is closed.
type AssetType string

const (
	TypeFixedDeposit AssetType = "Fixed Deposit"
	TypeStock        AssetType = "Stock"
	TypeREIT         AssetType = "REIT"
	TypeProperty     AssetType = "Property"
	TypeEPF          AssetType = "EPF"
	TypeOther        AssetType = "Other"
)

// AssetTypes lists every asset type in display order.
var AssetTypes = []AssetType{TypeFixedDeposit, TypeStock, TypeREIT, TypeProperty, TypeEPF, TypeOther}

// ParseAssetType matches s case-insensitively against the known types.
// "FD" and "FixedDeposit" are accepted as aliases of Fixed Deposit.
func ParseAssetType(s string) (AssetType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "fd", "fixeddeposit", "fixed_deposit":
		return TypeFixedDeposit, true
	}
	for _, t := range AssetTypes {
		if strings.ToLower(string(t)) == norm {
			return t, true
		}
	}
	return "", false
}

// Status is the lifecycle state of a record.
type Status string

const (
	StatusActive Status = "Active"
	StatusMature Status = "Mature"
	StatusSold   Status = "Sold"
)

// Statuses lists every status value.
var Statuses = []Status{StatusActive, StatusMature, StatusSold}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, st := range Statuses {
		if strings.ToLower(string(st)) == norm {
			return st, true
		}
	}
	return "", false
}

// PropertyActions is the fixed action vocabulary for Property records.
var PropertyActions = []string{
	"Buy", "Downpayment", "Installment", "Maintenance", "Renovation",
	"Tax", "Expense", "Rent", "Income", "Sold",
}

// SuggestedActions are offered for non-Property records; any text is allowed.
var SuggestedActions = []string{
	"Buy", "Sell", "Deposit", "Withdraw", "Dividend", "Contribution", "Interest",
}

// Record is one transaction in the asset ledger.
type Record struct {
	ID               string
	Date             time.Time
	Type             AssetType
	Name             string
	Action           string
	Amount           decimal.Decimal
	UnitPrice        decimal.NullDecimal
	Quantity         decimal.NullDecimal
	Fee              decimal.NullDecimal
	InterestRate     decimal.NullDecimal // annual percent, Fixed Deposit only
	InterestDividend decimal.NullDecimal // derived for Fixed Deposit
	MaturityDate     *time.Time
	Status           Status
	Currency         string
	Remarks          string
}

// CurrencyCode returns the record currency, defaulting to MYR.
func (r Record) CurrencyCode() string {
	if strings.TrimSpace(r.Currency) == "" {
		return DefaultCurrency
	}
	return r.Currency
}

// IsActive reports whether the record counts toward current holdings.
func (r Record) IsActive() bool { return r.Status == StatusActive }

// Signature identifies likely duplicates independently of the id.
type Signature struct {
	Date     string
	Name     string
	Type     AssetType
	Action   string
	Amount   string
	Currency string
}

// Signature returns the duplicate-detection tuple for r.
func (r Record) Signature() Signature {
	return Signature{
		Date:     r.Date.Format(DateFormat),
		Name:     r.Name,
		Type:     r.Type,
		Action:   r.Action,
		Amount:   r.Amount.String(),
		Currency: r.CurrencyCode(),
	}
}

// Clone returns a copy of r that shares no pointers with it.
func (r Record) Clone() Record {
	if r.MaturityDate != nil {
		m := *r.MaturityDate
		r.MaturityDate = &m
	}
	return r
}

// Patch carries a partial update. Nil fields are left unchanged; a Clear*
// flag removes an optional value.
type Patch struct {
	Date             *time.Time
	Type             *AssetType
	Name             *string
	Action           *string
	Amount           *decimal.Decimal
	UnitPrice        *decimal.NullDecimal
	Quantity         *decimal.NullDecimal
	Fee              *decimal.NullDecimal
	InterestRate     *decimal.NullDecimal
	InterestDividend *decimal.NullDecimal
	MaturityDate     *time.Time
	ClearMaturity    bool
	Status           *Status
	Currency         *string
	Remarks          *string
}

// Apply returns r with the patch applied. r itself is not modified.
func (p Patch) Apply(r Record) Record {
	out := r.Clone()
	if p.Date != nil {
		out.Date = *p.Date
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Action != nil {
		out.Action = *p.Action
	}
	if p.Amount != nil {
		out.Amount = *p.Amount
	}
	if p.UnitPrice != nil {
		out.UnitPrice = *p.UnitPrice
	}
	if p.Quantity != nil {
		out.Quantity = *p.Quantity
	}
	if p.Fee != nil {
		out.Fee = *p.Fee
	}
	if p.InterestRate != nil {
		out.InterestRate = *p.InterestRate
	}
	if p.InterestDividend != nil {
		out.InterestDividend = *p.InterestDividend
	}
	if p.ClearMaturity {
		out.MaturityDate = nil
	}
	if p.MaturityDate != nil {
		m := *p.MaturityDate
		out.MaturityDate = &m
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Currency != nil {
		out.Currency = *p.Currency
	}
	if p.Remarks != nil {
		out.Remarks = *p.Remarks
	}
	return out
}

// ReplacePatch builds the full-replace patch used by edit forms: every
// editable field of r is set, the id is not part of it.
func ReplacePatch(r Record) Patch {
	p := Patch{
		Date:             &r.Date,
		Type:             &r.Type,
		Name:             &r.Name,
		Action:           &r.Action,
		Amount:           &r.Amount,
		UnitPrice:        &r.UnitPrice,
		Quantity:         &r.Quantity,
		Fee:              &r.Fee,
		InterestRate:     &r.InterestRate,
		InterestDividend: &r.InterestDividend,
		Status:           &r.Status,
		Currency:         &r.Currency,
		Remarks:          &r.Remarks,
	}
	if r.MaturityDate != nil {
		p.MaturityDate = r.MaturityDate
	} else {
		p.ClearMaturity = true
	}
	return p
}

// StatusPatch changes only the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}
