package model

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"
)

// ValidationError describes a single boundary rule violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the error returned by JoinValidation. Callers match
// it with errors.As to tell bad input from storage failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// JoinValidation folds validation errors into one error, or nil.
func JoinValidation(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return ValidationErrors(errs)
}

// Validate applies the form / import rules to a record.
func Validate(r Record) []ValidationError {
	var errs []ValidationError

	if r.Date.IsZero() {
		errs = append(errs, ValidationError{Field: "date", Message: "is required"})
	}
	if !knownType(r.Type) {
		errs = append(errs, ValidationError{Field: "type", Message: fmt.Sprintf("unknown asset type %q", r.Type)})
	}
	if strings.TrimSpace(r.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "is required"})
	}
	if !knownStatus(r.Status) {
		errs = append(errs, ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", r.Status)})
	}
	if r.Type == TypeProperty && !IsPropertyAction(r.Action) {
		errs = append(errs, ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("%q is not a property action (want one of %s)", r.Action, strings.Join(PropertyActions, ", ")),
		})
	}
	if r.InterestRate.Valid && r.InterestRate.Decimal.IsNegative() {
		errs = append(errs, ValidationError{Field: "interest_rate", Message: "must not be negative"})
	}
	if r.MaturityDate != nil && !r.Date.IsZero() && r.MaturityDate.Before(r.Date) {
		errs = append(errs, ValidationError{Field: "maturity_date", Message: "is before the start date"})
	}
	return errs
}

// IsPropertyAction reports whether action belongs to the property vocabulary.
func IsPropertyAction(action string) bool {
	for _, a := range PropertyActions {
		if strings.EqualFold(a, strings.TrimSpace(action)) {
			return true
		}
	}
	return false
}

func knownType(t AssetType) bool {
	for _, k := range AssetTypes {
		if k == t {
			return true
		}
	}
	return false
}

func knownStatus(s Status) bool {
	for _, k := range Statuses {
		if k == s {
			return true
		}
	}
	return false
}

var textPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup from free-text fields, trims them, fills the
// default status and currency, and canonicalizes property actions.
func Sanitize(r Record) Record {
	out := r.Clone()
	out.Name = cleanText(out.Name)
	out.Action = cleanText(out.Action)
	out.Remarks = cleanText(out.Remarks)
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	if out.Status == "" {
		out.Status = StatusActive
	}
	if out.Type == TypeProperty {
		for _, a := range PropertyActions {
			if strings.EqualFold(a, out.Action) {
				out.Action = a
			}
		}
	}
	return out
}

// cleanText drops tags but keeps entities such as "&" readable.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// CoerceAmount parses s as a decimal. Empty or non-numeric input yields 0.
func CoerceAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CoerceOptional parses s as an optional decimal. Empty input is absent;
// non-numeric input is present and 0.
func CoerceOptional(s string) decimal.NullDecimal {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(CoerceAmount(s))
}

// ParseDate parses an ISO calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

// ParseOptionalDate parses an ISO date; empty input is absent.
func ParseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FormatOptional renders an optional decimal, empty when absent.
func FormatOptional(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// FormatOptionalDate renders an optional date, empty when absent.
func FormatOptionalDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateFormat)
}

// Today returns the current calendar date at UTC midnight.
func Today() time.Time {
	return DateOf(time.Now())
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
