// Package remarks encodes interest metadata inside the free-text remarks
// field as bracket tags, for stores that lack dedicated columns:
//
//	Monthly rollover [Rate: 3.45%] [Int: 100]
package remarks

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

var (
	rateTag = regexp.MustCompile(`\[Rate:\s*(-?[0-9]*\.?[0-9]+)%\]`)
	intTag  = regexp.MustCompile(`\[Int:\s*(-?[0-9]*\.?[0-9]+)\]`)
	anyRate = regexp.MustCompile(`\s*\[Rate:[^\]]*\]`)
	anyInt  = regexp.MustCompile(`\s*\[Int:[^\]]*\]`)
)

// ParseRate returns the first [Rate: x%] value in text, or 0.
func ParseRate(text string) decimal.Decimal {
	return firstMatch(rateTag, text)
}

// ParseInterest returns the first [Int: x] value in text, or 0.
func ParseInterest(text string) decimal.Decimal {
	return firstMatch(intTag, text)
}

func firstMatch(re *regexp.Regexp, text string) decimal.Decimal {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return decimal.Zero
	}
	return d
}

// HasTags reports whether text carries any rate or interest tag.
func HasTags(text string) bool {
	return anyRate.MatchString(text) || anyInt.MatchString(text)
}

// Strip removes every rate and interest tag, well-formed or not.
func Strip(text string) string {
	out := anyRate.ReplaceAllString(text, "")
	out = anyInt.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// RateTag formats a rate tag, e.g. "[Rate: 3.45%]".
func RateTag(rate decimal.Decimal) string {
	return "[Rate: " + rate.String() + "%]"
}

// InterestTag formats an interest tag, e.g. "[Int: 100]".
func InterestTag(amount decimal.Decimal) string {
	return "[Int: " + amount.String() + "]"
}

// Encode returns the remarks to persist for r: existing tags are stripped
// and fresh ones appended. The interest tag is never written for fixed
// deposits because their interest is always recomputed.
func Encode(r model.Record) string {
	parts := []string{Strip(r.Remarks)}
	if r.InterestRate.Valid && !r.InterestRate.Decimal.IsZero() {
		parts = append(parts, RateTag(r.InterestRate.Decimal))
	}
	if r.Type != model.TypeFixedDeposit && r.InterestDividend.Valid && !r.InterestDividend.Decimal.IsZero() {
		parts = append(parts, InterestTag(r.InterestDividend.Decimal))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Decode fills absent rate and interest fields from remarks tags. Present
// dedicated fields always win. Remarks are left untouched.
func Decode(r model.Record) model.Record {
	out := r.Clone()
	if !out.InterestRate.Valid {
		if rate := ParseRate(out.Remarks); !rate.IsZero() {
			out.InterestRate = decimal.NewNullDecimal(rate)
		}
	}
	if !out.InterestDividend.Valid {
		if amt := ParseInterest(out.Remarks); !amt.IsZero() {
			out.InterestDividend = decimal.NewNullDecimal(amt)
		}
	}
	return out
}

// Migrate decodes legacy tags into dedicated fields and strips them from the
// remarks. It reports whether anything changed.
func Migrate(r model.Record) (model.Record, bool) {
	if !HasTags(r.Remarks) {
		return r, false
	}
	out := Decode(r)
	out.Remarks = Strip(out.Remarks)
	return out, true
}
