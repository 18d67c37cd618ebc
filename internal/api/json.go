package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/importer"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

// recordJSON is the wire form of a record. Dates are ISO calendar dates and
// decimals are strings.
type recordJSON struct {
	ID               string              `json:"id"`
	Date             string              `json:"date"`
	Type             model.AssetType     `json:"type"`
	Name             string              `json:"name"`
	Action           string              `json:"action"`
	Amount           decimal.Decimal     `json:"amount"`
	UnitPrice        decimal.NullDecimal `json:"unit_price"`
	Quantity         decimal.NullDecimal `json:"quantity"`
	Fee              decimal.NullDecimal `json:"fee"`
	InterestRate     decimal.NullDecimal `json:"interest_rate"`
	InterestDividend decimal.NullDecimal `json:"interest_dividend"`
	MaturityDate     string              `json:"maturity_date,omitempty"`
	Status           model.Status        `json:"status"`
	Currency         string              `json:"currency"`
	Remarks          string              `json:"remarks"`
}

func toJSON(r model.Record) recordJSON {
	return recordJSON{
		ID:               r.ID,
		Date:             r.Date.Format(model.DateFormat),
		Type:             r.Type,
		Name:             r.Name,
		Action:           r.Action,
		Amount:           r.Amount,
		UnitPrice:        r.UnitPrice,
		Quantity:         r.Quantity,
		Fee:              r.Fee,
		InterestRate:     r.InterestRate,
		InterestDividend: r.InterestDividend,
		MaturityDate:     model.FormatOptionalDate(r.MaturityDate),
		Status:           r.Status,
		Currency:         r.CurrencyCode(),
		Remarks:          r.Remarks,
	}
}

func toJSONs(records []model.Record) []recordJSON {
	out := make([]recordJSON, len(records))
	for i, r := range records {
		out[i] = toJSON(r)
	}
	return out
}

type pageJSON struct {
	Items      []recordJSON `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	Total      int          `json:"total"`
}

func toPage(p derive.Page) pageJSON {
	return pageJSON{
		Items:      toJSONs(p.Items),
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		Total:      p.Total,
	}
}

type candidateJSON struct {
	Record    recordJSON `json:"record"`
	Duplicate bool       `json:"duplicate"`
}

func toCandidates(cands []importer.Candidate) []candidateJSON {
	out := make([]candidateJSON, len(cands))
	for i, c := range cands {
		out[i] = candidateJSON{Record: toJSON(c.Record), Duplicate: c.Duplicate}
	}
	return out
}

// number accepts a JSON number or string. Empty strings and null are
// absent; text that is not numeric becomes 0.
type number struct {
	decimal.NullDecimal
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		n.NullDecimal = decimal.NullDecimal{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.NullDecimal = model.CoerceOptional(s)
		return nil
	}
	n.NullDecimal = model.CoerceOptional(string(b))
	return nil
}

// recordInput is the body of create and replace requests.
type recordInput struct {
	Date             string `json:"date"`
	Type             string `json:"type"`
	Name             string `json:"name"`
	Action           string `json:"action"`
	Amount           number `json:"amount"`
	UnitPrice        number `json:"unit_price"`
	Quantity         number `json:"quantity"`
	Fee              number `json:"fee"`
	InterestRate     number `json:"interest_rate"`
	InterestDividend number `json:"interest_dividend"`
	MaturityDate     string `json:"maturity_date"`
	Status           string `json:"status"`
	Currency         string `json:"currency"`
	Remarks          string `json:"remarks"`
}

// record converts the input. Type, status and dates must parse; numbers
// are coerced.
func (in recordInput) record() (model.Record, error) {
	var errs []model.ValidationError
	date, err := model.ParseDate(in.Date)
	if err != nil {
		errs = append(errs, model.ValidationError{Field: "date", Message: err.Error()})
	}
	typ, ok := model.ParseAssetType(in.Type)
	if !ok {
		errs = append(errs, model.ValidationError{Field: "type", Message: "unknown asset type " + quote(in.Type)})
	}
	maturity, err := model.ParseOptionalDate(in.MaturityDate)
	if err != nil {
		errs = append(errs, model.ValidationError{Field: "maturity_date", Message: err.Error()})
	}
	status := model.StatusActive
	if in.Status != "" {
		if status, ok = model.ParseStatus(in.Status); !ok {
			errs = append(errs, model.ValidationError{Field: "status", Message: "unknown status " + quote(in.Status)})
		}
	}
	if err := model.JoinValidation(errs); err != nil {
		return model.Record{}, err
	}
	amount := decimal.Zero
	if in.Amount.Valid {
		amount = in.Amount.Decimal
	}
	return model.Record{
		Date:             date,
		Type:             typ,
		Name:             in.Name,
		Action:           in.Action,
		Amount:           amount,
		UnitPrice:        in.UnitPrice.NullDecimal,
		Quantity:         in.Quantity.NullDecimal,
		Fee:              in.Fee.NullDecimal,
		InterestRate:     in.InterestRate.NullDecimal,
		InterestDividend: in.InterestDividend.NullDecimal,
		MaturityDate:     maturity,
		Status:           status,
		Currency:         in.Currency,
		Remarks:          in.Remarks,
	}, nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and writes {"error": "..."}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var verr model.ValidationErrors
	var berr badRequest
	switch {
	case errors.As(err, &verr), errors.As(err, &berr):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		log.Warn().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// badRequest marks malformed input that is not a record validation error.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }
