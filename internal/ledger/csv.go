package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/remarks"
)

// Header is the CSV header for records.csv.
const Header = "id,date,type,name,action,amount,unit_price,quantity,fee,interest_rate,interest_dividend,maturity_date,status,currency,remarks"

const (
	numFields    = 15
	colID        = 0
	colDate      = 1
	colType      = 2
	colName      = 3
	colAction    = 4
	colAmount    = 5
	colUnitPrice = 6
	colQuantity  = 7
	colFee       = 8
	colRate      = 9
	colInterest  = 10
	colMaturity  = 11
	colStatus    = 12
	colCurrency  = 13
	colRemarks   = 14
)

// ReadRecords reads all records from a records.csv reader.
func ReadRecords(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	// Skip header row.
	var records []model.Record
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteRecords writes records to a records.csv writer (including header).
// When tags is set, rate and interest are also encoded into the remarks.
func WriteRecords(w io.Writer, records []model.Record, tags bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		if err := cw.Write(MarshalRecord(rec, tags)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing records: %w", err)
	}
	return nil
}

// MarshalRecord converts a Record to a CSV row ([]string).
func MarshalRecord(rec model.Record, tags bool) []string {
	row := make([]string, numFields)
	row[colID] = rec.ID
	row[colDate] = rec.Date.Format(model.DateFormat)
	row[colType] = string(rec.Type)
	row[colName] = rec.Name
	row[colAction] = rec.Action
	row[colAmount] = rec.Amount.String()
	row[colUnitPrice] = model.FormatOptional(rec.UnitPrice)
	row[colQuantity] = model.FormatOptional(rec.Quantity)
	row[colFee] = model.FormatOptional(rec.Fee)
	row[colRate] = model.FormatOptional(rec.InterestRate)
	row[colInterest] = model.FormatOptional(rec.InterestDividend)
	row[colMaturity] = model.FormatOptionalDate(rec.MaturityDate)
	row[colStatus] = string(rec.Status)
	row[colCurrency] = rec.CurrencyCode()

	if tags {
		row[colRemarks] = remarks.Encode(rec)
	} else {
		row[colRemarks] = remarks.Strip(rec.Remarks)
	}
	return row
}

// UnmarshalRecord converts a CSV row to a Record. Missing rate or interest
// columns fall back to the remarks tags, which are stripped from Remarks.
func UnmarshalRecord(row []string) (model.Record, error) {
	if len(row) != numFields {
		return model.Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}

	date, err := model.ParseDate(row[colDate])
	if err != nil {
		return model.Record{}, err
	}

	maturity, err := model.ParseOptionalDate(row[colMaturity])
	if err != nil {
		return model.Record{}, fmt.Errorf("maturity_date: %w", err)
	}

	amount, err := decimal.NewFromString(row[colAmount])
	if err != nil {
		return model.Record{}, fmt.Errorf("parsing amount %q: %w", row[colAmount], err)
	}

	optional := make(map[int]decimal.NullDecimal, 5)
	for _, col := range []int{colUnitPrice, colQuantity, colFee, colRate, colInterest} {
		if row[col] == "" {
			continue
		}
		d, err := decimal.NewFromString(row[col])
		if err != nil {
			return model.Record{}, fmt.Errorf("parsing %s %q: %w", strings.Split(Header, ",")[col], row[col], err)
		}
		optional[col] = decimal.NewNullDecimal(d)
	}

	rec := model.Record{
		ID:               row[colID],
		Date:             date,
		Type:             model.AssetType(row[colType]),
		Name:             row[colName],
		Action:           row[colAction],
		Amount:           amount,
		UnitPrice:        optional[colUnitPrice],
		Quantity:         optional[colQuantity],
		Fee:              optional[colFee],
		InterestRate:     optional[colRate],
		InterestDividend: optional[colInterest],
		MaturityDate:     maturity,
		Status:           model.Status(row[colStatus]),
		Currency:         row[colCurrency],
		Remarks:          row[colRemarks],
	}

	rec = remarks.Decode(rec)
	rec.Remarks = remarks.Strip(rec.Remarks)
	return rec, nil
}
