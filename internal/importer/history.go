package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TamChouWeng/my-asset-sub000/internal/export"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/remarks"
)

// HistoryParser reads the history CSV written by the export package.
type HistoryParser struct{}

const (
	colDate = iota
	colType
	colName
	colAction
	colUnitPrice
	colQuantity
	colAmount
	colFee
	colInterest
	colMaturity
	colStatus
	colRemarks
)

// Format returns the parser name.
func (p *HistoryParser) Format() string { return "myasset" }

// Parse reads the whole file before returning, so a bad row rejects the
// file without yielding any record. Numeric cells that do not parse become
// 0; bad dates, types or statuses are errors.
func (p *HistoryParser) Parse(r io.Reader, currency string) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(export.Columns)

	rows, err := cr.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("row %d: %w", perr.StartLine, perr.Err)
		}
		return nil, fmt.Errorf("reading history CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	var records []model.Record
	for i, row := range rows[1:] {
		rec, err := parseRow(row, currency)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func checkHeader(row []string) error {
	for i, want := range export.Columns {
		got := strings.TrimSpace(strings.TrimPrefix(row[i], "\ufeff"))
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("row 1: column %d is %q, want %q", i+1, got, want)
		}
	}
	return nil
}

func parseRow(row []string, currency string) (model.Record, error) {
	date, err := model.ParseDate(row[colDate])
	if err != nil {
		return model.Record{}, err
	}
	typ, ok := model.ParseAssetType(row[colType])
	if !ok {
		return model.Record{}, fmt.Errorf("unknown asset type %q", row[colType])
	}
	maturity, err := model.ParseOptionalDate(row[colMaturity])
	if err != nil {
		return model.Record{}, fmt.Errorf("maturity date: %w", err)
	}
	status := model.StatusActive
	if s := strings.TrimSpace(row[colStatus]); s != "" {
		if status, ok = model.ParseStatus(s); !ok {
			return model.Record{}, fmt.Errorf("unknown status %q", s)
		}
	}

	rec := model.Record{
		Date:             date,
		Type:             typ,
		Name:             strings.TrimSpace(row[colName]),
		Action:           strings.TrimSpace(row[colAction]),
		Amount:           model.CoerceAmount(row[colAmount]),
		UnitPrice:        model.CoerceOptional(row[colUnitPrice]),
		Quantity:         model.CoerceOptional(row[colQuantity]),
		Fee:              model.CoerceOptional(row[colFee]),
		InterestDividend: model.CoerceOptional(row[colInterest]),
		MaturityDate:     maturity,
		Status:           status,
		Currency:         strings.ToUpper(strings.TrimSpace(currency)),
		Remarks:          row[colRemarks],
	}
	rec = remarks.Decode(rec)
	rec.Remarks = remarks.Strip(rec.Remarks)
	return rec, nil
}
