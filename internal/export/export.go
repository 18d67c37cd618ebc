// Package export writes records in the spreadsheet-friendly history format
// that the importer reads back.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/remarks"
)

// Columns is the fixed export column order.
var Columns = []string{
	"Date", "Type", "Name", "Action", "Unit Price", "Quantity", "Total Amount",
	"Fee", "Interest/Dividend", "Maturity Date", "Status", "Remarks",
}

// FileName returns the download name for an export made on day.
func FileName(day time.Time) string {
	return fmt.Sprintf("my_asset_history_%s.csv", day.Format(model.DateFormat))
}

// cell is one output field. Text cells are always quoted, numeric cells
// never are.
type cell struct {
	value string
	text  bool
}

func text(s string) cell { return cell{value: s, text: true} }
func num(s string) cell  { return cell{value: s} }

// Write renders records with a header row. Remarks carry the encoded rate
// and interest tags so an import restores them.
func Write(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)

	header := make([]cell, len(Columns))
	for i, c := range Columns {
		header[i] = text(c)
	}
	writeRow(bw, header)

	for _, r := range records {
		writeRow(bw, []cell{
			text(r.Date.Format(model.DateFormat)),
			text(string(r.Type)),
			text(r.Name),
			text(r.Action),
			num(model.FormatOptional(r.UnitPrice)),
			num(model.FormatOptional(r.Quantity)),
			num(r.Amount.String()),
			num(model.FormatOptional(r.Fee)),
			num(model.FormatOptional(r.InterestDividend)),
			text(model.FormatOptionalDate(r.MaturityDate)),
			text(string(r.Status)),
			text(remarks.Encode(r)),
		})
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// writeRow ignores write errors; bufio keeps the first one for Flush.
func writeRow(w *bufio.Writer, cells []cell) {
	for i, c := range cells {
		if i > 0 {
			w.WriteByte(',')
		}
		if c.text {
			w.WriteByte('"')
			w.WriteString(strings.ReplaceAll(c.value, `"`, `""`))
			w.WriteByte('"')
		} else {
			w.WriteString(c.value)
		}
	}
	w.WriteByte('\n')
}
