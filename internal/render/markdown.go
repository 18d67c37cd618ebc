package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/id"
	"github.com/TamChouWeng/my-asset-sub000/internal/importer"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
)

// Terminal renders markdown with glamour. An empty style picks one from
// the terminal background.
func Terminal(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

type table struct {
	header []string
	rows   [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) write(b *strings.Builder) {
	row := func(cells []string) {
		b.WriteString("|")
		for _, c := range cells {
			b.WriteString(" ")
			b.WriteString(escape(c))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}
	row(t.header)
	b.WriteString("|")
	for range t.header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, r := range t.rows {
		row(r)
	}
	b.WriteString("\n")
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func optMoney(d decimal.NullDecimal, code string) string {
	if !d.Valid {
		return "-"
	}
	return Money(d.Decimal, code)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Dashboard renders the headline figures.
func Dashboard(d derive.Dashboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio (%s)\n\n", d.Currency)
	if d.Filter != derive.AllTypes {
		fmt.Fprintf(&b, "Filter: **%s**\n\n", d.Filter)
	}

	summary := table{header: []string{"Metric", "Value"}}
	summary.add("Total value", Money(d.TotalValue, d.Currency))
	summary.add("Top asset", fmt.Sprintf("%s (%s)", d.TopAsset.Name, Money(d.TopAsset.Value, d.Currency)))
	summary.add("Records", fmt.Sprint(d.RecordCount))
	summary.add("FD principal", Money(d.FixedDeposits.Principal, d.Currency))
	summary.add("FD expected interest", Money(d.FixedDeposits.Interest, d.Currency))
	summary.write(&b)

	b.WriteString("## Allocation\n\n")
	if len(d.Allocation) == 0 {
		b.WriteString("No active holdings.\n\n")
	} else {
		alloc := table{header: []string{"Group", "Value", "Share"}}
		total := decimal.Zero
		for _, s := range d.Allocation {
			total = total.Add(s.Value)
		}
		for _, s := range d.Allocation {
			alloc.add(s.Name, Money(s.Value, d.Currency), Percent(s.Value.Mul(decimal.NewFromInt(100)).Div(total).Round(1)))
		}
		alloc.write(&b)
	}
	if len(d.Currencies) > 1 {
		fmt.Fprintf(&b, "Other currencies: %s\n", strings.Join(others(d.Currencies, d.Currency), ", "))
	}
	return b.String()
}

func others(all []string, current string) []string {
	var out []string
	for _, c := range all {
		if c != current {
			out = append(out, c)
		}
	}
	return out
}

func pageFooter(b *strings.Builder, p derive.Page) {
	fmt.Fprintf(b, "Page %d of %d (%d records)\n", p.Page, max(p.TotalPages, 1), p.Total)
}

// Records renders a page of the all-records view.
func Records(p derive.Page, code string) string {
	var b strings.Builder
	if p.Total == 0 {
		b.WriteString("No records.\n")
		return b.String()
	}
	t := table{header: []string{"ID", "Date", "Type", "Name", "Action", "Amount", "Status", "Remarks"}}
	for _, r := range p.Items {
		t.add(id.Short(r.ID), r.Date.Format(model.DateFormat), string(r.Type), r.Name, r.Action,
			Money(r.Amount, code), string(r.Status), dash(r.Remarks))
	}
	t.write(&b)
	pageFooter(&b, p)
	return b.String()
}

// Candidates renders an import preview. Duplicates are marked.
func Candidates(cands []importer.Candidate) string {
	var b strings.Builder
	if len(cands) == 0 {
		b.WriteString("Nothing to import.\n")
		return b.String()
	}
	t := table{header: []string{"Row", "Date", "Type", "Name", "Action", "Amount", "Status", "Duplicate"}}
	dups := 0
	for i, c := range cands {
		r := c.Record
		dup := ""
		if c.Duplicate {
			dup = "yes"
			dups++
		}
		t.add(fmt.Sprint(i+2), r.Date.Format(model.DateFormat), string(r.Type), r.Name, r.Action,
			Money(r.Amount, r.CurrencyCode()), string(r.Status), dash(dup))
	}
	t.write(&b)
	fmt.Fprintf(&b, "%d rows, %d duplicates\n", len(cands), dups)
	return b.String()
}

// Record renders every field of one record.
func Record(r model.Record) string {
	var b strings.Builder
	code := r.CurrencyCode()
	fmt.Fprintf(&b, "## %s\n\n", r.Name)
	t := table{header: []string{"Field", "Value"}}
	t.add("ID", r.ID)
	t.add("Date", r.Date.Format(model.DateFormat))
	t.add("Type", string(r.Type))
	t.add("Action", dash(r.Action))
	t.add("Amount", Money(r.Amount, code))
	t.add("Unit price", optMoney(r.UnitPrice, code))
	t.add("Quantity", dash(model.FormatOptional(r.Quantity)))
	t.add("Fee", optMoney(r.Fee, code))
	if r.InterestRate.Valid {
		t.add("Interest rate", Percent(r.InterestRate.Decimal))
	}
	t.add("Interest/Dividend", optMoney(r.InterestDividend, code))
	t.add("Maturity date", dash(model.FormatOptionalDate(r.MaturityDate)))
	t.add("Status", string(r.Status))
	t.add("Currency", code)
	t.add("Remarks", dash(r.Remarks))
	t.write(&b)
	return b.String()
}

// Property renders the property cash flow and its records.
func Property(rep derive.PropertyReport) string {
	var b strings.Builder
	title := "All properties"
	if rep.Property != "" {
		title = rep.Property
	}
	fmt.Fprintf(&b, "# %s (%s)\n\n", title, rep.Currency)

	cf := table{header: []string{"Invested", "Returned", "Net cash flow"}}
	cf.add(Money(rep.TotalInvested, rep.Currency), Money(rep.TotalReturned, rep.Currency), Money(rep.NetCashFlow, rep.Currency))
	cf.write(&b)

	if len(rep.Properties) > 0 {
		fmt.Fprintf(&b, "Properties: %s\n\n", strings.Join(rep.Properties, ", "))
	}
	if rep.Records.Total == 0 {
		b.WriteString("No property records.\n")
		return b.String()
	}
	t := table{header: []string{"ID", "Date", "Name", "Action", "Amount", "Flow"}}
	for _, r := range rep.Records.Items {
		t.add(id.Short(r.ID), r.Date.Format(model.DateFormat), r.Name, r.Action, Money(r.Amount, rep.Currency), flow(r.Action))
	}
	t.write(&b)
	pageFooter(&b, rep.Records)
	return b.String()
}

func flow(action string) string {
	out, in := derive.IsOutflow(action), derive.IsInflow(action)
	switch {
	case out && in:
		return "out+in"
	case out:
		return "out"
	case in:
		return "in"
	}
	return "-"
}

// FixedDeposits renders the fixed-deposit summary and records.
func FixedDeposits(rep derive.FixedDepositReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Fixed deposits (%s)\n\n", rep.Currency)

	sum := table{header: []string{"Active", "Principal", "Expected interest"}}
	sum.add(fmt.Sprint(rep.Summary.Count), Money(rep.Summary.Principal, rep.Currency), Money(rep.Summary.Interest, rep.Currency))
	sum.write(&b)

	if rep.Records.Total == 0 {
		b.WriteString("No fixed deposits.\n")
		return b.String()
	}
	t := table{header: []string{"ID", "Start", "Name", "Principal", "Rate", "Maturity", "Interest", "Status"}}
	for _, r := range rep.Records.Items {
		rate := "-"
		if r.InterestRate.Valid {
			rate = Percent(r.InterestRate.Decimal)
		}
		t.add(id.Short(r.ID), r.Date.Format(model.DateFormat), r.Name, Money(r.Amount, rep.Currency), rate,
			dash(model.FormatOptionalDate(r.MaturityDate)), optMoney(r.InterestDividend, rep.Currency), string(r.Status))
	}
	t.write(&b)
	pageFooter(&b, rep.Records)
	return b.String()
}

// Summary is a compact plain-text portfolio description for the assistant.
func Summary(d derive.Dashboard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Currency: %s\n", d.Currency)
	fmt.Fprintf(&b, "Total active value: %s\n", Money(d.TotalValue, d.Currency))
	fmt.Fprintf(&b, "Records: %d\n", d.RecordCount)
	fmt.Fprintf(&b, "Top asset: %s (%s)\n", d.TopAsset.Name, Money(d.TopAsset.Value, d.Currency))
	for _, s := range d.Allocation {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, Money(s.Value, d.Currency))
	}
	fmt.Fprintf(&b, "Fixed deposits: %d active, principal %s, expected interest %s\n",
		d.FixedDeposits.Count, Money(d.FixedDeposits.Principal, d.Currency), Money(d.FixedDeposits.Interest, d.Currency))
	return b.String()
}
