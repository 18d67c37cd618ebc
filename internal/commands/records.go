package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/id"
	"github.com/TamChouWeng/my-asset-sub000/internal/model"
	"github.com/TamChouWeng/my-asset-sub000/internal/render"
)

// recordFlags are the form fields of add and edit.
type recordFlags struct {
	date       string
	typ        string
	name       string
	action     string
	amount     string
	unitPrice  string
	quantity   string
	fee        string
	rate       string
	interest   string
	maturity   string
	status     string
	remarks    string
	toCurrency string
}

func (f *recordFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.date, "date", "", "transaction date (YYYY-MM-DD, default today)")
	fs.StringVar(&f.typ, "type", "", "asset type: "+typeList())
	fs.StringVar(&f.name, "name", "", "asset or institution name")
	fs.StringVar(&f.action, "action", "", "action, e.g. Buy, Deposit, Rent")
	fs.StringVar(&f.amount, "amount", "", "total amount")
	fs.StringVar(&f.unitPrice, "unit-price", "", "price per unit")
	fs.StringVar(&f.quantity, "quantity", "", "number of units")
	fs.StringVar(&f.fee, "fee", "", "fees paid")
	fs.StringVar(&f.rate, "rate", "", "annual interest rate in percent")
	fs.StringVar(&f.interest, "interest", "", "interest or dividend received")
	fs.StringVar(&f.maturity, "maturity", "", "maturity date (YYYY-MM-DD)")
	fs.StringVar(&f.status, "status", "", "Active, Mature or Sold")
	fs.StringVar(&f.remarks, "remarks", "", "free-text remarks")
}

func typeList() string {
	names := make([]string, len(model.AssetTypes))
	for i, t := range model.AssetTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func parseType(raw string) (model.AssetType, error) {
	t, ok := model.ParseAssetType(raw)
	if !ok {
		return "", fmt.Errorf("unknown asset type %q (want one of %s)", raw, typeList())
	}
	return t, nil
}

func parseStatus(raw string) (model.Status, error) {
	s, ok := model.ParseStatus(raw)
	if !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// record builds a new record from the flags. The date defaults to today.
func (f *recordFlags) record(today time.Time, currency string) (model.Record, error) {
	r := model.Record{
		Date:             model.DateOf(today),
		Name:             f.name,
		Action:           f.action,
		Amount:           model.CoerceAmount(f.amount),
		UnitPrice:        model.CoerceOptional(f.unitPrice),
		Quantity:         model.CoerceOptional(f.quantity),
		Fee:              model.CoerceOptional(f.fee),
		InterestRate:     model.CoerceOptional(f.rate),
		InterestDividend: model.CoerceOptional(f.interest),
		Status:           model.StatusActive,
		Currency:         currency,
		Remarks:          f.remarks,
	}
	var err error
	if f.date != "" {
		if r.Date, err = model.ParseDate(f.date); err != nil {
			return r, err
		}
	}
	if r.Type, err = parseType(f.typ); err != nil {
		return r, err
	}
	if r.MaturityDate, err = model.ParseOptionalDate(f.maturity); err != nil {
		return r, err
	}
	if f.status != "" {
		if r.Status, err = parseStatus(f.status); err != nil {
			return r, err
		}
	}
	return r, nil
}

// patch builds a partial update from the flags that were set. An empty
// value clears an optional field.
func (f *recordFlags) patch(fs *pflag.FlagSet) (model.Patch, error) {
	var p model.Patch
	set := fs.Changed
	optional := func(raw string) *decimal.NullDecimal {
		d := model.CoerceOptional(raw)
		return &d
	}

	if set("date") {
		d, err := model.ParseDate(f.date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if set("type") {
		t, err := parseType(f.typ)
		if err != nil {
			return p, err
		}
		p.Type = &t
	}
	if set("name") {
		p.Name = &f.name
	}
	if set("action") {
		p.Action = &f.action
	}
	if set("amount") {
		a := model.CoerceAmount(f.amount)
		p.Amount = &a
	}
	if set("unit-price") {
		p.UnitPrice = optional(f.unitPrice)
	}
	if set("quantity") {
		p.Quantity = optional(f.quantity)
	}
	if set("fee") {
		p.Fee = optional(f.fee)
	}
	if set("rate") {
		p.InterestRate = optional(f.rate)
	}
	if set("interest") {
		p.InterestDividend = optional(f.interest)
	}
	if set("maturity") {
		m, err := model.ParseOptionalDate(f.maturity)
		if err != nil {
			return p, err
		}
		p.MaturityDate, p.ClearMaturity = m, m == nil
	}
	if set("status") {
		s, err := parseStatus(f.status)
		if err != nil {
			return p, err
		}
		p.Status = &s
	}
	if set("remarks") {
		p.Remarks = &f.remarks
	}
	if set("to-currency") {
		c := normalizeCurrency(f.toCurrency)
		p.Currency = &c
	}
	return p, nil
}

func newAddCommand(g *globals) *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record",
		Example: `  myasset add --type FD --name "Maybank FD" --action Deposit --amount 10000 \
      --rate 3.5 --date 2024-01-01 --maturity 2024-07-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			rec, err := f.record(g.now(), p.currency())
			if err != nil {
				return err
			}
			saved, err := p.session.Add(cmd.Context(), rec)
			if err != nil {
				return err
			}
			if err := p.commit(cmd.Context(), fmt.Sprintf("add: %s %s", saved.Type, saved.Name)); err != nil {
				return err
			}
			return g.show(cmd, render.Record(saved))
		},
	}
	f.bind(cmd.Flags())
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newEditCommand(g *globals) *cobra.Command {
	var f recordFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a record",
		Long:  "Change fields of a record. Only the flags given are changed; an empty value clears an optional field.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := f.patch(cmd.Flags())
			if err != nil {
				return err
			}
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			recordID, err := p.session.Resolve(args[0])
			if err != nil {
				return err
			}
			saved, err := p.session.Update(cmd.Context(), recordID, patch)
			if err != nil {
				return err
			}
			if err := p.commit(cmd.Context(), fmt.Sprintf("edit: %s %s", saved.Name, id.Short(recordID))); err != nil {
				return err
			}
			return g.show(cmd, render.Record(saved))
		},
	}
	f.bind(cmd.Flags())
	cmd.Flags().StringVar(&f.toCurrency, "to-currency", "", "move the record to another currency")
	return cmd
}

func newDeleteCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete records",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			ids := make([]string, len(args))
			for i, a := range args {
				if ids[i], err = p.session.Resolve(a); err != nil {
					return err
				}
			}
			n := 1
			if len(ids) == 1 {
				err = p.session.Delete(cmd.Context(), ids[0])
			} else {
				n, err = p.session.DeleteMany(cmd.Context(), ids)
			}
			if err != nil {
				return err
			}
			if err := p.commit(cmd.Context(), fmt.Sprintf("delete: %d records", n)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records\n", n)
			return nil
		},
	}
}

// viewFlags are the list controls shared by list, property and fd.
type viewFlags struct {
	typ   string
	q     string
	sort  string
	order string
	page  int
	size  int
}

func (f *viewFlags) bind(fs *pflag.FlagSet, withType bool) {
	if withType {
		fs.StringVar(&f.typ, "type", "", "only records of this asset type")
	}
	fs.StringVarP(&f.q, "search", "q", "", "search names (and remarks in list)")
	fs.StringVar(&f.sort, "sort", "", "sort column: "+sortKeyList())
	fs.StringVar(&f.order, "order", "", "sort direction (asc or desc)")
	fs.IntVar(&f.page, "page", 1, "page number")
	fs.IntVar(&f.size, "size", 0, "page size (default: preferences.page_size)")
}

func sortKeyList() string {
	keys := make([]string, len(derive.SortKeys))
	for i, k := range derive.SortKeys {
		keys[i] = string(k)
	}
	return strings.Join(keys, ", ")
}

func (f *viewFlags) view(kind derive.ViewKind, defaultSize int) (derive.ViewState, error) {
	size := f.size
	if size == 0 {
		size = defaultSize
	}
	if size < 1 {
		return derive.ViewState{}, fmt.Errorf("invalid page size %d", size)
	}
	v := derive.NewView(kind, size)
	if f.typ != "" && !strings.EqualFold(f.typ, string(derive.AllTypes)) {
		t, err := parseType(f.typ)
		if err != nil {
			return v, err
		}
		v.SetTypeFilter(t)
	}
	v.SetSearch(f.q)
	if f.sort != "" {
		key, err := derive.ParseSortKey(f.sort)
		if err != nil {
			return v, err
		}
		dir, err := derive.ParseDirection(f.order)
		if err != nil {
			return v, err
		}
		if dir == "" {
			dir = derive.Asc
		}
		v.SetSort(key, dir)
	}
	v.SetPage(f.page)
	return v, nil
}

func newListCommand(g *globals) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List records",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			v, err := f.view(derive.ViewAll, p.cfg.Preferences.PageSize)
			if err != nil {
				return err
			}
			currency := p.currency()
			return g.show(cmd, render.Records(p.session.Engine().List(currency, v), currency))
		},
	}
	f.bind(cmd.Flags(), true)
	return cmd
}

func newShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show every field of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			recordID, err := p.session.Resolve(args[0])
			if err != nil {
				return err
			}
			rec, err := p.session.Get(recordID)
			if err != nil {
				return err
			}
			return g.show(cmd, render.Record(rec))
		},
	}
}
