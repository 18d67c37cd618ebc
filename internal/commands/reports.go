package commands

import (
	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/render"
)

func newDashboardCommand(g *globals) *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Show total value, top asset and allocation",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			filter := derive.AllTypes
			if typ != "" {
				if filter, err = parseType(typ); err != nil {
					return err
				}
			}
			return g.show(cmd, render.Dashboard(p.session.Engine().Dashboard(p.currency(), filter)))
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "restrict totals to one asset type")
	return cmd
}

func newPropertyCommand(g *globals) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:   "property [name]",
		Short: "Show property cash flow",
		Long:  "Show invested, returned and net cash flow of one property, or of all properties when no name is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			v, err := f.view(derive.ViewProperty, p.cfg.Preferences.PageSize)
			if err != nil {
				return err
			}
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			return g.show(cmd, render.Property(p.session.Engine().Property(p.currency(), name, v)))
		},
	}
	f.bind(cmd.Flags(), false)
	return cmd
}

func newFixedDepositCommand(g *globals) *cobra.Command {
	var f viewFlags
	cmd := &cobra.Command{
		Use:     "fd",
		Aliases: []string{"fixed-deposits"},
		Short:   "Show fixed deposits with expected interest",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			v, err := f.view(derive.ViewFixedDeposit, p.cfg.Preferences.PageSize)
			if err != nil {
				return err
			}
			return g.show(cmd, render.FixedDeposits(p.session.Engine().FixedDeposits(p.currency(), v)))
		},
	}
	f.bind(cmd.Flags(), false)
	return cmd
}
