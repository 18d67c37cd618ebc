package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/config"
	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/id"
)

// updateConfigFile edits the config file under root. The environment
// overlay is not written back.
func updateConfigFile(root string, fn func(*config.Config)) error {
	path := filepath.Join(root, config.FileName)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	fn(cfg)
	return config.Save(path, cfg)
}

func (p *project) updateConfig(fn func(*config.Config)) error {
	fn(p.cfg)
	return updateConfigFile(p.root, fn)
}

func newMatureCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mature",
		Short: "Move fixed deposits past their maturity date to Mature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Opening the project already runs the scan.
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			if len(p.matured) == 0 {
				fmt.Fprintln(out, "No fixed deposits matured")
				return nil
			}
			for _, recordID := range p.matured {
				r, err := p.session.Get(recordID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Matured %s %s (%s)\n", id.Short(recordID), r.Name, r.CurrencyCode())
			}
			return nil
		},
	}
}

func newMigrateRemarksCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-remarks",
		Short: "Move [Rate: x%] and [Int: y] tags out of remarks into their fields",
		Long: `Move [Rate: x%] and [Int: y] tags out of remarks into their own fields and
stop writing tags from now on (storage.remarks_tags: false).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := g.root()
			if err != nil {
				return err
			}
			// The store has to open with tags off.
			if err := updateConfigFile(root, func(c *config.Config) { c.Storage.RemarksTags = false }); err != nil {
				return err
			}
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			n, err := p.session.MigrateRemarks(cmd.Context())
			if err != nil {
				return err
			}
			rewritten, err := p.session.Rewrite(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.commit(cmd.Context(), fmt.Sprintf("migrate: remarks tags of %d records", n)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d records, rewrote %d without tags\n", n, rewritten)
			return nil
		},
	}
}

func newCurrencyCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "currency [code]",
		Short: "Show or set the preferred currency",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "Currency: %s\n", p.cfg.Preferences.Currency)
				fmt.Fprintf(out, "Available: %s\n", strings.Join(derive.Currencies(p.session.Records()), ", "))
				return nil
			}

			code := normalizeCurrency(args[0])
			if len(code) != 3 {
				return fmt.Errorf("invalid currency code %q", args[0])
			}
			if err := p.updateConfig(func(c *config.Config) { c.Preferences.Currency = code }); err != nil {
				return err
			}
			if err := p.commit(cmd.Context(), "config: currency "+code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Currency set to %s\n", code)
			return nil
		},
	}
}
