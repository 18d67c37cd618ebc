package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/derive"
	"github.com/TamChouWeng/my-asset-sub000/internal/export"
	"github.com/TamChouWeng/my-asset-sub000/internal/importer"
	"github.com/TamChouWeng/my-asset-sub000/internal/render"
)

type importOptions struct {
	format          string
	commit          bool
	allowDuplicates bool
}

func newImportCommand(g *globals) *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Preview or import records from CSV",
		Long: `Preview or import records from CSV exports. Without files, every CSV in
the project's import/ directory is read and moved to import/processed/ once
committed. Rows matching an existing record are skipped unless
--allow-duplicates is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			registry := importer.DefaultRegistry()
			parser := registry.Get(opts.format)
			if parser == nil {
				return fmt.Errorf("unknown import format %q (want one of %s)", opts.format, strings.Join(registry.Formats(), ", "))
			}

			type source struct {
				path    string
				scanned bool
			}
			var sources []source
			for _, a := range args {
				sources = append(sources, source{path: a})
			}
			if len(args) == 0 {
				files, err := importer.Scan(p.root)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No CSV files in import/")
					return nil
				}
				for _, f := range files {
					sources = append(sources, source{path: f.Path, scanned: true})
				}
			}

			for _, src := range sources {
				if err := importFile(cmd, g, p, parser, src.path, opts); err != nil {
					return err
				}
				if opts.commit && src.scanned {
					if err := importer.MarkProcessed(p.root, filepath.Base(src.path)); err != nil {
						return err
					}
				}
			}
			if opts.commit {
				return p.commit(cmd.Context(), fmt.Sprintf("import: %d files", len(sources)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "myasset", "CSV format")
	cmd.Flags().BoolVar(&opts.commit, "commit", false, "insert the rows instead of previewing them")
	cmd.Flags().BoolVar(&opts.allowDuplicates, "allow-duplicates", false, "also insert rows flagged as duplicates")
	return cmd
}

func importFile(cmd *cobra.Command, g *globals, p *project, parser importer.Parser, path string, opts importOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cands, err := importer.Read(f, parser, p.currency(), p.session.Records())
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n", filepath.Base(path))
	if err := g.show(cmd, render.Candidates(cands)); err != nil {
		return err
	}
	if !opts.commit {
		return nil
	}
	res, err := importer.Commit(cmd.Context(), p.session, cands, opts.allowDuplicates)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d records, skipped %d duplicates\n", len(res.Inserted), res.Skipped)
	return nil
}

func newExportCommand(g *globals) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current currency's records to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			records := derive.Partition(p.session.Records(), p.currency())
			if out == "-" {
				return export.Write(cmd.OutOrStdout(), records)
			}
			if out == "" {
				out = export.FileName(g.now())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := export.Write(f, records); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("-" for stdout, default my_asset_history_<date>.csv)`)
	return cmd
}
