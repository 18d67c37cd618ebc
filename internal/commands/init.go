package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/config"
	"github.com/TamChouWeng/my-asset-sub000/internal/database"
	"github.com/TamChouWeng/my-asset-sub000/internal/gitops"
	"github.com/TamChouWeng/my-asset-sub000/internal/ledger"
)

type initOptions struct {
	name     string
	owner    string
	currency string
	backend  string
	noGit    bool
}

func newInitCommand(g *globals) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new asset project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := g.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			hash, err := runInit(cmd.Context(), absDir, opts)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Initialized asset project at %s", absDir)
			if hash != "" {
				msg += fmt.Sprintf(" (%s)", hash)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "project name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.owner, "owner", "", "owner shown in reports")
	cmd.Flags().StringVar(&opts.currency, "default-currency", "MYR", "preferred currency")
	cmd.Flags().StringVar(&opts.backend, "backend", config.BackendCSV, "storage backend (csv or sqlite)")
	cmd.Flags().BoolVar(&opts.noGit, "no-git", false, "do not create a git repository")

	return cmd
}

// runInit lays out a project and returns the initial commit hash, if any.
func runInit(ctx context.Context, dir string, opts initOptions) (string, error) {
	cfg := config.Default(opts.name)
	cfg.Project.Owner = opts.owner
	cfg.Preferences.Currency = opts.currency
	cfg.Storage.Backend = opts.backend
	if opts.noGit {
		cfg.Git.AutoCommit = false
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return "", fmt.Errorf("%s already exists in %s", config.FileName, dir)
	}

	dirs := []string{
		"ledger",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return "", fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path := cfg.SQLiteFile(dir)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("creating data dir: %w", err)
		}
		db, err := database.Open(ctx, path, cfg.Storage.RemarksTags)
		if err != nil {
			return "", err
		}
		if err := db.Close(); err != nil {
			return "", fmt.Errorf("closing database: %w", err)
		}
	default:
		if err := ledger.NewService(dir, cfg.Storage.RemarksTags).Create(); err != nil {
			return "", fmt.Errorf("writing ledger: %w", err)
		}
	}

	gitignore := ".env\nexports/\n*.db-wal\n*.db-shm\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return "", fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return "", fmt.Errorf("writing .gitkeep: %w", err)
	}

	if opts.noGit {
		return "", nil
	}
	repo := gitops.Repo{
		Dir:    dir,
		Author: gitops.Author{Name: cfg.Git.AuthorName, Email: cfg.Git.AuthorEmail},
	}
	if err := repo.Init(ctx); err != nil {
		return "", err
	}
	hash, err := repo.CommitAll(ctx, "init: Initialize "+opts.name)
	if err != nil {
		return "", fmt.Errorf("initial commit: %w", err)
	}
	return hash, nil
}
