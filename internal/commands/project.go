package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/config"
	"github.com/TamChouWeng/my-asset-sub000/internal/database"
	"github.com/TamChouWeng/my-asset-sub000/internal/gitops"
	"github.com/TamChouWeng/my-asset-sub000/internal/ledger"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
	"github.com/TamChouWeng/my-asset-sub000/internal/portfolio"
	"github.com/TamChouWeng/my-asset-sub000/internal/render"
	"github.com/TamChouWeng/my-asset-sub000/internal/store"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	dir      string
	currency string
	logLevel string
	plain    bool
	now      func() time.Time
}

// project is an opened project directory: config, store and a loaded
// session.
type project struct {
	root    string
	cfg     *config.Config
	store   store.Store
	session *portfolio.Session
	matured []string
	g       *globals
	closer  io.Closer
}

func (g *globals) root() (string, error) {
	abs, err := filepath.Abs(g.dir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	return abs, nil
}

// open loads the project config, opens the configured store and loads the
// records. Fixed deposits past maturity are moved to Mature on the way.
func (g *globals) open(ctx context.Context) (*project, error) {
	root, err := g.root()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadProject(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no %s in %s (run myasset init)", config.FileName, root)
	}
	if err != nil {
		return nil, err
	}

	p := &project{root: root, cfg: cfg, g: g}
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		path := cfg.SQLiteFile(root)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		db, err := database.Open(ctx, path, cfg.Storage.RemarksTags)
		if err != nil {
			return nil, err
		}
		p.store, p.closer = db, db
	default:
		p.store = ledger.NewService(root, cfg.Storage.RemarksTags)
	}

	p.session = portfolio.New(p.store, portfolio.WithClock(g.now))
	matured, err := p.session.Load(ctx)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.matured = matured
	if len(matured) > 0 {
		if err := p.commit(ctx, fmt.Sprintf("mature: %d fixed deposits", len(matured))); err != nil {
			p.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *project) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

// currency is the --currency flag or the saved preference.
func (p *project) currency() string {
	if p.g.currency != "" {
		return normalizeCurrency(p.g.currency)
	}
	return p.cfg.Preferences.Currency
}

func (p *project) repo() gitops.Repo {
	return gitops.Repo{
		Dir:    p.root,
		Author: gitops.Author{Name: p.cfg.Git.AuthorName, Email: p.cfg.Git.AuthorEmail},
	}
}

// commit records the change in git when auto-commit is on and the project
// is a repository.
func (p *project) commit(ctx context.Context, message string) error {
	if !p.cfg.Git.AutoCommit {
		return nil
	}
	repo := p.repo()
	if !repo.IsRepo() {
		return nil
	}
	hash, err := repo.CommitAll(ctx, message)
	if err != nil {
		return fmt.Errorf("committing %q: %w", message, err)
	}
	if hash != "" {
		logger.FromContext(ctx).Debug().Str("commit", hash).Str("message", message).Msg("committed")
	}
	return nil
}

// show prints markdown, rendered with glamour when stdout is a terminal.
func (g *globals) show(cmd *cobra.Command, md string) error {
	out := cmd.OutOrStdout()
	if !g.plain && isTerminal(out) {
		rendered, err := render.Terminal(md, "", 100)
		if err == nil {
			md = rendered
		}
	}
	_, err := io.WriteString(out, md)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
