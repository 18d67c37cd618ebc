package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/api"
	"github.com/TamChouWeng/my-asset-sub000/internal/importer"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			level := g.logLevel
			if level == "" {
				level = p.cfg.Log.Level
			}
			log := logger.New(cmd.ErrOrStderr(), level, false).With().Str("project", p.cfg.Project.Name).Logger()
			logger.SetDefault(log)

			ctx, stop := signal.NotifyContext(logger.WithContext(cmd.Context(), log), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr == "" {
				addr = p.cfg.Server.Addr
			}
			// git holds an index lock, so commits from concurrent requests queue.
			var commitMu sync.Mutex
			handler := api.NewHandler(api.Options{
				Session:  p.session,
				Registry: importer.DefaultRegistry(),
				Currency: p.currency(),
				PageSize: p.cfg.Preferences.PageSize,
				Rate:     p.cfg.Server.RateLimit,
				Burst:    p.cfg.Server.Burst,
				Now:      g.now,
				OnChange: func(ctx context.Context, message string) {
					commitMu.Lock()
					defer commitMu.Unlock()
					if err := p.commit(ctx, "api: "+message); err != nil {
						logger.FromContext(ctx).Warn().Err(err).Msg("auto-commit failed")
					}
				},
			})
			return api.ListenAndServe(ctx, addr, handler)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	return cmd
}
