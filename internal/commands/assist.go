package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/assistant"
	"github.com/TamChouWeng/my-asset-sub000/internal/config"
	"github.com/TamChouWeng/my-asset-sub000/internal/render"
)

// newChatClient is replaced in tests.
var newChatClient = func(ctx context.Context, apiKey string, tools []assistant.Tool) (assistant.Client, error) {
	client, err := assistant.NewGemini(ctx, apiKey, tools...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newAssistCommand(g *globals) *cobra.Command {
	var modelName string
	cmd := &cobra.Command{
		Use:   "assist [question]",
		Short: "Ask the assistant about your portfolio",
		Long: `Ask the assistant about your portfolio. With a question, print one answer;
without, start an interactive session. Needs ` + config.EnvAPIKey + ` in the
environment or the project's .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer p.Close()

			if p.cfg.Assistant.APIKey == "" {
				return errors.New(config.EnvAPIKey + " is not set")
			}
			if modelName == "" {
				modelName = p.cfg.Assistant.Model
			}
			engine := p.session.Engine()
			client, err := newChatClient(cmd.Context(), p.cfg.Assistant.APIKey, assistant.Tools(engine))
			if err != nil {
				return err
			}
			a, err := assistant.Start(cmd.Context(), client, modelName, engine, p.currency(), p.root)
			if err != nil {
				return fmt.Errorf("starting assistant: %w", err)
			}

			if len(args) > 0 {
				answer, err := a.Ask(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				if err := g.show(cmd, answer+"\n"); err != nil {
					return err
				}
			} else {
				show := func(md string) string {
					if g.plain || !isTerminal(cmd.OutOrStdout()) {
						return md
					}
					if out, err := render.Terminal(md, "", 100); err == nil {
						return out
					}
					return md
				}
				if err := a.Run(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), show); err != nil {
					return err
				}
			}
			return p.commit(cmd.Context(), "assist: chat "+a.SessionID()[:8])
		},
	}
	cmd.Flags().StringVar(&modelName, "model", "", "model name (default: assistant.model)")
	return cmd
}
