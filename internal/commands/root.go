package commands

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TamChouWeng/my-asset-sub000/internal/buildinfo"
	"github.com/TamChouWeng/my-asset-sub000/internal/config"
	"github.com/TamChouWeng/my-asset-sub000/internal/logger"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globals{now: time.Now})
}

func newRootCommand(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "myasset",
		Short:   "Personal asset ledger and dashboard",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := g.logLevel
			if level == "" {
				level = os.Getenv(config.EnvLogLevel)
			}
			if level == "" {
				level = "warn"
			}
			log := logger.New(cmd.ErrOrStderr(), level, true)
			logger.SetDefault(log)
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.dir, "dir", "C", ".", "project directory")
	flags.StringVar(&g.currency, "currency", "", "currency partition for this command (default: saved preference)")
	flags.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVar(&g.plain, "plain", false, "print raw markdown instead of styled output")

	rootCmd.AddCommand(
		newInitCommand(g),
		newAddCommand(g),
		newEditCommand(g),
		newDeleteCommand(g),
		newListCommand(g),
		newShowCommand(g),
		newDashboardCommand(g),
		newPropertyCommand(g),
		newFixedDepositCommand(g),
		newImportCommand(g),
		newExportCommand(g),
		newMatureCommand(g),
		newMigrateRemarksCommand(g),
		newCurrencyCommand(g),
		newAssistCommand(g),
		newServeCommand(g),
	)

	return rootCmd
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
