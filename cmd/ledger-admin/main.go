// Command ledger-admin provisions and maintains expense ledgers outside the
// webhook server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spendtrace/internal/backend"
	"spendtrace/internal/cli"
	"spendtrace/internal/config"
	"spendtrace/internal/ledger"
	applog "spendtrace/internal/log"
)

var (
	logger *applog.Logger
	cfg    *config.Config
	store  *backend.BackendResult
	engine *ledger.Engine
)

var rootCmd = &cobra.Command{
	Use:           "ledger-admin",
	Short:         "Provision and maintain SpendTrace ledgers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		logger = cli.SetupLogger(os.Getenv("LOG_LEVEL"))
		cfg = config.Load()

		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		store, err = backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).CreateBackend(cmd.Context(), backendCfg)
		if err != nil {
			return err
		}
		engine = ledger.NewEngine(store.Backend,
			ledger.WithLocation(cfg.Location()),
			ledger.WithDefaultCurrency(cfg.DefaultCurrency),
			ledger.WithLogger(logger.WithComponent(applog.ComponentLedger)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd, initHeadersCmd, reportCmd, undoCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
