package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"budgetdash/internal/backend"
	"budgetdash/internal/cli"
	"budgetdash/internal/config"
	"budgetdash/internal/log"
)

var version = "dev"

// app holds what every subcommand shares. The backend is opened lazily so
// commands like migrate never touch the record store.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.Backend
	cleanup backend.CleanupFunc
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Inspect and export the budget allocation",
		Long:          `budgetctl computes the cost allocation over the configured record store and exports its reports.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			cfg := config.Load()
			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.DataBackend, _ = flags.GetString("backend")
			}
			if flags.Changed("db") {
				cfg.SQLiteDBPath, _ = flags.GetString("db")
			}
			if flags.Changed("reference") {
				cfg.ReferenceDataFile, _ = flags.GetString("reference")
			}
			if flags.Changed("seed") {
				cfg.SeedDemoData, _ = flags.GetBool("seed")
			}
			// The CLI never publishes change events.
			cfg.AMQPURL = ""
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg

			lc := log.DefaultConfig()
			lc.Level = log.ParseLevel(logLevel)
			lc.Format = cfg.LogFormat
			lc.Component = log.ComponentCLI
			lc.Output = cmd.ErrOrStderr()
			a.logger = log.New(lc)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.cleanup != nil {
				return a.cleanup()
			}
			return nil
		},
	}

	root.PersistentFlags().String("backend", "", "record store: memory or sqlite (default $DATA_BACKEND)")
	root.PersistentFlags().String("db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	root.PersistentFlags().String("reference", "", "reference data YAML file (default $REFERENCE_DATA_FILE)")
	root.PersistentFlags().Bool("seed", false, "insert the demo records before running")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(allocateCmd(a))
	root.AddCommand(totalsCmd(a))
	root.AddCommand(exportCmd(a))
	root.AddCommand(migrateCmd(a))
	root.AddCommand(seedCmd(a))
	return root
}

// open creates the backend on first use.
func (a *app) open(ctx context.Context) (*backend.Backend, error) {
	if a.backend != nil {
		return a.backend, nil
	}
	catalog, err := cli.LoadCatalogFile(a.cfg.ReferenceDataFile)
	if err != nil {
		return nil, err
	}
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg, catalog)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}
	a.backend, a.cleanup = result.Backend, result.Cleanup
	return a.backend, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
