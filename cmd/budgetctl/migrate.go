package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"budgetdash/internal/backend"
	"budgetdash/internal/cli"
	"budgetdash/internal/log"
	"budgetdash/internal/records"
	"budgetdash/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	var down, status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQLite schema migrations",
		Long: `Bring the SQLite database at --db (or $SQLITE_DB_PATH) to the latest schema.
With --down every migration is reverted; with --status nothing changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.SQLiteDBPath
			if path == "" {
				return errors.New("no SQLite database path configured")
			}
			out := cmd.OutOrStdout()

			switch {
			case status:
			case down:
				if err := storage.RollbackMigrations(path); err != nil {
					return err
				}
				a.logger.Info("Migrations rolled back", "path", path)
			default:
				if err := storage.RunMigrations(path); err != nil {
					return err
				}
				a.logger.Info("Migrations applied", "path", path)
			}

			v, dirty, err := storage.MigrationVersion(path)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s: schema version %d", path, v)
			if dirty {
				fmt.Fprintln(out, cli.ErrorStyle.Render(line+" (dirty)"))
				return nil
			}
			fmt.Fprintln(out, cli.SuccessStyle.Render(line))
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "revert every migration")
	cmd.Flags().BoolVar(&status, "status", false, "only print the current schema version")
	return cmd
}

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the demo expenses and indirect costs",
		Long: `Insert the demo records into the configured store. Records that already
exist are left alone, so seeding twice is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.DataBackend == string(backend.MemoryBackend) {
				a.logger.Warn("Seeding the memory backend only lasts for this command")
			}
			b, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			created, err := records.Seed(cmd.Context(), b.Store)
			if err != nil {
				return fmt.Errorf("seed demo data: %w", err)
			}
			a.logger.Info("Seeded demo data", log.FieldCount, created)
			fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render(fmt.Sprintf("Created %d demo records", created)))
			return nil
		},
	}
}
