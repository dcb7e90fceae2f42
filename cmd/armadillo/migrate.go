package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, func(db *database.DB) error {
				_, pending, err := db.GetMigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				if err := db.Migrate(cmd.Context()); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(pending) == 0 {
					fmt.Fprintln(out, "Schema is up to date")
					return nil
				}
				for _, m := range pending {
					fmt.Fprintf(out, "%s %s %s\n", color.GreenString("✓ applied"), m.Version, m.Name)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, func(db *database.DB) error {
				applied, _, err := db.GetMigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(applied) == 0 {
					fmt.Fprintln(out, "Nothing to roll back")
					return nil
				}
				if err := db.MigrateDown(cmd.Context()); err != nil {
					return err
				}
				last := applied[len(applied)-1]
				fmt.Fprintf(out, "%s %s\n", color.YellowString("↩ rolled back"), last.Version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd, func(db *database.DB) error {
				applied, pending, err := db.GetMigrationStatus(cmd.Context())
				if err != nil {
					return err
				}
				printMigrationStatus(cmd.OutOrStdout(), applied, pending)
				return nil
			})
		},
	})

	return cmd
}

// printMigrationStatus writes one line per migration, applied first.
func printMigrationStatus(out io.Writer, applied []database.MigrationRecord, pending []database.Migration) {
	for _, r := range applied {
		fmt.Fprintf(out, "%s  %s  %s\n",
			color.GreenString("applied"),
			r.Version,
			r.AppliedAt.Local().Format(time.DateTime),
		)
	}
	for _, m := range pending {
		fmt.Fprintf(out, "%s  %s  %s\n", color.YellowString("pending"), m.Version, m.Name)
	}
	fmt.Fprintf(out, "\n%d applied, %d pending\n", len(applied), len(pending))
}

// withDatabase opens the configured database for the duration of fn.
func withDatabase(cmd *cobra.Command, fn func(db *database.DB) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
