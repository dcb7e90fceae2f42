package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/armadillo-fleet/armadillo-core/internal/fleet"
	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/database"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a fleet fixture into the registry",
		Long: `Load organizations, trailers and devices from a YAML fixture.

The fixture is applied in a single transaction: if any entity is invalid
nothing is written. Pending migrations are applied first.

Examples:
  armadillo seed configs/fleet.example.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := fleet.LoadFixture(args[0])
			if err != nil {
				return err
			}
			return withDatabase(cmd, func(db *database.DB) error {
				if err := db.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				res, err := fleet.SeedSQLite(cmd.Context(), db.DB, fixture)
				if err != nil {
					return err
				}
				printSeedResult(cmd.OutOrStdout(), args[0], res)
				return nil
			})
		},
	}
}

func printSeedResult(out io.Writer, path string, res fleet.SeedResult) {
	fmt.Fprintf(out, "%s %s\n", color.GreenString("✓ seeded"), path)
	fmt.Fprintf(out, "  organizations: %d\n", res.Organizations)
	fmt.Fprintf(out, "  trailers:      %d\n", res.Trailers)
	fmt.Fprintf(out, "  bikes:         %d\n", res.Bikes)
	fmt.Fprintf(out, "  ovens:         %d\n", res.Ovens)
	fmt.Fprintf(out, "  microgrids:    %d\n", res.Microgrids)
}
