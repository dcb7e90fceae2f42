// Armadillo Core - fleet registry and telemetry service.
//
// This is the main entry point for the armadillo binary. It serves the
// registry and telemetry API, manages the SQLite schema and loads fleet
// fixtures:
//
//	armadillo serve
//	armadillo migrate up|down|status
//	armadillo seed configs/fleet.example.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "github.com/armadillo-fleet/armadillo-core/migrations"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "armadillo",
		Short:   "Armadillo Core - fleet registry and telemetry store",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Long: `Armadillo Core keeps the registry of organizations, trailers and their
bikes, ovens and solar microgrids, and stores the telemetry those devices report.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv()
		},
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(seedCmd())
	return cmd
}

// loadDotEnv loads .env from the working directory when one exists.
// Variables already set in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ARMADILLO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ARMADILLO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the config file. A missing default file falls back to
// built-in defaults; a missing file named by ARMADILLO_CONFIG is an error.
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
		if vErr := cfg.Validate(); vErr != nil {
			return nil, "", fmt.Errorf("validating config: %w", vErr)
		}
		return cfg, "", nil
	}
	return nil, "", fmt.Errorf("loading config: %w", err)
}
