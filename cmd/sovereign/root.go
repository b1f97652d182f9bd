package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sovereign",
	Short: "Sovereign - data governance engine",
	Long: `Sovereign is a data governance engine for sovereign and regulated deployments.

It provides:
  - Rule-based data classification with category and confidence
  - Tenant-scoped AES-256-GCM encryption at rest
  - Role-based access and retention per classification level
  - Data residency and cross-border compliance checks
  - An append-only audit trail of every decision`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns its error after printing it.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the config file named by --config with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}
