package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/batchopt/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile   string
	logLevel  string
	logFormat string
	workers   int
)

var rootCmd = &cobra.Command{
	Use:   "batchopt",
	Short: "Dependency-aware batch package optimizer",
	Long: `A CLI tool that optimizes a batch of installed packages together with
the packages providing their shared libraries.

Features:
  - Dependency expansion through shared libraries (requested packages first)
  - Skipping of packages without code or hibernating packages
  - Exclusive run guard backed by a MySQL advisory lock
  - Cooperative cancellation on SIGINT/SIGTERM
  - Per-file outcome and timing report (text or YAML)`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "batchopt.yaml",
		"Path to configuration file")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Scheduling overrides
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0,
		"Override the number of pool workers packages are dispatched to")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel  string
	LogFormat string
	Workers   int
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:  logLevel,
		LogFormat: logFormat,
		Workers:   workers,
	}
}

// loadConfig reads the config file, applies the persistent overrides and
// validates the result.
func loadConfig(localGuard bool) (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.Workers, localGuard)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
