package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/batchopt/internal/graph"
	"github.com/dbsmedya/batchopt/internal/lock"
	"github.com/dbsmedya/batchopt/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and run preflight checks",
	Long: `Validate checks the configuration file and runs preflight checks
against the package registry to ensure a batch can run.

Checks performed:
  - Configuration syntax and required fields
  - Registry connectivity and snapshot loading
  - Every requested package of every batch resolves, dependencies included
  - Guard availability (whether another run currently holds the lock)

Example:
  batchopt validate --config batchopt.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting validation checks...")

	ctx := context.Background()
	dbManager, snapshot, policy, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("registry connection failed: %w", err)
	}

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", configFile)
	cmd.Printf("Registry packages: %d\n", snapshot.Len())
	cmd.Printf("Dormant packages: %d\n", policy.DormantCount())
	cmd.Printf("Batches found: %d\n\n", len(cfg.Batches))

	if !cfg.Guard.Local {
		free, err := lock.IsFree(ctx, dbManager.Registry, lockName(cfg.Guard.Name))
		switch {
		case err != nil:
			cmd.Printf("⚠️  Could not check guard %q: %v\n\n", cfg.Guard.Name, err)
		case !free:
			cmd.Printf("⚠️  Guard %q is currently held by another run\n\n", cfg.Guard.Name)
		default:
			cmd.Printf("✅ Guard %q is free\n\n", cfg.Guard.Name)
		}
	}

	names := cfg.ListBatches()
	sort.Strings(names)

	hasErrors := false
	for _, name := range names {
		batch, err := cfg.GetBatch(name)
		if err != nil {
			return err
		}
		cmd.Printf("--- Batch: %s ---\n", name)
		cmd.Printf("Requested packages: %d\n", len(batch.Packages))

		resolver := graph.NewResolver(snapshot)
		units, err := resolver.Resolve(batch.Packages, batch.Requested.IncludeDependencies)
		if err != nil {
			cmd.Printf("❌ Resolution failed: %v\n\n", err)
			hasErrors = true
			continue
		}
		cmd.Printf("Resolved packages: %d\n", len(units))

		if err := resolver.Graph().Validate(); err != nil {
			cmd.Printf("⚠️  %v\n", err)
		}

		cmd.Printf("✅ All checks passed\n\n")
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more batches")
	}

	cmd.Println("=== Validation Complete ===")
	cmd.Println("✅ All batches validated successfully")
	return nil
}
