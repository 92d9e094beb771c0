package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/batchopt/internal/config"
	"github.com/dbsmedya/batchopt/internal/database"
	"github.com/dbsmedya/batchopt/internal/lock"
	"github.com/dbsmedya/batchopt/internal/logger"
	"github.com/dbsmedya/batchopt/internal/optimizer"
	"github.com/dbsmedya/batchopt/internal/registry"
	"github.com/dbsmedya/batchopt/internal/report"
	"github.com/dbsmedya/batchopt/internal/scheduler"
	"github.com/dbsmedya/batchopt/internal/types"
)

var (
	optimizeBatch          string
	optimizePackages       []string
	optimizeReason         string
	optimizeCompilerFilter string
	optimizeOutput         string
	optimizeLocalGuard     bool
	optimizeNoColor        bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a batch of packages and their dependencies",
	Long: `Optimize runs the configured optimizer over every package of a batch
and over the packages providing the shared libraries they use.

The run follows these steps:
  1. Load the package registry snapshot and hibernation state
  2. Acquire the exclusive guard (MySQL advisory lock unless --local-guard)
  3. Resolve requested packages followed by their dependencies
  4. Optimize each package (primary files, then secondary files)
  5. Release the guard and print the report

SIGINT or SIGTERM stops the run after the current file; remaining
packages are reported as cancelled. The command exits non-zero when any
package failed.

Example:
  batchopt optimize --config batchopt.yaml --batch nightly
  batchopt optimize --packages com.example.app --reason install --compiler-filter speed-profile`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeBatch, "batch", "b", "",
		"Batch name from configuration file")
	optimizeCmd.Flags().StringSliceVarP(&optimizePackages, "packages", "p", nil,
		"Packages to optimize (replaces the batch package list)")
	optimizeCmd.Flags().StringVar(&optimizeReason, "reason", "",
		"Override the reason recorded for the run")
	optimizeCmd.Flags().StringVar(&optimizeCompilerFilter, "compiler-filter", "",
		"Override the compiler filter")
	optimizeCmd.Flags().StringVarP(&optimizeOutput, "output", "o", report.FormatText,
		"Report format (text, yaml)")
	optimizeCmd.Flags().BoolVar(&optimizeLocalGuard, "local-guard", false,
		"Use an in-process guard instead of the MySQL advisory lock")
	optimizeCmd.Flags().BoolVar(&optimizeNoColor, "no-color", false,
		"Disable colored text output")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(optimizeLocalGuard)
	if err != nil {
		return err
	}

	batch, err := cfg.ApplyBatchOverrides(optimizeBatch, optimizePackages, optimizeReason, optimizeCompilerFilter)
	if err != nil {
		return err
	}
	if errs := config.ValidateBatch("batch", batch); len(errs) > 0 {
		return fmt.Errorf("invalid batch: %w", errs)
	}

	renderer, err := report.New(optimizeOutput, !optimizeNoColor)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Infow("Starting optimization",
		"batch", batchLabel(optimizeBatch),
		"config", GetConfigFile(),
	)

	// Handle graceful shutdown
	ctx, stop := database.SetupSignalHandler(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - cancelling remaining packages", "signal", sig.String())
	})
	defer stop()

	cancel := scheduler.NewSignal()
	stopBridge := cancel.CancelOnDone(ctx)
	defer stopBridge()

	dbManager, snapshot, policy, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	factory, err := optimizer.NewFactory(cfg.Optimizer, log)
	if err != nil {
		return fmt.Errorf("failed to create optimizer: %w", err)
	}

	sched, err := scheduler.New(newGuard(cfg, dbManager), policy, factory,
		scheduler.WithLogger(log),
		scheduler.WithWorkSource(cfg.Guard.WorkSource),
		scheduler.WithGuardTimeout(cfg.Guard.Timeout),
		scheduler.WithDependencyPruning(cfg.Scheduler.PruneIneligibleDependencies),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	var exec scheduler.Executor = scheduler.InlineExecutor{}
	if cfg.Scheduler.Workers > 0 {
		pool := scheduler.NewPoolExecutor(cfg.Scheduler.Workers)
		defer pool.Wait()
		exec = pool
	}

	result, err := sched.Run(ctx, snapshot, batch.Packages, batch.Request(), cancel, exec)
	if err != nil {
		if errors.Is(err, scheduler.ErrGuardUnavailable) {
			return fmt.Errorf("another optimization run holds guard %q: %w", cfg.Guard.Name, err)
		}
		return fmt.Errorf("optimization failed: %w", err)
	}

	if err := renderer.Render(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if result.Status == types.StatusFailed {
		return fmt.Errorf("batch finished with failures")
	}
	return nil
}

// openRegistry connects to the registry and loads the package snapshot and
// hibernation policy. The caller closes the returned manager.
func openRegistry(ctx context.Context, cfg *config.Config) (*database.Manager, *registry.Snapshot, *registry.StaticPolicy, error) {
	dbManager := database.NewManager(&cfg.Registry)
	if err := dbManager.Connect(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to registry: %w", err)
	}

	loader, err := registry.NewLoader(dbManager.Registry, cfg.Registry.TablePrefix)
	if err != nil {
		dbManager.Close()
		return nil, nil, nil, err
	}

	snapshot, err := loader.Load(ctx)
	if err != nil {
		dbManager.Close()
		return nil, nil, nil, fmt.Errorf("failed to load registry snapshot: %w", err)
	}

	policy, err := loader.LoadPolicy(ctx, cfg.Hibernation.ArtifactDeletionEnabled)
	if err != nil {
		dbManager.Close()
		return nil, nil, nil, fmt.Errorf("failed to load hibernation state: %w", err)
	}

	return dbManager, snapshot, policy, nil
}

// newGuard returns the guard selected by configuration.
func newGuard(cfg *config.Config, dbManager *database.Manager) scheduler.Guard {
	if cfg.Guard.Local {
		return lock.NewLocalGuard()
	}
	return lock.NewAdvisoryGuard(dbManager.Registry, lockName(cfg.Guard.Name))
}

// lockName namespaces a configured guard name unless it already is.
func lockName(name string) string {
	if strings.HasPrefix(name, "batchopt:") {
		return name
	}
	return lock.GuardName(name)
}

func batchLabel(name string) string {
	if name == "" {
		return "(ad-hoc)"
	}
	return name
}
