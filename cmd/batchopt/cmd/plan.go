package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/batchopt/internal/config"
	"github.com/dbsmedya/batchopt/internal/graph"
	"github.com/dbsmedya/batchopt/internal/logger"
	"github.com/dbsmedya/batchopt/internal/report"
	"github.com/dbsmedya/batchopt/internal/scheduler"
	"github.com/dbsmedya/batchopt/internal/types"
)

// outputWriter is used for printing output, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var (
	planBatch    string
	planPackages []string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show execution plan for a batch",
	Long: `Plan resolves a batch against the package registry and displays the
order packages would be optimized in, without acquiring the guard or
running the optimizer.

The plan shows:
  - Execution order (requested packages first, then dependencies)
  - Whether each package was requested or pulled in as a dependency
  - Packages that would be skipped, and why
  - Dependencies left out because they are not worth optimizing
  - Any dependency cycle between packages

Example:
  batchopt plan --config batchopt.yaml --batch nightly`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planBatch, "batch", "b", "",
		"Batch name from configuration file")
	planCmd.Flags().StringSliceVarP(&planPackages, "packages", "p", nil,
		"Packages to plan (replaces the batch package list)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	batch, err := cfg.ApplyBatchOverrides(planBatch, planPackages, "", "")
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()
	dbManager, snapshot, policy, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	filter := scheduler.NewFilter(policy, log)
	var opts []graph.ResolverOption
	if cfg.Scheduler.PruneIneligibleDependencies {
		opts = append(opts, graph.WithPrune(filter.Prunable))
	}
	resolver := graph.NewResolver(snapshot, opts...)

	units, err := resolver.Resolve(batch.Packages, batch.Requested.IncludeDependencies)
	if err != nil {
		return fmt.Errorf("failed to resolve packages: %w", err)
	}

	printPlan(batchLabel(planBatch), batch, units, resolver.Graph(), filter)
	return nil
}

// printPlan writes the execution plan to outputWriter.
func printPlan(name string, batch *config.BatchConfig, units []*types.UnitDescriptor, g *graph.Graph, filter *scheduler.Filter) {
	req := batch.Request()

	report.Header(outputWriter, fmt.Sprintf("Execution Plan: %s", name))

	fmt.Fprintln(outputWriter)
	report.Section(outputWriter, "Batch Overview")
	fmt.Fprintf(outputWriter, "  Reason:          %s\n", req.Reason)
	fmt.Fprintf(outputWriter, "  Compiler Filter: %s\n", req.CompilerFilter)
	fmt.Fprintf(outputWriter, "  Requested:       %d package(s)\n", len(batch.Packages))
	fmt.Fprintf(outputWriter, "  Total:           %d package(s)\n", len(units))

	fmt.Fprintln(outputWriter)
	report.Section(outputWriter, "Execution Order (requested packages first)")
	table := report.NewTable("#", "PACKAGE", "KIND", "PHASES", "NOTE")
	for i, unit := range units {
		requested := g.GetNode(unit.Name).Requested
		kind := "dependency"
		if requested {
			kind = "requested"
		}
		phases := "primary"
		if req.ScopeFor(requested).IncludeSecondary {
			phases = "primary+secondary"
		}
		note := ""
		if reason := filter.Check(unit); reason != scheduler.SkipNone {
			note = "skip: " + reason.String()
		}
		table.Append(fmt.Sprintf("[%d]", i+1), unit.Name, kind, phases, note)
	}
	table.Write(outputWriter, "  ", nil)

	if pruned := prunedNodes(g); len(pruned) > 0 {
		fmt.Fprintln(outputWriter)
		report.Section(outputWriter, "Pruned Dependencies")
		for _, node := range pruned {
			fmt.Fprintf(outputWriter, "  - %s\n", node)
		}
	}

	if edges := g.AllEdges(); len(edges) > 0 {
		fmt.Fprintln(outputWriter)
		report.Section(outputWriter, "Detected Dependencies")
		for _, edge := range edges {
			fmt.Fprintf(outputWriter, "  • %s → %s\n", edge.From, edge.To)
		}
	}

	if err := g.Validate(); err != nil {
		var cycleErr *graph.CycleError
		fmt.Fprintln(outputWriter)
		report.Section(outputWriter, "Dependency Cycles")
		if errors.As(err, &cycleErr) && len(cycleErr.Info.CyclePath) > 0 {
			fmt.Fprintf(outputWriter, "  %s\n", strings.Join(cycleErr.Info.CyclePath, " -> "))
		} else {
			fmt.Fprintf(outputWriter, "  %v\n", err)
		}
		fmt.Fprintln(outputWriter, "  (cycles are tolerated: each package runs once)")
	}
}

// prunedNodes returns the packages reached through a library but left out
// of the execution order, in discovery order.
func prunedNodes(g *graph.Graph) []string {
	var pruned []string
	for _, name := range g.AllNodes() {
		if node := g.GetNode(name); node.Pruned && !node.Requested {
			pruned = append(pruned, name)
		}
	}
	return pruned
}
