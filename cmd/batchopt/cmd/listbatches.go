package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/batchopt/internal/config"
	"github.com/dbsmedya/batchopt/internal/types"
)

var listBatchesCmd = &cobra.Command{
	Use:   "list-batches",
	Short: "List all batches defined in configuration",
	Long: `List-batches displays all optimization batches defined in the
configuration file along with their request settings.

Example:
  batchopt list-batches --config batchopt.yaml`,
	RunE: runListBatches,
}

func init() {
	rootCmd.AddCommand(listBatchesCmd)
}

func runListBatches(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Only the batches section matters here; a partially filled config is fine.
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	names := cfg.ListBatches()
	if len(names) == 0 {
		cmd.Printf("No batches defined in %s\n", configFile)
		return nil
	}
	sort.Strings(names)

	cmd.Printf("Batches defined in %s:\n\n", configFile)

	for i, name := range names {
		batch, err := cfg.GetBatch(name)
		if err != nil {
			return fmt.Errorf("failed to get batch %q: %w", name, err)
		}

		cmd.Printf("%d. %s\n", i+1, name)
		cmd.Printf("   Reason:          %s\n", batch.Reason)
		cmd.Printf("   Compiler Filter: %s\n", batch.CompilerFilter)
		cmd.Printf("   Packages:        %d\n", len(batch.Packages))
		for _, pkg := range batch.Packages {
			cmd.Printf("      - %s\n", pkg)
		}
		cmd.Printf("   Requested:       %s\n", describeScope(batch.Requested))
		cmd.Printf("   Dependencies:    %s\n", describeScope(batch.Dependencies))

		if i < len(names)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d batch(es)\n", len(names))
	return nil
}

// describeScope renders a scope as a short comma separated list.
func describeScope(scope types.Scope) string {
	var parts []string
	if scope.IncludeSecondary {
		parts = append(parts, "secondary")
	}
	if scope.IncludeDependencies {
		parts = append(parts, "dependencies")
	}
	if len(parts) == 0 {
		return "primary only"
	}
	return "primary, " + strings.Join(parts, ", ")
}
