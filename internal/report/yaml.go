package report

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/batchopt/internal/scheduler"
	"github.com/dbsmedya/batchopt/internal/types"
)

// YAMLRenderer writes the full result as a YAML document.
type YAMLRenderer struct{}

type yamlSummary struct {
	Units    map[string]int `yaml:"units"`
	Files    map[string]int `yaml:"files"`
	WallTime time.Duration  `yaml:"wall_time"`
	CPUTime  time.Duration  `yaml:"cpu_time"`
}

type yamlReport struct {
	Result   types.BatchResult `yaml:",inline"`
	Duration time.Duration     `yaml:"duration"`
	Summary  yamlSummary       `yaml:"summary"`
}

// Render implements Renderer.
func (r *YAMLRenderer) Render(w io.Writer, result *types.BatchResult) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	summary := scheduler.Summarize(result.Units)

	doc := yamlReport{
		Result:   *result,
		Duration: result.Duration(),
		Summary: yamlSummary{
			Units:    statusCounts(summary.Units),
			Files:    statusCounts(summary.Files),
			WallTime: summary.WallTime,
			CPUTime:  summary.CPUTime,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

func statusCounts(counts map[types.Status]int) map[string]int {
	out := make(map[string]int, len(statusOrder))
	for _, s := range statusOrder {
		out[s.String()] = counts[s]
	}
	return out
}
