package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gookit/color"

	"github.com/dbsmedya/batchopt/internal/scheduler"
	"github.com/dbsmedya/batchopt/internal/types"
)

// statusOrder lists statuses in the order summaries print them.
var statusOrder = []types.Status{
	types.StatusPerformed,
	types.StatusSkipped,
	types.StatusFailed,
	types.StatusCancelled,
}

var statusColors = map[types.Status]color.Color{
	types.StatusPerformed: color.FgGreen,
	types.StatusSkipped:   color.FgGray,
	types.StatusFailed:    color.FgRed,
	types.StatusCancelled: color.FgYellow,
}

// TextRenderer writes a human-readable report.
type TextRenderer struct {
	Color bool
}

// Render implements Renderer.
func (r *TextRenderer) Render(w io.Writer, result *types.BatchResult) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	summary := scheduler.Summarize(result.Units)

	Header(w, fmt.Sprintf("Optimization Report: %s", result.Reason))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Status:          %s\n", r.status(result.Status, result.Status.String()))
	fmt.Fprintf(w, "  Compiler Filter: %s\n", result.CompilerFilter)
	fmt.Fprintf(w, "  Duration:        %s\n", result.Duration().Round(time.Millisecond))

	fmt.Fprintln(w)
	Section(w, "Packages")
	if len(result.Units) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		table := NewTable("#", "PACKAGE", "STATUS", "FILES", "WALL", "CPU")
		for i, u := range result.Units {
			var wall, cpu time.Duration
			for _, f := range u.Files {
				wall += f.WallTime
				cpu += f.CPUTime
			}
			table.Append(
				strconv.Itoa(i+1),
				u.Name,
				u.Status.String(),
				strconv.Itoa(len(u.Files)),
				formatDuration(wall),
				formatDuration(cpu),
			)
		}
		table.Write(w, "  ", func(row, col int, cell string) string {
			if col != 2 {
				return cell
			}
			return r.status(result.Units[row].Status, cell)
		})
	}

	if failed := failedFiles(result.Units); len(failed) > 0 {
		fmt.Fprintln(w)
		Section(w, "Failed Files")
		for _, f := range failed {
			fmt.Fprintf(w, "  - %s (%s)\n", f.Path, f.ABI)
		}
	}

	fmt.Fprintln(w)
	Section(w, "Summary")
	table := NewTable("STATUS", "PACKAGES", "FILES")
	for _, s := range statusOrder {
		table.Append(s.String(), strconv.Itoa(summary.Units[s]), strconv.Itoa(summary.Files[s]))
	}
	table.Write(w, "  ", nil)
	fmt.Fprintf(w, "  Wall time: %s\n", formatDuration(summary.WallTime))
	fmt.Fprintf(w, "  CPU time:  %s\n", formatDuration(summary.CPUTime))
	return nil
}

func (r *TextRenderer) status(s types.Status, text string) string {
	if !r.Color {
		return text
	}
	c, ok := statusColors[s]
	if !ok {
		return text
	}
	return c.Render(text)
}

func failedFiles(units []types.UnitResult) []types.FileOutcome {
	var out []types.FileOutcome
	for _, u := range units {
		for _, f := range u.Files {
			if f.Status == types.StatusFailed {
				out = append(out, f)
			}
		}
	}
	return out
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
