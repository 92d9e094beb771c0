// Package report renders batch results for the command line.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/batchopt/internal/types"
)

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Renderer writes a batch result to w.
type Renderer interface {
	Render(w io.Writer, result *types.BatchResult) error
}

// New returns the renderer for format. colored enables ANSI colors in
// text output and is ignored for YAML.
func New(format string, colored bool) (Renderer, error) {
	switch format {
	case FormatText, "":
		return &TextRenderer{Color: colored}, nil
	case FormatYAML:
		return &YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected %s or %s)", format, FormatText, FormatYAML)
	}
}

// Header writes a title framed by '=' rules.
func Header(w io.Writer, title string) {
	width := runewidth.StringWidth(title) + 4
	fmt.Fprintln(w, strings.Repeat("=", width))
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, strings.Repeat("=", width))
}

// Section writes a bracketed section title with an underline.
func Section(w io.Writer, title string) {
	fmt.Fprintf(w, "[%s]\n", title)
	fmt.Fprintln(w, strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// Table lays out rows in left-aligned columns by display width.
type Table struct {
	header []string
	rows   [][]string
}

// NewTable creates a table with the given column titles.
func NewTable(header ...string) *Table {
	return &Table{header: header}
}

// Append adds a row. Missing cells are rendered empty.
func (t *Table) Append(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Widths returns the display width of each column.
func (t *Table) Widths() []int {
	widths := make([]int, len(t.header))
	measure := func(cells []string) {
		for i := range widths {
			if i < len(cells) {
				if w := runewidth.StringWidth(cells[i]); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

// Write renders the table with indent before each line. style, when not
// nil, decorates a padded cell after alignment so escape sequences do not
// affect column widths.
func (t *Table) Write(w io.Writer, indent string, style func(row, col int, cell string) string) {
	widths := t.Widths()
	line := func(rowIdx int, cells []string) {
		var sb strings.Builder
		sb.WriteString(indent)
		for i, width := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			padded := cell
			if i < len(widths)-1 {
				padded = runewidth.FillRight(cell, width+2)
			}
			if style != nil && rowIdx >= 0 {
				padded = style(rowIdx, i, padded)
			}
			sb.WriteString(padded)
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}

	line(-1, t.header)
	for i, row := range t.rows {
		line(i, row)
	}
}
