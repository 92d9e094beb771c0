package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dbsmedya/batchopt/internal/types"
)

func sampleResult() *types.BatchResult {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &types.BatchResult{
		Reason:         "bg-dexopt",
		CompilerFilter: "speed-profile",
		Status:         types.StatusFailed,
		StartedAt:      started,
		CompletedAt:    started.Add(3 * time.Second),
		Units: []types.UnitResult{
			{
				Name:   "com.example.foo",
				Status: types.StatusPerformed,
				Files: []types.FileOutcome{
					{Path: "/data/app/foo/base.apk", PrimaryABI: true, ABI: "arm64-v8a", CompilerFilter: "speed-profile",
						Status: types.StatusPerformed, WallTime: time.Second, CPUTime: 500 * time.Millisecond},
				},
			},
			{
				Name:   "com.example.bar",
				Status: types.StatusFailed,
				Files: []types.FileOutcome{
					{Path: "/data/app/bar/base.apk", PrimaryABI: true, ABI: "arm64-v8a", CompilerFilter: "speed-profile",
						Status: types.StatusFailed, WallTime: 2 * time.Second, CPUTime: time.Second},
				},
			},
			{Name: "com.example.lib", Status: types.StatusSkipped},
		},
	}
}

// ============================================================================
// New Tests
// ============================================================================

func TestNew(t *testing.T) {
	r, err := New(FormatText, false)
	require.NoError(t, err)
	assert.IsType(t, &TextRenderer{}, r)

	r, err = New("", true)
	require.NoError(t, err)
	assert.True(t, r.(*TextRenderer).Color)

	r, err = New(FormatYAML, true)
	require.NoError(t, err)
	assert.IsType(t, &YAMLRenderer{}, r)

	_, err = New("xml", false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

// ============================================================================
// Table Tests
// ============================================================================

func TestTable_AlignsByDisplayWidth(t *testing.T) {
	table := NewTable("NAME", "STATUS")
	table.Append("com.例え.app", "performed")
	table.Append("a", "skipped")

	var buf bytes.Buffer
	table.Write(&buf, "", nil)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	// The STATUS column starts at the same display column on every line.
	var cols []int
	for _, line := range lines {
		for _, word := range []string{"STATUS", "performed", "skipped"} {
			if idx := strings.Index(line, word); idx >= 0 {
				cols = append(cols, runewidth.StringWidth(line[:idx]))
			}
		}
	}
	require.Len(t, cols, 3)
	assert.Equal(t, cols[0], cols[1])
	assert.Equal(t, cols[0], cols[2])
}

func TestTable_StyleSkipsHeader(t *testing.T) {
	table := NewTable("A", "B")
	table.Append("x", "y")

	var calls []int
	var buf bytes.Buffer
	table.Write(&buf, "  ", func(row, col int, cell string) string {
		calls = append(calls, row)
		return strings.ToUpper(cell)
	})

	assert.Equal(t, []int{0, 0}, calls)
	assert.Contains(t, buf.String(), "  X  Y")
}

// ============================================================================
// Text Renderer Tests
// ============================================================================

func TestTextRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextRenderer{}).Render(&buf, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "Optimization Report: bg-dexopt")
	assert.Contains(t, out, "Status:          failed")
	assert.Contains(t, out, "Compiler Filter: speed-profile")
	assert.Contains(t, out, "Duration:        3s")

	assert.Contains(t, out, "[Packages]")
	fooIdx := strings.Index(out, "com.example.foo")
	barIdx := strings.Index(out, "com.example.bar")
	libIdx := strings.Index(out, "com.example.lib")
	assert.True(t, fooIdx < barIdx && barIdx < libIdx, "packages must keep result order")

	assert.Contains(t, out, "[Failed Files]")
	assert.Contains(t, out, "- /data/app/bar/base.apk (arm64-v8a)")

	assert.Contains(t, out, "[Summary]")
	assert.Contains(t, out, "Wall time: 3s")
	assert.Contains(t, out, "CPU time:  1.5s")
}

func TestTextRenderer_NoFailures(t *testing.T) {
	result := sampleResult()
	result.Units = result.Units[:1]
	result.Status = types.StatusPerformed

	var buf bytes.Buffer
	require.NoError(t, (&TextRenderer{Color: true}).Render(&buf, result))
	assert.NotContains(t, buf.String(), "[Failed Files]")
	assert.Contains(t, buf.String(), "performed")
}

func TestTextRenderer_EmptyBatch(t *testing.T) {
	result := &types.BatchResult{Reason: "boot", CompilerFilter: "verify", Status: types.StatusSkipped}

	var buf bytes.Buffer
	require.NoError(t, (&TextRenderer{}).Render(&buf, result))
	assert.Contains(t, buf.String(), "(none)")
	assert.Contains(t, buf.String(), "Wall time: -")
}

func TestTextRenderer_NilResult(t *testing.T) {
	assert.Error(t, (&TextRenderer{}).Render(&bytes.Buffer{}, nil))
}

// ============================================================================
// YAML Renderer Tests
// ============================================================================

func TestYAMLRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLRenderer{}).Render(&buf, sampleResult()))

	var doc struct {
		Reason   string        `yaml:"reason"`
		Status   types.Status  `yaml:"status"`
		Duration time.Duration `yaml:"duration"`
		Units    []types.UnitResult
		Summary  struct {
			Units    map[string]int `yaml:"units"`
			Files    map[string]int `yaml:"files"`
			WallTime time.Duration  `yaml:"wall_time"`
		} `yaml:"summary"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "bg-dexopt", doc.Reason)
	assert.Equal(t, types.StatusFailed, doc.Status)
	assert.Equal(t, 3*time.Second, doc.Duration)
	require.Len(t, doc.Units, 3)
	assert.Equal(t, "com.example.bar", doc.Units[1].Name)
	assert.Equal(t, types.StatusFailed, doc.Units[1].Files[0].Status)
	assert.Equal(t, 2*time.Second, doc.Units[1].Files[0].WallTime)

	assert.Equal(t, map[string]int{"performed": 1, "skipped": 1, "failed": 1, "cancelled": 0}, doc.Summary.Units)
	assert.Equal(t, map[string]int{"performed": 1, "skipped": 0, "failed": 1, "cancelled": 0}, doc.Summary.Files)
	assert.Equal(t, 3*time.Second, doc.Summary.WallTime)
}

func TestYAMLRenderer_StatusAsText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLRenderer{}).Render(&buf, sampleResult()))
	assert.Contains(t, buf.String(), "status: failed")
	assert.Contains(t, buf.String(), "compiler_filter: speed-profile")
}

func TestHeaderAndSection(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Plan")
	Section(&buf, "Order")

	assert.Equal(t, "========\n  Plan\n========\n[Order]\n-------\n", buf.String())
}
