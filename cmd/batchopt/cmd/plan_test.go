package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/batchopt/internal/config"
	"github.com/dbsmedya/batchopt/internal/graph"
	"github.com/dbsmedya/batchopt/internal/registry"
	"github.com/dbsmedya/batchopt/internal/scheduler"
	"github.com/dbsmedya/batchopt/internal/types"
)

func TestPlanCommandStructure(t *testing.T) {
	assert.NotNil(t, planCmd)
	assert.Equal(t, "plan", planCmd.Use)
	assert.NotEmpty(t, planCmd.Short)
	assert.Contains(t, planCmd.Long, "Example:")
	assert.NotNil(t, planCmd.RunE)
}

func TestPlanCommandFlags(t *testing.T) {
	flags := planCmd.Flags()

	batchFlag := flags.Lookup("batch")
	require.NotNil(t, batchFlag)
	assert.Equal(t, "b", batchFlag.Shorthand)

	packagesFlag := flags.Lookup("packages")
	require.NotNil(t, packagesFlag)
	assert.Equal(t, "p", packagesFlag.Shorthand)
}

// ============================================================================
// printPlan Tests
// ============================================================================

func withCode(name string, libs ...*types.LibraryDescriptor) *types.UnitDescriptor {
	return &types.UnitDescriptor{
		Name:          name,
		UsesLibraries: libs,
		Content: &types.ContentDescriptor{
			Components: []types.Component{{Name: "base", Path: "/data/app/" + name + "/base.apk", HasCode: true}},
		},
	}
}

func capturePlan(t *testing.T, batch *config.BatchConfig, snap *registry.Snapshot, policy scheduler.HibernationPolicy, prune bool) string {
	t.Helper()

	filter := scheduler.NewFilter(policy, nil)
	var opts []graph.ResolverOption
	if prune {
		opts = append(opts, graph.WithPrune(filter.Prunable))
	}
	resolver := graph.NewResolver(snap, opts...)
	units, err := resolver.Resolve(batch.Packages, batch.Requested.IncludeDependencies)
	require.NoError(t, err)

	var buf bytes.Buffer
	setOutputWriter(&buf)
	defer resetOutputWriter()

	printPlan("nightly", batch, units, resolver.Graph(), filter)
	return buf.String()
}

func TestPrintPlan(t *testing.T) {
	libBar := &types.LibraryDescriptor{Name: "libbar", PackageName: "bar"}
	libEmpty := &types.LibraryDescriptor{Name: "libempty", PackageName: "empty"}

	snap := registry.NewSnapshot()
	snap.Add(withCode("foo", libBar, libEmpty))
	snap.Add(withCode("bar"))
	snap.Add(withCode("sleepy"))
	snap.Add(&types.UnitDescriptor{Name: "empty", Content: &types.ContentDescriptor{}})

	batch := &config.BatchConfig{
		Packages:       []string{"foo", "sleepy"},
		Reason:         "bg-dexopt",
		CompilerFilter: "speed-profile",
		Requested:      types.Scope{IncludeSecondary: true, IncludeDependencies: true},
		Dependencies:   types.Scope{IncludeDependencies: true},
	}

	out := capturePlan(t, batch, snap, registry.NewStaticPolicy(true, "sleepy"), true)

	assert.Contains(t, out, "Execution Plan: nightly")
	assert.Contains(t, out, "Reason:          bg-dexopt")
	assert.Contains(t, out, "Total:           3 package(s)")

	// Requested first, then dependencies
	fooIdx := strings.Index(out, "[1]  foo")
	sleepyIdx := strings.Index(out, "[2]  sleepy")
	barIdx := strings.Index(out, "[3]  bar")
	require.True(t, fooIdx >= 0 && sleepyIdx > fooIdx && barIdx > sleepyIdx, "unexpected order:\n%s", out)

	lines := strings.Split(out, "\n")
	for _, line := range lines {
		switch {
		case strings.Contains(line, "[1]  foo"):
			assert.Contains(t, line, "requested")
			assert.Contains(t, line, "primary+secondary")
		case strings.Contains(line, "[2]  sleepy"):
			assert.Contains(t, line, "skip: dormant")
		case strings.Contains(line, "[3]  bar"):
			assert.Contains(t, line, "dependency")
			assert.NotContains(t, line, "secondary")
		}
	}

	assert.Contains(t, out, "[Pruned Dependencies]")
	assert.Contains(t, out, "  - empty")
	assert.Contains(t, out, "foo → bar")
	assert.NotContains(t, out, "[Dependency Cycles]")
}

func TestPrintPlan_Cycle(t *testing.T) {
	libFoo := &types.LibraryDescriptor{Name: "libfoo", PackageName: "foo"}
	libBar := &types.LibraryDescriptor{Name: "libbar", PackageName: "bar", Dependencies: []*types.LibraryDescriptor{libFoo}}

	snap := registry.NewSnapshot()
	snap.Add(withCode("foo", libBar))
	snap.Add(withCode("bar", libFoo))

	batch := &config.BatchConfig{
		Packages:       []string{"foo"},
		Reason:         "boot",
		CompilerFilter: "verify",
		Requested:      types.Scope{IncludeDependencies: true},
	}

	out := capturePlan(t, batch, snap, nil, false)

	assert.Contains(t, out, "[Dependency Cycles]")
	assert.Contains(t, out, "->")
	assert.Contains(t, out, "cycles are tolerated")
	assert.Equal(t, 1, strings.Count(out, "  bar "), "bar must be listed once in the order:\n%s", out)
}

func TestPrintPlan_NoDependencies(t *testing.T) {
	libBar := &types.LibraryDescriptor{Name: "libbar", PackageName: "bar"}
	snap := registry.NewSnapshot()
	snap.Add(withCode("foo", libBar))
	snap.Add(withCode("bar"))

	batch := &config.BatchConfig{
		Packages:       []string{"foo"},
		Reason:         "install",
		CompilerFilter: "verify",
	}

	out := capturePlan(t, batch, snap, nil, true)
	assert.Contains(t, out, "Total:           1 package(s)")
	assert.NotContains(t, out, "bar")
	assert.NotContains(t, out, "[Detected Dependencies]")
}
