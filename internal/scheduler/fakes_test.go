package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/dbsmedya/batchopt/internal/types"
)

// ============================================================================
// Recording Fakes
// ============================================================================

// recorder collects the order in which collaborators are called.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(event string) int {
	n := 0
	for _, e := range r.all() {
		if e == event {
			n++
		}
	}
	return n
}

type fakeGuard struct {
	rec         *recorder
	acquireErr  error
	releaseErr  error
	attribution string
	timeout     time.Duration
}

func (g *fakeGuard) SetAttribution(source string) {
	g.attribution = source
	g.rec.add("attribute")
}

func (g *fakeGuard) Acquire(_ context.Context, timeout time.Duration) error {
	g.timeout = timeout
	g.rec.add("acquire")
	return g.acquireErr
}

func (g *fakeGuard) Release() error {
	g.rec.add("release")
	return g.releaseErr
}

type fakePolicy struct {
	dormant  map[string]bool
	deletion bool
}

func (p *fakePolicy) IsDormant(name string) bool {
	return p.dormant[name]
}

func (p *fakePolicy) IsArtifactDeletionEnabled() bool {
	return p.deletion
}

// phaseFunc produces the outcome of one phase for one package.
type phaseFunc func(unit *types.UnitDescriptor, cancel *Signal) ([]types.FileOutcome, error)

type fakeOptimizer struct {
	run func(ctx context.Context) ([]types.FileOutcome, error)
}

func (o fakeOptimizer) RunPhase(ctx context.Context) ([]types.FileOutcome, error) {
	return o.run(ctx)
}

// fakeFactory records "primary:<pkg>" and "secondary:<pkg>" when a phase
// runs. Phases default to one performed file.
type fakeFactory struct {
	rec       *recorder
	primary   map[string]phaseFunc
	secondary map[string]phaseFunc
	requests  []*types.Request
	signals   []*Signal
}

func newFakeFactory(rec *recorder) *fakeFactory {
	return &fakeFactory{
		rec:       rec,
		primary:   make(map[string]phaseFunc),
		secondary: make(map[string]phaseFunc),
	}
}

func (f *fakeFactory) NewPrimary(unit *types.UnitDescriptor, _ *types.ContentDescriptor, req *types.Request, cancel *Signal) UnitOptimizer {
	return f.optimizer("primary", f.primary[unit.Name], unit, req, cancel)
}

func (f *fakeFactory) NewSecondary(unit *types.UnitDescriptor, _ *types.ContentDescriptor, req *types.Request, cancel *Signal) UnitOptimizer {
	return f.optimizer("secondary", f.secondary[unit.Name], unit, req, cancel)
}

func (f *fakeFactory) optimizer(phase string, fn phaseFunc, unit *types.UnitDescriptor, req *types.Request, cancel *Signal) UnitOptimizer {
	f.requests = append(f.requests, req)
	f.signals = append(f.signals, cancel)
	return fakeOptimizer{run: func(context.Context) ([]types.FileOutcome, error) {
		f.rec.add(phase + ":" + unit.Name)
		if fn != nil {
			return fn(unit, cancel)
		}
		return []types.FileOutcome{performed(phase, unit.Name)}, nil
	}}
}

func performed(phase, pkg string) types.FileOutcome {
	return types.FileOutcome{
		Path:           "/data/app/" + pkg + "/" + phase + ".apk",
		PrimaryABI:     true,
		ABI:            "arm64-v8a",
		CompilerFilter: "speed-profile",
		Status:         types.StatusPerformed,
	}
}

func failed(phase, pkg string) types.FileOutcome {
	f := performed(phase, pkg)
	f.Status = types.StatusFailed
	return f
}

// ============================================================================
// Snapshot
// ============================================================================

type snapshot map[string]*types.UnitDescriptor

func (s snapshot) GetUnit(name string) *types.UnitDescriptor {
	return s[name]
}

func (s snapshot) add(name string, libs ...*types.LibraryDescriptor) *types.UnitDescriptor {
	unit := &types.UnitDescriptor{
		Name:          name,
		AppID:         12345,
		UsesLibraries: libs,
		Content: &types.ContentDescriptor{
			Components: []types.Component{{Name: "base", Path: "/data/app/" + name + "/base.apk", HasCode: true}},
		},
	}
	s[name] = unit
	return unit
}

func library(name, pkg string, deps ...*types.LibraryDescriptor) *types.LibraryDescriptor {
	return &types.LibraryDescriptor{Name: name, PackageName: pkg, Dependencies: deps}
}

// sharedLibrarySnapshot requests foo, bar and libbaz in most tests:
//
//	          foo                bar
//	           |                  |
//	      lib1a (lib1)       lib1b (lib1)       lib1c (lib1)
//	         /   \             /   \                  |
//	libbaz (libbaz)  lib2 (lib2)    lib4 (lib4)    lib3 (lib3)
func sharedLibrarySnapshot() snapshot {
	s := snapshot{}
	libbaz := library("libbaz", "libbaz")
	lib2 := library("lib2", "lib2")
	lib3 := library("lib3", "lib3")
	lib4 := library("lib4", "lib4")
	lib1a := library("lib1a", "lib1", libbaz, lib2)
	lib1b := library("lib1b", "lib1", lib2, lib4)

	s.add("foo", lib1a)
	s.add("bar", lib1b)
	s.add("lib1", libbaz, lib2, lib3, lib4)
	s.add("lib2")
	s.add("lib3")
	s.add("lib4")
	s.add("libbaz")
	return s
}

var requestedPackages = []string{"foo", "bar", "libbaz"}

func fullRequest() *types.Request {
	return &types.Request{
		Reason:         "install",
		CompilerFilter: "speed-profile",
		Requested:      types.Scope{IncludeSecondary: true, IncludeDependencies: true},
		Dependencies:   types.Scope{IncludeSecondary: true, IncludeDependencies: true},
	}
}
