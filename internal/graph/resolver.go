package graph

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/dbsmedya/batchopt/internal/types"
)

var (
	// ErrUnitNotFound is returned when the snapshot has no package with the requested name.
	ErrUnitNotFound = fmt.Errorf("%w: package not found", types.ErrInvalidInput)

	// ErrNoDescriptor is returned when a package exists but carries no content descriptor.
	ErrNoDescriptor = fmt.Errorf("%w: package has no content descriptor", types.ErrInvalidInput)
)

// Lookup resolves package names against a registry snapshot.
// GetUnit returns nil if the package is unknown.
type Lookup interface {
	GetUnit(name string) *types.UnitDescriptor
}

// LookupFunc adapts a plain function to the Lookup interface.
type LookupFunc func(name string) *types.UnitDescriptor

// GetUnit implements Lookup.
func (f LookupFunc) GetUnit(name string) *types.UnitDescriptor {
	return f(name)
}

// PruneFunc reports whether a package should be left out of dependency traversal.
type PruneFunc func(unit *types.UnitDescriptor) bool

// Resolver computes the ordered, deduplicated list of packages to optimize.
//
// Requested packages come first in the order given. Dependencies follow
// in depth-first discovery order: each requested package's libraries in
// declared order, each newly visited library's own dependencies before
// its next sibling. A library is visited once; a package is scheduled once.
type Resolver struct {
	lookup Lookup
	prune  PruneFunc
	graph  *Graph
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPrune sets a predicate for packages whose libraries should not be
// traversed. A pruned dependency is also left out of the result; a pruned
// requested package stays in the result.
func WithPrune(prune PruneFunc) ResolverOption {
	return func(r *Resolver) {
		r.prune = prune
	}
}

// NewResolver creates a resolver reading packages from lookup.
func NewResolver(lookup Lookup, opts ...ResolverOption) *Resolver {
	r := &Resolver{lookup: lookup}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Graph returns the package graph recorded by the last Resolve call.
func (r *Resolver) Graph() *Graph {
	return r.graph
}

// Resolve returns the execution list for the requested package names.
// A requested or dependency package missing from the snapshot, or one
// without a content descriptor, aborts resolution with ErrUnitNotFound or
// ErrNoDescriptor.
func (r *Resolver) Resolve(names []string, includeDependencies bool) ([]*types.UnitDescriptor, error) {
	if r.lookup == nil {
		return nil, fmt.Errorf("lookup is nil")
	}

	r.graph = NewGraph()
	scheduled := orderedmap.NewOrderedMap[string, *types.UnitDescriptor]()
	var roots []*types.UnitDescriptor

	for _, name := range names {
		unit, err := r.getUnit(name)
		if err != nil {
			return nil, err
		}
		if _, ok := scheduled.Get(name); ok {
			continue
		}
		scheduled.Set(name, unit)
		roots = append(roots, unit)
		r.graph.AddNode(&Node{Name: name, Requested: true})
	}

	if includeDependencies {
		visited := make(map[string]bool)
		for _, unit := range roots {
			if r.pruned(unit) {
				r.graph.GetNode(unit.Name).Pruned = true
				continue
			}
			for _, lib := range unit.UsesLibraries {
				if err := r.visit(unit.Name, lib, visited, scheduled); err != nil {
					return nil, err
				}
			}
		}
	}

	units := make([]*types.UnitDescriptor, 0, scheduled.Len())
	for el := scheduled.Front(); el != nil; el = el.Next() {
		units = append(units, el.Value)
	}
	return units, nil
}

// visit schedules the package providing lib and recurses into the
// library's own dependencies. The providing package's other libraries are
// not followed: only edges reachable from a requested package count.
func (r *Resolver) visit(from string, lib *types.LibraryDescriptor, visited map[string]bool,
	scheduled *orderedmap.OrderedMap[string, *types.UnitDescriptor]) error {
	if lib == nil {
		return nil
	}
	if visited[lib.Name] {
		if r.graph.HasNode(lib.PackageName) {
			r.graph.AddEdge(from, lib.PackageName)
		}
		return nil
	}
	visited[lib.Name] = true

	unit, err := r.getUnit(lib.PackageName)
	if err != nil {
		return fmt.Errorf("library %q: %w", lib.Name, err)
	}

	r.graph.AddNode(&Node{Name: unit.Name})
	r.graph.AddEdge(from, unit.Name)

	if r.pruned(unit) {
		if node := r.graph.GetNode(unit.Name); !node.Requested {
			node.Pruned = true
		}
		return nil
	}
	if _, ok := scheduled.Get(unit.Name); !ok {
		scheduled.Set(unit.Name, unit)
	}

	for _, dep := range lib.Dependencies {
		if err := r.visit(unit.Name, dep, visited, scheduled); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) getUnit(name string) (*types.UnitDescriptor, error) {
	unit := r.lookup.GetUnit(name)
	if unit == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnitNotFound, name)
	}
	if unit.Content == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoDescriptor, name)
	}
	return unit, nil
}

func (r *Resolver) pruned(unit *types.UnitDescriptor) bool {
	return r.prune != nil && r.prune(unit)
}
