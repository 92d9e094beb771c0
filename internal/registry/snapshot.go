// Package registry loads package descriptors and hibernation state from the
// registry database.
package registry

import (
	"sort"

	"github.com/dbsmedya/batchopt/internal/types"
)

// Snapshot is an immutable in-memory view of the registry for one run.
type Snapshot struct {
	units     map[string]*types.UnitDescriptor
	libraries map[string]*types.LibraryDescriptor
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		units:     make(map[string]*types.UnitDescriptor),
		libraries: make(map[string]*types.LibraryDescriptor),
	}
}

// Add registers a package, replacing any package with the same name.
func (s *Snapshot) Add(unit *types.UnitDescriptor) {
	s.units[unit.Name] = unit
}

// GetUnit returns the named package, or nil.
func (s *Snapshot) GetUnit(name string) *types.UnitDescriptor {
	return s.units[name]
}

// Library returns the named library, or nil.
func (s *Snapshot) Library(name string) *types.LibraryDescriptor {
	return s.libraries[name]
}

// Names returns all package names in lexical order.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.units))
	for name := range s.units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of packages.
func (s *Snapshot) Len() int {
	return len(s.units)
}

// StaticPolicy is a hibernation policy over a fixed set of dormant packages.
type StaticPolicy struct {
	dormant         map[string]bool
	deletionEnabled bool
}

// NewStaticPolicy creates a policy reporting the given packages as dormant.
func NewStaticPolicy(deletionEnabled bool, dormant ...string) *StaticPolicy {
	p := &StaticPolicy{
		dormant:         make(map[string]bool, len(dormant)),
		deletionEnabled: deletionEnabled,
	}
	for _, name := range dormant {
		p.dormant[name] = true
	}
	return p
}

// IsDormant reports whether the package is hibernating.
func (p *StaticPolicy) IsDormant(name string) bool {
	return p.dormant[name]
}

// IsArtifactDeletionEnabled reports whether artifacts of dormant packages get deleted.
func (p *StaticPolicy) IsArtifactDeletionEnabled() bool {
	return p.deletionEnabled
}

// DormantCount returns the number of dormant packages.
func (p *StaticPolicy) DormantCount() int {
	return len(p.dormant)
}
