// Package types contains shared types used across multiple packages to avoid import cycles.
package types

// LibraryDescriptor describes a shared library provided by a package.
// Dependencies may share sub-nodes, repeat edges, or even loop back;
// consumers must guard their traversals.
type LibraryDescriptor struct {
	Name         string               // Library name (unique among libraries)
	PackageName  string               // Package that provides the library
	Dependencies []*LibraryDescriptor // Libraries this library links against, in declared order
}

// Component is one code container (split) of a package.
type Component struct {
	Name    string
	Path    string
	HasCode bool
}

// ContentDescriptor describes the executable content of a package.
type ContentDescriptor struct {
	Components     []Component
	SecondaryFiles []string // App-loaded code files outside the package components
}

// HasCode returns true if any component carries code.
func (c *ContentDescriptor) HasCode() bool {
	if c == nil {
		return false
	}
	for _, comp := range c.Components {
		if comp.HasCode {
			return true
		}
	}
	return false
}

// UnitDescriptor describes one package as seen by a registry snapshot.
type UnitDescriptor struct {
	Name          string
	AppID         int
	UsesLibraries []*LibraryDescriptor // Direct library dependencies, in declared order
	Content       *ContentDescriptor   // nil when the registry has no content for the package
}

// HasCode returns true if the package has content with at least one code component.
func (u *UnitDescriptor) HasCode() bool {
	return u != nil && u.Content.HasCode()
}
