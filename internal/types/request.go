package types

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the root of all errors caused by bad caller input.
var ErrInvalidInput = errors.New("invalid input")

// Scope selects the work done for one class of packages.
type Scope struct {
	IncludeSecondary    bool `yaml:"include_secondary" mapstructure:"include_secondary"`
	IncludeDependencies bool `yaml:"include_dependencies" mapstructure:"include_dependencies"`
}

// Request is the immutable configuration of one optimization run.
// Requested applies to the packages named by the caller, Dependencies to
// packages pulled in through shared libraries.
type Request struct {
	Reason         string
	CompilerFilter string
	Requested      Scope
	Dependencies   Scope
}

// ScopeFor returns the scope that applies to a requested or dependency package.
func (r *Request) ScopeFor(requested bool) Scope {
	if requested {
		return r.Requested
	}
	return r.Dependencies
}

// Validate checks that the request names a reason and a compiler filter.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidInput)
	}
	if r.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if r.CompilerFilter == "" {
		return fmt.Errorf("%w: compiler filter is required", ErrInvalidInput)
	}
	return nil
}
