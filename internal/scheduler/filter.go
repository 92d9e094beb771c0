package scheduler

import (
	"github.com/dbsmedya/batchopt/internal/logger"
	"github.com/dbsmedya/batchopt/internal/types"
)

// SkipReason explains why a package is not optimized.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipNoCode
	SkipDormant
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipNoCode:
		return "no-code"
	case SkipDormant:
		return "dormant"
	default:
		return "unknown"
	}
}

// Filter decides which packages are worth optimizing.
type Filter struct {
	policy HibernationPolicy
	log    *logger.Logger
}

// NewFilter creates a Filter. A nil policy treats every package as active.
func NewFilter(policy HibernationPolicy, log *logger.Logger) *Filter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Filter{policy: policy, log: log}
}

// Check returns the reason unit should be skipped, or SkipNone.
// A dormant package is only skipped while artifact deletion is enabled,
// since its artifacts would be deleted right after optimization.
func (f *Filter) Check(unit *types.UnitDescriptor) SkipReason {
	if !unit.HasCode() {
		return SkipNoCode
	}
	if f.policy != nil && f.policy.IsDormant(unit.Name) && f.policy.IsArtifactDeletionEnabled() {
		return SkipDormant
	}
	return SkipNone
}

// ShouldSkip reports whether unit should be skipped and logs the reason.
func (f *Filter) ShouldSkip(unit *types.UnitDescriptor, requested bool) bool {
	reason := f.Check(unit)
	if reason == SkipNone {
		return false
	}
	f.log.WithPackage(unit.Name, requested).Infow("Skipping package", "reason", reason.String())
	return true
}

// Prunable reports whether unit's libraries should be left out of
// dependency resolution. It does not log.
func (f *Filter) Prunable(unit *types.UnitDescriptor) bool {
	return f.Check(unit) != SkipNone
}
