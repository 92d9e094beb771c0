// Package scheduler runs a batch of package optimizations under an
// exclusive guard with cooperative cancellation.
package scheduler

import (
	"context"
	"time"

	"github.com/dbsmedya/batchopt/internal/graph"
	"github.com/dbsmedya/batchopt/internal/types"
)

// Snapshot resolves package names for one run. GetUnit returns nil for
// unknown packages.
type Snapshot = graph.Lookup

// HibernationPolicy reports which packages are dormant.
type HibernationPolicy interface {
	IsDormant(name string) bool
	IsArtifactDeletionEnabled() bool
}

// Guard is the exclusive resource held for the whole run.
type Guard interface {
	// SetAttribution records who the guard is held on behalf of.
	// It is called once, before Acquire.
	SetAttribution(source string)
	Acquire(ctx context.Context, timeout time.Duration) error
	Release() error
}

// UnitOptimizer runs one phase of optimization for one package.
// RunPhase returns outcomes in the order the files were processed. An error
// means the phase could not run at all and aborts the batch.
type UnitOptimizer interface {
	RunPhase(ctx context.Context) ([]types.FileOutcome, error)
}

// OptimizerFactory creates the per-phase optimizers for a package.
type OptimizerFactory interface {
	NewPrimary(unit *types.UnitDescriptor, content *types.ContentDescriptor, req *types.Request, cancel *Signal) UnitOptimizer
	NewSecondary(unit *types.UnitDescriptor, content *types.ContentDescriptor, req *types.Request, cancel *Signal) UnitOptimizer
}
