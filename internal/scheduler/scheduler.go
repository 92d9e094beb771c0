package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbsmedya/batchopt/internal/graph"
	"github.com/dbsmedya/batchopt/internal/logger"
	"github.com/dbsmedya/batchopt/internal/types"
)

// ErrGuardUnavailable is returned when the exclusive guard cannot be acquired.
var ErrGuardUnavailable = errors.New("exclusive guard unavailable")

// DefaultGuardTimeout bounds how long Run waits for the guard.
const DefaultGuardTimeout = time.Hour

// DefaultWorkSource is the attribution used when none is configured.
const DefaultWorkSource = "batchopt"

// Scheduler optimizes batches of packages one package at a time.
type Scheduler struct {
	guard        Guard
	factory      OptimizerFactory
	filter       *Filter
	logger       *logger.Logger
	workSource   string
	guardTimeout time.Duration
	prune        bool
	now          func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Scheduler) {
		s.logger = log
	}
}

// WithWorkSource sets the attribution passed to the guard.
func WithWorkSource(source string) Option {
	return func(s *Scheduler) {
		s.workSource = source
	}
}

// WithGuardTimeout sets how long to wait for the guard.
func WithGuardTimeout(timeout time.Duration) Option {
	return func(s *Scheduler) {
		s.guardTimeout = timeout
	}
}

// WithDependencyPruning controls whether dependencies that would be skipped
// are dropped during resolution along with the libraries behind them.
// Enabled by default.
func WithDependencyPruning(enabled bool) Option {
	return func(s *Scheduler) {
		s.prune = enabled
	}
}

// New creates a Scheduler.
func New(guard Guard, policy HibernationPolicy, factory OptimizerFactory, opts ...Option) (*Scheduler, error) {
	if guard == nil {
		return nil, fmt.Errorf("guard is nil")
	}
	if factory == nil {
		return nil, fmt.Errorf("optimizer factory is nil")
	}

	s := &Scheduler{
		guard:        guard,
		factory:      factory,
		logger:       logger.NewNop(),
		workSource:   DefaultWorkSource,
		guardTimeout: DefaultGuardTimeout,
		prune:        true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.filter = NewFilter(policy, s.logger)
	return s, nil
}

// Filter returns the eligibility filter used by the scheduler.
func (s *Scheduler) Filter() *Filter {
	return s.filter
}

// Resolver returns a resolver over snapshot configured the way Run uses it.
func (s *Scheduler) Resolver(snapshot Snapshot) *graph.Resolver {
	var opts []graph.ResolverOption
	if s.prune {
		opts = append(opts, graph.WithPrune(s.filter.Prunable))
	}
	return graph.NewResolver(snapshot, opts...)
}

// Run optimizes the named packages and their dependencies.
//
// The guard is held from before resolution until Run returns. Packages run
// one after another through exec, requested ones first. Once cancel is
// raised the remaining packages are reported Cancelled without being
// touched. A resolution or optimizer error aborts the run with no result.
// A panic inside a package task is re-raised after the guard is released.
func (s *Scheduler) Run(ctx context.Context, snapshot Snapshot, names []string, req *types.Request,
	cancel *Signal, exec Executor) (*types.BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if cancel == nil {
		cancel = NewSignal()
	}
	if exec == nil {
		exec = InlineExecutor{}
	}

	log := s.logger.WithRun(req.Reason, req.CompilerFilter)

	s.guard.SetAttribution(s.workSource)
	if err := s.guard.Acquire(ctx, s.guardTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGuardUnavailable, err)
	}
	log.Debugw("Guard acquired", "work_source", s.workSource)
	defer func() {
		if err := s.guard.Release(); err != nil {
			log.Warnw("Failed to release guard", "error", err)
			return
		}
		log.Debug("Guard released")
	}()

	result := &types.BatchResult{
		CompilerFilter: req.CompilerFilter,
		Reason:         req.Reason,
		StartedAt:      s.now(),
	}

	units, err := s.Resolver(snapshot).Resolve(names, req.Requested.IncludeDependencies)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve packages: %w", err)
	}

	requested := make(map[string]bool, len(names))
	for _, name := range names {
		requested[name] = true
	}

	log.Infow("Starting batch", "packages", len(units), "requested", len(requested))

	result.Units = make([]types.UnitResult, 0, len(units))
	for _, unit := range units {
		if cancel.IsCancelled() {
			result.Units = append(result.Units, types.UnitResult{Name: unit.Name, Status: types.StatusCancelled})
			continue
		}

		unitResult, err := s.dispatch(ctx, exec, unit, requested[unit.Name], req, cancel)
		if err != nil {
			return nil, err
		}
		result.Units = append(result.Units, unitResult)
	}

	result.Status = BatchStatus(result.Units)
	result.CompletedAt = s.now()

	if cancel.IsCancelled() {
		log.Warnw("Batch cancelled", "status", result.Status.String())
	}
	log.Infow("Batch finished",
		"status", result.Status.String(),
		"duration", result.Duration(),
	)
	return result, nil
}

// dispatch runs one package through exec and waits for it.
func (s *Scheduler) dispatch(ctx context.Context, exec Executor, unit *types.UnitDescriptor, requested bool,
	req *types.Request, cancel *Signal) (types.UnitResult, error) {
	var (
		result   types.UnitResult
		err      error
		panicked interface{}
	)
	done := make(chan struct{})

	exec.Go(func() {
		defer close(done)
		defer func() {
			panicked = recover()
		}()
		result, err = s.optimize(ctx, unit, requested, req, cancel)
	})
	<-done

	if panicked != nil {
		panic(panicked)
	}
	return result, err
}

// optimize runs the primary phase and, when in scope, the secondary phase.
func (s *Scheduler) optimize(ctx context.Context, unit *types.UnitDescriptor, requested bool,
	req *types.Request, cancel *Signal) (types.UnitResult, error) {
	result := types.UnitResult{Name: unit.Name}

	if s.filter.ShouldSkip(unit, requested) {
		result.Status = types.StatusSkipped
		return result, nil
	}

	log := s.logger.WithPackage(unit.Name, requested)

	files, err := s.factory.NewPrimary(unit, unit.Content, req, cancel).RunPhase(ctx)
	if err != nil {
		return result, fmt.Errorf("primary phase of %s failed: %w", unit.Name, err)
	}
	result.Files = append(result.Files, files...)

	if req.ScopeFor(requested).IncludeSecondary {
		if cancel.IsCancelled() {
			log.Infow("Cancellation observed, not running secondary phase")
		} else {
			files, err := s.factory.NewSecondary(unit, unit.Content, req, cancel).RunPhase(ctx)
			if err != nil {
				return result, fmt.Errorf("secondary phase of %s failed: %w", unit.Name, err)
			}
			result.Files = append(result.Files, files...)
		}
	}

	result.Status = UnitStatus(result.Files, cancel.IsCancelled())
	log.Infow("Package optimized", "status", result.Status.String(), "files", len(result.Files))
	return result, nil
}
