// Package optimizer runs an external command per file and ABI to produce
// optimized artifacts.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dbsmedya/batchopt/internal/config"
	"github.com/dbsmedya/batchopt/internal/logger"
	"github.com/dbsmedya/batchopt/internal/scheduler"
	"github.com/dbsmedya/batchopt/internal/types"
)

// Phase names used in logs.
const (
	PhasePrimary   = "primary"
	PhaseSecondary = "secondary"
)

// Placeholders substituted in command arguments.
const (
	PlaceholderPath   = "{path}"
	PlaceholderABI    = "{abi}"
	PlaceholderFilter = "{filter}"
	PlaceholderReason = "{reason}"
)

// Factory creates command-backed optimizers. It implements scheduler.OptimizerFactory.
type Factory struct {
	command          []string
	secondaryCommand []string
	abis             []string
	logger           *logger.Logger
}

// NewFactory creates a Factory from configuration.
func NewFactory(cfg config.OptimizerConfig, log *logger.Logger) (*Factory, error) {
	if len(cfg.Command) == 0 || cfg.Command[0] == "" {
		return nil, fmt.Errorf("optimizer command is empty")
	}
	if len(cfg.ABIs) == 0 {
		return nil, fmt.Errorf("no ABIs configured")
	}
	if log == nil {
		log = logger.NewNop()
	}

	secondary := cfg.SecondaryCommand
	if len(secondary) == 0 {
		secondary = cfg.Command
	}
	return &Factory{
		command:          cfg.Command,
		secondaryCommand: secondary,
		abis:             cfg.ABIs,
		logger:           log,
	}, nil
}

// NewPrimary optimizes the package's components that carry code.
func (f *Factory) NewPrimary(unit *types.UnitDescriptor, content *types.ContentDescriptor, req *types.Request,
	cancel *scheduler.Signal) scheduler.UnitOptimizer {
	var files []string
	if content != nil {
		for _, c := range content.Components {
			if c.HasCode {
				files = append(files, c.Path)
			}
		}
	}
	return f.newPhase(PhasePrimary, f.command, unit, files, req, cancel)
}

// NewSecondary optimizes the package's secondary files.
func (f *Factory) NewSecondary(unit *types.UnitDescriptor, content *types.ContentDescriptor, req *types.Request,
	cancel *scheduler.Signal) scheduler.UnitOptimizer {
	var files []string
	if content != nil {
		files = content.SecondaryFiles
	}
	return f.newPhase(PhaseSecondary, f.secondaryCommand, unit, files, req, cancel)
}

func (f *Factory) newPhase(name string, command []string, unit *types.UnitDescriptor, files []string,
	req *types.Request, cancel *scheduler.Signal) *Phase {
	return &Phase{
		name:    name,
		command: command,
		files:   files,
		abis:    f.abis,
		req:     req,
		cancel:  cancel,
		logger:  f.logger.WithFields(map[string]interface{}{"package": unit.Name}).WithPhase(name),
	}
}

// Phase runs the command for every file and ABI of one phase.
type Phase struct {
	name    string
	command []string
	files   []string
	abis    []string
	req     *types.Request
	cancel  *scheduler.Signal
	logger  *logger.Logger
}

// RunPhase implements scheduler.UnitOptimizer.
//
// Files are processed in order, each for every ABI with the first ABI
// marked primary. Cancellation is checked before each invocation;
// once raised, the remaining invocations are reported Cancelled. A file
// that does not exist is Skipped. A command that exits non-zero is Failed.
// An error is returned only when the command cannot be started at all.
func (p *Phase) RunPhase(ctx context.Context) ([]types.FileOutcome, error) {
	outcomes := make([]types.FileOutcome, 0, len(p.files)*len(p.abis))

	for _, path := range p.files {
		for i, abi := range p.abis {
			outcome := types.FileOutcome{
				Path:           path,
				PrimaryABI:     i == 0,
				ABI:            abi,
				CompilerFilter: p.req.CompilerFilter,
			}

			if p.cancel != nil && p.cancel.IsCancelled() {
				outcome.Status = types.StatusCancelled
				outcomes = append(outcomes, outcome)
				continue
			}

			if _, err := os.Stat(path); err != nil {
				p.logger.Debugw("File not present, skipping", "path", path, "error", err)
				outcome.Status = types.StatusSkipped
				outcomes = append(outcomes, outcome)
				continue
			}

			if err := p.invoke(ctx, &outcome); err != nil {
				return nil, err
			}
			outcomes = append(outcomes, outcome)
		}
	}

	return outcomes, nil
}

// invoke runs the command for one file and ABI and fills in status and timing.
func (p *Phase) invoke(ctx context.Context, outcome *types.FileOutcome) error {
	args := expandArgs(p.command, outcome.Path, outcome.ABI, p.req)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	start := time.Now()
	err := cmd.Run()
	outcome.WallTime = time.Since(start)
	if cmd.ProcessState != nil {
		outcome.CPUTime = cmd.ProcessState.UserTime() + cmd.ProcessState.SystemTime()
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		outcome.Status = types.StatusPerformed
	case ctx.Err() != nil:
		outcome.Status = types.StatusCancelled
	case errors.As(err, &exitErr):
		outcome.Status = types.StatusFailed
		p.logger.Warnw("Optimizer command failed",
			"path", outcome.Path,
			"abi", outcome.ABI,
			"exit_code", exitErr.ExitCode(),
		)
	default:
		return fmt.Errorf("failed to run optimizer %s: %w", args[0], err)
	}

	p.logger.Debugw("Optimized file",
		"path", outcome.Path,
		"abi", outcome.ABI,
		"status", outcome.Status.String(),
		"wall_time", outcome.WallTime,
		"cpu_time", outcome.CPUTime,
	)
	return nil
}

func expandArgs(command []string, path, abi string, req *types.Request) []string {
	r := strings.NewReplacer(
		PlaceholderPath, path,
		PlaceholderABI, abi,
		PlaceholderFilter, req.CompilerFilter,
		PlaceholderReason, req.Reason,
	)
	args := make([]string, len(command))
	for i, arg := range command {
		args[i] = r.Replace(arg)
	}
	return args
}
