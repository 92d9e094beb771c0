package types

import "time"

// FileOutcome is the result of optimizing one file for one ABI in one phase.
type FileOutcome struct {
	Path           string        `yaml:"path"`
	PrimaryABI     bool          `yaml:"primary_abi"`
	ABI            string        `yaml:"abi"`
	CompilerFilter string        `yaml:"compiler_filter"`
	Status         Status        `yaml:"status"`
	WallTime       time.Duration `yaml:"wall_time"`
	CPUTime        time.Duration `yaml:"cpu_time"`
}

// UnitResult is the outcome for one package. Files holds the outcomes of
// the primary phase followed by those of the secondary phase.
type UnitResult struct {
	Name   string        `yaml:"name"`
	Status Status        `yaml:"status"`
	Files  []FileOutcome `yaml:"files,omitempty"`
}

// BatchResult is the outcome of one run. Units lists requested packages
// first, in request order, then dependency packages in discovery order.
type BatchResult struct {
	CompilerFilter string       `yaml:"compiler_filter"`
	Reason         string       `yaml:"reason"`
	Status         Status       `yaml:"status"`
	Units          []UnitResult `yaml:"units"`
	StartedAt      time.Time    `yaml:"started_at"`
	CompletedAt    time.Time    `yaml:"completed_at"`
}

// Duration returns the wall time the run took.
func (r *BatchResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Unit returns the result for the named package, or nil if it was not part of the run.
func (r *BatchResult) Unit(name string) *UnitResult {
	for i := range r.Units {
		if r.Units[i].Name == name {
			return &r.Units[i]
		}
	}
	return nil
}

// UnitNames returns the package names in result order.
func (r *BatchResult) UnitNames() []string {
	names := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		names = append(names, u.Name)
	}
	return names
}
