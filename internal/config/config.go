// Package config provides configuration structures and loading for batchopt.
package config

import (
	"time"

	"github.com/dbsmedya/batchopt/internal/types"
)

// Config represents the complete application configuration.
type Config struct {
	Registry    DatabaseConfig         `yaml:"registry" mapstructure:"registry"`
	Guard       GuardConfig            `yaml:"guard" mapstructure:"guard"`
	Hibernation HibernationConfig      `yaml:"hibernation" mapstructure:"hibernation"`
	Optimizer   OptimizerConfig        `yaml:"optimizer" mapstructure:"optimizer"`
	Scheduler   SchedulerConfig        `yaml:"scheduler" mapstructure:"scheduler"`
	Batches     map[string]BatchConfig `yaml:"batches" mapstructure:"batches"`
	Logging     LoggingConfig          `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig represents the MySQL connection to the package registry.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
	TablePrefix        string `yaml:"table_prefix" mapstructure:"table_prefix"`
}

// GuardConfig represents the exclusive guard held for the duration of a run.
type GuardConfig struct {
	Name       string        `yaml:"name" mapstructure:"name"`               // Advisory lock name
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`         // How long to wait for the guard
	WorkSource string        `yaml:"work_source" mapstructure:"work_source"` // Attribution recorded while held
	Local      bool          `yaml:"local" mapstructure:"local"`             // Use an in-process guard instead of MySQL
}

// HibernationConfig represents the hibernation policy switches.
type HibernationConfig struct {
	ArtifactDeletionEnabled bool `yaml:"artifact_deletion_enabled" mapstructure:"artifact_deletion_enabled"`
}

// OptimizerConfig represents the external command run for each file.
// Arguments may contain the placeholders {path}, {abi}, {filter} and {reason}.
type OptimizerConfig struct {
	Command          []string `yaml:"command" mapstructure:"command"`
	SecondaryCommand []string `yaml:"secondary_command" mapstructure:"secondary_command"` // Defaults to Command
	ABIs             []string `yaml:"abis" mapstructure:"abis"`                           // Primary ABI first
}

// SchedulerConfig represents scheduler behavior.
type SchedulerConfig struct {
	PruneIneligibleDependencies bool `yaml:"prune_ineligible_dependencies" mapstructure:"prune_ineligible_dependencies"`
	Workers                     int  `yaml:"workers" mapstructure:"workers"` // 0 runs units on the calling goroutine
}

// BatchConfig represents a named set of packages to optimize together.
type BatchConfig struct {
	Packages       []string    `yaml:"packages" mapstructure:"packages"`
	Reason         string      `yaml:"reason" mapstructure:"reason"`
	CompilerFilter string      `yaml:"compiler_filter" mapstructure:"compiler_filter"`
	Requested      types.Scope `yaml:"requested" mapstructure:"requested"`
	Dependencies   types.Scope `yaml:"dependencies" mapstructure:"dependencies"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Registry: DatabaseConfig{
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Guard: GuardConfig{
			Name:       "batchopt:guard",
			Timeout:    time.Hour,
			WorkSource: "batchopt",
		},
		Hibernation: HibernationConfig{
			ArtifactDeletionEnabled: true,
		},
		Optimizer: OptimizerConfig{
			ABIs: []string{"arm64-v8a"},
		},
		Scheduler: SchedulerConfig{
			PruneIneligibleDependencies: true,
			Workers:                     1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Request builds the run request described by the batch.
func (b *BatchConfig) Request() *types.Request {
	return &types.Request{
		Reason:         b.Reason,
		CompilerFilter: b.CompilerFilter,
		Requested:      b.Requested,
		Dependencies:   b.Dependencies,
	}
}
