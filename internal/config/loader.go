package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/dbsmedya/batchopt/internal/types"
)

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	substituteEnvVars(cfg)

	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) {
	cfg.Registry.Host = expandEnvVar(cfg.Registry.Host)
	cfg.Registry.User = expandEnvVar(cfg.Registry.User)
	cfg.Registry.Password = expandEnvVar(cfg.Registry.Password)
	cfg.Registry.Database = expandEnvVar(cfg.Registry.Database)

	cfg.Guard.WorkSource = expandEnvVar(cfg.Guard.WorkSource)

	for i, arg := range cfg.Optimizer.Command {
		cfg.Optimizer.Command[i] = expandEnvVar(arg)
	}
	for i, arg := range cfg.Optimizer.SecondaryCommand {
		cfg.Optimizer.SecondaryCommand[i] = expandEnvVar(arg)
	}

	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// GetBatch retrieves a specific batch configuration by name.
func (c *Config) GetBatch(name string) (*BatchConfig, error) {
	batch, exists := c.Batches[name]
	if !exists {
		return nil, fmt.Errorf("batch %q not found in configuration", name)
	}
	return &batch, nil
}

// ListBatches returns all batch names defined in the configuration.
func (c *Config) ListBatches() []string {
	batches := make([]string, 0, len(c.Batches))
	for name := range c.Batches {
		batches = append(batches, name)
	}
	return batches
}

// ApplyOverrides applies CLI flag overrides to the global configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(logLevel, logFormat string, workers int, localGuard bool) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if workers > 0 {
		c.Scheduler.Workers = workers
	}
	if localGuard {
		c.Guard.Local = true
	}
}

// ApplyBatchOverrides returns a copy of the named batch with CLI values applied.
// An empty name with explicit packages describes an ad-hoc batch.
func (c *Config) ApplyBatchOverrides(name string, packages []string, reason, compilerFilter string) (*BatchConfig, error) {
	var batch BatchConfig
	if name != "" {
		b, err := c.GetBatch(name)
		if err != nil {
			return nil, err
		}
		batch = *b
	} else {
		if len(packages) == 0 {
			return nil, fmt.Errorf("either a batch name or a package list is required")
		}
		batch.Requested = types.Scope{IncludeSecondary: true, IncludeDependencies: true}
		batch.Dependencies = types.Scope{IncludeDependencies: true}
	}

	if len(packages) > 0 {
		batch.Packages = packages
	}
	if reason != "" {
		batch.Reason = reason
	}
	if compilerFilter != "" {
		batch.CompilerFilter = compilerFilter
	}
	return &batch, nil
}
