package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/batchopt/internal/sqlutil"
	"github.com/dbsmedya/batchopt/internal/types"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateDatabase("registry", &c.Registry)...)
	errors = append(errors, c.validateGuard()...)
	errors = append(errors, c.validateOptimizer()...)
	errors = append(errors, c.validateScheduler()...)

	if len(c.Batches) == 0 {
		errors = append(errors, ValidationError{
			Field:   "batches",
			Message: "at least one batch must be defined",
		})
	}
	for name, batch := range c.Batches {
		errors = append(errors, ValidateBatch(fmt.Sprintf("batches.%s", name), &batch)...)
	}

	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	if db.TablePrefix != "" && !sqlutil.IsValidIdentifier(db.TablePrefix) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".table_prefix",
			Message: "table_prefix must contain only alphanumeric characters and underscores",
		})
	}

	return errors
}

func (c *Config) validateGuard() ValidationErrors {
	var errors ValidationErrors

	if !c.Guard.Local && c.Guard.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "guard.name",
			Message: "name is required unless guard.local is set",
		})
	}

	// MySQL limits user-level lock names to 64 characters
	if len(c.Guard.Name) > 64 {
		errors = append(errors, ValidationError{
			Field:   "guard.name",
			Message: "name cannot exceed 64 characters",
		})
	}

	if c.Guard.Timeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "guard.timeout",
			Message: "timeout cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateOptimizer() ValidationErrors {
	var errors ValidationErrors

	if len(c.Optimizer.Command) == 0 || c.Optimizer.Command[0] == "" {
		errors = append(errors, ValidationError{
			Field:   "optimizer.command",
			Message: "command is required",
		})
	}

	if len(c.Optimizer.ABIs) == 0 {
		errors = append(errors, ValidationError{
			Field:   "optimizer.abis",
			Message: "at least one ABI is required",
		})
	}

	seen := make(map[string]bool)
	for i, abi := range c.Optimizer.ABIs {
		if abi == "" || seen[abi] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("optimizer.abis[%d]", i),
				Message: "ABIs must be non-empty and unique",
			})
		}
		seen[abi] = true
	}

	return errors
}

func (c *Config) validateScheduler() ValidationErrors {
	var errors ValidationErrors

	if c.Scheduler.Workers < 0 {
		errors = append(errors, ValidationError{
			Field:   "scheduler.workers",
			Message: "workers cannot be negative",
		})
	}

	return errors
}

// ValidateBatch checks a single batch definition. prefix names the batch in messages.
func ValidateBatch(prefix string, batch *BatchConfig) ValidationErrors {
	var errors ValidationErrors

	if len(batch.Packages) == 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".packages",
			Message: "at least one package is required",
		})
	}

	seen := make(map[string]bool)
	for i, pkg := range batch.Packages {
		if pkg == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.packages[%d]", prefix, i),
				Message: "package name cannot be empty",
			})
		} else if seen[pkg] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.packages[%d]", prefix, i),
				Message: fmt.Sprintf("package %q is listed more than once", pkg),
			})
		}
		seen[pkg] = true
	}

	if err := batch.Request().Validate(); err != nil {
		errors = append(errors, ValidationError{
			Field:   prefix,
			Message: strings.TrimPrefix(err.Error(), types.ErrInvalidInput.Error()+": "),
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
