package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kcenon/cleanupengine/internal/core"
)

// ValidationError contains details about a single validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// ValidLogLevels are the allowed log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ValidLogFormats are the allowed log formats.
var ValidLogFormats = []string{"json", "text"}

// Validate performs comprehensive validation of the configuration.
// It returns all validation errors found (not just the first).
// Returns nil if the configuration is valid.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, ValidateScan(cfg.Scan)...)
	errs = append(errs, ValidatePolicy(cfg.Policy)...)
	errs = append(errs, ValidateExecution(cfg.Execution)...)
	errs = append(errs, ValidateLogging(cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateScan checks scan.* constraints.
func ValidateScan(s ScanConfig) []ValidationError {
	var errs []ValidationError

	if s.MaxDepth < 0 {
		errs = append(errs, ValidationError{Field: "scan.max_depth", Message: "must be >= 0"})
	}
	if s.MinSizeBytes < 0 {
		errs = append(errs, ValidationError{Field: "scan.min_size_bytes", Message: "must be >= 0"})
	}
	if s.TopN < 0 {
		errs = append(errs, ValidationError{Field: "scan.top_n", Message: "must be >= 0"})
	}

	return errs
}

// ValidatePolicy checks policy constraints, including that default_level
// parses as a valid core.CleanupLevel when set.
func ValidatePolicy(pol PolicyConfig) []ValidationError {
	var errs []ValidationError

	if pol.DefaultLevel != "" {
		if _, err := core.ParseCleanupLevel(pol.DefaultLevel); err != nil {
			errs = append(errs, ValidationError{
				Field:   "policy.default_level",
				Message: err.Error(),
			})
		}
	}

	for i, g := range pol.ExclusionGlobs {
		if g == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("policy.exclusion_globs[%d]", i),
				Message: "glob must not be empty",
			})
		}
	}

	return errs
}

// ValidateExecution checks audit store retention and timeout constraints.
func ValidateExecution(exec ExecutionConfig) []ValidationError {
	var errs []ValidationError

	if exec.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "execution.retention_days",
			Message: "must be >= 0",
		})
	}
	if exec.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "execution.timeout",
			Message: "must be >= 0",
		})
	}

	return errs
}

// ValidateLogging checks logging configuration.
func ValidateLogging(log LoggingConfig) []ValidationError {
	var errs []ValidationError

	if log.Level != "" && !contains(ValidLogLevels, log.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", ValidLogLevels, log.Level),
		})
	}

	if log.Format != "" && !contains(ValidLogFormats, log.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be one of %v, got %q", ValidLogFormats, log.Format),
		})
	}

	if log.Loki != nil {
		errs = append(errs, ValidateLoki(*log.Loki)...)
	}

	return errs
}

// ValidateLoki checks Loki configuration.
func ValidateLoki(loki LokiConfig) []ValidationError {
	var errs []ValidationError

	if loki.Enabled {
		if loki.URL == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.loki.url",
				Message: "URL is required when Loki is enabled",
			})
		} else {
			u, err := url.Parse(loki.URL)
			if err != nil {
				errs = append(errs, ValidationError{
					Field:   "logging.loki.url",
					Message: fmt.Sprintf("invalid URL: %v", err),
				})
			} else if u.Scheme != "http" && u.Scheme != "https" {
				errs = append(errs, ValidationError{
					Field:   "logging.loki.url",
					Message: fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme),
				})
			}
		}
	}

	if loki.BatchSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.loki.batch_size",
			Message: "must be >= 0",
		})
	}
	if loki.BatchWait < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.loki.batch_wait",
			Message: "must be >= 0",
		})
	}

	return errs
}

// contains checks if a string slice contains a value.
func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
