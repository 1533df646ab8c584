// Package validator provides configuration validation
package validator

import (
	"fmt"
	"strings"

	"rawbridge-core/internal/config/schema"
)

// MaxLineLimit is the upper bound of a single gets request
const MaxLineLimit = 65535

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string // Field path (e.g., "stream.buffer_size")
	Value   string // Current value
	Message string // Error message
	Hint    string // Fix suggestion
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult contains all validation errors
type ValidationResult struct {
	Errors []ValidationError
}

// IsValid returns true if there are no validation errors
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a formatted error message
func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n\n")

	for i, err := range r.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Field))
		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     Current value: %s\n", err.Value))
		}
		sb.WriteString(fmt.Sprintf("     Error: %s\n", err.Message))
		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     Hint: %s\n", err.Hint))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// AddError adds a validation error
func (r *ValidationResult) AddError(field, value, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Hint:    hint,
	})
}

// Validator validates configuration
type Validator struct {
	rules []ValidationRule
}

// ValidationRule is a function that validates configuration
type ValidationRule func(cfg *schema.Root, result *ValidationResult)

// NewValidator creates a new Validator with default rules
func NewValidator() *Validator {
	v := &Validator{
		rules: make([]ValidationRule, 0),
	}

	v.AddRule(validateLog)
	v.AddRule(validateStream)
	v.AddRule(validateEngine)
	v.AddRule(validateMetrics)
	v.AddRule(validateBatch)

	return v
}

// AddRule adds a validation rule
func (v *Validator) AddRule(rule ValidationRule) {
	v.rules = append(v.rules, rule)
}

// Validate validates the configuration
func (v *Validator) Validate(cfg *schema.Root) *ValidationResult {
	result := &ValidationResult{
		Errors: make([]ValidationError, 0),
	}

	for _, rule := range v.rules {
		rule(cfg, result)
	}

	return result
}

// ValidateConfig is a convenience function that creates a validator and validates
func ValidateConfig(cfg *schema.Root) *ValidationResult {
	return NewValidator().Validate(cfg)
}

// ============================================================================
// Validation Rules
// ============================================================================

func validateLog(cfg *schema.Root, result *ValidationResult) {
	validateOneOf("log.level", cfg.Log.Level, result,
		schema.LogLevelDebug, schema.LogLevelInfo, schema.LogLevelWarn, schema.LogLevelError)
	validateOneOf("log.format", cfg.Log.Format, result,
		schema.LogFormatText, schema.LogFormatJSON)
	validateOneOf("log.output", cfg.Log.Output, result,
		schema.LogOutputStdout, schema.LogOutputStderr, schema.LogOutputFile, schema.LogOutputNone)

	if cfg.Log.Output == schema.LogOutputFile && cfg.Log.File == "" {
		result.AddError("log.file", "",
			"log file path is required when output is file",
			"Set log.file or change log.output")
	}
}

func validateStream(cfg *schema.Root, result *ValidationResult) {
	validatePositive("stream.buffer_size", cfg.Stream.BufferSize, result)
	validatePositive("stream.page_size", cfg.Stream.PageSize, result)
	validatePositive("stream.page_cache_pages", cfg.Stream.PageCachePages, result)

	if cfg.Stream.MaxLine < 1 || cfg.Stream.MaxLine > MaxLineLimit {
		result.AddError("stream.max_line", fmt.Sprintf("%d", cfg.Stream.MaxLine),
			fmt.Sprintf("max line must be in range [1, %d]", MaxLineLimit),
			"Use 65535 unless a smaller clamp is needed")
	}
}

func validateEngine(cfg *schema.Root, result *ValidationResult) {
	if cfg.Engine.OutputBPS != 8 && cfg.Engine.OutputBPS != 16 {
		result.AddError("engine.output_bps", fmt.Sprintf("%d", cfg.Engine.OutputBPS),
			"output bits per sample must be 8 or 16", "")
	}

	switch cfg.Engine.UserFlip {
	case -1, 0, 3, 5, 6:
	default:
		result.AddError("engine.user_flip", fmt.Sprintf("%d", cfg.Engine.UserFlip),
			"invalid flip value",
			"Valid values: -1 (from file), 0, 3 (180), 5 (90 CCW), 6 (90 CW)")
	}
}

func validateMetrics(cfg *schema.Root, result *ValidationResult) {
	if !cfg.Metrics.Enabled {
		return
	}
	validateOneOf("metrics.backend", cfg.Metrics.Backend, result,
		schema.MetricsBackendMemory, schema.MetricsBackendPrometheus)

	if cfg.Metrics.Listen != "" && cfg.Metrics.Backend != schema.MetricsBackendPrometheus {
		result.AddError("metrics.listen", cfg.Metrics.Listen,
			"listen address requires the prometheus backend",
			"Set metrics.backend to prometheus")
	}
}

func validateBatch(cfg *schema.Root, result *ValidationResult) {
	validatePositive("batch.workers", cfg.Batch.Workers, result)
}

// ============================================================================
// Helper Functions
// ============================================================================

func validatePositive(field string, value int, result *ValidationResult) {
	if value <= 0 {
		result.AddError(field, fmt.Sprintf("%d", value),
			"value must be positive", "")
	}
}

func validateOneOf(field, value string, result *ValidationResult, allowed ...string) {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return
		}
	}
	result.AddError(field, value,
		"invalid value",
		fmt.Sprintf("Valid values: %s", strings.Join(allowed, ", ")))
}
