package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "resolution.bulk_max_concurrency")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// tenantIDRegex matches tenant ids usable as store keys and file names
var tenantIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// ValidTenantID reports whether id is a usable tenant identifier
func ValidTenantID(id string) bool {
	return tenantIDRegex.MatchString(id)
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStoreDrivers returns the list of valid store drivers
func ValidStoreDrivers() []string {
	return []string{"memory", "file", "sqlite", "postgres"}
}

// ValidLeases returns the list of valid admission guard kinds
func ValidLeases() []string {
	return []string{"memory", "file", "postgres"}
}

// ValidProviders returns the list of valid suggestion providers
func ValidProviders() []string {
	return []string{"none", "heuristic", "http"}
}

// ValidImpacts returns the business impacts a module can map to
func ValidImpacts() []string {
	return []string{"revenue", "compliance", "operations", "reporting", "none"}
}

// ValidMergeRules returns the merge rule names
func ValidMergeRules() []string {
	return []string{"latest_timestamp", "highest_value", "combine_arrays", "fallback_server"}
}

// ValidSinks returns the list of valid notification sinks
func ValidSinks() []string {
	return []string{"none", "log", "bus"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTenant()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateResolution()...)
	errors = append(errors, c.validateSuggest()...)
	errors = append(errors, c.validateDetection()...)
	errors = append(errors, c.validateEscalation()...)
	errors = append(errors, c.validateIntake()...)
	errors = append(errors, c.validateLogging()...)

	if c.Notify.Sink != "" && !slices.Contains(ValidSinks(), c.Notify.Sink) {
		errors = append(errors, oneOf("notify.sink", c.Notify.Sink, ValidSinks()))
	}

	return errors
}

func oneOf(field string, value any, valid []string) ValidationError {
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(valid, ", ")),
	}
}

func (c *Config) validateTenant() []ValidationError {
	if !ValidTenantID(c.Tenant.Default) {
		return []ValidationError{{
			Field:   "tenant.default",
			Value:   c.Tenant.Default,
			Message: "must start with a letter or digit and contain only letters, digits, hyphens, or underscores",
		}}
	}
	return nil
}

func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidStoreDrivers(), c.Store.Driver) {
		errors = append(errors, oneOf("store.driver", c.Store.Driver, ValidStoreDrivers()))
	}
	if c.Store.Driver == "postgres" && c.Store.ResolveDSN() == "" {
		errors = append(errors, ValidationError{
			Field:   "store.dsn",
			Value:   "",
			Message: fmt.Sprintf("required for the postgres driver (or set %s)", c.Store.DSNEnv),
		})
	}
	if (c.Store.Driver == "sqlite" || c.Store.Driver == "postgres") && !tenantIDRegex.MatchString(c.Store.Table) {
		errors = append(errors, ValidationError{
			Field:   "store.table",
			Value:   c.Store.Table,
			Message: "must be a plain SQL identifier",
		})
	}

	return errors
}

func (c *Config) validateResolution() []ValidationError {
	var errors []ValidationError

	if c.Resolution.SuggestionTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "resolution.suggestion_timeout_ms",
			Value:   c.Resolution.SuggestionTimeoutMs,
			Message: "must be positive",
		})
	}

	const maxBulkConcurrency = 256
	if c.Resolution.BulkMaxConcurrency < 1 || c.Resolution.BulkMaxConcurrency > maxBulkConcurrency {
		errors = append(errors, ValidationError{
			Field:   "resolution.bulk_max_concurrency",
			Value:   c.Resolution.BulkMaxConcurrency,
			Message: fmt.Sprintf("must be between 1 and %d", maxBulkConcurrency),
		})
	}

	if !slices.Contains(ValidLeases(), c.Resolution.Lease) {
		errors = append(errors, oneOf("resolution.lease", c.Resolution.Lease, ValidLeases()))
	}
	if c.Resolution.Lease == "postgres" && c.Store.ResolveDSN() == "" {
		errors = append(errors, ValidationError{
			Field:   "resolution.lease",
			Value:   c.Resolution.Lease,
			Message: "postgres lease requires store.dsn",
		})
	}

	for field, rule := range c.Resolution.MergeRules {
		if !slices.Contains(ValidMergeRules(), rule) {
			errors = append(errors, oneOf("resolution.merge_rules."+field, rule, ValidMergeRules()))
		}
	}

	return errors
}

func (c *Config) validateSuggest() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidProviders(), c.Suggest.Provider) {
		errors = append(errors, oneOf("suggest.provider", c.Suggest.Provider, ValidProviders()))
	}
	if c.Suggest.Provider == "http" && c.Suggest.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "suggest.endpoint",
			Value:   "",
			Message: "required when suggest.provider is http",
		})
	}

	return errors
}

func (c *Config) validateDetection() []ValidationError {
	var errors []ValidationError

	if c.Detection.ConcurrentWindowSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "detection.concurrent_window_seconds",
			Value:   c.Detection.ConcurrentWindowSeconds,
			Message: "must be non-negative",
		})
	}
	for module, impact := range c.Detection.ModuleImpact {
		if !slices.Contains(ValidImpacts(), impact) {
			errors = append(errors, oneOf("detection.module_impact."+module, impact, ValidImpacts()))
		}
	}

	return errors
}

func (c *Config) validateEscalation() []ValidationError {
	var errors []ValidationError

	ages := map[string]int{
		"escalation.revenue_max_age_minutes":    c.Escalation.RevenueMaxAgeMinutes,
		"escalation.compliance_max_age_minutes": c.Escalation.ComplianceMaxAgeMinutes,
		"escalation.operations_max_age_minutes": c.Escalation.OperationsMaxAgeMinutes,
		"escalation.reporting_max_age_minutes":  c.Escalation.ReportingMaxAgeMinutes,
		"escalation.sweep_interval_seconds":     c.Escalation.SweepIntervalSeconds,
	}
	keys := make([]string, 0, len(ages))
	for k := range ages {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, field := range keys {
		if ages[field] < 0 {
			errors = append(errors, ValidationError{
				Field:   field,
				Value:   ages[field],
				Message: "must be non-negative",
			})
		}
	}

	return errors
}

func (c *Config) validateIntake() []ValidationError {
	if c.Intake.DebounceMs < 0 {
		return []ValidationError{{
			Field:   "intake.debounce_ms",
			Value:   c.Intake.DebounceMs,
			Message: "must be non-negative",
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, oneOf("logging.level", c.Logging.Level, ValidLogLevels()))
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("must be between 0 and %d", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
