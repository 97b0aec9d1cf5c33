// Package errors provides centralized error definitions and error handling utilities
// for conflux. It defines sentinel errors, semantic error types, and error
// classification helpers shared by every engine component.
//
// # Error Types
//
// Semantic errors represent the conditions callers are expected to handle:
//   - ValidationError: malformed input, rejected before any mutation
//   - ConcurrencyError: a resolution for the same conflict is already in flight
//   - ProviderError: the suggestion provider was unreachable or returned garbage
//   - NotFoundError: unknown conflict or workflow
//   - TimeoutError: an operation exceeded its bound
//
// # Usage
//
// Creating errors:
//
//	err := errors.NewValidationError("tenant id is required").WithField("tenantId")
//	err := errors.NewConcurrencyError("c-42")
//	err := errors.NewNotFoundError("conflict", "c-42")
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrResolutionInFlight) { ... }
//
//	var vErr *errors.ValidationError
//	if errors.As(err, &vErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Conflict-related sentinel errors
var (
	// ErrConflictNotFound indicates that a conflict could not be found.
	ErrConflictNotFound = New("conflict not found")
	// ErrAlreadyResolved indicates that the conflict has already been resolved.
	ErrAlreadyResolved = New("conflict already resolved")
	// ErrNoDivergence indicates that server and client values are equal.
	ErrNoDivergence = New("values do not diverge")
	// ErrResolutionInFlight indicates that another resolve call holds the conflict.
	ErrResolutionInFlight = New("resolution already in flight")
)

// Workflow-related sentinel errors
var (
	// ErrWorkflowNotFound indicates that a workflow could not be found.
	ErrWorkflowNotFound = New("workflow not found")
	// ErrStepNotFound indicates that a workflow step could not be found.
	ErrStepNotFound = New("workflow step not found")
	// ErrStepOutOfOrder indicates that an earlier step is still pending.
	ErrStepOutOfOrder = New("earlier workflow step not yet satisfied")
	// ErrAwaitingApproval indicates that the conflict's workflow is not complete.
	ErrAwaitingApproval = New("conflict awaiting workflow approval")
	// ErrWorkflowBlocked indicates that a step of the conflict's workflow was rejected.
	ErrWorkflowBlocked = New("conflict workflow blocked by rejection")
)

// Provider-related sentinel errors
var (
	// ErrProviderUnavailable indicates that no suggestion provider is reachable.
	ErrProviderUnavailable = New("suggestion provider unavailable")
	// ErrProviderMalformed indicates that the provider returned an unusable response.
	ErrProviderMalformed = New("suggestion provider response malformed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrNotFound indicates a generic missing resource.
	ErrNotFound = New("not found")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ConfluxError is the base interface for all conflux errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ConfluxError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("entity id is required")
//	err = err.WithField("entityId").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// ConcurrencyError reports that a resolution for the conflict is already in
// flight. It is always retryable.
//
// Example:
//
//	err := errors.NewConcurrencyError("c-42")
//	fmt.Println(err) // "concurrency rejection [conflict=c-42]: resolution already in flight"
type ConcurrencyError struct {
	baseError
	ConflictID string
}

// NewConcurrencyError creates a new ConcurrencyError for the conflict id.
func NewConcurrencyError(conflictID string) *ConcurrencyError {
	return &ConcurrencyError{
		baseError: baseError{
			message:    ErrResolutionInFlight.Error(),
			severity:   SeverityInfo,
			retryable:  true,
			userFacing: true,
		},
		ConflictID: conflictID,
	}
}

// WithCause adds a cause to the error.
func (e *ConcurrencyError) WithCause(cause error) *ConcurrencyError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ConcurrencyError) Error() string {
	base := fmt.Sprintf("concurrency rejection [conflict=%s]: %s", e.ConflictID, e.message)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *ConcurrencyError) Is(target error) bool {
	if _, ok := target.(*ConcurrencyError); ok {
		return true
	}
	if errors.Is(target, ErrResolutionInFlight) {
		return true
	}
	return e.baseError.Is(target)
}

// ProviderError represents a suggestion provider failure. Callers inside the
// engine absorb it and fall back; it is only exposed for logging.
type ProviderError struct {
	baseError
	Provider string
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, message string, cause error) *ProviderError {
	return &ProviderError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
		Provider: provider,
	}
}

// Error returns the formatted error message.
func (e *ProviderError) Error() string {
	prefix := "provider error"
	if e.Provider != "" {
		prefix = fmt.Sprintf("provider error [provider=%s]", e.Provider)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ProviderError) Is(target error) bool {
	if _, ok := target.(*ProviderError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("conflict", "c-42")
//	fmt.Println(err) // "conflict 'c-42' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if errors.Is(target, ErrNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("suggestion request", 2*time.Second)
//	fmt.Println(err) // "timeout error: suggestion request (timeout: 2s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing ConfluxError with IsRetryable() returning true
//   - Errors wrapping ErrTimeout or ErrResolutionInFlight
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var cErr ConfluxError
	if As(err, &cErr) {
		return cErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrResolutionInFlight)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var cErr ConfluxError
	if As(err, &cErr) {
		return cErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement ConfluxError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var cErr ConfluxError
	if As(err, &cErr) {
		return cErr.Severity()
	}

	return SeverityError
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return As(err, &v)
}

// IsConcurrency reports whether err is (or wraps) a ConcurrencyError.
func IsConcurrency(err error) bool {
	var c *ConcurrencyError
	return As(err, &c)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike building a new error, this preserves the ConfluxError chain.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to save conflicts")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load tenant %s", tenantID)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
