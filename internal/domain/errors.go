package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while handling change records.
var (
	// ErrMissingRecordID indicates that a change record has no identifier.
	ErrMissingRecordID = errors.New("change record id is required")

	// ErrUnknownSignalSource indicates a signal source outside the known set.
	ErrUnknownSignalSource = errors.New("unknown signal source")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// FailureKind is the error taxonomy for classification failures. The
// orchestrator routes retries on these values, so they are data, not Go
// errors: they persist on results and batch-item outcomes.
type FailureKind string

const (
	// FailureNone marks a successful classification.
	FailureNone FailureKind = ""

	// FailureSchemaValidation marks a response that violated the
	// structured-output contract.
	FailureSchemaValidation FailureKind = "schema_validation_failed"

	// FailureTokenLimit marks a response truncated before a complete
	// structured answer was produced.
	FailureTokenLimit FailureKind = "token_limit_exceeded"

	// FailureTransientProvider marks a retryable provider failure such as
	// a rate limit, timeout, or 5xx.
	FailureTransientProvider FailureKind = "transient_provider_error"

	// FailureFatalProvider marks a non-retryable provider failure such as
	// an authentication error.
	FailureFatalProvider FailureKind = "fatal_provider_error"

	// FailureBatchTimeout marks items whose batch exceeded the maximum
	// poll wait. It routes like a transient failure.
	FailureBatchTimeout FailureKind = "batch_timeout_exceeded"
)

// Retryable reports whether the same submission mode may be retried.
func (k FailureKind) Retryable() bool {
	return k == FailureTransientProvider || k == FailureBatchTimeout
}

// Escalates reports whether the failure routes to the direct-mode fallback
// with the escalated configuration instead of being retried in batch mode.
func (k FailureKind) Escalates() bool {
	return k == FailureSchemaValidation || k == FailureTokenLimit
}

// Terminal reports whether the failure ends processing for the record.
func (k FailureKind) Terminal() bool { return k == FailureFatalProvider }

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
