package ports

import (
	"errors"
	"fmt"
	"time"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrTokenLimitExceeded indicates that the LLM token limit has been
	// exceeded.
	ErrTokenLimitExceeded = errors.New("token limit exceeded")

	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrBatchNotFound indicates that the provider has no batch for the
	// given handle.
	ErrBatchNotFound = errors.New("batch not found")

	// ErrBatchNotDone indicates that batch results were requested before
	// processing ended.
	ErrBatchNotDone = errors.New("batch not done")
)

// LLMError represents an error from an LLM provider.
// It includes details about the model, operation, and any rate limit
// information.
type LLMError struct {
	// Model is the identifier of the LLM model that generated the error.
	Model string

	// Operation is the name of the operation that failed.
	Operation string

	// Err is the underlying error that occurred.
	Err error

	// TokensUsed is the number of tokens consumed before the error occurred.
	TokensUsed int

	// RetryAfter indicates how long to wait before retrying, if applicable.
	RetryAfter *time.Duration
}

// Error implements the error interface for LLMError.
func (e *LLMError) Error() string {
	msg := fmt.Sprintf("LLM error: model=%s, operation=%s, err=%v", e.Model, e.Operation, e.Err)
	if e.TokensUsed > 0 {
		msg += fmt.Sprintf(", tokens_used=%d", e.TokensUsed)
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is temporary and the operation
// can be retried.
func (e *LLMError) IsRetryable() bool {
	// Only network/service-level errors are retryable; logic errors are not
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout)
}

// NewLLMError creates a new LLMError with the given details.
func NewLLMError(model, operation string, err error) *LLMError {
	return &LLMError{
		Model:     model,
		Operation: operation,
		Err:       err,
	}
}

// ClassificationError is a classification failure normalized into the
// failure taxonomy. The orchestrator routes on Kind alone: transient kinds
// are retried in the same mode, escalating kinds fall back to direct mode,
// fatal kinds terminate the record.
type ClassificationError struct {
	// Kind is the taxonomy bucket the failure maps to.
	Kind domain.FailureKind

	// RecordID identifies the change record whose classification failed.
	RecordID string

	// Provider names the backend that produced the failure.
	Provider string

	// Err is the underlying error that occurred.
	Err error
}

// Error implements the error interface for ClassificationError.
func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification error: kind=%s, record=%s, provider=%s, err=%v",
		e.Kind, e.RecordID, e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ClassificationError) Unwrap() error { return e.Err }

// Retryable reports whether the failure may succeed on a same-mode retry.
func (e *ClassificationError) Retryable() bool { return e.Kind.Retryable() }

// NewClassificationError creates a new ClassificationError with the given
// details.
func NewClassificationError(kind domain.FailureKind, recordID, provider string, err error) *ClassificationError {
	return &ClassificationError{
		Kind:     kind,
		RecordID: recordID,
		Provider: provider,
		Err:      err,
	}
}

// AsClassificationError extracts a ClassificationError from an error chain.
func AsClassificationError(err error) (*ClassificationError, bool) {
	var cerr *ClassificationError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}

// StorageError represents an error from result or job store operations.
// It includes the key and operation that failed.
type StorageError struct {
	// Key is the record or job identifier involved in the failed operation.
	Key string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error that caused the store operation to fail.
	Err error
}

// Error implements the error interface for StorageError.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: operation=%s, key=%s, err=%v", e.Operation, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError creates a new StorageError with the given details.
func NewStorageError(key, operation string, err error) *StorageError {
	return &StorageError{
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}
