package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid. Errors of
	// this class fail fast at request validation, before network activity.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that an external source rate limited us
	// after the retry policy was exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that an external source is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrNoResults indicates that a search produced zero papers after
	// exhausting every source and fallback. Callers must treat this as an
	// explicit outcome, distinct from partial failure.
	ErrNoResults = errors.New("no results")

	// ErrSourceDisabled indicates that a requested source is not enabled.
	ErrSourceDisabled = errors.New("source disabled")
)

// ValidationError represents a configuration error for a specific field.
// This is the only error class that aborts a search before any fan-out.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RateLimitError provides details about a rate limit error (HTTP 429).
type RateLimitError struct {
	Source     SourceType
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ExternalAPIError provides details about a non-2xx response from a source.
// Per-source failures of this class never abort a search; the orchestrator
// demotes them to response metadata.
type ExternalAPIError struct {
	Source     SourceType
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// ParseError indicates a malformed or unexpected vendor response body.
// Treated like a network failure: recorded, never raised to the caller.
type ParseError struct {
	Source SourceType
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s response parse error: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source SourceType, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		Source:     source,
		RetryAfter: retryAfter,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source SourceType, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// NewParseError creates a new ParseError.
func NewParseError(source SourceType, cause error) *ParseError {
	return &ParseError{
		Source: source,
		Cause:  cause,
	}
}
