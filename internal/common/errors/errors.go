// Package errors provides standardized error handling for the search engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSourceTimeout         ErrorCode = "SOURCE_TIMEOUT"
	ErrCodeSourceRateLimited     ErrorCode = "SOURCE_RATE_LIMITED"
	ErrCodeSourceUnavailable     ErrorCode = "SOURCE_UNAVAILABLE"
	ErrCodeSourceInvalidResponse ErrorCode = "SOURCE_INVALID_RESPONSE"

	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeCacheCorrupted   ErrorCode = "CACHE_CORRUPTED"

	ErrCodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"

	ErrCodeAgentFailed  ErrorCode = "AGENT_FAILED"
	ErrCodeAgentTimeout ErrorCode = "AGENT_TIMEOUT"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// SourceKind distinguishes the recoverable failure modes of a source fetch.
type SourceKind string

const (
	SourceTimeout         SourceKind = "timeout"
	SourceRateLimited     SourceKind = "rate_limited"
	SourceUnavailable     SourceKind = "unavailable"
	SourceInvalidResponse SourceKind = "invalid_response"
)

// SourceError is a failure of one source adapter. Always recoverable by the
// orchestrator: the source is dropped and the request continues.
type SourceError struct {
	Source string
	Kind   SourceKind
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("source %s: %s", e.Source, e.Kind)
}

func (e *SourceError) Unwrap() error { return e.Err }

// NewSourceError wraps an adapter failure with its source name and kind.
func NewSourceError(source string, kind SourceKind, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Err: err}
}

// AsSourceError extracts a SourceError from an error chain.
func AsSourceError(err error) (*SourceError, bool) {
	var se *SourceError
	ok := errors.As(err, &se)
	return se, ok
}

// QuotaExceededError is returned when one identity has used its daily quota.
type QuotaExceededError struct {
	Identity  string
	Remaining int
	ResetAt   time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s, resets at %s", e.Identity, e.ResetAt.Format(time.RFC3339))
}

// CapacityExceededError is returned when the global daily limit is reached,
// so a client can tell throttling apart from saturation.
type CapacityExceededError struct {
	ResetAt time.Time
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("global capacity exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// IsQuotaExceeded reports whether err is a per-identity quota rejection.
func IsQuotaExceeded(err error) bool {
	var q *QuotaExceededError
	return errors.As(err, &q)
}

// IsCapacityExceeded reports whether err is a global capacity rejection.
func IsCapacityExceeded(err error) bool {
	var c *CapacityExceededError
	return errors.As(err, &c)
}

// NewClassificationFailedError creates a recoverable classification error.
// The caller degrades to the default broad intent.
func NewClassificationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Query could not be classified",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a fail-open cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Cache store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheCorruptedError creates a fail-open cache decode error.
func NewCacheCorruptedError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheCorrupted,
		Message:   "Cache entry could not be decoded",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentFailedError creates a recoverable agent error; the router moves to
// the next entry in the fallback chain.
func NewAgentFailedError(agent string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAgentFailed,
		Message:   "Response agent failed",
		Details:   fmt.Sprintf("agent: %s, error: %s", agent, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentTimeoutError creates a recoverable agent timeout.
func NewAgentTimeoutError(agent string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAgentTimeout,
		Message:   "Response agent timed out",
		Details:   fmt.Sprintf("agent: %s", agent),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates the only fatal error of the engine: a
// structurally invalid request at the entry point.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request is structurally invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
