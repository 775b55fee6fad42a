package service

import (
	"errors"
	"fmt"
)

var (
	ErrServiceUnavailable = errors.New("analysis service unavailable")
	ErrMalformedResult    = errors.New("malformed analysis result")
	ErrAnalysisFailed     = errors.New("contract analysis failed")
	ErrEmptyContract      = errors.New("contract text is empty")
)

// ConfigurationError represents missing or invalid client configuration.
// It is raised before any network attempt and never retried.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Message)
}

// TransportError represents a network or HTTP failure on one endpoint attempt
type TransportError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("endpoint %q transport error (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("endpoint %q transport error: %s", e.Endpoint, e.Message)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ShapeError represents a response envelope without the expected candidate content
type ShapeError struct {
	Endpoint string
	Message  string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("endpoint %q returned unexpected response shape: %s", e.Endpoint, e.Message)
}

// ParseError represents model output that does not contain a valid JSON object
type ParseError struct {
	Endpoint    string
	RawResponse string
	Cause       error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("endpoint %q response parse error: %v", e.Endpoint, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ServiceUnavailableError is returned when every endpoint variant failed.
// LastErr carries the last observed per-endpoint error.
type ServiceUnavailableError struct {
	Attempts int
	LastErr  error
}

// Error implements the error interface.
func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s after %d endpoint attempts: %v", ErrServiceUnavailable, e.Attempts, e.LastErr)
}

// Is matches ErrServiceUnavailable.
func (e *ServiceUnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// Unwrap returns the last endpoint error.
func (e *ServiceUnavailableError) Unwrap() error {
	return e.LastErr
}

// MalformedResultError is returned when parsed output does not satisfy the result schema
type MalformedResultError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("%s: field %q %s", ErrMalformedResult, e.Field, e.Message)
}

// Is matches ErrMalformedResult.
func (e *MalformedResultError) Is(target error) bool {
	return target == ErrMalformedResult
}

// AnalysisFailedError is the only analysis error meant for end users:
// both the remote path and the keyword fallback failed.
type AnalysisFailedError struct {
	RemoteErr   error
	FallbackErr error
}

// Error implements the error interface.
func (e *AnalysisFailedError) Error() string {
	return fmt.Sprintf("%s: remote: %v; fallback: %v", ErrAnalysisFailed, e.RemoteErr, e.FallbackErr)
}

// Is matches ErrAnalysisFailed.
func (e *AnalysisFailedError) Is(target error) bool {
	return target == ErrAnalysisFailed
}

// Unwrap returns both underlying errors.
func (e *AnalysisFailedError) Unwrap() []error {
	return []error{e.RemoteErr, e.FallbackErr}
}

// UserMessage is the text shown to the tenant when analysis could not be completed
func (e *AnalysisFailedError) UserMessage() string {
	return "We could not complete the analysis of this contract. Please review it manually or ask a tenancy advisor to look it over."
}
