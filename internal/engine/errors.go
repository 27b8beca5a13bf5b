package engine

import (
	"errors"
	"fmt"
)

// ExecutionErrorCode categorizes execution failures.
type ExecutionErrorCode string

const (
	// ErrCodeMetadata indicates custom-field metadata could not be read.
	ErrCodeMetadata ExecutionErrorCode = "METADATA_UNAVAILABLE"

	// ErrCodeProbe indicates a bucket probe failed or returned bad rows.
	ErrCodeProbe ExecutionErrorCode = "BUCKET_PROBE_FAILED"

	// ErrCodeInvalidPipeline indicates the compiled pipeline is malformed.
	ErrCodeInvalidPipeline ExecutionErrorCode = "INVALID_PIPELINE"

	// ErrCodeExecution indicates the document store rejected the pipeline.
	ErrCodeExecution ExecutionErrorCode = "EXECUTION_FAILED"
)

// ExecutionError is a failure after compilation succeeded.
type ExecutionError struct {
	Code       ExecutionErrorCode
	Message    string
	RequestID  string
	Collection string
	Err        error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RequestID != "" {
		msg += fmt.Sprintf(" (request=%s)", e.RequestID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of a wrapped *ExecutionError, or "".
func CodeOf(err error) ExecutionErrorCode {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsProbeError reports whether err came from a bucket probe.
func IsProbeError(err error) bool {
	return CodeOf(err) == ErrCodeProbe
}
