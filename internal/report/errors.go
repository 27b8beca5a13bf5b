package report

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes request errors.
type ErrorCode string

const (
	// ErrCodeMalformedFilter means a value could not be coerced to its declared type.
	ErrCodeMalformedFilter ErrorCode = "MALFORMED_FILTER"

	// ErrCodeUnsupportedComparator means a comparator was used outside the
	// branch that supports it. This is a contract error, not user input.
	ErrCodeUnsupportedComparator ErrorCode = "UNSUPPORTED_COMPARATOR"

	// ErrCodeInvalidSort means the datastore cannot satisfy the sort.
	ErrCodeInvalidSort ErrorCode = "INVALID_SORT"

	// ErrCodeUnknownField means a standard field is missing from the domain table.
	ErrCodeUnknownField ErrorCode = "UNKNOWN_FIELD"

	// ErrCodeInvalidRequest covers structural problems with the request.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeForbiddenField means a summary or aggregation reads a field the
	// caller's permissions hide.
	ErrCodeForbiddenField ErrorCode = "FORBIDDEN_FIELD"
)

// Error is a client-facing report error.
type Error struct {
	Code    ErrorCode
	Message string
	// Field is the offending field name, when there is one.
	Field string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error.
func NewError(code ErrorCode, field, format string, args ...any) *Error {
	return &Error{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// MalformedFilter is the default error constructor handed to the normalizer.
func MalformedFilter(field, message string) error {
	return &Error{Code: ErrCodeMalformedFilter, Field: field, Message: message}
}

// CodeOf returns the code of a wrapped *Error, or "" if err is not one.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsMalformedFilter reports whether err is a malformed filter error.
func IsMalformedFilter(err error) bool {
	return CodeOf(err) == ErrCodeMalformedFilter
}

// IsInvalidSort reports whether err is an invalid sort error.
func IsInvalidSort(err error) bool {
	return CodeOf(err) == ErrCodeInvalidSort
}

// IsUnsupportedComparator reports whether err is a comparator contract error.
func IsUnsupportedComparator(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedComparator
}

// IsForbiddenField reports whether err rejected a field the caller may not read.
func IsForbiddenField(err error) bool {
	return CodeOf(err) == ErrCodeForbiddenField
}
