// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown         = "UNKNOWN_ERROR"
	CodeConfigError     = "CONFIG_ERROR"
	CodeCollectionError = "COLLECTION_ERROR"
	CodeParseError      = "PARSE_ERROR"
	CodeAnalysisError   = "ANALYSIS_ERROR"
	CodeStorageError    = "STORAGE_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
)

// Process exit codes for errors that abort a run before a report exists.
// They sit above the analyzer severities so scripts can tell them apart.
const (
	ExitGeneric    = 1
	ExitConfig     = 3
	ExitCollection = 4
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrConfigError     = New(CodeConfigError, "configuration error")
	ErrCollectionError = New(CodeCollectionError, "collection error")
	ErrParseError      = New(CodeParseError, "parse error")
	ErrAnalysisError   = New(CodeAnalysisError, "analysis error")
	ErrStorageError    = New(CodeStorageError, "storage error")
	ErrInvalidInput    = New(CodeInvalidInput, "invalid input")
	ErrNotFound        = New(CodeNotFound, "resource not found")
)

// IsConfigError checks if the error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigError)
}

// IsCollectionError checks if the error is a snapshot collection error.
func IsCollectionError(err error) bool {
	return errors.Is(err, ErrCollectionError)
}

// IsStorageError checks if the error is a storage error.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageError)
}

// IsAnalysisError checks if the error is an analysis error.
func IsAnalysisError(err error) bool {
	return errors.Is(err, ErrAnalysisError)
}

// HasCode reports whether err carries an AppError code anywhere in its chain.
func HasCode(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Describe renders err for end users: the messages along the chain joined by ": ",
// without error codes.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	if appErr.Err == nil {
		return appErr.Message
	}
	return appErr.Message + ": " + Describe(appErr.Err)
}

// ProcessExitCode maps an error to the process exit code.
func ProcessExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsConfigError(err):
		return ExitConfig
	case IsCollectionError(err):
		return ExitCollection
	default:
		return ExitGeneric
	}
}
