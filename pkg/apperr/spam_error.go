package apperr

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error codes
const (
	// Input errors
	CodeMalformedInput = "MALFORMED_INPUT"
	CodeInvalidInput   = "INVALID_INPUT"

	// Store errors
	CodeNotFound      = "NOT_FOUND"
	CodeDatabaseError = "DATABASE_ERROR"

	// Training errors
	CodeTrainingBatchFailure = "TRAINING_BATCH_FAILURE"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// Process exit codes reported by the CLI.
const (
	ExitInternal = 1
	ExitUsage    = 2
	ExitData     = 65
	ExitConfig   = 78
)

// AppError represents a structured application error
type AppError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	ExitCode int            `json:"-"`
	Details  map[string]any `json:"details,omitempty"`
	Err      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// Input errors
func MalformedInput(source string, err error) *AppError {
	return &AppError{
		Code:     CodeMalformedInput,
		Message:  fmt.Sprintf("malformed input from %s", source),
		ExitCode: ExitData,
		Details:  map[string]any{"source": source},
		Err:      err,
	}
}

// ReadFailure reports a missing input as NotFound and an unreadable one as
// MalformedInput.
func ReadFailure(source string, err error) *AppError {
	if errors.Is(err, fs.ErrNotExist) {
		return NotFound(source).WithError(err)
	}
	return MalformedInput(source, err)
}

func InvalidInput(field, reason string) *AppError {
	return &AppError{
		Code:     CodeInvalidInput,
		Message:  fmt.Sprintf("invalid input for '%s': %s", field, reason),
		ExitCode: ExitUsage,
		Details:  map[string]any{"field": field},
	}
}

// Store errors
func NotFound(resource string) *AppError {
	return &AppError{
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		ExitCode: ExitData,
	}
}

func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Code:     CodeDatabaseError,
		Message:  fmt.Sprintf("database error: %s", operation),
		ExitCode: ExitInternal,
		Err:      err,
	}
}

// Training errors
func TrainingBatchFailure(model string, batch int, err error) *AppError {
	return &AppError{
		Code:     CodeTrainingBatchFailure,
		Message:  fmt.Sprintf("%s training failed on batch %d", model, batch),
		ExitCode: ExitInternal,
		Details:  map[string]any{"model": model, "batch": batch},
		Err:      err,
	}
}

// Internal errors
func InternalWithError(err error) *AppError {
	return &AppError{
		Code:     CodeInternalError,
		Message:  "internal error",
		ExitCode: ExitInternal,
		Err:      err,
	}
}

func ConfigError(message string) *AppError {
	return &AppError{
		Code:     CodeConfigError,
		Message:  message,
		ExitCode: ExitConfig,
	}
}

// Helper functions
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	return ExitInternal
}
