package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Error types for the xsearch execution pipeline
type ErrorType string

const (
	// Rejected before any process exists
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeQuery      ErrorType = "query"

	// Process lifecycle errors
	ErrorTypeSpawn       ErrorType = "spawn"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeOutputLimit ErrorType = "output_limit"
	ErrorTypeCanceled    ErrorType = "canceled"
	ErrorTypeBackend     ErrorType = "backend"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ValidationError reports a disallowed command or a dangerous argument.
type ValidationError struct {
	Type       ErrorType
	Command    string
	Arg        string
	ArgIndex   int // -1 when the command name itself was rejected
	Reason     string
	Suggestion string
	Timestamp  time.Time
}

// NewCommandNotAllowedError creates a validation error for a command outside the allowlist
func NewCommandNotAllowedError(command string, allowed []string) *ValidationError {
	return &ValidationError{
		Type:      ErrorTypeValidation,
		Command:   command,
		ArgIndex:  -1,
		Reason:    fmt.Sprintf("command is not allowed (allowed: %s)", strings.Join(allowed, ", ")),
		Timestamp: time.Now(),
	}
}

// NewDangerousArgError creates a validation error for an argument that matched a dangerous rule
func NewDangerousArgError(command string, index int, arg, rule string) *ValidationError {
	return &ValidationError{
		Type:      ErrorTypeValidation,
		Command:   command,
		Arg:       arg,
		ArgIndex:  index,
		Reason:    rule,
		Timestamp: time.Now(),
	}
}

// WithSuggestion attaches a "did you mean" hint
func (e *ValidationError) WithSuggestion(s string) *ValidationError {
	e.Suggestion = s
	return e
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var msg string
	if e.ArgIndex < 0 {
		msg = fmt.Sprintf("%s: %q %s", e.Type, e.Command, e.Reason)
	} else {
		msg = fmt.Sprintf("%s: argument %d (%q) for %s rejected: %s", e.Type, e.ArgIndex, e.Arg, e.Command, e.Reason)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", e.Suggestion)
	}
	return msg
}

// QueryError represents a structurally invalid search query
type QueryError struct {
	Type       ErrorType
	Field      string
	Underlying error
	Timestamp  time.Time
}

// NewQueryError creates a new query error
func NewQueryError(field string, err error) *QueryError {
	return &QueryError{
		Type:       ErrorTypeQuery,
		Field:      field,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid query field %s: %v", e.Field, e.Underlying)
}

// Unwrap returns the underlying error
func (e *QueryError) Unwrap() error {
	return e.Underlying
}

// ProcessError represents a failure while running a backend process.
// Stderr holds whatever the process wrote before the failure.
type ProcessError struct {
	Type       ErrorType
	Command    string
	ExitCode   *int
	Stderr     string
	Elapsed    time.Duration
	Limit      string // which ceiling was hit, e.g. "timeout 30s" or "output 10485760 bytes"
	Underlying error
	Timestamp  time.Time
}

// NewProcessError creates a new process error
func NewProcessError(errType ErrorType, command string, err error) *ProcessError {
	return &ProcessError{
		Type:       errType,
		Command:    command,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithLimit records which resource ceiling was hit
func (e *ProcessError) WithLimit(limit string) *ProcessError {
	e.Limit = limit
	return e
}

// WithOutput records captured stderr and exit status
func (e *ProcessError) WithOutput(exitCode *int, stderr string, elapsed time.Duration) *ProcessError {
	e.ExitCode = exitCode
	e.Stderr = stderr
	e.Elapsed = elapsed
	return e
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Command)
	if e.Limit != "" {
		msg += fmt.Sprintf(" exceeded %s", e.Limit)
	}
	if e.ExitCode != nil {
		msg += fmt.Sprintf(" exited with code %d", *e.ExitCode)
	}
	if e.Underlying != nil {
		msg += fmt.Sprintf(": %v", e.Underlying)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ProcessError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether a narrower query could succeed where this one failed
func (e *ProcessError) IsRetryable() bool {
	return e.Type == ErrorTypeTimeout || e.Type == ErrorTypeOutputLimit
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func isPermissionError(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrOrNil returns nil when no errors were collected
func (e *MultiError) ErrOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

// TypeOf extracts the ErrorType from any error produced by this package.
// Unknown errors report ErrorTypeBackend.
func TypeOf(err error) ErrorType {
	var ve *ValidationError
	var qe *QueryError
	var pe *ProcessError
	var fe *FileError
	var ce *ConfigError
	switch {
	case errors.As(err, &ve):
		return ve.Type
	case errors.As(err, &qe):
		return qe.Type
	case errors.As(err, &pe):
		return pe.Type
	case errors.As(err, &fe):
		return fe.Type
	case errors.As(err, &ce):
		return ErrorTypeConfig
	default:
		return ErrorTypeBackend
	}
}
