package errors

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"
)

func TestValidationError_CommandNotAllowed(t *testing.T) {
	err := NewCommandNotAllowedError("bash", []string{"find", "grep", "ls", "rg"})

	if err.Type != ErrorTypeValidation {
		t.Errorf("Expected Type to be ErrorTypeValidation, got %v", err.Type)
	}
	if err.ArgIndex != -1 {
		t.Errorf("Expected ArgIndex -1 for command rejection, got %d", err.ArgIndex)
	}

	msg := err.Error()
	if !strings.Contains(msg, "find, grep, ls, rg") {
		t.Errorf("Expected allowlist in message, got %q", msg)
	}

	err.WithSuggestion("rg")
	if !strings.Contains(err.Error(), `did you mean "rg"?`) {
		t.Errorf("Expected suggestion in message, got %q", err.Error())
	}
}

func TestValidationError_DangerousArg(t *testing.T) {
	err := NewDangerousArgError("rg", 3, "a;b", "shell metacharacter")

	expected := `validation: argument 3 ("a;b") for rg rejected: shell metacharacter`
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
	if TypeOf(err) != ErrorTypeValidation {
		t.Errorf("Expected TypeOf to report validation, got %v", TypeOf(err))
	}
}

func TestQueryError(t *testing.T) {
	underlying := errors.New("pattern is required")
	err := NewQueryError("pattern", underlying)

	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}
	if err.Error() != "invalid query field pattern: pattern is required" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}

func TestProcessError(t *testing.T) {
	code := 2
	underlying := errors.New("exit status 2")
	err := NewProcessError(ErrorTypeBackend, "rg", underlying).
		WithOutput(&code, "rg: regex parse error\n", 150*time.Millisecond)

	if err.ExitCode == nil || *err.ExitCode != 2 {
		t.Fatalf("Expected exit code 2, got %v", err.ExitCode)
	}
	if !strings.Contains(err.Error(), "regex parse error") {
		t.Errorf("Expected stderr in message, got %q", err.Error())
	}
	if err.IsRetryable() {
		t.Errorf("Backend errors should not be retryable")
	}

	timeout := NewProcessError(ErrorTypeTimeout, "rg", nil).WithLimit("timeout 30s")
	if !timeout.IsRetryable() {
		t.Errorf("Timeout errors should be retryable with a narrower query")
	}
	if timeout.Error() != "timeout: rg exceeded timeout 30s" {
		t.Errorf("Unexpected message %q", timeout.Error())
	}

	var pe *ProcessError
	wrapped := errors.Join(errors.New("context"), timeout)
	if !errors.As(wrapped, &pe) || pe.Type != ErrorTypeTimeout {
		t.Errorf("Expected errors.As to find the process error")
	}
}

func TestFileError(t *testing.T) {
	err := NewFileError("read", "/path/to/file", fs.ErrNotExist)
	if err.Type != ErrorTypeFileNotFound {
		t.Errorf("Expected Type to be ErrorTypeFileNotFound, got %v", err.Type)
	}

	permErr := NewFileError("read", "/path/to/file", &fs.PathError{Op: "open", Path: "/path/to/file", Err: fs.ErrPermission})
	if permErr.Type != ErrorTypePermission {
		t.Errorf("Expected Type to be ErrorTypePermission, got %v", permErr.Type)
	}

	if !errors.Is(permErr, fs.ErrPermission) {
		t.Errorf("Expected error to unwrap to fs.ErrPermission")
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("invalid value")
	err := NewConfigError("process.timeout_ms", "-1", underlying)

	expectedMsg := "config error for field process.timeout_ms (value -1): invalid value"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
	if TypeOf(err) != ErrorTypeConfig {
		t.Errorf("Expected TypeOf to report config, got %v", TypeOf(err))
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")

	multi := NewMultiError([]error{err1, nil, err2, nil})
	if len(multi.Errors) != 2 {
		t.Errorf("Expected 2 errors after filtering nils, got %d", len(multi.Errors))
	}
	if !errors.Is(multi, err2) {
		t.Errorf("Expected multi error to match err2")
	}

	if NewMultiError(nil).ErrOrNil() != nil {
		t.Errorf("Expected ErrOrNil to return nil for empty multi error")
	}

	single := NewMultiError([]error{err1})
	if single.Error() != "error 1" {
		t.Errorf("Expected single error message, got %q", single.Error())
	}
}

func TestTypeOf_Unknown(t *testing.T) {
	if TypeOf(errors.New("boom")) != ErrorTypeBackend {
		t.Errorf("Expected unknown errors to report backend")
	}
}
