package mcp

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/standardbeagle/xsearch/internal/debug"
)

// DiagnosticLogger owns the log sink of the MCP server.
// In MCP mode everything goes to a file: stdout carries the protocol and
// clients often treat stderr output as a failure.
type DiagnosticLogger struct {
	mu       sync.Mutex
	file     *os.File
	logger   zerolog.Logger
	filePath string
}

// NewDiagnosticLogger creates the logger. With isMCP it writes JSON lines to a
// timestamped file under the temp dir (falling back to the home directory);
// otherwise it writes to stderr. A file that cannot be created disables logging
// rather than failing startup.
func NewDiagnosticLogger(isMCP bool, level zerolog.Level) *DiagnosticLogger {
	if !isMCP {
		return &DiagnosticLogger{logger: newDiagnosticJSON(os.Stderr, level)}
	}

	logDir := filepath.Join(os.TempDir(), DiagnosticLogDir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		logDir = filepath.Join(home, "."+DiagnosticLogDir)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return &DiagnosticLogger{logger: zerolog.Nop()}
		}
	}
	return openDiagnosticFile(logDir, level)
}

func openDiagnosticFile(dir string, level zerolog.Level) *DiagnosticLogger {
	name := fmt.Sprintf("mcp-%s-%d.log", time.Now().Format("2006-01-02T150405"), os.Getpid())
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &DiagnosticLogger{logger: zerolog.Nop()}
	}
	return &DiagnosticLogger{
		file:     file,
		filePath: path,
		logger:   newDiagnosticJSON(file, level),
	}
}

func newDiagnosticJSON(w io.Writer, level zerolog.Level) zerolog.Logger {
	return debug.Component(debug.NewJSONLogger(w, level), "mcp")
}

// Logger returns the structured logger to hand to server components
func (dl *DiagnosticLogger) Logger() zerolog.Logger {
	if dl == nil {
		return zerolog.Nop()
	}
	return dl.logger
}

// Printf logs a free-form diagnostic line at info level
func (dl *DiagnosticLogger) Printf(format string, v ...any) {
	if dl == nil {
		return
	}
	dl.logger.Info().Msgf(format, v...)
}

// Errorf logs a free-form diagnostic line at error level
func (dl *DiagnosticLogger) Errorf(format string, v ...any) {
	if dl == nil {
		return
	}
	dl.logger.Error().Msgf(format, v...)
}

// Close closes the log file if one is open
func (dl *DiagnosticLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file == nil {
		return nil
	}
	err := dl.file.Sync()
	if cerr := dl.file.Close(); err == nil {
		err = cerr
	}
	dl.file = nil
	return err
}

// GetLogPath returns the log file path, empty when not logging to a file
func (dl *DiagnosticLogger) GetLogPath() string {
	if dl == nil {
		return ""
	}
	return dl.filePath
}

// NoOpLogger discards everything
var NoOpLogger = &DiagnosticLogger{logger: zerolog.Nop()}
