// Package debug builds the process-wide zerolog loggers. Components receive a
// zerolog.Logger value; the zero value discards everything.
package debug

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/xsearch/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// mcpMode is set by main when stdio carries the MCP protocol
var mcpMode atomic.Bool

// SetMCPMode suppresses console logging; MCP diagnostics go to a file instead
func SetMCPMode(enabled bool) {
	mcpMode.Store(enabled)
}

func MCPMode() bool {
	return mcpMode.Load()
}

// IsDebugEnabled reports whether debug level logging was requested through
// the build flag, XSEARCH_DEBUG or DEBUG
func IsDebugEnabled() bool {
	if EnableDebug == "true" {
		return true
	}
	for _, key := range []string{"XSEARCH_DEBUG", "DEBUG"} {
		switch strings.ToLower(os.Getenv(key)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

// Level picks the log level for a CLI run
func Level(verbose bool) zerolog.Level {
	if verbose || IsDebugEnabled() {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

// NewConsoleLogger writes human-readable lines, for interactive CLI use.
// In MCP mode it returns a disabled logger so stdio stays clean.
func NewConsoleLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	if MCPMode() {
		return zerolog.Nop()
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// NewJSONLogger writes one JSON object per line
func NewJSONLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
}

// Component tags every event of logger with the emitting component
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
