package mcp

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticLogger_WritesJSONFile(t *testing.T) {
	dl := openDiagnosticFile(t.TempDir(), zerolog.InfoLevel)
	require.NotEmpty(t, dl.GetLogPath())

	dl.Printf("serving %d tools", 4)
	logger := dl.Logger()
	logger.Debug().Msg("below level")
	dl.Errorf("backend %s missing", "rg")
	require.NoError(t, dl.Close())
	require.NoError(t, dl.Close(), "closing twice is harmless")

	data, err := os.ReadFile(dl.GetLogPath())
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `"message":"serving 4 tools"`)
	assert.Contains(t, text, `"level":"error"`)
	assert.Contains(t, text, `"component":"mcp"`)
	assert.NotContains(t, text, "below level")
}

func TestDiagnosticLogger_NilAndNoOp(t *testing.T) {
	var dl *DiagnosticLogger
	dl.Printf("ignored")
	assert.NoError(t, dl.Close())
	assert.Empty(t, dl.GetLogPath())

	NoOpLogger.Printf("ignored")
	assert.Empty(t, NoOpLogger.GetLogPath())
}

func TestDiagnosticLogger_UnwritableDirDisablesLogging(t *testing.T) {
	dl := openDiagnosticFile("/nonexistent/xsearch/logs", zerolog.InfoLevel)
	assert.Empty(t, dl.GetLogPath())
	dl.Printf("dropped")
	assert.NoError(t, dl.Close())
}
