package debug

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDebugEnabled(t *testing.T) {
	original := EnableDebug
	defer func() { EnableDebug = original }()

	EnableDebug = "false"
	t.Setenv("XSEARCH_DEBUG", "")
	t.Setenv("DEBUG", "")
	assert.False(t, IsDebugEnabled())

	t.Setenv("XSEARCH_DEBUG", "true")
	assert.True(t, IsDebugEnabled())

	t.Setenv("XSEARCH_DEBUG", "")
	t.Setenv("DEBUG", "1")
	assert.True(t, IsDebugEnabled())

	t.Setenv("DEBUG", "")
	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())
}

func TestLevel(t *testing.T) {
	t.Setenv("XSEARCH_DEBUG", "")
	t.Setenv("DEBUG", "")
	assert.Equal(t, zerolog.WarnLevel, Level(false))
	assert.Equal(t, zerolog.DebugLevel, Level(true))
}

func TestNewConsoleLogger_SilentInMCPMode(t *testing.T) {
	defer SetMCPMode(false)

	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, zerolog.DebugLevel)
	logger.Warn().Msg("visible")
	assert.Contains(t, buf.String(), "visible")

	buf.Reset()
	SetMCPMode(true)
	assert.True(t, MCPMode())
	logger = NewConsoleLogger(&buf, zerolog.DebugLevel)
	logger.Warn().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNewJSONLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewJSONLogger(&buf, zerolog.InfoLevel), "supervisor")

	logger.Debug().Msg("dropped")
	logger.Info().Str("command", "rg").Msg("spawned")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "supervisor", entry["component"])
	assert.Equal(t, "rg", entry["command"])
	assert.Equal(t, "spawned", entry["message"])
	assert.Contains(t, entry, "time")
}
