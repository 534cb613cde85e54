package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

func TestServer_ToolsOverTransport(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "xsearch-test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{ToolSearchContent, ToolFindFiles, ToolListDirectory, ToolInfo}, names)

	// rejected before any process exists, so the mock runner sees nothing
	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolSearchContent,
		Arguments: map[string]any{"pattern": "x", "path": "$(reboot)"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	var r searchtypes.SearchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &r))
	assert.Equal(t, "validation", r.Error.Type)

	require.NoError(t, session.Close())
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := newTestServer(t)
	var names []string
	for _, tool := range s.Tools() {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description)
	}
	assert.Equal(t, []string{ToolSearchContent, ToolFindFiles, ToolListDirectory, ToolInfo}, names)
}
