package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/standardbeagle/xsearch/internal/config"
	"github.com/standardbeagle/xsearch/internal/process"
	"github.com/standardbeagle/xsearch/internal/search"
	"github.com/standardbeagle/xsearch/internal/search/mocks"
	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// testServer is a server over an engine whose backends are empty executables
// in a temp dir, so binary resolution succeeds and every spawn goes to runner
type testServer struct {
	*Server
	runner *mocks.MockRunner
	cfg    *config.Config
	bins   map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	binDir := t.TempDir()

	bins := make(map[string]string)
	for _, name := range []string{"rg", "grep", "find", "ls"} {
		path := filepath.Join(binDir, name)
		require.NoError(t, os.WriteFile(path, nil, 0o755))
		bins[name] = path
	}

	cfg := config.Default(root)
	cfg.Backends = config.Backends{Ripgrep: bins["rg"], Grep: bins["grep"], Find: bins["find"], Ls: bins["ls"]}
	require.NoError(t, config.ValidateConfig(cfg))

	runner := mocks.NewMockRunner(gomock.NewController(t))
	engine := search.New(cfg, runner, zerolog.Nop())
	return &testServer{Server: NewServer(engine, nil, nil), runner: runner, cfg: cfg, bins: bins}
}

func exited(code int, stdout, stderr string) *process.Result {
	return &process.Result{ExitCode: &code, Success: code == 0, Stdout: stdout, Stderr: stderr}
}

// CallTool invokes a registered handler in process, bypassing the transport
func (s *testServer) CallTool(t *testing.T, name string, args any) *mcp.CallToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Name: name, Arguments: raw}}
	var handler mcp.ToolHandler
	switch name {
	case ToolSearchContent:
		handler = s.handleSearchContent
	case ToolFindFiles:
		handler = s.handleFindFiles
	case ToolListDirectory:
		handler = s.handleListDirectory
	case ToolInfo:
		handler = s.handleInfo
	default:
		t.Fatalf("unknown tool %s", name)
	}

	result, err := s.recoverFromPanic(name, handler)(context.Background(), req)
	require.NoError(t, err, "tool errors are reported in the result, never as Go errors")
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", result.Content[0])
	return text.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult) searchtypes.SearchResult {
	t.Helper()
	var r searchtypes.SearchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &r))
	return r
}
