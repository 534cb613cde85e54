// Package mcp exposes the search engine as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/xsearch/internal/config"
	"github.com/standardbeagle/xsearch/internal/search"
	"github.com/standardbeagle/xsearch/internal/version"
)

// ToolHelp describes one registered tool in the info response
type ToolHelp struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Server struct {
	engine           *search.Engine
	watcher          *config.Watcher // nil when config reload is disabled
	server           *mcp.Server
	diagnosticLogger *DiagnosticLogger
	logger           zerolog.Logger
	tools            []ToolHelp
}

// NewServer wires the engine into an MCP server. watcher may be nil; when set,
// reloaded configs are swapped into the engine for subsequent calls.
func NewServer(engine *search.Engine, watcher *config.Watcher, diag *DiagnosticLogger) *Server {
	if diag == nil {
		diag = NoOpLogger
	}

	s := &Server{
		engine:           engine,
		watcher:          watcher,
		diagnosticLogger: diag,
		logger:           diag.Logger(),
	}

	if watcher != nil {
		watcher.OnReload(func(cfg *config.Config) {
			engine.SetConfig(cfg)
			s.logger.Info().Str("root", cfg.Project.Root).Msg("engine config swapped")
		})
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

func (s *Server) addTool(name, description string, schema any, handler mcp.ToolHandler) {
	s.server.AddTool(&mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, s.recoverFromPanic(name, handler))
	s.tools = append(s.tools, ToolHelp{Name: name, Description: description})
}

func (s *Server) registerTools() {
	s.addTool(ToolSearchContent,
		"Search file contents with ripgrep (grep fallback). Returns files with matches, byte and character offsets, "+
			"line/column, optional context, paginated by files and by matches per file. Paths are relative to the project root.",
		searchContentSchema(), s.handleSearchContent)

	s.addTool(ToolFindFiles,
		"Enumerate paths with find: name globs, path globs or regex, entry type, depth, size, permissions and "+
			"modification age. Paginated and sorted by path or modification time.",
		findFilesSchema(), s.handleFindFiles)

	s.addTool(ToolListDirectory,
		"List one directory with ls. Directories are flagged with isDir. Paginated.",
		listDirectorySchema(), s.handleListDirectory)

	s.addTool(ToolInfo,
		"Show the project root, loaded config files, available backends and their versions, process limits and tool list. Start here.",
		infoSchema(), s.handleInfo)
}

// recoverFromPanic keeps one bad call from taking the server down
func (s *Server) recoverFromPanic(operation string, handler mcp.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("operation", operation).
					Interface("panic", r).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered in tool handler")
				result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
			}
		}()
		return handler(ctx, req)
	}
}

// Start serves MCP over stdio until the client disconnects or ctx is done
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves one session on transport. The config watcher, if any, runs for
// the lifetime of the session.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info().Str("version", version.Version).Str("root", s.engine.Config().Project.Root).Msg("starting MCP server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if s.watcher != nil {
		g.Go(func() error {
			return s.watcher.Run(gctx)
		})
	}
	g.Go(func() error {
		defer cancel()
		err := s.server.Run(gctx, transport)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	s.logger.Info().Err(err).Msg("MCP server stopped")
	return err
}

// Shutdown flushes and closes the diagnostic log
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("shutting down MCP server")
	return s.diagnosticLogger.Close()
}

// Tools lists the registered tools in registration order
func (s *Server) Tools() []ToolHelp {
	return s.tools
}
