package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/xsearch/internal/search"
	"github.com/standardbeagle/xsearch/internal/searchtypes"
	"github.com/standardbeagle/xsearch/internal/version"
	"github.com/standardbeagle/xsearch/pkg/pathutil"
)

// InfoResponse is the payload of the info tool
type InfoResponse struct {
	Version string `json:"version"`
	BuildID string `json:"buildId"`
	search.Info
	Tools    []ToolHelp `json:"tools"`
	Warnings []string   `json:"warnings,omitempty"`
}

func arguments(req *mcp.CallToolRequest) json.RawMessage {
	if req == nil || req.Params == nil {
		return nil
	}
	return req.Params.Arguments
}

// decodeArguments unmarshals the raw tool arguments; absent arguments decode
// to the zero value
func decodeArguments(req *mcp.CallToolRequest, dst json.Unmarshaler) error {
	raw := arguments(req)
	if len(raw) == 0 {
		return nil
	}
	return dst.UnmarshalJSON(raw)
}

func (s *Server) handleSearchContent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params SearchContentParams
	if err := decodeArguments(req, &params); err != nil {
		return createSmartErrorResponse(ToolSearchContent, fmt.Errorf("invalid parameters: %w", err), map[string]any{
			"common_mistakes": []string{
				"Passing CLI flags like -i or -n instead of JSON fields",
				"Passing globs as a single string instead of an array",
			},
			"correct_format": `{"pattern": "search_text", "case_insensitive": true}`,
		})
	}

	q := params.query()
	s.logger.Debug().Str("pattern", q.Pattern).Str("path", q.Path).Msg("search_content")
	return s.respond(s.engine.Search(ctx, q), params.Warnings)
}

func (s *Server) handleFindFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params FindFilesParams
	if err := decodeArguments(req, &params); err != nil {
		return createSmartErrorResponse(ToolFindFiles, fmt.Errorf("invalid parameters: %w", err), nil)
	}

	q := params.query()
	s.logger.Debug().Strs("names", q.Names).Str("path", q.Path).Msg("find_files")
	return s.respond(s.engine.FindFiles(ctx, q), params.Warnings)
}

func (s *Server) handleListDirectory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ListDirectoryParams
	if err := decodeArguments(req, &params); err != nil {
		return createSmartErrorResponse(ToolListDirectory, fmt.Errorf("invalid parameters: %w", err), nil)
	}

	q := params.query()
	s.logger.Debug().Str("path", q.Path).Msg("list_directory")
	return s.respond(s.engine.ListDirectory(ctx, q), params.Warnings)
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params InfoParams
	if err := decodeArguments(req, &params); err != nil {
		return createErrorResponse(ToolInfo, fmt.Errorf("invalid parameters: %w", err))
	}

	resp := InfoResponse{
		Version: version.Version,
		BuildID: version.BuildID(),
		Info:    s.engine.Info(ctx),
		Tools:   s.Tools(),
	}
	for _, u := range params.Warnings {
		resp.Warnings = append(resp.Warnings, u.String())
	}
	return createJSONResponse(resp)
}

// respond converts paths to root-relative form and folds parameter warnings
// and error hints into the result
func (s *Server) respond(result *searchtypes.SearchResult, unknown []UnknownField) (*mcp.CallToolResult, error) {
	out := pathutil.ToRelativeResult(result, s.engine.Config().Project.Root)
	out.Warnings = append([]string(nil), result.Warnings...)
	for _, u := range unknown {
		out.AddWarning(u.String())
	}
	if hint := errorHint(out.Error); hint != "" {
		out.AddWarning(hint)
	}

	s.logger.Debug().
		Str("invocation", out.InvocationID).
		Str("status", string(out.Status)).
		Str("engine", out.SearchEngine).
		Int("files", out.TotalFiles).
		Msg("tool call finished")
	return createResultResponse(out)
}
