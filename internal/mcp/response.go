package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createResultResponse serializes a pipeline result. A result with status
// "error" is flagged IsError so the caller sees it, partial files included.
func createResultResponse(r *searchtypes.SearchResult) (*mcp.CallToolResult, error) {
	response, err := createJSONResponse(r)
	if err != nil {
		return nil, err
	}
	response.IsError = r.Status == searchtypes.StatusError
	return response, nil
}

// createErrorResponse creates a standardized error response for MCP tools
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	return createSmartErrorResponse(operation, err, nil)
}

// createSmartErrorResponse reports a tool-level failure with hints on how to
// fix the call. Errors go in the result with IsError set, never as protocol
// errors, so the model can read them and retry.
func createSmartErrorResponse(operation string, err error, context map[string]any) (*mcp.CallToolResult, error) {
	errorData := map[string]any{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if suggestions := generateErrorSuggestions(operation, err); len(suggestions) > 0 {
		errorData["suggestions"] = suggestions
	}
	if len(context) > 0 {
		errorData["context"] = context
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

func generateErrorSuggestions(operation string, err error) []string {
	var suggestions []string
	msg := err.Error()

	if strings.Contains(msg, "arguments must be a JSON object") || strings.Contains(msg, "cannot unmarshal") {
		suggestions = append(suggestions, "Pass arguments as a JSON object with the documented field names and types")
		switch operation {
		case ToolSearchContent:
			suggestions = append(suggestions, `Example: {"pattern": "func main", "globs": ["*.go"]}`)
		case ToolFindFiles:
			suggestions = append(suggestions, `Example: {"names": ["*.go"], "type": "f"}`)
		case ToolListDirectory:
			suggestions = append(suggestions, `Example: {"path": "internal"}`)
		}
	}
	return suggestions
}

// errorHint turns a pipeline error type into a next step for the caller
func errorHint(info *searchtypes.ErrorInfo) string {
	if info == nil {
		return ""
	}
	switch xerrors.ErrorType(info.Type) {
	case xerrors.ErrorTypeValidation:
		return "hint: paths and globs may not contain shell metacharacters or '..' segments; regex metacharacters belong in pattern"
	case xerrors.ErrorTypeQuery:
		return "hint: check the field named in the error against the tool schema"
	case xerrors.ErrorTypeTimeout, xerrors.ErrorTypeOutputLimit:
		return "hint: narrow the search with path, globs, types or max_matches_per_file"
	case xerrors.ErrorTypeSpawn:
		return "hint: the backend binary could not be started; run the info tool to see which backends are available"
	default:
		return ""
	}
}
