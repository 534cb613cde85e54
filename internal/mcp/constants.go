package mcp

// Tool names exposed over MCP
const (
	ToolSearchContent = "search_content"
	ToolFindFiles     = "find_files"
	ToolListDirectory = "list_directory"
	ToolInfo          = "info"
)

const (
	// ServerName is reported in the MCP initialize handshake
	ServerName = "xsearch-mcp-server"

	// DiagnosticLogDir is created under the system temp dir for MCP-mode logs
	DiagnosticLogDir = "xsearch-mcp-logs"
)
