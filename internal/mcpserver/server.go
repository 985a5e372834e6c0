// Package mcpserver exposes GitScribe's Git operations as MCP tools.
//
// Tool results are always JSON envelopes with a success flag so the
// calling LLM can parse and react to every outcome, including failures.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every Git tool registered against the
// given toolset.
func New(toolset Toolset) *server.MCPServer {
	s := server.NewMCPServer(
		"gitscribe",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	issueTool := NewIssueTool(toolset)
	s.AddTool(issueTool.Definition(), issueTool.Handle)

	prTool := NewPullRequestTool(toolset)
	s.AddTool(prTool.Definition(), prTool.Handle)

	permsTool := NewPermissionsTool(toolset)
	s.AddTool(permsTool.Definition(), permsTool.Handle)

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func serverInstructions() string {
	return "GitScribe exposes Git operations scoped to the repository the " +
		"user is currently viewing. Always pass the repository_context you " +
		"were given; operations on any other repository are denied. Every " +
		"tool returns a JSON object with a success flag — check it before " +
		"reporting the outcome to the user."
}
