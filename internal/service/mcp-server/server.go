package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"devops_proxy/internal/service/azuredevops"
)

// NewServer creates a new MCP server exposing the Azure DevOps proxy
// operations as tools
func NewServer(client azuredevops.Client) (*server.MCPServer, error) {
	s := server.NewMCPServer(
		"azure devops proxy",
		"1.0.0",
	)

	if err := registerDevOpsTools(s, client); err != nil {
		return nil, err
	}

	return s, nil
}

// Serve starts the MCP server on stdio
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
