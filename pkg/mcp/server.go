// Package mcp exposes the catalog to MCP clients over streamable HTTP.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-catalog/pkg/mcp/tools"
)

// ServerName is advertised to MCP clients during initialize.
const ServerName = "ekaya-catalog"

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// NewCatalogServer creates the server with the health tool and the read-only catalog tools.
func NewCatalogServer(version string, deps *tools.CatalogToolDeps) *Server {
	s := NewServer(ServerName, version, deps.Logger)
	tools.RegisterHealthTool(s.mcp, version)
	tools.RegisterCatalogTools(s.mcp, deps)
	return s
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}
