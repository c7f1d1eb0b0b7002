package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewHTTPHandler exposes the server's tools over the streamable HTTP
// transport, mountable on any http.ServeMux path (e.g. "/mcp"). The tool
// surface is read-only queries, so sessions run stateless.
func NewHTTPHandler(server *Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}
