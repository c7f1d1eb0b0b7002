package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with its dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Searcher Searcher
	Store    Store
	Batches  BatchReporter
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "site-chatbot-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_content",
		Description: "Search the site's indexed content with the same hybrid pipeline the chatbot uses. Returns ranked passages with titles and URLs.",
	}, makeSearchHandler(cfg.Searcher))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "fetch_content",
		Description: "Retrieve the full indexed text of one content item by its CMS id, chunks reassembled in order.",
	}, makeFetchHandler(cfg.Store))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the state of the content index: stored chunk count, pending batch progress, and last indexing activity.",
	}, makeStatusHandler(cfg.Store, cfg.Batches))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until the client
// disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance for transport
// handlers that wrap it.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
