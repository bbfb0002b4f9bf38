package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/abdidvp/ordersvc/internal/application"
)

// NewOrderMCPServer creates an MCP server exposing order placement and
// catalog administration as tools, plus read-only resources.
func NewOrderMCPServer(version string, orders *application.OrderService, catalog *application.CatalogService) *server.MCPServer {
	s := server.NewMCPServer(
		"ordersvc",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	h := &handlers{orders: orders, catalog: catalog}
	registerTools(s, h)
	registerResources(s, h)

	return s
}
