package cli

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	mcpadapter "github.com/abdidvp/ordersvc/internal/adapters/inbound/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the ordersvc MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(opts))
	return cmd
}

func newMCPServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start ordersvc MCP server (stdio)",
		Long:  "Start the ordersvc MCP server using stdio transport. Assistants can then place orders and manage the catalog through tools.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd.Context(), func(r *runtime) error {
				s := mcpadapter.NewOrderMCPServer(version, r.orders, r.catalog)
				return server.ServeStdio(s)
			})
		},
	}
}
