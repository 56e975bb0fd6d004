// ABOUTME: MCP server subcommand
// ABOUTME: Starts the MCP server on stdio for desktop assistant integration
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/handlers"
)

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, app *App) error {
	app.Log.Info("Starting CRM MCP server")

	server := handlers.NewServer(handlers.Deps{
		Cache:       app.Cache,
		Engine:      app.Engine,
		FeedOptions: app.FeedOptions,
		Version:     app.Version,
	})

	return server.Run(ctx, &mcp.StdioTransport{})
}
