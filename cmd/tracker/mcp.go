// ABOUTME: MCP serve command
// ABOUTME: Starts the MCP server for AI agent integration

package main

import (
	"github.com/harper/tracker/internal/location"
	"github.com/harper/tracker/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agents",
	Long: `Serve the tracker over MCP on stdio. Location tools read and write the local
database; start_tracking and stop_tracking need 'tracker serve' running.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}

		provider, _, err := newProvider(settings())
		if err != nil {
			return err
		}
		locator := location.NewManager(provider, location.WithLogger(getLogger()))

		server, err := mcp.NewServer(repo, locator, daemonClient(cmd))
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().String("addr", "", "daemon address (default from config)")

	rootCmd.AddCommand(mcpCmd)
}
