package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/backlog-relay/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the backlog pipeline as MCP tools over stdio",
	Long: `Start an MCP server on stdio exposing list_new_items, process_backlog,
and get_run_metrics, so AI assistants can drive the relay directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config == nil {
			return fmt.Errorf("configuration not initialized")
		}

		srv := mcp.NewServer(Config.DocumentPath, Pipeline, MetricsCalc, appVersion)
		return srv.Run(cmd.Context())
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
