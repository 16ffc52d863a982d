package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "blr",
	Short: "Backlog Relay - product backlog ingestion and shared memory sync",
	Long: `Backlog Relay (blr) discovers newly requested backlog items embedded in a
shared markdown document, transitions them through the NEW -> PROCESSED
lifecycle, relays normalized snapshots to the team's associative memory
server, rewrites the document in place, and produces a per-run report.

It provides CLI commands for running the pipeline, inspecting document
status, watching run metrics, and serving the pipeline over MCP.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("blr %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
