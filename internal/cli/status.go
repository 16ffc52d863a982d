package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/backlog-relay/internal/core"
)

var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("230")).
				Background(lipgloss.Color("62")).
				Padding(0, 1)

	statusNewStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusProcessedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusWarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusDimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backlog document status and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config == nil {
			return fmt.Errorf("configuration not initialized")
		}

		fmt.Println(statusTitleStyle.Render("Backlog Document") + " " + Config.DocumentPath)

		content, err := core.LoadDocument(Config.DocumentPath)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println(statusDimStyle.Render("  document not found"))
				return nil
			}
			return fmt.Errorf("reading document: %w", err)
		}

		parsed := core.ParseDocument(content)
		fmt.Printf("  %s %d\n", statusNewStyle.Render("NEW:"), len(parsed.Items))
		fmt.Printf("  %s %d\n", statusProcessedStyle.Render("PROCESSED:"), parsed.AlreadyProcessed)
		if parsed.Skipped > 0 {
			fmt.Printf("  %s %d\n", statusWarnStyle.Render("malformed:"), parsed.Skipped)
		}

		for _, item := range parsed.Items {
			fmt.Printf("    - [%s] %s\n", item.Priority, item.Title)
		}

		if RunHistory == nil {
			return nil
		}
		runs, err := RunHistory.Recent(5)
		if err != nil || len(runs) == 0 {
			return nil
		}

		fmt.Println()
		fmt.Println(statusTitleStyle.Render("Recent Runs"))
		for _, run := range runs {
			line := fmt.Sprintf("  %s  processed %d/%d, %d NEW remaining",
				run.StartedAt, run.Processed, run.Found, run.RemainingNew)
			if len(run.FailedItems) > 0 {
				line += statusWarnStyle.Render(fmt.Sprintf("  (%d integration failures)", len(run.FailedItems)))
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
