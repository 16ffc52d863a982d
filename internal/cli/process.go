package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/backlog-relay/internal/core"
)

var processDryRun bool

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run one backlog processing pass",
	Long: `Run the full pipeline once: parse the backlog document, transition every
NEW item to PROCESSED, relay each item to the shared memory server,
rewrite the document in place, and write a timestamped report file.

With --dry-run the document is only parsed: discovered items are listed
and nothing is modified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Pipeline == nil || Config == nil {
			return fmt.Errorf("pipeline not initialized")
		}

		if processDryRun {
			return runDryRun()
		}

		fmt.Println("Starting Product Backlog processing...")

		summary, err := Pipeline.Run(cmd.Context())
		if err != nil {
			return err
		}

		if summary.Found == 0 {
			fmt.Println("No new items found.")
			printParseWarnings(summary.Skipped)
			return nil
		}

		fmt.Printf("Found %d new items, processed %d.\n", summary.Found, summary.Processed)
		printParseWarnings(summary.Skipped)
		for _, f := range summary.Failures {
			if f.Title != "" {
				fmt.Printf("Warning: %s failed for %q: %s\n", f.Op, f.Title, f.Err)
			} else {
				fmt.Printf("Warning: %s failed: %s\n", f.Op, f.Err)
			}
		}

		fmt.Println("\n" + summary.Report)
		if summary.ReportPath != "" {
			fmt.Printf("\nReport saved to: %s\n", summary.ReportPath)
		}
		return nil
	},
}

func runDryRun() error {
	content, err := core.LoadDocument(Config.DocumentPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No new items found.")
			return nil
		}
		return fmt.Errorf("reading document: %w", err)
	}

	parsed := core.ParseDocument(content)
	if len(parsed.Items) == 0 {
		fmt.Println("No new items found.")
		printParseWarnings(parsed.Skipped)
		return nil
	}

	fmt.Printf("Found %d new items:\n", len(parsed.Items))
	for _, item := range parsed.Items {
		fmt.Printf("  - [%s] %s\n", item.Priority, item.Title)
	}
	printParseWarnings(parsed.Skipped)
	return nil
}

func printParseWarnings(skipped int) {
	if skipped > 0 {
		fmt.Printf("Warning: %d malformed record(s) skipped during parsing.\n", skipped)
	}
}

func init() {
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "parse the document without processing or modifying anything")
	rootCmd.AddCommand(processCmd)
}
