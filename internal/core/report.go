package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// emptyReport is the sentinel produced instead of an empty report.
const emptyReport = "No new items processed."

// reportFilePrefix names the per-run report artifact; a run timestamp suffix
// keeps runs from overwriting each other.
const reportFilePrefix = "backlog-processing-"

// BuildReport renders the run summary: processing timestamp, total count, a
// per-priority breakdown in ascending label order (absent priorities
// omitted), and the processed items in their original batch order.
func BuildReport(processed []*models.Item, now time.Time) string {
	if len(processed) == 0 {
		return emptyReport
	}

	counts := make(map[models.Priority]int)
	for _, item := range processed {
		counts[item.Priority]++
	}
	labels := make([]string, 0, len(counts))
	for p := range counts {
		labels = append(labels, string(p))
	}
	sort.Strings(labels)

	var b strings.Builder
	fmt.Fprintf(&b, `# Product Backlog Processing Report

## 処理サマリー
- **処理日時**: %s
- **処理済みアイテム数**: %d

## 優先度別内訳
`, now.Format(models.ProcessedAtLayout), len(processed))

	for _, label := range labels {
		fmt.Fprintf(&b, "- **%s**: %d件\n", label, counts[models.Priority(label)])
	}

	b.WriteString("\n## 処理済みアイテム詳細\n")
	for _, item := range processed {
		fmt.Fprintf(&b, "- [%s] %s\n", item.Priority, item.Title)
	}

	return b.String()
}

// ReportFileName returns the unique per-run artifact name.
func ReportFileName(now time.Time) string {
	return reportFilePrefix + now.Format("20060102-150405") + ".md"
}

// WriteReport persists the report to a timestamp-suffixed file in dir and
// returns the written path.
func WriteReport(dir, report string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("writing report: creating directory: %w", err)
	}
	path := filepath.Join(dir, ReportFileName(now))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
