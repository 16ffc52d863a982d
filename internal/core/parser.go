// Package core contains the business logic for the backlog relay: document
// parsing, item lifecycle processing, document synchronization, report
// generation, and run configuration.
package core

import (
	"regexp"
	"strings"

	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// recordPattern matches one backlog record: a priority header followed by the
// labeled fields in their fixed order. Field labels are literal and must match
// verbatim for a record to parse. Values may span lines ((?s) + non-greedy).
var recordPattern = regexp.MustCompile(`(?s)### \[(\w+)\] (.+?)\n- \*\*説明\*\*: (.+?)\n- \*\*受益者\*\*: (.+?)\n- \*\*受諾条件\*\*: (.+?)\n- \*\*作成日時\*\*: (.+?)\n- \*\*ステータス\*\*: (\w+)`)

// headerPattern matches any candidate record header, well-formed or not.
// Used only to count how many records were dropped during extraction.
var headerPattern = regexp.MustCompile(`(?m)^### \[\w+\] `)

// ParseResult is the outcome of one extraction pass over the document.
type ParseResult struct {
	// Items holds the well-formed NEW records in document order.
	Items []*models.Item
	// AlreadyProcessed counts well-formed records whose status is not NEW.
	// These are terminal and never re-surfaced.
	AlreadyProcessed int
	// Skipped counts candidate record headers that did not yield a
	// well-formed record: field sequence mismatch, an empty required field,
	// or an unknown priority label. The records themselves stay dropped; the
	// count gives visibility into what the extraction left behind.
	Skipped int
}

// ParseDocument extracts backlog items from the full document text. The
// extraction is permissive and best-effort: malformed regions are skipped
// (and counted) without failing the rest of the document, and duplicate
// titles pass through unchanged.
func ParseDocument(content string) ParseResult {
	var result ParseResult

	matches := recordPattern.FindAllStringSubmatch(content, -1)
	for _, m := range matches {
		item, ok := buildItem(m)
		if !ok {
			result.Skipped++
			continue
		}
		if item.Status != models.StatusNew {
			result.AlreadyProcessed++
			continue
		}
		result.Items = append(result.Items, item)
	}

	// Headers whose field sequence never matched the record pattern at all.
	candidates := len(headerPattern.FindAllString(content, -1))
	if dropped := candidates - len(matches); dropped > 0 {
		result.Skipped += dropped
	}

	return result
}

// buildItem assembles an Item from a record match, trimming every field.
// It reports false when a required field is empty or the priority is unknown.
func buildItem(m []string) (*models.Item, bool) {
	priority, err := models.ParsePriority(m[1])
	if err != nil {
		return nil, false
	}

	item := &models.Item{
		Priority:           priority,
		Title:              trimField(m[2]),
		Description:        trimField(m[3]),
		Beneficiary:        trimField(m[4]),
		AcceptanceCriteria: trimField(m[5]),
		CreatedAt:          trimField(m[6]),
		Status:             models.ItemStatus(trimField(m[7])),
	}

	for _, field := range []string{item.Title, item.Description, item.Beneficiary, item.AcceptanceCriteria, item.CreatedAt} {
		if field == "" {
			return nil, false
		}
	}
	return item, true
}

func trimField(s string) string {
	return strings.TrimSpace(s)
}
