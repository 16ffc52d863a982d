package models

import (
	"fmt"
	"strings"
	"time"
)

// Priority represents the urgency label of a backlog item.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ParsePriority canonicalizes a priority label to uppercase. The label is
// matched case-insensitively; unknown labels are rejected.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q: must be one of HIGH, MEDIUM, LOW", s)
	}
}

// Rank returns the scheduling rank of a priority, HIGH first.
// Unknown priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// ItemStatus represents the local lifecycle state of a backlog item.
type ItemStatus string

const (
	StatusNew       ItemStatus = "NEW"
	StatusProcessed ItemStatus = "PROCESSED"
)

// ProcessedAtLayout is the timestamp layout used for the processed_at stamp,
// the aggregate status block, and report headers.
const ProcessedAtLayout = "2006-01-02 15:04:05"

// Item is a unit of requested work extracted from the backlog document.
// Title plus CreatedAt acts as the natural key; no surrogate ID is assigned.
// CreatedAt is the timestamp string supplied by the document and is kept
// opaque: it is never reparsed or validated here.
type Item struct {
	Priority           Priority   `yaml:"priority" json:"priority"`
	Title              string     `yaml:"title" json:"title"`
	Description        string     `yaml:"description" json:"description"`
	Beneficiary        string     `yaml:"beneficiary" json:"beneficiary"`
	AcceptanceCriteria string     `yaml:"acceptance_criteria" json:"acceptance_criteria"`
	CreatedAt          string     `yaml:"created_at" json:"created_at"`
	Status             ItemStatus `yaml:"status" json:"status"`
	ProcessedAt        string     `yaml:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// MarkProcessed transitions the item to PROCESSED and stamps processed_at with
// the given wall-clock time. The transition is allowed at most once; calling
// it on an item that is already PROCESSED is an error.
// Invariant: ProcessedAt is non-empty iff Status == PROCESSED.
func (i *Item) MarkProcessed(now time.Time) error {
	if i.Status == StatusProcessed {
		return fmt.Errorf("item %q is already processed (at %s)", i.Title, i.ProcessedAt)
	}
	i.ProcessedAt = now.Format(ProcessedAtLayout)
	i.Status = StatusProcessed
	return nil
}

// MemoryTitle returns the human-readable title used when storing the item in
// the shared memory system.
func (i *Item) MemoryTitle() string {
	return fmt.Sprintf("Product Backlog: [%s] %s", i.Priority, i.Title)
}

// MemoryContent renders the item as a standalone shared-memory record,
// mirroring the document record structure.
func (i *Item) MemoryContent() string {
	processedAt := i.ProcessedAt
	if processedAt == "" {
		processedAt = "未処理"
	}
	return fmt.Sprintf(`# Product Backlog Item: %s

## 詳細情報
- **優先度**: %s
- **タイトル**: %s
- **説明**: %s
- **受益者**: %s
- **受諾条件**: %s
- **作成日時**: %s
- **ステータス**: %s
- **処理日時**: %s

## Sprint計画への影響
- 優先度 %s として、次回Sprint Planningで検討
- %sへの価値提供を考慮した実装計画が必要

## 技術的考慮事項
- 受諾条件: %s
- 既存バックログとの依存関係確認が必要
`,
		i.Title,
		i.Priority, i.Title, i.Description, i.Beneficiary,
		i.AcceptanceCriteria, i.CreatedAt, i.Status, processedAt,
		i.Priority, i.Beneficiary,
		i.AcceptanceCriteria,
	)
}

// MemoryTags returns the classification tags attached to the stored record:
// the priority, a fixed domain tag, a beneficiary-derived tag, and a
// planning-cycle tag.
func (i *Item) MemoryTags() []string {
	return []string{
		"priority:" + strings.ToLower(string(i.Priority)),
		"product-backlog",
		"beneficiary:" + slugify(i.Beneficiary),
		"sprint-planning",
	}
}

// slugify lowercases a free-text value and replaces spaces with hyphens so it
// can be used as a tag suffix.
func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
