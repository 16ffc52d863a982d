package integration

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// Tool names exposed by the associative memory server.
const (
	toolStoreMemory  = "store_shared_memory"
	toolNotify       = "send_notification"
	toolUpdateMemory = "update_shared_memory"
)

// sprintSummaryTitle is the shared-memory record that UpdateSprintSummary
// replaces wholesale on every run.
const sprintSummaryTitle = "Current Sprint - Product Backlog Updates"

// toolCaller is the slice of the MCP client session the integrator needs.
// The real *mcp.ClientSession satisfies it; tests substitute a fake.
type toolCaller interface {
	CallTool(ctx context.Context, params *gomcp.CallToolParams) (*gomcp.CallToolResult, error)
}

// memoryIntegrator speaks MCP to the shared associative memory server over a
// stdio transport to a spawned server process.
type memoryIntegrator struct {
	cfg        models.MemoryConfig
	recipients []models.Recipient

	client  *gomcp.Client
	session toolCaller
	closer  func() error
}

// NewMemoryIntegrator creates an Integrator backed by the configured MCP
// memory server. Connect must be called before use.
func NewMemoryIntegrator(cfg models.MemoryConfig, recipients []models.Recipient) *memoryIntegrator {
	if len(recipients) == 0 {
		recipients = models.DefaultRecipients()
	}
	return &memoryIntegrator{
		cfg:        cfg,
		recipients: recipients,
		client:     gomcp.NewClient(&gomcp.Implementation{Name: "backlog-relay", Version: "v1"}, nil),
	}
}

// newMemoryIntegratorWithSession wires an already-connected session, used by
// tests with in-memory transports.
func newMemoryIntegratorWithSession(session toolCaller, cfg models.MemoryConfig, recipients []models.Recipient) *memoryIntegrator {
	if len(recipients) == 0 {
		recipients = models.DefaultRecipients()
	}
	return &memoryIntegrator{cfg: cfg, recipients: recipients, session: session}
}

// Connect spawns the memory server process and performs the MCP handshake.
func (m *memoryIntegrator) Connect(ctx context.Context) error {
	if m.session != nil {
		return nil
	}
	if m.cfg.Command == "" {
		return fmt.Errorf("connecting to memory server: no command configured")
	}

	cmd := exec.Command(m.cfg.Command, m.cfg.Args...)
	session, err := m.client.Connect(ctx, &gomcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return fmt.Errorf("connecting to memory server: %w", err)
	}
	m.session = session
	m.closer = session.Close
	return nil
}

// Close shuts down the server session, if one was established.
func (m *memoryIntegrator) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// StoreItem persists a normalized snapshot of the item in shared memory,
// tagged for sprint planning retrieval.
func (m *memoryIntegrator) StoreItem(ctx context.Context, item *models.Item) error {
	args := map[string]any{
		"title":              item.MemoryTitle(),
		"content":            item.MemoryContent(),
		"creator_persona_id": m.cfg.CreatorContextID,
		"permission_level":   m.cfg.PermissionLevel,
		"tags":               item.MemoryTags(),
	}
	if err := m.call(ctx, toolStoreMemory, args); err != nil {
		return fmt.Errorf("storing item %q: %w", item.Title, err)
	}
	return nil
}

// NotifyTeam sends the new-item message to every configured recipient.
// Delivery is per-recipient best-effort: remaining recipients are still
// attempted after a failure, and the first error is returned.
func (m *memoryIntegrator) NotifyTeam(ctx context.Context, item *models.Item) error {
	message := notificationMessage(item)

	var firstErr error
	for _, r := range m.recipients {
		args := map[string]any{
			"recipient_context_id": r.ContextID,
			"message":              message,
		}
		if err := m.call(ctx, toolNotify, args); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("notifying %s: %w", r.Role, err)
		}
	}
	return firstErr
}

// UpdateSprintSummary replaces the sprint summary record with an aggregate
// view of the batch.
func (m *memoryIntegrator) UpdateSprintSummary(ctx context.Context, items []*models.Item) error {
	args := map[string]any{
		"title":              sprintSummaryTitle,
		"content":            BuildSprintSummary(items),
		"updater_persona_id": m.cfg.UpdaterContextID,
	}
	if err := m.call(ctx, toolUpdateMemory, args); err != nil {
		return fmt.Errorf("updating sprint summary: %w", err)
	}
	return nil
}

func (m *memoryIntegrator) call(ctx context.Context, tool string, args map[string]any) error {
	if m.session == nil {
		return fmt.Errorf("memory server not connected")
	}

	result, err := m.session.CallTool(ctx, &gomcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return fmt.Errorf("calling %s: %w", tool, err)
	}
	if result.IsError {
		return fmt.Errorf("calling %s: %s", tool, resultText(result))
	}
	return nil
}

func resultText(result *gomcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(*gomcp.TextContent); ok {
			return tc.Text
		}
	}
	return "tool returned an error"
}

// notificationMessage renders the alert sent to each team recipient.
func notificationMessage(item *models.Item) string {
	return fmt.Sprintf(`新しいProduct Backlogアイテムが追加されました:

**[%s] %s**

**概要**: %s
**受益者**: %s
**受諾条件**: %s

次回Sprint Planningでの検討が必要です。`,
		item.Priority, item.Title,
		item.Description, item.Beneficiary, item.AcceptanceCriteria,
	)
}

// BuildSprintSummary renders the aggregate batch view pushed to shared
// memory: per-priority counts in scheduling order, then item details sorted
// HIGH first.
func BuildSprintSummary(items []*models.Item) string {
	if len(items) == 0 {
		return "No new backlog items processed."
	}

	counts := make(map[models.Priority]int)
	for _, item := range items {
		counts[item.Priority]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Sprint Product Backlog Update\n\n## 新規追加アイテム（%d件）\n\n### 優先度別サマリー\n", len(items))

	for _, p := range []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		if counts[p] > 0 {
			fmt.Fprintf(&b, "- **%s**: %d件\n", p, counts[p])
		}
	}

	b.WriteString("\n### アイテム詳細\n")
	sorted := make([]*models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority.Rank() < sorted[j].Priority.Rank()
	})
	for _, item := range sorted {
		fmt.Fprintf(&b, "\n#### [%s] %s\n- **受益者**: %s\n- **説明**: %s\n- **受諾条件**: %s\n",
			item.Priority, item.Title, item.Beneficiary, item.Description, item.AcceptanceCriteria)
	}

	b.WriteString(`
## Sprint Planning への影響
- 優先度HIGHアイテムは次回Sprint候補
- 依存関係の確認が必要
- 工数見積もりとキャパシティ計画の更新

## 推奨アクション
1. TechnicalLeadによる技術的実現性の評価
2. QAEngineerによるテスト戦略の検討
3. 既存Sprint Backlogとの優先度調整
`)

	return b.String()
}
