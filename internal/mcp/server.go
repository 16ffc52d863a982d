// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the backlog relay pipeline as tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/backlog-relay/internal/core"
	"github.com/valter-silva-au/backlog-relay/internal/observability"
)

// Server wraps the relay pipeline and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	docPath     string
	pipeline    *core.Pipeline
	metricsCalc observability.MetricsCalculator
}

// NewServer creates an MCP server over the given pipeline and document.
// metricsCalc may be nil if observability is disabled.
func NewServer(docPath string, pipeline *core.Pipeline, metricsCalc observability.MetricsCalculator, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		docPath:     docPath,
		pipeline:    pipeline,
		metricsCalc: metricsCalc,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "backlog-relay", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type listNewItemsInput struct{}

type itemOutput struct {
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Beneficiary string `json:"beneficiary"`
	CreatedAt   string `json:"created_at"`
	Status      string `json:"status"`
}

type listNewItemsOutput struct {
	Items            []itemOutput `json:"items"`
	Count            int          `json:"count"`
	Skipped          int          `json:"skipped"`
	AlreadyProcessed int          `json:"already_processed"`
}

type processBacklogInput struct{}

type processBacklogOutput struct {
	Found        int      `json:"found"`
	Processed    int      `json:"processed"`
	RemainingNew int      `json:"remaining_new"`
	FailedItems  []string `json:"failed_items,omitempty"`
	ReportPath   string   `json:"report_path,omitempty"`
}

type getRunMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type runMetricsOutput struct {
	RunsCompleted     int            `json:"runs_completed"`
	ItemsProcessed    int            `json:"items_processed"`
	ItemsByPriority   map[string]int `json:"items_by_priority"`
	IntegrationFailed int            `json:"integration_failed"`
	FailedItems       []string       `json:"failed_items,omitempty"`
	EventCount        int            `json:"event_count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_new_items",
		Description: "Parse the backlog document and list records still in NEW status, without processing them.",
	}, s.handleListNewItems)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "process_backlog",
		Description: "Run one full pipeline pass: discover NEW items, transition them to PROCESSED, store them downstream, rewrite the document, and write a report.",
	}, s.handleProcessBacklog)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_run_metrics",
		Description: "Get aggregated run metrics from the event log, including processed counts by priority and items that failed remote integration.",
	}, s.handleGetRunMetrics)
}

// --- Tool handlers ---

func (s *Server) handleListNewItems(_ context.Context, _ *gomcp.CallToolRequest, _ listNewItemsInput) (*gomcp.CallToolResult, listNewItemsOutput, error) {
	content, err := core.LoadDocument(s.docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, listNewItemsOutput{Items: []itemOutput{}}, nil
		}
		return errorResult(fmt.Sprintf("reading document: %s", err)), listNewItemsOutput{}, nil
	}

	parsed := core.ParseDocument(content)
	out := listNewItemsOutput{
		Items:            make([]itemOutput, len(parsed.Items)),
		Count:            len(parsed.Items),
		Skipped:          parsed.Skipped,
		AlreadyProcessed: parsed.AlreadyProcessed,
	}
	for i, item := range parsed.Items {
		out.Items[i] = itemOutput{
			Priority:    string(item.Priority),
			Title:       item.Title,
			Beneficiary: item.Beneficiary,
			CreatedAt:   item.CreatedAt,
			Status:      string(item.Status),
		}
	}
	return nil, out, nil
}

func (s *Server) handleProcessBacklog(ctx context.Context, _ *gomcp.CallToolRequest, _ processBacklogInput) (*gomcp.CallToolResult, processBacklogOutput, error) {
	if s.pipeline == nil {
		return errorResult("pipeline not initialized"), processBacklogOutput{}, nil
	}

	summary, err := s.pipeline.Run(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("processing backlog: %s", err)), processBacklogOutput{}, nil
	}

	out := processBacklogOutput{
		Found:        summary.Found,
		Processed:    summary.Processed,
		RemainingNew: summary.RemainingNew,
		ReportPath:   summary.ReportPath,
	}
	for _, f := range summary.Failures {
		if f.Title != "" {
			out.FailedItems = append(out.FailedItems, f.Title)
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetRunMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getRunMetricsInput) (*gomcp.CallToolResult, runMetricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyRunMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyRunMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyRunMetricsOutput(), nil
	}

	return nil, runMetricsOutput{
		RunsCompleted:     metrics.RunsCompleted,
		ItemsProcessed:    metrics.ItemsProcessed,
		ItemsByPriority:   metrics.ItemsByPriority,
		IntegrationFailed: metrics.IntegrationFailed,
		FailedItems:       metrics.FailedItems,
		EventCount:        metrics.EventCount,
	}, nil
}

// --- Helpers ---

func emptyRunMetricsOutput() runMetricsOutput {
	return runMetricsOutput{ItemsByPriority: make(map[string]int)}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or
// "24h" into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	var value int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &value); err != nil || value <= 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	switch suffix {
	case 'd':
		return now.Add(-time.Duration(value) * 24 * time.Hour), nil
	case 'h':
		return now.Add(-time.Duration(value) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("invalid duration suffix %q: use d or h", string(suffix))
	}
}
