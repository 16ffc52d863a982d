package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/backlog-relay/internal/core"
)

const appTestDocument = `### [HIGH] Add search filter
- **説明**: 検索結果を絞り込むフィルタ機能
- **受益者**: エンドユーザー
- **受諾条件**: キーワードで絞り込めること
- **作成日時**: 2025-08-02 16:10:00
- **ステータス**: NEW
`

func TestResolveBasePath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BLR_HOME", dir)
	if got := ResolveBasePath(); got != dir {
		t.Fatalf("expected BLR_HOME to win, got %q", got)
	}

	t.Setenv("BLR_HOME", "")
	wd, _ := os.Getwd()
	if got := ResolveBasePath(); got != wd {
		t.Fatalf("expected working directory, got %q", got)
	}
}

func TestNewApp(t *testing.T) {
	dir := t.TempDir()

	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if app.ConfigMgr == nil || app.Config == nil {
		t.Fatal("configuration not wired")
	}
	if app.Processor == nil || app.Pipeline == nil {
		t.Fatal("core services not wired")
	}
	if app.Integrator == nil {
		t.Fatal("integrator not wired")
	}
	if app.RunHistory == nil {
		t.Fatal("run history not wired")
	}
	if app.EventLog == nil || app.MetricsCalc == nil {
		t.Fatal("observability not wired")
	}
	if app.Notifier != nil {
		t.Fatal("notifier wired without a webhook")
	}

	if !filepath.IsAbs(app.Config.DocumentPath) {
		t.Fatalf("document path not absolutized: %q", app.Config.DocumentPath)
	}
	if !strings.HasPrefix(app.Config.DocumentPath, dir) {
		t.Fatalf("document path outside base: %q", app.Config.DocumentPath)
	}
}

func TestNewApp_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `report:
  dir: out/reports
notifications:
  slack:
    webhook_url: https://hooks.slack.com/services/T000/B000/XXX
`
	if err := os.WriteFile(filepath.Join(dir, ".backlogrc.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Config.ReportDir != filepath.Join(dir, "out/reports") {
		t.Fatalf("report dir not resolved: %q", app.Config.ReportDir)
	}
	if app.Notifier == nil {
		t.Fatal("notifier not wired from webhook config")
	}
}

// Full pass through the wired pipeline with the default no-op integrator.
func TestNewApp_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "product-backlog-requests.md"), []byte(appTestDocument), 0o644); err != nil {
		t.Fatalf("seeding document: %v", err)
	}

	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := app.Pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("running pipeline: %v", err)
	}
	if summary.Found != 1 || summary.Processed != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	// Run recorded through the storage adapter.
	runs, err := app.RunHistory.All()
	if err != nil {
		t.Fatalf("listing runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Processed != 1 {
		t.Fatalf("run not recorded: %+v", runs)
	}

	// Metrics visible through the event log.
	metrics, err := app.MetricsCalc.Calculate(time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if metrics.ItemsProcessed != 1 || metrics.RunsCompleted != 1 {
		t.Fatalf("unexpected metrics %+v", metrics)
	}
}

func TestRunRecorderAdapter(t *testing.T) {
	dir := t.TempDir()
	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	adapter := &runRecorderAdapter{history: app.RunHistory}
	summary := core.RunSummary{
		Found:     2,
		Processed: 2,
		Failures: []core.IntegrationFailure{
			{Title: "Add search filter", Op: "store", Err: "down"},
			{Op: "summarize", Err: "down"},
		},
		ReportPath: filepath.Join(dir, "report.md"),
	}
	if err := adapter.RecordRun(summary, time.Date(2025, 8, 2, 16, 30, 0, 0, time.Local)); err != nil {
		t.Fatalf("recording run: %v", err)
	}

	runs, _ := app.RunHistory.All()
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	record := runs[0]
	if record.StartedAt != "2025-08-02 16:30:00" {
		t.Errorf("unexpected started_at %q", record.StartedAt)
	}
	// Batch-level failures carry no title and stay out of the item list.
	if len(record.FailedItems) != 1 || record.FailedItems[0] != "Add search filter" {
		t.Errorf("unexpected failed items %v", record.FailedItems)
	}
}
