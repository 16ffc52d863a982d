package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/valter-silva-au/backlog-relay/internal/observability"
)

// RunRecorder persists the outcome of a completed run. Implemented by the
// storage package through an adapter wired in app initialization.
type RunRecorder interface {
	RecordRun(summary RunSummary, startedAt time.Time) error
}

// RunSummary is the outcome of one end-to-end pipeline run.
type RunSummary struct {
	Found            int // NEW items discovered by the parser
	Processed        int // items successfully transitioned
	Skipped          int // malformed records dropped during parsing
	AlreadyProcessed int // well-formed records already terminal
	RemainingNew     int // NEW markers left in the document after sync
	Failures         []IntegrationFailure

	Report     string // rendered report (sentinel text when nothing processed)
	ReportPath string // empty when no report file was written
}

// Pipeline runs the ingestion-transition-persistence flow over a single
// backlog document: parse, process, synchronize, report.
type Pipeline struct {
	docPath   string
	reportDir string
	processor *Processor
	events    observability.EventLog // may be nil
	runs      RunRecorder            // may be nil
	notifier  observability.Notifier // may be nil
	clock     Clock
}

// NewPipeline creates a Pipeline. events, runs, and notifier may be nil; a
// nil clock defaults to time.Now.
func NewPipeline(docPath, reportDir string, processor *Processor, events observability.EventLog, runs RunRecorder, notifier observability.Notifier, clock Clock) *Pipeline {
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		docPath:   docPath,
		reportDir: reportDir,
		processor: processor,
		events:    events,
		runs:      runs,
		notifier:  notifier,
		clock:     clock,
	}
}

// Run executes one pass. The document is held under an exclusive lock for the
// whole read-modify-write cycle; concurrent runs against the same document
// serialize on it. A run with zero NEW items succeeds without touching the
// document or writing a report. Only a failed document or report write is
// fatal; everything smaller absorbs its own failure.
func (pl *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	startedAt := pl.clock()

	unlock, err := lockDocument(pl.docPath)
	if err != nil {
		return nil, fmt.Errorf("running pipeline: %w", err)
	}
	defer func() { _ = unlock() }()

	content, err := LoadDocument(pl.docPath)
	if err != nil {
		if os.IsNotExist(err) {
			// No document means nothing to discover.
			return &RunSummary{Report: BuildReport(nil, startedAt)}, nil
		}
		return nil, fmt.Errorf("running pipeline: reading document: %w", err)
	}

	parsed := ParseDocument(content)
	summary := &RunSummary{
		Found:            len(parsed.Items),
		Skipped:          parsed.Skipped,
		AlreadyProcessed: parsed.AlreadyProcessed,
	}

	if summary.Found == 0 {
		summary.Report = BuildReport(nil, startedAt)
		return summary, nil
	}

	batch := pl.processor.Process(ctx, parsed.Items)
	summary.Processed = batch.Count()
	summary.Failures = batch.Failures

	synced := SyncDocument(content, batch.Processed, pl.clock())
	summary.RemainingNew = synced.RemainingNew

	// The document rewrite is the run's one fatal step: an in-memory report
	// is discarded when it fails.
	if err := SaveDocument(pl.docPath, synced.Content); err != nil {
		return nil, fmt.Errorf("running pipeline: %w", err)
	}
	pl.logEvent("INFO", observability.EventDocumentSynced, pl.docPath, map[string]any{
		"replaced":      synced.Replaced,
		"remaining_new": synced.RemainingNew,
	})

	summary.Report = BuildReport(batch.Processed, pl.clock())
	if summary.Processed > 0 {
		path, err := WriteReport(pl.reportDir, summary.Report, startedAt)
		if err != nil {
			return nil, fmt.Errorf("running pipeline: %w", err)
		}
		summary.ReportPath = path
	}

	pl.logEvent("INFO", observability.EventRunCompleted, "backlog run completed", map[string]any{
		"found":     summary.Found,
		"processed": summary.Processed,
		"failed":    len(summary.Failures),
	})

	if pl.runs != nil {
		// Best-effort bookkeeping; a failed history write never fails the run.
		if err := pl.runs.RecordRun(*summary, startedAt); err != nil {
			pl.logEvent("WARN", "run.history_failed", err.Error(), nil)
		}
	}

	pl.notifyFailures(summary.Failures)

	return summary, nil
}

// notifyFailures pushes integration failures to the external notifier, if one
// is configured. Fire-and-forget: the result is ignored beyond a log line.
func (pl *Pipeline) notifyFailures(failures []IntegrationFailure) {
	if pl.notifier == nil || len(failures) == 0 {
		return
	}

	alerts := make([]observability.Alert, 0, len(failures))
	for _, f := range failures {
		msg := fmt.Sprintf("%s failed: %s", f.Op, f.Err)
		if f.Title != "" {
			msg = fmt.Sprintf("%s failed for %q: %s", f.Op, f.Title, f.Err)
		}
		alerts = append(alerts, observability.Alert{
			Severity:    "medium",
			Message:     msg,
			TriggeredAt: pl.clock(),
		})
	}
	if err := pl.notifier.Notify(alerts); err != nil {
		pl.logEvent("WARN", "notify.failed", err.Error(), nil)
	}
}

func (pl *Pipeline) logEvent(level, typ, msg string, data map[string]any) {
	if pl.events == nil {
		return
	}
	_ = pl.events.Write(observability.Event{
		Time:    pl.clock(),
		Level:   level,
		Type:    typ,
		Message: msg,
		Data:    data,
	})
}
