package core

import (
	"context"
	"time"

	"github.com/valter-silva-au/backlog-relay/internal/integration"
	"github.com/valter-silva-au/backlog-relay/internal/observability"
	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// DefaultCallTimeout bounds each downstream integrator call. An unresponsive
// memory server then surfaces as an ordinary best-effort failure instead of
// stalling the run.
const DefaultCallTimeout = 30 * time.Second

// Clock supplies wall-clock time, injectable for tests.
type Clock func() time.Time

// IntegrationFailure records one downstream call that failed for an item that
// was still processed locally. The local PROCESSED transition is intentional
// degraded-mode behavior: progress is never blocked by remote unavailability,
// so these failures must be surfaced rather than swallowed.
type IntegrationFailure struct {
	Title string // item title; empty for batch-level operations
	Op    string // store, notify, or summarize
	Err   string
}

// BatchResult is the explicit outcome of one processing pass, threaded
// through the pipeline rather than accumulated on shared state.
type BatchResult struct {
	// Processed holds items successfully transitioned, in input order.
	Processed []*models.Item
	// Failures lists the downstream calls that did not succeed.
	Failures []IntegrationFailure
}

// Count returns the number of items successfully added to the batch.
func (r BatchResult) Count() int {
	return len(r.Processed)
}

// Processor advances NEW items to PROCESSED and hands each one to the
// downstream integrator.
type Processor struct {
	integrator integration.Integrator
	events     observability.EventLog // may be nil
	clock      Clock
	timeout    time.Duration
}

// NewProcessor creates a Processor. A nil clock defaults to time.Now and a
// zero timeout to DefaultCallTimeout. events may be nil to disable the log.
func NewProcessor(intg integration.Integrator, events observability.EventLog, clock Clock, timeout time.Duration) *Processor {
	if clock == nil {
		clock = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Processor{
		integrator: intg,
		events:     events,
		clock:      clock,
		timeout:    timeout,
	}
}

// Process transitions each item and invokes the integrator. Per-item errors
// exclude only that item; downstream failures are recorded but never revert
// the local transition or abort the batch. After the item loop the sprint
// summary is pushed once for the whole batch.
func (p *Processor) Process(ctx context.Context, items []*models.Item) BatchResult {
	var result BatchResult

	for _, item := range items {
		if err := item.MarkProcessed(p.clock()); err != nil {
			// One bad item never aborts the batch; it is logged and skipped.
			p.logEvent("WARN", "item.skipped", err.Error(), map[string]any{
				"title": item.Title,
			})
			continue
		}

		if err := p.callBounded(ctx, func(ctx context.Context) error {
			return p.integrator.StoreItem(ctx, item)
		}); err != nil {
			result.Failures = append(result.Failures, IntegrationFailure{Title: item.Title, Op: "store", Err: err.Error()})
			p.logFailure(item.Title, "store", err)
		}

		if err := p.callBounded(ctx, func(ctx context.Context) error {
			return p.integrator.NotifyTeam(ctx, item)
		}); err != nil {
			result.Failures = append(result.Failures, IntegrationFailure{Title: item.Title, Op: "notify", Err: err.Error()})
			p.logFailure(item.Title, "notify", err)
		}

		result.Processed = append(result.Processed, item)
		p.logEvent("INFO", observability.EventItemProcessed, item.Title, map[string]any{
			"title":        item.Title,
			"priority":     string(item.Priority),
			"processed_at": item.ProcessedAt,
		})
	}

	if len(result.Processed) > 0 {
		if err := p.callBounded(ctx, func(ctx context.Context) error {
			return p.integrator.UpdateSprintSummary(ctx, result.Processed)
		}); err != nil {
			result.Failures = append(result.Failures, IntegrationFailure{Op: "summarize", Err: err.Error()})
			p.logFailure("", "summarize", err)
		}
	}

	return result
}

func (p *Processor) callBounded(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return fn(callCtx)
}

func (p *Processor) logFailure(title, op string, err error) {
	p.logEvent("WARN", observability.EventIntegrationFailed, err.Error(), map[string]any{
		"title": title,
		"op":    op,
	})
}

func (p *Processor) logEvent(level, typ, msg string, data map[string]any) {
	if p.events == nil {
		return
	}
	_ = p.events.Write(observability.Event{
		Time:    p.clock(),
		Level:   level,
		Type:    typ,
		Message: msg,
		Data:    data,
	})
}
