package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

type fakeIntegrator struct {
	storeErr     map[string]error
	notifyErr    map[string]error
	summarizeErr error

	stored     []string
	notified   []string
	summarized int
	lastBatch  []*models.Item
}

func (f *fakeIntegrator) StoreItem(_ context.Context, item *models.Item) error {
	f.stored = append(f.stored, item.Title)
	return f.storeErr[item.Title]
}

func (f *fakeIntegrator) NotifyTeam(_ context.Context, item *models.Item) error {
	f.notified = append(f.notified, item.Title)
	return f.notifyErr[item.Title]
}

func (f *fakeIntegrator) UpdateSprintSummary(_ context.Context, items []*models.Item) error {
	f.summarized++
	f.lastBatch = items
	return f.summarizeErr
}

func fixedClock() Clock {
	return func() time.Time {
		return time.Date(2025, 8, 2, 16, 30, 0, 0, time.Local)
	}
}

func newItems(titles ...string) []*models.Item {
	items := make([]*models.Item, len(titles))
	for i, title := range titles {
		items[i] = &models.Item{
			Priority:           models.PriorityHigh,
			Title:              title,
			Description:        "説明",
			Beneficiary:        "QA",
			AcceptanceCriteria: "条件",
			CreatedAt:          "2025-08-02 16:10:00",
			Status:             models.StatusNew,
		}
	}
	return items
}

func TestProcess(t *testing.T) {
	fake := &fakeIntegrator{}
	proc := NewProcessor(fake, nil, fixedClock(), 0)

	items := newItems("A", "B")
	result := proc.Process(context.Background(), items)

	if result.Count() != 2 {
		t.Fatalf("expected 2 processed, got %d", result.Count())
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	for _, item := range items {
		if item.Status != models.StatusProcessed {
			t.Errorf("item %q not transitioned", item.Title)
		}
		if item.ProcessedAt != "2025-08-02 16:30:00" {
			t.Errorf("item %q has processed_at %q", item.Title, item.ProcessedAt)
		}
	}
	if len(fake.stored) != 2 || len(fake.notified) != 2 {
		t.Fatalf("expected store and notify per item, got stored=%v notified=%v", fake.stored, fake.notified)
	}
	if fake.summarized != 1 {
		t.Fatalf("expected exactly one summary push, got %d", fake.summarized)
	}
	if len(fake.lastBatch) != 2 {
		t.Fatalf("summary did not receive the full batch: %d", len(fake.lastBatch))
	}
}

func TestProcess_BadItemSkipped(t *testing.T) {
	fake := &fakeIntegrator{}
	proc := NewProcessor(fake, nil, fixedClock(), 0)

	items := newItems("A", "B", "C")
	items[1].Status = models.StatusProcessed
	items[1].ProcessedAt = "2025-08-01 00:00:00"

	result := proc.Process(context.Background(), items)

	if result.Count() != 2 {
		t.Fatalf("expected 2 processed, got %d", result.Count())
	}
	titles := []string{result.Processed[0].Title, result.Processed[1].Title}
	if titles[0] != "A" || titles[1] != "C" {
		t.Fatalf("wrong items in batch: %v", titles)
	}
	for _, stored := range fake.stored {
		if stored == "B" {
			t.Fatal("skipped item reached the integrator")
		}
	}
	if items[1].ProcessedAt != "2025-08-01 00:00:00" {
		t.Fatalf("skipped item was restamped: %q", items[1].ProcessedAt)
	}
}

func TestProcess_IntegrationFailureNonFatal(t *testing.T) {
	fake := &fakeIntegrator{
		storeErr:  map[string]error{"A": errors.New("memory server down")},
		notifyErr: map[string]error{"B": errors.New("recipient unknown")},
	}
	proc := NewProcessor(fake, nil, fixedClock(), 0)

	items := newItems("A", "B")
	result := proc.Process(context.Background(), items)

	// Downstream failures never revert the local transition.
	if result.Count() != 2 {
		t.Fatalf("expected both items processed, got %d", result.Count())
	}
	for _, item := range items {
		if item.Status != models.StatusProcessed {
			t.Errorf("item %q reverted by integration failure", item.Title)
		}
	}

	if len(result.Failures) != 2 {
		t.Fatalf("expected 2 recorded failures, got %+v", result.Failures)
	}
	ops := map[string]string{}
	for _, f := range result.Failures {
		ops[f.Title] = f.Op
	}
	if ops["A"] != "store" || ops["B"] != "notify" {
		t.Fatalf("unexpected failure ops: %v", ops)
	}
}

func TestProcess_SummarizeFailureRecorded(t *testing.T) {
	fake := &fakeIntegrator{summarizeErr: errors.New("update rejected")}
	proc := NewProcessor(fake, nil, fixedClock(), 0)

	result := proc.Process(context.Background(), newItems("A"))

	if result.Count() != 1 {
		t.Fatalf("expected 1 processed, got %d", result.Count())
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected summarize failure, got %+v", result.Failures)
	}
	f := result.Failures[0]
	if f.Op != "summarize" || f.Title != "" {
		t.Fatalf("unexpected failure record: %+v", f)
	}
}

func TestProcess_EmptyBatch(t *testing.T) {
	fake := &fakeIntegrator{}
	proc := NewProcessor(fake, nil, fixedClock(), 0)

	result := proc.Process(context.Background(), nil)

	if result.Count() != 0 || len(result.Failures) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if fake.summarized != 0 {
		t.Fatal("summary pushed for an empty batch")
	}
}

func TestProcess_CountConservation(t *testing.T) {
	fake := &fakeIntegrator{}
	proc := NewProcessor(fake, nil, fixedClock(), 0)

	items := newItems("A", "B", "C", "D")
	items[2].Status = models.StatusProcessed
	items[2].ProcessedAt = "2025-08-01 00:00:00"

	result := proc.Process(context.Background(), items)

	skipped := len(items) - result.Count()
	if skipped != 1 {
		t.Fatalf("processed + skipped must cover the input: processed=%d skipped=%d", result.Count(), skipped)
	}
}
