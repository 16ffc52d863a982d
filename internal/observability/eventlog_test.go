package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLog(t *testing.T) (EventLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log, path
}

func TestEventLogWriteRead(t *testing.T) {
	log, _ := newTestLog(t)

	events := []Event{
		{Time: time.Now(), Level: "INFO", Type: EventItemProcessed, Message: "Add search filter",
			Data: map[string]any{"priority": "HIGH"}},
		{Time: time.Now(), Level: "WARN", Type: EventIntegrationFailed, Message: "store failed",
			Data: map[string]any{"title": "Add search filter", "op": "store"}},
		{Time: time.Now(), Level: "INFO", Type: EventRunCompleted, Message: "backlog run completed"},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if got[0].Type != EventItemProcessed || got[0].Message != "Add search filter" {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if priority, ok := got[0].Data["priority"].(string); !ok || priority != "HIGH" {
		t.Fatalf("event data not round-tripped: %+v", got[0].Data)
	}
}

func TestEventLogFilter(t *testing.T) {
	log, _ := newTestLog(t)

	base := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		level := "INFO"
		typ := EventItemProcessed
		if i%2 == 1 {
			level = "WARN"
			typ = EventIntegrationFailed
		}
		if err := log.Write(Event{Time: base.Add(time.Duration(i) * time.Hour), Level: level, Type: typ}); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	warns, err := log.Read(EventFilter{Level: "WARN"})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(warns) != 2 {
		t.Fatalf("expected 2 WARN events, got %d", len(warns))
	}

	since := base.Add(2*time.Hour + time.Minute)
	recent, err := log.Read(EventFilter{Since: &since})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent events, got %d", len(recent))
	}

	typed, err := log.Read(EventFilter{Type: EventItemProcessed})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(typed) != 3 {
		t.Fatalf("expected 3 item.processed events, got %d", len(typed))
	}
}

func TestEventLogSkipsMalformedLines(t *testing.T) {
	log, path := newTestLog(t)

	if err := log.Write(Event{Time: time.Now(), Level: "INFO", Type: EventRunCompleted}); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	if _, err := f.WriteString("{not json}\n"); err != nil {
		t.Fatalf("corrupting log: %v", err)
	}
	_ = f.Close()

	if err := log.Write(Event{Time: time.Now(), Level: "INFO", Type: EventRunCompleted}); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected malformed line skipped, got %d events", len(got))
	}
}

func TestEventLogJSONLFormat(t *testing.T) {
	log, path := newTestLog(t)

	if err := log.Write(Event{Time: time.Now(), Level: "INFO", Type: EventDocumentSynced, Message: "doc"}); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"type":"document.synced"`) {
		t.Fatalf("unexpected line %q", lines[0])
	}
}
