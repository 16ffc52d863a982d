package observability

import (
	"fmt"
	"time"
)

// Metrics holds aggregate counts derived from the event log.
type Metrics struct {
	RunsCompleted     int            `json:"runs_completed"`
	ItemsProcessed    int            `json:"items_processed"`
	ItemsByPriority   map[string]int `json:"items_by_priority"`
	IntegrationFailed int            `json:"integration_failed"`
	FailedItems       []string       `json:"failed_items,omitempty"`
	DocumentsSynced   int            `json:"documents_synced"`
	LastRemainingNew  int            `json:"last_remaining_new"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them.
// In particular it surfaces which items failed remote integration, since a
// failed store never blocks the local status transition.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		ItemsByPriority: make(map[string]int),
	}
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case EventItemProcessed:
			m.ItemsProcessed++
			if priority, ok := event.Data["priority"].(string); ok {
				m.ItemsByPriority[priority]++
			}
		case EventIntegrationFailed:
			m.IntegrationFailed++
			if title, ok := event.Data["title"].(string); ok && title != "" {
				m.FailedItems = append(m.FailedItems, title)
			}
		case EventDocumentSynced:
			m.DocumentsSynced++
			if remaining, ok := event.Data["remaining_new"].(float64); ok {
				m.LastRemainingNew = int(remaining)
			}
		case EventRunCompleted:
			m.RunsCompleted++
		}
	}

	return m, nil
}
