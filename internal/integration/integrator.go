// Package integration contains adapters to the external collaborators of the
// backlog relay: the shared associative memory server reached over MCP, and a
// no-op stand-in used when that server is unavailable or disabled.
package integration

import (
	"context"

	"github.com/valter-silva-au/backlog-relay/pkg/models"
)

// Integrator is the downstream boundary consumed by the processor. Every
// operation is best-effort and individually fault-isolated: callers record a
// failure and keep going, and a failure in one operation never prevents the
// others from being attempted.
type Integrator interface {
	// StoreItem persists a normalized snapshot of a processed item.
	StoreItem(ctx context.Context, item *models.Item) error

	// NotifyTeam fans out a new-item alert to the configured recipients.
	NotifyTeam(ctx context.Context, item *models.Item) error

	// UpdateSprintSummary pushes an aggregate view of the whole batch.
	UpdateSprintSummary(ctx context.Context, items []*models.Item) error
}

// noopIntegrator is the explicit null implementation, selected via
// configuration when no memory server is wired up. Items are still processed
// and synchronized locally; the downstream calls simply succeed silently.
type noopIntegrator struct{}

// NewNoopIntegrator returns an Integrator that accepts every call and does
// nothing.
func NewNoopIntegrator() Integrator {
	return noopIntegrator{}
}

func (noopIntegrator) StoreItem(context.Context, *models.Item) error             { return nil }
func (noopIntegrator) NotifyTeam(context.Context, *models.Item) error            { return nil }
func (noopIntegrator) UpdateSprintSummary(context.Context, []*models.Item) error { return nil }
