// Package adapters declares the capability surface the sync engine expects
// from each external system. Concrete adapters (the Exporta client, the
// calendar client, the messaging gateways) live outside this engine and speak
// their own wire protocols; the orchestrator and the health monitor depend
// only on these interfaces.
package adapters

import (
	"context"
	"time"

	"go-venue/internal/common/models"
)

// PingResult is the outcome of one health probe.
type PingResult struct {
	Healthy bool
	Latency time.Duration
}

// EntityAdapter is implemented once per external system.
//
// Fetch returns the current external-side representation of one record, or an
// error matching apperrors.ErrNotFound when the record does not exist there.
// Any other failure is treated as an AdapterError by the orchestrator.
type EntityAdapter interface {
	System() models.ExternalSystem
	Fetch(ctx context.Context, entityType models.InternalEntityType, externalID string) (*models.Snapshot, error)
	List(ctx context.Context, entityType models.InternalEntityType) ([]string, error)
	Ping(ctx context.Context) (PingResult, error)
}

// InternalStateProvider is the internal-side hook the adapter layer supplies.
// The engine never talks to the booking tables directly; it asks the provider
// to correlate, watermark, and apply external snapshots.
type InternalStateProvider interface {
	// Correlate resolves (or creates) the internal entity for a fetched
	// snapshot and returns its id.
	Correlate(ctx context.Context, snapshot *models.Snapshot) (string, error)
	// Checksum returns the current internal-side watermark for an entity.
	Checksum(ctx context.Context, entityType models.InternalEntityType, internalEntityID string) (string, error)
	// Apply writes the external snapshot onto the internal entity.
	Apply(ctx context.Context, entityType models.InternalEntityType, internalEntityID string, snapshot *models.Snapshot) error
}

// ConflictResolver is optionally implemented by an InternalStateProvider that
// can merge diverged state. The orchestrator only consults it when the caller
// asked for resolveConflicts.
type ConflictResolver interface {
	Merge(ctx context.Context, entityType models.InternalEntityType, internalEntityID string, external *models.Snapshot, previous *models.Snapshot) (*models.Snapshot, error)
}
