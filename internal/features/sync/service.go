package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-venue/internal/adapters"
	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/common/models"
	"go-venue/internal/config"
	"go-venue/internal/features/mapping"
	"go-venue/internal/features/monitor"

	"go.uber.org/zap"
)

// SyncOptions tunes one sync run. ForceUpdate re-applies the external state
// even when the snapshot looks unchanged; it never overrides conflict
// protection. ResolveConflicts lets the provider's merge strategy run instead
// of flagging the mapping.
type SyncOptions struct {
	ForceUpdate      bool `json:"force_update"`
	ResolveConflicts bool `json:"resolve_conflicts"`
}

// SyncResult is the outcome of one single-entity sync.
type SyncResult struct {
	Success   bool   `json:"success"`
	MappingID string `json:"mapping_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkSyncResult summarizes an entity-type-wide sync.
type BulkSyncResult struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// HealthCheckResult is the orchestrator's view of system health.
type HealthCheckResult struct {
	Systems       map[models.ExternalSystem]bool `json:"systems"`
	OverallHealth bool                           `json:"overall_health"`
}

type SyncService interface {
	SyncEntity(ctx context.Context, system models.ExternalSystem, externalID string, entityType models.InternalEntityType, opts SyncOptions) (*SyncResult, error)
	SyncEntities(ctx context.Context, system models.ExternalSystem, entityType models.InternalEntityType, opts SyncOptions) (*BulkSyncResult, error)
	HealthCheck() *HealthCheckResult
	GetSyncStats(ctx context.Context, system models.ExternalSystem, entityType models.InternalEntityType) (*mapping.MappingStats, error)
	Cleanup(ctx context.Context, daysOld int) (int64, error)
}

type SyncServiceImpl struct {
	MappingRepo   mapping.MappingRepository
	Registry      *adapters.Registry
	Provider      adapters.InternalStateProvider
	Monitor       monitor.MonitorService
	Logger        *zap.Logger
	RetentionDays int
}

func NewSyncService(
	mappingRepo mapping.MappingRepository,
	registry *adapters.Registry,
	provider adapters.InternalStateProvider,
	monitorService monitor.MonitorService,
	logger *zap.Logger,
	cfg *config.Config,
) SyncService {
	return &SyncServiceImpl{
		MappingRepo:   mappingRepo,
		Registry:      registry,
		Provider:      provider,
		Monitor:       monitorService,
		Logger:        logger,
		RetentionDays: cfg.MappingRetentionDays,
	}
}

// SyncEntity reconciles one external record with its internal counterpart.
//
// Adapter failures are recorded on the mapping and come back as a failed
// result with a nil error, so bulk callers keep going. Storage failures and
// creation conflicts are returned as errors.
func (s *SyncServiceImpl) SyncEntity(ctx context.Context, system models.ExternalSystem, externalID string, entityType models.InternalEntityType, opts SyncOptions) (*SyncResult, error) {
	if !system.Valid() {
		return nil, apperrors.Validation("unknown external system %q", system)
	}
	if !entityType.Valid() {
		return nil, apperrors.Validation("unknown entity type %q", entityType)
	}
	if externalID == "" || len(externalID) > 255 {
		return nil, apperrors.Validation("external id must be 1-255 characters")
	}

	adapter, ok := s.Registry.Get(system)
	if !ok {
		return &SyncResult{Success: false, Error: fmt.Sprintf("no adapter configured for system %s", system)}, nil
	}

	m, err := s.MappingRepo.FindByExternalID(ctx, system, externalID)
	if err != nil {
		return nil, err
	}
	// A mapping for the same external id but a different entity type belongs
	// to someone else; treat it as no mapping for this sync.
	if m != nil && m.InternalEntityType != entityType {
		m = nil
	}

	snapshot, err := adapter.Fetch(ctx, entityType, externalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.handleExternalGone(ctx, m, system, externalID)
		}
		return s.recordAdapterFailure(ctx, m, system, externalID, entityType, err)
	}

	snapshot.EntityType = entityType
	snapshot.ExternalID = externalID
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now()
	}
	if snapshot.Checksum == "" {
		snapshot.Checksum = snapshot.ComputeChecksum()
	}

	if m == nil {
		return s.createMapping(ctx, system, externalID, entityType, snapshot)
	}
	return s.syncExisting(ctx, m, snapshot, opts)
}

// createMapping correlates the snapshot to an internal entity and records the
// new identity pair. A ConflictError from the store means a concurrent sync
// won the create race; that is surfaced to the caller to retry as an update.
func (s *SyncServiceImpl) createMapping(ctx context.Context, system models.ExternalSystem, externalID string, entityType models.InternalEntityType, snapshot *models.Snapshot) (*SyncResult, error) {
	internalID, err := s.Provider.Correlate(ctx, snapshot)
	if err != nil {
		return &SyncResult{Success: false, Error: fmt.Sprintf("correlation failed: %v", err)}, nil
	}

	if err := s.Provider.Apply(ctx, entityType, internalID, snapshot); err != nil {
		return &SyncResult{Success: false, Error: fmt.Sprintf("apply failed: %v", err)}, nil
	}

	// Watermark the internal side right after the apply, so the next run can
	// tell whether anyone touched the entity in between.
	internalChecksum, err := s.Provider.Checksum(ctx, entityType, internalID)
	if err != nil {
		return &SyncResult{Success: false, Error: fmt.Sprintf("internal checksum failed: %v", err)}, nil
	}
	snapshot.InternalChecksum = internalChecksum

	now := time.Now()
	m := &mapping.Mapping{
		ExternalSystem:     system,
		ExternalID:         externalID,
		InternalEntityType: entityType,
		InternalEntityID:   internalID,
		IsActive:           true,
		SyncData:           snapshot,
		LastSyncAt:         &now,
	}
	if err := s.MappingRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.Logger.Info("mapping created",
		zap.String("system", string(system)),
		zap.String("entity_type", string(entityType)),
		zap.String("external_id", externalID))

	return &SyncResult{Success: true, MappingID: m.ID.Hex()}, nil
}

func (s *SyncServiceImpl) syncExisting(ctx context.Context, m *mapping.Mapping, snapshot *models.Snapshot, opts SyncOptions) (*SyncResult, error) {
	id := m.ID.Hex()

	internalChecksum, err := s.Provider.Checksum(ctx, m.InternalEntityType, m.InternalEntityID)
	if err != nil {
		return s.recordAdapterFailure(ctx, m, m.ExternalSystem, m.ExternalID, m.InternalEntityType,
			fmt.Errorf("internal checksum: %w", err))
	}

	internalChanged := m.SyncData != nil && m.SyncData.InternalChecksum != "" &&
		internalChecksum != m.SyncData.InternalChecksum
	externalChanged := m.SyncData == nil || snapshot.Checksum != m.SyncData.Checksum

	if !internalChanged {
		// External side wins unopposed.
		if !externalChanged && !opts.ForceUpdate {
			// Nothing moved; refresh the watermark and clear any stale error.
			if err := s.MappingRepo.UpdateSyncStatus(ctx, id, nil, false, nil, ""); err != nil {
				return nil, err
			}
			return &SyncResult{Success: true, MappingID: id}, nil
		}
		return s.applySnapshot(ctx, m, snapshot)
	}

	// Internal side moved since the last sync. Applying the external snapshot
	// now would silently overwrite local changes, so this is a conflict unless
	// the caller asked for assisted resolution.
	if opts.ResolveConflicts {
		if resolver, ok := s.Provider.(adapters.ConflictResolver); ok {
			merged, mergeErr := resolver.Merge(ctx, m.InternalEntityType, m.InternalEntityID, snapshot, m.SyncData)
			if mergeErr == nil && merged != nil {
				if merged.Checksum == "" {
					merged.Checksum = merged.ComputeChecksum()
				}
				return s.applySnapshot(ctx, m, merged)
			}
			s.Logger.Warn("conflict merge failed, flagging mapping",
				zap.String("system", string(m.ExternalSystem)),
				zap.String("external_id", m.ExternalID),
				zap.Error(mergeErr))
		}
	}

	conflict := &models.ConflictRecord{
		DetectedAt:       time.Now(),
		ExternalSnapshot: snapshot,
		InternalChecksum: internalChecksum,
		Reason:           "internal entity changed since last sync",
	}
	// syncData stays untouched so the divergence base is preserved.
	if err := s.MappingRepo.UpdateSyncStatus(ctx, id, nil, true, conflict, ""); err != nil {
		return nil, err
	}

	s.Monitor.CreateAlert(models.AlertWarning, m.ExternalSystem,
		fmt.Sprintf("sync conflict on %s %s (external id %s)", m.InternalEntityType, m.InternalEntityID, m.ExternalID),
		m.InternalEntityType, map[string]interface{}{
			"mapping_id": id,
		})

	return &SyncResult{Success: false, MappingID: id, Error: "conflict detected"}, nil
}

func (s *SyncServiceImpl) applySnapshot(ctx context.Context, m *mapping.Mapping, snapshot *models.Snapshot) (*SyncResult, error) {
	id := m.ID.Hex()

	if err := s.Provider.Apply(ctx, m.InternalEntityType, m.InternalEntityID, snapshot); err != nil {
		return s.recordAdapterFailure(ctx, m, m.ExternalSystem, m.ExternalID, m.InternalEntityType,
			fmt.Errorf("apply: %w", err))
	}

	internalChecksum, err := s.Provider.Checksum(ctx, m.InternalEntityType, m.InternalEntityID)
	if err != nil {
		return s.recordAdapterFailure(ctx, m, m.ExternalSystem, m.ExternalID, m.InternalEntityType,
			fmt.Errorf("internal checksum after apply: %w", err))
	}
	snapshot.InternalChecksum = internalChecksum

	if err := s.MappingRepo.UpdateSyncStatus(ctx, id, snapshot, false, nil, ""); err != nil {
		return nil, err
	}
	return &SyncResult{Success: true, MappingID: id}, nil
}

// handleExternalGone deactivates a mapping whose external record disappeared.
func (s *SyncServiceImpl) handleExternalGone(ctx context.Context, m *mapping.Mapping, system models.ExternalSystem, externalID string) (*SyncResult, error) {
	if m == nil {
		return &SyncResult{Success: false, Error: fmt.Sprintf("record %s not found in %s", externalID, system)}, nil
	}
	if err := s.MappingRepo.Deactivate(ctx, m.ID.Hex()); err != nil {
		return nil, err
	}
	s.Logger.Info("mapping deactivated, external record gone",
		zap.String("system", string(system)),
		zap.String("external_id", externalID))
	return &SyncResult{Success: true, MappingID: m.ID.Hex()}, nil
}

// recordAdapterFailure stores lastError on the mapping (when one exists) and
// returns a failed result. hasConflict is carried over unchanged; retrying is
// the caller's policy, not ours.
func (s *SyncServiceImpl) recordAdapterFailure(ctx context.Context, m *mapping.Mapping, system models.ExternalSystem, externalID string, entityType models.InternalEntityType, cause error) (*SyncResult, error) {
	adapterErr := apperrors.Adapter(cause, "sync of %s/%s failed", system, externalID)

	s.Logger.Warn("adapter failure during sync",
		zap.String("system", string(system)),
		zap.String("entity_type", string(entityType)),
		zap.String("external_id", externalID),
		zap.Error(cause))

	if m == nil {
		return &SyncResult{Success: false, Error: adapterErr.Error()}, nil
	}

	if err := s.MappingRepo.UpdateSyncStatus(ctx, m.ID.Hex(), nil, m.HasConflict, nil, adapterErr.Error()); err != nil {
		return nil, err
	}
	return &SyncResult{Success: false, MappingID: m.ID.Hex(), Error: adapterErr.Error()}, nil
}

// SyncEntities walks every external id the adapter knows for the entity type.
// One entity failing never aborts the batch; only a storage failure does.
func (s *SyncServiceImpl) SyncEntities(ctx context.Context, system models.ExternalSystem, entityType models.InternalEntityType, opts SyncOptions) (*BulkSyncResult, error) {
	if !system.Valid() {
		return nil, apperrors.Validation("unknown external system %q", system)
	}
	if !entityType.Valid() {
		return nil, apperrors.Validation("unknown entity type %q", entityType)
	}

	adapter, ok := s.Registry.Get(system)
	if !ok {
		return nil, apperrors.Validation("no adapter configured for system %s", system)
	}

	externalIDs, err := adapter.List(ctx, entityType)
	if err != nil {
		return nil, apperrors.Adapter(err, "failed to list %s records from %s", entityType, system)
	}

	result := &BulkSyncResult{Total: len(externalIDs)}
	for _, externalID := range externalIDs {
		res, err := s.SyncEntity(ctx, system, externalID, entityType, opts)
		if err != nil {
			if errors.Is(err, apperrors.ErrStorage) {
				// Data-layer failure invalidates any further per-item reasoning.
				return result, err
			}
			result.Failed++
			continue
		}
		if res.Success {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	s.Logger.Info("bulk sync finished",
		zap.String("system", string(system)),
		zap.String("entity_type", string(entityType)),
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))

	return result, nil
}

// HealthCheck reports the monitor's latest snapshot for every configured
// system. Systems never probed yet count as unhealthy.
func (s *SyncServiceImpl) HealthCheck() *HealthCheckResult {
	statuses := s.Monitor.GetHealthStatuses()

	result := &HealthCheckResult{
		Systems:       make(map[models.ExternalSystem]bool),
		OverallHealth: true,
	}
	for _, system := range s.Registry.Systems() {
		status, probed := statuses[system]
		healthy := probed && status.IsHealthy
		result.Systems[system] = healthy
		if !healthy {
			result.OverallHealth = false
		}
	}
	return result
}

func (s *SyncServiceImpl) GetSyncStats(ctx context.Context, system models.ExternalSystem, entityType models.InternalEntityType) (*mapping.MappingStats, error) {
	return s.MappingRepo.GetMappingStats(ctx, system, entityType)
}

// Cleanup hard-deletes inactive mappings past the age threshold.
func (s *SyncServiceImpl) Cleanup(ctx context.Context, daysOld int) (int64, error) {
	if daysOld <= 0 {
		daysOld = s.RetentionDays
	}
	removed, err := s.MappingRepo.CleanupOldInactive(ctx, daysOld)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.Logger.Info("retention cleanup removed inactive mappings", zap.Int64("removed", removed))
	}
	return removed, nil
}
