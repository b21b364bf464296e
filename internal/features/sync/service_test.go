package sync

import (
	"context"
	"fmt"
	"testing"

	"go-venue/internal/adapters"
	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/common/models"
	"go-venue/internal/config"
	"go-venue/internal/features/mapping"
	"go-venue/internal/features/monitor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeAdapter serves canned snapshots keyed by external id.
type fakeAdapter struct {
	system    models.ExternalSystem
	snapshots map[string]bson.M
	listErr   error
	fetchErr  error
}

func (a *fakeAdapter) System() models.ExternalSystem { return a.system }

func (a *fakeAdapter) Fetch(ctx context.Context, entityType models.InternalEntityType, externalID string) (*models.Snapshot, error) {
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	payload, ok := a.snapshots[externalID]
	if !ok {
		return nil, apperrors.NotFound("record %s not found", externalID)
	}
	return &models.Snapshot{Payload: payload}, nil
}

func (a *fakeAdapter) List(ctx context.Context, entityType models.InternalEntityType) ([]string, error) {
	if a.listErr != nil {
		return nil, a.listErr
	}
	ids := make([]string, 0, len(a.snapshots))
	for id := range a.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *fakeAdapter) Ping(ctx context.Context) (adapters.PingResult, error) {
	return adapters.PingResult{Healthy: true}, nil
}

// fakeProvider keeps internal state in memory. Bumping a checksum simulates a
// local edit between syncs.
type fakeProvider struct {
	checksums map[string]string
	applied   []string
	mergeFn   func(external *models.Snapshot) *models.Snapshot
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{checksums: make(map[string]string)}
}

func (p *fakeProvider) key(entityType models.InternalEntityType, id string) string {
	return string(entityType) + "/" + id
}

func (p *fakeProvider) Correlate(ctx context.Context, snapshot *models.Snapshot) (string, error) {
	return "internal-" + snapshot.ExternalID, nil
}

func (p *fakeProvider) Checksum(ctx context.Context, entityType models.InternalEntityType, internalEntityID string) (string, error) {
	return p.checksums[p.key(entityType, internalEntityID)], nil
}

func (p *fakeProvider) Apply(ctx context.Context, entityType models.InternalEntityType, internalEntityID string, snapshot *models.Snapshot) error {
	p.applied = append(p.applied, internalEntityID)
	p.checksums[p.key(entityType, internalEntityID)] = snapshot.Checksum
	return nil
}

func (p *fakeProvider) Merge(ctx context.Context, entityType models.InternalEntityType, internalEntityID string, external *models.Snapshot, previous *models.Snapshot) (*models.Snapshot, error) {
	if p.mergeFn == nil {
		return nil, fmt.Errorf("no merge strategy")
	}
	return p.mergeFn(external), nil
}

// memMappingRepo is an in-memory stand-in for the mongo repository. The
// embedded interface covers methods the orchestrator never calls.
type memMappingRepo struct {
	mapping.MappingRepository
	byID       map[string]*mapping.Mapping
	createErr  error
	statusErr  error
	cleanupGot int
}

func newMemMappingRepo() *memMappingRepo {
	return &memMappingRepo{byID: make(map[string]*mapping.Mapping)}
}

func (r *memMappingRepo) Create(ctx context.Context, m *mapping.Mapping) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.IsActive &&
			existing.ExternalSystem == m.ExternalSystem &&
			existing.ExternalID == m.ExternalID &&
			existing.InternalEntityType == m.InternalEntityType {
			return apperrors.Conflict("mapping already exists")
		}
	}
	m.ID = primitive.NewObjectID()
	r.byID[m.ID.Hex()] = m
	return nil
}

func (r *memMappingRepo) FindByExternalID(ctx context.Context, system models.ExternalSystem, externalID string) (*mapping.Mapping, error) {
	for _, m := range r.byID {
		if m.IsActive && m.ExternalSystem == system && m.ExternalID == externalID {
			return m, nil
		}
	}
	return nil, nil
}

func (r *memMappingRepo) UpdateSyncStatus(ctx context.Context, id string, syncData *models.Snapshot, hasConflict bool, conflictData *models.ConflictRecord, lastError string) error {
	if r.statusErr != nil {
		return r.statusErr
	}
	m, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("mapping %s not found", id)
	}
	if syncData != nil {
		m.SyncData = syncData
	}
	m.HasConflict = hasConflict
	if hasConflict {
		m.ConflictData = conflictData
	} else {
		m.ConflictData = nil
	}
	m.LastError = lastError
	return nil
}

func (r *memMappingRepo) Deactivate(ctx context.Context, id string) error {
	m, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("mapping %s not found", id)
	}
	m.IsActive = false
	return nil
}

func (r *memMappingRepo) CleanupOldInactive(ctx context.Context, daysOld int) (int64, error) {
	r.cleanupGot = daysOld
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		AlertRetentionDays:   7,
		MappingRetentionDays: 90,
		WebhookBulkMax:       100,
	}
}

func newTestService(adapter *fakeAdapter, repo *memMappingRepo, provider *fakeProvider) (*SyncServiceImpl, monitor.MonitorService) {
	registry := adapters.NewRegistry()
	if adapter != nil {
		registry.Register(adapter)
	}
	mon := monitor.NewMonitorService(registry, testConfig(), zap.NewNop())
	svc := NewSyncService(repo, registry, provider, mon, zap.NewNop(), testConfig()).(*SyncServiceImpl)
	return svc, mon
}

func TestSyncEntityCreatesMapping(t *testing.T) {
	adapter := &fakeAdapter{
		system:    models.SystemExporta,
		snapshots: map[string]bson.M{"ext-1": {"name": "Court A"}},
	}
	repo := newMemMappingRepo()
	svc, _ := newTestService(adapter, repo, newFakeProvider())

	res, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.NotEmpty(t, res.MappingID)

	m := repo.byID[res.MappingID]
	require.NotNil(t, m)
	assert.Equal(t, "internal-ext-1", m.InternalEntityID)
	assert.True(t, m.IsActive)
	require.NotNil(t, m.SyncData)
	assert.NotEmpty(t, m.SyncData.Checksum)
}

func TestSyncEntityUnchangedIsNoOp(t *testing.T) {
	adapter := &fakeAdapter{
		system:    models.SystemExporta,
		snapshots: map[string]bson.M{"ext-1": {"name": "Court A"}},
	}
	repo := newMemMappingRepo()
	provider := newFakeProvider()
	svc, _ := newTestService(adapter, repo, provider)

	first, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)

	applied := len(provider.applied)
	second, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, first.MappingID, second.MappingID)
	assert.Len(t, provider.applied, applied, "unchanged snapshot must not be re-applied")
}

func TestSyncEntityForceUpdateReapplies(t *testing.T) {
	adapter := &fakeAdapter{
		system:    models.SystemExporta,
		snapshots: map[string]bson.M{"ext-1": {"name": "Court A"}},
	}
	repo := newMemMappingRepo()
	provider := newFakeProvider()
	svc, _ := newTestService(adapter, repo, provider)

	_, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)

	applied := len(provider.applied)
	res, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{ForceUpdate: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, provider.applied, applied+1)
}

func TestSyncEntityConflictWhenInternalChanged(t *testing.T) {
	adapter := &fakeAdapter{
		system:    models.SystemExporta,
		snapshots: map[string]bson.M{"ext-1": {"name": "Court A"}},
	}
	repo := newMemMappingRepo()
	provider := newFakeProvider()
	svc, mon := newTestService(adapter, repo, provider)

	first, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)

	// Local edit after the sync, then the external record changes too.
	provider.checksums[provider.key(models.EntityCourt, "internal-ext-1")] = "locally-edited"
	adapter.snapshots["ext-1"] = bson.M{"name": "Court A renamed"}

	res, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{ForceUpdate: true})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "conflict detected", res.Error)

	m := repo.byID[first.MappingID]
	require.True(t, m.HasConflict)
	require.NotNil(t, m.ConflictData)
	assert.Equal(t, "locally-edited", m.ConflictData.InternalChecksum)
	// The stored snapshot keeps the divergence base.
	assert.Equal(t, "Court A", m.SyncData.Payload["name"])

	alerts := mon.GetAlerts(nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertWarning, alerts[0].Type)
}

func TestSyncEntityResolveConflictsMerges(t *testing.T) {
	adapter := &fakeAdapter{
		system:    models.SystemExporta,
		snapshots: map[string]bson.M{"ext-1": {"name": "Court A"}},
	}
	repo := newMemMappingRepo()
	provider := newFakeProvider()
	provider.mergeFn = func(external *models.Snapshot) *models.Snapshot {
		merged := *external
		merged.Payload = bson.M{"name": "merged"}
		merged.Checksum = ""
		return &merged
	}
	svc, _ := newTestService(adapter, repo, provider)

	first, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)

	provider.checksums[provider.key(models.EntityCourt, "internal-ext-1")] = "locally-edited"
	adapter.snapshots["ext-1"] = bson.M{"name": "Court A renamed"}

	res, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{ResolveConflicts: true})
	require.NoError(t, err)
	assert.True(t, res.Success)

	m := repo.byID[first.MappingID]
	assert.False(t, m.HasConflict)
	assert.Equal(t, "merged", m.SyncData.Payload["name"])
}

func TestSyncEntityExternalGoneDeactivates(t *testing.T) {
	adapter := &fakeAdapter{
		system:    models.SystemExporta,
		snapshots: map[string]bson.M{"ext-1": {"name": "Court A"}},
	}
	repo := newMemMappingRepo()
	svc, _ := newTestService(adapter, repo, newFakeProvider())

	first, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)

	delete(adapter.snapshots, "ext-1")

	res, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)
	assert.True(t, res.Success)

	m := repo.byID[first.MappingID]
	assert.False(t, m.IsActive, "mapping must be deactivated, not deleted")
}

func TestSyncEntityAdapterFailureRecordsError(t *testing.T) {
	adapter := &fakeAdapter{
		system:    models.SystemExporta,
		snapshots: map[string]bson.M{"ext-1": {"name": "Court A"}},
	}
	repo := newMemMappingRepo()
	svc, _ := newTestService(adapter, repo, newFakeProvider())

	first, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)

	adapter.fetchErr = fmt.Errorf("connection refused")

	res, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err, "adapter failures must not become errors")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "connection refused")

	m := repo.byID[first.MappingID]
	assert.NotEmpty(t, m.LastError)
	assert.True(t, m.IsActive)
}

func TestSyncEntityValidation(t *testing.T) {
	svc, _ := newTestService(nil, newMemMappingRepo(), newFakeProvider())

	_, err := svc.SyncEntity(context.Background(), "mystery", "ext-1", models.EntityCourt, SyncOptions{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", "widget", SyncOptions{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.SyncEntity(context.Background(), models.SystemExporta, "", models.EntityCourt, SyncOptions{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestSyncEntityNoAdapterConfigured(t *testing.T) {
	svc, _ := newTestService(nil, newMemMappingRepo(), newFakeProvider())

	res, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-1", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no adapter configured")
}

func TestSyncEntitiesCountsFailures(t *testing.T) {
	adapter := &fakeAdapter{
		system: models.SystemExporta,
		snapshots: map[string]bson.M{
			"ext-1": {"name": "Court A"},
			"ext-2": {"name": "Court B"},
			"ext-3": {"name": "Court C"},
		},
	}
	repo := newMemMappingRepo()
	provider := newFakeProvider()
	svc, _ := newTestService(adapter, repo, provider)

	// Pre-sync ext-3, then edit it locally and externally so it conflicts.
	_, err := svc.SyncEntity(context.Background(), models.SystemExporta, "ext-3", models.EntityCourt, SyncOptions{})
	require.NoError(t, err)
	provider.checksums[provider.key(models.EntityCourt, "internal-ext-3")] = "locally-edited"
	adapter.snapshots["ext-3"] = bson.M{"name": "Court C renamed"}

	res, err := svc.SyncEntities(context.Background(), models.SystemExporta, models.EntityCourt, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 1, res.Failed)
}

func TestSyncEntitiesStorageErrorAborts(t *testing.T) {
	adapter := &fakeAdapter{
		system: models.SystemExporta,
		snapshots: map[string]bson.M{
			"ext-1": {"name": "Court A"},
			"ext-2": {"name": "Court B"},
		},
	}
	repo := newMemMappingRepo()
	repo.createErr = apperrors.Storage(fmt.Errorf("write concern"), "insert failed")
	svc, _ := newTestService(adapter, repo, newFakeProvider())

	res, err := svc.SyncEntities(context.Background(), models.SystemExporta, models.EntityCourt, SyncOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	require.NotNil(t, res, "partial result must be returned")
	assert.Equal(t, 2, res.Total)
}

func TestHealthCheckUnprobedIsUnhealthy(t *testing.T) {
	adapter := &fakeAdapter{system: models.SystemExporta}
	svc, _ := newTestService(adapter, newMemMappingRepo(), newFakeProvider())

	res := svc.HealthCheck()
	assert.False(t, res.OverallHealth)
	assert.False(t, res.Systems[models.SystemExporta])
}

func TestCleanupUsesRetentionDefault(t *testing.T) {
	repo := newMemMappingRepo()
	svc, _ := newTestService(nil, repo, newFakeProvider())

	_, err := svc.Cleanup(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 90, repo.cleanupGot)

	_, err = svc.Cleanup(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 30, repo.cleanupGot)
}
