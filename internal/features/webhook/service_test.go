package webhook

import (
	"context"
	"fmt"
	"testing"

	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/common/models"
	"go-venue/internal/config"
	"go-venue/internal/features/mapping"
	sync_feature "go-venue/internal/features/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type syncCall struct {
	ExternalID string
	Force      bool
}

// fakeSyncService records calls and answers from a scripted result table.
type fakeSyncService struct {
	sync_feature.SyncService
	calls   []syncCall
	results map[string]*sync_feature.SyncResult
	errs    map[string]error
}

func newFakeSyncService() *fakeSyncService {
	return &fakeSyncService{
		results: make(map[string]*sync_feature.SyncResult),
		errs:    make(map[string]error),
	}
}

func (f *fakeSyncService) SyncEntity(ctx context.Context, system models.ExternalSystem, externalID string, entityType models.InternalEntityType, opts sync_feature.SyncOptions) (*sync_feature.SyncResult, error) {
	f.calls = append(f.calls, syncCall{ExternalID: externalID, Force: opts.ForceUpdate})
	if err, ok := f.errs[externalID]; ok {
		return nil, err
	}
	if res, ok := f.results[externalID]; ok {
		return res, nil
	}
	return &sync_feature.SyncResult{Success: true, MappingID: externalID}, nil
}

type fakeMappingRepo struct {
	mapping.MappingRepository
	mappings    map[string]*mapping.Mapping
	deactivated []string
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{mappings: make(map[string]*mapping.Mapping)}
}

func (r *fakeMappingRepo) FindByExternalID(ctx context.Context, system models.ExternalSystem, externalID string) (*mapping.Mapping, error) {
	return r.mappings[externalID], nil
}

func (r *fakeMappingRepo) Deactivate(ctx context.Context, id string) error {
	r.deactivated = append(r.deactivated, id)
	return nil
}

type fakeDeliveryRepo struct {
	created []Delivery
}

func (r *fakeDeliveryRepo) Create(ctx context.Context, delivery *Delivery) error {
	r.created = append(r.created, *delivery)
	return nil
}

func (r *fakeDeliveryRepo) List(ctx context.Context, limit int64) ([]Delivery, error) {
	return r.created, nil
}

func newTestWebhookService(syncSvc *fakeSyncService, repo *fakeMappingRepo, deliveries *fakeDeliveryRepo) WebhookService {
	cfg := &config.Config{WebhookBulkMax: 5}
	return NewWebhookService(syncSvc, repo, deliveries, zap.NewNop(), cfg)
}

func TestProcessEventCreatedTriggersSync(t *testing.T) {
	syncSvc := newFakeSyncService()
	deliveries := &fakeDeliveryRepo{}
	svc := newTestWebhookService(syncSvc, newFakeMappingRepo(), deliveries)

	res, err := svc.ProcessEvent(context.Background(), &Event{
		ExternalSystem: models.SystemExporta,
		ExternalID:     "ext-1",
		EntityType:     models.EntityBooking,
		Action:         models.ActionCreated,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	require.Len(t, syncSvc.calls, 1)
	assert.False(t, syncSvc.calls[0].Force, "created must not force")

	require.Len(t, deliveries.created, 1)
	assert.Equal(t, 1, deliveries.created[0].Total)
	assert.Equal(t, 1, deliveries.created[0].Successful)
	assert.NotEmpty(t, deliveries.created[0].DeliveryID)
}

func TestProcessEventUpdatedForcesSync(t *testing.T) {
	syncSvc := newFakeSyncService()
	svc := newTestWebhookService(syncSvc, newFakeMappingRepo(), &fakeDeliveryRepo{})

	_, err := svc.ProcessEvent(context.Background(), &Event{
		ExternalSystem: models.SystemExporta,
		ExternalID:     "ext-1",
		EntityType:     models.EntityBooking,
		Action:         models.ActionUpdated,
	})
	require.NoError(t, err)

	require.Len(t, syncSvc.calls, 1)
	assert.True(t, syncSvc.calls[0].Force, "updated must force re-apply")
}

func TestProcessEventDeletedDeactivates(t *testing.T) {
	repo := newFakeMappingRepo()
	id := primitive.NewObjectID()
	repo.mappings["ext-1"] = &mapping.Mapping{ID: id, ExternalID: "ext-1", InternalEntityType: models.EntityBooking, IsActive: true}

	syncSvc := newFakeSyncService()
	svc := newTestWebhookService(syncSvc, repo, &fakeDeliveryRepo{})

	res, err := svc.ProcessEvent(context.Background(), &Event{
		ExternalSystem: models.SystemExporta,
		ExternalID:     "ext-1",
		EntityType:     models.EntityBooking,
		Action:         models.ActionDeleted,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{id.Hex()}, repo.deactivated)
	assert.Empty(t, syncSvc.calls, "deleted must not hit the orchestrator")
}

func TestProcessEventDeletedWithoutMappingIsIdempotent(t *testing.T) {
	svc := newTestWebhookService(newFakeSyncService(), newFakeMappingRepo(), &fakeDeliveryRepo{})

	res, err := svc.ProcessEvent(context.Background(), &Event{
		ExternalSystem: models.SystemExporta,
		ExternalID:     "ghost",
		EntityType:     models.EntityBooking,
		Action:         models.ActionDeleted,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestProcessEventDeletedIgnoresOtherEntityType(t *testing.T) {
	repo := newFakeMappingRepo()
	repo.mappings["ext-1"] = &mapping.Mapping{
		ID:                 primitive.NewObjectID(),
		ExternalID:         "ext-1",
		InternalEntityType: models.EntityCourt,
		IsActive:           true,
	}

	svc := newTestWebhookService(newFakeSyncService(), repo, &fakeDeliveryRepo{})

	res, err := svc.ProcessEvent(context.Background(), &Event{
		ExternalSystem: models.SystemExporta,
		ExternalID:     "ext-1",
		EntityType:     models.EntityBooking,
		Action:         models.ActionDeleted,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, repo.deactivated, "a booking deletion must not touch the court mapping")
}

func TestProcessEventRejectsMalformed(t *testing.T) {
	svc := newTestWebhookService(newFakeSyncService(), newFakeMappingRepo(), &fakeDeliveryRepo{})

	cases := []Event{
		{ExternalID: "ext-1", EntityType: models.EntityBooking, Action: models.ActionCreated},
		{ExternalSystem: models.SystemExporta, EntityType: models.EntityBooking, Action: models.ActionCreated},
		{ExternalSystem: models.SystemExporta, ExternalID: "ext-1", EntityType: models.EntityBooking, Action: "exploded"},
		{ExternalSystem: "mystery", ExternalID: "ext-1", EntityType: models.EntityBooking, Action: models.ActionCreated},
		{ExternalSystem: models.SystemExporta, ExternalID: "ext-1", EntityType: "widget", Action: models.ActionCreated},
	}
	for _, event := range cases {
		_, err := svc.ProcessEvent(context.Background(), &event)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	}
}

func TestProcessBulkKeepsOrderAndIsolatesFailures(t *testing.T) {
	syncSvc := newFakeSyncService()
	syncSvc.results["ext-2"] = &sync_feature.SyncResult{Success: false, Error: "conflict detected"}
	syncSvc.errs["ext-3"] = apperrors.Adapter(fmt.Errorf("boom"), "fetch failed")
	deliveries := &fakeDeliveryRepo{}
	svc := newTestWebhookService(syncSvc, newFakeMappingRepo(), deliveries)

	res, err := svc.ProcessBulk(context.Background(), &BulkEvent{
		ExternalSystem: models.SystemExporta,
		EntityType:     models.EntityBooking,
		Events: []BulkEntry{
			{ExternalID: "ext-1", Action: models.ActionCreated},
			{ExternalID: "ext-2", Action: models.ActionUpdated},
			{ExternalID: "ext-3", Action: models.ActionCreated},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 2, res.Failed)

	got := make([]string, len(syncSvc.calls))
	for i, call := range syncSvc.calls {
		got[i] = call.ExternalID
	}
	assert.Equal(t, []string{"ext-1", "ext-2", "ext-3"}, got, "entries must run in array order")

	require.Len(t, deliveries.created, 1)
	assert.True(t, deliveries.created[0].Bulk)
	assert.Equal(t, 3, deliveries.created[0].Total)
}

func TestProcessBulkRejectsOversizedPayload(t *testing.T) {
	svc := newTestWebhookService(newFakeSyncService(), newFakeMappingRepo(), &fakeDeliveryRepo{})

	events := make([]BulkEntry, 6)
	for i := range events {
		events[i] = BulkEntry{ExternalID: fmt.Sprintf("ext-%d", i), Action: models.ActionCreated}
	}

	_, err := svc.ProcessBulk(context.Background(), &BulkEvent{
		ExternalSystem: models.SystemExporta,
		EntityType:     models.EntityBooking,
		Events:         events,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProcessBulkRejectsEmptyEnvelope(t *testing.T) {
	svc := newTestWebhookService(newFakeSyncService(), newFakeMappingRepo(), &fakeDeliveryRepo{})

	_, err := svc.ProcessBulk(context.Background(), &BulkEvent{
		ExternalSystem: models.SystemExporta,
		EntityType:     models.EntityBooking,
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestProcessBulkCountsBadEntries(t *testing.T) {
	syncSvc := newFakeSyncService()
	svc := newTestWebhookService(syncSvc, newFakeMappingRepo(), &fakeDeliveryRepo{})

	res, err := svc.ProcessBulk(context.Background(), &BulkEvent{
		ExternalSystem: models.SystemExporta,
		EntityType:     models.EntityBooking,
		Events: []BulkEntry{
			{ExternalID: "ext-1", Action: models.ActionCreated},
			{ExternalID: "ext-2", Action: "exploded"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, syncSvc.calls, 1, "bad entries must be skipped, not synced")
}

func TestProcessBulkStorageErrorAborts(t *testing.T) {
	syncSvc := newFakeSyncService()
	syncSvc.errs["ext-2"] = apperrors.Storage(fmt.Errorf("write concern"), "update failed")
	svc := newTestWebhookService(syncSvc, newFakeMappingRepo(), &fakeDeliveryRepo{})

	_, err := svc.ProcessBulk(context.Background(), &BulkEvent{
		ExternalSystem: models.SystemExporta,
		EntityType:     models.EntityBooking,
		Events: []BulkEntry{
			{ExternalID: "ext-1", Action: models.ActionCreated},
			{ExternalID: "ext-2", Action: models.ActionCreated},
			{ExternalID: "ext-3", Action: models.ActionCreated},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.Len(t, syncSvc.calls, 2, "processing must stop at the storage failure")
}
