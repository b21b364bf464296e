package webhook

import (
	"context"
	"errors"
	"time"

	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/common/models"
	"go-venue/internal/config"
	"go-venue/internal/features/mapping"
	sync_feature "go-venue/internal/features/sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookService is the stateless translation layer between inbound change
// notifications and the sync orchestrator.
type WebhookService interface {
	ProcessEvent(ctx context.Context, event *Event) (*EventResult, error)
	ProcessBulk(ctx context.Context, bulk *BulkEvent) (*BulkResult, error)
	ListDeliveries(ctx context.Context, limit int64) ([]Delivery, error)
}

type WebhookServiceImpl struct {
	SyncService  sync_feature.SyncService
	MappingRepo  mapping.MappingRepository
	DeliveryRepo DeliveryRepository
	Logger       *zap.Logger
	BulkMax      int

	validate *validator.Validate
}

func NewWebhookService(
	syncService sync_feature.SyncService,
	mappingRepo mapping.MappingRepository,
	deliveryRepo DeliveryRepository,
	logger *zap.Logger,
	cfg *config.Config,
) WebhookService {
	return &WebhookServiceImpl{
		SyncService:  syncService,
		MappingRepo:  mappingRepo,
		DeliveryRepo: deliveryRepo,
		Logger:       logger,
		BulkMax:      cfg.WebhookBulkMax,
		validate:     validator.New(),
	}
}

func (s *WebhookServiceImpl) validateEvent(event *Event) error {
	if err := s.validate.Struct(event); err != nil {
		return apperrors.Validation("invalid webhook event: %v", err)
	}
	if !event.ExternalSystem.Valid() {
		return apperrors.Validation("unknown external system %q", event.ExternalSystem)
	}
	if !event.EntityType.Valid() {
		return apperrors.Validation("unknown entity type %q", event.EntityType)
	}
	return nil
}

// ProcessEvent handles one notification. created/updated run through the
// orchestrator (the adapter fetch is the source of truth, not event.Data);
// deleted deactivates the mapping so the audit trail survives.
func (s *WebhookServiceImpl) ProcessEvent(ctx context.Context, event *Event) (*EventResult, error) {
	if err := s.validateEvent(event); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.applyEvent(ctx, event.ExternalSystem, event.EntityType, event.ExternalID, event.Action)
	if err != nil {
		return nil, err
	}

	s.recordDelivery(ctx, &Delivery{
		DeliveryID:     uuid.NewString(),
		ExternalSystem: event.ExternalSystem,
		EntityType:     event.EntityType,
		Total:          1,
		Successful:     boolToCount(result.Success),
		Failed:         boolToCount(!result.Success),
		Duration:       time.Since(start).Milliseconds(),
	})

	return result, nil
}

// ProcessBulk handles up to BulkMax entries strictly in array order, so later
// events for the same external id observe the effect of earlier ones. Entry
// failures are counted; only a malformed envelope or a storage failure makes
// the whole request fail.
func (s *WebhookServiceImpl) ProcessBulk(ctx context.Context, bulk *BulkEvent) (*BulkResult, error) {
	if err := s.validate.Struct(bulk); err != nil {
		return nil, apperrors.Validation("invalid bulk webhook payload: %v", err)
	}
	if !bulk.ExternalSystem.Valid() {
		return nil, apperrors.Validation("unknown external system %q", bulk.ExternalSystem)
	}
	if !bulk.EntityType.Valid() {
		return nil, apperrors.Validation("unknown entity type %q", bulk.EntityType)
	}
	if len(bulk.Events) > s.BulkMax {
		return nil, apperrors.Validation("bulk payload exceeds %d events", s.BulkMax)
	}

	start := time.Now()
	result := &BulkResult{Total: len(bulk.Events)}

	for _, entry := range bulk.Events {
		if entry.ExternalID == "" || len(entry.ExternalID) > 255 || !entry.Action.Valid() {
			result.Failed++
			continue
		}

		res, err := s.applyEvent(ctx, bulk.ExternalSystem, bulk.EntityType, entry.ExternalID, entry.Action)
		if err != nil {
			if errors.Is(err, apperrors.ErrStorage) {
				return nil, err
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

	s.recordDelivery(ctx, &Delivery{
		DeliveryID:     uuid.NewString(),
		ExternalSystem: bulk.ExternalSystem,
		EntityType:     bulk.EntityType,
		Bulk:           true,
		Total:          result.Total,
		Successful:     result.Successful,
		Failed:         result.Failed,
		Duration:       time.Since(start).Milliseconds(),
	})

	return result, nil
}

func (s *WebhookServiceImpl) applyEvent(ctx context.Context, system models.ExternalSystem, entityType models.InternalEntityType, externalID string, action models.WebhookAction) (*EventResult, error) {
	switch action {
	case models.ActionCreated, models.ActionUpdated:
		res, err := s.SyncService.SyncEntity(ctx, system, externalID, entityType, sync_feature.SyncOptions{
			ForceUpdate: action == models.ActionUpdated,
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				// Lost the create race to a concurrent sync; the mapping exists
				// now, so the event is effectively applied.
				return &EventResult{Success: false, Error: err.Error()}, nil
			}
			return nil, err
		}
		return &EventResult{Success: res.Success, MappingID: res.MappingID, Error: res.Error}, nil

	case models.ActionDeleted:
		m, err := s.MappingRepo.FindByExternalID(ctx, system, externalID)
		if err != nil {
			return nil, err
		}
		// A mapping for the same external id but a different entity type
		// belongs to someone else; this deletion has nothing mapped.
		if m == nil || m.InternalEntityType != entityType {
			return &EventResult{Success: true}, nil
		}
		if err := s.MappingRepo.Deactivate(ctx, m.ID.Hex()); err != nil {
			return nil, err
		}
		return &EventResult{Success: true, MappingID: m.ID.Hex()}, nil
	}

	return nil, apperrors.Validation("unsupported action %q", action)
}

func (s *WebhookServiceImpl) ListDeliveries(ctx context.Context, limit int64) ([]Delivery, error) {
	return s.DeliveryRepo.List(ctx, limit)
}

func (s *WebhookServiceImpl) recordDelivery(ctx context.Context, delivery *Delivery) {
	if err := s.DeliveryRepo.Create(ctx, delivery); err != nil {
		s.Logger.Warn("failed to record webhook delivery", zap.Error(err))
	}
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
