package mapping

import (
	"context"

	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/common/models"
)

// MappingService is the administrative surface over the store: direct CRUD,
// bulk status updates, duplicate detection and retention cleanup, independent
// of the sync flow.
type MappingService interface {
	CreateMapping(ctx context.Context, m *Mapping) error
	GetMapping(ctx context.Context, id string) (*Mapping, error)
	UpdateMapping(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteMapping(ctx context.Context, id string) error
	DeactivateMapping(ctx context.Context, id string) error
	ListActive(ctx context.Context) ([]Mapping, error)
	ListBySystem(ctx context.Context, system models.ExternalSystem) ([]Mapping, error)
	ListByInternalEntity(ctx context.Context, entityType models.InternalEntityType, entityID string) ([]Mapping, error)
	ListConflicts(ctx context.Context) ([]Mapping, error)
	ListErrors(ctx context.Context) ([]Mapping, error)
	ListOutdated(ctx context.Context, daysOld int) ([]Mapping, error)
	BulkUpdateStatus(ctx context.Context, ids []string, hasConflict bool) (int64, error)
	FindDuplicates(ctx context.Context) ([]DuplicateGroup, error)
}

type MappingServiceImpl struct {
	Repo MappingRepository
}

func NewMappingService(repo MappingRepository) MappingService {
	return &MappingServiceImpl{Repo: repo}
}

func (s *MappingServiceImpl) CreateMapping(ctx context.Context, m *Mapping) error {
	if !m.ExternalSystem.Valid() {
		return apperrors.Validation("unknown external system %q", m.ExternalSystem)
	}
	if !m.InternalEntityType.Valid() {
		return apperrors.Validation("unknown entity type %q", m.InternalEntityType)
	}
	if m.ExternalID == "" || len(m.ExternalID) > 255 {
		return apperrors.Validation("external_id must be 1-255 characters")
	}
	if m.InternalEntityID == "" {
		return apperrors.Validation("internal_entity_id is required")
	}
	return s.Repo.Create(ctx, m)
}

func (s *MappingServiceImpl) GetMapping(ctx context.Context, id string) (*Mapping, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *MappingServiceImpl) UpdateMapping(ctx context.Context, id string, updates map[string]interface{}) error {
	// Identity fields are immutable after creation; an admin who needs a new
	// identity deactivates and recreates instead.
	for _, field := range []string{"_id", "external_system", "external_id", "internal_entity_type", "created_at"} {
		delete(updates, field)
	}
	if len(updates) == 0 {
		return apperrors.Validation("no updatable fields in request")
	}
	return s.Repo.Update(ctx, id, updates)
}

func (s *MappingServiceImpl) DeleteMapping(ctx context.Context, id string) error {
	m, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.IsActive {
		return apperrors.Validation("active mappings cannot be hard-deleted; deactivate first")
	}
	return s.Repo.Delete(ctx, id)
}

func (s *MappingServiceImpl) DeactivateMapping(ctx context.Context, id string) error {
	return s.Repo.Deactivate(ctx, id)
}

func (s *MappingServiceImpl) ListActive(ctx context.Context) ([]Mapping, error) {
	return s.Repo.FindActive(ctx)
}

func (s *MappingServiceImpl) ListBySystem(ctx context.Context, system models.ExternalSystem) ([]Mapping, error) {
	if !system.Valid() {
		return nil, apperrors.Validation("unknown external system %q", system)
	}
	return s.Repo.FindBySystem(ctx, system)
}

func (s *MappingServiceImpl) ListByInternalEntity(ctx context.Context, entityType models.InternalEntityType, entityID string) ([]Mapping, error) {
	if !entityType.Valid() {
		return nil, apperrors.Validation("unknown entity type %q", entityType)
	}
	return s.Repo.FindByInternalEntity(ctx, entityType, entityID)
}

func (s *MappingServiceImpl) ListConflicts(ctx context.Context) ([]Mapping, error) {
	return s.Repo.FindWithConflicts(ctx)
}

func (s *MappingServiceImpl) ListErrors(ctx context.Context) ([]Mapping, error) {
	return s.Repo.FindWithErrors(ctx)
}

func (s *MappingServiceImpl) ListOutdated(ctx context.Context, daysOld int) ([]Mapping, error) {
	if daysOld <= 0 {
		daysOld = 7
	}
	return s.Repo.FindOutdated(ctx, daysOld)
}

func (s *MappingServiceImpl) BulkUpdateStatus(ctx context.Context, ids []string, hasConflict bool) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.Validation("ids list is empty")
	}
	return s.Repo.BulkUpdateSyncStatus(ctx, ids, nil, hasConflict)
}

func (s *MappingServiceImpl) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	return s.Repo.FindDuplicates(ctx)
}
