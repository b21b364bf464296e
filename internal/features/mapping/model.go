package mapping

import (
	"time"

	"go-venue/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mapping is the identity correspondence between one external-system record
// and one internal entity, plus its sync state. Deactivated mappings are kept
// for audit history and duplicate detection; only the retention cleanup ever
// hard-deletes them.
type Mapping struct {
	ID                 primitive.ObjectID        `json:"id" bson:"_id,omitempty"`
	ExternalSystem     models.ExternalSystem     `json:"external_system" bson:"external_system"`
	ExternalID         string                    `json:"external_id" bson:"external_id"`
	InternalEntityType models.InternalEntityType `json:"internal_entity_type" bson:"internal_entity_type"`
	InternalEntityID   string                    `json:"internal_entity_id" bson:"internal_entity_id"`
	IsActive           bool                      `json:"is_active" bson:"is_active"`
	LastSyncAt         *time.Time                `json:"last_sync_at,omitempty" bson:"last_sync_at,omitempty"`
	SyncData           *models.Snapshot          `json:"sync_data,omitempty" bson:"sync_data,omitempty"`
	HasConflict        bool                      `json:"has_conflict" bson:"has_conflict"`
	ConflictData       *models.ConflictRecord    `json:"conflict_data,omitempty" bson:"conflict_data,omitempty"`
	LastError          string                    `json:"last_error,omitempty" bson:"last_error,omitempty"`
	CreatedAt          time.Time                 `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at" bson:"updated_at"`
}

// SystemStats is the per-system slice of the aggregate counts.
type SystemStats struct {
	Total         int64 `json:"total" bson:"total"`
	Active        int64 `json:"active" bson:"active"`
	WithConflicts int64 `json:"with_conflicts" bson:"with_conflicts"`
	WithErrors    int64 `json:"with_errors" bson:"with_errors"`
}

// MappingStats aggregates the store contents for reporting.
type MappingStats struct {
	Total         int64                                  `json:"total"`
	Active        int64                                  `json:"active"`
	WithConflicts int64                                  `json:"with_conflicts"`
	WithErrors    int64                                  `json:"with_errors"`
	BySystem      map[models.ExternalSystem]*SystemStats `json:"by_system"`
}

// DuplicateGroup surfaces mappings whose identity triple collides. The unique
// index prevents this for active rows, but races before the index commit and
// legacy rows can still leave collisions behind.
type DuplicateGroup struct {
	ExternalSystem     models.ExternalSystem     `json:"external_system" bson:"external_system"`
	ExternalID         string                    `json:"external_id" bson:"external_id"`
	InternalEntityType models.InternalEntityType `json:"internal_entity_type" bson:"internal_entity_type"`
	Count              int64                     `json:"count" bson:"count"`
	MappingIDs         []primitive.ObjectID      `json:"mapping_ids" bson:"mapping_ids"`
}
