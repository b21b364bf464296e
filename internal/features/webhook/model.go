package webhook

import (
	"time"

	"go-venue/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a single change notification pushed by an external system.
// The embedded data is advisory only: the orchestrator always re-fetches the
// current state through the adapter, which is what makes out-of-order
// delivery tolerable.
type Event struct {
	ExternalSystem models.ExternalSystem     `json:"external_system" validate:"required"`
	ExternalID     string                    `json:"external_id" validate:"required,min=1,max=255"`
	EntityType     models.InternalEntityType `json:"entity_type" validate:"required"`
	Action         models.WebhookAction      `json:"action" validate:"required,oneof=created updated deleted"`
	Data           bson.M                    `json:"data,omitempty"`
	Timestamp      *time.Time                `json:"timestamp,omitempty"`
}

// BulkEntry is one item of a bulk notification; system and entity type come
// from the envelope. Entries are checked in the processing loop rather than
// with validator tags, so one bad entry fails alone instead of rejecting the
// whole envelope.
type BulkEntry struct {
	ExternalID string               `json:"external_id"`
	Action     models.WebhookAction `json:"action"`
	Data       bson.M               `json:"data,omitempty"`
	Timestamp  *time.Time           `json:"timestamp,omitempty"`
}

// BulkEvent carries many entries sharing one (system, entityType).
type BulkEvent struct {
	ExternalSystem models.ExternalSystem     `json:"external_system" validate:"required"`
	EntityType     models.InternalEntityType `json:"entity_type" validate:"required"`
	Events         []BulkEntry               `json:"events" validate:"required,min=1"`
}

// EventResult is the outcome of processing one event.
type EventResult struct {
	Success   bool   `json:"success"`
	MappingID string `json:"mapping_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BulkResult is always returned for a well-formed bulk envelope; per-entry
// failures are counted, never propagated.
type BulkResult struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Delivery is the audit record of one processed webhook request.
type Delivery struct {
	ID             primitive.ObjectID        `json:"id" bson:"_id,omitempty"`
	DeliveryID     string                    `json:"delivery_id" bson:"delivery_id"`
	ExternalSystem models.ExternalSystem     `json:"external_system" bson:"external_system"`
	EntityType     models.InternalEntityType `json:"entity_type" bson:"entity_type"`
	Bulk           bool                      `json:"bulk" bson:"bulk"`
	Total          int                       `json:"total" bson:"total"`
	Successful     int                       `json:"successful" bson:"successful"`
	Failed         int                       `json:"failed" bson:"failed"`
	Duration       int64                     `json:"duration" bson:"duration"` // milliseconds
	ReceivedAt     time.Time                 `json:"received_at" bson:"received_at"`
}
