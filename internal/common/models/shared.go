package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ExternalSystem identifies one of the partner systems the platform syncs with.
// This is the single definition referenced everywhere; do not duplicate the
// literals in handlers or repositories.
type ExternalSystem string

const (
	SystemExporta        ExternalSystem = "exporta"
	SystemGoogleCalendar ExternalSystem = "google_calendar"
	SystemWhatsAppAPI    ExternalSystem = "whatsapp_api"
	SystemTelegramAPI    ExternalSystem = "telegram_api"
	SystemPaymentGateway ExternalSystem = "payment_gateway_api"
	SystemOther          ExternalSystem = "other"
)

var externalSystems = []ExternalSystem{
	SystemExporta,
	SystemGoogleCalendar,
	SystemWhatsAppAPI,
	SystemTelegramAPI,
	SystemPaymentGateway,
	SystemOther,
}

// ExternalSystems returns the closed set of known systems.
func ExternalSystems() []ExternalSystem {
	out := make([]ExternalSystem, len(externalSystems))
	copy(out, externalSystems)
	return out
}

func (s ExternalSystem) Valid() bool {
	for _, known := range externalSystems {
		if s == known {
			return true
		}
	}
	return false
}

// InternalEntityType identifies which kind of platform record a mapping points at.
type InternalEntityType string

const (
	EntityUser            InternalEntityType = "user"
	EntityBooking         InternalEntityType = "booking"
	EntityCourt           InternalEntityType = "court"
	EntityClass           InternalEntityType = "class"
	EntityVenue           InternalEntityType = "venue"
	EntityClassSchedule   InternalEntityType = "class_schedule"
	EntityProduct         InternalEntityType = "product"
	EntityTrainingPackage InternalEntityType = "training_package_definition"
)

var entityTypes = []InternalEntityType{
	EntityUser,
	EntityBooking,
	EntityCourt,
	EntityClass,
	EntityVenue,
	EntityClassSchedule,
	EntityProduct,
	EntityTrainingPackage,
}

func EntityTypes() []InternalEntityType {
	out := make([]InternalEntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

func (t InternalEntityType) Valid() bool {
	for _, known := range entityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Snapshot is the last-observed external-side state of one record. It is stored
// opaquely on the mapping (sync_data) and compared by checksum on the next sync.
// InternalChecksum is the internal-side watermark captured at the same moment,
// so a later run can tell which side moved.
type Snapshot struct {
	EntityType       InternalEntityType `json:"entity_type" bson:"entity_type"`
	ExternalID       string             `json:"external_id" bson:"external_id"`
	Checksum         string             `json:"checksum" bson:"checksum"`
	InternalChecksum string             `json:"internal_checksum,omitempty" bson:"internal_checksum,omitempty"`
	Payload          bson.M             `json:"payload,omitempty" bson:"payload,omitempty"`
	FetchedAt        time.Time          `json:"fetched_at" bson:"fetched_at"`
}

// ComputeChecksum hashes the payload. encoding/json sorts map keys, so the
// digest is stable for equal payloads.
func (s *Snapshot) ComputeChecksum() string {
	if s == nil || len(s.Payload) == 0 {
		return ""
	}
	raw, err := json.Marshal(s.Payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ConflictRecord describes a detected divergence, kept on the mapping
// (conflict_data) for manual or assisted resolution.
type ConflictRecord struct {
	DetectedAt       time.Time `json:"detected_at" bson:"detected_at"`
	ExternalSnapshot *Snapshot `json:"external_snapshot,omitempty" bson:"external_snapshot,omitempty"`
	InternalChecksum string    `json:"internal_checksum" bson:"internal_checksum"`
	Reason           string    `json:"reason" bson:"reason"`
}

// WebhookAction is the change kind reported by an external system.
type WebhookAction string

const (
	ActionCreated WebhookAction = "created"
	ActionUpdated WebhookAction = "updated"
	ActionDeleted WebhookAction = "deleted"
)

func (a WebhookAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// AlertType is the severity of a monitoring alert.
type AlertType string

const (
	AlertError   AlertType = "error"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
)
