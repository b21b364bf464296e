package adapters

import (
	"context"
	"time"

	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/common/models"
	"go-venue/internal/database"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ShadowStateProvider is the default InternalStateProvider. It keeps a shadow
// copy of each applied payload in its own collection, which makes the engine
// self-contained: the host application replaces this with a provider backed by
// its real entity services, and nothing else changes.
type ShadowStateProvider struct {
	collection *mongo.Collection
}

func NewShadowStateProvider(db *database.MongodbDB) InternalStateProvider {
	return &ShadowStateProvider{
		collection: db.DB.Collection("internal_entities"),
	}
}

// Correlate honors an internal_entity_id carried in the payload, otherwise
// mints a fresh id for the new entity.
func (p *ShadowStateProvider) Correlate(ctx context.Context, snapshot *models.Snapshot) (string, error) {
	if v, ok := snapshot.Payload["internal_entity_id"].(string); ok && v != "" {
		return v, nil
	}
	return uuid.NewString(), nil
}

func (p *ShadowStateProvider) Checksum(ctx context.Context, entityType models.InternalEntityType, internalEntityID string) (string, error) {
	var doc struct {
		Payload bson.M `bson:"payload"`
	}
	err := p.collection.FindOne(ctx, bson.M{
		"entity_type": entityType,
		"internal_id": internalEntityID,
	}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Storage(err, "failed to load internal entity %s/%s", entityType, internalEntityID)
	}

	snap := models.Snapshot{Payload: doc.Payload}
	return snap.ComputeChecksum(), nil
}

func (p *ShadowStateProvider) Apply(ctx context.Context, entityType models.InternalEntityType, internalEntityID string, snapshot *models.Snapshot) error {
	_, err := p.collection.UpdateOne(ctx,
		bson.M{
			"entity_type": entityType,
			"internal_id": internalEntityID,
		},
		bson.M{
			"$set": bson.M{
				"payload":    snapshot.Payload,
				"updated_at": time.Now(),
			},
			"$setOnInsert": bson.M{
				"created_at": time.Now(),
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return apperrors.Storage(err, "failed to apply snapshot to %s/%s", entityType, internalEntityID)
	}
	return nil
}
