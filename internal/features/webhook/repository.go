package webhook

import (
	"context"
	"time"

	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *Delivery) error
	List(ctx context.Context, limit int64) ([]Delivery, error)
}

type DeliveryRepositoryImpl struct {
	collection *mongo.Collection
}

func NewDeliveryRepository(db *database.MongodbDB) DeliveryRepository {
	return &DeliveryRepositoryImpl{
		collection: db.DB.Collection("webhook_deliveries"),
	}
}

func (r *DeliveryRepositoryImpl) Create(ctx context.Context, delivery *Delivery) error {
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	if delivery.ReceivedAt.IsZero() {
		delivery.ReceivedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, delivery)
	if err != nil {
		return apperrors.Storage(err, "failed to record webhook delivery")
	}
	return nil
}

func (r *DeliveryRepositoryImpl) List(ctx context.Context, limit int64) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperrors.Storage(err, "failed to list webhook deliveries")
	}
	defer cursor.Close(ctx)

	var deliveries []Delivery
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, apperrors.Storage(err, "failed to decode webhook deliveries")
	}
	return deliveries, nil
}
