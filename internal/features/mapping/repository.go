package mapping

import (
	"context"
	"time"

	apperrors "go-venue/internal/common/errors"
	"go-venue/internal/common/models"
	"go-venue/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MappingRepository is the Mapping Store contract. Lookups that find nothing
// return nil (or an empty slice), not an error; Create reports ConflictError
// when the active-uniqueness invariant would be violated; every other driver
// failure is wrapped as a StorageError.
type MappingRepository interface {
	EnsureIndexes(ctx context.Context) error

	Create(ctx context.Context, m *Mapping) error
	GetByID(ctx context.Context, id string) (*Mapping, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error

	FindByExternalID(ctx context.Context, system models.ExternalSystem, externalID string) (*Mapping, error)
	FindByInternalEntity(ctx context.Context, entityType models.InternalEntityType, entityID string) ([]Mapping, error)
	FindBySystem(ctx context.Context, system models.ExternalSystem) ([]Mapping, error)
	FindActive(ctx context.Context) ([]Mapping, error)
	FindWithConflicts(ctx context.Context) ([]Mapping, error)
	FindWithErrors(ctx context.Context) ([]Mapping, error)
	FindOutdated(ctx context.Context, daysOld int) ([]Mapping, error)

	UpdateSyncStatus(ctx context.Context, id string, syncData *models.Snapshot, hasConflict bool, conflictData *models.ConflictRecord, lastError string) error
	BulkUpdateSyncStatus(ctx context.Context, ids []string, syncData *models.Snapshot, hasConflict bool) (int64, error)
	Deactivate(ctx context.Context, id string) error

	GetMappingStats(ctx context.Context, system models.ExternalSystem, entityType models.InternalEntityType) (*MappingStats, error)
	EntityBreakdown(ctx context.Context) (map[models.InternalEntityType]int64, error)
	CountUpdatedSince(ctx context.Context, since time.Time) (int64, error)
	FindDuplicates(ctx context.Context) ([]DuplicateGroup, error)
	CleanupOldInactive(ctx context.Context, daysOld int) (int64, error)
}

type MappingRepositoryImpl struct {
	collection *mongo.Collection
}

func NewMappingRepository(db *database.MongodbDB) MappingRepository {
	return &MappingRepositoryImpl{
		collection: db.DB.Collection("entity_mappings"),
	}
}

// EnsureIndexes creates the indexes the engine depends on. The partial unique
// index enforces at-most-one active mapping per identity triple at the storage
// layer, which is what closes the check-then-create race two concurrent syncs
// can run into.
func (r *MappingRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "external_system", Value: 1},
				{Key: "external_id", Value: 1},
				{Key: "internal_entity_type", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
		{
			Keys: bson.D{
				{Key: "internal_entity_type", Value: 1},
				{Key: "internal_entity_id", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "external_system", Value: 1}, {Key: "is_active", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "last_sync_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: -1}},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return apperrors.Storage(err, "failed to create mapping indexes")
	}
	return nil
}

func (r *MappingRepositoryImpl) Create(ctx context.Context, m *Mapping) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("active mapping already exists for %s/%s (%s)",
				m.ExternalSystem, m.ExternalID, m.InternalEntityType)
		}
		return apperrors.Storage(err, "failed to insert mapping")
	}
	return nil
}

func (r *MappingRepositoryImpl) GetByID(ctx context.Context, id string) (*Mapping, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound("invalid mapping id %q", id)
	}

	var m Mapping
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, apperrors.NotFound("mapping %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Storage(err, "failed to load mapping %s", id)
	}
	return &m, nil
}

func (r *MappingRepositoryImpl) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NotFound("invalid mapping id %q", id)
	}

	updates["updated_at"] = time.Now()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": updates})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("update would collide with an existing active mapping")
		}
		return apperrors.Storage(err, "failed to update mapping %s", id)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("mapping %s not found", id)
	}
	return nil
}

// Delete hard-deletes a mapping. Reserved for the cleanup path; the sync flow
// deactivates instead.
func (r *MappingRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NotFound("invalid mapping id %q", id)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return apperrors.Storage(err, "failed to delete mapping %s", id)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("mapping %s not found", id)
	}
	return nil
}

func (r *MappingRepositoryImpl) FindByExternalID(ctx context.Context, system models.ExternalSystem, externalID string) (*Mapping, error) {
	var m Mapping
	err := r.collection.FindOne(ctx, bson.M{
		"external_system": system,
		"external_id":     externalID,
		"is_active":       true,
	}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage(err, "failed to look up mapping for %s/%s", system, externalID)
	}
	return &m, nil
}

func (r *MappingRepositoryImpl) FindByInternalEntity(ctx context.Context, entityType models.InternalEntityType, entityID string) ([]Mapping, error) {
	return r.find(ctx, bson.M{
		"internal_entity_type": entityType,
		"internal_entity_id":   entityID,
	})
}

func (r *MappingRepositoryImpl) FindBySystem(ctx context.Context, system models.ExternalSystem) ([]Mapping, error) {
	return r.find(ctx, bson.M{"external_system": system})
}

func (r *MappingRepositoryImpl) FindActive(ctx context.Context) ([]Mapping, error) {
	return r.find(ctx, bson.M{"is_active": true})
}

func (r *MappingRepositoryImpl) FindWithConflicts(ctx context.Context) ([]Mapping, error) {
	return r.find(ctx, bson.M{"has_conflict": true})
}

func (r *MappingRepositoryImpl) FindWithErrors(ctx context.Context) ([]Mapping, error) {
	return r.find(ctx, bson.M{"last_error": bson.M{"$exists": true, "$ne": ""}})
}

// FindOutdated returns active mappings whose last sync is older than the
// threshold, including mappings never synced at all.
func (r *MappingRepositoryImpl) FindOutdated(ctx context.Context, daysOld int) ([]Mapping, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	return r.find(ctx, bson.M{
		"is_active": true,
		"$or": []bson.M{
			{"last_sync_at": bson.M{"$lt": cutoff}},
			{"last_sync_at": nil},
		},
	})
}

func (r *MappingRepositoryImpl) find(ctx context.Context, filter bson.M) ([]Mapping, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.Storage(err, "mapping query failed")
	}
	defer cursor.Close(ctx)

	var mappings []Mapping
	if err = cursor.All(ctx, &mappings); err != nil {
		return nil, apperrors.Storage(err, "failed to decode mappings")
	}
	return mappings, nil
}

// UpdateSyncStatus is the single write path after every sync attempt. A nil
// syncData leaves the stored snapshot untouched; an empty lastError clears
// the previous one. last_sync_at is always refreshed, success or failure.
func (r *MappingRepositoryImpl) UpdateSyncStatus(ctx context.Context, id string, syncData *models.Snapshot, hasConflict bool, conflictData *models.ConflictRecord, lastError string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NotFound("invalid mapping id %q", id)
	}

	now := time.Now()
	set := bson.M{
		"has_conflict": hasConflict,
		"last_sync_at": now,
		"updated_at":   now,
	}
	unset := bson.M{}

	if syncData != nil {
		set["sync_data"] = syncData
	}
	if conflictData != nil {
		set["conflict_data"] = conflictData
	} else if !hasConflict {
		unset["conflict_data"] = ""
	}
	if lastError != "" {
		set["last_error"] = lastError
	} else {
		unset["last_error"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return apperrors.Storage(err, "failed to update sync status for %s", id)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("mapping %s not found", id)
	}
	return nil
}

// BulkUpdateSyncStatus applies the same status to many mappings. Unknown ids
// are skipped silently; the returned count is the number actually matched.
func (r *MappingRepositoryImpl) BulkUpdateSyncStatus(ctx context.Context, ids []string, syncData *models.Snapshot, hasConflict bool) (int64, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return 0, nil
	}

	now := time.Now()
	set := bson.M{
		"has_conflict": hasConflict,
		"last_sync_at": now,
		"updated_at":   now,
	}
	if syncData != nil {
		set["sync_data"] = syncData
	}
	update := bson.M{"$set": set}
	if !hasConflict {
		update["$unset"] = bson.M{"conflict_data": ""}
	}

	res, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, update)
	if err != nil {
		return 0, apperrors.Storage(err, "bulk sync status update failed")
	}
	return res.MatchedCount, nil
}

// Deactivate retires a mapping from the sync flow while keeping it queryable.
// Idempotent.
func (r *MappingRepositoryImpl) Deactivate(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.NotFound("invalid mapping id %q", id)
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now(),
	}})
	if err != nil {
		return apperrors.Storage(err, "failed to deactivate mapping %s", id)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("mapping %s not found", id)
	}
	return nil
}

// GetMappingStats aggregates counts, optionally narrowed to one system and/or
// entity type. Zero values mean no filter.
func (r *MappingRepositoryImpl) GetMappingStats(ctx context.Context, system models.ExternalSystem, entityType models.InternalEntityType) (*MappingStats, error) {
	base := bson.M{}
	if system != "" {
		base["external_system"] = system
	}
	if entityType != "" {
		base["internal_entity_type"] = entityType
	}

	stats := &MappingStats{BySystem: make(map[models.ExternalSystem]*SystemStats)}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: base}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$external_system",
			"total":  bson.M{"$sum": 1},
			"active": bson.M{"$sum": bson.M{"$cond": []interface{}{"$is_active", 1, 0}}},
			"with_conflicts": bson.M{"$sum": bson.M{"$cond": []interface{}{"$has_conflict", 1, 0}}},
			"with_errors": bson.M{"$sum": bson.M{"$cond": []interface{}{
				bson.M{"$gt": []interface{}{bson.M{"$strLenCP": bson.M{"$ifNull": []interface{}{"$last_error", ""}}}, 0}}, 1, 0}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Storage(err, "mapping stats aggregation failed")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		System        models.ExternalSystem `bson:"_id"`
		Total         int64                 `bson:"total"`
		Active        int64                 `bson:"active"`
		WithConflicts int64                 `bson:"with_conflicts"`
		WithErrors    int64                 `bson:"with_errors"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperrors.Storage(err, "failed to decode mapping stats")
	}

	for _, row := range rows {
		stats.Total += row.Total
		stats.Active += row.Active
		stats.WithConflicts += row.WithConflicts
		stats.WithErrors += row.WithErrors
		stats.BySystem[row.System] = &SystemStats{
			Total:         row.Total,
			Active:        row.Active,
			WithConflicts: row.WithConflicts,
			WithErrors:    row.WithErrors,
		}
	}
	return stats, nil
}

func (r *MappingRepositoryImpl) EntityBreakdown(ctx context.Context) (map[models.InternalEntityType]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$internal_entity_type",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Storage(err, "entity breakdown aggregation failed")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		EntityType models.InternalEntityType `bson:"_id"`
		Count      int64                     `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperrors.Storage(err, "failed to decode entity breakdown")
	}

	out := make(map[models.InternalEntityType]int64, len(rows))
	for _, row := range rows {
		out[row.EntityType] = row.Count
	}
	return out, nil
}

func (r *MappingRepositoryImpl) CountUpdatedSince(ctx context.Context, since time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"updated_at": bson.M{"$gte": since}})
	if err != nil {
		return 0, apperrors.Storage(err, "recent activity count failed")
	}
	return count, nil
}

// FindDuplicates detects identity-triple collisions the unique index could not
// prevent (races before index creation, imported legacy rows).
func (r *MappingRepositoryImpl) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"external_system":      "$external_system",
				"external_id":          "$external_id",
				"internal_entity_type": "$internal_entity_type",
			},
			"count":       bson.M{"$sum": 1},
			"mapping_ids": bson.M{"$push": "$_id"},
		}}},
		{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Storage(err, "duplicate detection aggregation failed")
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key struct {
			ExternalSystem     models.ExternalSystem     `bson:"external_system"`
			ExternalID         string                    `bson:"external_id"`
			InternalEntityType models.InternalEntityType `bson:"internal_entity_type"`
		} `bson:"_id"`
		Count      int64                `bson:"count"`
		MappingIDs []primitive.ObjectID `bson:"mapping_ids"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperrors.Storage(err, "failed to decode duplicate groups")
	}

	groups := make([]DuplicateGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, DuplicateGroup{
			ExternalSystem:     row.Key.ExternalSystem,
			ExternalID:         row.Key.ExternalID,
			InternalEntityType: row.Key.InternalEntityType,
			Count:              row.Count,
			MappingIDs:         row.MappingIDs,
		})
	}
	return groups, nil
}

// CleanupOldInactive hard-deletes inactive mappings older than the threshold.
// Active mappings are never touched, whatever their age.
func (r *MappingRepositoryImpl) CleanupOldInactive(ctx context.Context, daysOld int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"is_active":  false,
		"updated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, apperrors.Storage(err, "cleanup of old inactive mappings failed")
	}
	return res.DeletedCount, nil
}
