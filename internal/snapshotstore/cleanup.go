package snapshotstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syncforge/ingestion/internal/model"
)

// CleanupOldSnapshots deletes Staging/Archived snapshots older than
// retentionDays, then among remaining Archived snapshots keeps only the
// newest maxSnapshots (spec.md §4.E).
func (s *Store) CleanupOldSnapshots(ctx context.Context, dataSourceID primitive.ObjectID, retentionDays, maxSnapshots int) error {
	if retentionDays > 0 {
		cutoff := time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
		_, err := s.snapshots().DeleteMany(ctx, bson.M{
			"data_source_id": dataSourceID,
			"snapshot_type":  bson.M{"$in": []model.SnapshotType{model.SnapshotStaging, model.SnapshotArchived}},
			"created_at":     bson.M{"$lt": cutoff},
		})
		if err != nil {
			return &model.StorageError{Op: "cleanup_old_snapshots", Cause: err}
		}
	}

	if maxSnapshots <= 0 {
		return nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetProjection(bson.M{"_id": 1})
	cur, err := s.snapshots().Find(ctx, bson.M{
		"data_source_id": dataSourceID,
		"snapshot_type":  model.SnapshotArchived,
	}, opts)
	if err != nil {
		return &model.StorageError{Op: "cleanup_old_snapshots", Cause: err}
	}
	defer cur.Close(ctx)

	var archived []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &archived); err != nil {
		return &model.StorageError{Op: "cleanup_old_snapshots", Cause: err}
	}
	if len(archived) <= maxSnapshots {
		return nil
	}

	var toDelete []primitive.ObjectID
	for _, a := range archived[maxSnapshots:] {
		toDelete = append(toDelete, a.ID)
	}
	_, err = s.snapshots().DeleteMany(ctx, bson.M{"_id": bson.M{"$in": toDelete}})
	if err != nil {
		return &model.StorageError{Op: "cleanup_old_snapshots", Cause: err}
	}
	return nil
}
