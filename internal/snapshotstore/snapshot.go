package snapshotstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syncforge/ingestion/internal/model"
)

// CreateSnapshot inserts a new ProcessedDataSnapshot and sets its generated ID.
func (s *Store) CreateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error {
	snap.ID = primitive.NewObjectID()
	_, err := s.snapshots().InsertOne(ctx, snap)
	if err != nil {
		return &model.StorageError{Op: "create_snapshot", Cause: err}
	}
	return nil
}

// UpdateSnapshot replaces the stored snapshot by id.
func (s *Store) UpdateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error {
	_, err := s.snapshots().ReplaceOne(ctx, bson.M{"_id": snap.ID}, snap)
	if err != nil {
		return &model.StorageError{Op: "update_snapshot", Cause: err}
	}
	return nil
}

// MarkSnapshotFailed is a narrow update recording a failure message in
// metadata without requiring the full snapshot round-trip.
func (s *Store) MarkSnapshotFailed(ctx context.Context, id primitive.ObjectID, msg string) error {
	_, err := s.snapshots().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"metadata.last_error": msg},
	})
	if err != nil {
		return &model.StorageError{Op: "mark_snapshot_failed", Cause: err}
	}
	return nil
}

// GetCurrentSnapshot returns the single Current snapshot for a data source, if any.
func (s *Store) GetCurrentSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	return s.findOneSnapshot(ctx, bson.M{"data_source_id": dataSourceID, "snapshot_type": model.SnapshotCurrent})
}

// GetPreviousSnapshot returns the single Previous snapshot for a data source, if any.
func (s *Store) GetPreviousSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	return s.findOneSnapshot(ctx, bson.M{"data_source_id": dataSourceID, "snapshot_type": model.SnapshotPrevious})
}

// GetStagingSnapshot returns the Staging snapshot matching (dataSourceID, syncVersion), if any.
func (s *Store) GetStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID, syncVersion string) (*model.ProcessedDataSnapshot, error) {
	return s.findOneSnapshot(ctx, bson.M{
		"data_source_id": dataSourceID,
		"snapshot_type":  model.SnapshotStaging,
		"sync_version":   syncVersion,
	})
}

// GetLatestStagingSnapshot returns the most recently created Staging
// snapshot for a data source regardless of sync_version, used for resume
// when the requested version has no exact match (spec.md §4.F step 4).
func (s *Store) GetLatestStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var snap model.ProcessedDataSnapshot
	err := s.snapshots().FindOne(ctx, bson.M{
		"data_source_id": dataSourceID,
		"snapshot_type":  model.SnapshotStaging,
	}, opts).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get_latest_staging_snapshot", Cause: err}
	}
	return &snap, nil
}

func (s *Store) findOneSnapshot(ctx context.Context, filter bson.M) (*model.ProcessedDataSnapshot, error) {
	var snap model.ProcessedDataSnapshot
	err := s.snapshots().FindOne(ctx, filter).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "find_snapshot", Cause: err}
	}
	return &snap, nil
}
