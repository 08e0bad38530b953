package snapshotstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ensureDataSourceIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "app_id", Value: 1}}},
		{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "next_sync", Value: 1}}},
		{Keys: bson.D{{Key: "enabled", Value: 1}, {Key: "next_sync", Value: 1}}},
	})
	return err
}

func ensureSnapshotIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "data_source_id", Value: 1}, {Key: "snapshot_type", Value: 1}}},
		{Keys: bson.D{{Key: "data_source_id", Value: 1}, {Key: "snapshot_type", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "sync_version", Value: 1}}},
	})
	return err
}

func ensureDocumentIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "snapshot_id", Value: 1}}},
		{Keys: bson.D{{Key: "source_id", Value: 1}}},
		{Keys: bson.D{{Key: "snapshot_id", Value: 1}, {Key: "source_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "checksum", Value: 1}}},
		{Keys: bson.D{{Key: "processed_at", Value: -1}}},
	})
	return err
}

func ensureSyncExecutionIndexes(ctx context.Context, coll *mongo.Collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "data_source_id", Value: 1}, {Key: "started_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	return err
}
