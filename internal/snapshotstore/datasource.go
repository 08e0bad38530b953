package snapshotstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/syncforge/ingestion/internal/model"
)

// CreateDataSource inserts a new DataSource and sets its generated ID.
func (s *Store) CreateDataSource(ctx context.Context, ds *model.DataSource) error {
	ds.ID = primitive.NewObjectID()
	_, err := s.dataSources().InsertOne(ctx, ds)
	if err != nil {
		return &model.StorageError{Op: "create_data_source", Cause: err}
	}
	return nil
}

// GetDataSource loads a DataSource by id.
func (s *Store) GetDataSource(ctx context.Context, id primitive.ObjectID) (*model.DataSource, error) {
	var ds model.DataSource
	err := s.dataSources().FindOne(ctx, bson.M{"_id": id}).Decode(&ds)
	if err == mongo.ErrNoDocuments {
		return nil, &model.StorageError{Op: "get_data_source", Cause: fmt.Errorf("data source %s not found", id.Hex())}
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get_data_source", Cause: err}
	}
	return &ds, nil
}

// UpdateDataSource replaces the stored DataSource document by id.
func (s *Store) UpdateDataSource(ctx context.Context, ds *model.DataSource) error {
	_, err := s.dataSources().ReplaceOne(ctx, bson.M{"_id": ds.ID}, ds)
	if err != nil {
		return &model.StorageError{Op: "update_data_source", Cause: err}
	}
	return nil
}

// ListDataSources returns enabled/disabled data sources, optionally scoped to appID.
func (s *Store) ListDataSources(ctx context.Context, appID string) ([]model.DataSource, error) {
	filter := bson.M{}
	if appID != "" {
		filter["app_id"] = appID
	}
	cur, err := s.dataSources().Find(ctx, filter)
	if err != nil {
		return nil, &model.StorageError{Op: "list_data_sources", Cause: err}
	}
	defer cur.Close(ctx)

	var out []model.DataSource
	if err := cur.All(ctx, &out); err != nil {
		return nil, &model.StorageError{Op: "list_data_sources", Cause: err}
	}
	return out, nil
}

// UpdateDataSourceLastSync stamps last_sync=now and recomputes next_sync,
// which the caller supplies having already evaluated the cron expression.
func (s *Store) UpdateDataSourceLastSync(ctx context.Context, id primitive.ObjectID, now time.Time, nextSync *time.Time) error {
	_, err := s.dataSources().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_sync": now, "next_sync": nextSync},
	})
	if err != nil {
		return &model.StorageError{Op: "update_data_source_last_sync", Cause: err}
	}
	return nil
}

// SetDataSourceStatus transitions a DataSource's status field only.
func (s *Store) SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error {
	_, err := s.dataSources().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return &model.StorageError{Op: "set_data_source_status", Cause: err}
	}
	return nil
}
