package snapshotstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/model"
)

// CreateSyncExecution inserts a new SyncExecution and sets its generated ID.
func (s *Store) CreateSyncExecution(ctx context.Context, exec *model.SyncExecution) error {
	exec.ID = primitive.NewObjectID()
	_, err := s.syncExecutions().InsertOne(ctx, exec)
	if err != nil {
		return &model.StorageError{Op: "create_sync_execution", Cause: err}
	}
	return nil
}

// UpdateSyncExecution replaces the stored SyncExecution by id.
func (s *Store) UpdateSyncExecution(ctx context.Context, exec *model.SyncExecution) error {
	_, err := s.syncExecutions().ReplaceOne(ctx, bson.M{"_id": exec.ID}, exec)
	if err != nil {
		return &model.StorageError{Op: "update_sync_execution", Cause: err}
	}
	return nil
}

// CreateRecoveryOperation inserts a new RecoveryOperation and sets its generated ID.
func (s *Store) CreateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error {
	op.ID = primitive.NewObjectID()
	_, err := s.recoveryOps().InsertOne(ctx, op)
	if err != nil {
		return &model.StorageError{Op: "create_recovery_operation", Cause: err}
	}
	return nil
}

// UpdateRecoveryOperation replaces the stored RecoveryOperation by id.
func (s *Store) UpdateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error {
	_, err := s.recoveryOps().ReplaceOne(ctx, bson.M{"_id": op.ID}, op)
	if err != nil {
		return &model.StorageError{Op: "update_recovery_operation", Cause: err}
	}
	return nil
}
