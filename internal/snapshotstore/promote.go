package snapshotstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/syncforge/ingestion/internal/model"
)

// PromoteStagingToCurrent demotes any existing Current snapshot to Previous
// and promotes stagingID to Current, stamping committed_at=now. The two
// writes run inside a transaction when a session is available; otherwise
// sequentially with a logged warning (spec.md §4.E/§4.G/§9).
func (s *Store) PromoteStagingToCurrent(ctx context.Context, dataSourceID, stagingID primitive.ObjectID, now time.Time) error {
	sess, transactional := s.startSessionOrFallback(ctx)
	if transactional {
		defer sess.EndSession(ctx)
		_, err := sess.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			return nil, s.promoteAndDemote(sessCtx, dataSourceID, stagingID, now)
		})
		if err != nil {
			return &model.StorageError{Op: "promote_snapshot_to_current", Cause: err}
		}
		return nil
	}

	s.log.WithField("data_source_id", dataSourceID.Hex()).Warn("promoting snapshot without a transaction; writes are not atomic")
	if err := s.promoteAndDemote(ctx, dataSourceID, stagingID, now); err != nil {
		return &model.StorageError{Op: "promote_snapshot_to_current", Cause: err}
	}
	return nil
}

// promoteAndDemote performs the demote-then-promote pair against whatever
// context it is given (plain context.Context or a mongo.SessionContext).
func (s *Store) promoteAndDemote(ctx context.Context, dataSourceID, stagingID primitive.ObjectID, now time.Time) error {
	current, err := s.GetCurrentSnapshot(ctx, dataSourceID)
	if err != nil {
		return err
	}
	if current != nil {
		if err := s.demoteSnapshotToPrevious(ctx, current.ID); err != nil {
			return err
		}
	}
	return s.promoteSnapshotToCurrentRaw(ctx, stagingID, now)
}

func (s *Store) promoteSnapshotToCurrentRaw(ctx context.Context, id primitive.ObjectID, now time.Time) error {
	_, err := s.snapshots().UpdateOne(ctx, bsonID(id), bsonSet(map[string]interface{}{
		"snapshot_type": model.SnapshotCurrent,
		"committed_at":  now,
	}))
	return err
}

// demoteSnapshotToPrevious transitions one snapshot from Current to
// Previous. Shared by promoteAndDemote and the exported
// DemoteSnapshotToPrevious.
func (s *Store) demoteSnapshotToPrevious(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.snapshots().UpdateOne(ctx, bsonID(id), bsonSet(map[string]interface{}{
		"snapshot_type": model.SnapshotPrevious,
	}))
	return err
}

// DemoteSnapshotToPrevious is the public entry point mirroring spec.md §4.E's
// `demote_snapshot_to_previous(id)` operation.
func (s *Store) DemoteSnapshotToPrevious(ctx context.Context, id primitive.ObjectID) error {
	if err := s.demoteSnapshotToPrevious(ctx, id); err != nil {
		return &model.StorageError{Op: "demote_snapshot_to_previous", Cause: err}
	}
	return nil
}
