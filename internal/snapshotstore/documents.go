package snapshotstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syncforge/ingestion/internal/model"
)

// StoreProcessedDocuments batch-inserts docs. Unique (snapshot_id,
// source_id) violations are benign resume-duplicates and are swallowed
// per-document rather than failing the whole batch (spec.md §4.E).
func (s *Store) StoreProcessedDocuments(ctx context.Context, docs []*model.ProcessedDocument) error {
	if len(docs) == 0 {
		return nil
	}
	toInsert := make([]interface{}, len(docs))
	for i, d := range docs {
		if d.ID.IsZero() {
			d.ID = primitive.NewObjectID()
		}
		toInsert[i] = d
	}

	_, err := s.documents().InsertMany(ctx, toInsert, options.InsertMany().SetOrdered(false))
	if err == nil {
		return nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if !isDuplicateKeyCode(we.Code) {
				return &model.StorageError{Op: "store_processed_documents", Cause: err}
			}
		}
		return nil
	}

	return &model.StorageError{Op: "store_processed_documents", Cause: err}
}

func isDuplicateKeyCode(code int) bool {
	return code == 11000 || code == 11001
}

// LoadSnapshotDocuments returns every ProcessedDocument belonging to snapshotID.
func (s *Store) LoadSnapshotDocuments(ctx context.Context, snapshotID primitive.ObjectID) ([]model.ProcessedDocument, error) {
	cur, err := s.documents().Find(ctx, bson.M{"snapshot_id": snapshotID})
	if err != nil {
		return nil, &model.StorageError{Op: "load_snapshot_documents", Cause: err}
	}
	defer cur.Close(ctx)

	var out []model.ProcessedDocument
	if err := cur.All(ctx, &out); err != nil {
		return nil, &model.StorageError{Op: "load_snapshot_documents", Cause: err}
	}
	return out, nil
}

// ReprocessDocument rewrites a single ProcessedDocument's `document` field
// in place, the dedicated repair pathway for an otherwise-immutable
// ProcessedDocument (spec.md §3 lifecycle note).
func (s *Store) ReprocessDocument(ctx context.Context, id primitive.ObjectID, newDoc map[string]interface{}, checksum string) error {
	_, err := s.documents().UpdateOne(ctx, bsonID(id), bsonSet(map[string]interface{}{
		"document": newDoc,
		"checksum": checksum,
	}))
	if err != nil {
		return &model.StorageError{Op: "reprocess_document", Cause: err}
	}
	return nil
}
