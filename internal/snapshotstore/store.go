// Package snapshotstore implements the Snapshot Store (spec.md §4.E): the
// persistent data model for data sources, snapshots, processed documents,
// sync executions, and recovery operations, backed by MongoDB.
package snapshotstore

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	collDataSources     = "data_sources"
	collSnapshots       = "processed_data_snapshots"
	collDocuments       = "processed_documents"
	collSyncExecutions  = "sync_executions"
	collRecoveryOps     = "recovery_operations"
)

// Store is the Snapshot Store: all reads/writes to the core entities flow
// through here. Callers outside the core may read but must never mutate
// snapshots directly (spec.md §4.E ownership note).
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	retryWrites  bool
	log          *logrus.Entry
}

// New wraps an already-connected *mongo.Client against databaseName.
// retryWritesEnabled mirrors the deployment's MONGODB_RETRY_WRITES setting:
// when false, PromoteStagingToCurrent skips the transaction. Document
// inserts and DemoteSnapshotToPrevious never run inside a transaction,
// whatever the setting.
func New(client *mongo.Client, databaseName string, retryWritesEnabled bool, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		client:      client,
		db:          client.Database(databaseName),
		retryWrites: retryWritesEnabled,
		log:         log,
	}
}

func (s *Store) dataSources() *mongo.Collection    { return s.db.Collection(collDataSources) }
func (s *Store) snapshots() *mongo.Collection      { return s.db.Collection(collSnapshots) }
func (s *Store) documents() *mongo.Collection      { return s.db.Collection(collDocuments) }
func (s *Store) syncExecutions() *mongo.Collection { return s.db.Collection(collSyncExecutions) }
func (s *Store) recoveryOps() *mongo.Collection    { return s.db.Collection(collRecoveryOps) }

// EnsureIndexes creates the logical indexes described in spec.md §4.E. Safe
// to call repeatedly; index creation is idempotent in MongoDB.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := ensureDataSourceIndexes(ctx, s.dataSources()); err != nil {
		return err
	}
	if err := ensureSnapshotIndexes(ctx, s.snapshots()); err != nil {
		return err
	}
	if err := ensureDocumentIndexes(ctx, s.documents()); err != nil {
		return err
	}
	if err := ensureSyncExecutionIndexes(ctx, s.syncExecutions()); err != nil {
		return err
	}
	return nil
}

// startSessionOrFallback attempts to start a transactional session; on
// failure it returns (nil, false) so callers fall back to sequential
// non-transactional writes with a logged warning, per spec.md §4.E/§9.
func (s *Store) startSessionOrFallback(ctx context.Context) (mongo.Session, bool) {
	if !s.retryWrites {
		return nil, false
	}
	sess, err := s.client.StartSession()
	if err != nil {
		s.log.WithError(err).Warn("could not start mongo session, falling back to non-transactional writes")
		return nil, false
	}
	return sess, true
}
