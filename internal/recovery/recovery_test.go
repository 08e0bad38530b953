package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/model"
)

type fakeStore struct {
	previous *model.ProcessedDataSnapshot
	docs     []model.ProcessedDocument
	ops      []*model.RecoveryOperation
	status   model.DataSourceStatus
}

func (f *fakeStore) GetPreviousSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	return f.previous, nil
}
func (f *fakeStore) LoadSnapshotDocuments(ctx context.Context, snapshotID primitive.ObjectID) ([]model.ProcessedDocument, error) {
	return f.docs, nil
}
func (f *fakeStore) CreateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error {
	op.ID = primitive.NewObjectID()
	f.ops = append(f.ops, op)
	return nil
}
func (f *fakeStore) UpdateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error {
	return nil
}
func (f *fakeStore) SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error {
	f.status = status
	return nil
}

type fakeRepublisher struct {
	err       error
	callCount int
}

func (f *fakeRepublisher) Republish(ctx context.Context, ds *model.DataSource, docs []model.ProcessedDocument) error {
	f.callCount++
	return f.err
}

func TestRecoverNoOpWhenNoPreviousSnapshot(t *testing.T) {
	store := &fakeStore{}
	pub := &fakeRepublisher{}
	mgr := New(store, pub, logrus.NewEntry(logrus.New()))

	ds := &model.DataSource{ID: primitive.NewObjectID()}
	failed := &model.ProcessedDataSnapshot{ID: primitive.NewObjectID()}

	err := mgr.Recover(context.Background(), ds, failed)
	require.NoError(t, err)
	require.Equal(t, 0, pub.callCount)
	require.Len(t, store.ops, 1)
	require.Equal(t, model.RecoveryCompleted, store.ops[0].Status)
}

func TestRecoverRepublishesPreviousSnapshotDocuments(t *testing.T) {
	prev := &model.ProcessedDataSnapshot{ID: primitive.NewObjectID()}
	store := &fakeStore{
		previous: prev,
		docs:     []model.ProcessedDocument{{SourceID: "p1"}},
	}
	pub := &fakeRepublisher{}
	mgr := New(store, pub, logrus.NewEntry(logrus.New()))

	ds := &model.DataSource{ID: primitive.NewObjectID()}
	failed := &model.ProcessedDataSnapshot{ID: primitive.NewObjectID()}

	err := mgr.Recover(context.Background(), ds, failed)
	require.NoError(t, err)
	require.Equal(t, 1, pub.callCount)
	require.Equal(t, model.DataSourceActive, store.status)
	require.Equal(t, model.RecoveryCompleted, store.ops[0].Status)
	require.Equal(t, &prev.ID, store.ops[0].ToSnapshotID)
}

func TestRecoverMarksFailedOnRepublishError(t *testing.T) {
	prev := &model.ProcessedDataSnapshot{ID: primitive.NewObjectID()}
	store := &fakeStore{previous: prev, docs: []model.ProcessedDocument{{SourceID: "p1"}}}
	pub := &fakeRepublisher{err: errors.New("search unreachable")}
	mgr := New(store, pub, logrus.NewEntry(logrus.New()))

	ds := &model.DataSource{ID: primitive.NewObjectID()}
	failed := &model.ProcessedDataSnapshot{ID: primitive.NewObjectID()}

	err := mgr.Recover(context.Background(), ds, failed)
	require.Error(t, err)
	require.Equal(t, model.RecoveryFailed, store.ops[0].Status)
}
