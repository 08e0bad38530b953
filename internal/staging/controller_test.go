package staging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/embedclient"
	"github.com/syncforge/ingestion/internal/enrich"
	"github.com/syncforge/ingestion/internal/fetch"
	"github.com/syncforge/ingestion/internal/mapping"
	"github.com/syncforge/ingestion/internal/model"
	"github.com/syncforge/ingestion/internal/scheduler"
	"github.com/syncforge/ingestion/internal/validate"
)

type fakeStore struct {
	ds        *model.DataSource
	snapshots map[primitive.ObjectID]*model.ProcessedDataSnapshot
	docs      []*model.ProcessedDocument
	execs     []*model.SyncExecution
}

func newFakeStore(ds *model.DataSource) *fakeStore {
	return &fakeStore{ds: ds, snapshots: map[primitive.ObjectID]*model.ProcessedDataSnapshot{}}
}

func (f *fakeStore) GetDataSource(ctx context.Context, id primitive.ObjectID) (*model.DataSource, error) {
	return f.ds, nil
}
func (f *fakeStore) UpdateDataSource(ctx context.Context, ds *model.DataSource) error {
	f.ds = ds
	return nil
}
func (f *fakeStore) SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error {
	f.ds.Status = status
	return nil
}
func (f *fakeStore) CreateSyncExecution(ctx context.Context, exec *model.SyncExecution) error {
	exec.ID = primitive.NewObjectID()
	f.execs = append(f.execs, exec)
	return nil
}
func (f *fakeStore) UpdateSyncExecution(ctx context.Context, exec *model.SyncExecution) error {
	return nil
}
func (f *fakeStore) GetStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID, syncVersion string) (*model.ProcessedDataSnapshot, error) {
	return nil, nil
}
func (f *fakeStore) GetLatestStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	return nil, nil
}
func (f *fakeStore) CreateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error {
	snap.ID = primitive.NewObjectID()
	f.snapshots[snap.ID] = snap
	return nil
}
func (f *fakeStore) UpdateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error {
	f.snapshots[snap.ID] = snap
	return nil
}
func (f *fakeStore) StoreProcessedDocuments(ctx context.Context, docs []*model.ProcessedDocument) error {
	f.docs = append(f.docs, docs...)
	return nil
}

type fakeCommitter struct{ called bool }

func (f *fakeCommitter) Commit(ctx context.Context, ds *model.DataSource, snapshot *model.ProcessedDataSnapshot) error {
	f.called = true
	return nil
}

func TestExecuteSyncHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","price":9.99,"categories":"shoes","name":"Red Running Shoe"}]`))
	}))
	defer server.Close()

	ds := &model.DataSource{
		ID:      primitive.NewObjectID(),
		AppID:   "app1",
		Enabled: true,
		SourceType: model.SourceType{
			Kind:     model.SourceAPI,
			Endpoint: server.URL,
		},
		Mapping: model.FieldMapping{
			Fields: map[string]model.Rule{
				"price":      {SourcePath: "price", TargetField: "price", DataType: model.TypeFloat},
				"categories": {SourcePath: "categories", TargetField: "categories", DataType: model.TypeString},
				"name":       {SourcePath: "name", TargetField: "name", DataType: model.TypeString},
			},
			AutocompleteFields: []string{"name"},
		},
		Config: model.DataSourceConfig{BatchSize: 10},
	}

	store := newFakeStore(ds)
	fetcher := fetch.New(server.Client(), 5*time.Second, "test-agent")
	embed := embedclient.New(server.URL, server.Client(), nil)
	enricher := enrich.New(embed, nil)
	committer := &fakeCommitter{}
	guard := scheduler.NewConcurrencyGuard()

	ctrl := New(store, fetcher, mapping.New(), validate.New(), enricher, committer, guard, 100, nil)

	err := ctrl.ExecuteSync(context.Background(), ds.ID.Hex())
	require.NoError(t, err)
	require.Len(t, store.docs, 1)
	require.True(t, committer.called)
	require.False(t, guard.IsRunning(ds.ID))
}

func TestExecuteSyncRejectsDisabledSource(t *testing.T) {
	ds := &model.DataSource{ID: primitive.NewObjectID(), Enabled: false}
	store := newFakeStore(ds)
	fetcher := fetch.New(nil, 5*time.Second, "test-agent")
	guard := scheduler.NewConcurrencyGuard()

	ctrl := New(store, fetcher, mapping.New(), validate.New(), nil, nil, guard, 100, nil)
	err := ctrl.ExecuteSync(context.Background(), ds.ID.Hex())
	require.Error(t, err)
}
