package commit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/model"
	"github.com/syncforge/ingestion/internal/searchclient"
)

type fakeStore struct {
	current        *model.ProcessedDataSnapshot
	docs           []model.ProcessedDocument
	failedMessages []string
	promoted       bool
	statusSet      model.DataSourceStatus
}

func (f *fakeStore) GetCurrentSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	return f.current, nil
}
func (f *fakeStore) LoadSnapshotDocuments(ctx context.Context, snapshotID primitive.ObjectID) ([]model.ProcessedDocument, error) {
	return f.docs, nil
}
func (f *fakeStore) UpdateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error {
	return nil
}
func (f *fakeStore) MarkSnapshotFailed(ctx context.Context, id primitive.ObjectID, msg string) error {
	f.failedMessages = append(f.failedMessages, msg)
	return nil
}
func (f *fakeStore) PromoteStagingToCurrent(ctx context.Context, dataSourceID, stagingID primitive.ObjectID, now time.Time) error {
	f.promoted = true
	return nil
}
func (f *fakeStore) DemoteSnapshotToPrevious(ctx context.Context, id primitive.ObjectID) error {
	return nil
}
func (f *fakeStore) UpdateDataSourceLastSync(ctx context.Context, id primitive.ObjectID, now time.Time, nextSync *time.Time) error {
	return nil
}
func (f *fakeStore) SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error {
	f.statusSet = status
	return nil
}
func (f *fakeStore) CleanupOldSnapshots(ctx context.Context, dataSourceID primitive.ObjectID, retentionDays, maxSnapshots int) error {
	return nil
}

func readyDoc(id string) model.ProcessedDocument {
	return model.ProcessedDocument{
		SourceID: id,
		Document: map[string]interface{}{"id": id, "price": 9.99, "title": "widget " + id},
	}
}

func TestCommitAbortsWhenSnapshotNotReady(t *testing.T) {
	store := &fakeStore{}
	coord := New(store, searchclient.New("http://unused", nil), nil, nil, 10, 3, time.Millisecond, logrus.NewEntry(logrus.New()))

	ds := &model.DataSource{ID: primitive.NewObjectID()}
	snap := &model.ProcessedDataSnapshot{
		ID:           primitive.NewObjectID(),
		DataSourceID: ds.ID,
		SnapshotType: model.SnapshotStaging,
		Metadata:     model.SnapshotMetadata{FailedRecords: 1},
	}

	err := coord.Commit(context.Background(), ds, snap)
	require.Error(t, err)
	require.False(t, store.promoted)
	require.Equal(t, model.DataSourceError, store.statusSet)
}

func TestCommitHappyPathPromotesSnapshot(t *testing.T) {
	var gotMutations int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotMutations++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"upsertProducts":true}}`))
	}))
	defer srv.Close()

	store := &fakeStore{docs: []model.ProcessedDocument{readyDoc("p1"), readyDoc("p2")}}
	search := searchclient.New(srv.URL, srv.Client())
	coord := New(store, search, nil, nil, 10, 3, time.Millisecond, logrus.NewEntry(logrus.New()))

	ds := &model.DataSource{ID: primitive.NewObjectID(), AppID: "app1"}
	snap := &model.ProcessedDataSnapshot{
		ID:            primitive.NewObjectID(),
		DataSourceID:  ds.ID,
		SnapshotType:  model.SnapshotStaging,
		DocumentCount: 2,
		SyncVersion:   "sync_1",
	}

	err := coord.Commit(context.Background(), ds, snap)
	require.NoError(t, err)
	require.True(t, store.promoted)
	require.Equal(t, model.DataSourceActive, store.statusSet)
	require.Equal(t, 1, gotMutations)
}

func TestUpsertWindowHalvesOnPayloadTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables struct {
				Docs []map[string]interface{} `json:"docs"`
			} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if len(body.Variables.Docs) > 1 {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = w.Write([]byte(`payload too large`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"upsertProducts":true}}`))
	}))
	defer srv.Close()

	search := searchclient.New(srv.URL, srv.Client())
	coord := New(&fakeStore{}, search, nil, nil, 10, 1, time.Millisecond, logrus.NewEntry(logrus.New()))

	ds := &model.DataSource{ID: primitive.NewObjectID(), AppID: "app1"}
	window := []model.ProcessedDocument{readyDoc("a"), readyDoc("b"), readyDoc("c")}

	committed, err := coord.upsertWindow(context.Background(), ds, window)
	require.NoError(t, err)
	require.Len(t, committed, 3)
}
