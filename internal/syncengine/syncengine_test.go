package syncengine

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/commit"
	"github.com/syncforge/ingestion/internal/embedclient"
	"github.com/syncforge/ingestion/internal/enrich"
	"github.com/syncforge/ingestion/internal/fetch"
	"github.com/syncforge/ingestion/internal/mapping"
	"github.com/syncforge/ingestion/internal/model"
	"github.com/syncforge/ingestion/internal/recovery"
	"github.com/syncforge/ingestion/internal/scheduler"
	"github.com/syncforge/ingestion/internal/searchclient"
	"github.com/syncforge/ingestion/internal/staging"
	"github.com/syncforge/ingestion/internal/validate"
)

// wiredEngine builds a Staging Controller + Commit Coordinator + Recovery
// Manager against the in-memory fakeStore and a search server, exercising
// the same wiring as syncengine.New but with test doubles instead of live
// Mongo/Redis (five of spec.md §8's six concrete scenarios; adaptive
// chunking is covered in internal/commit).
type wiredEngine struct {
	store      *fakeStore
	controller *staging.Controller
	search     *mockSearch
}

type mockSearch struct {
	batches    [][]map[string]interface{}
	failStatus int // if non-zero, every upsert fails with this HTTP status
}

func newWiredEngine(t *testing.T, ds *model.DataSource, fetchSrv *httptest.Server, failStatus int) *wiredEngine {
	t.Helper()
	store := newFakeStore()
	store.dataSources[ds.ID] = ds

	mock := &mockSearch{failStatus: failStatus}
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables struct {
				Docs []map[string]interface{} `json:"docs"`
			} `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if mock.failStatus != 0 {
			w.WriteHeader(mock.failStatus)
			_, _ = w.Write([]byte("search service unavailable"))
			return
		}
		mock.batches = append(mock.batches, body.Variables.Docs)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"upsertProducts":true}}`))
	}))
	t.Cleanup(searchSrv.Close)

	fetcher := fetch.New(fetchSrv.Client(), 5*time.Second, "test-agent")
	search := searchclient.New(searchSrv.URL, searchSrv.Client())
	guard := scheduler.NewConcurrencyGuard()

	coordinator := commit.New(store, search, nil, nil, 100, 1, time.Millisecond, nil)
	recoveryMgr := recovery.New(store, coordinator, nil)
	coordinator.SetRecoverer(recoveryMgr)

	embed := embedclient.New(fetchSrv.URL, fetchSrv.Client(), nil)
	controller := staging.New(store, fetcher, mapping.New(), validate.New(), enrich.New(embed, nil), coordinator, guard, 100, nil)

	return &wiredEngine{store: store, controller: controller, search: mock}
}

func apiDataSource(url string, batchSize int) *model.DataSource {
	return &model.DataSource{
		ID:      primitive.NewObjectID(),
		AppID:   "app1",
		Enabled: true,
		SourceType: model.SourceType{
			Kind:     model.SourceAPI,
			Endpoint: url,
		},
		Mapping: model.FieldMapping{
			Fields: map[string]model.Rule{
				"id":         {SourcePath: "id", TargetField: "id", DataType: model.TypeString},
				"price":      {SourcePath: "price", TargetField: "price", DataType: model.TypeFloat},
				"categories": {SourcePath: "categories", TargetField: "categories", DataType: model.TypeString},
				"name":       {SourcePath: "title", TargetField: "name", DataType: model.TypeString},
			},
		},
		Config: model.DataSourceConfig{BatchSize: batchSize},
	}
}

func jsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// Scenario 1: happy path.
func TestScenarioHappyPath(t *testing.T) {
	fetchSrv := jsonServer(t, `[
		{"id":"1","title":"Red Shoe","price":9.99,"categories":"shoes"},
		{"id":"2","title":"Blue Shoe","price":19.99,"categories":"shoes"},
		{"id":"3","title":"Green Shoe","price":29.99,"categories":"shoes"}
	]`)
	ds := apiDataSource(fetchSrv.URL, 10)
	eng := newWiredEngine(t, ds, fetchSrv, 0)

	err := eng.controller.ExecuteSync(context.Background(), ds.ID.Hex())
	require.NoError(t, err)

	current, _ := eng.store.GetCurrentSnapshot(context.Background(), ds.ID)
	require.NotNil(t, current)
	require.EqualValues(t, 3, current.DocumentCount)
	require.Len(t, eng.search.batches, 1)
	require.Len(t, eng.search.batches[0], 3)
}

// Scenario 2: resume after crash. The first run processes only offset [0,2)
// by pre-seeding a Staging snapshot with resume_offset=2 and a matching
// checksum, simulating a crash after chunk 1 persisted.
func TestScenarioResumeAfterCrash(t *testing.T) {
	fetchSrv := jsonServer(t, `[
		{"id":"1","title":"Red Shoe","price":9.99,"categories":"shoes"},
		{"id":"2","title":"Blue Shoe","price":19.99,"categories":"shoes"},
		{"id":"3","title":"Green Shoe","price":29.99,"categories":"shoes"}
	]`)
	ds := apiDataSource(fetchSrv.URL, 2)
	eng := newWiredEngine(t, ds, fetchSrv, 0)

	records := []fetch.Record{
		{"id": "1"}, {"id": "2"}, {"id": "3"},
	}
	checksum := computeChecksumForTest(records)
	offset := int64(2)
	staged := &model.ProcessedDataSnapshot{
		ID:           primitive.NewObjectID(),
		DataSourceID: ds.ID,
		SyncVersion:  "sync_prior",
		SnapshotType: model.SnapshotStaging,
		DocumentCount: 2,
		Metadata: model.SnapshotMetadata{
			DataSourceChecksum: checksum,
			ResumeOffset:       &offset,
			ProcessedRecords:   2,
		},
	}
	eng.store.snapshots[staged.ID] = staged
	eng.store.docs[staged.ID] = []model.ProcessedDocument{
		{SnapshotID: staged.ID, SourceID: "1", Document: map[string]interface{}{"id": "1"}},
		{SnapshotID: staged.ID, SourceID: "2", Document: map[string]interface{}{"id": "2"}},
	}
	eng.store.docKeys[staged.ID.Hex()+"|1"] = true
	eng.store.docKeys[staged.ID.Hex()+"|2"] = true

	err := eng.controller.ExecuteSync(context.Background(), ds.ID.Hex())
	require.NoError(t, err)

	current, _ := eng.store.GetCurrentSnapshot(context.Background(), ds.ID)
	require.NotNil(t, current)
	require.EqualValues(t, 3, current.Metadata.ProcessedRecords)
}

// Scenario 3: source drift resets resume_offset to 0 and reprocesses
// everything, because the new fetch's record ids no longer match the
// checksum recorded on the staging snapshot.
func TestScenarioSourceDriftResetsResumeOffset(t *testing.T) {
	fetchSrv := jsonServer(t, `[
		{"id":"a","title":"New A","price":1.5,"categories":"x"},
		{"id":"b","title":"New B","price":2.5,"categories":"x"},
		{"id":"c","title":"New C","price":3.5,"categories":"x"}
	]`)
	ds := apiDataSource(fetchSrv.URL, 10)
	eng := newWiredEngine(t, ds, fetchSrv, 0)

	offset := int64(2)
	staged := &model.ProcessedDataSnapshot{
		ID:           primitive.NewObjectID(),
		DataSourceID: ds.ID,
		SyncVersion:  "sync_prior",
		SnapshotType: model.SnapshotStaging,
		Metadata: model.SnapshotMetadata{
			DataSourceChecksum: "stale-checksum-from-a-different-feed",
			ResumeOffset:       &offset,
		},
	}
	eng.store.snapshots[staged.ID] = staged

	err := eng.controller.ExecuteSync(context.Background(), ds.ID.Hex())
	require.NoError(t, err)

	current, _ := eng.store.GetCurrentSnapshot(context.Background(), ds.ID)
	require.NotNil(t, current)
	require.EqualValues(t, 3, current.Metadata.ProcessedRecords)
}

// Scenario 4: commit failure triggers rollback and, when auto_recovery is
// enabled, a recorded RecoveryOperation.
func TestScenarioCommitFailureTriggersRollback(t *testing.T) {
	fetchSrv := jsonServer(t, `[{"id":"1","title":"Red Shoe","price":9.99,"categories":"shoes"}]`)
	ds := apiDataSource(fetchSrv.URL, 10)
	ds.Config.AutoRecoveryEnabled = true
	eng := newWiredEngine(t, ds, fetchSrv, http.StatusInternalServerError)

	err := eng.controller.ExecuteSync(context.Background(), ds.ID.Hex())
	require.Error(t, err)
	require.Equal(t, model.DataSourceError, eng.store.dataSources[ds.ID].Status)
	require.Len(t, eng.store.recoveryOps, 1)
}

// Scenario 6: a record missing all three category aliases is dropped under
// SkipInvalid, and does not block commit when other valid documents exist.
func TestScenarioCategoryOrRuleDropsInvalidRecord(t *testing.T) {
	fetchSrv := jsonServer(t, `[
		{"id":"1","title":"Has Category","price":9.99,"categories":"shoes"},
		{"id":"2","title":"No Category At All","price":5.00}
	]`)
	ds := apiDataSource(fetchSrv.URL, 10)
	ds.Config.ValidationStrategy = model.ValidationSkipInvalid
	eng := newWiredEngine(t, ds, fetchSrv, 0)

	err := eng.controller.ExecuteSync(context.Background(), ds.ID.Hex())
	require.NoError(t, err)

	current, _ := eng.store.GetCurrentSnapshot(context.Background(), ds.ID)
	require.NotNil(t, current)
	require.EqualValues(t, 1, current.DocumentCount)
	require.EqualValues(t, 1, current.Metadata.FailedRecords)
}

// computeChecksumForTest mirrors internal/staging's unexported computeChecksum
// for records whose ids are strings (fnv-64a over each record's id,
// NUL-separated) so the resume scenario's pre-seeded checksum matches what
// runStaging recomputes. Non-string ids fall back to the index here, which
// computeChecksum does not do; this file only uses string ids.
func computeChecksumForTest(records []fetch.Record) string {
	h := fnv.New64a()
	for i, rec := range records {
		var key string
		if id, ok := rec["id"]; ok {
			if s, ok := id.(string); ok {
				key = s
			} else {
				key = strconv.Itoa(i)
			}
		} else {
			key = strconv.Itoa(i)
		}
		_, _ = h.Write([]byte(key))
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
