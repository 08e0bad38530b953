package syncengine

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/model"
)

// fakeStore is an in-memory double satisfying staging.Store, commit.Store,
// recovery.Store, and scheduler.DataSourceLister/DataSourceUpdater, in the
// teacher's style of hand-written test doubles rather than a generated mock.
type fakeStore struct {
	dataSources map[primitive.ObjectID]*model.DataSource
	snapshots   map[primitive.ObjectID]*model.ProcessedDataSnapshot
	docs        map[primitive.ObjectID][]model.ProcessedDocument
	docKeys     map[string]bool // dedupe key: snapshot_id|source_id
	execs       map[primitive.ObjectID]*model.SyncExecution
	recoveryOps []*model.RecoveryOperation
	failMsgs    map[primitive.ObjectID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dataSources: make(map[primitive.ObjectID]*model.DataSource),
		snapshots:   make(map[primitive.ObjectID]*model.ProcessedDataSnapshot),
		docs:        make(map[primitive.ObjectID][]model.ProcessedDocument),
		docKeys:     make(map[string]bool),
		execs:       make(map[primitive.ObjectID]*model.SyncExecution),
		failMsgs:    make(map[primitive.ObjectID]string),
	}
}

func (f *fakeStore) GetDataSource(ctx context.Context, id primitive.ObjectID) (*model.DataSource, error) {
	return f.dataSources[id], nil
}
func (f *fakeStore) UpdateDataSource(ctx context.Context, ds *model.DataSource) error {
	f.dataSources[ds.ID] = ds
	return nil
}
func (f *fakeStore) ListDataSources(ctx context.Context, appID string) ([]model.DataSource, error) {
	out := make([]model.DataSource, 0, len(f.dataSources))
	for _, ds := range f.dataSources {
		if appID == "" || ds.AppID == appID {
			out = append(out, *ds)
		}
	}
	return out, nil
}
func (f *fakeStore) SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error {
	if ds, ok := f.dataSources[id]; ok {
		ds.Status = status
	}
	return nil
}
func (f *fakeStore) UpdateDataSourceLastSync(ctx context.Context, id primitive.ObjectID, now time.Time, nextSync *time.Time) error {
	if ds, ok := f.dataSources[id]; ok {
		ds.LastSync = &now
		ds.NextSync = nextSync
	}
	return nil
}

func (f *fakeStore) CreateSyncExecution(ctx context.Context, exec *model.SyncExecution) error {
	exec.ID = primitive.NewObjectID()
	f.execs[exec.ID] = exec
	return nil
}
func (f *fakeStore) UpdateSyncExecution(ctx context.Context, exec *model.SyncExecution) error {
	f.execs[exec.ID] = exec
	return nil
}

func (f *fakeStore) GetStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID, syncVersion string) (*model.ProcessedDataSnapshot, error) {
	for _, s := range f.snapshots {
		if s.DataSourceID == dataSourceID && s.SyncVersion == syncVersion && s.SnapshotType == model.SnapshotStaging {
			return s, nil
		}
	}
	return nil, nil
}
func (f *fakeStore) GetLatestStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	var latest *model.ProcessedDataSnapshot
	for _, s := range f.snapshots {
		if s.DataSourceID == dataSourceID && s.SnapshotType == model.SnapshotStaging {
			if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
				latest = s
			}
		}
	}
	return latest, nil
}
func (f *fakeStore) GetCurrentSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	for _, s := range f.snapshots {
		if s.DataSourceID == dataSourceID && s.SnapshotType == model.SnapshotCurrent {
			return s, nil
		}
	}
	return nil, nil
}
func (f *fakeStore) GetPreviousSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error) {
	for _, s := range f.snapshots {
		if s.DataSourceID == dataSourceID && s.SnapshotType == model.SnapshotPrevious {
			return s, nil
		}
	}
	return nil, nil
}
func (f *fakeStore) CreateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error {
	if snap.ID.IsZero() {
		snap.ID = primitive.NewObjectID()
	}
	f.snapshots[snap.ID] = snap
	return nil
}
func (f *fakeStore) UpdateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error {
	f.snapshots[snap.ID] = snap
	return nil
}
func (f *fakeStore) MarkSnapshotFailed(ctx context.Context, id primitive.ObjectID, msg string) error {
	f.failMsgs[id] = msg
	return nil
}

func (f *fakeStore) StoreProcessedDocuments(ctx context.Context, docs []*model.ProcessedDocument) error {
	for _, d := range docs {
		key := d.SnapshotID.Hex() + "|" + d.SourceID
		if f.docKeys[key] {
			continue // benign duplicate, matches the unique-index tolerance in snapshotstore
		}
		f.docKeys[key] = true
		f.docs[d.SnapshotID] = append(f.docs[d.SnapshotID], *d)
	}
	return nil
}
func (f *fakeStore) LoadSnapshotDocuments(ctx context.Context, snapshotID primitive.ObjectID) ([]model.ProcessedDocument, error) {
	out := append([]model.ProcessedDocument(nil), f.docs[snapshotID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

func (f *fakeStore) PromoteStagingToCurrent(ctx context.Context, dataSourceID, stagingID primitive.ObjectID, now time.Time) error {
	if current, _ := f.GetCurrentSnapshot(ctx, dataSourceID); current != nil {
		current.SnapshotType = model.SnapshotPrevious
	}
	staging, ok := f.snapshots[stagingID]
	if !ok {
		return nil
	}
	staging.SnapshotType = model.SnapshotCurrent
	staging.CommittedAt = &now
	return nil
}
func (f *fakeStore) DemoteSnapshotToPrevious(ctx context.Context, id primitive.ObjectID) error {
	if s, ok := f.snapshots[id]; ok {
		s.SnapshotType = model.SnapshotPrevious
	}
	return nil
}

func (f *fakeStore) CleanupOldSnapshots(ctx context.Context, dataSourceID primitive.ObjectID, retentionDays, maxSnapshots int) error {
	return nil
}

func (f *fakeStore) CreateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error {
	op.ID = primitive.NewObjectID()
	f.recoveryOps = append(f.recoveryOps, op)
	return nil
}
func (f *fakeStore) UpdateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error {
	for i, o := range f.recoveryOps {
		if o.ID == op.ID {
			f.recoveryOps[i] = op
		}
	}
	return nil
}
