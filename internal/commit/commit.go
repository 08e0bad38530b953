package commit

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/autocomplete"
	"github.com/syncforge/ingestion/internal/metrics"
	"github.com/syncforge/ingestion/internal/model"
	"github.com/syncforge/ingestion/internal/searchclient"
)

// Store is the narrow slice of snapshotstore.Store the Commit Coordinator
// depends on.
type Store interface {
	GetCurrentSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error)
	LoadSnapshotDocuments(ctx context.Context, snapshotID primitive.ObjectID) ([]model.ProcessedDocument, error)
	UpdateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error
	MarkSnapshotFailed(ctx context.Context, id primitive.ObjectID, msg string) error

	PromoteStagingToCurrent(ctx context.Context, dataSourceID, stagingID primitive.ObjectID, now time.Time) error
	DemoteSnapshotToPrevious(ctx context.Context, id primitive.ObjectID) error

	UpdateDataSourceLastSync(ctx context.Context, id primitive.ObjectID, now time.Time, nextSync *time.Time) error
	SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error

	CleanupOldSnapshots(ctx context.Context, dataSourceID primitive.ObjectID, retentionDays, maxSnapshots int) error
}

// Recoverer is implemented by the Recovery Manager, invoked when commit
// fails and the data source has auto-recovery enabled.
type Recoverer interface {
	Recover(ctx context.Context, ds *model.DataSource, failedSnapshot *model.ProcessedDataSnapshot) error
}

// Coordinator is the Commit Coordinator (spec.md §4.G).
type Coordinator struct {
	store    Store
	search   *searchclient.Client
	autocpl  *autocomplete.Store
	recovery Recoverer

	defaultBatchSize int
	httpMaxRetries   int
	httpBackoffBase  time.Duration

	log *logrus.Entry
}

// New builds a Coordinator.
func New(store Store, search *searchclient.Client, autocpl *autocomplete.Store, recovery Recoverer, defaultBatchSize, httpMaxRetries int, httpBackoffBase time.Duration, log *logrus.Entry) *Coordinator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Coordinator{
		store: store, search: search, autocpl: autocpl, recovery: recovery,
		defaultBatchSize: defaultBatchSize, httpMaxRetries: httpMaxRetries, httpBackoffBase: httpBackoffBase,
		log: log,
	}
}

// SetRecoverer wires the Recovery Manager after construction, breaking the
// mutual dependency between the Commit Coordinator (which triggers recovery)
// and the Recovery Manager (which republishes through the Coordinator).
func (c *Coordinator) SetRecoverer(r Recoverer) {
	c.recovery = r
}

// Commit runs the two-phase publish and promotion for a ready Staging
// snapshot (spec.md §4.G).
func (c *Coordinator) Commit(ctx context.Context, ds *model.DataSource, snapshot *model.ProcessedDataSnapshot) error {
	timer := time.Now()
	defer func() {
		metrics.CommitDuration.WithLabelValues(ds.ID.Hex(), "total").Observe(time.Since(timer).Seconds())
	}()

	strategy := ds.EffectiveValidationStrategy()
	if !snapshot.IsReadyForCommit() && !snapshot.CanCommitWithOverride(strategy) {
		return c.abortNotReady(ctx, ds, snapshot)
	}

	docs, err := c.store.LoadSnapshotDocuments(ctx, snapshot.ID)
	if err != nil {
		return err
	}

	current, err := c.store.GetCurrentSnapshot(ctx, ds.ID)
	if err != nil {
		return err
	}

	rollback := model.NewRollbackInfo(snapshot.SyncVersion)
	if current != nil {
		rollback.PreviousSnapshotID = &current.ID
	}

	if err := c.runSearchPhase(ctx, ds, docs, rollback); err != nil {
		c.compensateSearch(ctx, ds, rollback)
		c.maybeRecover(ctx, ds, snapshot)
		return c.fail(ctx, ds, snapshot, err)
	}

	if err := c.runAutocompletePhase(ctx, ds, docs, rollback); err != nil {
		c.compensateAutocomplete(ctx, rollback)
		c.compensateSearch(ctx, ds, rollback)
		c.maybeRecover(ctx, ds, snapshot)
		return c.fail(ctx, ds, snapshot, err)
	}

	snapshot.IndexState.SearchDocumentIDs = vespaDocIDs(rollback)

	now := time.Now().UTC()
	if err := c.store.PromoteStagingToCurrent(ctx, ds.ID, snapshot.ID, now); err != nil {
		return c.fail(ctx, ds, snapshot, err)
	}

	if err := c.store.UpdateDataSourceLastSync(ctx, ds.ID, now, ds.NextSync); err != nil {
		c.log.WithError(err).Warn("failed to update data source last_sync after commit")
	}
	if err := c.store.SetDataSourceStatus(ctx, ds.ID, model.DataSourceActive); err != nil {
		c.log.WithError(err).Warn("failed to reset data source status to active after commit")
	}

	if err := c.store.CleanupOldSnapshots(ctx, ds.ID, ds.Config.SnapshotRetentionDays, ds.Config.MaxSnapshots); err != nil {
		c.log.WithError(err).Warn("snapshot cleanup failed after commit")
	}

	return nil
}

// Republish re-feeds a fixed set of documents through the search and
// autocomplete phases without touching snapshot promotion; used by the
// Recovery Manager to roll a data source back to its previous snapshot's
// published state (spec.md §4.I).
func (c *Coordinator) Republish(ctx context.Context, ds *model.DataSource, docs []model.ProcessedDocument) error {
	rollback := model.NewRollbackInfo("recovery_" + ds.ID.Hex())

	if err := c.runSearchPhase(ctx, ds, docs, rollback); err != nil {
		c.compensateSearch(ctx, ds, rollback)
		return err
	}
	if err := c.runAutocompletePhase(ctx, ds, docs, rollback); err != nil {
		c.compensateAutocomplete(ctx, rollback)
		c.compensateSearch(ctx, ds, rollback)
		return err
	}
	return nil
}

func (c *Coordinator) abortNotReady(ctx context.Context, ds *model.DataSource, snapshot *model.ProcessedDataSnapshot) error {
	msg := "staging snapshot not ready for commit: failed_records > 0"
	_ = c.store.MarkSnapshotFailed(ctx, snapshot.ID, msg)
	_ = c.store.SetDataSourceStatus(ctx, ds.ID, model.DataSourceError)
	return &model.SearchCommitError{Message: msg}
}

func (c *Coordinator) fail(ctx context.Context, ds *model.DataSource, snapshot *model.ProcessedDataSnapshot, cause error) error {
	_ = c.store.MarkSnapshotFailed(ctx, snapshot.ID, cause.Error())
	_ = c.store.SetDataSourceStatus(ctx, ds.ID, model.DataSourceError)
	metrics.RollbacksTotal.WithLabelValues(snapshot.DataSourceID.Hex(), "commit").Inc()
	return cause
}

func (c *Coordinator) maybeRecover(ctx context.Context, ds *model.DataSource, snapshot *model.ProcessedDataSnapshot) {
	if c.recovery == nil || !ds.Config.AutoRecoveryEnabled {
		return
	}
	if err := c.recovery.Recover(ctx, ds, snapshot); err != nil {
		c.log.WithError(err).WithField("data_source_id", ds.ID.Hex()).Error("auto-recovery failed")
	}
}

func vespaDocIDs(rollback *model.RollbackInfo) []string {
	out := make([]string, 0, len(rollback.VespaOperations))
	for _, op := range rollback.VespaOperations {
		out = append(out, op.DocumentID)
	}
	return out
}

// withRetry runs op with bounded exponential backoff on transient 5xx/429
// responses, up to httpMaxRetries attempts with base httpBackoffBase,
// doubling each attempt (spec.md §4.G).
func (c *Coordinator) withRetry(ctx context.Context, op func() error) error {
	attempts := c.httpMaxRetries
	if attempts <= 0 {
		attempts = 3
	}
	base := c.httpBackoffBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = base
	expBackoff.Multiplier = 2

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := op()
		if err == nil {
			return struct{}{}, nil
		}
		if transient := searchclient.ClassifyTransportError(err); transient != nil && transient.IsRetryable() {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(attempts)),
	)
	return err
}
