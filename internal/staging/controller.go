package staging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/semaphore"

	"github.com/syncforge/ingestion/internal/enrich"
	"github.com/syncforge/ingestion/internal/fetch"
	"github.com/syncforge/ingestion/internal/mapping"
	"github.com/syncforge/ingestion/internal/metrics"
	"github.com/syncforge/ingestion/internal/model"
	"github.com/syncforge/ingestion/internal/scheduler"
	"github.com/syncforge/ingestion/internal/validate"
)

// Store is the narrow slice of snapshotstore.Store the Staging Controller
// depends on.
type Store interface {
	GetDataSource(ctx context.Context, id primitive.ObjectID) (*model.DataSource, error)
	UpdateDataSource(ctx context.Context, ds *model.DataSource) error
	SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error

	CreateSyncExecution(ctx context.Context, exec *model.SyncExecution) error
	UpdateSyncExecution(ctx context.Context, exec *model.SyncExecution) error

	GetStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID, syncVersion string) (*model.ProcessedDataSnapshot, error)
	GetLatestStagingSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error)
	CreateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error
	UpdateSnapshot(ctx context.Context, snap *model.ProcessedDataSnapshot) error

	StoreProcessedDocuments(ctx context.Context, docs []*model.ProcessedDocument) error
}

// Committer is implemented by the Commit Coordinator so the Staging
// Controller can hand off a ready snapshot without importing internal/commit
// directly; tests substitute a fake.
type Committer interface {
	Commit(ctx context.Context, ds *model.DataSource, snapshot *model.ProcessedDataSnapshot) error
}

// Controller is the Staging Controller (spec.md §4.F).
type Controller struct {
	store     Store
	fetcher   *fetch.Fetcher
	mapper    *mapping.Mapper
	validator *validate.Validator
	enricher  *enrich.Enricher
	committer Committer
	guard     *scheduler.ConcurrencyGuard

	defaultBatchSize int
	log              *logrus.Entry
}

// New builds a Controller.
func New(
	store Store,
	fetcher *fetch.Fetcher,
	mapper *mapping.Mapper,
	validator *validate.Validator,
	enricher *enrich.Enricher,
	committer Committer,
	guard *scheduler.ConcurrencyGuard,
	defaultBatchSize int,
	log *logrus.Entry,
) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Controller{
		store: store, fetcher: fetcher, mapper: mapper, validator: validator, enricher: enricher,
		committer: committer, guard: guard, defaultBatchSize: defaultBatchSize, log: log,
	}
}

// ExecuteSync is the Staging Controller's entry point (spec.md §4.F).
func (c *Controller) ExecuteSync(ctx context.Context, dataSourceIDHex string) error {
	id, err := primitive.ObjectIDFromHex(dataSourceIDHex)
	if err != nil {
		return fmt.Errorf("invalid data source id %q: %w", dataSourceIDHex, err)
	}

	release, err := c.guard.Acquire(id)
	if err != nil {
		return err
	}
	defer release()

	started := time.Now().UTC()
	timer := metricsTimer(id.Hex())
	defer timer()

	ds, err := c.store.GetDataSource(ctx, id)
	if err != nil {
		return err
	}
	if !ds.Enabled {
		return fmt.Errorf("data source %s is disabled", id.Hex())
	}

	ds.Status = model.DataSourceSyncing
	if err := c.store.UpdateDataSource(ctx, ds); err != nil {
		return err
	}

	snap, syncVersion, err := c.findOrCreateStagingSnapshot(ctx, ds, started)
	if err != nil {
		return c.failSync(ctx, ds, nil, err)
	}

	exec := model.NewSyncExecution(ds.ID, syncVersion, started)
	if err := c.store.CreateSyncExecution(ctx, exec); err != nil {
		return c.failSync(ctx, ds, snap, err)
	}

	if err := c.runStaging(ctx, ds, snap, exec, started); err != nil {
		return c.failSync(ctx, ds, snap, err)
	}

	exec.CompleteSuccessfully(time.Now().UTC())
	if err := c.store.UpdateSyncExecution(ctx, exec); err != nil {
		c.log.WithError(err).Warn("failed to persist successful sync execution")
	}

	if c.committer != nil {
		if err := c.committer.Commit(ctx, ds, snap); err != nil {
			return err
		}
	}

	return nil
}

func (c *Controller) failSync(ctx context.Context, ds *model.DataSource, snap *model.ProcessedDataSnapshot, cause error) error {
	c.log.WithError(cause).WithField("data_source_id", ds.ID.Hex()).Error("sync failed")
	_ = c.store.SetDataSourceStatus(ctx, ds.ID, model.DataSourceError)
	return cause
}

// findOrCreateStagingSnapshot implements spec.md §4.F step 4: resume an
// exact (ds_id, sync_version) match, else the latest Staging snapshot for
// ds_id with a version-mismatch warning, else create fresh.
func (c *Controller) findOrCreateStagingSnapshot(ctx context.Context, ds *model.DataSource, now time.Time) (*model.ProcessedDataSnapshot, string, error) {
	syncVersion := "sync_" + uuid.New().String()

	if existing, err := c.store.GetStagingSnapshot(ctx, ds.ID, syncVersion); err == nil && existing != nil {
		return existing, existing.SyncVersion, nil
	}

	if latest, err := c.store.GetLatestStagingSnapshot(ctx, ds.ID); err == nil && latest != nil {
		c.log.WithFields(logrus.Fields{
			"data_source_id":       ds.ID.Hex(),
			"resumed_sync_version": latest.SyncVersion,
		}).Warn("resuming latest staging snapshot; sync_version mismatch")
		return latest, latest.SyncVersion, nil
	}

	snap := model.NewStagingSnapshot(ds.ID, syncVersion, now)
	if err := c.store.CreateSnapshot(ctx, snap); err != nil {
		return nil, "", err
	}
	return snap, syncVersion, nil
}

// runStaging fetches raw data, detects drift, and processes it in chunks
// (spec.md §4.F steps 5-7).
func (c *Controller) runStaging(ctx context.Context, ds *model.DataSource, snap *model.ProcessedDataSnapshot, exec *model.SyncExecution, started time.Time) error {
	records, err := c.fetcher.Fetch(ctx, ds, 0)
	if err != nil {
		exec.FailWithError(model.SyncError{ErrorType: model.SyncErrDataSourceFetch, Message: err.Error(), Timestamp: time.Now().UTC()})
		return err
	}

	checksum := computeChecksum(records)
	resumeOffset := int64(0)
	if snap.Metadata.DataSourceChecksum == checksum && snap.Metadata.ResumeOffset != nil {
		resumeOffset = *snap.Metadata.ResumeOffset
	}
	snap.Metadata.DataSourceChecksum = checksum
	snap.Metadata.TotalSourceRecords = int64(len(records))
	exec.TotalRecords = int64(len(records))

	batchSize := ds.EffectiveBatchSize(c.defaultBatchSize)
	parallelism := ds.EffectiveParallelism()
	sem := semaphore.NewWeighted(parallelism)

	for offset := resumeOffset; offset < int64(len(records)); offset += int64(batchSize) {
		end := offset + int64(batchSize)
		if end > int64(len(records)) {
			end = int64(len(records))
		}
		chunk := records[offset:end]

		docs, verrs, err := c.processChunk(ctx, sem, ds, snap.ID, chunk, int(offset), started)
		if err != nil {
			return err
		}

		if err := c.store.StoreProcessedDocuments(ctx, docs); err != nil {
			exec.FailWithError(model.SyncError{ErrorType: model.SyncErrStorage, Message: err.Error(), Timestamp: time.Now().UTC()})
			return err
		}

		snap.DocumentCount += int64(len(docs))
		snap.Metadata.ProcessedRecords += int64(len(docs))
		snap.Metadata.FailedRecords += int64(len(verrs))
		snap.Metadata.AppendValidationErrors(verrs)
		now := time.Now().UTC()
		snap.Metadata.ResumeOffset = &end
		snap.Metadata.ProgressUpdatedAt = &now

		for _, f := range verrs {
			metrics.RecordsFailedTotal.WithLabelValues(ds.ID.Hex(), string(f.ErrorType)).Inc()
		}
		metrics.RecordsProcessedTotal.WithLabelValues(ds.ID.Hex()).Add(float64(len(docs)))

		if err := c.store.UpdateSnapshot(ctx, snap); err != nil {
			return err
		}

		exec.ProcessedRecords = snap.Metadata.ProcessedRecords
		exec.FailedRecords = snap.Metadata.FailedRecords
	}

	processingMs := time.Since(started).Milliseconds()
	snap.Metadata.ProcessingTimeMs = &processingMs
	return c.store.UpdateSnapshot(ctx, snap)
}

// processChunk runs the per-record pipeline across chunk with bounded
// parallelism (spec.md §4.F step 6).
func (c *Controller) processChunk(
	ctx context.Context,
	sem *semaphore.Weighted,
	ds *model.DataSource,
	snapshotID primitive.ObjectID,
	chunk []fetch.Record,
	baseIndex int,
	started time.Time,
) ([]*model.ProcessedDocument, []model.ValidationError, error) {
	outcomes := make([]recordOutcome, len(chunk))

	type job struct {
		i   int
		rec fetch.Record
	}

	errCh := make(chan error, len(chunk))
	for i, rec := range chunk {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, nil, err
		}
		go func(j job) {
			defer sem.Release(1)
			outcomes[j.i] = processPipelineRecord(ctx, c.mapper, c.validator, c.enricher, ds, j.rec, baseIndex+j.i, snapshotID, time.Now().UTC())
			errCh <- nil
		}(job{i: i, rec: rec})
	}
	for range chunk {
		<-errCh
	}

	var docs []*model.ProcessedDocument
	var verrs []model.ValidationError
	for _, o := range outcomes {
		if o.doc != nil {
			docs = append(docs, o.doc)
		}
		verrs = append(verrs, o.validationErrs...)
	}
	return docs, verrs, nil
}

func metricsTimer(dataSourceID string) func() {
	start := time.Now()
	return func() {
		metrics.SyncDuration.WithLabelValues(dataSourceID, "completed").Observe(time.Since(start).Seconds())
	}
}
