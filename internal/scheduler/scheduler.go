package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/syncforge/ingestion/internal/model"
)

// SyncRunner is implemented by the Staging Controller's execute_sync entry
// point, kept as a narrow interface so the scheduler doesn't import
// internal/syncengine directly (avoiding an import cycle; syncengine wires
// the scheduler, not the other way around).
type SyncRunner interface {
	ExecuteSync(ctx context.Context, dataSourceID string) error
}

// DataSourceLister/Updater are the narrow slices of snapshotstore.Store the
// Scheduler needs, to keep this package testable without a live Mongo.
type DataSourceLister interface {
	ListDataSources(ctx context.Context, appID string) ([]model.DataSource, error)
}

type DataSourceUpdater interface {
	UpdateDataSource(ctx context.Context, ds *model.DataSource) error
}

// Scheduler scans enabled data sources once a minute and fires due syncs
// asynchronously (spec.md §4.H).
type Scheduler struct {
	lister  DataSourceLister
	updater DataSourceUpdater
	runner  SyncRunner
	guard   *ConcurrencyGuard
	log     *logrus.Entry

	tickInterval time.Duration
}

// New builds a Scheduler. tickInterval defaults to one minute when zero.
func New(lister DataSourceLister, updater DataSourceUpdater, runner SyncRunner, guard *ConcurrencyGuard, tickInterval time.Duration, log *logrus.Entry) *Scheduler {
	if tickInterval <= 0 {
		tickInterval = time.Minute
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{lister: lister, updater: updater, runner: runner, guard: guard, tickInterval: tickInterval, log: log}
}

// Run blocks, ticking every tickInterval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	sources, err := s.lister.ListDataSources(ctx, "")
	if err != nil {
		s.log.WithError(err).Error("scheduler: listing data sources failed")
		return
	}

	now := time.Now().UTC()
	for i := range sources {
		ds := &sources[i]
		if !ds.Enabled {
			continue
		}
		if ds.NextSync != nil && ds.NextSync.After(now) {
			continue
		}
		s.fire(ctx, ds, now)
	}
}

func (s *Scheduler) fire(ctx context.Context, ds *model.DataSource, now time.Time) {
	ds.Status = model.DataSourceSyncing
	if next, err := nextSyncTime(ds.SyncInterval, now); err == nil {
		ds.NextSync = &next
	} else {
		s.log.WithError(err).WithField("data_source_id", ds.ID.Hex()).Warn("scheduler: invalid sync_interval expression")
	}

	if err := s.updater.UpdateDataSource(ctx, ds); err != nil {
		s.log.WithError(err).WithField("data_source_id", ds.ID.Hex()).Error("scheduler: failed to optimistically mark data source syncing")
		return
	}

	go func() {
		if err := s.runner.ExecuteSync(context.Background(), ds.ID.Hex()); err != nil {
			s.log.WithError(err).WithField("data_source_id", ds.ID.Hex()).Error("scheduled sync failed")
		}
	}()
}

// nextSyncTime parses a standard 5-field cron expression and returns its
// next activation after now.
func nextSyncTime(expr string, now time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(now), nil
}
