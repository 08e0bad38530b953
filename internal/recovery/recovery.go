// Package recovery implements the Recovery Manager (spec.md §4.I): on a
// commit failure for a data source with auto_recovery_enabled, it re-feeds
// the previous Current snapshot's documents back through the Commit
// Coordinator's publish paths, restoring search and autocomplete to the
// last known-good state.
package recovery

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/commit"
	"github.com/syncforge/ingestion/internal/metrics"
	"github.com/syncforge/ingestion/internal/model"
)

// Store is the narrow slice of snapshotstore.Store the Recovery Manager
// depends on.
type Store interface {
	GetPreviousSnapshot(ctx context.Context, dataSourceID primitive.ObjectID) (*model.ProcessedDataSnapshot, error)
	LoadSnapshotDocuments(ctx context.Context, snapshotID primitive.ObjectID) ([]model.ProcessedDocument, error)
	CreateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error
	UpdateRecoveryOperation(ctx context.Context, op *model.RecoveryOperation) error
	SetDataSourceStatus(ctx context.Context, id primitive.ObjectID, status model.DataSourceStatus) error
}

// Republisher is satisfied by *commit.Coordinator.
type Republisher interface {
	Republish(ctx context.Context, ds *model.DataSource, docs []model.ProcessedDocument) error
}

// Manager implements commit.Recoverer.
type Manager struct {
	store       Store
	republisher Republisher
	log         *logrus.Entry
}

// New builds a Manager. republisher is typically the same *commit.Coordinator
// used for normal commits, reusing its search/autocomplete phases.
func New(store Store, republisher Republisher, log *logrus.Entry) *Manager {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Manager{store: store, republisher: republisher, log: log}
}

var _ commit.Recoverer = (*Manager)(nil)

// Recover is invoked by the Commit Coordinator after a failed commit. It
// re-publishes the data source's previous Current snapshot to search and
// autocomplete. A missing previous snapshot is treated as a no-op success
// (spec.md §4.I): there is nothing to roll back to.
func (m *Manager) Recover(ctx context.Context, ds *model.DataSource, failedSnapshot *model.ProcessedDataSnapshot) error {
	now := time.Now().UTC()
	op := &model.RecoveryOperation{
		DataSourceID:   ds.ID,
		RecoveryType:   model.RecoveryRollbackToSnapshot,
		FromSnapshotID: failedSnapshot.ID,
		InitiatedAt:    now,
		Status:         model.RecoveryInitiated,
		Metadata:       model.RecoveryMetadata{Reason: model.RecoveryReasonAutoAfterFailure},
	}
	if err := m.store.CreateRecoveryOperation(ctx, op); err != nil {
		return err
	}

	previous, err := m.store.GetPreviousSnapshot(ctx, ds.ID)
	if err != nil {
		m.completeOp(ctx, op, model.RecoveryFailed, 0, 0, []model.RecoveryError{{
			ErrorType: model.RecoveryErrNetwork,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		}})
		metrics.RecoveryOperationsTotal.WithLabelValues(ds.ID.Hex(), "failed").Inc()
		return err
	}
	if previous == nil {
		op.ToSnapshotID = nil
		m.completeOp(ctx, op, model.RecoveryCompleted, 0, 0, nil)
		metrics.RecoveryOperationsTotal.WithLabelValues(ds.ID.Hex(), "no_previous_snapshot").Inc()
		return nil
	}
	op.ToSnapshotID = &previous.ID

	docs, err := m.store.LoadSnapshotDocuments(ctx, previous.ID)
	if err != nil {
		m.completeOp(ctx, op, model.RecoveryFailed, 0, 0, []model.RecoveryError{{
			ErrorType: model.RecoveryErrNetwork,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		}})
		metrics.RecoveryOperationsTotal.WithLabelValues(ds.ID.Hex(), "failed").Inc()
		return err
	}

	op.Status = model.RecoveryRunning
	_ = m.store.UpdateRecoveryOperation(ctx, op)

	if err := m.republisher.Republish(ctx, ds, docs); err != nil {
		m.completeOp(ctx, op, model.RecoveryFailed, 0, int64(len(docs)), []model.RecoveryError{{
			ErrorType: model.RecoveryErrCompensation,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		}})
		metrics.RecoveryOperationsTotal.WithLabelValues(ds.ID.Hex(), "failed").Inc()
		return err
	}

	if err := m.store.SetDataSourceStatus(ctx, ds.ID, model.DataSourceActive); err != nil {
		m.log.WithError(err).Warn("failed to reset data source status after recovery")
	}

	m.completeOp(ctx, op, model.RecoveryCompleted, int64(len(docs)), 0, nil)
	metrics.RecoveryOperationsTotal.WithLabelValues(ds.ID.Hex(), "completed").Inc()
	return nil
}

func (m *Manager) completeOp(ctx context.Context, op *model.RecoveryOperation, status model.RecoveryStatus, recovered, failed int64, errDetails []model.RecoveryError) {
	now := time.Now().UTC()
	op.CompletedAt = &now
	op.Status = status
	op.Metadata.DocumentsRecovered = recovered
	op.Metadata.DocumentsFailed = failed
	op.Metadata.ErrorDetails = errDetails
	if err := m.store.UpdateRecoveryOperation(ctx, op); err != nil {
		m.log.WithError(err).WithField("recovery_operation_id", op.ID.Hex()).Error("failed to persist recovery operation outcome")
	}
}
