// Package metrics exposes the Sync Engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RecordsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingestion_records_processed_total",
	Help: "counter of records successfully mapped, validated, and enriched during staging",
}, []string{"data_source_id"})

var RecordsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingestion_records_failed_total",
	Help: "counter of records dropped by the validator during staging",
}, []string{"data_source_id", "error_type"})

var SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ingestion_sync_duration_seconds",
	Help:    "histogram of total execute_sync duration",
	Buckets: prometheus.DefBuckets,
}, []string{"data_source_id", "status"})

var CommitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ingestion_commit_duration_seconds",
	Help:    "histogram of Commit Coordinator phase duration",
	Buckets: prometheus.DefBuckets,
}, []string{"data_source_id", "phase"})

var RollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingestion_rollbacks_total",
	Help: "counter of commit-phase rollbacks performed",
}, []string{"data_source_id", "phase"})

var ActiveSyncs = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ingestion_active_syncs",
	Help: "gauge of syncs currently held by the concurrency guard",
})

var RecoveryOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingestion_recovery_operations_total",
	Help: "counter of auto-recovery attempts by outcome",
}, []string{"data_source_id", "status"})
