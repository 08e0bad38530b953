package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SyncStatus is the lifecycle state of a SyncExecution.
type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncRunning    SyncStatus = "running"
	SyncSuccess    SyncStatus = "success"
	SyncFailed     SyncStatus = "failed"
	SyncRolledBack SyncStatus = "rolled_back"
)

// SyncErrorType mirrors the error taxonomy in spec.md §7 for audit purposes.
type SyncErrorType string

const (
	SyncErrDataSourceFetch   SyncErrorType = "data_source_fetch"
	SyncErrSearchIndexUpdate SyncErrorType = "search_index_update"
	SyncErrAutocompleteUpdate SyncErrorType = "autocomplete_update"
	SyncErrStorage           SyncErrorType = "storage"
)

// SyncError is one entry of a SyncExecution's bounded error_details list.
type SyncError struct {
	ErrorType SyncErrorType `bson:"error_type" json:"error_type"`
	Message   string        `bson:"message" json:"message"`
	RecordID  string        `bson:"record_id,omitempty" json:"record_id,omitempty"`
	Field     string        `bson:"field,omitempty" json:"field,omitempty"`
	Timestamp time.Time     `bson:"timestamp" json:"timestamp"`
}

// PerformanceMetrics captures per-phase durations for a SyncExecution.
type PerformanceMetrics struct {
	FetchDurationMs   int64 `bson:"fetch_duration_ms,omitempty" json:"fetch_duration_ms,omitempty"`
	ProcessDurationMs int64 `bson:"process_duration_ms,omitempty" json:"process_duration_ms,omitempty"`
	CommitDurationMs  int64 `bson:"commit_duration_ms,omitempty" json:"commit_duration_ms,omitempty"`
	TotalDurationMs   int64 `bson:"total_duration_ms,omitempty" json:"total_duration_ms,omitempty"`
}

// SyncExecution is the audit/metrics record for a single sync run (spec.md §3).
type SyncExecution struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DataSourceID primitive.ObjectID `bson:"data_source_id" json:"data_source_id"`
	SyncVersion  string             `bson:"sync_version" json:"sync_version"`

	StartedAt   time.Time  `bson:"started_at" json:"started_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Status      SyncStatus `bson:"status" json:"status"`

	TotalRecords     int64 `bson:"total_records" json:"total_records"`
	ProcessedRecords int64 `bson:"processed_records" json:"processed_records"`
	FailedRecords    int64 `bson:"failed_records" json:"failed_records"`

	ErrorDetails []SyncError `bson:"error_details,omitempty" json:"error_details,omitempty"`

	RollbackInfo *RollbackInfo `bson:"rollback_info,omitempty" json:"rollback_info,omitempty"`

	PerformanceMetrics PerformanceMetrics `bson:"performance_metrics" json:"performance_metrics"`
}

// MaxSyncErrorDetails bounds the error_details list on a SyncExecution.
const MaxSyncErrorDetails = 100

// NewSyncExecution starts a new execution record in the Pending->Running state.
func NewSyncExecution(dataSourceID primitive.ObjectID, syncVersion string, now time.Time) *SyncExecution {
	return &SyncExecution{
		DataSourceID: dataSourceID,
		SyncVersion:  syncVersion,
		StartedAt:    now,
		Status:       SyncRunning,
	}
}

// FailWithError appends a bounded error and marks the execution Failed.
func (s *SyncExecution) FailWithError(e SyncError) {
	if len(s.ErrorDetails) < MaxSyncErrorDetails {
		s.ErrorDetails = append(s.ErrorDetails, e)
	}
	s.Status = SyncFailed
}

// CompleteSuccessfully marks the execution Success and stamps CompletedAt.
func (s *SyncExecution) CompleteSuccessfully(now time.Time) {
	s.Status = SyncSuccess
	s.CompletedAt = &now
}
