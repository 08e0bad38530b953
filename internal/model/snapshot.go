package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SnapshotType is the lifecycle state of a ProcessedDataSnapshot.
type SnapshotType string

const (
	SnapshotPrevious SnapshotType = "previous"
	SnapshotStaging  SnapshotType = "staging"
	SnapshotCurrent  SnapshotType = "current"
	SnapshotArchived SnapshotType = "archived"
)

// ValidationErrorType enumerates the reasons a record failed validation.
type ValidationErrorType string

const (
	ErrMissingRequiredField       ValidationErrorType = "missing_required_field"
	ErrInvalidDataType            ValidationErrorType = "invalid_data_type"
	ErrInvalidFormat              ValidationErrorType = "invalid_format"
	ErrTransformationFailed       ValidationErrorType = "transformation_failed"
	ErrEmbeddingGenerationFailed  ValidationErrorType = "embedding_generation_failed"
)

// ValidationError is a single per-record failure, sample-capped at 100 in
// snapshot metadata (spec.md §3, §4.C).
type ValidationError struct {
	RecordID  string              `bson:"record_id" json:"record_id"`
	ErrorType ValidationErrorType `bson:"error_type" json:"error_type"`
	Message   string              `bson:"message" json:"message"`
	Field     string              `bson:"field,omitempty" json:"field,omitempty"`
}

// MaxSampledValidationErrors bounds the in-snapshot error sample (spec.md §9).
const MaxSampledValidationErrors = 100

// SnapshotMetadata tracks progress, resumability, and a bounded error sample.
type SnapshotMetadata struct {
	TotalSourceRecords  int64             `bson:"total_source_records" json:"total_source_records"`
	ProcessedRecords    int64             `bson:"processed_records" json:"processed_records"`
	FailedRecords       int64             `bson:"failed_records" json:"failed_records"`
	ValidationErrors    []ValidationError `bson:"validation_errors,omitempty" json:"validation_errors,omitempty"`
	ProcessingTimeMs    *int64            `bson:"processing_time_ms,omitempty" json:"processing_time_ms,omitempty"`
	DataSourceChecksum  string            `bson:"data_source_checksum,omitempty" json:"data_source_checksum,omitempty"`
	ResumeOffset        *int64            `bson:"resume_offset,omitempty" json:"resume_offset,omitempty"`
	ProgressUpdatedAt   *time.Time        `bson:"progress_updated_at,omitempty" json:"progress_updated_at,omitempty"`
}

// AppendValidationErrors appends up to the remaining budget of
// MaxSampledValidationErrors, matching the sampling behavior in
// original_source/.../sync/engine.rs.
func (m *SnapshotMetadata) AppendValidationErrors(errs []ValidationError) {
	if len(errs) == 0 {
		return
	}
	room := MaxSampledValidationErrors - len(m.ValidationErrors)
	if room <= 0 {
		return
	}
	if room > len(errs) {
		room = len(errs)
	}
	m.ValidationErrors = append(m.ValidationErrors, errs[:room]...)
}

// VespaOperationType names a single search-index write recorded for rollback.
type VespaOperationType string

const (
	VespaUpsert VespaOperationType = "upsert"
	VespaUpdate VespaOperationType = "update"
	VespaDelete VespaOperationType = "delete"
)

// VespaOperation records one document write to the search index during commit.
type VespaOperation struct {
	OperationType VespaOperationType `bson:"operation_type" json:"operation_type"`
	DocumentID    string             `bson:"document_id" json:"document_id"`
	AppID         string             `bson:"app_id" json:"app_id"`
	TenantID      string             `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
}

// RedisOperationType names a single autocomplete-index write recorded for rollback.
type RedisOperationType string

const (
	RedisSuggestAdd RedisOperationType = "suggest_add"
	RedisSuggestDel RedisOperationType = "suggest_del"
)

// RedisOperation records one autocomplete write during commit.
type RedisOperation struct {
	OperationType RedisOperationType `bson:"operation_type" json:"operation_type"`
	Key           string             `bson:"key" json:"key"`
	Value         string             `bson:"value,omitempty" json:"value,omitempty"`
	Timestamp     time.Time          `bson:"timestamp" json:"timestamp"`
}

// RollbackInfo records per-document writes performed during a commit so they
// can be compensated on failure (spec.md §3, §9). The two operation lists
// are append-only; compensation reads them in reverse.
type RollbackInfo struct {
	SyncVersion        string             `bson:"sync_version" json:"sync_version"`
	PreviousSnapshotID *primitive.ObjectID `bson:"previous_snapshot_id,omitempty" json:"previous_snapshot_id,omitempty"`
	VespaOperations    []VespaOperation   `bson:"vespa_operations,omitempty" json:"vespa_operations,omitempty"`
	RedisOperations    []RedisOperation   `bson:"redis_operations,omitempty" json:"redis_operations,omitempty"`
}

// NewRollbackInfo returns an empty RollbackInfo for the given sync version.
func NewRollbackInfo(syncVersion string) *RollbackInfo {
	return &RollbackInfo{SyncVersion: syncVersion}
}

// AddVespaOperation appends a search-index write to the rollback log.
func (r *RollbackInfo) AddVespaOperation(op VespaOperation) {
	r.VespaOperations = append(r.VespaOperations, op)
}

// AddRedisOperation appends an autocomplete write to the rollback log.
func (r *RollbackInfo) AddRedisOperation(op RedisOperation) {
	r.RedisOperations = append(r.RedisOperations, op)
}

// IndexState captures the external ids written during a commit, used for rollback.
type IndexState struct {
	SearchDocumentIDs      []string `bson:"search_document_ids,omitempty" json:"search_document_ids,omitempty"`
	AutocompleteFieldKeys  []string `bson:"autocomplete_field_keys,omitempty" json:"autocomplete_field_keys,omitempty"`
}

// ProcessedDataSnapshot is the unit of commit (spec.md §3).
type ProcessedDataSnapshot struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DataSourceID primitive.ObjectID `bson:"data_source_id" json:"data_source_id"`
	SyncVersion  string             `bson:"sync_version" json:"sync_version"`
	SnapshotType SnapshotType       `bson:"snapshot_type" json:"snapshot_type"`
	DocumentCount int64             `bson:"document_count" json:"document_count"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	CommittedAt  *time.Time         `bson:"committed_at,omitempty" json:"committed_at,omitempty"`

	Metadata   SnapshotMetadata `bson:"metadata" json:"metadata"`
	IndexState IndexState       `bson:"index_state,omitempty" json:"index_state,omitempty"`
}

// NewStagingSnapshot constructs a fresh Staging snapshot for (dataSourceID, syncVersion).
func NewStagingSnapshot(dataSourceID primitive.ObjectID, syncVersion string, now time.Time) *ProcessedDataSnapshot {
	return &ProcessedDataSnapshot{
		DataSourceID: dataSourceID,
		SyncVersion:  syncVersion,
		SnapshotType: SnapshotStaging,
		CreatedAt:    now,
	}
}

// IsReadyForCommit reports whether this Staging snapshot can proceed to
// commit under the strict rule: Staging with zero failed records. The
// SkipInvalid override in spec.md §4.C/§4.G is applied by the caller.
func (s *ProcessedDataSnapshot) IsReadyForCommit() bool {
	return s.SnapshotType == SnapshotStaging && s.Metadata.FailedRecords == 0
}

// CanCommitWithOverride reports whether the SkipInvalid commit-time override
// applies: policy is SkipInvalid and at least one document was produced,
// even though failed_records > 0.
func (s *ProcessedDataSnapshot) CanCommitWithOverride(strategy ValidationStrategy) bool {
	return strategy == ValidationSkipInvalid && s.DocumentCount > 0
}
