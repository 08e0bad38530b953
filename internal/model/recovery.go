package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecoveryType names the kind of compensating action a RecoveryOperation performs.
type RecoveryType string

const (
	RecoveryRollbackToSnapshot RecoveryType = "rollback_to_snapshot"
)

// RecoveryStatus is the lifecycle state of a RecoveryOperation.
type RecoveryStatus string

const (
	RecoveryInitiated        RecoveryStatus = "initiated"
	RecoveryRunning          RecoveryStatus = "running"
	RecoveryCompleted        RecoveryStatus = "completed"
	RecoveryFailed           RecoveryStatus = "failed"
	RecoveryPartiallyComplete RecoveryStatus = "partially_completed"
)

// RecoveryReason records why a recovery was triggered.
type RecoveryReason string

const (
	RecoveryReasonAutoAfterFailure RecoveryReason = "auto_recovery_after_failure"
	RecoveryReasonManual          RecoveryReason = "manual"
)

// RecoveryErrorType mirrors spec.md §7's RecoveryError taxonomy entry.
type RecoveryErrorType string

const (
	RecoveryErrSnapshotMissing RecoveryErrorType = "snapshot_missing"
	RecoveryErrNetwork         RecoveryErrorType = "network_error"
	RecoveryErrCompensation    RecoveryErrorType = "compensation_failed"
)

// RecoveryError is one entry of a RecoveryOperation's error details.
type RecoveryError struct {
	ErrorType  RecoveryErrorType `bson:"error_type" json:"error_type"`
	Message    string            `bson:"message" json:"message"`
	DocumentID string            `bson:"document_id,omitempty" json:"document_id,omitempty"`
	Timestamp  time.Time         `bson:"timestamp" json:"timestamp"`
}

// RecoveryMetadata tracks the outcome of a recovery attempt.
type RecoveryMetadata struct {
	Reason             RecoveryReason  `bson:"reason" json:"reason"`
	DocumentsRecovered int64           `bson:"documents_recovered" json:"documents_recovered"`
	DocumentsFailed    int64           `bson:"documents_failed" json:"documents_failed"`
	ErrorDetails       []RecoveryError `bson:"error_details,omitempty" json:"error_details,omitempty"`
}

// RecoveryOperation records a single auto-recovery attempt (spec.md §3, §4.I).
type RecoveryOperation struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	DataSourceID   primitive.ObjectID  `bson:"data_source_id" json:"data_source_id"`
	RecoveryType   RecoveryType        `bson:"recovery_type" json:"recovery_type"`
	FromSnapshotID primitive.ObjectID  `bson:"from_snapshot_id" json:"from_snapshot_id"`
	ToSnapshotID   *primitive.ObjectID `bson:"to_snapshot_id,omitempty" json:"to_snapshot_id,omitempty"`
	InitiatedAt    time.Time           `bson:"initiated_at" json:"initiated_at"`
	CompletedAt    *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Status         RecoveryStatus      `bson:"status" json:"status"`
	Metadata       RecoveryMetadata    `bson:"metadata" json:"metadata"`
}
