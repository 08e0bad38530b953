package model

import "fmt"

// SourceFetchError reports a failure pulling raw records from a DataSource
// (spec.md §7): an HTTP status with a body preview, or a parse failure.
type SourceFetchError struct {
	Status      int
	BodyPreview string
	Cause       error
}

func (e *SourceFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("source fetch failed: status=%d body=%q", e.Status, e.BodyPreview)
	}
	return fmt.Sprintf("source fetch failed: %v", e.Cause)
}

func (e *SourceFetchError) Unwrap() error { return e.Cause }

// MappingError reports an unknown transform or a type-coercion failure.
type MappingError struct {
	Message string
	Cause   error
}

func (e *MappingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mapping error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("mapping error: %s", e.Message)
}

func (e *MappingError) Unwrap() error { return e.Cause }

// MissingRequiredFieldError signals that a required Rule produced an empty
// value, or that the post-enrichment validator found required fields missing.
type MissingRequiredFieldError struct {
	Message string
}

func (e *MissingRequiredFieldError) Error() string { return e.Message }

// EnrichmentError reports a failure in the embedding or autocomplete-path
// enrichment steps. Per spec.md §7, enrichment failures degrade the record
// rather than abort, so this type is primarily used for logging context.
type EnrichmentError struct {
	Stage string // "embedding" | "index_config"
	Cause error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment error (%s): %v", e.Stage, e.Cause)
}

func (e *EnrichmentError) Unwrap() error { return e.Cause }

// StorageError wraps a Snapshot Store failure.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// SearchCommitError reports the final failure of the search-index commit
// phase after retries/adaptive chunking are exhausted.
type SearchCommitError struct {
	Message string
	Cause   error
}

func (e *SearchCommitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("search commit failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("search commit failed: %s", e.Message)
}

func (e *SearchCommitError) Unwrap() error { return e.Cause }

// AutocompleteCommitError reports that both the primary suggest backend and
// its ZSET+HASH fallback failed.
type AutocompleteCommitError struct {
	Message string
	Cause   error
}

func (e *AutocompleteCommitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("autocomplete commit failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("autocomplete commit failed: %s", e.Message)
}

func (e *AutocompleteCommitError) Unwrap() error { return e.Cause }

// RecoveryFailedError reports a failure during auto-recovery: a missing
// snapshot or a failed compensating write. Distinct from RecoveryError
// (recovery.go), which is a stored audit-trail entry rather than a Go error.
type RecoveryFailedError struct {
	Message string
	Cause   error
}

func (e *RecoveryFailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("recovery error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("recovery error: %s", e.Message)
}

func (e *RecoveryFailedError) Unwrap() error { return e.Cause }

// AlreadyRunningError is returned by the Concurrency Guard when a sync for
// the same data source is already in progress.
type AlreadyRunningError struct {
	DataSourceID string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("sync for data source %s is already in progress", e.DataSourceID)
}
