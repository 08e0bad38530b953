package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DataSourceStatus is the lifecycle state of a DataSource.
type DataSourceStatus string

const (
	DataSourceActive   DataSourceStatus = "active"
	DataSourceInactive DataSourceStatus = "inactive"
	DataSourceError    DataSourceStatus = "error"
	DataSourceSyncing  DataSourceStatus = "syncing"
)

// ValidationStrategy selects how the Validator's per-failure policy behaves.
type ValidationStrategy string

const (
	ValidationSkipInvalid ValidationStrategy = "skip_invalid"
	ValidationFailSync    ValidationStrategy = "fail_sync"
)

// SourceKind tags which variant of SourceType is populated.
type SourceKind string

const (
	SourceAPI  SourceKind = "api"
	SourceCSV  SourceKind = "csv"
	SourceTSV  SourceKind = "tsv"
	SourceJSONL SourceKind = "jsonl"
	SourceXML  SourceKind = "xml"
)

// AuthKind tags the authentication variant used by an Api source.
type AuthKind string

const (
	AuthBearer AuthKind = "bearer"
	AuthBasic  AuthKind = "basic"
	AuthAPIKey AuthKind = "api_key"
	AuthOAuth2 AuthKind = "oauth2"
)

// SourceAuth describes how the Record Fetcher authenticates against an Api source.
type SourceAuth struct {
	Kind AuthKind `bson:"kind" json:"kind"`

	// Bearer / OAuth2
	Token string `bson:"token,omitempty" json:"token,omitempty"`

	// Basic
	Username string `bson:"username,omitempty" json:"username,omitempty"`
	Password string `bson:"password,omitempty" json:"password,omitempty"`

	// ApiKey
	Key        string `bson:"key,omitempty" json:"key,omitempty"`
	HeaderName string `bson:"header_name,omitempty" json:"header_name,omitempty"`
}

// PaginationKind names the pagination strategies a caller may request. The
// core Record Fetcher never invokes these itself (spec.md §4.A); they exist
// so operators can wrap the fetcher for multi-page sources.
type PaginationKind string

const (
	PaginationNone   PaginationKind = ""
	PaginationPage   PaginationKind = "page"
	PaginationOffset PaginationKind = "offset"
	PaginationCursor PaginationKind = "cursor"
)

// PaginationHint records an optional pagination strategy for an Api source.
type PaginationHint struct {
	Kind       PaginationKind `bson:"kind,omitempty" json:"kind,omitempty"`
	PageParam  string         `bson:"page_param,omitempty" json:"page_param,omitempty"`
	PageSize   int            `bson:"page_size,omitempty" json:"page_size,omitempty"`
	CursorPath string         `bson:"cursor_path,omitempty" json:"cursor_path,omitempty"`
}

// SourceType is the tagged union of `{Api, Csv, Tsv, Jsonl, Xml}` from spec.md §3.
// Only the field matching Kind is expected to be populated.
type SourceType struct {
	Kind SourceKind `bson:"kind" json:"kind"`

	// Api
	Endpoint   string            `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
	Auth       *SourceAuth       `bson:"auth,omitempty" json:"auth,omitempty"`
	Headers    map[string]string `bson:"headers,omitempty" json:"headers,omitempty"`
	Pagination *PaginationHint   `bson:"pagination,omitempty" json:"pagination,omitempty"`

	// Csv / Tsv / Jsonl / Xml
	URL         string `bson:"url,omitempty" json:"url,omitempty"`
	Delimiter   string `bson:"delimiter,omitempty" json:"delimiter,omitempty"`
	HasHeaders  bool   `bson:"has_headers,omitempty" json:"has_headers,omitempty"`
	RootElement string `bson:"root_element,omitempty" json:"root_element,omitempty"`
	RecordElement string `bson:"record_element,omitempty" json:"record_element,omitempty"`
}

// DataSourceConfig holds the per-source tunables from spec.md §3.
type DataSourceConfig struct {
	BatchSize              int                `bson:"batch_size,omitempty" json:"batch_size,omitempty"`
	TimeoutMs              int                `bson:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	RetryAttempts          int                `bson:"retry_attempts,omitempty" json:"retry_attempts,omitempty"`
	AutoRecoveryEnabled    bool               `bson:"auto_recovery_enabled" json:"auto_recovery_enabled"`
	SnapshotRetentionDays  int                `bson:"snapshot_retention_days,omitempty" json:"snapshot_retention_days,omitempty"`
	MaxSnapshots           int                `bson:"max_snapshots,omitempty" json:"max_snapshots,omitempty"`
	RequiredFields         []string           `bson:"required_fields,omitempty" json:"required_fields,omitempty"`
	ValidationStrategy     ValidationStrategy `bson:"validation_strategy,omitempty" json:"validation_strategy,omitempty"`
	EmbeddingParallelism   int                `bson:"embedding_parallelism,omitempty" json:"embedding_parallelism,omitempty"`
}

// DataSource is the configuration unit described in spec.md §3.
type DataSource struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name     string             `bson:"name" json:"name"`
	AppID    string             `bson:"app_id" json:"app_id"`
	TenantID string             `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`

	SourceType SourceType   `bson:"source_type" json:"source_type"`
	Mapping    FieldMapping `bson:"mapping" json:"mapping"`

	SyncInterval string `bson:"sync_interval" json:"sync_interval"`

	Enabled  bool             `bson:"enabled" json:"enabled"`
	Status   DataSourceStatus `bson:"status" json:"status"`
	LastSync *time.Time       `bson:"last_sync,omitempty" json:"last_sync,omitempty"`
	NextSync *time.Time       `bson:"next_sync,omitempty" json:"next_sync,omitempty"`

	Config DataSourceConfig `bson:"config" json:"config"`
}

// RequiredFieldSet returns the effective core required-field set for
// validation: `{price} ∪ config.required_fields` (spec.md §4.C).
func (d *DataSource) RequiredFieldSet() []string {
	seen := map[string]bool{"price": true}
	out := []string{"price"}
	for _, f := range d.Config.RequiredFields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// EffectiveValidationStrategy applies the SkipInvalid default from spec.md §3.
func (d *DataSource) EffectiveValidationStrategy() ValidationStrategy {
	if d.Config.ValidationStrategy == "" {
		return ValidationSkipInvalid
	}
	return d.Config.ValidationStrategy
}

// EffectiveBatchSize applies the `max(batch_size, 1)` rule from spec.md §4.F.
func (d *DataSource) EffectiveBatchSize(defaultBatchSize int) int {
	b := d.Config.BatchSize
	if b <= 0 {
		b = defaultBatchSize
	}
	if b < 1 {
		b = 1
	}
	return b
}

// EffectiveParallelism applies the embedding_parallelism default of 4 from spec.md §4.F.
func (d *DataSource) EffectiveParallelism() int64 {
	p := d.Config.EmbeddingParallelism
	if p <= 0 {
		p = 4
	}
	return int64(p)
}
