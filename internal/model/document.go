package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProcessedDocument is the mapped-and-enriched form of a single source
// record within one snapshot (spec.md §3). Uniqueness is
// `(snapshot_id, source_id)`.
type ProcessedDocument struct {
	ID         primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	SnapshotID primitive.ObjectID     `bson:"snapshot_id" json:"snapshot_id"`
	SourceID   string                 `bson:"source_id" json:"source_id"`
	Document   map[string]interface{} `bson:"document" json:"document"`

	Embedding          []float32 `bson:"embedding,omitempty" json:"embedding,omitempty"`
	EmbeddingGenerated bool      `bson:"embedding_generated" json:"embedding_generated"`
	AutocompleteTerms  []string  `bson:"autocomplete_terms,omitempty" json:"autocomplete_terms,omitempty"`

	Checksum         string    `bson:"checksum" json:"checksum"`
	ValidationStatus string    `bson:"validation_status" json:"validation_status"`
	ProcessedAt      time.Time `bson:"processed_at" json:"processed_at"`
}

// NewProcessedDocument builds a ProcessedDocument ready for storage.
func NewProcessedDocument(snapshotID primitive.ObjectID, sourceID string, doc map[string]interface{}, now time.Time) *ProcessedDocument {
	return &ProcessedDocument{
		SnapshotID:       snapshotID,
		SourceID:         sourceID,
		Document:         doc,
		ValidationStatus: "valid",
		ProcessedAt:      now,
	}
}
