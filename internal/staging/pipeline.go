// Package staging implements the Staging Controller (spec.md §4.F):
// creating or resuming a staging snapshot for (source, sync_version),
// chunking raw data through the per-record pipeline, and persisting
// progress and a bounded sample of validation errors.
package staging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/enrich"
	"github.com/syncforge/ingestion/internal/fetch"
	"github.com/syncforge/ingestion/internal/mapping"
	"github.com/syncforge/ingestion/internal/model"
	"github.com/syncforge/ingestion/internal/validate"
)

// recordOutcome is the per-record result of running the Mapper ->
// Validator -> Enricher pipeline, used to assemble a chunk's batch write.
type recordOutcome struct {
	doc             *model.ProcessedDocument
	validationErrs  []model.ValidationError
	mappingFailed   bool
}

// processPipelineRecord runs one raw record through mapping, validation, and
// enrichment (spec.md §4.B-§4.D). A required-field mapping failure and a
// validator failure are both reported as ValidationError entries; the
// record is dropped from the outgoing batch either way.
func processPipelineRecord(
	ctx context.Context,
	mapper *mapping.Mapper,
	validator *validate.Validator,
	enricher *enrich.Enricher,
	ds *model.DataSource,
	rec fetch.Record,
	index int,
	snapshotID primitive.ObjectID,
	now time.Time,
) recordOutcome {
	sourceID := recordSourceID(rec, index)

	doc, err := mapper.Map(rec, &ds.Mapping)
	if err != nil {
		return recordOutcome{
			mappingFailed: true,
			validationErrs: []model.ValidationError{{
				RecordID:  sourceID,
				ErrorType: classifyMappingError(err),
				Message:   err.Error(),
			}},
		}
	}

	verrs := validator.Validate(sourceID, doc, ds.RequiredFieldSet())
	if len(verrs) > 0 {
		return recordOutcome{validationErrs: verrs}
	}

	_, embedding, generated, terms := enricher.Enrich(ctx, ds.AppID, doc, ds.Mapping.EmbeddingFields, ds.Mapping.AutocompleteFields)

	pd := model.NewProcessedDocument(snapshotID, sourceID, doc, now)
	pd.AutocompleteTerms = terms
	pd.Embedding = embedding
	pd.EmbeddingGenerated = generated
	pd.Checksum = recordChecksum(rec, index)

	return recordOutcome{doc: pd}
}

func recordSourceID(rec fetch.Record, index int) string {
	if id, ok := rec["id"]; ok {
		return toKeyString(id)
	}
	return fmt.Sprintf("idx-%d", index)
}

func classifyMappingError(err error) model.ValidationErrorType {
	var missing *model.MissingRequiredFieldError
	if errors.As(err, &missing) {
		return model.ErrMissingRequiredField
	}
	return model.ErrTransformationFailed
}

