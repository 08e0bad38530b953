// Package validate implements the Validator (spec.md §4.C): required-field
// and category-presence enforcement with a configurable per-failure policy.
package validate

import (
	"fmt"

	"github.com/syncforge/ingestion/internal/model"
)

// categoryFields is the OR-rule field set: at least one must be non-empty.
var categoryFields = []string{"categories", "category_path", "category"}

// Validator enforces the required-field set and category OR-rule against a
// mapped (and image-enriched) document.
type Validator struct{}

// New builds a Validator. Stateless, like Mapper.
func New() *Validator {
	return &Validator{}
}

// Validate checks one document against the data source's required-field
// set and the category OR-rule. recordID identifies the record in any
// resulting ValidationError entries.
func (v *Validator) Validate(recordID string, doc map[string]interface{}, requiredFields []string) []model.ValidationError {
	var errs []model.ValidationError

	for _, field := range requiredFields {
		if isEmpty(doc[field]) {
			errs = append(errs, model.ValidationError{
				RecordID:  recordID,
				ErrorType: model.ErrMissingRequiredField,
				Message:   fmt.Sprintf("required field %q is missing or empty", field),
				Field:     field,
			})
		}
	}

	if !anyNonEmpty(doc, categoryFields) {
		errs = append(errs, model.ValidationError{
			RecordID:  recordID,
			ErrorType: model.ErrMissingRequiredField,
			Message:   "none of categories|category_path|category is non-empty",
		})
	}

	return errs
}

func anyNonEmpty(doc map[string]interface{}, fields []string) bool {
	for _, f := range fields {
		if !isEmpty(doc[f]) {
			return true
		}
	}
	return false
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}
