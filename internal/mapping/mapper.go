package mapping

import (
	"github.com/syncforge/ingestion/internal/model"
)

// Mapper transforms raw records into target documents according to a
// FieldMapping (spec.md §4.B).
type Mapper struct{}

// New builds a Mapper. Mapper is stateless; it exists as a type for
// consistency with the other pipeline stages and to leave room for future
// per-instance caches.
func New() *Mapper {
	return &Mapper{}
}

// Map produces a target document from one raw record. Returns
// *model.MissingRequiredFieldError if a required rule yields an
// empty value, or *model.MappingError for an unknown transform or
// uncoercible value.
func (m *Mapper) Map(record map[string]interface{}, fm *model.FieldMapping) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(fm.Fields))

	for targetField, rule := range fm.Fields {
		value, found := extractAlternatives(record, rule.SourcePath)
		if !found || isEmpty(value) {
			if fallback, ok := resolveBuiltinFallback(record, targetField); ok {
				value = fallback
				found = true
			}
		}

		if rule.Transform != nil {
			transformed, err := applyTransform(rule.Transform, value)
			if err != nil {
				return nil, err
			}
			value = transformed
		} else if found && !isEmpty(value) {
			coerced, err := coerce(value, rule.DataType)
			if err != nil {
				return nil, err
			}
			value = coerced
		}

		if !found || isEmpty(value) {
			if rule.Required {
				return nil, &model.MissingRequiredFieldError{
					Message: "required field " + targetField + " is empty (source_path=" + rule.SourcePath + ")",
				}
			}
			out[targetField] = nil
			continue
		}

		out[targetField] = value
	}

	return out, nil
}
