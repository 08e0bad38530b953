package mapping

import (
	"fmt"
	"strconv"
	"time"

	"github.com/syncforge/ingestion/internal/model"
)

const dateTimeLayoutNoZone = "2006-01-02 15:04:05"

// coerce converts value to the requested DataType (spec.md §4.B). Values
// that already match the requested shape pass through unchanged.
func coerce(value interface{}, dt model.DataType) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch dt {
	case model.TypeString:
		return coerceString(value), nil
	case model.TypeInteger:
		return coerceInteger(value)
	case model.TypeFloat:
		return coerceFloat(value)
	case model.TypeBoolean:
		return toBool(value), nil
	case model.TypeArray:
		return coerceArray(value), nil
	case model.TypeObject:
		if m, ok := value.(map[string]interface{}); ok {
			return m, nil
		}
		return value, nil
	case model.TypeDateTime:
		return coerceDateTime(value), nil
	default:
		return value, nil
	}
}

func coerceString(value interface{}) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

func coerceInteger(value interface{}) (interface{}, error) {
	switch t := value.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		return int64(t), nil
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, nil
		}
		if f, ok := parseNumberString(t); ok {
			return int64(f), nil
		}
		return nil, &model.MappingError{Message: fmt.Sprintf("cannot coerce %q to integer", t)}
	default:
		return nil, &model.MappingError{Message: fmt.Sprintf("cannot coerce %T to integer", value)}
	}
}

func coerceFloat(value interface{}) (interface{}, error) {
	if f, ok := toFloat(value); ok {
		return f, nil
	}
	if s, ok := value.(string); ok {
		if f, ok := parseNumberString(s); ok {
			return f, nil
		}
	}
	return nil, &model.MappingError{Message: fmt.Sprintf("cannot coerce %T to float", value)}
}

func coerceArray(value interface{}) interface{} {
	if arr, ok := value.([]interface{}); ok {
		return arr
	}
	return []interface{}{value}
}

// coerceDateTime tries RFC 3339, then "YYYY-MM-DD HH:MM:SS" (UTC); anything
// else passes through unchanged (spec.md §4.B).
func coerceDateTime(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(dateTimeLayoutNoZone, s, time.UTC); err == nil {
		return t
	}
	return value
}
