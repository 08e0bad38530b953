// Package mapping implements the Field Mapper (spec.md §4.B): turning one
// raw record into a target document via a declarative FieldMapping.
package mapping

import (
	"strconv"
	"strings"
)

// extractPath walks a dotted/indexed path such as `variants[0].price` against
// a raw record and returns the value found, or (nil, false).
func extractPath(record map[string]interface{}, path string) (interface{}, bool) {
	segments := splitPath(path)
	var current interface{} = record
	for _, seg := range segments {
		switch s := current.(type) {
		case map[string]interface{}:
			v, ok := s[seg.name]
			if !ok {
				return nil, false
			}
			current = v
		case nil:
			return nil, false
		default:
			return nil, false
		}
		if seg.index != nil {
			arr, ok := current.([]interface{})
			if !ok || *seg.index < 0 || *seg.index >= len(arr) {
				return nil, false
			}
			current = arr[*seg.index]
		}
	}
	return current, true
}

type pathSegment struct {
	name  string
	index *int
}

// splitPath parses dotted segments with an optional trailing `[i]` index,
// e.g. "variants[0].price" -> [{variants,0}, {price,nil}].
func splitPath(path string) []pathSegment {
	parts := strings.Split(path, ".")
	out := make([]pathSegment, 0, len(parts))
	for _, p := range parts {
		name := p
		var idx *int
		if open := strings.IndexByte(p, '['); open != -1 && strings.HasSuffix(p, "]") {
			name = p[:open]
			numStr := p[open+1 : len(p)-1]
			if n, err := strconv.Atoi(numStr); err == nil {
				idx = &n
			}
		}
		out = append(out, pathSegment{name: name, index: idx})
	}
	return out
}

// extractAlternatives evaluates a `|`-separated source_path, returning the
// first non-empty value found (spec.md §4.B).
func extractAlternatives(record map[string]interface{}, sourcePath string) (interface{}, bool) {
	for _, alt := range strings.Split(sourcePath, "|") {
		alt = strings.TrimSpace(alt)
		if alt == "" {
			continue
		}
		v, ok := extractPath(record, alt)
		if ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

// isEmpty implements the emptiness policy from spec.md §4.B: null, blank
// string, empty array, empty object are empty.
func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []interface{}:
		return len(t) == 0
	case map[string]interface{}:
		return len(t) == 0
	default:
		return false
	}
}

// priceFallbacks and categoryFallbacks are the built-in alternate source
// fields tried when the mapped value for `price`/`categories` is empty.
var priceFallbacks = []string{
	"sale_price", "retail_price", "price_usd", "msrp", "list_price", "current_price", "amount", "price_value",
}

var categoryFallbacks = []string{
	"category", "department", "category_path", "categoryPath",
}

// resolveBuiltinFallback tries the built-in alias list for a known target
// field name, returning the first non-empty value found in the raw record.
func resolveBuiltinFallback(record map[string]interface{}, targetField string) (interface{}, bool) {
	var candidates []string
	switch targetField {
	case "price":
		candidates = priceFallbacks
	case "categories":
		candidates = categoryFallbacks
	default:
		return nil, false
	}
	for _, alias := range candidates {
		v, ok := extractPath(record, alias)
		if ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}
