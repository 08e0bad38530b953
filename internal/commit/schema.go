// Package commit implements the Commit Coordinator (spec.md §4.G):
// two-phase publish to search and autocomplete with per-phase rollback.
package commit

import "encoding/json"

// allowedSearchKeys are the only top-level keys the Search Service accepts;
// anything else is moved under `payload` (spec.md §6).
var allowedSearchKeys = map[string]bool{
	"tenant_id": true, "id": true, "name": true, "brand": true,
	"description_en": true, "price": true, "image": true, "payload": true,
	"attributes_kv": true, "media_images": true, "media_videos": true,
	"categories": true, "views": true, "popularity": true, "priority": true,
	"variations": true, "embedding": true, "location": true, "location_zcurve": true,
}

// fieldRenames maps mapped-document field names to their search-schema
// equivalents (spec.md §4.G).
var fieldRenames = map[string]string{
	"title":       "name",
	"description": "description_en",
}

// normalizeForSearchSchema renames known fields, folds a bare `category`
// into `categories` as a single-element list, and stashes any remaining
// unknown top-level keys under a JSON-encoded `payload` string (spec.md §4.G
// documents `payload` as a string-typed field).
func normalizeForSearchSchema(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	payload := make(map[string]interface{})

	for k, v := range doc {
		key := k
		if renamed, ok := fieldRenames[k]; ok {
			key = renamed
		}

		if key == "category" {
			if _, exists := out["categories"]; !exists {
				out["categories"] = []interface{}{v}
			}
			continue
		}

		if key == "payload" {
			if m, ok := v.(map[string]interface{}); ok {
				for pk, pv := range m {
					payload[pk] = pv
				}
				continue
			}
		}

		if allowedSearchKeys[key] {
			out[key] = v
			continue
		}

		payload[k] = v
	}

	if len(payload) > 0 {
		if encoded, err := json.Marshal(payload); err == nil {
			out["payload"] = string(encoded)
		}
	}

	return out
}
