package staging

import (
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/syncforge/ingestion/internal/fetch"
)

// computeChecksum hashes records by their `id` field (or decimal index when
// absent) in fetch order, using fnv-64a for a deterministic, allocation-light
// digest used to detect source drift across resumed syncs (spec.md §4.F
// step 5).
func computeChecksum(records []fetch.Record) string {
	h := fnv.New64a()
	for i, rec := range records {
		var key string
		if id, ok := rec["id"]; ok {
			key = toKeyString(id)
		} else {
			key = strconv.Itoa(i)
		}
		_, _ = h.Write([]byte(key))
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// recordChecksum hashes a single record's id (or fallback index) the same
// way computeChecksum does, for storage on the record's ProcessedDocument.
func recordChecksum(rec fetch.Record, index int) string {
	h := fnv.New64a()
	var key string
	if id, ok := rec["id"]; ok {
		key = toKeyString(id)
	} else {
		key = strconv.Itoa(index)
	}
	_, _ = h.Write([]byte(key))
	return strconv.FormatUint(h.Sum64(), 16)
}

func toKeyString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
