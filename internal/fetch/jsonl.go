package fetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/syncforge/ingestion/internal/model"
)

// fetchJSONL streams a Jsonl source_type: one JSON value per non-blank line
// (spec.md §4.A). Blank lines are skipped; non-object values are dropped.
func (f *Fetcher) fetchJSONL(ctx context.Context, url string) ([]Record, error) {
	body, err := f.openStream(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var out []Record
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var value interface{}
		if err := json.Unmarshal([]byte(line), &value); err != nil {
			return nil, &model.SourceFetchError{Cause: fmt.Errorf("parsing JSONL line %d: %w", lineNo, err)}
		}
		obj, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, &model.SourceFetchError{Cause: fmt.Errorf("scanning JSONL stream: %w", err)}
	}
	return out, nil
}
