package fetch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/syncforge/ingestion/internal/model"
)

// fetchDelimited streams a Csv/Tsv source_type into records (spec.md §4.A).
// When has_headers is false, columns are synthesized as column_0, column_1, ...
func (f *Fetcher) fetchDelimited(ctx context.Context, url string, comma rune, hasHeaders bool) ([]Record, error) {
	body, err := f.openStream(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	r := csv.NewReader(body)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var headers []string
	if hasHeaders {
		row, err := r.Read()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, &model.SourceFetchError{Cause: fmt.Errorf("reading header row: %w", err)}
		}
		headers = row
	}

	var out []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &model.SourceFetchError{Cause: fmt.Errorf("reading row: %w", err)}
		}

		rec := make(Record, len(row))
		for i, val := range row {
			name := columnName(headers, i)
			rec[name] = val
		}
		out = append(out, rec)
	}
	return out, nil
}

func columnName(headers []string, i int) string {
	if i < len(headers) {
		return headers[i]
	}
	return "column_" + strconv.Itoa(i)
}

// openStream opens an http(s) GET stream for the given URL. Flat-file
// sources are fetched without auth/headers, matching spec.md §4.A which
// scopes authentication to Api sources only.
func (f *Fetcher) openStream(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &model.SourceFetchError{Cause: fmt.Errorf("building request: %w", err)}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &model.SourceFetchError{Cause: fmt.Errorf("doing request: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		preview := make([]byte, bodyPreviewLimit)
		n, _ := io.ReadFull(resp.Body, preview)
		return nil, &model.SourceFetchError{Status: resp.StatusCode, BodyPreview: string(preview[:n])}
	}
	return resp.Body, nil
}
