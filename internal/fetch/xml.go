package fetch

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/syncforge/ingestion/internal/model"
)

// fetchXML performs a SAX-like scan of an Xml source_type, emitting one
// Record per record_element encountered. Only direct text children become
// fields (as strings); attributes and nested elements are out of scope
// (spec.md §4.A).
func (f *Fetcher) fetchXML(ctx context.Context, url, rootElement, recordElement string) ([]Record, error) {
	body, err := f.openStream(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	_ = rootElement // the root wrapper element is not validated; only record_element matters for extraction

	dec := xml.NewDecoder(body)

	var out []Record
	var current Record
	var currentField string
	var textBuf strings.Builder
	inRecord := false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &model.SourceFetchError{Cause: fmt.Errorf("decoding XML: %w", err)}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if name == recordElement {
				inRecord = true
				current = Record{}
				continue
			}
			if inRecord {
				currentField = name
				textBuf.Reset()
			}
		case xml.CharData:
			if inRecord && currentField != "" {
				textBuf.Write(t)
			}
		case xml.EndElement:
			name := t.Name.Local
			if name == recordElement {
				if current != nil {
					out = append(out, current)
				}
				inRecord = false
				current = nil
				currentField = ""
				continue
			}
			if inRecord && name == currentField {
				current[currentField] = strings.TrimSpace(textBuf.String())
				currentField = ""
				textBuf.Reset()
			}
		}
	}

	return out, nil
}
