package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncforge/ingestion/internal/embedclient"
	"github.com/syncforge/ingestion/internal/model"
)

func TestEnrichPassesThroughExistingEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if strings.Contains(body.Query, "buildQueryEmbedding") {
			t.Error("buildQueryEmbedding should not be called when embedding already present")
		}
		// Autocomplete path resolution still queries indexConfig.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"indexConfig":{"vectorFields":[],"autocompletePaths":[]}}}`))
	}))
	defer server.Close()

	e := New(embedclient.New(server.URL, server.Client(), nil), nil)
	doc := map[string]interface{}{"embedding": []interface{}{float64(0.1), float64(0.2)}}

	_, vec, generated, _ := e.Enrich(context.Background(), "app1", doc, nil, nil)
	require.False(t, generated)
	require.Equal(t, []float32{0.1, 0.2}, vec)
	require.NotEmpty(t, doc["id"])
}

func TestEnrichBuildsEmbeddingFromConfiguredFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"buildQueryEmbedding":{"vector":[0.5,0.6],"dimension":2}}}`))
	}))
	defer server.Close()

	e := New(embedclient.New(server.URL, server.Client(), nil), nil)
	doc := map[string]interface{}{"name": "Widget", "id": "sku-1"}
	cfgs := []model.EmbeddingConfig{{Fields: []string{"name"}, TargetField: "embedding"}}

	id, vec, generated, _ := e.Enrich(context.Background(), "app1", doc, cfgs, nil)
	require.Equal(t, "sku-1", id)
	require.True(t, generated)
	require.Equal(t, []float32{0.5, 0.6}, vec)
	require.Equal(t, vec, doc["embedding"])
}

func TestExtractAutocompleteTerms(t *testing.T) {
	doc := map[string]interface{}{"name": "Red  Running.. Shoe!!", "brand": "Nk"}
	terms := extractAutocompleteTerms(doc, []string{"name", "brand"})
	require.Equal(t, []string{"red", "running", "shoe"}, terms)
}

func TestResolveDocumentIDGeneratesUUIDWhenMissing(t *testing.T) {
	doc := map[string]interface{}{}
	id := resolveDocumentID(doc)
	require.NotEmpty(t, id)
}
