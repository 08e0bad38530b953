// Package enrich implements the Enricher (spec.md §4.D): attaching an
// embedding vector and autocomplete terms to a mapped document.
package enrich

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/syncforge/ingestion/internal/embedclient"
	"github.com/syncforge/ingestion/internal/model"
)

const indexConfigCacheTTL = 10 * time.Minute

var nonAlphanumericEdge = regexp.MustCompile(`^[^a-z0-9]+|[^a-z0-9]+$`)

// Enricher attaches embedding vectors and autocomplete terms to mapped
// documents, caching Index-Config Service lookups per app_id.
type Enricher struct {
	embed *embedclient.Client
	cache *expirable.LRU[string, *embedclient.IndexConfig]
	log   *logrus.Entry
}

// New builds an Enricher backed by embed for Index-Config/embedding calls.
// The index-config cache holds up to 4096 app_ids for indexConfigCacheTTL,
// satisfying the "shared map with TTL, no I/O under lock" requirement.
func New(embed *embedclient.Client, log *logrus.Entry) *Enricher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Enricher{
		embed: embed,
		cache: expirable.NewLRU[string, *embedclient.IndexConfig](4096, nil, indexConfigCacheTTL),
		log:   log,
	}
}

// Enrich mutates doc in place: backfills `id` and, when a vector is
// resolved, writes it to the embedding target field. Returns the resolved
// document id, the embedding (nil when none was resolved), whether it was
// newly generated, and the autocomplete terms computed for the document.
func (e *Enricher) Enrich(ctx context.Context, appID string, doc map[string]interface{}, embeddingFields []model.EmbeddingConfig, mappingAutocompleteFields []string) (id string, embedding []float32, generated bool, terms []string) {
	id = resolveDocumentID(doc)
	doc["id"] = id

	var targetField string
	embedding, targetField, generated = e.resolveEmbedding(ctx, appID, doc, embeddingFields)
	if embedding != nil {
		doc[targetField] = embedding
	}

	paths := e.resolveAutocompletePaths(ctx, appID, mappingAutocompleteFields)
	terms = extractAutocompleteTerms(doc, paths)
	return id, embedding, generated, terms
}

// resolveDocumentID implements the document-id policy from spec.md §4.D:
// use the existing string `id` if non-empty, else a fresh UUID.
func resolveDocumentID(doc map[string]interface{}) string {
	if v, ok := doc["id"]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return uuid.NewString()
}

// resolveEmbedding passes through an existing embedding array at the
// resolved target field, else builds one from the first EmbeddingConfig or
// Index-Config Service defaults. The target field is the first
// EmbeddingConfig's TargetField, defaulting to "embedding" when unset or
// when no embedding_fields are configured. Enrichment failures are logged
// and degrade to an unchanged document rather than aborting the pipeline
// (spec.md §4.D, §7).
func (e *Enricher) resolveEmbedding(ctx context.Context, appID string, doc map[string]interface{}, embeddingFields []model.EmbeddingConfig) ([]float32, string, bool) {
	targetField := "embedding"
	var fields []string
	var weights map[string]float32

	if len(embeddingFields) > 0 {
		fields = embeddingFields[0].Fields
		weights = embeddingFields[0].Weights
		if embeddingFields[0].TargetField != "" {
			targetField = embeddingFields[0].TargetField
		}
	}

	if existing, ok := doc[targetField]; ok {
		if vec, ok := toFloat32Slice(existing); ok && len(vec) > 0 {
			return vec, targetField, false
		}
	}

	if len(embeddingFields) == 0 {
		cfg, err := e.indexConfig(ctx, appID)
		if err != nil {
			e.log.WithError(err).WithField("app_id", appID).Warn("index config lookup failed, skipping embedding")
			return nil, targetField, false
		}
		for _, vf := range cfg.VectorFields {
			fields = append(fields, vf.Name)
		}
		weights = map[string]float32{}
		for _, vf := range cfg.VectorFields {
			weights[vf.Name] = vf.Weight
		}
	}

	texts := make([]embedclient.WeightedText, 0, len(fields))
	for _, f := range fields {
		v, ok := doc[f]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		w := float32(1)
		if weights != nil {
			if ww, ok := weights[f]; ok {
				w = ww
			}
		}
		texts = append(texts, embedclient.WeightedText{Text: s, Weight: w})
	}
	if len(texts) == 0 {
		return nil, targetField, false
	}

	vec, err := e.embed.BuildQueryEmbedding(ctx, texts)
	if err != nil {
		e.log.WithError(err).WithField("app_id", appID).Warn("embedding build failed, emitting document unchanged")
		return nil, targetField, false
	}
	return vec, targetField, true
}

// indexConfig returns the cached Index-Config Service response for appID,
// fetching and caching it on a miss.
func (e *Enricher) indexConfig(ctx context.Context, appID string) (*embedclient.IndexConfig, error) {
	if cfg, ok := e.cache.Get(appID); ok {
		return cfg, nil
	}
	cfg, err := e.embed.IndexConfig(ctx, appID)
	if err != nil {
		return nil, err
	}
	e.cache.Add(appID, cfg)
	return cfg, nil
}

// resolveAutocompletePaths prefers the Index-Config Service's
// autocompletePaths, falling back to the mapping's autocomplete_fields.
func (e *Enricher) resolveAutocompletePaths(ctx context.Context, appID string, mappingFallback []string) []string {
	cfg, err := e.indexConfig(ctx, appID)
	if err != nil || len(cfg.AutocompletePaths) == 0 {
		return mappingFallback
	}
	return cfg.AutocompletePaths
}

// extractAutocompleteTerms tokenizes each string value at the given paths:
// split on whitespace, lowercase, strip non-alphanumeric token edges, keep
// tokens longer than 2 characters, sort and dedupe (spec.md §4.D).
func extractAutocompleteTerms(doc map[string]interface{}, paths []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, path := range paths {
		v, ok := doc[path]
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		for _, tok := range strings.Fields(s) {
			tok = strings.ToLower(tok)
			tok = nonAlphanumericEdge.ReplaceAllString(tok, "")
			if len(tok) <= 2 {
				continue
			}
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	sort.Strings(out)
	return out
}

func toFloat32Slice(v interface{}) ([]float32, bool) {
	switch t := v.(type) {
	case []float32:
		return t, true
	case []interface{}:
		out := make([]float32, 0, len(t))
		for _, item := range t {
			switch n := item.(type) {
			case float64:
				out = append(out, float32(n))
			case float32:
				out = append(out, n)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}
