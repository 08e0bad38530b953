package commit

import (
	"context"
	"fmt"
	"time"

	"github.com/syncforge/ingestion/internal/metrics"
	"github.com/syncforge/ingestion/internal/model"
	"github.com/syncforge/ingestion/internal/searchclient"
)

// runSearchPhase upserts every document in batches, halving the batch on a
// payload-too-large signal and retrying transient 5xx/429 with backoff. Each
// successfully upserted document is recorded on rollback so a later failure
// (in this phase or the next) can be compensated (spec.md §4.G).
func (c *Coordinator) runSearchPhase(ctx context.Context, ds *model.DataSource, docs []model.ProcessedDocument, rollback *model.RollbackInfo) error {
	timer := time.Now()
	defer func() {
		recordPhaseDuration(ds.ID.Hex(), "search", timer)
	}()

	batchSize := ds.EffectiveBatchSize(c.defaultBatchSize)
	offset := 0
	for offset < len(docs) {
		end := offset + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		window := docs[offset:end]

		committed, err := c.upsertWindow(ctx, ds, window)
		for _, d := range committed {
			rollback.AddVespaOperation(model.VespaOperation{
				OperationType: model.VespaUpsert,
				DocumentID:    documentID(d),
				AppID:         ds.AppID,
				TenantID:      ds.TenantID,
				Timestamp:     time.Now().UTC(),
			})
		}
		if err != nil {
			return &model.SearchCommitError{Message: fmt.Sprintf("upsert failed at offset %d", offset), Cause: err}
		}

		offset = end
	}
	return nil
}

// upsertWindow sends one batch, adaptively halving it on a payload-too-large
// response until it succeeds or a single document alone still fails.
func (c *Coordinator) upsertWindow(ctx context.Context, ds *model.DataSource, window []model.ProcessedDocument) ([]model.ProcessedDocument, error) {
	if len(window) == 0 {
		return nil, nil
	}

	normalized := make([]map[string]interface{}, len(window))
	for i, d := range window {
		normalized[i] = normalizeForSearchSchema(d.Document)
	}

	err := c.withRetry(ctx, func() error {
		return c.search.UpsertProducts(ctx, ds.AppID, ds.TenantID, normalized)
	})
	if err == nil {
		return window, nil
	}

	classified := searchclient.ClassifyTransportError(err)
	if classified == nil || !classified.IsPayloadTooLarge() || len(window) == 1 {
		return nil, err
	}

	mid := len(window) / 2
	left, leftErr := c.upsertWindow(ctx, ds, window[:mid])
	if leftErr != nil {
		return left, leftErr
	}
	right, rightErr := c.upsertWindow(ctx, ds, window[mid:])
	return append(left, right...), rightErr
}

// runAutocompletePhase adds autocomplete terms for every document, grouped
// per (app_id, tenant, field) key (spec.md §4.G, §6).
func (c *Coordinator) runAutocompletePhase(ctx context.Context, ds *model.DataSource, docs []model.ProcessedDocument, rollback *model.RollbackInfo) error {
	timer := time.Now()
	defer func() {
		recordPhaseDuration(ds.ID.Hex(), "autocomplete", timer)
	}()

	fields := ds.Mapping.AutocompleteFields
	if len(fields) == 0 {
		return nil
	}

	for _, d := range docs {
		docID := documentID(d)
		payload := map[string]interface{}{"id": docID}

		for _, field := range fields {
			key := autocompleteKey(ds, field)
			for _, term := range d.AutocompleteTerms {
				if err := c.autocpl.Add(ctx, key, term, payload); err != nil {
					return &model.AutocompleteCommitError{Message: fmt.Sprintf("suggest add failed for key %s", key), Cause: err}
				}
				rollback.AddRedisOperation(model.RedisOperation{
					OperationType: model.RedisSuggestAdd,
					Key:           key,
					Value:         term,
					Timestamp:     time.Now().UTC(),
				})
			}
		}
	}
	return nil
}

// compensateSearch issues a best-effort compensating delete for every
// document upserted during a failed commit, in reverse order.
func (c *Coordinator) compensateSearch(ctx context.Context, ds *model.DataSource, rollback *model.RollbackInfo) {
	if len(rollback.VespaOperations) == 0 {
		return
	}
	ids := make([]string, 0, len(rollback.VespaOperations))
	for i := len(rollback.VespaOperations) - 1; i >= 0; i-- {
		ids = append(ids, rollback.VespaOperations[i].DocumentID)
	}
	if err := c.search.DeleteProducts(ctx, ds.AppID, ids); err != nil {
		c.log.WithError(err).WithField("data_source_id", ds.ID.Hex()).Error("compensating search delete failed")
	}
	rollback.VespaOperations = rollback.VespaOperations[:0]
}

// compensateAutocomplete removes every autocomplete term added during a
// failed commit, in reverse order.
func (c *Coordinator) compensateAutocomplete(ctx context.Context, rollback *model.RollbackInfo) {
	for i := len(rollback.RedisOperations) - 1; i >= 0; i-- {
		op := rollback.RedisOperations[i]
		if op.OperationType != model.RedisSuggestAdd {
			continue
		}
		if err := c.autocpl.Del(ctx, op.Key, op.Value); err != nil {
			c.log.WithError(err).WithField("key", op.Key).Error("compensating autocomplete delete failed")
		}
	}
	rollback.RedisOperations = rollback.RedisOperations[:0]
}

func documentID(d model.ProcessedDocument) string {
	if id, ok := d.Document["id"].(string); ok && id != "" {
		return id
	}
	return d.SourceID
}

func autocompleteKey(ds *model.DataSource, field string) string {
	if ds.TenantID != "" {
		return fmt.Sprintf("ac:%s:%s:%s", ds.AppID, ds.TenantID, field)
	}
	return fmt.Sprintf("ac:%s:%s", ds.AppID, field)
}

func recordPhaseDuration(dataSourceID, phase string, start time.Time) {
	metrics.CommitDuration.WithLabelValues(dataSourceID, phase).Observe(time.Since(start).Seconds())
}
