// Package syncengine wires the Sync Engine's components (Record Fetcher,
// Field Mapper, Validator, Enricher, Snapshot Store, Staging Controller,
// Commit Coordinator, Scheduler, Recovery Manager) into one runnable unit,
// mirroring the top-level orchestration in `original_source/.../sync/engine.rs`.
package syncengine

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/syncforge/ingestion/internal/autocomplete"
	"github.com/syncforge/ingestion/internal/commit"
	"github.com/syncforge/ingestion/internal/config"
	"github.com/syncforge/ingestion/internal/embedclient"
	"github.com/syncforge/ingestion/internal/enrich"
	"github.com/syncforge/ingestion/internal/fetch"
	"github.com/syncforge/ingestion/internal/mapping"
	"github.com/syncforge/ingestion/internal/recovery"
	"github.com/syncforge/ingestion/internal/scheduler"
	"github.com/syncforge/ingestion/internal/searchclient"
	"github.com/syncforge/ingestion/internal/snapshotstore"
	"github.com/syncforge/ingestion/internal/staging"
	"github.com/syncforge/ingestion/internal/validate"
)

// Engine bundles the fully-wired Sync Engine.
type Engine struct {
	Store      *snapshotstore.Store
	Controller *staging.Controller
	Coordinator *commit.Coordinator
	Recovery   *recovery.Manager
	Scheduler  *scheduler.Scheduler
	Guard      *scheduler.ConcurrencyGuard

	log *logrus.Entry
}

// New constructs an Engine from a loaded Config and already-connected
// Mongo/Redis clients; fetch, search and embeddings share one *http.Client
// built with the configured HTTP timeout.
func New(cfg config.Config, mongoClient *mongo.Client, redisClient *redis.Client, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	store := snapshotstore.New(mongoClient, cfg.DatabaseName, cfg.MongoRetryWrites, log)

	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutMs) * time.Millisecond}

	fetcher := fetch.New(httpClient, time.Duration(cfg.HTTPTimeoutMs)*time.Millisecond, cfg.HTTPUserAgent)
	mapper := mapping.New()
	validator := validate.New()

	embed := embedclient.New(cfg.EmbeddingsServiceURL, httpClient, log)
	enricher := enrich.New(embed, log)

	search := searchclient.New(cfg.SearchServiceURL, httpClient)
	autocpl := autocomplete.New(redisClient)

	guard := scheduler.NewConcurrencyGuard()

	coordinator := commit.New(store, search, autocpl, nil, cfg.DefaultBatchSize, cfg.HTTPMaxRetries,
		time.Duration(cfg.HTTPRetryBackoffMs)*time.Millisecond, log)

	recoveryMgr := recovery.New(store, coordinator, log)
	coordinator.SetRecoverer(recoveryMgr)

	controller := staging.New(store, fetcher, mapper, validator, enricher, coordinator, guard, cfg.DefaultBatchSize, log)

	sched := scheduler.New(store, store, controller, guard, time.Minute, log)

	return &Engine{
		Store: store, Controller: controller, Coordinator: coordinator,
		Recovery: recoveryMgr, Scheduler: sched, Guard: guard, log: log,
	}
}

// Run starts the scheduler loop; it blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.Scheduler.Run(ctx)
}

// ExecuteSync runs one synchronous sync for a data source, for operator use
// via `cmd/ingestiond sync <source-id>`.
func (e *Engine) ExecuteSync(ctx context.Context, dataSourceID string) error {
	return e.Controller.ExecuteSync(ctx, dataSourceID)
}
