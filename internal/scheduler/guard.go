// Package scheduler implements the Scheduler & Concurrency Guard (spec.md
// §4.H): a cron-driven trigger loop and per-source mutual exclusion.
package scheduler

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/syncforge/ingestion/internal/metrics"
	"github.com/syncforge/ingestion/internal/model"
)

// ConcurrencyGuard is a process-local set of data_source_ids currently
// running a sync. Double-submission for the same source is rejected.
type ConcurrencyGuard struct {
	mu      sync.Mutex
	running map[primitive.ObjectID]struct{}
}

// NewConcurrencyGuard builds an empty guard.
func NewConcurrencyGuard() *ConcurrencyGuard {
	return &ConcurrencyGuard{running: make(map[primitive.ObjectID]struct{})}
}

// Release removes id from the running set, idempotently.
type Release func()

// Acquire claims id for the caller's exclusive use. It returns a Release
// func that the caller must defer immediately on success so the guard is
// cleared on every exit path, including a panic unwinding through the
// deferred call (spec.md §4.H, §5).
func (g *ConcurrencyGuard) Acquire(id primitive.ObjectID) (Release, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.running[id]; ok {
		return nil, &model.AlreadyRunningError{DataSourceID: id.Hex()}
	}
	g.running[id] = struct{}{}
	metrics.ActiveSyncs.Inc()

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, id)
			g.mu.Unlock()
			metrics.ActiveSyncs.Dec()
		})
	}
	return release, nil
}

// IsRunning reports whether id currently holds the guard. Intended for
// diagnostics/tests, not for TOCTOU-sensitive decisions.
func (g *ConcurrencyGuard) IsRunning(id primitive.ObjectID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[id]
	return ok
}
