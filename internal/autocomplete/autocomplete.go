// Package autocomplete implements the autocomplete backend binding used by
// the Commit Coordinator's phase 2 (spec.md §4.G, §6): RediSearch
// FT.SUGADD/FT.SUGDEL as the primary path, falling back to a ZSET+HASH
// emulation when the backend doesn't support RediSearch commands.
package autocomplete

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// Store issues autocomplete writes against Redis, transparently degrading
// to the ZSET+HASH fallback the first time the backend rejects a RediSearch
// command.
type Store struct {
	client     *redis.Client
	useFallback atomic.Bool
}

// New wraps an already-connected *redis.Client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Score computes the FT.SUGADD score for a term: 1.0 + min(len/10, 2.0)
// (spec.md §4.G).
func Score(term string) float64 {
	return 1.0 + math.Min(float64(len(term))/10.0, 2.0)
}

// Add inserts one autocomplete term under key, with payload attached as a
// JSON string. Falls back to ZADD/HSET on "unknown command".
func (s *Store) Add(ctx context.Context, key, term string, payload map[string]interface{}) error {
	if s.useFallback.Load() {
		return s.fallbackAdd(ctx, key, term, payload)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = s.client.Do(ctx, "FT.SUGADD", key, term, Score(term), "PAYLOAD", string(payloadJSON)).Err()
	if isUnknownCommand(err) {
		s.useFallback.Store(true)
		return s.fallbackAdd(ctx, key, term, payload)
	}
	return err
}

// Del removes one autocomplete term. Falls back the same way Add does.
func (s *Store) Del(ctx context.Context, key, term string) error {
	if s.useFallback.Load() {
		return s.fallbackDel(ctx, key, term)
	}

	err := s.client.Do(ctx, "FT.SUGDEL", key, term).Err()
	if isUnknownCommand(err) {
		s.useFallback.Store(true)
		return s.fallbackDel(ctx, key, term)
	}
	return err
}

func (s *Store) fallbackAdd(ctx context.Context, key, term string, payload map[string]interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.client.ZAdd(ctx, "fallback_z:"+key, redis.Z{Score: Score(term), Member: term}).Err(); err != nil {
		return err
	}
	return s.client.HSet(ctx, "fallback_p:"+key, term, string(payloadJSON)).Err()
}

func (s *Store) fallbackDel(ctx context.Context, key, term string) error {
	if err := s.client.ZRem(ctx, "fallback_z:"+key, term).Err(); err != nil {
		return err
	}
	return s.client.HDel(ctx, "fallback_p:"+key, term).Err()
}

func isUnknownCommand(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unknown command")
}
