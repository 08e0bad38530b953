// Package config loads the Sync Engine's runtime configuration from
// environment variables, following the variable names in spec.md §6.
package config

import (
	"os"
	"strconv"
)

// Config is the top-level configuration object for the ingestion service.
type Config struct {
	MongoURI          string
	DatabaseName      string
	MongoRetryWrites  bool

	RedisURL string

	SearchServiceURL     string
	EmbeddingsServiceURL string

	HTTPTimeoutMs       int
	HTTPUserAgent       string
	HTTPMaxRetries      int
	HTTPRetryBackoffMs  int

	EnableScheduler    bool
	DefaultBatchSize   int
	MaxConcurrentSyncs int

	AutoMigrate bool
}

// Load reads Config from the process environment, applying the defaults
// documented alongside each field below.
func Load() Config {
	return Config{
		MongoURI:         getString("MONGODB_URI", "mongodb://localhost:27017"),
		DatabaseName:     getString("DATABASE_NAME", "ingestion"),
		MongoRetryWrites: getBool("MONGODB_RETRY_WRITES", true),

		RedisURL: getString("REDIS_URL", "redis://localhost:6379"),

		SearchServiceURL:     getString("SEARCH_SERVICE_URL", "http://localhost:8081/graphql"),
		EmbeddingsServiceURL: getString("EMBEDDINGS_SERVICE_URL", "http://localhost:8082/graphql"),

		HTTPTimeoutMs:      getInt("HTTP_TIMEOUT_MS", 30_000),
		HTTPUserAgent:      getString("HTTP_USER_AGENT", "syncforge-ingestion/1.0"),
		HTTPMaxRetries:     getInt("HTTP_MAX_RETRIES", 3),
		HTTPRetryBackoffMs: getInt("HTTP_RETRY_BACKOFF_MS", 500),

		EnableScheduler:    getBool("ENABLE_SCHEDULER", true),
		DefaultBatchSize:   getInt("DEFAULT_BATCH_SIZE", 100),
		MaxConcurrentSyncs: getInt("MAX_CONCURRENT_SYNCS", 8),

		AutoMigrate: getBool("AUTO_MIGRATE", false),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
