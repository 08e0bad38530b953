// Command ingestiond runs the Sync Engine: a scheduler that fires due data
// source syncs on a fixed interval, or a one-off synchronous sync for
// operator use.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/syncforge/ingestion/internal/config"
	"github.com/syncforge/ingestion/internal/syncengine"
)

// cliOpts holds flags shared by every subcommand. Connection strings and
// tunables themselves come from the environment (internal/config), matching
// a twelve-factor deployment; these flags only steer the process itself.
var cliOpts = &struct {
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"debug, info, warn, or error"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" description:"text or json"`
	Health    struct {
		Addr string `long:"health-addr" env:"HEALTH_ADDR" default:":8090" description:"address for the /healthz endpoint"`
	} `group:"Health" namespace:"health"`
}{}

func initLog() *log.Entry {
	lvl, err := log.ParseLevel(cliOpts.LogLevel)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	if cliOpts.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return log.NewEntry(log.StandardLogger())
}

// connect dials Mongo and Redis and builds the wired Engine. Shared by both
// subcommands so `serve` and `sync` see identical connection behavior.
func connect(ctx context.Context, cfg config.Config, logger *log.Entry) (*syncengine.Engine, func(context.Context), error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		return nil, nil, fmt.Errorf("pinging mongo: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}

	engine := syncengine.New(cfg, mongoClient, redisClient, logger)

	closeFn := func(ctx context.Context) {
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.WithError(err).Warn("mongo disconnect failed")
		}
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Warn("redis close failed")
		}
	}
	return engine, closeFn, nil
}

type cmdServe struct{}

func (cmdServe) Execute(_ []string) error {
	logger := initLog()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	engine, closeFn, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	healthSrv := &http.Server{Addr: cliOpts.Health.Addr, Handler: mux}

	go func() {
		logger.WithField("addr", cliOpts.Health.Addr).Info("health endpoint listening")
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("health endpoint stopped unexpectedly")
		}
	}()

	if cfg.EnableScheduler {
		logger.Info("starting sync scheduler")
		engine.Run(ctx)
	} else {
		logger.Info("scheduler disabled (ENABLE_SCHEDULER=false); idling until signaled")
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	logger.Info("goodbye")
	return nil
}

type cmdSync struct {
	Args struct {
		SourceID string `positional-arg-name:"source-id" required:"true" description:"data source ObjectID hex string"`
	} `positional-args:"yes"`
}

func (c cmdSync) Execute(_ []string) error {
	logger := initLog()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	engine, closeFn, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn(context.Background())

	logger.WithField("data_source_id", c.Args.SourceID).Info("running synchronous sync")
	if err := engine.ExecuteSync(ctx, c.Args.SourceID); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	logger.Info("sync completed")
	return nil
}

func main() {
	parser := flags.NewParser(cliOpts, flags.Default)

	if _, err := parser.AddCommand("serve", "Run the sync scheduler and health endpoint",
		"Serve runs the Sync Engine's scheduler loop, firing due data source syncs until signaled to exit.",
		&cmdServe{}); err != nil {
		log.WithError(err).Fatal("registering serve command")
	}
	if _, err := parser.AddCommand("sync", "Run one synchronous sync",
		"Sync runs a single data source's sync to completion and exits, for operator use.",
		&cmdSync{}); err != nil {
		log.WithError(err).Fatal("registering sync command")
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.WithError(err).Fatal("ingestiond failed")
	}
}
