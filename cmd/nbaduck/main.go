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

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"

	"github.com/fortuna/nbaduck/internal/api/rest"
	"github.com/fortuna/nbaduck/internal/cache"
	"github.com/fortuna/nbaduck/internal/config"
	"github.com/fortuna/nbaduck/internal/ingest/apisports"
	"github.com/fortuna/nbaduck/internal/logging"
	"github.com/fortuna/nbaduck/internal/pipeline"
	"github.com/fortuna/nbaduck/internal/store"
)

const (
	serviceName    = "nbaduck"
	serviceVersion = "1.0.0"
)

type options struct {
	ingest  bool
	queries string
	serve   string
}

func main() {
	var opts options
	flag.BoolVarP(&opts.ingest, "ingest", "i", false, "fetch seasons, games and teams from the API before building reports")
	flag.StringVar(&opts.queries, "queries", "", "SQL script to run after the derived tables are built (default $QUERIES_FILE or queries.sql)")
	flag.StringVar(&opts.serve, "serve", "", "serve the tables over HTTP on this address after the run, e.g. :8080")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil {
		logger.WithError(err).Error("run failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, logger *logrus.Logger) error {
	if err := cfg.Validate(opts.ingest); err != nil {
		return err
	}
	logger.Infof("Starting %s v%s", serviceName, serviceVersion)

	db, err := store.Open(store.Config{
		Name:        cfg.Store.Name,
		DataDir:     cfg.Store.DataDir,
		DSN:         cfg.Store.DSN,
		Logger:      logger,
		PreviewRows: cfg.PreviewRows,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	logger.WithField("backend", db.Dialect().Name()).Info("✓ Connected to table store")

	var fetcher pipeline.Fetcher
	if opts.ingest {
		client, closeCache := newClient(ctx, cfg, logger)
		defer closeCache()
		fetcher = client
	}

	queries := opts.queries
	if queries == "" {
		queries = cfg.QueriesFile
	}

	runner := pipeline.NewRunner(fetcher, db, afero.NewOsFs(), logger)
	if err := runner.Run(ctx, pipeline.Options{Ingest: opts.ingest, QueriesPath: queries}, pipeline.NewLogReporter(logger)); err != nil {
		return err
	}
	logger.Info("✓ Run complete")

	if opts.serve == "" {
		return nil
	}
	return serve(ctx, opts.serve, db, logger)
}

// newClient builds the API client, with the Redis response cache when
// REDIS_URL is set. A cache that cannot be reached is skipped.
func newClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*apisports.Client, func()) {
	clientCfg := apisports.Config{
		BaseURL:             cfg.API.BaseURL,
		Host:                cfg.API.Host,
		APIKey:              cfg.API.Key,
		Timeout:             cfg.API.Timeout,
		RateLimitWait:       cfg.API.RateLimitWait,
		MaxRateLimitRetries: cfg.API.MaxRateLimitRetries,
		CacheTTL:            cfg.Cache.TTL,
		Logger:              logger,
	}

	closeCache := func() {}
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("⚠️  Redis unavailable, continuing without response cache")
		} else if err := redisCache.HealthCheck(ctx); err != nil {
			logger.WithError(err).Warn("⚠️  Redis unhealthy, continuing without response cache")
			redisCache.Close()
		} else {
			logger.Info("✓ Connected to Redis")
			clientCfg.Cache = redisCache
			closeCache = func() { redisCache.Close() }
		}
	}

	return apisports.NewClient(clientCfg), closeCache
}

func serve(ctx context.Context, addr string, db *store.Database, logger *logrus.Logger) error {
	server := rest.NewServer(addr, db, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("✓ REST API server listening on %s", addr)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("REST server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("REST server shutdown: %w", err)
	}
	logger.Info("✓ Shutdown complete")
	return nil
}
