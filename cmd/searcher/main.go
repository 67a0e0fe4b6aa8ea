// Command searcher serves ranked vector space model search over HTTP.
// Statistics come from the shard segments written by the indexer or from
// the shared postgres tables; results are cached in redis and refreshed
// whenever the indexer reports new documents.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/refresh"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/stats/pgstats"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/resilience"
)

const refreshInterval = 2 * time.Second

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	scoring, err := similarity.ParseConfig(cfg.Scoring.Weighting, cfg.Scoring.Combination)
	if err != nil {
		slog.Error("invalid scoring configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"stats_source", cfg.Search.StatsSource,
		"scoring", scoring.String(),
	)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	var (
		idx      executor.Index
		reloader refresh.Reloader
	)
	switch cfg.Search.StatsSource {
	case "postgres":
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store := pgstats.New(db, resilience.RetryConfig{}, resilience.CircuitBreakerConfig{})
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate statistics schema", "error", err)
			os.Exit(1)
		}
		idx = store
		checker.Register("postgres", health.PingCheck(db, true))
	default:
		router, err := shard.NewRouter(cfg.Indexer, cfg.Indexer.NumShards, m)
		if err != nil {
			slog.Error("failed to create shard router", "error", err)
			os.Exit(1)
		}
		defer router.Close()
		idx = router
		reloader = router
		slog.Info("shard router initialized", "data_dir", cfg.Indexer.DataDir, "num_shards", router.NumShards())
	}
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		n, err := idx.CorpusSize(ctx)
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents", n)}
	})

	var (
		queryCache  *cache.QueryCache
		invalidator refresh.Invalidator
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			invalidator = queryCache
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient, false))
	} else {
		checker.Register("redis", health.PingCheck(nil, false))
	}

	// every searcher instance must see every event, so each gets its own group
	refresher := refresh.New(reloader, invalidator, refreshInterval)
	group := fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, uuid.NewString())
	refreshConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, group, refresher.Handle)
	go func() {
		if err := refreshConsumer.Start(ctx); err != nil {
			slog.Error("refresh consumer error", "error", err)
		}
	}()
	go refresher.Run(ctx)

	exec := executor.New(idx, ranker.New(cfg.Scoring.Parallelism, m))
	h := handler.New(exec, queryCache, m, handler.Options{
		DefaultConfig: scoring,
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxResults:    cfg.Search.MaxResults,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.Metrics(m),
			middleware.Timeout(cfg.Server.WriteTimeout),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
