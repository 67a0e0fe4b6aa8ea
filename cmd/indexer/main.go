// Command indexer consumes ingest events from Kafka, indexes documents into
// the sharded segment store and announces each indexed document on the
// index-complete topic. With postgres enabled it also mirrors term statistics
// into the shared statistics tables.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/stats/pgstats"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service", "num_shards", cfg.Indexer.NumShards, "data_dir", cfg.Indexer.DataDir)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer producer.Close()

	// searchers load segments only after a flush, so every flush is announced
	router, err := shard.NewRouter(cfg.Indexer, cfg.Indexer.NumShards, m,
		shard.WithFlushHook(consumer.NewFlushNotifier(producer)),
	)
	if err != nil {
		slog.Error("failed to create shard router", "error", err)
		os.Exit(1)
	}
	defer router.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mirror consumer.StatsMirror
	if cfg.Postgres.Enabled {
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
		mirror = store
		slog.Info("statistics mirror enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	router.StartFlushLoops(ctx)

	handler := consumer.NewHandler(router, mirror, producer)
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, "", handler.Handle)
	indexConsumer := consumer.New(kafkaConsumer)

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
		"publish_topic", cfg.Kafka.Topics.IndexComplete,
	)
	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("flushing all shards before shutdown")
	err = resilience.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout, "final-flush", func(context.Context) error {
		return router.FlushAll()
	})
	if err != nil {
		slog.Error("final flush failed", "error", err)
	}
	slog.Info("indexer service stopped")
}
