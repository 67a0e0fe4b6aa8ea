// Package refresh keeps a searcher's view of the index current. It listens
// for index-complete events, and on the next tick reloads segments written by
// the indexer and drops cached results computed against older statistics.
// Documents only become loadable once their shard flushes, so the indexer
// follows its per-document events with a segment event for every flush.
package refresh

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/resilience"
)

const invalidateTimeout = 5 * time.Second

// Reloader picks up segments flushed by another process. shard.Router
// implements it.
type Reloader interface {
	ReloadAll() int
}

// Invalidator drops cached search results. cache.QueryCache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// Refresher batches index events: many documents indexed within one
// interval cost a single reload and a single cache flush.
type Refresher struct {
	reloader Reloader
	cache    Invalidator
	interval time.Duration
	dirty    atomic.Bool
	pending  atomic.Int64
	logger   *slog.Logger
}

// New returns a Refresher. Either reloader or cache may be nil.
func New(reloader Reloader, cache Invalidator, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Refresher{
		reloader: reloader,
		cache:    cache,
		interval: interval,
		logger:   slog.Default().With("component", "index-refresher"),
	}
}

// Handle is a kafka.MessageHandler for the index-complete topic.
func (r *Refresher) Handle(_ context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[consumer.IndexEvent](value)
	if err != nil {
		r.logger.Warn("failed to decode index event", "key", string(key), "error", err)
		return nil
	}
	switch event.Type {
	case consumer.EventDocumentIndexed, consumer.EventSegmentFlushed:
	default:
		return nil
	}
	r.pending.Add(1)
	r.dirty.Store(true)
	return nil
}

// Run refreshes on every tick that follows at least one event. It blocks
// until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh applies pending events now. It reports whether anything was done.
func (r *Refresher) Refresh(ctx context.Context) bool {
	if !r.dirty.Swap(false) {
		return false
	}
	events := r.pending.Swap(0)
	loaded := 0
	if r.reloader != nil {
		loaded = r.reloader.ReloadAll()
	}
	var invalidated atomic.Int64
	if r.cache != nil {
		err := resilience.WithTimeout(ctx, invalidateTimeout, "cache-invalidate", func(ctx context.Context) error {
			n, err := r.cache.Invalidate(ctx)
			invalidated.Store(n)
			return err
		})
		if err != nil {
			r.logger.Error("cache invalidation failed", "error", err)
			r.dirty.Store(true)
		}
	}
	r.logger.Info("index refreshed",
		"events", events,
		"segments_loaded", loaded,
		"cache_keys_deleted", invalidated.Load(),
	)
	return true
}
