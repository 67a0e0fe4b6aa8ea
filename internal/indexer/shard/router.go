// Package shard provides hash-based shard routing for index engines. Each
// shard owns an independent indexer.Engine backed by its own data directory.
// The Router also answers corpus-wide term statistics by aggregating its
// shards, so scores do not depend on which shard holds a document.
package shard

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
)

// Router maps shard IDs to dedicated indexer.Engine instances.
type Router struct {
	engines   map[int]*indexer.Engine
	mu        sync.RWMutex
	baseCfg   config.IndexerConfig
	numShards int
	metrics   *metrics.Metrics
	onFlush   FlushFunc
	logger    *slog.Logger
}

// FlushFunc is told about every segment written by any shard.
type FlushFunc func(shardID int, segmentName string, docs int)

// Option configures a Router.
type Option func(*Router)

// WithFlushHook calls fn after a shard engine writes a segment.
func WithFlushHook(fn FlushFunc) Option {
	return func(r *Router) { r.onFlush = fn }
}

// NewRouter creates numShards engines, each in its own sub-directory under
// baseCfg.DataDir. m may be nil.
func NewRouter(baseCfg config.IndexerConfig, numShards int, m *metrics.Metrics, opts ...Option) (*Router, error) {
	if numShards < 1 {
		return nil, fmt.Errorf("%w: numShards must be at least 1, got %d", apperrors.ErrInvalidInput, numShards)
	}
	r := &Router{
		engines:   make(map[int]*indexer.Engine, numShards),
		baseCfg:   baseCfg,
		numShards: numShards,
		metrics:   m,
		logger:    slog.Default().With("component", "shard-router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := 0; i < numShards; i++ {
		shardCfg := baseCfg
		shardCfg.DataDir = filepath.Join(baseCfg.DataDir, fmt.Sprintf("shard-%d", i))
		engine, err := indexer.NewEngine(shardCfg, r.engineOptions(i)...)
		if err != nil {
			r.closeAll()
			return nil, fmt.Errorf("creating engine for shard %d: %w", i, err)
		}
		r.engines[i] = engine
		r.logger.Info("shard engine initialized",
			"shard_id", i,
			"data_dir", shardCfg.DataDir,
			"docs", engine.DocCount(),
		)
	}
	r.reportDocCounts()
	r.logger.Info("shard router ready", "num_shards", numShards)
	return r, nil
}

func (r *Router) engineOptions(shardID int) []indexer.Option {
	var opts []indexer.Option
	if r.metrics != nil {
		opts = append(opts, indexer.WithMetrics(r.metrics))
	}
	if r.onFlush != nil {
		opts = append(opts, indexer.WithFlushHook(func(segmentName string, docs int) {
			r.onFlush(shardID, segmentName, docs)
		}))
	}
	return opts
}

// ShardFor returns the shard that owns docID by hash.
func (r *Router) ShardFor(docID string) int {
	return int(xxhash.Sum64String(docID) % uint64(r.numShards))
}

// Route returns the Engine responsible for the given shard ID.
func (r *Router) Route(shardID int) (*indexer.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[shardID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown shard ID %d (valid range: 0-%d)", apperrors.ErrShardUnavailable, shardID, r.numShards-1)
	}
	return engine, nil
}

// IndexDocument stores a document in shardID, or in its hashed shard when
// shardID is negative, and returns the shard used.
func (r *Router) IndexDocument(shardID int, docID, title, body string) (int, error) {
	if shardID < 0 {
		shardID = r.ShardFor(docID)
	}
	engine, err := r.Route(shardID)
	if err != nil {
		return shardID, err
	}
	if err := engine.IndexDocument(docID, title, body); err != nil {
		return shardID, err
	}
	if r.metrics != nil {
		r.metrics.DocsIndexedTotal.Inc()
		r.metrics.ShardDocCount.WithLabelValues(strconv.Itoa(shardID)).Set(float64(engine.DocCount()))
	}
	return shardID, nil
}

// engineFor finds the engine holding docID: its hashed shard first, then
// the others for documents placed by explicit shard ID.
func (r *Router) engineFor(docID string) (*indexer.Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	home := r.ShardFor(docID)
	if e := r.engines[home]; e.HasDocument(docID) {
		return e, nil
	}
	for id, e := range r.engines {
		if id != home && e.HasDocument(docID) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, docID)
}

// Search fans the term out to every shard and merges the postings by
// document ID.
func (r *Router) Search(ctx context.Context, term string) (index.PostingList, error) {
	engines := r.ordered()
	parts := make([]index.PostingList, len(engines))
	g, gctx := errgroup.WithContext(ctx)
	for i, engine := range engines {
		i, engine := i, engine
		g.Go(func() error {
			postings, err := engine.Search(gctx, term)
			if err != nil {
				return fmt.Errorf("shard %d: %w", i, err)
			}
			parts[i] = postings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var merged index.PostingList
	for _, p := range parts {
		merged = append(merged, p...)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].DocID < merged[j].DocID
	})
	return merged, nil
}

func (r *Router) TermFrequency(ctx context.Context, term, docID string) (int, error) {
	engine, err := r.engineFor(docID)
	if err != nil {
		return 0, err
	}
	return engine.TermFrequency(ctx, term, docID)
}

// DocumentFrequency sums the per-shard counts. Shards partition documents,
// so no document is counted twice.
func (r *Router) DocumentFrequency(ctx context.Context, term string) (int, error) {
	total := 0
	for _, engine := range r.ordered() {
		df, err := engine.DocumentFrequency(ctx, term)
		if err != nil {
			return 0, err
		}
		total += df
	}
	return total, nil
}

func (r *Router) CorpusSize(ctx context.Context) (int, error) {
	total := 0
	for _, engine := range r.ordered() {
		n, err := engine.CorpusSize(ctx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (r *Router) FieldLength(ctx context.Context, docID string) (float64, error) {
	engine, err := r.engineFor(docID)
	if err != nil {
		return 0, err
	}
	return engine.FieldLength(ctx, docID)
}

// ordered returns the engines by shard ID.
func (r *Router) ordered() []*indexer.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engines := make([]*indexer.Engine, r.numShards)
	for id, engine := range r.engines {
		engines[id] = engine
	}
	return engines
}

// NumShards returns the number of shards managed by this router.
func (r *Router) NumShards() int {
	return r.numShards
}

// FlushAll flushes every shard engine to disk.
func (r *Router) FlushAll() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for id, engine := range r.engines {
		if err := engine.Flush(); err != nil {
			r.logger.Error("flush failed", "shard_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// StartFlushLoops starts the periodic flush loop of every shard.
func (r *Router) StartFlushLoops(ctx context.Context) {
	for _, engine := range r.ordered() {
		engine.StartFlushLoop(ctx)
	}
}

// ReloadAll tells every shard engine to re-scan for newly flushed segments.
// Returns the total number of new segments loaded across all shards.
func (r *Router) ReloadAll() int {
	r.mu.RLock()
	total := 0
	for _, engine := range r.engines {
		total += engine.ReloadSegments()
	}
	r.mu.RUnlock()
	r.reportDocCounts()
	return total
}

func (r *Router) reportDocCounts() {
	if r.metrics == nil {
		return
	}
	for id, engine := range r.ordered() {
		r.metrics.ShardDocCount.WithLabelValues(strconv.Itoa(id)).Set(float64(engine.DocCount()))
	}
}

// Close flushes and closes every shard engine.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeAll()
}

// closeAll closes every shard engine, collecting the first error encountered.
func (r *Router) closeAll() error {
	var firstErr error
	for id, engine := range r.engines {
		if err := engine.Close(); err != nil {
			r.logger.Error("close failed", "shard_id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
