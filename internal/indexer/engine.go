// Package indexer owns one shard's inverted index: an in-memory layer that
// absorbs writes and a stack of immutable on-disk segments. An Engine
// answers the term statistics the relevance scorer asks for.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
)

// Engine is safe for concurrent use. When a document has been indexed more
// than once, the newest layer holding it wins: memory first, then segments
// from newest to oldest.
type Engine struct {
	memIndex   *index.MemoryIndex
	writer     *segment.Writer
	readers    []*segment.Reader
	loaded     map[string]struct{}
	readerMu   sync.RWMutex
	writeMu    sync.RWMutex
	cfg        config.IndexerConfig
	logger     *slog.Logger
	metrics    *metrics.Metrics
	onFlush    FlushFunc
	docLengths map[string]int
	docMu      sync.RWMutex
}

// FlushFunc is told about every segment an Engine writes.
type FlushFunc func(segmentName string, docs int)

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records flushes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithFlushHook calls fn after each segment is written and visible.
func WithFlushHook(fn FlushFunc) Option {
	return func(e *Engine) { e.onFlush = fn }
}

func NewEngine(cfg config.IndexerConfig, opts ...Option) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	e := &Engine{
		memIndex:   index.NewMemoryIndex(),
		writer:     segment.NewWriter(cfg.DataDir),
		loaded:     make(map[string]struct{}),
		cfg:        cfg,
		logger:     slog.Default().With("component", "indexer", "data_dir", cfg.DataDir),
		docLengths: make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	n, err := e.loadSegments()
	if err != nil {
		return nil, fmt.Errorf("loading existing segments: %w", err)
	}
	e.logger.Info("segment recovery complete", "segments_loaded", n, "docs", e.DocCount())
	return e, nil
}

// IndexDocument tokenizes title and body and adds the document to the
// memory layer, flushing to a segment once the layer is large enough.
// A document without any indexable token is rejected, since it has no
// length to normalize by.
func (e *Engine) IndexDocument(docID string, title string, body string) error {
	if docID == "" {
		return fmt.Errorf("%w: empty document id", apperrors.ErrInvalidInput)
	}
	tokens := tokenizer.Tokenize(title + " " + body)
	if len(tokens) == 0 {
		return fmt.Errorf("%w: document %q has no indexable terms", apperrors.ErrInvalidInput, docID)
	}

	e.writeMu.Lock()
	e.docMu.Lock()
	e.memIndex.AddDocument(docID, tokens)
	e.docLengths[docID] = len(tokens)
	e.docMu.Unlock()
	e.writeMu.Unlock()

	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"token_count", len(tokens),
		"mem_size", e.memIndex.Size(),
	)
	if e.cfg.SegmentMaxSize > 0 && e.memIndex.Size() >= e.cfg.SegmentMaxSize {
		e.logger.Info("memory index reached max size, flushing to disk",
			"size", e.memIndex.Size(),
			"threshold", e.cfg.SegmentMaxSize,
		)
		if err := e.Flush(); err != nil {
			return fmt.Errorf("flushing memory index: %w", err)
		}
	}
	return nil
}

// Flush writes the memory layer to a new segment and clears it.
func (e *Engine) Flush() error {
	segmentName, docs, err := e.flush()
	if err != nil {
		return err
	}
	if segmentName != "" && e.onFlush != nil {
		e.onFlush(segmentName, docs)
	}
	return nil
}

func (e *Engine) flush() (string, int, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	snapshot := e.memIndex.Snapshot()
	if snapshot.Empty() {
		return "", 0, nil
	}
	segmentName, err := e.writer.Write(snapshot)
	if err != nil {
		e.observeFlush("error")
		return "", 0, fmt.Errorf("writing segment: %w", err)
	}
	reader, err := segment.OpenReader(filepath.Join(e.cfg.DataDir, segmentName))
	if err != nil {
		e.observeFlush("error")
		return "", 0, fmt.Errorf("opening new segment for reading: %w", err)
	}

	// The reader must be visible before the memory layer is cleared so no
	// document drops out of view in between.
	e.readerMu.Lock()
	e.readers = append(e.readers, reader)
	e.loaded[segmentName] = struct{}{}
	active := len(e.readers)
	e.readerMu.Unlock()
	e.memIndex.Reset()

	e.observeFlush("ok")
	e.logger.Info("segment flushed",
		"segment", segmentName,
		"terms", reader.Terms(),
		"docs", reader.DocCount(),
		"active_segments", active,
	)
	return segmentName, int(reader.DocCount()), nil
}

func (e *Engine) observeFlush(status string) {
	if e.metrics != nil {
		e.metrics.IndexFlushesTotal.WithLabelValues(status).Inc()
	}
}

// ReloadSegments opens segment files written by another process since the
// last load and returns how many were added.
func (e *Engine) ReloadSegments() int {
	n, err := e.loadSegments()
	if err != nil {
		e.logger.Error("segment reload failed", "error", err)
	}
	if n > 0 {
		e.logger.Info("segments reloaded", "new_segments", n, "docs", e.DocCount())
	}
	return n
}

func (e *Engine) loadSegments() (int, error) {
	entries, err := os.ReadDir(e.cfg.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), segment.FileExtension) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	sort.Strings(segFiles)

	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	added := 0
	for _, name := range segFiles {
		if _, ok := e.loaded[name]; ok {
			continue
		}
		reader, err := segment.OpenReader(filepath.Join(e.cfg.DataDir, name))
		if err != nil {
			e.logger.Error("failed to open segment, skipping",
				"segment", name,
				"error", err,
			)
			continue
		}
		e.readers = append(e.readers, reader)
		e.loaded[name] = struct{}{}
		added++

		e.docMu.Lock()
		reader.DocLengths(func(docID string, length int) {
			if _, inMemory := e.memIndex.DocLength(docID); !inMemory {
				e.docLengths[docID] = length
			}
		})
		e.docMu.Unlock()
		e.logger.Debug("loaded segment",
			"segment", name,
			"terms", reader.Terms(),
			"docs", reader.DocCount(),
		)
	}
	return added, nil
}

// snapshotReaders returns the segment readers from newest to oldest.
func (e *Engine) snapshotReaders() []*segment.Reader {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	readers := make([]*segment.Reader, len(e.readers))
	for i, r := range e.readers {
		readers[len(readers)-1-i] = r
	}
	return readers
}

// Search returns the postings of an already-normalized term, one per
// document, ordered by document ID.
func (e *Engine) Search(ctx context.Context, term string) (index.PostingList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// memory and segments are read as one view; a flush cannot move
	// documents between them meanwhile
	e.writeMu.RLock()
	defer e.writeMu.RUnlock()
	readers := e.snapshotReaders()
	all := e.memIndex.Search(term)
	for i, reader := range readers {
		postings, err := reader.Search(term)
		if err != nil {
			return nil, fmt.Errorf("searching segment %s: %w", reader.Name(), err)
		}
		for _, p := range postings {
			if e.shadowed(p.DocID, readers[:i]) {
				continue
			}
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].DocID < all[j].DocID
	})
	return all, nil
}

// shadowed reports whether docID lives in the memory layer or in one of the
// given newer segments.
func (e *Engine) shadowed(docID string, newer []*segment.Reader) bool {
	if _, ok := e.memIndex.DocLength(docID); ok {
		return true
	}
	for _, r := range newer {
		if _, ok := r.DocLength(docID); ok {
			return true
		}
	}
	return false
}

// TermFrequency returns the occurrences of term in docID, 0 when the
// document exists but lacks the term.
func (e *Engine) TermFrequency(ctx context.Context, term, docID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.writeMu.RLock()
	defer e.writeMu.RUnlock()
	if _, ok := e.memIndex.DocLength(docID); ok {
		return e.memIndex.TermFrequency(term, docID), nil
	}
	for _, reader := range e.snapshotReaders() {
		if _, ok := reader.DocLength(docID); ok {
			return reader.TermFrequency(term, docID)
		}
	}
	return 0, fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, docID)
}

// DocumentFrequency returns how many live documents contain term.
func (e *Engine) DocumentFrequency(ctx context.Context, term string) (int, error) {
	postings, err := e.Search(ctx, term)
	if err != nil {
		return 0, err
	}
	return len(postings), nil
}

// CorpusSize returns the number of distinct documents in the engine.
func (e *Engine) CorpusSize(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return e.DocCount(), nil
}

// FieldLength returns the token count of docID.
func (e *Engine) FieldLength(ctx context.Context, docID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.docMu.RLock()
	n, ok := e.docLengths[docID]
	e.docMu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, docID)
	}
	return float64(n), nil
}

// HasDocument reports whether docID is indexed in this engine.
func (e *Engine) HasDocument(docID string) bool {
	e.docMu.RLock()
	defer e.docMu.RUnlock()
	_, ok := e.docLengths[docID]
	return ok
}

func (e *Engine) DocCount() int {
	e.docMu.RLock()
	defer e.docMu.RUnlock()
	return len(e.docLengths)
}

func (e *Engine) SegmentCount() int {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	return len(e.readers)
}

func (e *Engine) StartFlushLoop(ctx context.Context) {
	if e.cfg.FlushInterval <= 0 {
		return
	}
	ticker := time.NewTicker(e.cfg.FlushInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.logger.Info("flush loop stopping, performing final flush")
				if err := e.Flush(); err != nil {
					e.logger.Error("final flush failed", "error", err)
				}
				return
			case <-ticker.C:
				if e.memIndex.DocCount() > 0 {
					if err := e.Flush(); err != nil {
						e.logger.Error("periodic flush failed", "error", err)
					}
				}
			}
		}
	}()
}

func (e *Engine) Close() error {
	if err := e.Flush(); err != nil {
		e.logger.Error("final flush on close failed", "error", err)
	}
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	for _, reader := range e.readers {
		if err := reader.Close(); err != nil {
			e.logger.Error("closing segment reader", "error", err)
		}
	}
	e.readers = nil
	return nil
}
