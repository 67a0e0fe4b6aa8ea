// Package consumer reads ingestion events from Kafka, indexes them through
// the shard router, optionally mirrors their statistics to PostgreSQL and
// announces indexed documents and flushed segments on the index-complete
// topic.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/kafka"
)

// IngestEvent is the Kafka message payload of a document ready for
// indexing. A missing ShardID routes by document ID hash.
type IngestEvent struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	ShardID    *int      `json:"shard_id,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

const (
	EventDocumentIndexed = "document_indexed"
	EventSegmentFlushed  = "segment_flushed"
)

// IndexEvent is published after a document has been indexed, and again
// when the shard holding it writes a segment that other processes can load.
type IndexEvent struct {
	Type       string    `json:"type"`
	DocumentID string    `json:"document_id,omitempty"`
	ShardID    int       `json:"shard_id"`
	Segment    string    `json:"segment,omitempty"`
	Documents  int       `json:"documents,omitempty"`
	LatencyMs  int64     `json:"latency_ms,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const publishTimeout = 5 * time.Second

// NewFlushNotifier returns a flush hook for shard.WithFlushHook that
// announces every written segment on pub.
func NewFlushNotifier(pub kafka.Publisher) func(shardID int, segmentName string, docs int) {
	logger := slog.Default().With("component", "flush-notifier")
	return func(shardID int, segmentName string, docs int) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		event := IndexEvent{
			Type:      EventSegmentFlushed,
			ShardID:   shardID,
			Segment:   segmentName,
			Documents: docs,
			Timestamp: time.Now().UTC(),
		}
		if err := pub.Publish(ctx, kafka.Event{Key: segmentName, Value: event}); err != nil {
			logger.Warn("failed to publish flush event",
				"shard_id", shardID,
				"segment", segmentName,
				"error", err,
			)
		}
	}
}

// Indexer stores a document in a shard. shard.Router implements it.
type Indexer interface {
	IndexDocument(shardID int, docID, title, body string) (int, error)
}

// StatsMirror copies a document's term statistics to a shared store.
// pgstats.Store implements it.
type StatsMirror interface {
	IndexText(ctx context.Context, docID, title, body string) error
}

// Handler turns ingest events into index writes. Mirror and Publisher are
// optional.
type Handler struct {
	indexer   Indexer
	mirror    StatsMirror
	publisher kafka.Publisher
	logger    *slog.Logger
}

func NewHandler(indexer Indexer, mirror StatsMirror, publisher kafka.Publisher) *Handler {
	return &Handler{
		indexer:   indexer,
		mirror:    mirror,
		publisher: publisher,
		logger:    slog.Default().With("component", "index-consumer"),
	}
}

// Handle is a kafka.MessageHandler. Undecodable events are logged and
// skipped so they do not block the partition.
func (h *Handler) Handle(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[IngestEvent](value)
	if err != nil {
		h.logger.Error("failed to decode ingest event",
			"error", err,
			"key", string(key),
		)
		return nil
	}
	if event.DocumentID == "" {
		h.logger.Warn("ingest event without document id, skipping", "key", string(key))
		return nil
	}

	start := time.Now()
	shardID := -1
	if event.ShardID != nil {
		shardID = *event.ShardID
	}
	shardID, err = h.indexer.IndexDocument(shardID, event.DocumentID, event.Title, event.Body)
	if errors.Is(err, apperrors.ErrInvalidInput) {
		h.logger.Warn("rejected ingest event, skipping",
			"doc_id", event.DocumentID,
			"error", err,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("indexing document %s in shard %d: %w", event.DocumentID, shardID, err)
	}
	if h.mirror != nil {
		if err := h.mirror.IndexText(ctx, event.DocumentID, event.Title, event.Body); err != nil {
			return fmt.Errorf("mirroring statistics of %s: %w", event.DocumentID, err)
		}
	}

	latency := time.Since(start)
	h.logger.Info("document indexed",
		"doc_id", event.DocumentID,
		"shard_id", shardID,
		"latency_ms", latency.Milliseconds(),
	)
	if h.publisher != nil {
		done := IndexEvent{
			Type:       EventDocumentIndexed,
			DocumentID: event.DocumentID,
			ShardID:    shardID,
			LatencyMs:  latency.Milliseconds(),
			Timestamp:  time.Now().UTC(),
		}
		if err := h.publisher.Publish(ctx, kafka.Event{Key: event.DocumentID, Value: done}); err != nil {
			h.logger.Warn("failed to publish index event", "doc_id", event.DocumentID, "error", err)
		}
	}
	return nil
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}
