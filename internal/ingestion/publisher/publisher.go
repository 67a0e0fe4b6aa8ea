// Package publisher turns accepted ingestion requests into ingest events on
// Kafka.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/kafka"
)

type Publisher struct {
	producer kafka.Publisher
	logger   *slog.Logger
}

func New(producer kafka.Publisher) *Publisher {
	return &Publisher{
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest assigns a document ID when the request has none and publishes the
// document keyed by its ID, so all versions of one document land on the same
// partition in order.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}
	event := kafka.Event{
		Key: docID,
		Value: consumer.IngestEvent{
			DocumentID: docID,
			Title:      req.Title,
			Body:       req.Body,
			ShardID:    req.ShardID,
			IngestedAt: time.Now().UTC(),
		},
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("publishing document %s: %w", docID, err)
	}
	p.logger.Debug("document queued", "doc_id", docID, "body_size", len(req.Body))
	return &ingestion.IngestResponse{
		DocumentID: docID,
		Status:     ingestion.StatusQueued,
		ShardID:    req.ShardID,
	}, nil
}
