// Package ingestion accepts documents over HTTP and queues them on the
// ingest topic for the indexer.
package ingestion

// IngestRequest is the JSON body accepted by POST /api/v1/documents. An
// empty DocumentID is assigned by the service; sending an existing ID
// replaces that document. ShardID pins the document to one shard.
type IngestRequest struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	ShardID    *int   `json:"shard_id,omitempty"`
}

// IngestResponse is returned once the document is queued for indexing.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ShardID    *int   `json:"shard_id,omitempty"`
}

const StatusQueued = "QUEUED"
