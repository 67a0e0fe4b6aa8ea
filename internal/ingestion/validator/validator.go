// Package validator checks ingestion requests and reports per-field
// failures.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/ingestion"
)

const (
	maxDocumentIDLength = 255
	maxTitleLength      = 1024
	maxBodyLength       = 1048576
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks field lengths, that the text holds at least
// one term the indexer keeps, and, when the request pins a shard, that the
// shard exists.
func ValidateIngestRequest(req *ingestion.IngestRequest, numShards int) error {
	errs := make(map[string]string)

	if len(req.DocumentID) > maxDocumentIDLength {
		errs["document_id"] = fmt.Sprintf("document_id must be at most %d characters", maxDocumentIDLength)
	} else if req.DocumentID != "" && strings.TrimSpace(req.DocumentID) != req.DocumentID {
		errs["document_id"] = "document_id must not have surrounding whitespace"
	}
	if len(req.Title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" && strings.TrimSpace(req.Title) == "" {
		errs["body"] = "title or body is required"
	} else if len(req.Body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d characters", maxBodyLength)
	} else if len(tokenizer.Tokenize(req.Title+" "+req.Body)) == 0 {
		errs["body"] = "title or body must contain an indexable term"
	}
	if req.ShardID != nil && (*req.ShardID < 0 || *req.ShardID >= numShards) {
		errs["shard_id"] = fmt.Sprintf("shard_id must be in [0, %d)", numShards)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
