// Package pgstats keeps term statistics in PostgreSQL so any number of
// searchers can score against one shared corpus.
package pgstats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/resilience"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vsm_documents (
		doc_id       TEXT PRIMARY KEY,
		field_length INTEGER NOT NULL CHECK (field_length >= 0),
		indexed_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS vsm_postings (
		term      TEXT NOT NULL,
		doc_id    TEXT NOT NULL REFERENCES vsm_documents (doc_id) ON DELETE CASCADE,
		frequency INTEGER NOT NULL CHECK (frequency > 0),
		PRIMARY KEY (term, doc_id)
	)`,
	`CREATE INDEX IF NOT EXISTS vsm_postings_doc_id_idx ON vsm_postings (doc_id)`,
}

// Store is a Postgres-backed statistics provider and posting source.
type Store struct {
	client  *postgres.Client
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// New wraps client. Queries are retried per retry and short-circuited by a
// breaker once the database keeps failing; unknown documents count as
// neither.
func New(client *postgres.Client, retry resilience.RetryConfig, breaker resilience.CircuitBreakerConfig) *Store {
	healthy := func(err error) bool {
		return !errors.Is(err, apperrors.ErrDocumentNotFound)
	}
	retry.Retryable = healthy
	breaker.IsFailure = healthy
	return &Store{
		client:  client,
		retry:   retry,
		breaker: resilience.NewCircuitBreaker("pgstats", breaker),
		logger:  slog.Default().With("component", "pgstats"),
	}
}

// do runs fn under the retry policy and the circuit breaker. An open circuit
// surfaces as ErrShardUnavailable.
func (s *Store) do(ctx context.Context, name string, fn func() error) error {
	err := s.breaker.Execute(func() error {
		return resilience.Retry(ctx, name, s.retry, fn)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", apperrors.ErrShardUnavailable, err)
	}
	return err
}

// Migrate creates the statistics tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.client.Migrate(ctx, schema...); err != nil {
		return fmt.Errorf("migrating statistics schema: %w", err)
	}
	return nil
}

// IndexText tokenizes title and body and stores the document's statistics,
// replacing any previous version.
func (s *Store) IndexText(ctx context.Context, docID, title, body string) error {
	tokens := tokenizer.Tokenize(title + " " + body)
	freqs := make(map[string]int)
	for _, tok := range tokens {
		freqs[tok.Term]++
	}
	return s.IndexDocument(ctx, docID, freqs, len(tokens))
}

// IndexDocument stores term frequencies and field length for docID in one
// transaction. A document of length zero is rejected.
func (s *Store) IndexDocument(ctx context.Context, docID string, freqs map[string]int, length int) error {
	if length < 1 {
		return fmt.Errorf("%w: document %q has no indexable terms", apperrors.ErrInvalidInput, docID)
	}
	err := s.do(ctx, "pgstats.index", func() error {
		return s.client.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vsm_documents (doc_id, field_length) VALUES ($1, $2)
				 ON CONFLICT (doc_id) DO UPDATE SET field_length = EXCLUDED.field_length, indexed_at = NOW()`,
				docID, length,
			); err != nil {
				return fmt.Errorf("upserting document %s: %w", docID, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM vsm_postings WHERE doc_id = $1`, docID); err != nil {
				return fmt.Errorf("clearing postings of %s: %w", docID, err)
			}
			stmt, err := tx.PrepareContext(ctx, pq.CopyIn("vsm_postings", "term", "doc_id", "frequency"))
			if err != nil {
				return fmt.Errorf("preparing copy: %w", err)
			}
			for term, freq := range freqs {
				if _, err := stmt.ExecContext(ctx, term, docID, freq); err != nil {
					stmt.Close()
					return fmt.Errorf("copying posting %s/%s: %w", term, docID, err)
				}
			}
			if _, err := stmt.ExecContext(ctx); err != nil {
				stmt.Close()
				return fmt.Errorf("flushing copy: %w", err)
			}
			return stmt.Close()
		})
	})
	if err != nil {
		return err
	}
	s.logger.Debug("document statistics stored", "doc_id", docID, "terms", len(freqs), "field_length", length)
	return nil
}

func (s *Store) TermFrequency(ctx context.Context, term, docID string) (int, error) {
	var (
		freq   int
		exists bool
	)
	err := s.do(ctx, "pgstats.tf", func() error {
		return s.client.DB.QueryRowContext(ctx,
			`SELECT COALESCE((SELECT frequency FROM vsm_postings WHERE term = $1 AND doc_id = $2), 0),
			        EXISTS (SELECT 1 FROM vsm_documents WHERE doc_id = $2)`,
			term, docID,
		).Scan(&freq, &exists)
	})
	if err != nil {
		return 0, fmt.Errorf("querying term frequency: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, docID)
	}
	return freq, nil
}

func (s *Store) DocumentFrequency(ctx context.Context, term string) (int, error) {
	var n int
	err := s.do(ctx, "pgstats.df", func() error {
		return s.client.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM vsm_postings WHERE term = $1`, term,
		).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("querying document frequency: %w", err)
	}
	return n, nil
}

func (s *Store) CorpusSize(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, "pgstats.corpus", func() error {
		return s.client.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM vsm_documents`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("querying corpus size: %w", err)
	}
	return n, nil
}

func (s *Store) FieldLength(ctx context.Context, docID string) (float64, error) {
	var n int
	err := s.do(ctx, "pgstats.length", func() error {
		err := s.client.DB.QueryRowContext(ctx,
			`SELECT field_length FROM vsm_documents WHERE doc_id = $1`, docID,
		).Scan(&n)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %q", apperrors.ErrDocumentNotFound, docID)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

// Search returns the postings of an already-normalized term ordered by
// document ID.
func (s *Store) Search(ctx context.Context, term string) (index.PostingList, error) {
	var postings index.PostingList
	err := s.do(ctx, "pgstats.search", func() error {
		rows, err := s.client.DB.QueryContext(ctx,
			`SELECT doc_id, frequency FROM vsm_postings WHERE term = $1 ORDER BY doc_id`, term,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		postings = postings[:0]
		for rows.Next() {
			var p index.Posting
			if err := rows.Scan(&p.DocID, &p.Frequency); err != nil {
				return err
			}
			postings = append(postings, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("searching term %q: %w", term, err)
	}
	return postings, nil
}
