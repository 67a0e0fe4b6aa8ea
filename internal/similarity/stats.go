package similarity

import (
	"context"
	"errors"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
)

// StatsProvider supplies the raw counts the scorer consumes. Implementations
// own their concurrency discipline and may be called from many goroutines.
//
// A term that exists in the corpus but not in the given document must be
// reported as TermFrequency 0, not as an error. An error means the provider
// cannot answer (unknown document, backend failure) and is surfaced to the
// caller as ErrMissingStatistics.
type StatsProvider interface {
	TermFrequency(ctx context.Context, term, docID string) (int, error)
	DocumentFrequency(ctx context.Context, term string) (int, error)
	CorpusSize(ctx context.Context) (int, error)
	FieldLength(ctx context.Context, docID string) (float64, error)
}

// TermStatistics are the per-term, per-document inputs to weighting.
type TermStatistics struct {
	TermFrequency     int
	DocumentFrequency int
	CorpusSize        int
}

// Validate rejects statistics that would produce NaN, infinity or a
// negative weight.
func (s TermStatistics) Validate() error {
	if s.CorpusSize < 1 {
		return apperrors.NewDomainError("corpus_size", float64(s.CorpusSize), "corpus_size >= 1")
	}
	if s.TermFrequency < 0 {
		return apperrors.NewDomainError("term_frequency", float64(s.TermFrequency), "term_frequency >= 0")
	}
	if s.DocumentFrequency < 0 {
		return apperrors.NewDomainError("document_frequency", float64(s.DocumentFrequency), "document_frequency >= 0")
	}
	if s.DocumentFrequency > s.CorpusSize {
		return apperrors.NewDomainError("document_frequency", float64(s.DocumentFrequency), "document_frequency <= corpus_size")
	}
	return nil
}

func validateFieldLength(length float64) error {
	if math.IsNaN(length) || math.IsInf(length, 0) || length <= 0 {
		return apperrors.NewDomainError("field_length", length, "0 < field_length < +Inf")
	}
	return nil
}

// missing wraps a provider failure. Context cancellation passes through
// untouched, and errors already classified as missing statistics are kept.
func missing(stat, term, docID string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var mse *apperrors.MissingStatisticsError
	if errors.As(err, &mse) {
		return err
	}
	return apperrors.NewMissingStatistics(stat, term, docID, err)
}
