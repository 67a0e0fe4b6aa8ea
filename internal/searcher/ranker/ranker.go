// Package ranker scores candidate documents with the vector space model and
// keeps the top results.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
)

type ScoredDoc struct {
	DocID        string  `json:"doc_id"`
	Score        float64 `json:"score"`
	MatchedTerms int     `json:"matched_terms"`
}

// Ranking is the outcome of one Rank call. Failed counts candidates that
// could not be scored and were left out.
type Ranking struct {
	Results []ScoredDoc
	Scored  int
	Failed  int
}

type Ranker struct {
	parallelism int
	metrics     *metrics.Metrics
}

// New returns a Ranker scoring up to parallelism documents at once. m may be
// nil.
func New(parallelism int, m *metrics.Metrics) *Ranker {
	return &Ranker{parallelism: parallelism, metrics: m}
}

// Rank scores every candidate for the query terms under cfg and returns the
// best limit documents by score descending, then document ID ascending.
// With no candidates the provider is never consulted, so an empty index
// yields an empty ranking.
func (r *Ranker) Rank(
	ctx context.Context,
	cfg similarity.Config,
	terms []string,
	candidates []string,
	provider similarity.StatsProvider,
	limit int,
) (Ranking, error) {
	if len(candidates) == 0 {
		return Ranking{Results: []ScoredDoc{}}, nil
	}
	start := time.Now()
	pq, err := r.prepare(ctx, cfg, terms, provider)
	if err != nil {
		return Ranking{}, err
	}
	batch, err := pq.ScoreAll(ctx, candidates, r.parallelism)
	if err != nil {
		return Ranking{}, err
	}

	log := logger.FromContext(ctx)
	for _, f := range batch.Failures {
		log.Warn("document not scored", "doc_id", f.DocID, "error", f.Err)
		r.observeFailure(f.Err)
	}
	if r.metrics != nil {
		r.metrics.DocumentsScoredTotal.WithLabelValues("ok").Add(float64(len(batch.Results)))
		r.metrics.DocumentsScoredTotal.WithLabelValues("failed").Add(float64(len(batch.Failures)))
		r.metrics.ScoringLatency.WithLabelValues(cfg.Combination.String()).Observe(time.Since(start).Seconds())
	}
	return Ranking{
		Results: TopK(batch.Results, limit),
		Scored:  len(batch.Results),
		Failed:  len(batch.Failures),
	}, nil
}

// Explain returns the score breakdown of one document.
func (r *Ranker) Explain(
	ctx context.Context,
	cfg similarity.Config,
	terms []string,
	docID string,
	provider similarity.StatsProvider,
) (similarity.Explanation, error) {
	pq, err := r.prepare(ctx, cfg, terms, provider)
	if err != nil {
		return similarity.Explanation{}, err
	}
	exp, err := pq.Explain(ctx, docID)
	if err != nil {
		r.observeFailure(err)
		return similarity.Explanation{}, err
	}
	return exp, nil
}

func (r *Ranker) prepare(ctx context.Context, cfg similarity.Config, terms []string, provider similarity.StatsProvider) (*similarity.PreparedQuery, error) {
	scorer, err := similarity.NewScorer(cfg)
	if err != nil {
		return nil, err
	}
	pq, err := scorer.Prepare(ctx, terms, provider)
	if err != nil {
		r.observeFailure(err)
		return nil, fmt.Errorf("preparing query: %w", err)
	}
	if r.metrics != nil {
		r.metrics.ScoringSessionsTotal.WithLabelValues(cfg.Weighting.String(), cfg.Combination.String()).Inc()
	}
	return pq, nil
}

func (r *Ranker) observeFailure(err error) {
	if r.metrics == nil {
		return
	}
	kind := "other"
	switch {
	case errors.Is(err, apperrors.ErrMissingStatistics):
		kind = "missing_statistics"
	case errors.Is(err, apperrors.ErrArithmeticDomain):
		kind = "arithmetic_domain"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = "cancelled"
	}
	r.metrics.ScoringFailuresTotal.WithLabelValues(kind).Inc()
}
