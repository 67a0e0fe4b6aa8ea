// Package executor runs a parsed query against an index: it collects
// candidate documents from postings, applies the boolean operators and
// hands the candidates to the ranker.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/tracing"
)

// Index is what the executor searches: a posting source that also answers
// term statistics. indexer.Engine, shard.Router and pgstats.Store
// implement it.
type Index interface {
	similarity.StatsProvider
	Search(ctx context.Context, term string) (index.PostingList, error)
}

type SearchResult struct {
	Query     string             `json:"query"`
	Config    string             `json:"config"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
	Unscored  int                `json:"unscored,omitempty"`
}

type Executor struct {
	index  Index
	ranker *ranker.Ranker
	logger *slog.Logger
}

func New(idx Index, rk *ranker.Ranker) *Executor {
	return &Executor{
		index:  idx,
		ranker: rk,
		logger: slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, cfg similarity.Config, limit int) (*SearchResult, error) {
	result := &SearchResult{
		Query:     plan.RawQuery,
		Config:    cfg.String(),
		Results:   []ranker.ScoredDoc{},
		TermStats: map[string]int{},
	}
	if len(plan.Terms) == 0 {
		return result, nil
	}

	_, span := tracing.StartChildSpan(ctx, "postings")
	postingsPerTerm := make(map[string]index.PostingList)
	for _, term := range plan.UniqueTerms() {
		postings, err := e.index.Search(ctx, term)
		if err != nil {
			span.End()
			return nil, fmt.Errorf("searching term %q: %w", term, err)
		}
		result.TermStats[term] = len(postings)
		postingsPerTerm[term] = postings
	}

	var candidates map[string]struct{}
	switch plan.Type {
	case parser.QueryAND:
		candidates = intersectPostings(postingsPerTerm)
	case parser.QueryOR:
		candidates = unionPostings(postingsPerTerm)
	}
	for _, term := range plan.ExcludeTerms {
		postings, err := e.index.Search(ctx, term)
		if err != nil {
			span.End()
			return nil, fmt.Errorf("searching exclude term %q: %w", term, err)
		}
		for _, p := range postings {
			delete(candidates, p.DocID)
		}
	}

	docIDs := make([]string, 0, len(candidates))
	for id := range candidates {
		docIDs = append(docIDs, id)
	}
	sort.Strings(docIDs)
	span.SetAttr("candidates", len(docIDs))
	span.End()

	_, span = tracing.StartChildSpan(ctx, "rank")
	ranking, err := e.ranker.Rank(ctx, cfg, plan.Terms, docIDs, e.index, limit)
	span.SetAttr("config", cfg.String())
	span.End()
	if err != nil {
		return nil, fmt.Errorf("ranking %d candidates: %w", len(docIDs), err)
	}
	result.TotalHits = ranking.Scored
	result.Results = ranking.Results
	result.Unscored = ranking.Failed

	logger.FromContext(ctx).Info("query executed",
		"component", "query-executor",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"config", cfg.String(),
		"candidates", len(docIDs),
		"unscored", ranking.Failed,
		"results", len(ranking.Results),
	)
	return result, nil
}

// Explain returns the score breakdown of docID for the plan's terms. The
// document need not match the boolean operators.
func (e *Executor) Explain(ctx context.Context, plan *parser.QueryPlan, cfg similarity.Config, docID string) (similarity.Explanation, error) {
	exp, err := e.ranker.Explain(ctx, cfg, plan.Terms, docID, e.index)
	if err != nil {
		e.logger.Debug("explain failed", "doc_id", docID, "error", err)
		return similarity.Explanation{}, err
	}
	return exp, nil
}

// CorpusSize reports the number of documents in the index.
func (e *Executor) CorpusSize(ctx context.Context) (int, error) {
	return e.index.CorpusSize(ctx)
}

func intersectPostings(postingsPerTerm map[string]index.PostingList) map[string]struct{} {
	if len(postingsPerTerm) == 0 {
		return make(map[string]struct{})
	}
	var shortestTerm string
	shortestLen := int(^uint(0) >> 1)
	for term, postings := range postingsPerTerm {
		if len(postings) < shortestLen {
			shortestLen = len(postings)
			shortestTerm = term
		}
	}
	candidates := make(map[string]struct{})
	for _, p := range postingsPerTerm[shortestTerm] {
		candidates[p.DocID] = struct{}{}
	}
	for term, postings := range postingsPerTerm {
		if term == shortestTerm {
			continue
		}
		docSet := make(map[string]struct{}, len(postings))
		for _, p := range postings {
			docSet[p.DocID] = struct{}{}
		}
		for docID := range candidates {
			if _, exists := docSet[docID]; !exists {
				delete(candidates, docID)
			}
		}
	}
	return candidates
}

func unionPostings(postingsPerTerm map[string]index.PostingList) map[string]struct{} {
	result := make(map[string]struct{})
	for _, postings := range postingsPerTerm {
		for _, p := range postings {
			result[p.DocID] = struct{}{}
		}
	}
	return result
}
