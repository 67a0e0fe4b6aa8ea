package similarity

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
)

// ScoredTerm is the weighted form of one matched query term.
type ScoredTerm struct {
	Term      string  `json:"term"`
	Frequency int     `json:"frequency"`
	TF        float64 `json:"tf"`
	IDF       float64 `json:"idf"`
}

// Contribution is the term's share of the document score before
// normalization.
func (t ScoredTerm) Contribution() float64 {
	return t.TF * t.IDF
}

// Result is the score of one document.
type Result struct {
	DocID   string  `json:"doc_id"`
	Score   float64 `json:"score"`
	Overlap int     `json:"overlap"`
}

// Explanation breaks a Result down into the factors that produced it.
type Explanation struct {
	Result
	Config     string       `json:"config"`
	Terms      []ScoredTerm `json:"terms"`
	QueryNorm  float64      `json:"query_norm"`
	DocNorm    float64      `json:"doc_norm"`
	Coord      float64      `json:"coord"`
	MaxOverlap int          `json:"max_overlap"`
}

// Scorer scores documents under a fixed Config.
type Scorer struct {
	cfg Config
}

// NewScorer returns ErrInvalidConfiguration if cfg has no mode selected.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

func (s *Scorer) Config() Config {
	return s.cfg
}

type queryTerm struct {
	term    string
	docFreq int
	idf     float64
}

// PreparedQuery holds the document-independent half of a scoring session:
// document frequencies, idf weights and the query norm.
type PreparedQuery struct {
	cfg        Config
	provider   StatsProvider
	terms      []queryTerm
	corpusSize int
	sumSquared float64
	queryNorm  float64
}

// Prepare fetches corpus-level statistics for every query term. Each
// occurrence of a term in query is a separate clause; its query weight is
// its idf weight, and the squares of those weights feed the query norm.
func (s *Scorer) Prepare(ctx context.Context, query []string, provider StatsProvider) (*PreparedQuery, error) {
	pq := &PreparedQuery{
		cfg:      s.cfg,
		provider: provider,
		terms:    make([]queryTerm, 0, len(query)),
	}
	if len(query) == 0 {
		pq.queryNorm = s.cfg.Combination.QueryNormalization(0)
		return pq, nil
	}
	corpusSize, err := provider.CorpusSize(ctx)
	if err != nil {
		return nil, missing("corpus size", "", "", err)
	}
	pq.corpusSize = corpusSize

	for _, term := range query {
		docFreq, err := provider.DocumentFrequency(ctx, term)
		if err != nil {
			return nil, missing("document frequency", term, "", err)
		}
		stats := TermStatistics{DocumentFrequency: docFreq, CorpusSize: corpusSize}
		if err := stats.Validate(); err != nil {
			return nil, fmt.Errorf("term %q: %w", term, err)
		}
		idf := s.cfg.Weighting.InverseDocumentFrequencyWeight(docFreq, corpusSize)
		pq.terms = append(pq.terms, queryTerm{term: term, docFreq: docFreq, idf: idf})
		pq.sumSquared += idf * idf
	}
	pq.queryNorm = s.cfg.Combination.QueryNormalization(pq.sumSquared)
	return pq, nil
}

// Config returns the configuration the query was prepared under.
func (q *PreparedQuery) Config() Config {
	return q.cfg
}

// Terms returns the query terms in order.
func (q *PreparedQuery) Terms() []string {
	terms := make([]string, len(q.terms))
	for i, t := range q.terms {
		terms[i] = t.term
	}
	return terms
}

// QueryNorm returns the query normalization factor.
func (q *PreparedQuery) QueryNorm() float64 {
	return q.queryNorm
}

// Score scores a single document.
func (q *PreparedQuery) Score(ctx context.Context, docID string) (Result, error) {
	exp, err := q.Explain(ctx, docID)
	if err != nil {
		return Result{}, err
	}
	return exp.Result, nil
}

// Explain scores a single document and returns every factor involved.
// Only terms occurring in the document contribute; they are reported in
// query order.
func (q *PreparedQuery) Explain(ctx context.Context, docID string) (Explanation, error) {
	exp := Explanation{
		Result:     Result{DocID: docID},
		Config:     q.cfg.String(),
		Terms:      make([]ScoredTerm, 0, len(q.terms)),
		QueryNorm:  q.queryNorm,
		DocNorm:    1,
		MaxOverlap: len(q.terms),
	}
	if q.cfg.Combination == CombinationCosine && len(q.terms) > 0 {
		length, err := q.provider.FieldLength(ctx, docID)
		if err != nil {
			return Explanation{}, missing("field length", "", docID, err)
		}
		if err := validateFieldLength(length); err != nil {
			return Explanation{}, fmt.Errorf("document %q: %w", docID, err)
		}
		exp.DocNorm = q.cfg.Combination.DocumentNormalization(length)
	}

	contributions := make([]float64, 0, len(q.terms))
	for _, qt := range q.terms {
		freq, err := q.provider.TermFrequency(ctx, qt.term, docID)
		if err != nil {
			return Explanation{}, missing("term frequency", qt.term, docID, err)
		}
		stats := TermStatistics{TermFrequency: freq, DocumentFrequency: qt.docFreq, CorpusSize: q.corpusSize}
		if err := stats.Validate(); err != nil {
			return Explanation{}, fmt.Errorf("term %q in document %q: %w", qt.term, docID, err)
		}
		if freq == 0 {
			continue
		}
		st := ScoredTerm{
			Term:      qt.term,
			Frequency: freq,
			TF:        q.cfg.Weighting.TermFrequencyWeight(freq),
			IDF:       qt.idf,
		}
		exp.Terms = append(exp.Terms, st)
		contributions = append(contributions, st.Contribution())
	}

	exp.Overlap = len(exp.Terms)
	exp.Coord = q.cfg.Combination.CoordinationFactor(exp.Overlap, exp.MaxOverlap)
	exp.Score = q.cfg.Combination.Combine(contributions, exp.QueryNorm, exp.DocNorm, exp.Coord)
	if math.IsNaN(exp.Score) || math.IsInf(exp.Score, 0) || exp.Score < 0 {
		return Explanation{}, fmt.Errorf("document %q: %w", docID,
			apperrors.NewDomainError("score", exp.Score, "finite non-negative score"))
	}
	return exp, nil
}

// Score is the single-call entry point: it validates cfg, prepares query
// and scores docID against it.
func Score(ctx context.Context, cfg Config, query []string, docID string, provider StatsProvider) (Result, error) {
	s, err := NewScorer(cfg)
	if err != nil {
		return Result{}, err
	}
	pq, err := s.Prepare(ctx, query, provider)
	if err != nil {
		return Result{}, err
	}
	return pq.Score(ctx, docID)
}
