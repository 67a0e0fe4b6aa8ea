package ranker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
)

var errNoDoc = errors.New("no such document")

type mapProvider struct {
	corpus  int
	df      map[string]int
	tf      map[string]map[string]int
	lengths map[string]float64
}

func newMapProvider(corpus int) *mapProvider {
	return &mapProvider{
		corpus:  corpus,
		df:      map[string]int{},
		tf:      map[string]map[string]int{},
		lengths: map[string]float64{},
	}
}

func (p *mapProvider) doc(id string, length float64, tf map[string]int) *mapProvider {
	p.tf[id] = tf
	p.lengths[id] = length
	return p
}

func (p *mapProvider) TermFrequency(_ context.Context, term, docID string) (int, error) {
	tf, ok := p.tf[docID]
	if !ok {
		return 0, errNoDoc
	}
	return tf[term], nil
}

func (p *mapProvider) DocumentFrequency(_ context.Context, term string) (int, error) {
	return p.df[term], nil
}

func (p *mapProvider) CorpusSize(context.Context) (int, error) { return p.corpus, nil }

func (p *mapProvider) FieldLength(_ context.Context, docID string) (float64, error) {
	n, ok := p.lengths[docID]
	if !ok {
		return 0, errNoDoc
	}
	return n, nil
}

func TestRankOrdersByScoreThenDocID(t *testing.T) {
	p := newMapProvider(10).
		doc("b", 4, map[string]int{"cat": 2}).
		doc("a", 4, map[string]int{"cat": 2}).
		doc("c", 1, map[string]int{"cat": 3}).
		doc("d", 9, map[string]int{"cat": 1})
	p.df["cat"] = 4

	r := New(2, nil)
	ranking, err := r.Rank(context.Background(), similarity.DefaultConfig, []string{"cat"}, []string{"a", "b", "c", "d"}, p, 3)
	require.NoError(t, err)

	require.Len(t, ranking.Results, 3)
	assert.Equal(t, "c", ranking.Results[0].DocID)
	assert.Equal(t, "a", ranking.Results[1].DocID)
	assert.Equal(t, "b", ranking.Results[2].DocID)
	assert.Equal(t, ranking.Results[1].Score, ranking.Results[2].Score)
	assert.Equal(t, 1, ranking.Results[0].MatchedTerms)
	assert.Equal(t, 4, ranking.Scored)
	assert.Zero(t, ranking.Failed)
}

func TestRankSkipsUnscorableDocuments(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := newMapProvider(3).doc("a", 2, map[string]int{"cat": 1})
	p.df["cat"] = 1

	ranking, err := New(0, m).Rank(context.Background(), similarity.DefaultConfig, []string{"cat"}, []string{"a", "ghost"}, p, 10)
	require.NoError(t, err)
	assert.Len(t, ranking.Results, 1)
	assert.Equal(t, 1, ranking.Failed)

	families, err := reg.Gather()
	require.NoError(t, err)
	var failures float64
	for _, f := range families {
		if f.GetName() == "vsm_scoring_failures_total" {
			for _, metric := range f.GetMetric() {
				failures += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, failures)
}

func TestRankPropagatesPrepareErrors(t *testing.T) {
	p := newMapProvider(0)
	_, err := New(1, nil).Rank(context.Background(), similarity.DefaultConfig, []string{"cat"}, []string{"a"}, p, 10)
	assert.True(t, errors.Is(err, apperrors.ErrArithmeticDomain))

	_, err = New(1, nil).Rank(context.Background(), similarity.Config{}, []string{"cat"}, []string{"a"}, p, 10)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfiguration))
}

func TestRankNoCandidatesSkipsProvider(t *testing.T) {
	p := newMapProvider(0)
	ranking, err := New(1, nil).Rank(context.Background(), similarity.DefaultConfig, []string{"cat"}, nil, p, 10)
	require.NoError(t, err)
	assert.NotNil(t, ranking.Results)
	assert.Empty(t, ranking.Results)
	assert.Zero(t, ranking.Scored)
}

func TestExplain(t *testing.T) {
	p := newMapProvider(10).doc("doc-1", 1, map[string]int{"cat": 3})
	p.df["cat"] = 2

	exp, err := New(1, nil).Explain(context.Background(), similarity.DefaultConfig, []string{"cat"}, "doc-1", p)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, exp.Score, 1e-12)

	_, err = New(1, nil).Explain(context.Background(), similarity.DefaultConfig, []string{"cat"}, "ghost", p)
	assert.True(t, errors.Is(err, apperrors.ErrMissingStatistics))
}

func TestTopK(t *testing.T) {
	results := []similarity.Result{
		{DocID: "x", Score: 1},
		{DocID: "y", Score: 5},
		{DocID: "z", Score: 3},
		{DocID: "w", Score: 5},
	}
	top := TopK(results, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "w", top[0].DocID)
	assert.Equal(t, "y", top[1].DocID)

	all := TopK(results, 0)
	ids := make([]string, len(all))
	for i, d := range all {
		ids[i] = d.DocID
	}
	assert.Equal(t, []string{"w", "y", "z", "x"}, ids)
	assert.Empty(t, TopK(nil, 5))
}

func BenchmarkRank(b *testing.B) {
	p := newMapProvider(20000)
	p.df["vector"] = 1500
	p.df["space"] = 300
	candidates := make([]string, 0, 2000)
	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("doc-%d", i)
		p.doc(id, float64(20+i%80), map[string]int{"vector": i % 4, "space": i % 6})
		candidates = append(candidates, id)
	}
	r := New(0, nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Rank(context.Background(), similarity.DefaultConfig, []string{"vector", "space"}, candidates, p, 10); err != nil {
			b.Fatal(err)
		}
	}
}
