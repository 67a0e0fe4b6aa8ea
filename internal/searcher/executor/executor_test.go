package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
)

var (
	_ Index = (*indexer.Engine)(nil)
	_ Index = (*shard.Router)(nil)
)

var corpus = map[string]string{
	"d1": "the quick brown fox",
	"d2": "the lazy brown dog",
	"d3": "quick quick fox jumps over the dog",
	"d4": "a completely unrelated document",
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	e, err := indexer.NewEngine(config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 30})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	for id, body := range corpus {
		require.NoError(t, e.IndexDocument(id, "", body))
	}
	return New(e, ranker.New(2, nil))
}

func docIDs(res *SearchResult) []string {
	ids := make([]string, len(res.Results))
	for i, d := range res.Results {
		ids[i] = d.DocID
	}
	return ids
}

func TestExecuteAND(t *testing.T) {
	ex := newTestExecutor(t)
	res, err := ex.Execute(context.Background(), parser.Parse("quick fox"), similarity.DefaultConfig, 10)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"d1", "d3"}, docIDs(res))
	assert.Equal(t, 2, res.TotalHits)
	assert.Equal(t, "basic+cosine", res.Config)
	assert.Equal(t, 2, res.TermStats["quick"])
	for _, d := range res.Results {
		assert.Equal(t, 2, d.MatchedTerms)
		assert.Greater(t, d.Score, 0.0)
	}
}

func TestExecuteORAndNOT(t *testing.T) {
	ex := newTestExecutor(t)
	res, err := ex.Execute(context.Background(), parser.Parse("fox OR dog"), similarity.DefaultConfig, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "d2", "d3"}, docIDs(res))

	res, err = ex.Execute(context.Background(), parser.Parse("brown NOT lazy"), similarity.DefaultConfig, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, docIDs(res))
}

func TestExecuteRespectsLimitAndOrdering(t *testing.T) {
	ex := newTestExecutor(t)
	cfg, err := similarity.ParseConfig("basic", "overlap")
	require.NoError(t, err)

	res, err := ex.Execute(context.Background(), parser.Parse("quick OR lazy"), cfg, 1)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "d3", res.Results[0].DocID, "two occurrences of quick outweigh one rare term")
	assert.Equal(t, 3, res.TotalHits)
}

func TestExecuteEmptyPlan(t *testing.T) {
	ex := newTestExecutor(t)
	res, err := ex.Execute(context.Background(), parser.Parse("the and"), similarity.DefaultConfig, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalHits)
}

func TestExecuteNoMatches(t *testing.T) {
	ex := newTestExecutor(t)
	res, err := ex.Execute(context.Background(), parser.Parse("zeppelin"), similarity.DefaultConfig, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
	assert.Zero(t, res.TotalHits)
	require.Len(t, res.TermStats, 1)
}

func TestExecuteEmptyIndex(t *testing.T) {
	e, err := indexer.NewEngine(config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 30})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	ex := New(e, ranker.New(2, nil))

	for _, q := range []string{"cat", "cat OR dog", "cat NOT dog"} {
		res, err := ex.Execute(context.Background(), parser.Parse(q), similarity.DefaultConfig, 10)
		require.NoError(t, err, q)
		assert.NotNil(t, res.Results)
		assert.Empty(t, res.Results, q)
		assert.Zero(t, res.TotalHits, q)
	}
}

func TestExplain(t *testing.T) {
	ex := newTestExecutor(t)
	exp, err := ex.Explain(context.Background(), parser.Parse("quick dog"), similarity.DefaultConfig, "d3")
	require.NoError(t, err)
	assert.Equal(t, "d3", exp.DocID)
	assert.Equal(t, 2, exp.Overlap)
	require.Len(t, exp.Terms, 2)
	assert.Equal(t, 2, exp.Terms[0].Frequency)

	_, err = ex.Explain(context.Background(), parser.Parse("quick"), similarity.DefaultConfig, "nope")
	assert.True(t, errors.Is(err, apperrors.ErrMissingStatistics))
}

func BenchmarkExecute(b *testing.B) {
	e, err := indexer.NewEngine(config.IndexerConfig{DataDir: b.TempDir(), SegmentMaxSize: 1 << 30})
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()
	words := []string{"vector", "space", "ranking", "cosine", "query", "corpus", "engine", "weight"}
	for i := 0; i < 5000; i++ {
		body := fmt.Sprintf("%s %s %s %s", words[i%8], words[(i+1)%8], words[(i*3)%8], words[(i+5)%8])
		e.IndexDocument(fmt.Sprintf("doc-%05d", i), "", body)
	}
	ex := New(e, ranker.New(0, nil))

	for _, q := range []string{"vector ranking", "vector OR cosine OR corpus", "query NOT engine"} {
		plan := parser.Parse(q)
		b.Run(q, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := ex.Execute(context.Background(), plan, similarity.DefaultConfig, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
