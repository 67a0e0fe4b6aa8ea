package similarity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
)

func TestScoreAllMatchesSequentialScoring(t *testing.T) {
	p := newFakeProvider(500).setDF("fox", 40).setDF("dog", 120)
	docIDs := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		p.addDoc(id, float64(10+i%17), map[string]int{"fox": i % 5, "dog": i % 3})
		docIDs = append(docIDs, id)
	}

	pq, err := mustScorer(t, "sublinear", "cosine").Prepare(context.Background(), []string{"fox", "dog"}, p)
	require.NoError(t, err)

	batch, err := pq.ScoreAll(context.Background(), docIDs, 8)
	require.NoError(t, err)
	require.Empty(t, batch.Failures)
	require.Len(t, batch.Results, len(docIDs))

	for i, res := range batch.Results {
		assert.Equal(t, docIDs[i], res.DocID)
		want, err := pq.Score(context.Background(), docIDs[i])
		require.NoError(t, err)
		assert.Equal(t, want, res)
	}
}

func TestScoreAllCollectsPerDocumentFailures(t *testing.T) {
	p := newFakeProvider(10).
		setDF("cat", 2).
		addDoc("a", 4, map[string]int{"cat": 1}).
		addDoc("c", 9, map[string]int{"cat": 2})

	pq, err := mustScorer(t, "basic", "cosine").Prepare(context.Background(), []string{"cat"}, p)
	require.NoError(t, err)

	batch, err := pq.ScoreAll(context.Background(), []string{"a", "missing", "c"}, 0)
	require.NoError(t, err)

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "a", batch.Results[0].DocID)
	assert.Equal(t, "c", batch.Results[1].DocID)

	require.Len(t, batch.Failures, 1)
	assert.Equal(t, "missing", batch.Failures[0].DocID)
	assert.True(t, errors.Is(batch.Failures[0].Err, apperrors.ErrMissingStatistics))
}

func TestScoreAllCancelled(t *testing.T) {
	p := newFakeProvider(10).setDF("cat", 2).addDoc("a", 4, map[string]int{"cat": 1})
	pq, err := mustScorer(t, "basic", "overlap").Prepare(context.Background(), []string{"cat"}, p)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pq.ScoreAll(ctx, []string{"a", "a", "a"}, 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestScoreAllEmpty(t *testing.T) {
	pq, err := mustScorer(t, "basic", "overlap").Prepare(context.Background(), []string{"cat"}, newFakeProvider(1))
	require.NoError(t, err)

	batch, err := pq.ScoreAll(context.Background(), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.Empty(t, batch.Failures)
}

func BenchmarkScoreAll(b *testing.B) {
	p := newFakeProvider(100000).setDF("search", 900).setDF("engine", 4000).setDF("ranking", 35)
	docIDs := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("doc-%d", i)
		p.addDoc(id, float64(50+i%200), map[string]int{"search": i % 7, "engine": i % 3, "ranking": i % 11})
		docIDs = append(docIDs, id)
	}
	s, _ := NewScorer(DefaultConfig)
	pq, err := s.Prepare(context.Background(), []string{"search", "engine", "ranking"}, p)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pq.ScoreAll(context.Background(), docIDs, 0); err != nil {
			b.Fatal(err)
		}
	}
}
