package shard

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
)

var _ similarity.StatsProvider = (*Router)(nil)

func newTestRouter(t *testing.T, numShards int) *Router {
	t.Helper()
	r, err := NewRouter(config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 30}, numShards, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func normalized(t *testing.T, word string) string {
	t.Helper()
	term, ok := tokenizer.Normalize(word)
	require.True(t, ok)
	return term
}

func TestShardForIsStableAndInRange(t *testing.T) {
	r := newTestRouter(t, 4)
	counts := make([]int, 4)
	for i := 0; i < 400; i++ {
		id := fmt.Sprintf("doc-%d", i)
		s := r.ShardFor(id)
		require.GreaterOrEqual(t, s, 0)
		require.Less(t, s, 4)
		assert.Equal(t, s, r.ShardFor(id))
		counts[s]++
	}
	for _, c := range counts {
		assert.Greater(t, c, 0)
	}
}

func TestRouteUnknownShard(t *testing.T) {
	r := newTestRouter(t, 2)
	_, err := r.Route(5)
	assert.True(t, errors.Is(err, apperrors.ErrShardUnavailable))
}

func TestRouterAggregatesStatistics(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, 3)

	for i := 0; i < 12; i++ {
		body := "filler"
		if i%3 == 0 {
			body = "needle filler"
		}
		_, err := r.IndexDocument(-1, fmt.Sprintf("doc-%02d", i), "", body)
		require.NoError(t, err)
	}
	shard, err := r.IndexDocument(2, "pinned", "", "needle needle")
	require.NoError(t, err)
	assert.Equal(t, 2, shard)

	n, err := r.CorpusSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	needle := normalized(t, "needle")

	df, err := r.DocumentFrequency(ctx, needle)
	require.NoError(t, err)
	assert.Equal(t, 5, df)

	postings, err := r.Search(ctx, needle)
	require.NoError(t, err)
	require.Len(t, postings, 5)
	for i := 1; i < len(postings); i++ {
		assert.Less(t, postings[i-1].DocID, postings[i].DocID)
	}

	tf, err := r.TermFrequency(ctx, needle, "pinned")
	require.NoError(t, err)
	assert.Equal(t, 2, tf)

	length, err := r.FieldLength(ctx, "pinned")
	require.NoError(t, err)
	assert.Equal(t, 2.0, length)

	_, err = r.FieldLength(ctx, "ghost")
	assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound))
}

func TestRouterScoresMatchSingleEngine(t *testing.T) {
	ctx := context.Background()
	r := newTestRouter(t, 4)
	single, err := indexer.NewEngine(config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 30})
	require.NoError(t, err)
	t.Cleanup(func() { single.Close() })

	docs := map[string]string{
		"a": "vector space retrieval",
		"b": "vector vector model",
		"c": "probabilistic retrieval model",
		"d": "space exploration",
	}
	for id, body := range docs {
		_, err := r.IndexDocument(-1, id, "", body)
		require.NoError(t, err)
		require.NoError(t, single.IndexDocument(id, "", body))
	}

	cfg, err := similarity.ParseConfig("sublinear", "cosine")
	require.NoError(t, err)
	query := []string{normalized(t, "vector"), normalized(t, "retrieval")}
	for id := range docs {
		want, err := similarity.Score(ctx, cfg, query, id, single)
		require.NoError(t, err)
		got, err := similarity.Score(ctx, cfg, query, id, r)
		require.NoError(t, err)
		assert.Equal(t, want.Score, got.Score, id)
	}
}

func TestRouterReloadAll(t *testing.T) {
	dir := t.TempDir()
	cfg := config.IndexerConfig{DataDir: dir, SegmentMaxSize: 1 << 30}
	writer, err := NewRouter(cfg, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { writer.Close() })
	reader, err := NewRouter(cfg, 2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	_, err = writer.IndexDocument(-1, "x", "", "hello world")
	require.NoError(t, err)
	require.NoError(t, writer.FlushAll())

	assert.Equal(t, 1, reader.ReloadAll())
	n, err := reader.CorpusSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRouterFlushHookReportsShard(t *testing.T) {
	flushed := map[int]int{}
	r, err := NewRouter(config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 30}, 2, nil,
		WithFlushHook(func(shardID int, segmentName string, docs int) {
			assert.NotEmpty(t, segmentName)
			flushed[shardID] += docs
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	_, err = r.IndexDocument(1, "pinned", "", "hello world")
	require.NoError(t, err)
	require.NoError(t, r.FlushAll())

	assert.Equal(t, map[int]int{1: 1}, flushed)
}

func TestNewRouterRejectsZeroShards(t *testing.T) {
	_, err := NewRouter(config.IndexerConfig{DataDir: t.TempDir()}, 0, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
