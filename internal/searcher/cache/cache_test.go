package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func sampleResult(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		Config:    "basic+cosine",
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: "d1", Score: 0.5, MatchedTerms: 1}},
		TermStats: map[string]int{"fox": 1},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(newMemStore(), time.Minute, metrics.New(reg))
	plan := parser.Parse("fox")

	var calls atomic.Int32
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		return sampleResult("fox"), nil
	}

	first, cached, err := c.GetOrCompute(context.Background(), plan, similarity.DefaultConfig, 10, compute)
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := c.GetOrCompute(context.Background(), plan, similarity.DefaultConfig, 10, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := map[string]float64{}
	for _, f := range families {
		if len(f.GetMetric()) == 1 && f.GetMetric()[0].GetCounter() != nil {
			found[f.GetName()] = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, found["cache_hits_total"])
	assert.Equal(t, 1.0, found["cache_misses_total"])
}

func TestKeySeparatesScoringConfigs(t *testing.T) {
	plan := parser.Parse("fox dog")
	overlap, err := similarity.ParseConfig("basic", "overlap")
	require.NoError(t, err)

	assert.NotEqual(t, Key(plan, similarity.DefaultConfig, 10), Key(plan, overlap, 10))
	assert.NotEqual(t, Key(plan, similarity.DefaultConfig, 10), Key(plan, similarity.DefaultConfig, 20))
	assert.NotEqual(t, Key(plan, similarity.DefaultConfig, 10), Key(parser.Parse("dog fox"), similarity.DefaultConfig, 10))
	assert.Equal(t, Key(plan, similarity.DefaultConfig, 10), Key(parser.Parse("Fox  DOG"), similarity.DefaultConfig, 10))
}

func TestComputeErrorIsNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	plan := parser.Parse("fox")

	_, _, err := c.GetOrCompute(context.Background(), plan, similarity.DefaultConfig, 10, func() (*executor.SearchResult, error) {
		return nil, errors.New("index offline")
	})
	require.Error(t, err)
	assert.Empty(t, store.data)
}

func TestStoreErrorIsAMiss(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	c := New(store, time.Minute, nil)

	res, ok := c.Get(context.Background(), parser.Parse("fox"), similarity.DefaultConfig, 10)
	assert.False(t, ok)
	assert.Nil(t, res)
	_, misses := c.Stats()
	assert.Equal(t, int64(1), misses)
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	store.data["unrelated"] = []byte("x")
	c := New(store, time.Minute, nil)
	c.Set(context.Background(), parser.Parse("fox"), similarity.DefaultConfig, 10, sampleResult("fox"))
	c.Set(context.Background(), parser.Parse("dog"), similarity.DefaultConfig, 10, sampleResult("dog"))

	deleted, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Contains(t, store.data, "unrelated")

	_, ok := c.Get(context.Background(), parser.Parse("fox"), similarity.DefaultConfig, 10)
	assert.False(t, ok)
}
