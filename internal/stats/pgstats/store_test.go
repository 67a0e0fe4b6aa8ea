package pgstats

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/resilience"
)

var _ similarity.StatsProvider = (*Store)(nil)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *Store {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	client, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "vsmsearch_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "vsmsearch"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping pgstats test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	s := New(client, resilience.RetryConfig{MaxAttempts: 1}, resilience.CircuitBreakerConfig{})
	require.NoError(t, s.Migrate(ctx))
	_, err = client.DB.ExecContext(ctx, `TRUNCATE vsm_postings, vsm_documents`)
	require.NoError(t, err)
	return s
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func TestStoreStatistics(t *testing.T) {
	s := skipIfNoPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.IndexDocument(ctx, "d1", map[string]int{"cat": 3, "hat": 1}, 4))
	require.NoError(t, s.IndexDocument(ctx, "d2", map[string]int{"dog": 2}, 2))

	n, err := s.CorpusSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	df, err := s.DocumentFrequency(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, 1, df)

	tf, err := s.TermFrequency(ctx, "cat", "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, tf)

	tf, err = s.TermFrequency(ctx, "cat", "d2")
	require.NoError(t, err)
	assert.Equal(t, 0, tf)

	_, err = s.TermFrequency(ctx, "cat", "ghost")
	assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound))

	length, err := s.FieldLength(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 4.0, length)

	_, err = s.FieldLength(ctx, "ghost")
	assert.True(t, errors.Is(err, apperrors.ErrDocumentNotFound))
}

func TestStoreReplacesDocument(t *testing.T) {
	s := skipIfNoPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.IndexText(ctx, "d1", "cats", "cats and hats"))
	require.NoError(t, s.IndexText(ctx, "d1", "", "dogs"))

	postings, err := s.Search(ctx, "cat")
	require.NoError(t, err)
	assert.Empty(t, postings)

	postings, err = s.Search(ctx, "dog")
	require.NoError(t, err)
	require.Len(t, postings, 1)
	assert.Equal(t, "d1", postings[0].DocID)

	length, err := s.FieldLength(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, length)
}

func TestStoreScoresLikeGoldenExample(t *testing.T) {
	s := skipIfNoPostgres(t)
	ctx := context.Background()

	require.NoError(t, s.IndexDocument(ctx, "doc-1", map[string]int{"cat": 3}, 1))
	require.NoError(t, s.IndexDocument(ctx, "doc-2", map[string]int{"cat": 1}, 1))
	for i := 3; i <= 10; i++ {
		require.NoError(t, s.IndexDocument(ctx, "doc-"+strconv.Itoa(i), map[string]int{"other": 1}, 1))
	}

	res, err := similarity.Score(ctx, similarity.DefaultConfig, []string{"cat"}, "doc-1", s)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, res.Score, 1e-12)
}

func TestIndexTextRejectsDocumentWithoutTerms(t *testing.T) {
	s := New(nil, resilience.RetryConfig{MaxAttempts: 1}, resilience.CircuitBreakerConfig{})
	err := s.IndexText(context.Background(), "d1", "The", "and it is")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}
