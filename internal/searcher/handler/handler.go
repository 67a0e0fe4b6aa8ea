// Package handler exposes search, explain and cache administration over
// HTTP. Every request carries its own scoring configuration: the service
// defaults apply unless the caller overrides weighting or combination.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/internal/similarity"
	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, cfg similarity.Config, limit int) (*executor.SearchResult, error)
	Explain(ctx context.Context, plan *parser.QueryPlan, cfg similarity.Config, docID string) (similarity.Explanation, error)
}

type Options struct {
	DefaultConfig similarity.Config
	DefaultLimit  int
	MaxResults    int
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds a Handler. queryCache and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, m *metrics.Metrics, opts Options) *Handler {
	if opts.DefaultConfig.Validate() != nil {
		opts.DefaultConfig = similarity.DefaultConfig
	}
	if opts.DefaultLimit < 1 {
		opts.DefaultLimit = 10
	}
	if opts.MaxResults < opts.DefaultLimit {
		opts.MaxResults = opts.DefaultLimit
	}
	return &Handler{
		executor: exec,
		cache:    queryCache,
		opts:     opts,
		metrics:  m,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/explain", h.Explain)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, r, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := h.scoringConfig(r)
	if err != nil {
		h.writeError(w, r, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	ctx, span := tracing.StartSpan(ctx, "search", middleware.GetRequestID(ctx))
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	plan := parser.Parse(query)
	if len(plan.Terms) == 0 {
		h.observe("zero_result", "skip", start, 0)
		h.writeJSON(w, http.StatusOK, &executor.SearchResult{
			Query:     query,
			Config:    cfg.String(),
			Results:   []ranker.ScoredDoc{},
			TermStats: map[string]int{},
		})
		return
	}

	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, plan, cfg, limit, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, cfg, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, cfg, limit)
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "config", cfg.String(), "error", err)
		h.observe("error", "miss", start, 0)
		h.writeError(w, r, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	cacheStatus, resultType := "miss", "miss"
	if cacheHit {
		cacheStatus, resultType = "hit", "hit"
	}
	if len(result.Results) == 0 {
		resultType = "zero_result"
	}
	h.observe(resultType, cacheStatus, start, len(result.Results))

	log.Info("search completed",
		"query", query,
		"config", cfg.String(),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("X-Cache", cacheStatus)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	docID := r.URL.Query().Get("doc")
	if query == "" || docID == "" {
		h.writeError(w, r, http.StatusBadRequest, "query parameters 'q' and 'doc' are required")
		return
	}
	cfg, err := h.scoringConfig(r)
	if err != nil {
		h.writeError(w, r, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	exp, err := h.executor.Explain(r.Context(), parser.Parse(query), cfg, docID)
	if err != nil {
		logger.FromContext(r.Context()).Warn("explain failed", "query", query, "doc_id", docID, "error", err)
		h.writeError(w, r, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, exp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) parseLimit(r *http.Request) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return h.opts.DefaultLimit, nil
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return min(parsed, h.opts.MaxResults), nil
}

// scoringConfig overlays the request's weighting and combination parameters
// on the service default.
func (h *Handler) scoringConfig(r *http.Request) (similarity.Config, error) {
	cfg := h.opts.DefaultConfig
	if v := r.URL.Query().Get("weighting"); v != "" {
		mode, err := similarity.ParseWeightingMode(v)
		if err != nil {
			return similarity.Config{}, err
		}
		cfg.Weighting = mode
	}
	if v := r.URL.Query().Get("combination"); v != "" {
		mode, err := similarity.ParseCombinationMode(v)
		if err != nil {
			return similarity.Config{}, err
		}
		cfg.Combination = mode
	}
	return cfg, nil
}

func (h *Handler) observe(resultType, cacheStatus string, start time.Time, returned int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(returned))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := map[string]string{"error": message}
	if id := middleware.GetRequestID(r.Context()); id != "" {
		body["request_id"] = id
	}
	h.writeJSON(w, status, body)
}
