// Package handler exposes the query engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/Search-Engine-PageRank/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

// IndexStats reports the residency of the served index.
type IndexStats interface {
	Stats() index.Stats
	NumDocs() int
}

type Handler struct {
	executor SearchExecutor
	cache    *cache.QueryCache
	stats    IndexStats
	metrics  *metrics.Metrics
	cfg      config.SearchConfig
	logger   *slog.Logger
}

// New wires the endpoints. queryCache, stats and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, stats IndexStats, m *metrics.Metrics, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor: exec,
		cache:    queryCache,
		stats:    stats,
		metrics:  m,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
}

// Search answers GET /api/v1/search?q=&type=&ranking=&structure=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), "search")
	log := logger.FromContext(ctx)
	defer span.Log(log)

	req, err := h.parseRequest(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	qt := req.Type.String()
	span.SetAttr("type", qt)

	var result *executor.SearchResult
	cacheHit := false
	compute := func() (*executor.SearchResult, error) {
		return resilience.WithTimeout(ctx, h.cfg.Timeout, "search", func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, req)
		})
	}
	// Intersection and phrase answers are cheap set operations; only ranked
	// answers go through the cache.
	if h.cache != nil && req.Type == executor.Ranked {
		cctx, lookup := tracing.Start(ctx, "cache")
		result, cacheHit, err = h.cache.GetOrCompute(cctx, req, compute)
		lookup.SetAttr("hit", cacheHit)
		lookup.End()
		h.recordCache(cacheHit)
	} else {
		result, err = compute()
	}

	if err != nil {
		log.Error("search execution failed", "query", req.Query, "type", qt, "error", err)
		h.recordQuery(qt, "error", cacheHit, start, 0)
		h.writeError(w, err)
		return
	}

	h.recordQuery(qt, "ok", cacheHit, start, result.TotalHits)
	log.Info("search completed",
		"query", req.Query,
		"type", qt,
		"ranking", req.Ranking.String(),
		"structure", req.Structure.String(),
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseRequest(r *http.Request) (executor.Request, error) {
	params := r.URL.Query()
	req := executor.Request{Query: params.Get("q"), Limit: h.cfg.DefaultLimit}
	if req.Query == "" {
		return req, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required")
	}
	var err error
	if req.Type, err = executor.ParseQueryType(params.Get("type")); err != nil {
		return req, err
	}
	if req.Ranking, err = ranker.ParseRankingType(params.Get("ranking")); err != nil {
		return req, err
	}
	if req.Structure, err = executor.ParseStructureType(params.Get("structure")); err != nil {
		return req, err
	}
	if s := params.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return req, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", s)
		}
		req.Limit = n
	}
	if h.cfg.MaxResults > 0 && req.Limit > h.cfg.MaxResults {
		req.Limit = h.cfg.MaxResults
	}
	return req, nil
}

func (h *Handler) recordCache(hit bool) {
	if h.metrics == nil {
		return
	}
	if hit {
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
}

func (h *Handler) recordQuery(queryType, outcome string, cacheHit bool, start time.Time, hits int) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(queryType, outcome).Inc()
	h.metrics.SearchLatency.WithLabelValues(queryType, status).Observe(time.Since(start).Seconds())
	if outcome == "ok" {
		h.metrics.SearchResultsCount.Observe(float64(hits))
	}
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
		"circuit":  h.cache.CircuitState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, apperrors.New(apperrors.ErrIndexUnavailable, http.StatusServiceUnavailable, "no index loaded"))
		return
	}
	s := h.stats.Stats()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"num_docs":         h.stats.NumDocs(),
		"resident_terms":   s.ResidentTerms,
		"resident_bigrams": s.ResidentBigrams,
		"resident_paths":   s.ResidentPaths,
		"cache_hits":       s.Hits,
		"cache_misses":     s.Misses,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its HTTP status. Internal failures are not echoed
// to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Message
	case status == http.StatusInternalServerError:
		message = "search failed"
	}
	h.writeJSON(w, status, map[string]string{"error": message})
}
