// Package server exposes the indexing and search engine over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gutensearch/gutensearch/internal/builder"
	"github.com/gutensearch/gutensearch/internal/search"
	"github.com/gutensearch/gutensearch/internal/storage"
	"github.com/gutensearch/gutensearch/internal/tokenizer"
	apperrors "github.com/gutensearch/gutensearch/pkg/errors"
	"github.com/gutensearch/gutensearch/pkg/logger"
	"github.com/gutensearch/gutensearch/pkg/metrics"
)

// ServiceName is reported by the liveness endpoint.
const ServiceName = "gutensearch"

// Handler holds the request handlers for the HTTP surface.
type Handler struct {
	builder *builder.Builder
	engine  *search.Engine
	cache   *search.Cache
	backend storage.Backend
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Handler. cache and m may be nil.
func New(b *builder.Builder, engine *search.Engine, cache *search.Cache, backend storage.Backend, m *metrics.Metrics) *Handler {
	return &Handler{
		builder: b,
		engine:  engine,
		cache:   cache,
		backend: backend,
		metrics: m,
		logger:  slog.Default().With("component", "http-handler"),
	}
}

// IndexBook handles POST /index/update/{id}.
func (h *Handler) IndexBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	bookID, err := parseBookID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "book id must be a positive integer")
		return
	}

	log.Info("indexing book", "book_id", bookID)
	if err := h.builder.IndexBook(ctx, bookID); err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("failed to index book", "book_id", bookID, "status_code", status, "error", err)
		h.countIndexError(err)
		h.writeError(w, status, fmt.Sprintf("failed to index book %d", bookID))
		return
	}
	if h.metrics != nil {
		h.metrics.BooksIndexedTotal.Inc()
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"book_id": bookID,
		"status":  "indexed",
	})
}

// Rebuild handles POST /index/rebuild.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	log.Info("starting index rebuild")
	processed, elapsed, err := h.builder.RebuildIndex(ctx)
	if err != nil {
		log.Error("index rebuild failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "index rebuild failed")
		return
	}
	if h.metrics != nil {
		h.metrics.RebuildDurationSeconds.Observe(elapsed.Seconds())
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"books_processed": processed,
		"elapsed_time":    fmt.Sprintf("%.2fs", elapsed.Seconds()),
	})
}

// IndexStatus handles GET /index/status.
func (h *Handler) IndexStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	books, words, err := h.backend.Stats(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("failed to read index stats", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "failed to read index stats")
		return
	}

	// Heuristic estimate, not measured bytes.
	indexSizeMB := float64(books*1000+words*100) / 1_000_000.0

	h.writeJSON(w, http.StatusOK, map[string]any{
		"books_indexed": books,
		"last_update":   time.Now().UTC().Format(time.RFC3339),
		"index_size_mb": indexSizeMB,
	})
}

// Search handles GET /search?q=&author=&language=&year=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	query := params.Get("q")

	// A supplied-but-empty author or language is still a filter as far as
	// the echoed filters map goes, so presence matters, not just the value.
	var filters search.Filters
	if params.Has("author") {
		author := params.Get("author")
		filters.Author = &author
	}
	if params.Has("language") {
		language := params.Get("language")
		filters.Language = &language
	}
	if yearStr := params.Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		filters.Year = &year
	}

	// An all-stopword or empty query never touches the backend, cache
	// included.
	if len(tokenizer.TokenizeQuery(query)) == 0 {
		h.observeSearch("zero_result", "bypass", start, 0)
		h.writeJSON(w, http.StatusOK, &search.Response{
			Query:   query,
			Filters: map[string]string{},
			Count:   0,
			Results: []search.BookResult{},
		})
		return
	}

	var resp *search.Response
	var err error
	cacheHit := false
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, query, filters, func() (*search.Response, error) {
			return h.engine.Search(ctx, query, filters)
		})
	} else {
		resp, err = h.engine.Search(ctx, query, filters)
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		h.observeSearch("error", "none", start, 0)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	resultType := "hit"
	if resp.Count == 0 {
		resultType = "zero_result"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
	}
	h.observeSearch(resultType, cacheStatus, start, resp.Count)

	log.Info("search completed",
		"query", query,
		"count", resp.Count,
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /status, the liveness probe.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"status":  "running",
	})
}

func (h *Handler) observeSearch(resultType, cacheStatus string, start time.Time, count int) {
	if h.metrics == nil {
		return
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(count))
}

func (h *Handler) countIndexError(err error) {
	if h.metrics == nil {
		return
	}
	kind := "internal"
	switch apperrors.HTTPStatusCode(err) {
	case http.StatusNotFound:
		kind = "not_found"
	case http.StatusServiceUnavailable:
		kind = "backend"
	case http.StatusInternalServerError:
		kind = "io"
	}
	h.metrics.IndexErrorsTotal.WithLabelValues(kind).Inc()
}

func parseBookID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
