package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/J-Naish/amazon-scraper/internal/models"
	"github.com/J-Naish/amazon-scraper/internal/scraper"
	"github.com/J-Naish/amazon-scraper/internal/search"
)

// FailureMessage is the fixed message of every 500 response.
const FailureMessage = "Failed to scrape Amazon sponsored products"

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
	sinkTimeout      = 5 * time.Second
)

// ResultCache is implemented by cache.ResultCache.
type ResultCache interface {
	Get(ctx context.Context, terms []string, includeRegular bool) ([]models.Product, bool, error)
	Set(ctx context.Context, terms []string, includeRegular bool, products []models.Product) error
}

// RunRecorder receives every finished run, successful or not.
type RunRecorder interface {
	Record(ctx context.Context, run *models.ScrapeRun) error
}

// RunLister is implemented by database.RunRepository.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]*models.ScrapeRun, error)
}

type Handlers struct {
	scraper   scraper.Scraper
	cache     ResultCache
	recorders []RunRecorder
	runs      RunLister
	logger    *slog.Logger
}

type Option func(*Handlers)

func WithCache(c ResultCache) Option {
	return func(h *Handlers) { h.cache = c }
}

func WithRecorder(r RunRecorder) Option {
	return func(h *Handlers) { h.recorders = append(h.recorders, r) }
}

func WithRunLister(l RunLister) Option {
	return func(h *Handlers) { h.runs = l }
}

func NewHandlers(s scraper.Scraper, logger *slog.Logger, opts ...Option) *Handlers {
	h := &Handlers{
		scraper: s,
		logger:  logger.With("component", "api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ParseRequest reads the search terms from q, falling back to search and
// then to the default terms. include_regular toggles regular listings.
func ParseRequest(query url.Values) scraper.Request {
	raw := query.Get("q")
	if raw == "" {
		raw = query.Get("search")
	}

	includeRegular, _ := strconv.ParseBool(query.Get("include_regular"))

	return scraper.Request{
		Terms:          search.ParseTerms(raw),
		IncludeRegular: includeRegular,
	}
}

// Search runs one scrape and returns the status code and the body to send.
// Panics raised while scraping are turned into the failure response.
func (h *Handlers) Search(ctx context.Context, req scraper.Request) (status int, body interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("scrape panicked", "panic", rec, "stack", string(debug.Stack()))
			status, body = http.StatusInternalServerError, newErrorResponse(fmt.Errorf("panic: %v", rec))
		}
	}()

	h.logger.Info("search requested", "terms", req.Terms, "include_regular", req.IncludeRegular)

	if h.cache != nil {
		products, hit, err := h.cache.Get(ctx, req.Terms, req.IncludeRegular)
		if err != nil {
			h.logger.Warn("cache lookup failed", "error", err)
		} else if hit {
			h.logger.Debug("cache hit", "terms", req.Terms)
			return http.StatusOK, models.NewSearchResponse(req.Terms, products, req.IncludeRegular)
		}
	}

	run, err := h.scraper.Scrape(ctx, req)
	h.record(ctx, run)
	if err != nil {
		h.logger.Error("scrape failed", "error", err, "terms", req.Terms)
		return http.StatusInternalServerError, newErrorResponse(err)
	}

	// An absent marker may be transient, so only confirmed results are cached.
	if h.cache != nil && run.MarkerFound {
		if err := h.cache.Set(ctx, req.Terms, req.IncludeRegular, run.Products); err != nil {
			h.logger.Warn("cache store failed", "error", err)
		}
	}

	return http.StatusOK, models.NewSearchResponse(req.Terms, run.Products, req.IncludeRegular)
}

func (h *Handlers) record(ctx context.Context, run *models.ScrapeRun) {
	if run == nil || len(h.recorders) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	for _, r := range h.recorders {
		if err := r.Record(ctx, run); err != nil {
			h.logger.Warn("failed to record run", "error", err, "run_id", run.ID)
		}
	}
}

// ScrapeSponsored serves GET and POST /api/v1/sponsored.
func (h *Handlers) ScrapeSponsored(w http.ResponseWriter, r *http.Request) {
	status, body := h.Search(r.Context(), ParseRequest(r.URL.Query()))
	h.respondJSON(w, status, body)
}

// ListRuns returns the most recent scrape runs.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.respondError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	h.respondJSON(w, http.StatusOK, runs)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func newErrorResponse(err error) *models.ErrorResponse {
	return &models.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Message: FailureMessage,
	}
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	if err := writeJSON(w, status, data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}
