// Package web exposes the read-side JSON API over one open index: free-text
// search with constraint filtering, full package detail, and per-version
// metadata.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modvault/internal/fetch"
	"modvault/internal/repository"
	"modvault/internal/search"
)

// Default request timeout
const DefaultRequestTimeout = 30 * time.Second

// APIError represents a structured error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Handler serves the package API from an open search engine and its
// metadata resolver.
type Handler struct {
	engine   *search.Engine
	repo     *repository.Repository
	pageSize int
}

// NewHandler creates a Handler. pageSize is the fixed number of results per
// search page.
func NewHandler(engine *search.Engine, repo *repository.Repository, pageSize int) *Handler {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Handler{
		engine:   engine,
		repo:     repo,
		pageSize: pageSize,
	}
}

// RegisterRoutes registers all API routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/packages", withTimeout(h.handleSearch, DefaultRequestTimeout))
	mux.HandleFunc("GET /api/packages/{id}", withTimeout(h.handlePackage, DefaultRequestTimeout))
	mux.HandleFunc("GET /api/packages/{id}/versions/{version}", withTimeout(h.handleVersion, DefaultRequestTimeout))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	params, err := ParseSearchParams(r)
	if err != nil {
		slog.Warn("Search: invalid parameters", "error", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	qc, err := params.QueryContext()
	if err != nil {
		slog.Warn("Search: invalid constraint parameters", "error", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	pageSize := h.pageSize
	if params.PageSize > 0 {
		pageSize = params.PageSize
	}

	matches, err := h.engine.SearchFiltered(r.Context(), params.Query, params.Page, pageSize, qc)
	if err != nil {
		slog.Error("Search: query failed", "query", params.Query, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Search failed")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:    params.Query,
		Page:     params.Page,
		PageSize: pageSize,
		Results:  searchResults(matches),
	})
}

func (h *Handler) handlePackage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	pkg, err := h.repo.Package(r.Context(), id)
	if err != nil {
		h.writeResolutionError(w, "package", id, err)
		return
	}

	writeJSON(w, http.StatusOK, packageResponse(pkg))
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	version := r.PathValue("version")

	num, err := semver.StrictNewVersion(version)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid version number")
		return
	}

	meta, err := h.repo.VersionMeta(r.Context(), id, num.String())
	if err != nil {
		h.writeResolutionError(w, "version", id+"@"+version, err)
		return
	}

	writeJSON(w, http.StatusOK, versionResponse(meta.Version(num)))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// writeResolutionError maps resolver failures onto API errors.
func (h *Handler) writeResolutionError(w http.ResponseWriter, kind, id string, err error) {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Unknown "+kind)
	case errors.Is(err, fetch.ErrUpstream):
		slog.Error("Resolution failed upstream", "kind", kind, "id", id, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUpstream, "Upstream metadata source failed")
	default:
		slog.Error("Resolution failed", "kind", kind, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error")
	}
}

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}
