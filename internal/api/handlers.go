// Package api exposes evaluation and run inspection over HTTP for
// deployments that run the ranker as a service instead of a batch CLI.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/searchforge/catalog-ranker/internal/classify"
	"github.com/searchforge/catalog-ranker/internal/database"
	"github.com/searchforge/catalog-ranker/internal/models"
)

// Evaluator judges entries against a query. Satisfied by
// *evaluate.Evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, query, shapeOverride string, entries []models.ProductEntry) *models.QueryEvaluation
}

// RunReader serves persisted runs. Satisfied by *database.RunRepository;
// nil when persistence is disabled.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*database.Run, error)
	ListRecentRuns(ctx context.Context, siteKey string, limit int) ([]*database.Run, error)
	ListQueryResults(ctx context.Context, runID string) ([]*database.QueryRecord, error)
}

type Handlers struct {
	evaluator Evaluator
	runs      RunReader
	logger    *slog.Logger
}

func NewHandlers(evaluator Evaluator, runs RunReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		evaluator: evaluator,
		runs:      runs,
		logger:    logger,
	}
}

// Routes mounts every handler under the given router.
func (h *Handlers) Routes(r chi.Router) {
	r.Post("/evaluate", h.Evaluate)
	r.Post("/classify", h.Classify)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{runID}", h.GetRun)
	r.Get("/runs/{runID}/results", h.GetRunResults)
}

// EvaluateRequest carries a query and its already-extracted entries.
type EvaluateRequest struct {
	Query      string                `json:"query"`
	SearchType string                `json:"search_type,omitempty"`
	Entries    []models.ProductEntry `json:"scraped_results"`
}

// Evaluate runs the inference round-trip for entries supplied by the
// caller. Transport and parse failures surface through the evaluation
// status, not the HTTP status.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(req.Entries) == 0 {
		h.respondError(w, http.StatusBadRequest, "scraped_results cannot be empty")
		return
	}

	evaluation := h.evaluator.Evaluate(r.Context(), req.Query, req.SearchType, req.Entries)
	h.respondJSON(w, http.StatusOK, evaluation)
}

// ClassifyRequest names a query to classify.
type ClassifyRequest struct {
	Query string `json:"query"`
}

// ClassifyResponse carries the detected query shape.
type ClassifyResponse struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type"`
}

// Classify reports the shape a query would be evaluated under.
func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	h.respondJSON(w, http.StatusOK, ClassifyResponse{
		Query:      req.Query,
		SearchType: string(classify.Classify(req.Query)),
	})
}

// ListRuns returns the most recent runs for a site key.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.respondError(w, http.StatusNotImplemented, "run persistence is not enabled")
		return
	}

	siteKey := r.URL.Query().Get("site")
	if siteKey == "" {
		h.respondError(w, http.StatusBadRequest, "site query parameter is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.runs.ListRecentRuns(r.Context(), siteKey, limit)
	if err != nil {
		h.logger.Error("failed to list runs", "site", siteKey, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	h.respondJSON(w, http.StatusOK, runs)
}

// GetRun returns one persisted run.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.respondError(w, http.StatusNotImplemented, "run persistence is not enabled")
		return
	}

	runID := chi.URLParam(r, "runID")
	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to get run", "run_id", runID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// GetRunResults returns the per-query records of one run.
func (h *Handlers) GetRunResults(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.respondError(w, http.StatusNotImplemented, "run persistence is not enabled")
		return
	}

	runID := chi.URLParam(r, "runID")
	records, err := h.runs.ListQueryResults(r.Context(), runID)
	if err != nil {
		h.logger.Error("failed to get run results", "run_id", runID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run results")
		return
	}

	h.respondJSON(w, http.StatusOK, records)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
