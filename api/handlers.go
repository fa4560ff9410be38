/*
handlers.go - HTTP API handlers for the distribution waterfall

PURPOSE:
  Exposes the waterfall engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the fund package.

ENDPOINTS:
  Config:
    GET    /api/config                   Active rates and currency symbol

  LPs:
    GET    /api/lps                      List LP headers with totals
    POST   /api/lps                      Create LP
    GET    /api/lps/{id}                 LP with contributions/distributions
    POST   /api/lps/{id}/transactions    Record a contribution or distribution

  Waterfall:
    GET    /api/lps/{id}/waterfall       Compute the four tiers (?format=csv)

  Admin:
    POST   /api/admin/import             Load commitments/transactions CSVs
    POST   /api/admin/reset              Clear the registry

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Registry: LP lookup and persistence
  - Engine: Shared, immutable waterfall engine
  - Metrics: Prometheus collectors served on /metrics

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unparseable amounts/dates/flows
  - 404: Unknown commitment
  - 409: LP already exists
  - 422: Waterfall preconditions (no distributions)
  - 500: Internal errors

  Results are computed per request and never stored; the run ID only
  correlates log lines.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/i5m/waterfall/factory"
	"github.com/i5m/waterfall/fund"
	"github.com/i5m/waterfall/ingest"
	"github.com/i5m/waterfall/logger"
	"github.com/i5m/waterfall/metrics"
	"github.com/i5m/waterfall/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

type resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Registry fund.Registry
	Engine   *fund.Engine
	Settings factory.Settings
	Metrics  *metrics.Metrics
	DataDir  string // root for /api/admin/import
}

// NewHandler creates a handler with its own metrics registry.
func NewHandler(reg fund.Registry, settings factory.Settings, dataDir string) (*Handler, error) {
	engine, err := fund.NewEngine(settings.Waterfall)
	if err != nil {
		return nil, err
	}
	return &Handler{
		Registry: reg,
		Engine:   engine,
		Settings: settings,
		Metrics:  metrics.New(metrics.DefaultNamespace),
		DataDir:  dataDir,
	}, nil
}

// =============================================================================
// CONFIG
// =============================================================================

// GetConfig returns the active waterfall terms.
// GET /api/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ConfigResponse{
		ConfigDTO: toConfigDTO(h.Engine.Config(), h.Settings.CurrencySymbol),
		File:      factory.NewConfigFactory().ToJSON(h.Settings),
	})
}

// =============================================================================
// LP ENDPOINTS
// =============================================================================

// ListLPs returns every LP header with totals.
// GET /api/lps
func (h *Handler) ListLPs(w http.ResponseWriter, r *http.Request) {
	lps, err := h.Registry.ListLPs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list LPs", err)
		return
	}

	dtos := make([]LPSummaryDTO, len(lps))
	for i := range lps {
		dtos[i] = toSummaryDTO(&lps[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLP registers a new commitment.
// POST /api/lps
func (h *Handler) CreateLP(w http.ResponseWriter, r *http.Request) {
	var req CreateLPRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID <= 0 {
		writeDomainError(w, "Invalid LP", &fund.ValidationError{Field: "id", Reason: "must be a positive integer"})
		return
	}
	amount, err := fund.ParseCurrency(req.CommitmentAmount)
	if err != nil {
		writeDomainError(w, "Invalid commitment amount", err)
		return
	}

	ctx := r.Context()
	lp := fund.NewLP(fund.CommitmentID(req.ID), req.EntityName, amount)
	if err := h.Registry.CreateLP(ctx, *lp); err != nil {
		writeDomainError(w, "Failed to create LP", err)
		return
	}

	log := logger.FromContext(ctx)
	log.Info().Int64("commitment_id", req.ID).Msg("LP created")
	writeJSON(w, http.StatusCreated, toLPDTO(lp))
}

// GetLP returns an LP with its cash flows.
// GET /api/lps/{id}
func (h *Handler) GetLP(w http.ResponseWriter, r *http.Request) {
	lp, ok := h.loadLP(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toLPDTO(lp))
}

// AddTransaction records one contribution or distribution.
// POST /api/lps/{id}/transactions
func (h *Handler) AddTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := fund.ParseCommitmentID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Invalid commitment ID", err)
		return
	}

	var req CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := parseTransactionRequest(id, req)
	if err != nil {
		writeDomainError(w, "Invalid transaction", err)
		return
	}
	if err := h.Registry.AppendTransaction(r.Context(), tx); err != nil {
		writeDomainError(w, "Failed to record transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTOs([]fund.Transaction{tx})[0])
}

func parseTransactionRequest(id fund.CommitmentID, req CreateTransactionRequest) (fund.Transaction, error) {
	date, err := fund.ParseDate(req.TransactionDate)
	if err != nil {
		return fund.Transaction{}, err
	}
	amount, err := fund.ParseCurrency(req.TransactionAmount)
	if err != nil {
		return fund.Transaction{}, err
	}
	flow, err := fund.ParseFlowType(req.ContributionOrDistribution)
	if err != nil {
		return fund.Transaction{}, err
	}
	return fund.Transaction{CommitmentID: id, Date: date, Amount: amount, Flow: flow}, nil
}

// =============================================================================
// WATERFALL ENDPOINTS
// =============================================================================

// GetWaterfall runs the engine for one LP. With ?format=csv the tier table
// is returned as CSV.
// GET /api/lps/{id}/waterfall
func (h *Handler) GetWaterfall(w http.ResponseWriter, r *http.Request) {
	lp, ok := h.loadLP(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	log := logger.FromContext(ctx)

	start := time.Now()
	res, err := h.Engine.Run(lp)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		outcome := metrics.OutcomeError
		if fund.IsPrecondition(err) {
			outcome = metrics.OutcomePrecondition
		}
		h.Metrics.RecordRun(outcome, elapsed)
		writeDomainError(w, "Cannot compute waterfall", err)
		return
	}
	h.Metrics.RecordRun(metrics.OutcomeSuccess, elapsed)
	h.Metrics.RecordAllocation(res.LPTotal(), res.GPTotal())

	log.Info().
		Int64("commitment_id", int64(res.CommitmentID)).
		Str("run_id", res.RunID.String()).
		Str("lp_total", res.LPTotal().StringFixed(2)).
		Str("gp_total", res.GPTotal().StringFixed(2)).
		Msg("waterfall computed")

	symbol := h.Settings.CurrencySymbol
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="waterfall-`+res.CommitmentID.String()+`.csv"`)
		if err := report.WriteCSV(w, res, symbol); err != nil {
			log.Error().Err(err).Msg("failed to write CSV")
		}
		return
	}
	writeJSON(w, http.StatusOK, toWaterfallResponse(res, symbol))
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// ImportCSV loads commitments and transactions from DataDir.
// POST /api/admin/import
func (h *Handler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	stats, err := ingest.LoadFiles(r.Context(), ingest.Paths(h.DataDir, req.Example), h.Registry)
	if err != nil {
		var rowErr *ingest.RowError
		if errors.As(err, &rowErr) {
			writeError(w, http.StatusBadRequest, "Import failed", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Import failed", err)
		return
	}
	h.Metrics.RecordImport(stats.Commitments, stats.Transactions, stats.Skipped)

	writeJSON(w, http.StatusOK, ImportResponse{
		Commitments:  stats.Commitments,
		Transactions: stats.Transactions,
		Skipped:      stats.Skipped,
	})
}

// Reset clears all data (dev only).
// POST /api/admin/reset
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.Registry.(resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Registry cannot be reset", nil)
		return
	}
	if err := rs.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset", err)
		return
	}
	log := logger.FromContext(r.Context())
	log.Warn().Msg("registry reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadLP(w http.ResponseWriter, r *http.Request) (*fund.LP, bool) {
	id, err := fund.ParseCommitmentID(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Invalid commitment ID", err)
		return nil, false
	}
	lp, err := h.Registry.GetLP(r.Context(), id)
	if err != nil {
		writeDomainError(w, "LP not found", err)
		return nil, false
	}
	return lp, true
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps fund errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case fund.IsNotFound(err):
		return http.StatusNotFound
	case fund.IsPrecondition(err):
		return http.StatusUnprocessableEntity
	case fund.IsConflict(err):
		return http.StatusConflict
	case fund.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
