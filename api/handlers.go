/*
handlers.go - HTTP API handlers for the paystub audit engine

PURPOSE:
  Exposes the ingestion, audit, and reconciliation engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  the parser, store, reporter, and reconciler.

ENDPOINTS:
  Periods:
    GET    /api/periods                 List all stored periods
    GET    /api/periods/{date}          Get one period
    GET    /api/periods/{date}/report   Audit report for one period
    GET    /api/reports                 Audit reports for full history
    GET    /api/trends                  Headline figures per period

  Ingestion:
    POST   /api/ingest                  Parse + store one HTML document

  Shadow ledger:
    POST   /api/shadow                  Record a speculative period
    POST   /api/reconcile               Reconcile against a real payout

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed request body, bad dates
  - 404: Period not found, no prior period
  - 422: Document parsed but unusable (missing fields, no rate basis)
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/paystub-audit/parser"
	"github.com/warp/paystub-audit/paystub"
	"github.com/warp/paystub-audit/report"
	"github.com/warp/paystub-audit/shadow"
	"github.com/warp/paystub-audit/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      store.Store
	Parser     *parser.Parser
	Reporter   *report.Reporter
	Reconciler *shadow.Reconciler
}

// NewHandler wires the handler from a store and tolerances. Parser,
// reporter, and reconciler share the store's default vocabulary.
func NewHandler(st store.Store, tol paystub.Tolerances) *Handler {
	return &Handler{
		Store:      st,
		Parser:     parser.New(nil),
		Reporter:   report.New(st, tol),
		Reconciler: shadow.New(st, tol),
	}
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns all stored periods, ascending by period end.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Store.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriod returns a single period by its period-end date.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	p, err := h.Store.Get(r.Context(), date)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(p))
}

// GetReport returns the audit report for one period.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}

	rep, err := h.Reporter.Audit(r.Context(), date)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(rep))
}

// ListReports audits every stored period in chronological order.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reps, err := h.Reporter.AuditAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to audit history", err)
		return
	}

	dtos := make([]*AuditReportDTO, len(reps))
	for i, rep := range reps {
		dtos[i] = toReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTrends returns headline figures per period for charting.
func (h *Handler) GetTrends(w http.ResponseWriter, r *http.Request) {
	points, err := h.Reporter.Trends(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute trends", err)
		return
	}

	dtos := make([]TrendPointDTO, len(points))
	for i, pt := range points {
		dtos[i] = TrendPointDTO{
			PeriodEnd:        pt.PeriodEnd.String(),
			Gross:            pt.Gross.StringFixed(2),
			Net:              pt.Net.StringFixed(2),
			TotalDeductions:  pt.TotalDeductions.StringFixed(2),
			EffectiveTaxRate: pt.EffectiveTaxRate.StringFixed(2),
			Speculative:      pt.Speculative,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// INGESTION
// =============================================================================

// Ingest parses one HTML paystub and stores it, replacing any existing
// record for the same period-end date. The response includes the audit
// report so a client sees discrepancies immediately.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	date, err := paystub.ParseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_end date", err)
		return
	}

	p, err := h.Parser.Parse([]byte(req.HTML), date, req.SourceFile)
	if err != nil {
		if paystub.IsClientError(err) {
			writeError(w, http.StatusUnprocessableEntity, "Document could not be parsed", err)
		} else {
			writeError(w, http.StatusInternalServerError, "Parse failed", err)
		}
		return
	}

	ctx := r.Context()
	replaced := true
	if _, err := h.Store.Get(ctx, date); errors.Is(err, paystub.ErrPeriodNotFound) {
		replaced = false
	}

	if err := h.Store.Put(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store period", err)
		return
	}

	rep, err := h.Reporter.Audit(ctx, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to audit period", err)
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{
		PeriodEnd: date.String(),
		Replaced:  replaced,
		Report:    toReportDTO(rep),
	})
}

// =============================================================================
// SHADOW LEDGER
// =============================================================================

// RecordShadow stores a speculative period projected from entered hours.
func (h *Handler) RecordShadow(w http.ResponseWriter, r *http.Request) {
	var req ShadowRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	date, err := paystub.ParseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period_end date", err)
		return
	}
	if len(req.Hours) == 0 {
		writeError(w, http.StatusBadRequest, "No hours entered", nil)
		return
	}

	vocab := h.Parser.Vocabulary()
	hours := make(map[string]decimal.Decimal, len(req.Hours))
	for label, raw := range req.Hours {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid hours for %q", label), err)
			return
		}
		category := vocab.Resolve(paystub.KindEarning, label)
		hours[category] = hours[category].Add(d)
	}

	p, err := h.Reconciler.Record(r.Context(), date, hours)
	if err != nil {
		if errors.Is(err, paystub.ErrNoRateBasis) {
			writeError(w, http.StatusUnprocessableEntity, "No usable pay rate in history", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to record projection", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(p))
}

// Reconcile matches pending speculative periods against a real payout.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if err := decodeBody(w, r, &req); err != nil {
		return
	}

	date, err := paystub.ParseDate(req.ActualDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid actual_date", err)
		return
	}

	res, err := h.Reconciler.Reconcile(r.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, paystub.ErrPeriodNotFound):
			writeError(w, http.StatusNotFound, "Payout period not found", err)
		case errors.Is(err, paystub.ErrNoUnreconciledRecords):
			writeError(w, http.StatusUnprocessableEntity, "Nothing to reconcile", err)
		default:
			writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toReconcileResponse(res))
}

// =============================================================================
// HELPERS
// =============================================================================

// dateParam extracts and validates the {date} URL parameter. Writes the
// error response itself so handlers can bail with a plain return.
func dateParam(w http.ResponseWriter, r *http.Request) (paystub.Date, bool) {
	raw := chi.URLParam(r, "date")
	date, err := paystub.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, want YYYY-MM-DD", err)
		return paystub.Date{}, false
	}
	return date, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return err
	}
	return nil
}

// writeStoreError maps store lookup failures to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if paystub.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Period not found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Store failure", err)
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
