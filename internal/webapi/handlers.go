// Package webapi serves a read-only JSON view of batches: progress, ledger
// records and rendered reports.
package webapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gradeflow/gradeflow/internal/reporting"
)

// Version is set at build time or defaults to dev.
var Version = "0.1.0-dev"

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	registry *Registry
}

// NewHandlers creates a new Handlers with the given registry.
func NewHandlers(registry *Registry) *Handlers {
	return &Handlers{registry: registry}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandleBatches lists registered batches with their counts.
func (h *Handlers) HandleBatches(w http.ResponseWriter, _ *http.Request) {
	ids := h.registry.IDs()
	out := make([]BatchSummary, 0, len(ids))
	for _, id := range ids {
		v, err := h.registry.Get(id)
		if err != nil {
			continue
		}
		out = append(out, summarizeBatch(id, v))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleProgress returns the batch's current progress.
func (h *Handlers) HandleProgress(w http.ResponseWriter, r *http.Request) {
	v, ok := h.batch(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.Progress())
}

// HandleRecords returns every record in roster order without report bodies.
func (h *Handlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	v, ok := h.batch(w, r)
	if !ok {
		return
	}
	records := v.Records()
	out := make([]RecordSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, summarizeRecord(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRecord returns one full record, including its report.
func (h *Handlers) HandleRecord(w http.ResponseWriter, r *http.Request) {
	v, ok := h.batch(w, r)
	if !ok {
		return
	}
	rec, found := v.Record(chi.URLParam(r, "studentID"))
	if !found {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleReport renders a finished report as an HTML page.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	v, ok := h.batch(w, r)
	if !ok {
		return
	}
	rec, found := v.Record(chi.URLParam(r, "studentID"))
	if !found {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	page, err := reporting.RenderReportPage(&rec)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page)) //nolint:errcheck
}

func (h *Handlers) batch(w http.ResponseWriter, r *http.Request) (BatchView, bool) {
	id := chi.URLParam(r, "batchID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "batch id is required")
		return nil, false
	}
	v, err := h.registry.Get(id)
	if err != nil {
		if errors.Is(err, ErrBatchNotFound) {
			writeError(w, http.StatusNotFound, "batch not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return v, true
}

// RegisterRoutes registers all web API routes on the given router.
func RegisterRoutes(r chi.Router, registry *Registry) {
	h := NewHandlers(registry)
	r.Get("/api/health", h.HandleHealth)
	r.Route("/api/batches", func(r chi.Router) {
		r.Get("/", h.HandleBatches)
		r.Route("/{batchID}", func(r chi.Router) {
			r.Get("/progress", h.HandleProgress)
			r.Get("/records", h.HandleRecords)
			r.Get("/records/{studentID}", h.HandleRecord)
			r.Get("/records/{studentID}/report", h.HandleReport)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
