// Package reports provides the inspection report export and summary
// endpoints.
package reports

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/api/respond"
	"github.com/good-yellow-bee/fleetwatch/internal/report"
)

// Handler handles report export endpoints.
type Handler struct {
	exporter *report.Exporter
}

// NewHandler creates a new report handler.
func NewHandler(exporter *report.Exporter) *Handler {
	return &Handler{exporter: exporter}
}

// defaultSummaryWindow is the lookback applied when the period is not given.
const defaultSummaryWindow = 30 * 24 * time.Hour

// Summary returns aggregate inspection statistics. Query parameters: from,
// to (RFC 3339, optional; defaults to the last 30 days).
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	to := time.Now().UTC()
	if s := q.Get("to"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid to timestamp")
			return
		}
		to = parsed
	}
	from := to.Add(-defaultSummaryWindow)
	if s := q.Get("from"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid from timestamp")
			return
		}
		from = parsed
	}
	if to.Before(from) {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "to must not precede from")
		return
	}

	summary, err := h.exporter.Summarize(r.Context(), from, to)
	if err != nil {
		log.Printf("summarize report: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "failed to build summary")
		return
	}
	respond.OK(w, summary)
}

// Export streams inspection events for a date range. Query parameters:
// from, to (RFC 3339, required), bus_id (optional), format (csv|json,
// default csv).
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid or missing from timestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid or missing to timestamp")
		return
	}
	if to.Before(from) {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "to must not precede from")
		return
	}

	format := report.ExportCSV
	if s := q.Get("format"); s != "" {
		parsed, ok := report.ParseExportFormat(s)
		if !ok {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "unknown format")
			return
		}
		format = parsed
	}

	filename := fmt.Sprintf("inspections_%s_%s.%s", from.Format("20060102"), to.Format("20060102"), format)
	if format == report.ExportCSV {
		w.Header().Set("Content-Type", "text/csv")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.exporter.Export(r.Context(), w, format, q.Get("bus_id"), from, to); err != nil {
		// Headers may already be out; the truncated body is the best
		// signal left.
		log.Printf("export report: %v", err)
	}
}
