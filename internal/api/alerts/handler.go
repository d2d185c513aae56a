// Package alerts provides HTTP handlers for alert queries and resolution.
package alerts

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/fleetwatch/internal/api/middleware"
	"github.com/good-yellow-bee/fleetwatch/internal/api/respond"
	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// Handler handles alert endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new alert handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// List handles alert listing with filters: resolved (true|false), kind,
// severity, bus_id, limit, offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.AlertFilter{
		BusID: q.Get("bus_id"),
	}

	if s := q.Get("resolved"); s != "" {
		resolved, err := strconv.ParseBool(s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid resolved filter")
			return
		}
		filter.Resolved = &resolved
	}

	if s := q.Get("kind"); s != "" {
		kind, ok := models.ParseAlertKind(s)
		if !ok {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "unknown alert kind")
			return
		}
		filter.Kind = kind
	}

	if s := q.Get("severity"); s != "" {
		filter.Severity = models.ParseSeverity(s)
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid offset")
			return
		}
		filter.Offset = n
	}

	list, err := h.storage.Alerts().List(r.Context(), filter)
	if err != nil {
		log.Printf("list alerts: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.OK(w, list)
}

// GetByID handles fetching a single alert.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid alert id")
		return
	}

	alert, err := h.storage.Alerts().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get alert %d: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if alert == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "alert not found")
		return
	}

	respond.OK(w, alert)
}

// Resolve marks an alert resolved by the authenticated user. Resolving an
// already resolved alert is a conflict, not a no-op: the caller is acting on
// stale state.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid alert id")
		return
	}

	ctx := r.Context()
	resolverID := middleware.GetUserID(ctx)

	if err := h.storage.Alerts().Resolve(ctx, id, resolverID, time.Now().UTC()); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "alert not found")
		case errors.Is(err, storage.ErrConflict):
			respond.Error(w, http.StatusConflict, respond.CodeConflict, "alert already resolved")
		default:
			log.Printf("resolve alert %d: %v", id, err)
			respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		}
		return
	}

	alert, err := h.storage.Alerts().GetByID(ctx, id)
	if err != nil || alert == nil {
		log.Printf("reload resolved alert %d: %v", id, err)
		respond.OK(w, map[string]any{"id": id, "resolved": true})
		return
	}

	respond.OK(w, alert)
}
