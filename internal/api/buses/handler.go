// Package buses provides HTTP handlers for fleet vehicle management.
package buses

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/fleetwatch/internal/api/respond"
	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// Handler handles bus management endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new bus handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a bus.
type CreateRequest struct {
	Plate string `json:"plate"`
	Alias string `json:"alias"`
}

// UpdateRequest is the request body for updating a bus.
type UpdateRequest struct {
	Alias  *string `json:"alias"`
	Active *bool   `json:"active"`
}

// Create handles bus creation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	req.Plate = strings.ToUpper(strings.TrimSpace(req.Plate))
	if req.Plate == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "plate is required")
		return
	}

	bus := models.NewBus(req.Plate, strings.TrimSpace(req.Alias))

	if err := h.storage.Buses().Create(r.Context(), bus); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			respond.Error(w, http.StatusConflict, respond.CodeConflict, "a bus with this plate already exists")
			return
		}
		log.Printf("create bus: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.Created(w, bus)
}

// List handles bus listing. Pass ?active=true to exclude deactivated buses.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	list, err := h.storage.Buses().List(r.Context(), activeOnly)
	if err != nil {
		log.Printf("list buses: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.OK(w, list)
}

// GetByID handles fetching a single bus.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	bus, err := h.storage.Buses().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get bus %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if bus == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "bus not found")
		return
	}

	respond.OK(w, bus)
}

// Update handles bus updates (alias and active flag only; the plate is the
// fleet identity and never changes).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	bus, err := h.storage.Buses().GetByID(ctx, id)
	if err != nil {
		log.Printf("get bus %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if bus == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "bus not found")
		return
	}

	if req.Alias != nil {
		bus.Alias = strings.TrimSpace(*req.Alias)
	}
	if req.Active != nil {
		bus.Active = *req.Active
	}
	now := time.Now().UTC()
	bus.UpdatedAt = &now

	if err := h.storage.Buses().Update(ctx, bus); err != nil {
		log.Printf("update bus %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.OK(w, bus)
}

// Delete deactivates a bus. Inspection history must be retained for reports
// and alert windows, so rows are never removed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx := r.Context()
	bus, err := h.storage.Buses().GetByID(ctx, id)
	if err != nil {
		log.Printf("get bus %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if bus == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "bus not found")
		return
	}

	if err := h.storage.Buses().SetActive(ctx, id, false); err != nil {
		log.Printf("deactivate bus %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.NoContent(w)
}
