// Package events provides HTTP handlers for inspection event submission and
// queries.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/fleetwatch/internal/api/middleware"
	"github.com/good-yellow-bee/fleetwatch/internal/api/respond"
	"github.com/good-yellow-bee/fleetwatch/internal/ingest"
	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// Handler handles inspection event endpoints.
type Handler struct {
	storage storage.Storage
	ingest  *ingest.Service
}

// NewHandler creates a new event handler.
func NewHandler(store storage.Storage, svc *ingest.Service) *Handler {
	return &Handler{storage: store, ingest: svc}
}

// SubmitRequest is the request body for submitting an inspection.
type SubmitRequest struct {
	BusID        string   `json:"bus_id"`
	State        string   `json:"state"`
	Confidence   *float64 `json:"confidence"`
	Observations string   `json:"observations"`
	Issues       []string `json:"issues"`
	ThumbURL     string   `json:"thumb_url"`
	Origin       string   `json:"origin"`
}

// SubmitResponse is returned on a successful submission. NewAlerts carries
// only the alerts created by this submission; an empty list is normal.
type SubmitResponse struct {
	Event     *models.InspectionEvent `json:"event"`
	NewAlerts []*models.Alert         `json:"new_alerts"`
}

// EventView is an event enriched with the bus plate for display.
type EventView struct {
	*models.InspectionEvent
	BusPlate string `json:"bus_plate,omitempty"`
}

// Submit handles inspection submission. The submitter is taken from the
// authenticated user, never from the body.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	sub := ingest.Submission{
		BusID:        req.BusID,
		UserID:       middleware.GetUserID(r.Context()),
		State:        models.CleanState(req.State),
		Confidence:   req.Confidence,
		Observations: req.Observations,
		Issues:       req.Issues,
		ThumbURL:     req.ThumbURL,
		Origin:       models.Origin(req.Origin),
	}

	event, newAlerts, err := h.ingest.Submit(r.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrInvalidSubmission):
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, err.Error())
		case errors.Is(err, ingest.ErrBusNotFound):
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "bus not found")
		default:
			// The durable write failed; the submitter must be able to
			// tell this apart from a missing bus.
			log.Printf("submit event: %v", err)
			respond.Error(w, http.StatusServiceUnavailable, respond.CodeStorageUnavailable, "event could not be recorded")
		}
		return
	}

	if newAlerts == nil {
		newAlerts = []*models.Alert{}
	}
	respond.Created(w, &SubmitResponse{Event: event, NewAlerts: newAlerts})
}

// List handles event listing with filters: from, to (RFC 3339), bus_id,
// plate (substring), state, user_id, limit, offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := storage.EventFilter{
		BusID:  q.Get("bus_id"),
		Plate:  q.Get("plate"),
		UserID: q.Get("user_id"),
	}

	if s := q.Get("state"); s != "" {
		state := models.CleanState(s)
		if !state.Valid() {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "unknown state")
			return
		}
		filter.State = state
	}

	if s := q.Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid from timestamp")
			return
		}
		filter.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid to timestamp")
			return
		}
		filter.To = &t
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

	ctx := r.Context()
	list, err := h.storage.Events().List(ctx, filter)
	if err != nil {
		log.Printf("list events: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.OK(w, h.enrich(ctx, list))
}

// GetByID handles fetching a single event.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid event id")
		return
	}

	ctx := r.Context()
	event, err := h.storage.Events().GetByID(ctx, id)
	if err != nil {
		log.Printf("get event %d: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if event == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "event not found")
		return
	}

	views := h.enrich(ctx, []*models.InspectionEvent{event})
	respond.OK(w, views[0])
}

// enrich attaches bus plates to events. Enrichment is display-only; a lookup
// failure leaves the plate empty rather than failing the request.
func (h *Handler) enrich(ctx context.Context, events []*models.InspectionEvent) []*EventView {
	plates := make(map[string]string)
	views := make([]*EventView, 0, len(events))

	for _, e := range events {
		plate, ok := plates[e.BusID]
		if !ok {
			if bus, err := h.storage.Buses().GetByID(ctx, e.BusID); err != nil {
				log.Printf("enrich event %d: %v", e.ID, err)
			} else if bus != nil {
				plate = bus.Plate
			}
			plates[e.BusID] = plate
		}
		views = append(views, &EventView{InspectionEvent: e, BusPlate: plate})
	}
	return views
}
