package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

// EventHandler holds dependencies for event-related HTTP handlers.
type EventHandler struct {
	svc    *service.EventService
	logger zerolog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc *service.EventService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{svc: svc, logger: logger}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	actor, _ := ActorFrom(r.Context())
	event, err := h.svc.CreateEvent(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /api/events
//
// Query parameters: status (comma separated), category, organizer,
// featured, search, start_from, start_to (RFC 3339), sort, order, limit.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f, err := parseEventFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	actor, _ := ActorFrom(r.Context())
	events, err := h.svc.ListEvents(r.Context(), actor, f)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	event, err := h.svc.GetEvent(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	actor, _ := ActorFrom(r.Context())
	event, err := h.svc.UpdateEvent(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if err := h.svc.DeleteEvent(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveEvent handles POST /api/events/{id}/approve
func (h *EventHandler) ApproveEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ApproveEvent)
}

// RejectEvent handles POST /api/events/{id}/reject
func (h *EventHandler) RejectEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.RejectEvent)
}

// CancelEvent handles POST /api/events/{id}/cancel
func (h *EventHandler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CancelEvent)
}

// FeatureEvent handles POST /api/events/{id}/feature
func (h *EventHandler) FeatureEvent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.FeatureEvent)
}

type eventAction func(ctx context.Context, actor model.Actor, id string) (*model.Event, error)

func (h *EventHandler) transition(w http.ResponseWriter, r *http.Request, action eventAction) {
	actor, _ := ActorFrom(r.Context())
	event, err := action(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func parseEventFilter(r *http.Request) (service.EventFilter, error) {
	q := r.URL.Query()
	f := service.EventFilter{
		Category:    q.Get("category"),
		OrganizerID: q.Get("organizer"),
		Search:      q.Get("search"),
		Sort:        q.Get("sort"),
		Desc:        strings.EqualFold(q.Get("order"), "desc"),
	}

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, model.EventStatus(strings.ToLower(s)))
			}
		}
	}
	if raw := q.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return f, errBadParam("featured", err)
		}
		f.Featured = &featured
	}
	if raw := q.Get("start_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errBadParam("start_from", err)
		}
		f.StartFrom = &t
	}
	if raw := q.Get("start_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errBadParam("start_to", err)
		}
		f.StartTo = &t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errBadParam("limit", err)
		}
		f.Limit = n
	}
	return f, nil
}
