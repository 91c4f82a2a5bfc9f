package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

// InboxHandler serves the caller's notifications.
type InboxHandler struct {
	svc    *service.InboxService
	logger zerolog.Logger
}

// NewInboxHandler creates a new InboxHandler.
func NewInboxHandler(svc *service.InboxService, logger zerolog.Logger) *InboxHandler {
	return &InboxHandler{svc: svc, logger: logger}
}

// List handles GET /api/notifications
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", errBadParam("limit", err).Error())
			return
		}
		limit = n
	}

	actor, _ := ActorFrom(r.Context())
	out, err := h.svc.List(r.Context(), actor, limit)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// MarkRead handles PATCH /api/notifications/{id}/read
func (h *InboxHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	n, err := h.svc.MarkRead(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MarkAllRead handles PATCH /api/notifications/read-all
func (h *InboxHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	n, err := h.svc.MarkAllRead(r.Context(), actor)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// Delete handles DELETE /api/notifications/{id}
func (h *InboxHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if err := h.svc.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
