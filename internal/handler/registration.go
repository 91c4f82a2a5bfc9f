package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

// RegistrationHandler serves seat booking, check-in and feedback.
type RegistrationHandler struct {
	svc    *service.RegistrationService
	logger zerolog.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(svc *service.RegistrationService, logger zerolog.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, logger: logger}
}

// Register handles POST /api/events/{id}/register
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	reg, err := h.svc.Register(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// CancelRegistration handles DELETE /api/events/{id}/register
//
// Admins may pass ?attendee_id= to cancel someone else's seat.
func (h *RegistrationHandler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	reg, err := h.svc.CancelRegistration(r.Context(), actor,
		chi.URLParam(r, "id"), r.URL.Query().Get("attendee_id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// ListEventRegistrations handles GET /api/events/{id}/registrations
func (h *RegistrationHandler) ListEventRegistrations(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	regs, err := h.svc.ListEventRegistrations(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// ListMine handles GET /api/registrations/me
func (h *RegistrationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	regs, err := h.svc.ListMyRegistrations(r.Context(), actor)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

// CheckIn handles POST /api/registrations/{id}/check-in
func (h *RegistrationHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	reg, err := h.svc.CheckIn(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// SubmitFeedback handles POST /api/registrations/{id}/feedback
func (h *RegistrationHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req model.FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	actor, _ := ActorFrom(r.Context())
	reg, err := h.svc.SubmitFeedback(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}
