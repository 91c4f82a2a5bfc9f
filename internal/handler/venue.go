package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/venue"
)

// VenueAdvisor recommends a venue for a planned event.
type VenueAdvisor interface {
	Recommend(req venue.Request) (*venue.Recommendation, error)
}

// VenueHandler serves the venue recommendation endpoint.
type VenueHandler struct {
	advisor VenueAdvisor
	logger  zerolog.Logger
}

// NewVenueHandler creates a new VenueHandler.
func NewVenueHandler(advisor VenueAdvisor, logger zerolog.Logger) *VenueHandler {
	return &VenueHandler{advisor: advisor, logger: logger}
}

// Recommend handles POST /api/intelligence/venue
func (h *VenueHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req venue.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	rec, err := h.advisor.Recommend(req)
	if errors.Is(err, venue.ErrInvalidAttendance) {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error:  err.Error(),
			Code:   "validation_error",
			Fields: []string{"expected_attendance"},
		})
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
