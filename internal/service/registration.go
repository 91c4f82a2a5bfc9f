package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// RegistrationService is the registration engine. Seat accounting happens
// in the store inside one transaction; this layer decides who may act and
// which notifications a committed change produces.
type RegistrationService struct {
	base
	events        EventStore
	registrations RegistrationStore
	validate      *validator.Validate
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(events EventStore, registrations RegistrationStore, notifier Notifier, logger zerolog.Logger) *RegistrationService {
	return &RegistrationService{
		base:          newBase(notifier, logger),
		events:        events,
		registrations: registrations,
		validate:      newValidator(),
	}
}

// Register books a seat for the caller. The event must be approved unless
// the caller is an admin or the event's organizer.
func (s *RegistrationService) Register(ctx context.Context, actor model.Actor, eventID string) (_ *model.Registration, err error) {
	ctx, span := s.start(ctx, "RegistrationService.Register",
		attribute.String("event.id", eventID), attribute.String("attendee.id", actor.UserID))
	defer func() {
		metrics.RegistrationAttempts.WithLabelValues(outcome(err)).Inc()
		finish(span, err)
	}()

	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	bypass := actor.IsAdmin() || actor.Owns(event)
	if !bypass && event.Status != model.EventApproved {
		return nil, ErrForbidden
	}

	code, err := newCheckInCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	reg := &model.Registration{
		ID:            uuid.NewString(),
		EventID:       event.ID,
		AttendeeID:    actor.UserID,
		AttendeeName:  actor.Name,
		Status:        model.RegistrationConfirmed,
		CheckInCode:   code,
		PaymentStatus: model.PaymentNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	updated, err := s.registrations.Book(ctx, reg, !bypass)
	if err != nil {
		if errors.Is(err, repository.ErrEventClosed) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	reg.Event = updated.Summary()

	s.logger.Info().
		Str("event_id", event.ID).
		Str("attendee_id", actor.UserID).
		Int("registered", updated.RegisteredCount).
		Int("capacity", updated.Capacity).
		Msg("registration confirmed")

	s.notify(ctx, model.Notification{
		RecipientID: actor.UserID,
		Title:       "Registration confirmed",
		Message:     fmt.Sprintf("You are registered for %s", updated.Title),
		Type:        model.NotifyInfo,
		EventID:     updated.ID,
		Meta:        map[string]string{"registration_id": reg.ID},
	})
	s.notify(ctx, model.Notification{
		RecipientID: updated.OrganizerID,
		Title:       "New registration",
		Message:     fmt.Sprintf("%s registered for %s", actor.DisplayName(), updated.Title),
		Type:        model.NotifyUpdate,
		EventID:     updated.ID,
		Meta:        map[string]string{"registration_id": reg.ID, "attendee_id": actor.UserID},
	})
	return reg, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCapacityExceeded):
		return "full"
	case errors.Is(err, ErrAlreadyRegistered):
		return "duplicate"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// CancelRegistration cancels the attendee's registration for the event.
// Attendees cancel their own; admins may cancel anyone's. Cancelling twice
// returns the cancelled registration again without a second notice.
func (s *RegistrationService) CancelRegistration(ctx context.Context, actor model.Actor, eventID, attendeeID string) (_ *model.Registration, err error) {
	ctx, span := s.start(ctx, "RegistrationService.CancelRegistration",
		attribute.String("event.id", eventID), attribute.String("attendee.id", attendeeID))
	defer func() { finish(span, err) }()

	if attendeeID == "" {
		attendeeID = actor.UserID
	}
	if attendeeID == "" || (attendeeID != actor.UserID && !actor.IsAdmin()) {
		return nil, ErrForbidden
	}

	reg, changed, err := s.registrations.Cancel(ctx, eventID, attendeeID, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return reg, nil
	}

	metrics.RegistrationCancellations.Inc()
	s.logger.Info().
		Str("event_id", eventID).
		Str("attendee_id", attendeeID).
		Str("actor_id", actor.UserID).
		Msg("registration cancelled")
	s.notify(ctx, model.Notification{
		RecipientID: attendeeID,
		Title:       "Registration cancelled",
		Message:     "Your registration has been cancelled",
		Type:        model.NotifyAlert,
		EventID:     eventID,
		Meta:        map[string]string{"registration_id": reg.ID},
	})
	return reg, nil
}

// CheckIn marks a confirmed registration as attended. Only the event's
// organizer and admins may check attendees in. Checking in twice returns
// the registration unchanged; pending or cancelled registrations cannot be
// checked in.
func (s *RegistrationService) CheckIn(ctx context.Context, actor model.Actor, registrationID string) (_ *model.Registration, err error) {
	ctx, span := s.start(ctx, "RegistrationService.CheckIn", attribute.String("registration.id", registrationID))
	defer func() { finish(span, err) }()

	if actor.Role != model.RoleOrganizer && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(event) {
		return nil, ErrForbidden
	}

	reg, changed, err := s.registrations.CheckIn(ctx, registrationID, s.now())
	if err != nil {
		return nil, err
	}
	reg.Event = event.Summary()
	if !changed {
		if reg.Status == model.RegistrationCheckedIn {
			return reg, nil
		}
		return nil, fmt.Errorf("check in %s registration: %w", reg.Status, ErrInvalidState)
	}

	metrics.CheckIns.Inc()
	s.logger.Info().
		Str("registration_id", reg.ID).
		Str("event_id", event.ID).
		Str("attendee_id", reg.AttendeeID).
		Msg("attendee checked in")
	s.notify(ctx, model.Notification{
		RecipientID: reg.AttendeeID,
		Title:       "Check-in successful",
		Message:     fmt.Sprintf("You have checked in for %s", event.Title),
		Type:        model.NotifyInfo,
		EventID:     event.ID,
		Meta:        map[string]string{"registration_id": reg.ID},
	})
	return reg, nil
}

// SubmitFeedback stores the attendee's feedback and rating. Resubmitting
// overwrites the previous feedback.
func (s *RegistrationService) SubmitFeedback(ctx context.Context, actor model.Actor, registrationID string, req model.FeedbackRequest) (_ *model.Registration, err error) {
	ctx, span := s.start(ctx, "RegistrationService.SubmitFeedback", attribute.String("registration.id", registrationID))
	defer func() { finish(span, err) }()

	req.Feedback = strings.TrimSpace(req.Feedback)
	if err := check(s.validate, req); err != nil {
		return nil, err
	}

	reg, err := s.registrations.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.AttendeeID != actor.UserID {
		return nil, ErrForbidden
	}
	if !reg.Status.Counted() {
		return nil, fmt.Errorf("feedback on %s registration: %w", reg.Status, ErrInvalidState)
	}

	reg, changed, err := s.registrations.SaveFeedback(ctx, registrationID, req.Feedback, req.Rating, s.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("feedback on %s registration: %w", reg.Status, ErrInvalidState)
	}

	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_id", reg.EventID).Msg("feedback saved but event lookup failed")
		return reg, nil
	}
	reg.Event = event.Summary()
	s.notify(ctx, model.Notification{
		RecipientID: event.OrganizerID,
		Title:       "New feedback received",
		Message:     fmt.Sprintf("%s left feedback on %s", actor.DisplayName(), event.Title),
		Type:        model.NotifyUpdate,
		EventID:     event.ID,
		Meta: map[string]string{
			"registration_id": reg.ID,
			"rating":          strconv.Itoa(req.Rating),
		},
	})
	return reg, nil
}

// ListMyRegistrations returns the caller's registrations, newest first,
// each with its event summary.
func (s *RegistrationService) ListMyRegistrations(ctx context.Context, actor model.Actor) (_ []model.Registration, err error) {
	ctx, span := s.start(ctx, "RegistrationService.ListMyRegistrations")
	defer func() { finish(span, err) }()

	if actor.UserID == "" {
		return nil, ErrForbidden
	}
	regs, err := s.registrations.ListByAttendee(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	return regs, nil
}

// ListEventRegistrations returns an event's registrations to its organizer
// or an admin.
func (s *RegistrationService) ListEventRegistrations(ctx context.Context, actor model.Actor, eventID string) (_ []model.Registration, err error) {
	ctx, span := s.start(ctx, "RegistrationService.ListEventRegistrations", attribute.String("event.id", eventID))
	defer func() { finish(span, err) }()

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(event) {
		return nil, ErrForbidden
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	return regs, nil
}
