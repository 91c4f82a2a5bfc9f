package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

const (
	defaultCapacity  = 100
	defaultListLimit = 100
	maxListLimit     = 500
)

// EventService is the event lifecycle manager. It owns every status change
// of an event and the role rules around them.
//
// Transition graph:
//
//	pending  --approve--> approved   [admin]
//	pending  --reject---> rejected   [admin]
//	pending  --cancel---> cancelled  [owner, admin]
//	approved --cancel---> cancelled  [owner, admin]
//	any      --edit-----> pending    [owner; admin edits keep the status]
//
// Each transition is a conditional update keyed on the allowed source
// statuses. Asking for the status an event already has returns it unchanged
// and notifies nobody; any other source status is ErrInvalidState.
type EventService struct {
	base
	events        EventStore
	registrations RegistrationStore
	validate      *validator.Validate
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, registrations RegistrationStore, notifier Notifier, logger zerolog.Logger) *EventService {
	return &EventService{
		base:          newBase(notifier, logger),
		events:        events,
		registrations: registrations,
		validate:      newValidator(),
	}
}

// CreateEvent validates the request and stores a new event. Admin-created
// events start approved; everyone else's start pending.
func (s *EventService) CreateEvent(ctx context.Context, actor model.Actor, req model.CreateEventRequest) (_ *model.Event, err error) {
	ctx, span := s.start(ctx, "EventService.CreateEvent", attribute.String("actor.id", actor.UserID))
	defer func() { finish(span, err) }()

	if actor.Role != model.RoleOrganizer && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Venue = strings.TrimSpace(req.Venue)
	req.Category = strings.TrimSpace(req.Category)
	req.BannerURL = strings.TrimSpace(req.BannerURL)
	if err := check(s.validate, req); err != nil {
		return nil, err
	}
	if req.EndDate.Before(*req.StartDate) {
		return nil, invalid("end_date must not be before start_date", "end_date")
	}

	now := s.now()
	e := &model.Event{
		ID:               uuid.NewString(),
		OrganizerID:      actor.UserID,
		College:          actor.College,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Tags:             cleanTags(req.Tags),
		Venue:            req.Venue,
		BannerURL:        req.BannerURL,
		StartDate:        req.StartDate.UTC(),
		EndDate:          req.EndDate.UTC(),
		Capacity:         req.Capacity,
		Status:           model.EventPending,
		RequiresApproval: true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if e.Capacity == 0 {
		e.Capacity = defaultCapacity
	}
	if req.RequiresApproval != nil {
		e.RequiresApproval = *req.RequiresApproval
	}
	if actor.IsAdmin() {
		e.Status = model.EventApproved
	}

	if err := s.events.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info().
		Str("event_id", e.ID).
		Str("organizer_id", e.OrganizerID).
		Str("status", string(e.Status)).
		Msg("event created")
	return e, nil
}

// UpdateEvent applies an edit by the owner or an admin. An owner's edit
// sends the event back to pending for review; an admin's edit keeps the
// status. Organizers who do not own the event get ErrNotFound.
func (s *EventService) UpdateEvent(ctx context.Context, actor model.Actor, id string, req model.UpdateEventRequest) (_ *model.Event, err error) {
	ctx, span := s.start(ctx, "EventService.UpdateEvent", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	if actor.Role != model.RoleOrganizer && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	trimPtr(req.Title)
	trimPtr(req.Description)
	trimPtr(req.Venue)
	trimPtr(req.Category)
	trimPtr(req.BannerURL)
	clearBanner := req.BannerURL != nil && *req.BannerURL == ""
	if clearBanner {
		req.BannerURL = nil
	}
	if err := check(s.validate, req); err != nil {
		return nil, err
	}

	current, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ownerID := ""
	if !actor.IsAdmin() {
		if !actor.Owns(current) {
			return nil, ErrNotFound
		}
		ownerID = actor.UserID
	}

	next := *current
	applyUpdate(&next, req)
	if clearBanner {
		next.BannerURL = ""
	}
	if next.EndDate.Before(next.StartDate) {
		return nil, invalid("end_date must not be before start_date", "end_date")
	}
	// Admin edits pass no owner, so the store keeps whatever status is
	// committed at write time.
	if !actor.IsAdmin() {
		next.Status = model.EventPending
	}
	next.UpdatedAt = s.now()

	updated, err := s.events.Update(ctx, &next, ownerID)
	switch {
	case errors.Is(err, repository.ErrCapacityBelowCount):
		return nil, invalid("capacity is below current registrations", "capacity")
	case err != nil:
		return nil, err
	}

	if updated.Status != current.Status {
		metrics.EventTransitions.WithLabelValues(string(updated.Status)).Inc()
	}
	s.logger.Info().
		Str("event_id", id).
		Str("actor_id", actor.UserID).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Msg("event updated")
	return updated, nil
}

// DeleteEvent hard-deletes an event that no registration references.
func (s *EventService) DeleteEvent(ctx context.Context, actor model.Actor, id string) (err error) {
	ctx, span := s.start(ctx, "EventService.DeleteEvent", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	if actor.Role != model.RoleOrganizer && !actor.IsAdmin() {
		return ErrForbidden
	}
	ownerID := ""
	if !actor.IsAdmin() {
		ownerID = actor.UserID
	}
	if err := s.events.Delete(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info().Str("event_id", id).Str("actor_id", actor.UserID).Msg("event deleted")
	return nil
}

// ApproveEvent moves a pending event to approved.
func (s *EventService) ApproveEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.review(ctx, actor, id, model.EventApproved)
}

// RejectEvent moves a pending event to rejected.
func (s *EventService) RejectEvent(ctx context.Context, actor model.Actor, id string) (*model.Event, error) {
	return s.review(ctx, actor, id, model.EventRejected)
}

func (s *EventService) review(ctx context.Context, actor model.Actor, id string, to model.EventStatus) (_ *model.Event, err error) {
	ctx, span := s.start(ctx, "EventService.review",
		attribute.String("event.id", id), attribute.String("event.to", string(to)))
	defer func() { finish(span, err) }()

	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	e, changed, err := s.transition(ctx, id, to, model.EventPending)
	if err != nil || !changed {
		return e, err
	}

	verb := "approved"
	if to == model.EventRejected {
		verb = "rejected"
	}
	s.notify(ctx, model.Notification{
		RecipientID: e.OrganizerID,
		Title:       "Event " + verb,
		Message:     fmt.Sprintf("Your event %s was %s", e.Title, verb),
		Type:        model.NotifyUpdate,
		EventID:     e.ID,
	})
	return e, nil
}

// CancelEvent cancels a pending or approved event. Allowed for the owner
// and admins. Attendees holding a seat are told; existing registrations
// are left as they are.
func (s *EventService) CancelEvent(ctx context.Context, actor model.Actor, id string) (_ *model.Event, err error) {
	ctx, span := s.start(ctx, "EventService.CancelEvent", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	current, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(current) {
		return nil, ErrForbidden
	}

	e, changed, err := s.transition(ctx, id, model.EventCancelled, model.EventPending, model.EventApproved)
	if err != nil || !changed {
		return e, err
	}

	if !actor.Owns(e) {
		s.notify(ctx, model.Notification{
			RecipientID: e.OrganizerID,
			Title:       "Event cancelled",
			Message:     fmt.Sprintf("Your event %s was cancelled by an administrator", e.Title),
			Type:        model.NotifyAlert,
			EventID:     e.ID,
		})
	}
	attendees, err := s.registrations.ActiveAttendeeIDs(ctx, e.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("event_id", e.ID).Msg("could not list attendees for cancellation notice")
		return e, nil
	}
	for _, attendeeID := range attendees {
		s.notify(ctx, model.Notification{
			RecipientID: attendeeID,
			Title:       "Event cancelled",
			Message:     fmt.Sprintf("%s has been cancelled", e.Title),
			Type:        model.NotifyAlert,
			EventID:     e.ID,
		})
	}
	return e, nil
}

// FeatureEvent marks a pending or approved event as featured. Admin only.
func (s *EventService) FeatureEvent(ctx context.Context, actor model.Actor, id string) (_ *model.Event, err error) {
	ctx, span := s.start(ctx, "EventService.FeatureEvent", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	e, changed, err := s.events.SetFeatured(ctx, id,
		[]model.EventStatus{model.EventPending, model.EventApproved}, s.now())
	if err != nil {
		return nil, err
	}
	if !changed && !e.IsFeatured {
		return nil, fmt.Errorf("feature %s event: %w", e.Status, ErrInvalidState)
	}
	return e, nil
}

// transition applies one edge of the graph. changed is false when the event
// was already in status to.
func (s *EventService) transition(ctx context.Context, id string, to model.EventStatus, from ...model.EventStatus) (*model.Event, bool, error) {
	e, changed, err := s.events.Transition(ctx, id, to, from, s.now())
	if err != nil {
		return nil, false, err
	}
	if !changed {
		if e.Status == to {
			return e, false, nil
		}
		return nil, false, fmt.Errorf("%s event cannot become %s: %w", e.Status, to, ErrInvalidState)
	}

	metrics.EventTransitions.WithLabelValues(string(to)).Inc()
	s.logger.Info().
		Str("event_id", id).
		Str("to", string(to)).
		Msg("event status changed")
	return e, true, nil
}

// GetEvent returns the event if the caller may see it. Hidden events are
// reported as ErrNotFound.
func (s *EventService) GetEvent(ctx context.Context, actor model.Actor, id string) (_ *model.Event, err error) {
	ctx, span := s.start(ctx, "EventService.GetEvent", attribute.String("event.id", id))
	defer func() { finish(span, err) }()

	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(actor, e) {
		return nil, ErrNotFound
	}
	return e, nil
}

// visibleTo applies the read rules: admins and owners see everything,
// others see approved or completed events of their own college or of no
// college in particular.
func visibleTo(actor model.Actor, e *model.Event) bool {
	if actor.IsAdmin() || actor.Owns(e) {
		return true
	}
	if !e.Status.PubliclyVisible() {
		return false
	}
	return e.College == "" || actor.College == "" || strings.EqualFold(e.College, actor.College)
}

// EventFilter narrows ListEvents. Zero values mean no constraint.
type EventFilter struct {
	Statuses    []model.EventStatus
	Category    string
	OrganizerID string
	Featured    *bool
	Search      string
	StartFrom   *time.Time
	StartTo     *time.Time
	Sort        string
	Desc        bool
	Limit       int
}

var publicStatuses = []model.EventStatus{model.EventApproved, model.EventCompleted}

// ListEvents returns the events matching f that the caller may see.
//
// Admins see every status unless f narrows it. Organizers listing their own
// events see every status of those events. Everyone else is limited to
// approved and completed events, scoped to their college when they have one.
func (s *EventService) ListEvents(ctx context.Context, actor model.Actor, f EventFilter) (_ []model.Event, err error) {
	ctx, span := s.start(ctx, "EventService.ListEvents")
	defer func() { finish(span, err) }()

	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, invalid("unknown status "+string(st), "status")
		}
	}

	q := repository.EventQuery{
		Statuses:    f.Statuses,
		Category:    strings.TrimSpace(f.Category),
		OrganizerID: strings.TrimSpace(f.OrganizerID),
		Featured:    f.Featured,
		Search:      strings.TrimSpace(f.Search),
		StartFrom:   f.StartFrom,
		StartTo:     f.StartTo,
		Sort:        f.Sort,
		Desc:        f.Desc,
		Limit:       f.Limit,
	}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	q.Limit = min(q.Limit, maxListLimit)

	ownView := actor.UserID != "" && q.OrganizerID == actor.UserID
	if !actor.IsAdmin() && !ownView {
		if len(q.Statuses) == 0 {
			q.Statuses = publicStatuses
		} else {
			q.Statuses = intersect(q.Statuses, publicStatuses)
			if len(q.Statuses) == 0 {
				return []model.Event{}, nil
			}
		}
		q.College = actor.College
	}

	events, err := s.events.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

func intersect(a, b []model.EventStatus) []model.EventStatus {
	var out []model.EventStatus
	for _, x := range a {
		for _, y := range b {
			if x == y {
				out = append(out, x)
				break
			}
		}
	}
	return out
}

func applyUpdate(e *model.Event, req model.UpdateEventRequest) {
	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Tags != nil {
		e.Tags = cleanTags(*req.Tags)
	}
	if req.Venue != nil {
		e.Venue = *req.Venue
	}
	if req.BannerURL != nil {
		e.BannerURL = *req.BannerURL
	}
	if req.StartDate != nil {
		e.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		e.EndDate = req.EndDate.UTC()
	}
	if req.Capacity != nil {
		e.Capacity = *req.Capacity
	}
	if req.RequiresApproval != nil {
		e.RequiresApproval = *req.RequiresApproval
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
