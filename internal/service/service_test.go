package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/sqlite"
)

var (
	admin   = model.Actor{UserID: "admin-1", Role: model.RoleAdmin, Name: "Dean"}
	org     = model.Actor{UserID: "org-1", Role: model.RoleOrganizer, Name: "Asha", College: "North Campus"}
	rival   = model.Actor{UserID: "org-2", Role: model.RoleOrganizer, Name: "Bala", College: "South Campus"}
	student = model.Actor{UserID: "stu-1", Role: model.RoleStudent, Name: "Ravi", College: "north campus"}
	outside = model.Actor{UserID: "stu-2", Role: model.RoleStudent, Name: "Meera", College: "South Campus"}
)

type recorder struct {
	mu  sync.Mutex
	got []model.Notification
}

func (r *recorder) Enqueue(_ context.Context, n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) For(recipient string) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.got {
		if n.RecipientID == recipient {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) Titled(title string) []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, n := range r.got {
		if n.Title == title {
			out = append(out, n)
		}
	}
	return out
}

type harness struct {
	events *EventService
	regs   *RegistrationService
	inbox  *InboxService
	notes  *recorder
	store  *sqlite.EventRepository
	nrepo  *sqlite.NotificationRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "campus.db"), database.DefaultSQLiteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	events := sqlite.NewEventRepository(db)
	regs := sqlite.NewRegistrationRepository(db)
	notes := sqlite.NewNotificationRepository(db)
	rec := &recorder{}
	return &harness{
		events: NewEventService(events, regs, rec, zerolog.Nop()),
		regs:   NewRegistrationService(events, regs, rec, zerolog.Nop()),
		inbox:  NewInboxService(notes, zerolog.Nop()),
		notes:  rec,
		store:  events,
		nrepo:  notes,
	}
}

func eventRequest(capacity int) model.CreateEventRequest {
	start := time.Now().Add(72 * time.Hour).UTC()
	end := start.Add(2 * time.Hour)
	return model.CreateEventRequest{
		Title:       "Go Concurrency Workshop",
		Description: "Channels, mutexes and the race detector",
		Venue:       "Lecture Theatre B",
		Category:    "workshop",
		Tags:        []string{"go", " go ", "systems", ""},
		StartDate:   &start,
		EndDate:     &end,
		Capacity:    capacity,
	}
}

func (h *harness) approvedEvent(t *testing.T, capacity int) *model.Event {
	t.Helper()
	ctx := context.Background()
	e, err := h.events.CreateEvent(ctx, org, eventRequest(capacity))
	require.NoError(t, err)
	e, err = h.events.ApproveEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	return e
}

func (h *harness) registeredCount(t *testing.T, id string) int {
	t.Helper()
	e, err := h.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return e.RegisteredCount
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.events.CreateEvent(ctx, student, eventRequest(10))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.events.CreateEvent(ctx, org, model.CreateEventRequest{Title: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"title", "description", "venue", "start_date", "end_date"}, verr.Fields)

	backwards := eventRequest(10)
	backwards.EndDate, backwards.StartDate = backwards.StartDate, backwards.EndDate
	_, err = h.events.CreateEvent(ctx, org, backwards)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"end_date"}, verr.Fields)

	e, err := h.events.CreateEvent(ctx, org, eventRequest(0))
	require.NoError(t, err)
	assert.Equal(t, model.EventPending, e.Status)
	assert.Equal(t, 100, e.Capacity)
	assert.Equal(t, 0, e.RegisteredCount)
	assert.Equal(t, "North Campus", e.College)
	assert.Equal(t, []string{"go", "systems"}, e.Tags)
	assert.True(t, e.RequiresApproval)

	e, err = h.events.CreateEvent(ctx, admin, eventRequest(5))
	require.NoError(t, err)
	assert.Equal(t, model.EventApproved, e.Status)
}

func TestApproveEvent_Gating(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	e, err := h.events.CreateEvent(ctx, org, eventRequest(10))
	require.NoError(t, err)

	_, err = h.events.ApproveEvent(ctx, org, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.events.ApproveEvent(ctx, student, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.events.ApproveEvent(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	approved, err := h.events.ApproveEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventApproved, approved.Status)
	require.Len(t, h.notes.Titled("Event approved"), 1)
	assert.Equal(t, org.UserID, h.notes.Titled("Event approved")[0].RecipientID)

	again, err := h.events.ApproveEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventApproved, again.Status)
	assert.Len(t, h.notes.Titled("Event approved"), 1, "no second notice for a no-op approve")

	_, err = h.events.RejectEvent(ctx, admin, e.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRejectAndCancelEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pending, err := h.events.CreateEvent(ctx, org, eventRequest(10))
	require.NoError(t, err)
	rejected, err := h.events.RejectEvent(ctx, admin, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventRejected, rejected.Status)
	_, err = h.events.CancelEvent(ctx, org, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	e := h.approvedEvent(t, 10)
	_, err = h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)

	_, err = h.events.CancelEvent(ctx, student, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.events.CancelEvent(ctx, rival, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	cancelled, err := h.events.CancelEvent(ctx, org, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventCancelled, cancelled.Status)

	notices := h.notes.Titled("Event cancelled")
	require.Len(t, notices, 1, "owner cancels: attendees told, owner not")
	assert.Equal(t, student.UserID, notices[0].RecipientID)

	_, err = h.events.CancelEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.Len(t, h.notes.Titled("Event cancelled"), 1, "repeat cancel is a no-op")

	_, err = h.events.ApproveEvent(ctx, admin, e.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.regs.Register(ctx, outside, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAdminCancelNotifiesOrganizer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 10)

	_, err := h.events.CancelEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	notices := h.notes.For(org.UserID)
	require.NotEmpty(t, notices)
	assert.Equal(t, "Event cancelled", notices[len(notices)-1].Title)
}

func TestUpdateEvent_ReReview(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 10)

	title := "Go Concurrency Workshop II"
	edited, err := h.events.UpdateEvent(ctx, admin, e.ID, model.UpdateEventRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, model.EventApproved, edited.Status, "admin edits keep the status")
	assert.Equal(t, title, edited.Title)

	venue := "Main Auditorium"
	edited, err = h.events.UpdateEvent(ctx, org, e.ID, model.UpdateEventRequest{Venue: &venue})
	require.NoError(t, err)
	assert.Equal(t, model.EventPending, edited.Status, "owner edits go back to review")
	assert.Equal(t, venue, edited.Venue)

	_, err = h.events.UpdateEvent(ctx, rival, e.ID, model.UpdateEventRequest{Venue: &venue})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.events.UpdateEvent(ctx, student, e.ID, model.UpdateEventRequest{Venue: &venue})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.events.UpdateEvent(ctx, admin, "missing", model.UpdateEventRequest{Venue: &venue})
	assert.ErrorIs(t, err, ErrNotFound)

	empty := "  "
	_, err = h.events.UpdateEvent(ctx, org, e.ID, model.UpdateEventRequest{Title: &empty})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"title"}, verr.Fields)
}

// raceStore runs hook right before the first Update reaches the database.
type raceStore struct {
	EventStore
	hook func()
}

func (s *raceStore) Update(ctx context.Context, e *model.Event, ownerID string) (*model.Event, error) {
	if s.hook != nil {
		hook := s.hook
		s.hook = nil
		hook()
	}
	return s.EventStore.Update(ctx, e, ownerID)
}

func TestUpdateEvent_AdminEditKeepsConcurrentCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 10)

	store := &raceStore{EventStore: h.store, hook: func() {
		_, err := h.events.CancelEvent(ctx, org, e.ID)
		require.NoError(t, err)
	}}
	svc := NewEventService(store, h.regs.registrations, h.notes, zerolog.Nop())

	title := "Renamed while cancelling"
	updated, err := svc.UpdateEvent(ctx, admin, e.ID, model.UpdateEventRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, model.EventCancelled, updated.Status)
	assert.Equal(t, title, updated.Title)

	stored, err := h.store.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventCancelled, stored.Status)
}

func TestUpdateEvent_CapacityBelowRegistrations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 5)

	for i := 0; i < 3; i++ {
		_, err := h.regs.Register(ctx, model.Actor{UserID: fmt.Sprintf("s-%d", i), Role: model.RoleStudent}, e.ID)
		require.NoError(t, err)
	}

	two := 2
	_, err := h.events.UpdateEvent(ctx, admin, e.ID, model.UpdateEventRequest{Capacity: &two})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"capacity"}, verr.Fields)

	three := 3
	updated, err := h.events.UpdateEvent(ctx, admin, e.ID, model.UpdateEventRequest{Capacity: &three})
	require.NoError(t, err)
	assert.True(t, updated.IsFull())
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	e := h.approvedEvent(t, 5)
	_, err := h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, h.events.DeleteEvent(ctx, org, e.ID), ErrHasRegistrations)

	empty := h.approvedEvent(t, 5)
	assert.ErrorIs(t, h.events.DeleteEvent(ctx, student, empty.ID), ErrForbidden)
	assert.ErrorIs(t, h.events.DeleteEvent(ctx, rival, empty.ID), ErrNotFound)
	require.NoError(t, h.events.DeleteEvent(ctx, org, empty.ID))
	assert.ErrorIs(t, h.events.DeleteEvent(ctx, admin, empty.ID), ErrNotFound)
}

func TestFeatureEvent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 5)

	_, err := h.events.FeatureEvent(ctx, org, e.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	featured, err := h.events.FeatureEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.True(t, featured.IsFeatured)

	featured, err = h.events.FeatureEvent(ctx, admin, e.ID)
	require.NoError(t, err)
	assert.True(t, featured.IsFeatured)

	pending, err := h.events.CreateEvent(ctx, org, eventRequest(5))
	require.NoError(t, err)
	_, err = h.events.RejectEvent(ctx, admin, pending.ID)
	require.NoError(t, err)
	_, err = h.events.FeatureEvent(ctx, admin, pending.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVisibility(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	approved := h.approvedEvent(t, 10)
	pending, err := h.events.CreateEvent(ctx, org, eventRequest(10))
	require.NoError(t, err)
	southern, err := h.events.CreateEvent(ctx, rival, eventRequest(10))
	require.NoError(t, err)
	_, err = h.events.ApproveEvent(ctx, admin, southern.ID)
	require.NoError(t, err)
	campusWide, err := h.events.CreateEvent(ctx, admin, eventRequest(10))
	require.NoError(t, err)

	ids := func(events []model.Event) []string {
		out := make([]string, 0, len(events))
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}

	list, err := h.events.ListEvents(ctx, student, EventFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{approved.ID, campusWide.ID}, ids(list))

	list, err = h.events.ListEvents(ctx, outside, EventFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{southern.ID, campusWide.ID}, ids(list))

	list, err = h.events.ListEvents(ctx, student, EventFilter{Statuses: []model.EventStatus{model.EventPending}})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = h.events.ListEvents(ctx, org, EventFilter{OrganizerID: org.UserID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{approved.ID, pending.ID}, ids(list))

	list, err = h.events.ListEvents(ctx, admin, EventFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 4)

	list, err = h.events.ListEvents(ctx, admin, EventFilter{Statuses: []model.EventStatus{model.EventPending}})
	require.NoError(t, err)
	assert.Equal(t, []string{pending.ID}, ids(list))

	_, err = h.events.ListEvents(ctx, admin, EventFilter{Statuses: []model.EventStatus{"bogus"}})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = h.events.GetEvent(ctx, student, pending.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.events.GetEvent(ctx, student, southern.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := h.events.GetEvent(ctx, org, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)
	_, err = h.events.GetEvent(ctx, model.Actor{}, approved.ID)
	assert.NoError(t, err)
}

func TestRegister_Notifications(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 10)

	reg, err := h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationConfirmed, reg.Status)
	assert.Len(t, reg.CheckInCode, 8)
	assert.Equal(t, "Ravi", reg.AttendeeName)
	require.NotNil(t, reg.Event)
	assert.Equal(t, e.Title, reg.Event.Title)
	assert.Equal(t, 1, reg.Event.RegisteredCount)

	mine := h.notes.For(student.UserID)
	require.Len(t, mine, 1)
	assert.Equal(t, "Registration confirmed", mine[0].Title)
	assert.Equal(t, model.NotifyInfo, mine[0].Type)
	assert.Equal(t, e.ID, mine[0].EventID)

	theirs := h.notes.Titled("New registration")
	require.Len(t, theirs, 1)
	assert.Equal(t, org.UserID, theirs[0].RecipientID)
	assert.Equal(t, model.NotifyUpdate, theirs[0].Type)
	assert.Contains(t, theirs[0].Message, "Ravi")
}

func TestRegister_Uniqueness(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 10)

	_, err := h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)
	_, err = h.regs.Register(ctx, student, e.ID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	list, err := h.regs.ListEventRegistrations(ctx, org, e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, h.registeredCount(t, e.ID))
	assert.Len(t, h.notes.For(student.UserID), 1)

	_, err = h.regs.CancelRegistration(ctx, student, e.ID, "")
	require.NoError(t, err)
	_, err = h.regs.Register(ctx, student, e.ID)
	assert.ErrorIs(t, err, ErrAlreadyRegistered, "a cancelled registration still holds the pair")
}

func TestRegister_Gating(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	pending, err := h.events.CreateEvent(ctx, org, eventRequest(10))
	require.NoError(t, err)

	_, err = h.regs.Register(ctx, student, pending.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.regs.Register(ctx, student, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.regs.Register(ctx, org, pending.ID)
	assert.NoError(t, err, "owners may register for their own pending event")
	_, err = h.regs.Register(ctx, admin, pending.ID)
	assert.NoError(t, err, "admins may register for any event")
	assert.Equal(t, 2, h.registeredCount(t, pending.ID))
}

func TestRegister_LastSeatUnderContention(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 1)

	var ok, full atomic.Int32
	var g errgroup.Group
	for _, id := range []string{"stu-a", "stu-b"} {
		actor := model.Actor{UserID: id, Role: model.RoleStudent}
		g.Go(func() error {
			_, err := h.regs.Register(ctx, actor, e.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, ErrCapacityExceeded):
				full.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 1, full.Load())
	assert.Equal(t, 1, h.registeredCount(t, e.ID))
}

func TestRegister_CapacityInvariantUnderLoad(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 7)

	var ok, full atomic.Int32
	var g errgroup.Group
	for i := 0; i < 30; i++ {
		actor := model.Actor{UserID: fmt.Sprintf("load-%d", i), Role: model.RoleStudent}
		g.Go(func() error {
			_, err := h.regs.Register(ctx, actor, e.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrCapacityExceeded):
				full.Add(1)
			default:
				return fmt.Errorf("register %s: %w", actor.UserID, err)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 7, ok.Load())
	assert.EqualValues(t, 23, full.Load())

	list, err := h.regs.ListEventRegistrations(ctx, admin, e.ID)
	require.NoError(t, err)
	active := 0
	for _, r := range list {
		if r.Status.Counted() {
			active++
		}
	}
	assert.Equal(t, 7, active)
	assert.Equal(t, 7, h.registeredCount(t, e.ID))
	assert.Len(t, h.notes.Titled("Registration confirmed"), 7)
}

func TestCancelRegistration_Idempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 3)

	_, err := h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)
	require.Equal(t, 1, h.registeredCount(t, e.ID))

	first, err := h.regs.CancelRegistration(ctx, student, e.ID, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCancelled, first.Status)
	assert.Equal(t, 0, h.registeredCount(t, e.ID))

	second, err := h.regs.CancelRegistration(ctx, student, e.ID, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCancelled, second.Status)
	assert.Equal(t, 0, h.registeredCount(t, e.ID))
	assert.Len(t, h.notes.Titled("Registration cancelled"), 1)

	_, err = h.regs.CancelRegistration(ctx, outside, e.ID, outside.UserID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.regs.CancelRegistration(ctx, outside, e.ID, student.UserID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRegisterCheckInCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 3)

	reg, err := h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)

	checked, err := h.regs.CheckIn(ctx, org, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCheckedIn, checked.Status)
	require.NotNil(t, checked.CheckedInAt)
	assert.Equal(t, 1, h.registeredCount(t, e.ID), "check-in leaves the count alone")

	cancelled, err := h.regs.CancelRegistration(ctx, student, e.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCancelled, cancelled.Status)
	assert.Equal(t, 0, h.registeredCount(t, e.ID))
}

func TestCheckIn_Rules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 3)

	reg, err := h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)

	_, err = h.regs.CheckIn(ctx, student, reg.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.regs.CheckIn(ctx, rival, reg.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.regs.CheckIn(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.regs.CheckIn(ctx, admin, reg.ID)
	require.NoError(t, err)
	again, err := h.regs.CheckIn(ctx, org, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationCheckedIn, again.Status)
	assert.Len(t, h.notes.Titled("Check-in successful"), 1)

	other, err := h.regs.Register(ctx, outside, e.ID)
	require.NoError(t, err)
	_, err = h.regs.CancelRegistration(ctx, outside, e.ID, "")
	require.NoError(t, err)
	_, err = h.regs.CheckIn(ctx, org, other.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitFeedback(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	e := h.approvedEvent(t, 3)

	reg, err := h.regs.Register(ctx, student, e.ID)
	require.NoError(t, err)

	got, err := h.regs.SubmitFeedback(ctx, student, reg.ID, model.FeedbackRequest{Feedback: " great ", Rating: 4})
	require.NoError(t, err, "confirmed registrations may leave feedback before check-in")
	assert.True(t, got.FeedbackSubmitted)
	assert.Equal(t, "great", got.Feedback)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)

	notices := h.notes.Titled("New feedback received")
	require.Len(t, notices, 1)
	assert.Equal(t, org.UserID, notices[0].RecipientID)
	assert.Equal(t, "4", notices[0].Meta["rating"])

	got, err = h.regs.SubmitFeedback(ctx, student, reg.ID, model.FeedbackRequest{Feedback: "even better", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, *got.Rating)
	assert.Equal(t, "even better", got.Feedback)

	_, err = h.regs.SubmitFeedback(ctx, outside, reg.ID, model.FeedbackRequest{Rating: 5})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.regs.SubmitFeedback(ctx, student, "missing", model.FeedbackRequest{Rating: 5})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.regs.SubmitFeedback(ctx, student, reg.ID, model.FeedbackRequest{Rating: 6})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"rating"}, verr.Fields)

	_, err = h.regs.CancelRegistration(ctx, student, e.ID, "")
	require.NoError(t, err)
	_, err = h.regs.SubmitFeedback(ctx, student, reg.ID, model.FeedbackRequest{Rating: 3})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestListRegistrations(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	first := h.approvedEvent(t, 3)
	second := h.approvedEvent(t, 3)

	_, err := h.regs.Register(ctx, student, first.ID)
	require.NoError(t, err)
	_, err = h.regs.Register(ctx, student, second.ID)
	require.NoError(t, err)

	mine, err := h.regs.ListMyRegistrations(ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		require.NotNil(t, r.Event)
	}

	none, err := h.regs.ListMyRegistrations(ctx, outside)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = h.regs.ListEventRegistrations(ctx, student, first.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.regs.ListEventRegistrations(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, h.nrepo.Create(ctx, &model.Notification{
			ID:          fmt.Sprintf("n-%d", i),
			RecipientID: student.UserID,
			Title:       "Registration confirmed",
			Type:        model.NotifyInfo,
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := h.inbox.List(ctx, student, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "n-2", list[0].ID)

	list, err = h.inbox.List(ctx, student, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	empty, err := h.inbox.List(ctx, outside, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = h.inbox.MarkRead(ctx, outside, "n-0")
	assert.ErrorIs(t, err, ErrNotFound)
	read, err := h.inbox.MarkRead(ctx, student, "n-0")
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	n, err := h.inbox.MarkAllRead(ctx, student)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	assert.ErrorIs(t, h.inbox.Delete(ctx, outside, "n-1"), ErrNotFound)
	require.NoError(t, h.inbox.Delete(ctx, student, "n-1"))

	_, err = h.inbox.List(ctx, model.Actor{}, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}
