package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// EventStore is satisfied by the postgres and sqlite event repositories.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, q repository.EventQuery) ([]model.Event, error)
	Update(ctx context.Context, e *model.Event, ownerID string) (*model.Event, error)
	Transition(ctx context.Context, id string, to model.EventStatus, from []model.EventStatus, at time.Time) (*model.Event, bool, error)
	SetFeatured(ctx context.Context, id string, from []model.EventStatus, at time.Time) (*model.Event, bool, error)
	Delete(ctx context.Context, id, ownerID string) error
}

// RegistrationStore is satisfied by the postgres and sqlite registration repositories.
type RegistrationStore interface {
	Book(ctx context.Context, reg *model.Registration, requireApproved bool) (*model.Event, error)
	Cancel(ctx context.Context, eventID, attendeeID string, at time.Time) (*model.Registration, bool, error)
	CheckIn(ctx context.Context, id string, at time.Time) (*model.Registration, bool, error)
	SaveFeedback(ctx context.Context, id, feedback string, rating int, at time.Time) (*model.Registration, bool, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	ListByAttendee(ctx context.Context, attendeeID string) ([]model.Registration, error)
	ActiveAttendeeIDs(ctx context.Context, eventID string) ([]string, error)
}

// InboxStore is satisfied by the postgres and sqlite notification repositories.
type InboxStore interface {
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	Delete(ctx context.Context, id, recipientID string) error
}

// Notifier accepts notifications for best-effort delivery. Enqueue must not
// block on delivery and has no error to report.
type Notifier interface {
	Enqueue(ctx context.Context, n model.Notification)
}
