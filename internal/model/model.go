// Package model defines the core domain types for the campus events system.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the caller's role as resolved at the identity boundary.
type Role string

const (
	RoleStudent   Role = "student"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// ParseRole normalises a raw role claim. "principal" is an alias for admin.
func ParseRole(raw string) (Role, error) {
	switch r := strings.ToLower(strings.TrimSpace(raw)); r {
	case "principal", string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleStudent), string(RoleOrganizer):
		return Role(r), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Actor is an authenticated caller.
type Actor struct {
	UserID  string `json:"user_id"`
	Role    Role   `json:"role"`
	Name    string `json:"name,omitempty"`
	College string `json:"college,omitempty"`
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Owns reports whether the actor organised the event.
func (a Actor) Owns(e *Event) bool { return e != nil && e.OrganizerID == a.UserID }

// DisplayName falls back to a neutral label when the token carried no name.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "A participant"
}

// EventStatus is a node in the event lifecycle graph.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPending   EventStatus = "pending"
	EventApproved  EventStatus = "approved"
	EventRejected  EventStatus = "rejected"
	EventCancelled EventStatus = "cancelled"
	EventCompleted EventStatus = "completed"
)

// Valid reports whether s is one of the known event statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPending, EventApproved, EventRejected, EventCancelled, EventCompleted:
		return true
	}
	return false
}

// PubliclyVisible reports whether non-owners may see an event in this status.
func (s EventStatus) PubliclyVisible() bool {
	return s == EventApproved || s == EventCompleted
}

// Event represents a campus event proposed by an organizer.
type Event struct {
	ID               string      `json:"id"`
	OrganizerID      string      `json:"organizer_id"`
	College          string      `json:"college,omitempty"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Category         string      `json:"category,omitempty"`
	Tags             []string    `json:"tags"`
	Venue            string      `json:"venue"`
	BannerURL        string      `json:"banner_url,omitempty"`
	StartDate        time.Time   `json:"start_date"`
	EndDate          time.Time   `json:"end_date"`
	Capacity         int         `json:"capacity"`
	RegisteredCount  int         `json:"registered_count"`
	Status           EventStatus `json:"status"`
	IsFeatured       bool        `json:"is_featured"`
	RequiresApproval bool        `json:"requires_approval"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	return e.Capacity - e.RegisteredCount
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// Summary returns the subset of event fields embedded in registrations.
func (e *Event) Summary() *EventSummary {
	return &EventSummary{
		ID:              e.ID,
		Title:           e.Title,
		Venue:           e.Venue,
		StartDate:       e.StartDate,
		OrganizerID:     e.OrganizerID,
		Capacity:        e.Capacity,
		RegisteredCount: e.RegisteredCount,
	}
}

// EventSummary is the display projection of an event.
type EventSummary struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Venue           string    `json:"venue"`
	StartDate       time.Time `json:"start_date"`
	OrganizerID     string    `json:"organizer_id"`
	Capacity        int       `json:"capacity"`
	RegisteredCount int       `json:"registered_count"`
}

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCheckedIn RegistrationStatus = "checked_in"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

// Counted reports whether a registration in this status holds a seat.
func (s RegistrationStatus) Counted() bool {
	return s == RegistrationConfirmed || s == RegistrationCheckedIn
}

// PaymentStatus is carried on registrations but never acted upon.
type PaymentStatus string

const (
	PaymentNone     PaymentStatus = "none"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Registration represents an attendee's registration for an event.
type Registration struct {
	ID                string             `json:"id"`
	EventID           string             `json:"event_id"`
	AttendeeID        string             `json:"attendee_id"`
	AttendeeName      string             `json:"attendee_name,omitempty"`
	Status            RegistrationStatus `json:"status"`
	CheckInCode       string             `json:"check_in_code"`
	CheckedInAt       *time.Time         `json:"checked_in_at,omitempty"`
	PaymentStatus     PaymentStatus      `json:"payment_status"`
	FeedbackSubmitted bool               `json:"feedback_submitted"`
	Feedback          string             `json:"feedback,omitempty"`
	Rating            *int               `json:"rating,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`

	Event *EventSummary `json:"event,omitempty"`
}

// NotificationType classifies a notification for display.
type NotificationType string

const (
	NotifyInfo     NotificationType = "info"
	NotifyReminder NotificationType = "reminder"
	NotifyUpdate   NotificationType = "update"
	NotifyAlert    NotificationType = "alert"
)

// Notification is a per-recipient message.
type Notification struct {
	ID          string            `json:"id"`
	RecipientID string            `json:"recipient_id"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Type        NotificationType  `json:"type"`
	EventID     string            `json:"event_id,omitempty"`
	IsRead      bool              `json:"is_read"`
	Meta        map[string]string `json:"meta,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CreateEventRequest is the payload for proposing a new event.
type CreateEventRequest struct {
	Title            string     `json:"title" validate:"required"`
	Description      string     `json:"description" validate:"required"`
	Category         string     `json:"category"`
	Tags             []string   `json:"tags"`
	Venue            string     `json:"venue" validate:"required"`
	BannerURL        string     `json:"banner_url" validate:"omitempty,url"`
	StartDate        *time.Time `json:"start_date" validate:"required"`
	EndDate          *time.Time `json:"end_date" validate:"required"`
	Capacity         int        `json:"capacity" validate:"omitempty,min=1,max=100000"`
	RequiresApproval *bool      `json:"requires_approval"`
}

// UpdateEventRequest carries the fields an owner or admin may edit.
// Nil fields are left unchanged.
type UpdateEventRequest struct {
	Title            *string    `json:"title" validate:"omitempty,min=1"`
	Description      *string    `json:"description" validate:"omitempty,min=1"`
	Category         *string    `json:"category"`
	Tags             *[]string  `json:"tags"`
	Venue            *string    `json:"venue" validate:"omitempty,min=1"`
	BannerURL        *string    `json:"banner_url" validate:"omitempty,url"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	Capacity         *int       `json:"capacity" validate:"omitempty,min=1,max=100000"`
	RequiresApproval *bool      `json:"requires_approval"`
}

// FeedbackRequest is the payload for post-event feedback.
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
	Rating   int    `json:"rating" validate:"min=1,max=5"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Code   string   `json:"code,omitempty"`
	Fields []string `json:"fields,omitempty"`
}
