// Package repository holds what the storage backends share: sentinel errors
// and the event list query. The backends live in the postgres and sqlite
// subpackages and expose identical method sets.
package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when the conditional seat increment matched no row.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the (event, attendee) unique constraint trips.
var ErrAlreadyRegistered = errors.New("attendee already registered for this event")

// ErrEventClosed is returned when an event stopped accepting registrations
// between the caller's visibility check and the seat increment.
var ErrEventClosed = errors.New("event is not open for registration")

// ErrHasRegistrations is returned when deleting an event that registrations reference.
var ErrHasRegistrations = errors.New("event has registrations")

// ErrCapacityBelowCount is returned when a capacity edit would drop below
// the number of seats already taken.
var ErrCapacityBelowCount = errors.New("capacity is below current registrations")

// EventQuery narrows an event listing. Zero values mean "no constraint".
type EventQuery struct {
	Statuses    []model.EventStatus
	Category    string
	OrganizerID string
	Featured    *bool
	Search      string
	StartFrom   *time.Time
	StartTo     *time.Time
	// College keeps campus-wide events (empty college) plus events whose
	// college matches case-insensitively and exactly.
	College string
	Sort    string
	Desc    bool
	Limit   int
}

// SortColumn maps the requested sort key onto a whitelisted column.
func (q EventQuery) SortColumn() string {
	switch q.Sort {
	case "created_at":
		return "created_at"
	case "title":
		return "title"
	default:
		return "start_date"
	}
}

// SortDirection returns the SQL keyword for the requested order.
func (q EventQuery) SortDirection() string {
	if q.Desc {
		return "DESC"
	}
	return "ASC"
}

// LikePattern builds a case-insensitive substring pattern with LIKE
// wildcards in the search text escaped by a backslash.
func LikePattern(search string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(search)) + "%"
}

// StatusStrings converts statuses to plain strings for driver arguments.
func StatusStrings(statuses []model.EventStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
