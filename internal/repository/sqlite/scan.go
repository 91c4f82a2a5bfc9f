// Package sqlite implements the event, registration and notification
// repositories over database/sql with the modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

// isConstraint reports whether err is an SQLite constraint violation whose
// message mentions kind ("UNIQUE", "FOREIGN KEY", "CHECK").
func isConstraint(err error, kind string) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), kind)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

var eventColumnList = []string{
	"id", "organizer_id", "college", "title", "description", "category", "tags",
	"venue", "banner_url", "start_date", "end_date", "capacity", "registered_count",
	"status", "is_featured", "requires_approval", "created_at", "updated_at",
}

var eventColumns = strings.Join(eventColumnList, ", ")

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var tags, start, end, cre, upd string
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.College, &e.Title, &e.Description, &e.Category, &tags,
		&e.Venue, &e.BannerURL, &start, &end, &e.Capacity, &e.RegisteredCount,
		&e.Status, &e.IsFeatured, &e.RequiresApproval, &cre, &upd,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	for _, f := range []struct {
		dst *time.Time
		src string
	}{{&e.StartDate, start}, {&e.EndDate, end}, {&e.CreatedAt, cre}, {&e.UpdatedAt, upd}} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, err
		}
	}
	return &e, nil
}

var registrationColumnList = []string{
	"id", "event_id", "attendee_id", "attendee_name", "status", "check_in_code",
	"checked_in_at", "payment_status", "feedback_submitted", "feedback", "rating",
	"created_at", "updated_at",
}

var (
	registrationColumns  = strings.Join(registrationColumnList, ", ")
	registrationColumnsR = "r." + strings.Join(registrationColumnList, ", r.")
)

func registrationDest(r *model.Registration, checkedIn *sql.NullString, rating *sql.NullInt64, cre, upd *string) []any {
	return []any{
		&r.ID, &r.EventID, &r.AttendeeID, &r.AttendeeName, &r.Status, &r.CheckInCode,
		checkedIn, &r.PaymentStatus, &r.FeedbackSubmitted, &r.Feedback, rating,
		cre, upd,
	}
}

func finishRegistration(r *model.Registration, checkedIn sql.NullString, rating sql.NullInt64, cre, upd string) error {
	var err error
	if checkedIn.Valid {
		t, err := parseTime(checkedIn.String)
		if err != nil {
			return err
		}
		r.CheckedInAt = &t
	}
	if rating.Valid {
		v := int(rating.Int64)
		r.Rating = &v
	}
	if r.CreatedAt, err = parseTime(cre); err != nil {
		return err
	}
	if r.UpdatedAt, err = parseTime(upd); err != nil {
		return err
	}
	return nil
}

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var (
		r         model.Registration
		checkedIn sql.NullString
		rating    sql.NullInt64
		cre, upd  string
	)
	if err := row.Scan(registrationDest(&r, &checkedIn, &rating, &cre, &upd)...); err != nil {
		return nil, err
	}
	if err := finishRegistration(&r, checkedIn, rating, cre, upd); err != nil {
		return nil, err
	}
	return &r, nil
}

// scanRegistrationWithEvent scans registrationColumnsR followed by the
// event summary columns.
func scanRegistrationWithEvent(row rowScanner) (*model.Registration, error) {
	var (
		r         model.Registration
		s         model.EventSummary
		checkedIn sql.NullString
		rating    sql.NullInt64
		cre, upd  string
		start     string
	)
	dest := registrationDest(&r, &checkedIn, &rating, &cre, &upd)
	dest = append(dest, &s.ID, &s.Title, &s.Venue, &start, &s.OrganizerID, &s.Capacity, &s.RegisteredCount)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := finishRegistration(&r, checkedIn, rating, cre, upd); err != nil {
		return nil, err
	}
	var err error
	if s.StartDate, err = parseTime(start); err != nil {
		return nil, err
	}
	r.Event = &s
	return &r, nil
}

const eventSummaryColumnsE = "e.id, e.title, e.venue, e.start_date, e.organizer_id, e.capacity, e.registered_count"

var notificationColumns = "id, recipient_id, title, message, type, event_id, is_read, meta, created_at"

func scanNotification(row rowScanner) (*model.Notification, error) {
	var (
		n         model.Notification
		meta, cre string
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Title, &n.Message, &n.Type, &n.EventID, &n.IsRead, &meta, &cre); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meta), &n.Meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	var err error
	if n.CreatedAt, err = parseTime(cre); err != nil {
		return nil, err
	}
	return &n, nil
}
