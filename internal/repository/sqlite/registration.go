package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *sql.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sql.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Book inserts reg and takes one seat on its event in a single transaction.
//
// The insert goes first so the (event_id, attendee_id) unique constraint
// rejects duplicates. The seat is then taken with a conditional update that
// only matches while registered_count < capacity; a zero-row result rolls the
// insert back. When requireApproved is set the same update also requires the
// event to still be approved. The event after the increment is returned.
func (r *RegistrationRepository) Book(ctx context.Context, reg *model.Registration, requireApproved bool) (*model.Event, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES (`+placeholders(len(registrationColumnList))+`)`,
		reg.ID, reg.EventID, reg.AttendeeID, reg.AttendeeName, string(reg.Status), reg.CheckInCode,
		nullTime(reg.CheckedInAt), string(reg.PaymentStatus), reg.FeedbackSubmitted, reg.Feedback, nullInt(reg.Rating),
		formatTime(reg.CreatedAt), formatTime(reg.UpdatedAt),
	)
	if err != nil {
		switch {
		case isConstraint(err, "UNIQUE"):
			return nil, repository.ErrAlreadyRegistered
		case isConstraint(err, "FOREIGN KEY"):
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	event, err := scanEvent(tx.QueryRowContext(ctx,
		`UPDATE events SET registered_count = registered_count + 1, updated_at = ?
		 WHERE id = ? AND registered_count < capacity AND (? = 0 OR status = 'approved')
		 RETURNING `+eventColumns,
		formatTime(reg.CreatedAt), reg.EventID, requireApproved,
	))
	if errors.Is(err, sql.ErrNoRows) {
		var status string
		err = tx.QueryRowContext(ctx, `SELECT status FROM events WHERE id = ?`, reg.EventID).Scan(&status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, repository.ErrNotFound
		case err != nil:
			return nil, fmt.Errorf("read event status: %w", err)
		case requireApproved && model.EventStatus(status) != model.EventApproved:
			return nil, repository.ErrEventClosed
		default:
			return nil, repository.ErrEventFull
		}
	}
	if err != nil {
		return nil, fmt.Errorf("increment registered_count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return event, nil
}

// Cancel moves the (event, attendee) registration to cancelled. A seat is
// released only when the registration held one, and only the caller whose
// conditional update matched releases it. An already cancelled registration
// is returned with changed=false.
func (r *RegistrationRepository) Cancel(ctx context.Context, eventID, attendeeID string, at time.Time) (*model.Registration, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	reg, err := scanRegistration(tx.QueryRowContext(ctx,
		`UPDATE registrations SET status = 'cancelled', updated_at = ?
		 WHERE event_id = ? AND attendee_id = ? AND status IN ('confirmed', 'checked_in')
		 RETURNING `+registrationColumns,
		formatTime(at), eventID, attendeeID,
	))
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE events SET registered_count = registered_count - 1, updated_at = ? WHERE id = ?`,
			formatTime(at), eventID,
		); err != nil {
			return nil, false, fmt.Errorf("decrement registered_count: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		reg, err = scanRegistration(tx.QueryRowContext(ctx,
			`UPDATE registrations SET status = 'cancelled', updated_at = ?
			 WHERE event_id = ? AND attendee_id = ? AND status = 'pending'
			 RETURNING `+registrationColumns,
			formatTime(at), eventID, attendeeID,
		))
		if errors.Is(err, sql.ErrNoRows) {
			existing, err := scanRegistration(tx.QueryRowContext(ctx,
				`SELECT `+registrationColumns+` FROM registrations WHERE event_id = ? AND attendee_id = ?`,
				eventID, attendeeID,
			))
			if errors.Is(err, sql.ErrNoRows) {
				return nil, false, repository.ErrNotFound
			}
			if err != nil {
				return nil, false, fmt.Errorf("get registration: %w", err)
			}
			return existing, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("cancel pending registration: %w", err)
		}
	default:
		return nil, false, fmt.Errorf("cancel registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, true, nil
}

// CheckIn moves a confirmed registration to checked_in. Any other current
// status leaves the row untouched and returns it with changed=false.
func (r *RegistrationRepository) CheckIn(ctx context.Context, id string, at time.Time) (*model.Registration, bool, error) {
	return r.guardedUpdate(ctx, id,
		`UPDATE registrations SET status = 'checked_in', checked_in_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'confirmed'
		 RETURNING `+registrationColumns,
		formatTime(at), formatTime(at), id,
	)
}

// SaveFeedback stores feedback and rating while the registration is
// confirmed or checked in. Later calls overwrite earlier ones.
func (r *RegistrationRepository) SaveFeedback(ctx context.Context, id, feedback string, rating int, at time.Time) (*model.Registration, bool, error) {
	return r.guardedUpdate(ctx, id,
		`UPDATE registrations SET feedback = ?, rating = ?, feedback_submitted = 1, updated_at = ?
		 WHERE id = ? AND status IN ('confirmed', 'checked_in')
		 RETURNING `+registrationColumns,
		feedback, rating, formatTime(at), id,
	)
}

func (r *RegistrationRepository) guardedUpdate(ctx context.Context, id, query string, args ...any) (*model.Registration, bool, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return reg, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("update registration %s: %w", id, err)
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	reg, err := scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// ListByEvent returns all registrations for an event, newest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = ? ORDER BY created_at DESC, id ASC`, scanRegistration, eventID)
}

// ListByAttendee returns an attendee's registrations with event summaries, newest first.
func (r *RegistrationRepository) ListByAttendee(ctx context.Context, attendeeID string) ([]model.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumnsR+`, `+eventSummaryColumnsE+`
		 FROM registrations r JOIN events e ON e.id = r.event_id
		 WHERE r.attendee_id = ? ORDER BY r.created_at DESC, r.id ASC`, scanRegistrationWithEvent, attendeeID)
}

// ActiveAttendeeIDs returns the attendees currently holding a seat.
func (r *RegistrationRepository) ActiveAttendeeIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT attendee_id FROM registrations
		 WHERE event_id = ? AND status IN ('confirmed', 'checked_in')
		 ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountActive returns how many registrations for the event hold a seat.
func (r *RegistrationRepository) CountActive(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = ? AND status IN ('confirmed', 'checked_in')`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (r *RegistrationRepository) list(ctx context.Context, query string, scan func(rowScanner) (*model.Registration, error), args ...any) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}
