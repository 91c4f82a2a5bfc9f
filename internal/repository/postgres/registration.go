package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

const registrationColumns = `id, event_id, attendee_id, attendee_name, status, check_in_code,
	checked_in_at, payment_status, feedback_submitted, feedback, rating, created_at, updated_at`

const registrationColumnsR = `r.id, r.event_id, r.attendee_id, r.attendee_name, r.status, r.check_in_code,
	r.checked_in_at, r.payment_status, r.feedback_submitted, r.feedback, r.rating, r.created_at, r.updated_at`

func registrationDest(reg *model.Registration, status, payment *string) []any {
	return []any{
		&reg.ID, &reg.EventID, &reg.AttendeeID, &reg.AttendeeName, status, &reg.CheckInCode,
		&reg.CheckedInAt, payment, &reg.FeedbackSubmitted, &reg.Feedback, &reg.Rating,
		&reg.CreatedAt, &reg.UpdatedAt,
	}
}

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	var status, payment string
	if err := row.Scan(registrationDest(&reg, &status, &payment)...); err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatus(status)
	reg.PaymentStatus = model.PaymentStatus(payment)
	return &reg, nil
}

func scanRegistrationWithEvent(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	var s model.EventSummary
	var status, payment string
	dest := append(registrationDest(&reg, &status, &payment),
		&s.ID, &s.Title, &s.Venue, &s.StartDate, &s.OrganizerID, &s.Capacity, &s.RegisteredCount)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	reg.Status = model.RegistrationStatus(status)
	reg.PaymentStatus = model.PaymentStatus(payment)
	reg.Event = &s
	return &reg, nil
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Book performs a concurrency-safe registration inside one transaction.
//
// ─────────────────────────────────────────────────────────────────────────────
// WHY A CONDITIONAL UPDATE
// ─────────────────────────────────────────────────────────────────────────────
//
// Naive read-then-write approach (BROKEN):
//
//	tx A: SELECT registered_count FROM events WHERE id = X  → 9
//	tx B: SELECT registered_count FROM events WHERE id = X  → 9
//	tx A: capacity=10, 9 < 10 → INSERT registration, SET registered_count = 10
//	tx B: capacity=10, 9 < 10 → INSERT registration, SET registered_count = 10
//	Result: 11 registrations for a 10-seat event.
//
// Here the guard lives in the write itself:
//
//	UPDATE events SET registered_count = registered_count + 1
//	WHERE id = X AND registered_count < capacity
//
// Under READ COMMITTED a second writer blocks on the row lock, then re-checks
// the WHERE clause against the committed row, so the last seat is handed out
// exactly once. Zero rows affected means the event is full and the
// registration insert is rolled back with the transaction.
//
// Duplicates are rejected by the (event_id, attendee_id) unique constraint on
// the insert, never by a SELECT beforehand.
// ─────────────────────────────────────────────────────────────────────────────
func (r *RegistrationRepository) Book(ctx context.Context, reg *model.Registration, requireApproved bool) (*model.Event, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		reg.ID, reg.EventID, reg.AttendeeID, reg.AttendeeName, string(reg.Status), reg.CheckInCode,
		reg.CheckedInAt, string(reg.PaymentStatus), reg.FeedbackSubmitted, reg.Feedback, reg.Rating,
		reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		switch pgCode(err) {
		case codeUniqueViolation:
			return nil, repository.ErrAlreadyRegistered
		case codeForeignKeyViolation:
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	event, err := scanEvent(tx.QueryRow(ctx,
		`UPDATE events SET registered_count = registered_count + 1, updated_at = $2
		 WHERE id = $1 AND registered_count < capacity AND (NOT $3::boolean OR status = 'approved')
		 RETURNING `+eventColumns,
		reg.EventID, reg.CreatedAt, requireApproved,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		var status string
		err = tx.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, reg.EventID).Scan(&status)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
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

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return event, nil
}

// Cancel moves the (event, attendee) registration to cancelled. The status
// change is keyed on the prior status, so among concurrent cancels only one
// matches and only that one releases the seat. An already cancelled
// registration is returned with changed=false.
func (r *RegistrationRepository) Cancel(ctx context.Context, eventID, attendeeID string, at time.Time) (*model.Registration, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	reg, err := scanRegistration(tx.QueryRow(ctx,
		`UPDATE registrations SET status = 'cancelled', updated_at = $3
		 WHERE event_id = $1 AND attendee_id = $2 AND status IN ('confirmed', 'checked_in')
		 RETURNING `+registrationColumns,
		eventID, attendeeID, at,
	))
	switch {
	case err == nil:
		if _, err := tx.Exec(ctx,
			`UPDATE events SET registered_count = registered_count - 1, updated_at = $2 WHERE id = $1`,
			eventID, at,
		); err != nil {
			return nil, false, fmt.Errorf("decrement registered_count: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		reg, err = scanRegistration(tx.QueryRow(ctx,
			`UPDATE registrations SET status = 'cancelled', updated_at = $3
			 WHERE event_id = $1 AND attendee_id = $2 AND status = 'pending'
			 RETURNING `+registrationColumns,
			eventID, attendeeID, at,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := scanRegistration(tx.QueryRow(ctx,
				`SELECT `+registrationColumns+` FROM registrations WHERE event_id = $1 AND attendee_id = $2`,
				eventID, attendeeID,
			))
			if errors.Is(err, pgx.ErrNoRows) {
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

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, true, nil
}

// CheckIn moves a confirmed registration to checked_in. Any other current
// status leaves the row untouched and returns it with changed=false.
func (r *RegistrationRepository) CheckIn(ctx context.Context, id string, at time.Time) (*model.Registration, bool, error) {
	return r.guardedUpdate(ctx, id,
		`UPDATE registrations SET status = 'checked_in', checked_in_at = $2, updated_at = $2
		 WHERE id = $1 AND status = 'confirmed'
		 RETURNING `+registrationColumns,
		id, at,
	)
}

// SaveFeedback stores feedback and rating while the registration is
// confirmed or checked in. Later calls overwrite earlier ones.
func (r *RegistrationRepository) SaveFeedback(ctx context.Context, id, feedback string, rating int, at time.Time) (*model.Registration, bool, error) {
	return r.guardedUpdate(ctx, id,
		`UPDATE registrations SET feedback = $2, rating = $3, feedback_submitted = TRUE, updated_at = $4
		 WHERE id = $1 AND status IN ('confirmed', 'checked_in')
		 RETURNING `+registrationColumns,
		id, feedback, rating, at,
	)
}

func (r *RegistrationRepository) guardedUpdate(ctx context.Context, id, query string, args ...any) (*model.Registration, bool, error) {
	reg, err := scanRegistration(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return reg, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
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
	reg, err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// ListByEvent returns all registrations for an event, newest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumns+` FROM registrations
		 WHERE event_id = $1 ORDER BY created_at DESC, id ASC`, scanRegistration, eventID)
}

// ListByAttendee returns an attendee's registrations with event summaries, newest first.
func (r *RegistrationRepository) ListByAttendee(ctx context.Context, attendeeID string) ([]model.Registration, error) {
	return r.list(ctx, `SELECT `+registrationColumnsR+`,
		 e.id, e.title, e.venue, e.start_date, e.organizer_id, e.capacity, e.registered_count
		 FROM registrations r JOIN events e ON e.id = r.event_id
		 WHERE r.attendee_id = $1 ORDER BY r.created_at DESC, r.id ASC`, scanRegistrationWithEvent, attendeeID)
}

// ActiveAttendeeIDs returns the attendees currently holding a seat.
func (r *RegistrationRepository) ActiveAttendeeIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT attendee_id FROM registrations
		 WHERE event_id = $1 AND status IN ('confirmed', 'checked_in')
		 ORDER BY created_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan attendees: %w", err)
	}
	return ids, nil
}

// CountActive returns how many registrations for the event hold a seat.
func (r *RegistrationRepository) CountActive(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ('confirmed', 'checked_in')`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

func (r *RegistrationRepository) list(ctx context.Context, query string, scan func(pgx.Row) (*model.Registration, error), args ...any) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

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
