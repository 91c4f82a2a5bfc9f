// Package postgres implements the event, registration and notification
// repositories with pgx directly (no ORM).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

const eventColumns = `id, organizer_id, college, title, description, category, tags,
	venue, banner_url, start_date, end_date, capacity, registered_count,
	status, is_featured, requires_approval, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var status string
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.College, &e.Title, &e.Description, &e.Category, &e.Tags,
		&e.Venue, &e.BannerURL, &e.StartDate, &e.EndDate, &e.Capacity, &e.RegisteredCount,
		&status, &e.IsFeatured, &e.RequiresApproval, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = model.EventStatus(status)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return &e, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a fully populated event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		e.ID, e.OrganizerID, e.College, e.Title, e.Description, e.Category, tags,
		e.Venue, e.BannerURL, e.StartDate, e.EndDate, e.Capacity, e.RegisteredCount,
		string(e.Status), e.IsFeatured, e.RequiresApproval, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns the events matching q.
func (r *EventRepository) List(ctx context.Context, q repository.EventQuery) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(q.Statuses) > 0 {
		where = append(where, "status = ANY("+arg(repository.StatusStrings(q.Statuses))+")")
	}
	if q.Category != "" {
		where = append(where, "category = "+arg(q.Category))
	}
	if q.OrganizerID != "" {
		where = append(where, "organizer_id = "+arg(q.OrganizerID))
	}
	if q.Featured != nil {
		where = append(where, "is_featured = "+arg(*q.Featured))
	}
	if q.Search != "" {
		p := arg(repository.LikePattern(q.Search))
		where = append(where, "(lower(title) LIKE "+p+" OR lower(description) LIKE "+p+")")
	}
	if q.StartFrom != nil {
		where = append(where, "start_date >= "+arg(*q.StartFrom))
	}
	if q.StartTo != nil {
		where = append(where, "start_date <= "+arg(*q.StartTo))
	}
	if q.College != "" {
		where = append(where, "(college = '' OR lower(college) = lower("+arg(q.College)+"))")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", q.SortColumn(), q.SortDirection())
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update writes the editable fields of e. When ownerID is set the write is
// scoped to that organizer and also sets the status to e.Status; without an
// owner the stored status is left as it is. The capacity may not drop below
// the seats already taken.
func (r *EventRepository) Update(ctx context.Context, e *model.Event, ownerID string) (*model.Event, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	updated, err := scanEvent(r.db.QueryRow(ctx,
		`UPDATE events SET
			title = $2, description = $3, category = $4, tags = $5, venue = $6, banner_url = $7,
			start_date = $8, end_date = $9, capacity = $10, requires_approval = $11,
			status = CASE WHEN $14::text = '' THEN status ELSE $12 END, updated_at = $13
		 WHERE id = $1 AND ($14::text = '' OR organizer_id = $14) AND registered_count <= $10
		 RETURNING `+eventColumns,
		e.ID, e.Title, e.Description, e.Category, tags, e.Venue, e.BannerURL,
		e.StartDate, e.EndDate, e.Capacity, e.RequiresApproval, string(e.Status), e.UpdatedAt,
		ownerID,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update event: %w", err)
	}
	current, err := r.GetByID(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	if ownerID != "" && current.OrganizerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrCapacityBelowCount
}

// Transition moves the event to status to, but only from one of the listed
// statuses. When the guard does not hold the current event is returned with
// changed=false.
func (r *EventRepository) Transition(ctx context.Context, id string, to model.EventStatus, from []model.EventStatus, at time.Time) (*model.Event, bool, error) {
	return r.guardedUpdate(ctx, id,
		`UPDATE events SET status = $3, updated_at = $4
		 WHERE id = $1 AND status = ANY($2)
		 RETURNING `+eventColumns,
		id, repository.StatusStrings(from), string(to), at,
	)
}

// SetFeatured marks the event featured when its status is one of from.
func (r *EventRepository) SetFeatured(ctx context.Context, id string, from []model.EventStatus, at time.Time) (*model.Event, bool, error) {
	return r.guardedUpdate(ctx, id,
		`UPDATE events SET is_featured = TRUE, updated_at = $3
		 WHERE id = $1 AND NOT is_featured AND status = ANY($2)
		 RETURNING `+eventColumns,
		id, repository.StatusStrings(from), at,
	)
}

func (r *EventRepository) guardedUpdate(ctx context.Context, id, query string, args ...any) (*model.Event, bool, error) {
	e, err := scanEvent(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("update event %s: %w", id, err)
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

// Delete hard-deletes an event. When ownerID is set the delete is scoped to
// that organizer. Events referenced by registrations cannot be deleted.
func (r *EventRepository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM events WHERE id = $1 AND ($2::text = '' OR organizer_id = $2)`, id, ownerID)
	if err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return repository.ErrHasRegistrations
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
