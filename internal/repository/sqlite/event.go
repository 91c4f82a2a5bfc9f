package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a fully populated event.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	tags, err := json.Marshal(nonNilTags(e.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (`+placeholders(len(eventColumnList))+`)`,
		e.ID, e.OrganizerID, e.College, e.Title, e.Description, e.Category, string(tags),
		e.Venue, e.BannerURL, formatTime(e.StartDate), formatTime(e.EndDate), e.Capacity, e.RegisteredCount,
		string(e.Status), e.IsFeatured, e.RequiresApproval, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
	if len(q.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(q.Statuses))+")")
		for _, s := range q.Statuses {
			args = append(args, string(s))
		}
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, q.Category)
	}
	if q.OrganizerID != "" {
		where = append(where, "organizer_id = ?")
		args = append(args, q.OrganizerID)
	}
	if q.Featured != nil {
		where = append(where, "is_featured = ?")
		args = append(args, *q.Featured)
	}
	if q.Search != "" {
		where = append(where, `(lower(title) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\')`)
		p := repository.LikePattern(q.Search)
		args = append(args, p, p)
	}
	if q.StartFrom != nil {
		where = append(where, "start_date >= ?")
		args = append(args, formatTime(*q.StartFrom))
	}
	if q.StartTo != nil {
		where = append(where, "start_date <= ?")
		args = append(args, formatTime(*q.StartTo))
	}
	if q.College != "" {
		where = append(where, "(college = '' OR lower(college) = lower(?))")
		args = append(args, q.College)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", q.SortColumn(), q.SortDirection())
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
	tags, err := json.Marshal(nonNilTags(e.Tags))
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	updated, err := scanEvent(r.db.QueryRowContext(ctx,
		`UPDATE events SET
			title = ?, description = ?, category = ?, tags = ?, venue = ?, banner_url = ?,
			start_date = ?, end_date = ?, capacity = ?, requires_approval = ?,
			status = CASE WHEN ? = '' THEN status ELSE ? END, updated_at = ?
		 WHERE id = ? AND (? = '' OR organizer_id = ?) AND registered_count <= ?
		 RETURNING `+eventColumns,
		e.Title, e.Description, e.Category, string(tags), e.Venue, e.BannerURL,
		formatTime(e.StartDate), formatTime(e.EndDate), e.Capacity, e.RequiresApproval,
		ownerID, string(e.Status), formatTime(e.UpdatedAt),
		e.ID, ownerID, ownerID, e.Capacity,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
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
	args := []any{string(to), formatTime(at), id}
	for _, s := range from {
		args = append(args, string(s))
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE events SET status = ?, updated_at = ?
		 WHERE id = ? AND status IN (`+placeholders(len(from))+`)
		 RETURNING `+eventColumns, args)
}

// SetFeatured marks the event featured when its status is one of from.
func (r *EventRepository) SetFeatured(ctx context.Context, id string, from []model.EventStatus, at time.Time) (*model.Event, bool, error) {
	args := []any{formatTime(at), id}
	for _, s := range from {
		args = append(args, string(s))
	}
	return r.guardedUpdate(ctx, id,
		`UPDATE events SET is_featured = 1, updated_at = ?
		 WHERE id = ? AND is_featured = 0 AND status IN (`+placeholders(len(from))+`)
		 RETURNING `+eventColumns, args)
}

func (r *EventRepository) guardedUpdate(ctx context.Context, id, query string, args []any) (*model.Event, bool, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, args...))
	if err == nil {
		return e, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
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
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND (? = '' OR organizer_id = ?)`,
		id, ownerID, ownerID,
	)
	if err != nil {
		if isConstraint(err, "FOREIGN KEY") {
			return repository.ErrHasRegistrations
		}
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
