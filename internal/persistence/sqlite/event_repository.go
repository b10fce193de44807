package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/airbussard/jvc/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite
type EventRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewEventRepository creates a new SQLite event repository
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const eventColumns = `id, title, description, location, start_at, end_at, all_day, color, created_by, created_at, updated_at`

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if event.End.Before(event.Start) {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.helper.Exec(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Location,
		formatTimestamp(event.Start),
		formatTimestamp(event.End),
		event.AllDay,
		event.Color,
		event.CreatedBy,
		formatTimestamp(event.CreatedAt),
		formatTimestamp(event.UpdatedAt),
	); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateEvent overwrites the mutable fields of an event. The creator is kept.
func (r *EventRepository) UpdateEvent(ctx context.Context, event persistence.Event) error {
	if event.End.Before(event.Start) {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE events
		SET title = ?, description = ?, location = ?, start_at = ?, end_at = ?,
		    all_day = ?, color = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		formatTimestamp(event.Start),
		formatTimestamp(event.End),
		event.AllDay,
		event.Color,
		formatTimestamp(event.UpdatedAt),
		event.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	event, err := scanEvent(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Event{}, r.mapper.MapError(err)
	}
	return event, nil
}

// ListEvents returns events matching the filter ordered by start then ID.
func (r *EventRepository) ListEvents(ctx context.Context, filter persistence.EventFilter) ([]persistence.Event, error) {
	query, args := buildEventListQuery(filter)
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return events, nil
}

// DeleteEvent removes an event. Attendances go with it through ON DELETE CASCADE.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func buildEventListQuery(filter persistence.EventFilter) (string, []any) {
	query := `SELECT ` + eventColumns + ` FROM events`

	var (
		conditions []string
		args       []any
	)
	if len(filter.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("id IN (%s)", placeholders(len(filter.IDs))))
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if filter.StartsBefore != nil {
		conditions = append(conditions, "start_at < ?")
		args = append(args, formatTimestamp(*filter.StartsBefore))
	}
	if filter.EndsAfter != nil {
		conditions = append(conditions, "end_at >= ?")
		args = append(args, formatTimestamp(*filter.EndsAfter))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_at ASC, id ASC"
	return query, args
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event                                    persistence.Event
		startStr, endStr, createdStr, updatedStr string
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.Location,
		&startStr,
		&endStr,
		&event.AllDay,
		&event.Color,
		&event.CreatedBy,
		&createdStr,
		&updatedStr,
	); err != nil {
		return persistence.Event{}, err
	}

	var err error
	if event.Start, err = parseTimestamp(startStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse start_at: %w", err)
	}
	if event.End, err = parseTimestamp(endStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse end_at: %w", err)
	}
	if event.CreatedAt, err = parseTimestamp(createdStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if event.UpdatedAt, err = parseTimestamp(updatedStr); err != nil {
		return persistence.Event{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return event, nil
}
